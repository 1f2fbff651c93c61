package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	redis "github.com/go-redis/redis/v8"
	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/sirupsen/logrus"

	"github.com/ecotech/contentforge/internal/agents"
	"github.com/ecotech/contentforge/internal/config"
	"github.com/ecotech/contentforge/internal/coordinator"
	"github.com/ecotech/contentforge/internal/embedding"
	"github.com/ecotech/contentforge/internal/eventlog"
	"github.com/ecotech/contentforge/internal/generation"
	"github.com/ecotech/contentforge/internal/index"
	"github.com/ecotech/contentforge/internal/models"
	"github.com/ecotech/contentforge/internal/publisher"
	"github.com/ecotech/contentforge/internal/retriever"
	"github.com/ecotech/contentforge/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (empty loads defaults)")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.Init(level)
	appLogger := logger.New("ContentService", "")
	appLogger.Info("Starting content service...")

	// Embedding backend, optionally fronted by a redis cache.
	embedder, err := embedding.New(cfg.Embedding.Provider, cfg.Embedding.Model, cfg.Embedding.APIKey, cfg.Embedding.BaseURL)
	if err != nil {
		log.Fatalf("Failed to create embedding backend: %v", err)
	}
	if cfg.Embedding.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Embedding.RedisAddr,
			Password: cfg.Embedding.RedisPassword,
		})
		ttl := 24 * time.Hour
		if cfg.Embedding.CacheTTL != "" {
			if parsed, err := time.ParseDuration(cfg.Embedding.CacheTTL); err == nil {
				ttl = parsed
			}
		}
		embedder = embedding.NewCachedEmbedding(embedder, rdb, ttl, logger.New("EmbeddingCache", ""))
		appLogger.Info("Embedding cache enabled")
	}

	// Vector store backend.
	var vectors index.VectorStore
	switch cfg.Index.Backend {
	case "milvus":
		milvusClient, err := client.NewClient(context.Background(), client.Config{Address: cfg.Index.MilvusAddress})
		if err != nil {
			log.Fatalf("Failed to connect to Milvus: %v", err)
		}
		vectors, err = index.NewMilvusStore(milvusClient, logger.New("MilvusStore", ""))
		if err != nil {
			log.Fatalf("Failed to create Milvus store: %v", err)
		}
	default:
		vectors = index.NewMemoryStore()
	}

	ix := index.New(embedder, vectors, logger.New("Index", ""))
	for _, collection := range []string{cfg.Index.Collection, cfg.Index.BrandCollection} {
		if err := ix.CreateCollection(context.Background(), collection, index.SchemaHint{Dimension: cfg.Index.Dimension}); err != nil {
			log.Fatalf("Failed to create collection %s: %v", collection, err)
		}
	}

	ret := retriever.New(ix, cfg.Index.Collection, cfg.Index.BrandCollection, logger.New("Retriever", ""))

	// Generation engine.
	var engine generation.Engine
	switch cfg.Generation.Backend {
	case "openai":
		engine = generation.NewOpenAIEngine(cfg.Generation.APIKey, cfg.Generation.BaseURL, cfg.Generation.Model, logger.New("OpenAIEngine", ""))
	default:
		engine = generation.NewTemplateEngine()
	}

	strategyAgent := agents.NewStrategyAgent(engine, logger.New("StrategyAgent", ""))
	brandAgent := agents.NewBrandAgent(ret, engine, logger.New("BrandAgent", ""))

	// Distribution clients from config; no platforms means no distribution.
	var distributionAgent *agents.DistributionAgent
	var distributionPlatforms []models.Platform
	if len(cfg.Platforms) > 0 {
		registry := publisher.NewRegistry()
		for _, p := range cfg.Platforms {
			registry.Register(publisher.NewHTTPClient(
				models.Platform(p.Name), p.Endpoint, p.APIKey, p.RatePerSec, p.Burst,
				logger.New("Publisher", "")))
			distributionPlatforms = append(distributionPlatforms, models.Platform(p.Name))
		}
		distributionAgent = agents.NewDistributionAgent(registry, logger.New("DistributionAgent", ""))
	}

	var eventLog eventlog.Publisher
	if cfg.Kafka.Enabled {
		kafkaPublisher := eventlog.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger.New("EventLog", ""))
		defer kafkaPublisher.Close()
		eventLog = kafkaPublisher
		appLogger.Info("Kafka event log enabled")
	}

	coord := coordinator.New(ret, strategyAgent, brandAgent, distributionAgent, eventLog, coordinator.Config{
		RetrievalTimeout:      cfg.Pipeline.RetrievalTimeout.Std(),
		StrategyTimeout:       cfg.Pipeline.StrategyTimeout.Std(),
		GenerationTimeout:     cfg.Pipeline.GenerationTimeout.Std(),
		BrandTimeout:          cfg.Pipeline.BrandTimeout.Std(),
		DistributionTimeout:   cfg.Pipeline.DistributionTimeout.Std(),
		RetrievalTopK:         cfg.Pipeline.RetrievalTopK,
		RetrievalThreshold:    cfg.Pipeline.RetrievalThreshold,
		BrandTargetScore:      cfg.Pipeline.BrandTargetScore,
		DistributionPlatforms: distributionPlatforms,
	}, logger.New("Coordinator", ""))

	gin.SetMode(gin.ReleaseMode)
	router := gin.Default()
	handler := NewHttpHandler(coord, ret, ix, cfg.Index.Collection, cfg.Index.BrandCollection)

	api := router.Group("/api/v1")
	{
		api.POST("/content/generate", handler.generate)
		api.POST("/content/generate/stream", handler.generateStream)
		api.POST("/content/items", handler.upsertItems)
		api.POST("/content/search", handler.search)
		api.POST("/content/search/hybrid", handler.hybridSearch)
		api.GET("/content/items/:id/similar", handler.similar)
		api.GET("/content/stats", handler.stats)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{Addr: addr, Handler: router}
	go func() {
		appLogger.Info(fmt.Sprintf("HTTP server listening at %s", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to serve HTTP: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Error("Forced shutdown")
	}
	appLogger.Info("Server gracefully stopped")
}
