// Package config loads the service configuration from a YAML file with
// sensible defaults for local development.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

type EmbeddingConfig struct {
	Provider string `yaml:"provider"` // openai or ollama
	Model    string `yaml:"model"`
	APIKey   string `yaml:"api_key"`
	BaseURL  string `yaml:"base_url"`
	// RedisAddr enables the embedding cache when set.
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	CacheTTL      string `yaml:"cache_ttl"`
}

type IndexConfig struct {
	// Backend selects the vector store: memory or milvus.
	Backend         string `yaml:"backend"`
	MilvusAddress   string `yaml:"milvus_address"`
	Dimension       int    `yaml:"dimension"`
	Collection      string `yaml:"collection"`
	BrandCollection string `yaml:"brand_collection"`
}

type GenerationConfig struct {
	// Backend selects the engine: template or openai.
	Backend string `yaml:"backend"`
	Model   string `yaml:"model"`
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

type KafkaConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type PlatformConfig struct {
	Name       string  `yaml:"name"`
	Endpoint   string  `yaml:"endpoint"`
	APIKey     string  `yaml:"api_key"`
	RatePerSec float64 `yaml:"rate_per_sec"`
	Burst      int     `yaml:"burst"`
}

// Duration parses yaml values like "90s" or "2m" into a time.Duration.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

type PipelineConfig struct {
	RetrievalTimeout    Duration `yaml:"retrieval_timeout"`
	StrategyTimeout     Duration `yaml:"strategy_timeout"`
	GenerationTimeout   Duration `yaml:"generation_timeout"`
	BrandTimeout        Duration `yaml:"brand_timeout"`
	DistributionTimeout Duration `yaml:"distribution_timeout"`
	RetrievalTopK       int      `yaml:"retrieval_top_k"`
	RetrievalThreshold  float64  `yaml:"retrieval_threshold"`
	BrandTargetScore    float64  `yaml:"brand_target_score"`
}

// AppConfig is the root configuration document.
type AppConfig struct {
	Server     ServerConfig     `yaml:"server"`
	Logging    LoggingConfig    `yaml:"logging"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Index      IndexConfig      `yaml:"index"`
	Generation GenerationConfig `yaml:"generation"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Platforms  []PlatformConfig `yaml:"platforms"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
}

// LoadConfig reads and parses the config file, then fills defaults. A
// missing file is an error; an empty path loads pure defaults.
func LoadConfig(path string) (*AppConfig, error) {
	cfg := &AppConfig{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *AppConfig) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "ollama"
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "nomic-embed-text"
	}
	if c.Index.Backend == "" {
		c.Index.Backend = "memory"
	}
	if c.Index.Dimension == 0 {
		c.Index.Dimension = 768
	}
	if c.Index.Collection == "" {
		c.Index.Collection = "marketing_content"
	}
	if c.Index.BrandCollection == "" {
		c.Index.BrandCollection = "brand_voice_examples"
	}
	if c.Generation.Backend == "" {
		c.Generation.Backend = "template"
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "agent-activity-events"
	}
}
