package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("default port = %d", cfg.Server.Port)
	}
	if cfg.Index.Backend != "memory" {
		t.Errorf("default index backend = %q", cfg.Index.Backend)
	}
	if cfg.Index.Collection != "marketing_content" || cfg.Index.BrandCollection != "brand_voice_examples" {
		t.Errorf("default collections = %q, %q", cfg.Index.Collection, cfg.Index.BrandCollection)
	}
	if cfg.Generation.Backend != "template" {
		t.Errorf("default generation backend = %q", cfg.Generation.Backend)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	doc := `
server:
  port: 9090
index:
  backend: milvus
  milvus_address: localhost:19530
pipeline:
  generation_timeout: 90s
  retrieval_top_k: 10
kafka:
  enabled: true
  brokers: ["localhost:9092"]
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Index.Backend != "milvus" || cfg.Index.MilvusAddress != "localhost:19530" {
		t.Errorf("index config not parsed: %+v", cfg.Index)
	}
	if cfg.Pipeline.GenerationTimeout.Std() != 90*time.Second {
		t.Errorf("generation timeout = %v", cfg.Pipeline.GenerationTimeout)
	}
	if cfg.Pipeline.RetrievalTopK != 10 {
		t.Errorf("top k = %d", cfg.Pipeline.RetrievalTopK)
	}
	if !cfg.Kafka.Enabled || len(cfg.Kafka.Brokers) != 1 {
		t.Errorf("kafka config not parsed: %+v", cfg.Kafka)
	}
	// Defaults still apply to unset fields.
	if cfg.Logging.Level != "info" {
		t.Errorf("logging default lost: %q", cfg.Logging.Level)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig("/nonexistent/config.yaml"); err == nil {
		t.Error("missing file should error")
	}
}
