package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OPENAI_BASE_URL", "")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Address != ":8080" {
		t.Fatalf("address = %q", cfg.Server.Address)
	}
	if cfg.LLM.BaseURL != DefaultBaseURL {
		t.Fatalf("base url = %q", cfg.LLM.BaseURL)
	}
	if cfg.LLM.MaxRetries != 3 {
		t.Fatalf("max retries = %d", cfg.LLM.MaxRetries)
	}
	if cfg.LLM.Timeout != 60*time.Second {
		t.Fatalf("timeout = %v", cfg.LLM.Timeout)
	}
	if cfg.LLM.Routing.Planning != "openai/gpt-4o-2024-11-20" {
		t.Fatalf("planning model = %q", cfg.LLM.Routing.Planning)
	}
	if cfg.LLM.Routing.PlanningMaxTokens != 1000 {
		t.Fatalf("planning tokens = %d", cfg.LLM.Routing.PlanningMaxTokens)
	}
	if cfg.Pools.IOWorkers != 16 {
		t.Fatalf("io workers = %d", cfg.Pools.IOWorkers)
	}
	if !cfg.Telemetry.Enabled {
		t.Fatalf("telemetry should default on")
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OPENAI_BASE_URL", "")

	path := filepath.Join(t.TempDir(), "config.yaml")
	body := []byte(`
server:
  address: ":9090"
llm:
  api_key: file-key
  max_retries: 5
  routing:
    planning: custom/planner
pools:
  io_workers: 4
`)
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Address != ":9090" {
		t.Fatalf("address = %q", cfg.Server.Address)
	}
	if cfg.LLM.APIKey != "file-key" {
		t.Fatalf("api key = %q", cfg.LLM.APIKey)
	}
	if cfg.LLM.MaxRetries != 5 {
		t.Fatalf("max retries = %d", cfg.LLM.MaxRetries)
	}
	if cfg.LLM.Routing.Planning != "custom/planner" {
		t.Fatalf("planning model = %q", cfg.LLM.Routing.Planning)
	}
	// Untouched keys keep their defaults.
	if cfg.LLM.Routing.Description != "openai/gpt-4o-mini" {
		t.Fatalf("description model = %q", cfg.LLM.Routing.Description)
	}
	if cfg.Pools.IOWorkers != 4 {
		t.Fatalf("io workers = %d", cfg.Pools.IOWorkers)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OPENAI_BASE_URL", "")
	t.Setenv("PLANWEAVE_SERVER_ADDRESS", ":7070")
	t.Setenv("PLANWEAVE_LLM_MAX_RETRIES", "7")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Address != ":7070" {
		t.Fatalf("address = %q", cfg.Server.Address)
	}
	if cfg.LLM.MaxRetries != 7 {
		t.Fatalf("max retries = %d", cfg.LLM.MaxRetries)
	}
}

func TestLoadConfigOpenAIEnvFallbacks(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "env-key")
	t.Setenv("OPENAI_BASE_URL", "https://example.test/v1")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.LLM.APIKey != "env-key" {
		t.Fatalf("api key = %q", cfg.LLM.APIKey)
	}
	if cfg.LLM.BaseURL != "https://example.test/v1" {
		t.Fatalf("base url = %q", cfg.LLM.BaseURL)
	}
}

func TestLoadConfigMissingFileErrors(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for explicit missing file")
	}
}
