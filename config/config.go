package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultBaseURL is used when neither the config file nor OPENAI_BASE_URL
// provide an endpoint. It points at an OpenAI-compatible aggregator so model
// ids of the form "openai/gpt-4o-mini" resolve as-is.
const DefaultBaseURL = "https://openrouter.ai/api/v1"

// Config holds all configuration for the planweave service.
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	Server    ServerConfig    `mapstructure:"server"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Pools     PoolsConfig     `mapstructure:"pools"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// GeneralConfig contains general application settings.
type GeneralConfig struct {
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Address string `mapstructure:"address"`
}

// LLMConfig configures the gateway to the remote model service.
type LLMConfig struct {
	APIKey     string           `mapstructure:"api_key"`
	BaseURL    string           `mapstructure:"base_url"`
	MaxRetries int              `mapstructure:"max_retries"`
	Timeout    time.Duration    `mapstructure:"timeout"`
	Routing    LLMRoutingConfig `mapstructure:"routing"`
}

// LLMRoutingConfig selects which model handles which operation.
type LLMRoutingConfig struct {
	Description          string `mapstructure:"description"`
	Planning             string `mapstructure:"planning"`
	Chat                 string `mapstructure:"chat"`
	Embedding            string `mapstructure:"embedding"`
	DescriptionMaxTokens int    `mapstructure:"description_max_tokens"`
	PlanningMaxTokens    int    `mapstructure:"planning_max_tokens"`
	ChatMaxTokens        int    `mapstructure:"chat_max_tokens"`
}

// PoolsConfig sizes the worker pools used for offloaded tool execution.
type PoolsConfig struct {
	IOWorkers  int `mapstructure:"io_workers"`
	CPUWorkers int `mapstructure:"cpu_workers"`
}

// TelemetryConfig toggles prometheus metrics.
type TelemetryConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("general.debug", false)
	v.SetDefault("general.log_level", "info")
	v.SetDefault("server.address", ":8080")
	v.SetDefault("llm.base_url", DefaultBaseURL)
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("llm.timeout", 60*time.Second)
	v.SetDefault("llm.routing.description", "openai/gpt-4o-mini")
	v.SetDefault("llm.routing.planning", "openai/gpt-4o-2024-11-20")
	v.SetDefault("llm.routing.chat", "openai/gpt-4o-mini")
	v.SetDefault("llm.routing.embedding", "openai/text-embedding-ada-002")
	v.SetDefault("llm.routing.description_max_tokens", 500)
	v.SetDefault("llm.routing.planning_max_tokens", 1000)
	v.SetDefault("llm.routing.chat_max_tokens", 500)
	v.SetDefault("pools.io_workers", 16)
	v.SetDefault("pools.cpu_workers", 0) // 0 -> runtime.NumCPU()-1 at pool construction
	v.SetDefault("telemetry.enabled", true)
}

// LoadConfig reads configuration from an optional yaml file plus the
// environment. PLANWEAVE_* variables override file values; the conventional
// OPENAI_API_KEY / OPENAI_BASE_URL variables are honored as well.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("PLANWEAVE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine: defaults plus env are a complete config.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if env := os.Getenv("OPENAI_BASE_URL"); env != "" && cfg.LLM.BaseURL == DefaultBaseURL {
		cfg.LLM.BaseURL = env
	}
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = DefaultBaseURL
	}
	return &cfg, nil
}
