package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the driftwatch pipeline.
type Config struct {
	General  GeneralConfig  `mapstructure:"general"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Retrieve RetrieveConfig `mapstructure:"retrieve"`
	Server   ServerConfig   `mapstructure:"server"`
}

// GeneralConfig contains general application settings.
type GeneralConfig struct {
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
}

// LLMConfig contains the generative-model provider settings together with
// the process-wide request pacing and retry policy.
type LLMConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`

	RequestsPerMinute float64       `mapstructure:"requests_per_minute"`
	RequestJitter     float64       `mapstructure:"request_jitter"`
	MaxRetries        int           `mapstructure:"max_retries"`
	BaseBackoff       time.Duration `mapstructure:"base_backoff"`
}

// Validate checks the LLM configuration.
func (l LLMConfig) Validate() error {
	if strings.TrimSpace(l.Model) == "" {
		return fmt.Errorf("llm.model is required")
	}
	if l.RequestsPerMinute <= 0 {
		return fmt.Errorf("llm.requests_per_minute must be > 0")
	}
	if l.MaxRetries <= 0 {
		return fmt.Errorf("llm.max_retries must be > 0")
	}
	return nil
}

// PipelineConfig contains dataset/analysis directory layout and pacing
// between documents.
type PipelineConfig struct {
	DatasetDir     string        `mapstructure:"dataset_dir"`
	AnalysisDir    string        `mapstructure:"analysis_dir"`
	FilePause      time.Duration `mapstructure:"file_pause"`
	StartPairIndex int           `mapstructure:"start_pair_index"`
}

// Validate checks the pipeline configuration.
func (p PipelineConfig) Validate() error {
	if strings.TrimSpace(p.DatasetDir) == "" {
		return fmt.Errorf("pipeline.dataset_dir is required")
	}
	if strings.TrimSpace(p.AnalysisDir) == "" {
		return fmt.Errorf("pipeline.analysis_dir is required")
	}
	return nil
}

// RetrieveConfig controls the Wayback snapshot feed.
type RetrieveConfig struct {
	CDXEndpoint    string        `mapstructure:"cdx_endpoint"`
	FromDate       string        `mapstructure:"from_date"`
	ToDate         string        `mapstructure:"to_date"`
	MaxCaptures    int           `mapstructure:"max_captures"`
	RequestSpacing time.Duration `mapstructure:"request_spacing"`
	FetchTimeout   time.Duration `mapstructure:"fetch_timeout"`
}

// Normalize applies defaults for unset retrieval values.
func (r RetrieveConfig) Normalize() RetrieveConfig {
	if strings.TrimSpace(r.CDXEndpoint) == "" {
		r.CDXEndpoint = "https://web.archive.org/cdx/search/cdx"
	}
	if r.MaxCaptures <= 0 {
		r.MaxCaptures = 20000
	}
	if r.RequestSpacing <= 0 {
		r.RequestSpacing = 2 * time.Second
	}
	if r.FetchTimeout <= 0 {
		r.FetchTimeout = 30 * time.Second
	}
	return r
}

// ServerConfig contains the read-only results API settings.
type ServerConfig struct {
	Address string `mapstructure:"address"`
}

// LoadConfig loads config from the given file, falling back to defaults and
// DRIFTWATCH_* environment variables when no file is found.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetDefault("general.debug", false)
	v.SetDefault("general.log_level", "info")

	v.SetDefault("llm.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.temperature", 0.0)
	v.SetDefault("llm.max_tokens", 16000)
	v.SetDefault("llm.timeout", 120*time.Second)
	v.SetDefault("llm.requests_per_minute", 20.0)
	v.SetDefault("llm.request_jitter", 0.2)
	v.SetDefault("llm.max_retries", 5)
	v.SetDefault("llm.base_backoff", 2*time.Second)

	v.SetDefault("pipeline.dataset_dir", "dataset")
	v.SetDefault("pipeline.analysis_dir", "analysis_all_output")
	v.SetDefault("pipeline.file_pause", 2*time.Second)
	v.SetDefault("pipeline.start_pair_index", 0)

	v.SetDefault("retrieve.from_date", "20110101")
	v.SetDefault("retrieve.to_date", "20151230")
	v.SetDefault("retrieve.max_captures", 20000)

	v.SetDefault("server.address", ":10080")

	if path == "" {
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix("DRIFTWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine: every knob has a default and can be
		// overridden from the environment. Any other read error is fatal.
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Retrieve = cfg.Retrieve.Normalize()

	if err := cfg.LLM.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Pipeline.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
