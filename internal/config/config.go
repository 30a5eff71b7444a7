package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	APIKey          string `mapstructure:"api_key" yaml:"api_key"`
	DefaultProvider string `mapstructure:"default_provider" yaml:"default_provider"`
	DefaultModel    string `mapstructure:"default_model" yaml:"default_model"`
	// BaseURL overrides the OpenAI-compatible endpoint (empty = provider default).
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// Text generation
	Temperature   float64 `mapstructure:"temperature" yaml:"temperature"`
	Candidates    int     `mapstructure:"candidates" yaml:"candidates"`
	MaxTokens     int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	UseCache      bool    `mapstructure:"use_cache" yaml:"use_cache"`
	CacheTTLMin   int     `mapstructure:"cache_ttl_min" yaml:"cache_ttl_min"`
	SummaryMethod string  `mapstructure:"summary_method" yaml:"summary_method"`

	// HTTP/Retry configuration
	HTTPTimeoutSec   int `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
	RetryMaxAttempts int `mapstructure:"retry_max_attempts" yaml:"retry_max_attempts"`
	RetryBaseDelayMs int `mapstructure:"retry_base_delay_ms" yaml:"retry_base_delay_ms"`
	RetryMaxDelayMs  int `mapstructure:"retry_max_delay_ms" yaml:"retry_max_delay_ms"`

	// Local runtimes (Ollama)
	OllamaHost       string `mapstructure:"ollama_host" yaml:"ollama_host"`
	OllamaTimeoutSec int    `mapstructure:"ollama_timeout_sec" yaml:"ollama_timeout_sec"`

	// Web server
	ServerAddr    string   `mapstructure:"server_addr" yaml:"server_addr"`
	MaxUploadMB   int      `mapstructure:"max_upload_mb" yaml:"max_upload_mb"`
	SessionTTLMin int      `mapstructure:"session_ttl_min" yaml:"session_ttl_min"`
	CORSOrigins   []string `mapstructure:"cors_origins" yaml:"cors_origins"`

	// Shared store; empty RedisAddr keeps sessions and cache in process memory.
	RedisAddr     string `mapstructure:"redis_addr" yaml:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password" yaml:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db" yaml:"redis_db"`

	// Rendering
	ChartWidth  int `mapstructure:"chart_width" yaml:"chart_width"`
	ChartHeight int `mapstructure:"chart_height" yaml:"chart_height"`
	HeatmapSize int `mapstructure:"heatmap_size" yaml:"heatmap_size"`

	// Logging
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`
}

// HTTPTimeout returns the configured outbound timeout.
func (c *Global) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSec) * time.Second
}

// SessionTTL returns how long an idle session keeps its dataset.
func (c *Global) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMin) * time.Minute
}

// CacheTTL returns how long cached model responses are kept.
func (c *Global) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLMin) * time.Minute
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.datastatx/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	var path string
	if cfgFile != "" {
		path = cfgFile
	} else {
		dir, err := configDir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("DATASTATX")
	v.AutomaticEnv()
	// The API key is read from the conventional OpenAI variable as well.
	_ = v.BindEnv("api_key", "DATASTATX_API_KEY", "OPENAI_API_KEY")

	// Defaults
	v.SetDefault("default_provider", "openai")
	v.SetDefault("default_model", "gpt-3.5-turbo")
	v.SetDefault("base_url", "")
	v.SetDefault("temperature", 0.5)
	v.SetDefault("candidates", 1)
	v.SetDefault("max_tokens", 1024)
	v.SetDefault("use_cache", true)
	v.SetDefault("cache_ttl_min", 60)
	v.SetDefault("summary_method", "default")
	// HTTP/retry defaults
	v.SetDefault("http_timeout_sec", 60)
	v.SetDefault("retry_max_attempts", 3)
	v.SetDefault("retry_base_delay_ms", 500)
	v.SetDefault("retry_max_delay_ms", 4000)
	// Ollama defaults
	v.SetDefault("ollama_host", "http://127.0.0.1:11434")
	v.SetDefault("ollama_timeout_sec", 60)
	// Server defaults
	v.SetDefault("server_addr", ":8501")
	v.SetDefault("max_upload_mb", 200)
	v.SetDefault("session_ttl_min", 60)
	v.SetDefault("cors_origins", []string{})
	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	// Rendering defaults
	v.SetDefault("chart_width", 1200)
	v.SetDefault("chart_height", 800)
	v.SetDefault("heatmap_size", 800)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")

	// Config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := configDir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read
	_ = v.ReadInConfig()

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate rejects values that would make the server or renderers misbehave.
func (c *Global) Validate() error {
	if c.Candidates < 1 {
		return fmt.Errorf("candidates must be >= 1 (got %d)", c.Candidates)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be within [0, 2] (got %.2f)", c.Temperature)
	}
	if c.ChartWidth <= 0 || c.ChartHeight <= 0 {
		return fmt.Errorf("chart size must be positive (got %dx%d)", c.ChartWidth, c.ChartHeight)
	}
	if c.HeatmapSize <= 0 {
		return fmt.Errorf("heatmap_size must be positive (got %d)", c.HeatmapSize)
	}
	switch c.SummaryMethod {
	case "default", "llm":
	default:
		return fmt.Errorf("invalid summary_method: %s (use default or llm)", c.SummaryMethod)
	}
	return nil
}

func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".datastatx"), nil
}
