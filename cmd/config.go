package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AyushAagrwal/DataStatX/internal/ai"
	cfgpkg "github.com/AyushAagrwal/DataStatX/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set DataStatX configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			fmt.Println("No config loaded")
			return nil
		}
		fmt.Printf("api_key: %s\n", mask(cfg.APIKey))
		fmt.Printf("default_provider: %s\n", cfg.DefaultProvider)
		fmt.Printf("default_model: %s\n", cfg.DefaultModel)
		if cfg.BaseURL != "" {
			fmt.Printf("base_url: %s\n", cfg.BaseURL)
		}
		fmt.Printf("temperature: %.3f\n", cfg.Temperature)
		fmt.Printf("candidates: %d\n", cfg.Candidates)
		fmt.Printf("max_tokens: %d\n", cfg.MaxTokens)
		fmt.Printf("summary_method: %s\n", cfg.SummaryMethod)
		fmt.Printf("use_cache: %t (ttl %dm)\n", cfg.UseCache, cfg.CacheTTLMin)
		fmt.Printf("server_addr: %s\n", cfg.ServerAddr)
		fmt.Printf("max_upload_mb: %d\n", cfg.MaxUploadMB)
		fmt.Printf("session_ttl_min: %d\n", cfg.SessionTTLMin)
		if cfg.RedisAddr != "" {
			fmt.Printf("redis_addr: %s (db %d)\n", cfg.RedisAddr, cfg.RedisDB)
		} else {
			fmt.Println("redis_addr: (in-memory store)")
		}
		fmt.Printf("chart_size: %dx%d\n", cfg.ChartWidth, cfg.ChartHeight)
		fmt.Printf("heatmap_size: %d\n", cfg.HeatmapSize)
		fmt.Printf("log_level: %s\n", cfg.LogLevel)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		if err := applyConfigValue(cfg, key, val); err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return err
		}
		fmt.Println("Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func applyConfigValue(c *cfgpkg.Global, key, val string) error {
	atoi := func() (int, error) {
		i, err := strconv.Atoi(val)
		if err != nil || i < 0 {
			return 0, fmt.Errorf("invalid int for %s: %v", key, val)
		}
		return i, nil
	}
	var err error
	switch key {
	case "api_key":
		c.APIKey = val
	case "default_model":
		c.DefaultModel = val
	case "default_provider":
		switch strings.ToLower(val) {
		case ai.ProviderOpenAI:
			c.DefaultProvider = ai.ProviderOpenAI
		case ai.ProviderOpenRouter:
			c.DefaultProvider = ai.ProviderOpenRouter
		case ai.ProviderOllama, ai.ProviderLocal:
			c.DefaultProvider = ai.ProviderOllama
		default:
			return fmt.Errorf("invalid default_provider: %s (use openai, openrouter or ollama)", val)
		}
	case "base_url":
		c.BaseURL = val
	case "ollama_host":
		c.OllamaHost = val
	case "summary_method":
		c.SummaryMethod = strings.ToLower(val)
	case "temperature":
		f, perr := strconv.ParseFloat(val, 64)
		if perr != nil {
			return fmt.Errorf("invalid float for temperature: %w", perr)
		}
		c.Temperature = f
	case "use_cache":
		b, perr := strconv.ParseBool(val)
		if perr != nil {
			return fmt.Errorf("invalid bool for use_cache: %w", perr)
		}
		c.UseCache = b
	case "candidates":
		c.Candidates, err = atoi()
	case "max_tokens":
		c.MaxTokens, err = atoi()
	case "cache_ttl_min":
		c.CacheTTLMin, err = atoi()
	case "server_addr":
		c.ServerAddr = val
	case "max_upload_mb":
		c.MaxUploadMB, err = atoi()
	case "session_ttl_min":
		c.SessionTTLMin, err = atoi()
	case "redis_addr":
		c.RedisAddr = val
	case "redis_db":
		c.RedisDB, err = atoi()
	case "chart_width":
		c.ChartWidth, err = atoi()
	case "chart_height":
		c.ChartHeight, err = atoi()
	case "heatmap_size":
		c.HeatmapSize, err = atoi()
	case "log_level":
		c.LogLevel = val
	case "log_format":
		c.LogFormat = val
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return err
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 6 {
		return "******"
	}
	return s[:3] + "****" + s[len(s)-3:]
}
