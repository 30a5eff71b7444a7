package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/AyushAagrwal/DataStatX/internal/ai"
	"github.com/AyushAagrwal/DataStatX/internal/analysis"
	"github.com/AyushAagrwal/DataStatX/internal/bridge"
	cfgpkg "github.com/AyushAagrwal/DataStatX/internal/config"
	"github.com/AyushAagrwal/DataStatX/internal/store"
	"github.com/AyushAagrwal/DataStatX/internal/summarize"
	"github.com/AyushAagrwal/DataStatX/internal/viz"
)

type runtimeOptions struct {
	ProviderFlag string
	OllamaHost   string
}

// buildRuntime picks the language-model runtime from flags, env and config.
func buildRuntime(cfg *cfgpkg.Global, opts runtimeOptions) (ai.Runtime, string, error) {
	httpTimeout := 60 * time.Second
	retryMax := 3
	baseDelay := 500 * time.Millisecond
	maxDelay := 4 * time.Second
	if cfg != nil {
		if cfg.HTTPTimeoutSec > 0 {
			httpTimeout = time.Duration(cfg.HTTPTimeoutSec) * time.Second
		}
		if cfg.RetryMaxAttempts > 0 {
			retryMax = cfg.RetryMaxAttempts
		}
		if cfg.RetryBaseDelayMs > 0 {
			baseDelay = time.Duration(cfg.RetryBaseDelayMs) * time.Millisecond
		}
		if cfg.RetryMaxDelayMs > 0 {
			maxDelay = time.Duration(cfg.RetryMaxDelayMs) * time.Millisecond
		}
	}

	providerName := strings.ToLower(strings.TrimSpace(opts.ProviderFlag))
	if providerName == "" && cfg != nil && cfg.DefaultProvider != "" {
		providerName = strings.ToLower(cfg.DefaultProvider)
	}
	if providerName == "" {
		providerName = ai.ProviderOpenAI
	}
	if providerName == ai.ProviderLocal {
		providerName = ai.ProviderOllama
	}

	apiKey := os.Getenv("OPENAI_API_KEY")
	if providerName == ai.ProviderOpenRouter {
		if v := os.Getenv("OPENROUTER_API_KEY"); v != "" {
			apiKey = v
		}
	}
	if apiKey == "" && cfg != nil {
		apiKey = cfg.APIKey
	}

	rc := ai.RuntimeConfig{
		HTTPTimeout: httpTimeout,
		RetryMax:    retryMax,
		BaseDelay:   baseDelay,
		MaxDelay:    maxDelay,
		APIKey:      apiKey,
	}
	if cfg != nil {
		rc.BaseURL = cfg.BaseURL
	}

	if providerName == ai.ProviderOllama {
		host := strings.TrimSpace(opts.OllamaHost)
		if host == "" {
			host = os.Getenv("DATASTATX_OLLAMA_HOST")
		}
		if host == "" && cfg != nil && cfg.OllamaHost != "" {
			host = cfg.OllamaHost
		}
		if host == "" {
			host = "http://127.0.0.1:11434"
		}
		rc.Host = host
		if v := os.Getenv("DATASTATX_OLLAMA_TIMEOUT_SEC"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				rc.HTTPTimeout = time.Duration(n) * time.Second
			}
		}
		if cfg != nil && cfg.OllamaTimeoutSec > 0 {
			rc.HTTPTimeout = time.Duration(cfg.OllamaTimeoutSec) * time.Second
		}
	}

	client, ok := ai.GetRuntime(providerName, rc)
	if !ok {
		return nil, providerName, fmt.Errorf("provider not supported: %s", providerName)
	}
	return client, providerName, nil
}

// openStore opens the configured session/cache store.
func openStore(ctx context.Context, cfg *cfgpkg.Global) (store.Store, error) {
	return store.Open(ctx, store.Options{
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		RedisDB:       cfg.RedisDB,
		DefaultTTL:    cfg.SessionTTL(),
	})
}

// textGenConfig is the configured generation config with non-zero overrides applied.
func textGenConfig(cfg *cfgpkg.Global, model string, n int, temperature float64, tempSet bool) ai.TextGenConfig {
	if model == "" {
		model = cfg.DefaultModel
	}
	tg := ai.DefaultTextGenConfig(model)
	tg.N = cfg.Candidates
	tg.Temperature = cfg.Temperature
	tg.MaxTokens = cfg.MaxTokens
	tg.UseCache = cfg.UseCache
	if n > 0 {
		tg.N = n
	}
	if tempSet {
		tg.Temperature = temperature
	}
	return tg
}

type pipelineOptions struct {
	Runtime runtimeOptions
	Method  string
	TextGen ai.TextGenConfig
}

// newBridge wires runtime, response cache, summarizer and chart generator.
func newBridge(cfg *cfgpkg.Global, st store.Store, log *logrus.Logger, opts pipelineOptions) (*bridge.Bridge, error) {
	rt, provider, err := buildRuntime(cfg, opts.Runtime)
	if err != nil {
		return nil, err
	}
	method, err := summarize.ParseMethod(opts.Method)
	if err != nil {
		return nil, err
	}
	var cache ai.ResponseCache
	if st != nil && opts.TextGen.UseCache {
		cache = st
	}
	llm := ai.NewTextGenerator(rt, cache, cfg.CacheTTL())
	log.WithFields(logrus.Fields{
		"provider": provider,
		"model":    opts.TextGen.Model,
		"method":   method,
		"cache":    cache != nil,
	}).Debug("Language model configured")
	return bridge.New(
		summarize.New(llm, log),
		viz.NewGenerator(llm, log, cfg.ChartWidth, cfg.ChartHeight),
		bridge.Config{Method: method, TextGen: opts.TextGen, Width: cfg.ChartWidth, Height: cfg.ChartHeight},
		log,
	), nil
}

// csvOptions maps the --delimiter/--decimal/--thousands flags.
func csvOptions(delimiter, decimal, thousands string, maxRows int) (analysis.Options, error) {
	opt := analysis.DefaultOptions()
	if maxRows > 0 {
		opt.MaxRows = maxRows
	}
	switch delimiter {
	case "":
	case ",":
		opt.Delimiter = ','
	case "\t", "tab":
		opt.Delimiter = '\t'
	case ";":
		opt.Delimiter = ';'
	case "|":
		opt.Delimiter = '|'
	default:
		return opt, fmt.Errorf("unsupported --delimiter: %s", delimiter)
	}
	switch strings.ToLower(strings.TrimSpace(decimal)) {
	case ",", "comma":
		opt.DecimalSeparator = ','
	case ".", "dot":
		opt.DecimalSeparator = '.'
	case "":
	default:
		return opt, fmt.Errorf("unsupported --decimal: %s (use '.'|'comma')", decimal)
	}
	switch strings.ToLower(strings.TrimSpace(thousands)) {
	case ",":
		opt.ThousandsSeparator = ','
	case ".":
		opt.ThousandsSeparator = '.'
	case "space", " ":
		opt.ThousandsSeparator = ' '
	case "":
	default:
		return opt, fmt.Errorf("unsupported --thousands: %s (use ','|'.'|'space')", thousands)
	}
	return opt, nil
}

// explainProviderError adds an actionable hint to language-model failures.
func explainProviderError(err error, provider string) error {
	var (
		authErr *ai.AuthError
		rlErr   *ai.RateLimitError
		nfErr   *ai.ModelNotFoundError
		qErr    *ai.QuotaExceededError
		sErr    *ai.ServerError
		unreach *ai.UnreachableError
	)
	switch {
	case errors.As(err, &unreach):
		if provider == ai.ProviderOllama {
			return fmt.Errorf("Ollama not reachable at %s. Ensure Ollama is running and the host is correct (config 'ollama_host'): %w", unreach.Host, err)
		}
		return fmt.Errorf("endpoint unreachable. Check your network and provider settings: %w", err)
	case errors.As(err, &authErr):
		return fmt.Errorf("authentication failed: set OPENAI_API_KEY or add api_key in ~/.datastatx/config.yaml: %w", err)
	case errors.As(err, &rlErr):
		if rlErr.RetryAfter > 0 {
			return fmt.Errorf("rate limited, try again in ~%ds: %w", int(rlErr.RetryAfter.Seconds()), err)
		}
		return fmt.Errorf("rate limited by provider, please retry: %w", err)
	case errors.As(err, &nfErr):
		return fmt.Errorf("model not found. Verify the model name with --model or 'datastatx config set default_model': %w", err)
	case errors.As(err, &qErr):
		return fmt.Errorf("quota/billing issue. Check your provider account: %w", err)
	case errors.As(err, &sErr):
		return fmt.Errorf("provider appears unavailable (server error). Please retry later: %w", err)
	}
	return err
}
