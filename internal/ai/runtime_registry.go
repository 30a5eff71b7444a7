package ai

import (
	"strings"
	"time"
)

// RuntimeFactory builds a Runtime from the generic config below.
type RuntimeFactory func(RuntimeConfig) Runtime

// RuntimeConfig carries common knobs used by runtimes.
type RuntimeConfig struct {
	// Common
	HTTPTimeout time.Duration
	RetryMax    int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// OpenAI-compatible
	APIKey  string
	BaseURL string
	// Ollama
	Host string
}

var registry = map[string]RuntimeFactory{}

// RegisterRuntime registers a provider name with its factory.
func RegisterRuntime(name string, f RuntimeFactory) { registry[name] = f }

// GetRuntime creates a Runtime for the given provider if registered.
func GetRuntime(name string, cfg RuntimeConfig) (Runtime, bool) {
	if f, ok := registry[strings.ToLower(strings.TrimSpace(name))]; ok {
		return f(cfg), true
	}
	return nil, false
}

func (c RuntimeConfig) backoff() Backoff {
	return Backoff{MaxAttempts: c.RetryMax, Base: c.BaseDelay, Max: c.MaxDelay}
}

func openAICompatible(defaultURL string) RuntimeFactory {
	return func(c RuntimeConfig) Runtime {
		url := c.BaseURL
		if url == "" {
			url = defaultURL
		}
		return NewClient(c.APIKey, url, c.HTTPTimeout, c.backoff())
	}
}

// init registers built-in runtimes.
func init() {
	RegisterRuntime(ProviderOpenAI, openAICompatible(DefaultOpenAIBaseURL))
	RegisterRuntime(ProviderOpenRouter, openAICompatible(DefaultOpenRouterBaseURL))
	ollama := func(c RuntimeConfig) Runtime {
		return NewOllamaClient(c.Host, c.HTTPTimeout, c.backoff())
	}
	RegisterRuntime(ProviderOllama, ollama)
	RegisterRuntime(ProviderLocal, ollama)
}
