package ai

import (
	"context"
	"time"
)

// TextGenConfig are the per-call generation knobs.
type TextGenConfig struct {
	N           int
	Temperature float64
	Model       string
	MaxTokens   int
	UseCache    bool
}

// DefaultTextGenConfig asks for one candidate at temperature 0.5 with caching on.
func DefaultTextGenConfig(model string) TextGenConfig {
	return TextGenConfig{N: 1, Temperature: 0.5, Model: model, MaxTokens: 1024, UseCache: true}
}

// TextGenerator sends chat prompts to a runtime, optionally through a response cache.
type TextGenerator struct {
	rt     Runtime
	cached Runtime
}

// NewTextGenerator wraps rt. cache may be nil to disable caching entirely.
func NewTextGenerator(rt Runtime, cache ResponseCache, ttl time.Duration) *TextGenerator {
	g := &TextGenerator{rt: rt, cached: rt}
	if cache != nil {
		g.cached = NewCachedRuntime(rt, cache, ttl)
	}
	return g
}

// Complete runs one chat completion with cfg applied.
func (g *TextGenerator) Complete(ctx context.Context, cfg TextGenConfig, messages []Message) (*GenerateResponse, error) {
	n := cfg.N
	if n <= 0 {
		n = 1
	}
	req := GenerateRequest{
		Model:       cfg.Model,
		Messages:    messages,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
	}
	if n > 1 {
		req.N = n
	}
	if cfg.UseCache {
		return g.cached.Generate(ctx, req)
	}
	return g.rt.Generate(ctx, req)
}
