package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("OPENAI_API_KEY", "sk-test-123")

	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.APIKey != "sk-test-123" {
		t.Fatalf("api key = %q, want value from OPENAI_API_KEY", c.APIKey)
	}
	if c.Candidates != 1 || c.Temperature != 0.5 || !c.UseCache {
		t.Fatalf("unexpected text generation defaults: %+v", c)
	}
	if c.ChartWidth != 1200 || c.ChartHeight != 800 {
		t.Fatalf("chart size = %dx%d, want 1200x800", c.ChartWidth, c.ChartHeight)
	}
	if c.SummaryMethod != "default" {
		t.Fatalf("summary method = %q", c.SummaryMethod)
	}
}

func TestSaveAndReload(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.yaml")

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	c.DefaultModel = "gpt-4o-mini"
	c.Candidates = 3
	if err := Save(c, path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config not written: %v", err)
	}
	again, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if again.DefaultModel != "gpt-4o-mini" || again.Candidates != 3 {
		t.Fatalf("reloaded config = %+v", again)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name string
		mut  func(*Global)
	}{
		{"candidates", func(g *Global) { g.Candidates = 0 }},
		{"temperature", func(g *Global) { g.Temperature = 3 }},
		{"chart size", func(g *Global) { g.ChartWidth = 0 }},
		{"summary method", func(g *Global) { g.SummaryMethod = "fancy" }},
	}
	for _, tc := range cases {
		g := Global{Candidates: 1, Temperature: 0.5, ChartWidth: 1, ChartHeight: 1, HeatmapSize: 1, SummaryMethod: "default"}
		tc.mut(&g)
		if err := g.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}
