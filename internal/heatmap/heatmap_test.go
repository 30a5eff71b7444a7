package heatmap

import (
	"bytes"
	"errors"
	"image/png"
	"math"
	"testing"

	"github.com/AyushAagrwal/DataStatX/internal/analysis"
)

func sampleMatrix() *analysis.CorrMatrix {
	return &analysis.CorrMatrix{
		Columns: []string{"a", "b", "c"},
		Values: [][]float64{
			{1, 0.5, -0.25},
			{0.5, 1, math.NaN()},
			{-0.25, math.NaN(), 1},
		},
	}
}

func TestRenderSize(t *testing.T) {
	b, err := Render(sampleMatrix(), DefaultOptions())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	if got := img.Bounds().Dx(); got != 800 {
		t.Fatalf("width = %d, want 800", got)
	}
	if got := img.Bounds().Dy(); got != 800 {
		t.Fatalf("height = %d, want 800", got)
	}
}

func TestRenderCustomSizeWithoutLabels(t *testing.T) {
	b, err := Render(sampleMatrix(), Options{Width: 400, Height: 300})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("decode config: %v", err)
	}
	if cfg.Width != 400 || cfg.Height != 300 {
		t.Fatalf("size = %dx%d", cfg.Width, cfg.Height)
	}
}

func TestGridFlipsRows(t *testing.T) {
	g := grid{m: sampleMatrix()}
	if g.Z(0, 2) != 1 || g.Z(2, 0) != 1 {
		t.Fatalf("diagonal should run from top-left to bottom-right")
	}
	if g.Z(1, 2) != 0.5 {
		t.Fatalf("Z(1,2) = %v", g.Z(1, 2))
	}
}

func TestRenderEmpty(t *testing.T) {
	if _, err := Render(&analysis.CorrMatrix{}, DefaultOptions()); !errors.Is(err, ErrEmptyMatrix) {
		t.Fatalf("err = %v", err)
	}
}
