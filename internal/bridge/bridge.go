// Package bridge runs the query flow: summarize the dataset, ask for chart
// candidates, pick one and size it for display.
package bridge

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/image/draw"

	"github.com/AyushAagrwal/DataStatX/internal/ai"
	"github.com/AyushAagrwal/DataStatX/internal/analysis"
	"github.com/AyushAagrwal/DataStatX/internal/apperr"
	"github.com/AyushAagrwal/DataStatX/internal/summarize"
	"github.com/AyushAagrwal/DataStatX/internal/viz"
)

// ErrEmptyQuery is returned for blank queries before any model call.
var ErrEmptyQuery = apperr.Local(apperr.CodeEmptyQuery, "query is empty", nil)

// Summarizer describes a dataset.
type Summarizer interface {
	Summarize(ctx context.Context, ds *analysis.Dataset, method summarize.Method, cfg ai.TextGenConfig) (*summarize.Summary, error)
}

// Visualizer produces chart candidates for a goal.
type Visualizer interface {
	Visualize(ctx context.Context, ds *analysis.Dataset, sum *summarize.Summary, goal string, cfg ai.TextGenConfig) ([]viz.Chart, error)
}

// Config controls one Bridge.
type Config struct {
	Method  summarize.Method
	TextGen ai.TextGenConfig
	// Display size of the returned image.
	Width  int
	Height int
}

// Result is the chart shown for a query.
type Result struct {
	Query   string
	Chart   viz.Chart
	PNG     []byte
	Summary *summarize.Summary
	Elapsed time.Duration
}

// Bridge wires a Summarizer and a Visualizer together.
type Bridge struct {
	sum Summarizer
	viz Visualizer
	cfg Config
	log *logrus.Logger
}

// New returns a Bridge. Zero display sizes default to 1200x800.
func New(s Summarizer, v Visualizer, cfg Config, log *logrus.Logger) *Bridge {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		cfg.Width, cfg.Height = viz.DefaultWidth, viz.DefaultHeight
	}
	if cfg.Method == "" {
		cfg.Method = summarize.MethodDefault
	}
	if log == nil {
		log = logrus.New()
		log.SetLevel(logrus.PanicLevel)
	}
	return &Bridge{sum: s, viz: v, cfg: cfg, log: log}
}

// Generate answers query with a single chart. Every returned error is an
// *apperr.Error tagged as a remote service or local processing failure.
func (b *Bridge) Generate(ctx context.Context, ds *analysis.Dataset, query string) (*Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if ds == nil {
		return nil, apperr.Local(apperr.CodeNoDataset, "no dataset uploaded", nil)
	}
	start := time.Now()
	entry := b.log.WithFields(logrus.Fields{"dataset": ds.Name, "query": query})

	sum, err := b.sum.Summarize(ctx, ds, b.cfg.Method, b.cfg.TextGen)
	if err != nil {
		entry.WithError(err).Error("Summarization failed")
		return nil, apperr.Classify(err)
	}
	charts, err := b.viz.Visualize(ctx, ds, sum, query, b.cfg.TextGen)
	if err != nil {
		entry.WithError(err).Error("Chart generation failed")
		if apperr.IsRemote(err) {
			return nil, apperr.Remote(err)
		}
		return nil, apperr.Local(apperr.CodeNoChart, "", err)
	}
	if len(charts) == 0 {
		return nil, apperr.Local(apperr.CodeNoChart, "", viz.ErrNoValidChart)
	}
	chart := charts[0]
	raw, err := chart.PNG()
	if err != nil {
		return nil, apperr.Local(apperr.CodeInternal, "decode chart raster", err)
	}
	out, err := Resize(raw, b.cfg.Width, b.cfg.Height)
	if err != nil {
		return nil, apperr.Local(apperr.CodeInternal, "resize chart", err)
	}
	res := &Result{Query: query, Chart: chart, PNG: out, Summary: sum, Elapsed: time.Since(start)}
	entry.WithFields(logrus.Fields{
		"candidates": len(charts),
		"type":       chart.Spec.Type,
		"elapsed":    res.Elapsed.String(),
	}).Info("Chart generated")
	return res, nil
}

// Resize decodes an image and scales it to exactly width x height as PNG.
func Resize(raw []byte, width, height int) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	if b := src.Bounds(); b.Dx() == width && b.Dy() == height {
		return raw, nil
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
