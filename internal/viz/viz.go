// Package viz turns a natural-language goal into rendered chart candidates.
// The language model picks the chart; the series are computed locally from
// the dataset and drawn with go-chart.
package viz

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/wcharczuk/go-chart/v2"
	"golang.org/x/sync/errgroup"

	"github.com/AyushAagrwal/DataStatX/internal/ai"
	"github.com/AyushAagrwal/DataStatX/internal/analysis"
	"github.com/AyushAagrwal/DataStatX/internal/summarize"
)

const (
	DefaultWidth  = 1200
	DefaultHeight = 800

	// Library is reported on every candidate.
	Library = "go-chart"

	renderWorkers = 4
)

// ErrNoValidChart is returned when no spec in the model reply could be rendered.
var ErrNoValidChart = errors.New("no valid chart could be generated")

// Chart is one rendered candidate.
type Chart struct {
	Spec    Spec   `json:"spec"`
	Library string `json:"library"`
	// Raster is the PNG image encoded as standard base64.
	Raster string `json:"raster"`
	// Code is the normalized spec as JSON.
	Code string `json:"code"`
}

// PNG decodes the raster.
func (c Chart) PNG() ([]byte, error) {
	return base64.StdEncoding.DecodeString(c.Raster)
}

// Generator asks a Completer for chart specs and renders them.
type Generator struct {
	llm    summarize.Completer
	log    *logrus.Logger
	width  int
	height int
}

// NewGenerator returns a Generator drawing width×height charts. Zero sizes
// fall back to DefaultWidth×DefaultHeight.
func NewGenerator(llm summarize.Completer, log *logrus.Logger, width, height int) *Generator {
	if log == nil {
		log = logrus.New()
		log.SetLevel(logrus.PanicLevel)
	}
	if width <= 0 || height <= 0 {
		width, height = DefaultWidth, DefaultHeight
	}
	return &Generator{llm: llm, log: log, width: width, height: height}
}

// Visualize returns candidates in the order the model produced them: all
// specs of choice 0 first, then choice 1, and so on. Specs that reference
// unknown columns or cannot be drawn are skipped.
func (g *Generator) Visualize(ctx context.Context, ds *analysis.Dataset, sum *summarize.Summary, goal string, cfg ai.TextGenConfig) ([]Chart, error) {
	if strings.TrimSpace(goal) == "" {
		return nil, errors.New("visualize: empty goal")
	}
	if ds == nil || sum == nil {
		return nil, errors.New("visualize: dataset and summary are required")
	}
	n := cfg.N
	if n < 1 {
		n = 1
	}
	resp, err := g.llm.Complete(ctx, cfg, messages(sum, goal, n))
	if err != nil {
		return nil, fmt.Errorf("visualize: %w", err)
	}

	type slot struct {
		choice, index int
		raw           Spec
		chart         Chart
		err           error
	}
	var (
		slots    []*slot
		firstErr error
	)
	for ci, choice := range resp.Choices {
		specs, err := ParseSpecs(choice.Message.Content)
		if err != nil {
			g.log.WithFields(logrus.Fields{"choice": ci, "error": err}).Warn("Discarding unparsable chart reply")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		for si, raw := range specs {
			slots = append(slots, &slot{choice: ci, index: si, raw: raw})
		}
	}

	// Load the shared font once before rendering in parallel.
	if _, err := chart.GetDefaultFont(); err != nil {
		return nil, fmt.Errorf("visualize: load font: %w", err)
	}
	var eg errgroup.Group
	eg.SetLimit(renderWorkers)
	for _, sl := range slots {
		sl := sl
		eg.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					sl.err = fmt.Errorf("render %s chart: %v", sl.raw.Type, r)
				}
			}()
			sl.chart, sl.err = g.render(ds, sl.raw)
			return nil
		})
	}
	_ = eg.Wait()

	var charts []Chart
	for _, sl := range slots {
		if sl.err != nil {
			g.log.WithFields(logrus.Fields{"choice": sl.choice, "spec": sl.index, "type": sl.raw.Type, "error": sl.err}).Warn("Skipping chart spec")
			if firstErr == nil {
				firstErr = sl.err
			}
			continue
		}
		charts = append(charts, sl.chart)
	}
	if len(charts) == 0 {
		if firstErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrNoValidChart, firstErr)
		}
		return nil, ErrNoValidChart
	}
	g.log.WithFields(logrus.Fields{"candidates": len(charts), "goal": goal}).Debug("Charts generated")
	return charts, nil
}

func (g *Generator) render(ds *analysis.Dataset, raw Spec) (Chart, error) {
	s, err := raw.Normalize(ds)
	if err != nil {
		return Chart{}, err
	}
	png, err := Render(ds, s, g.width, g.height)
	if err != nil {
		return Chart{}, err
	}
	code, err := json.Marshal(s)
	if err != nil {
		return Chart{}, err
	}
	return Chart{
		Spec:    s,
		Library: Library,
		Raster:  base64.StdEncoding.EncodeToString(png),
		Code:    string(code),
	}, nil
}
