// Package heatmap renders a correlation matrix as a PNG heatmap.
package heatmap

import (
	"bytes"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"

	"github.com/AyushAagrwal/DataStatX/internal/analysis"
)

// ErrEmptyMatrix is returned for a matrix without columns.
var ErrEmptyMatrix = errors.New("correlation matrix is empty")

// Options controls the rendered image.
type Options struct {
	// Width and Height in pixels.
	Width, Height int
	Title         string
	// Annotate prints the coefficient in every cell.
	Annotate bool
}

// DefaultOptions renders an 800x800 annotated heatmap.
func DefaultOptions() Options {
	return Options{Width: 800, Height: 800, Title: "Correlation Heatmap", Annotate: true}
}

// pixels to points at the 96 DPI used by the PNG backend.
const pxToPt = 72.0 / 96.0

// grid adapts a correlation matrix to plotter.GridXYZ with the first column
// drawn at the top row.
type grid struct {
	m *analysis.CorrMatrix
}

func (g grid) Dims() (c, r int)   { n := len(g.m.Columns); return n, n }
func (g grid) X(c int) float64    { return float64(c) }
func (g grid) Y(r int) float64    { return float64(r) }
func (g grid) Z(c, r int) float64 { return g.m.Values[len(g.m.Columns)-1-r][c] }

// Render draws m as a diverging blue/red heatmap fixed to [-1, 1].
func Render(m *analysis.CorrMatrix, opt Options) ([]byte, error) {
	if m == nil || len(m.Columns) == 0 {
		return nil, ErrEmptyMatrix
	}
	if opt.Width <= 0 || opt.Height <= 0 {
		d := DefaultOptions()
		opt.Width, opt.Height = d.Width, d.Height
	}
	n := len(m.Columns)
	g := grid{m: m}

	cmap := moreland.SmoothBlueRed()
	cmap.SetMin(-1)
	cmap.SetMax(1)
	hm := plotter.NewHeatMap(g, cmap.Palette(255))
	hm.Min, hm.Max = -1, 1

	p := plot.New()
	p.Title.Text = opt.Title
	p.Add(hm)

	xt := make([]plot.Tick, n)
	yt := make([]plot.Tick, n)
	for i, name := range m.Columns {
		xt[i] = plot.Tick{Value: float64(i), Label: name}
		yt[i] = plot.Tick{Value: float64(n - 1 - i), Label: name}
	}
	p.X.Tick.Marker = plot.ConstantTicks(xt)
	p.Y.Tick.Marker = plot.ConstantTicks(yt)
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = text.XRight
	p.X.Tick.Label.YAlign = text.YCenter
	p.X.Min, p.X.Max = -0.5, float64(n)-0.5
	p.Y.Min, p.Y.Max = -0.5, float64(n)-0.5

	if opt.Annotate {
		labels, err := cellLabels(g)
		if err != nil {
			return nil, err
		}
		p.Add(labels)
	}

	w, err := p.WriterTo(vg.Length(float64(opt.Width)*pxToPt), vg.Length(float64(opt.Height)*pxToPt), "png")
	if err != nil {
		return nil, fmt.Errorf("failed to create plot writer: %w", err)
	}
	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write plot to buffer: %w", err)
	}
	return buf.Bytes(), nil
}

func cellLabels(g grid) (*plotter.Labels, error) {
	c, r := g.Dims()
	var xyl plotter.XYLabels
	for i := 0; i < c; i++ {
		for j := 0; j < r; j++ {
			z := g.Z(i, j)
			if math.IsNaN(z) {
				continue
			}
			xyl.XYs = append(xyl.XYs, plotter.XY{X: g.X(i), Y: g.Y(j)})
			xyl.Labels = append(xyl.Labels, fmt.Sprintf("%.2f", z))
		}
	}
	if len(xyl.XYs) == 0 {
		return &plotter.Labels{}, nil
	}
	labels, err := plotter.NewLabels(xyl)
	if err != nil {
		return nil, fmt.Errorf("cell labels: %w", err)
	}
	for i := range labels.TextStyle {
		labels.TextStyle[i].XAlign = text.XCenter
		labels.TextStyle[i].YAlign = text.YCenter
	}
	return labels, nil
}
