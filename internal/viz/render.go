package viz

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"github.com/AyushAagrwal/DataStatX/internal/analysis"
)

// Render draws a normalized spec against ds and returns PNG bytes.
func Render(ds *analysis.Dataset, s Spec, width, height int) ([]byte, error) {
	if width <= 0 || height <= 0 {
		width, height = DefaultWidth, DefaultHeight
	}
	switch s.Type {
	case Bar:
		cats, err := categories(ds, s)
		if err != nil {
			return nil, err
		}
		return renderBars(s, cats, width, height)
	case Histogram:
		bins, err := histogram(ds.Float64s(ds.ColumnIndex(s.X)))
		if err != nil {
			return nil, err
		}
		cats := make([]category, len(bins))
		for i, b := range bins {
			cats[i] = category{Label: fmt.Sprintf("%s-%s", short(b.Lo), short(b.Hi)), Value: float64(b.Count)}
		}
		return renderBars(s, cats, width, height)
	case Pie:
		cats, err := categories(ds, s)
		if err != nil {
			return nil, err
		}
		return renderPie(s, cats, width, height)
	case Line, Scatter:
		pts, err := points(ds, s)
		if err != nil {
			return nil, err
		}
		isTime := s.Type == Line && ds.Kinds[ds.ColumnIndex(s.X)] == analysis.KindDatetime
		return renderXY(s, pts, isTime, width, height)
	}
	return nil, fmt.Errorf("unsupported chart type %q", s.Type)
}

func renderBars(s Spec, cats []category, width, height int) ([]byte, error) {
	lo, hi := 0.0, 0.0
	bars := make([]chart.Value, len(cats))
	for i, c := range cats {
		bars[i] = chart.Value{Label: c.Label, Value: c.Value}
		lo = math.Min(lo, c.Value)
		hi = math.Max(hi, c.Value)
	}
	if lo == hi {
		hi = 1
	}
	if !drawable(lo, hi) {
		return nil, fmt.Errorf("bar values span %s to %s, too wide to draw", short(lo), short(hi))
	}
	hi += (hi - lo) * 0.05

	barWidth := (width-160)/len(bars) - 10
	switch {
	case barWidth > 60:
		barWidth = 60
	case barWidth < 4:
		barWidth = 4
	}
	bc := chart.BarChart{
		Title:      s.Title,
		Width:      width,
		Height:     height,
		BarWidth:   barWidth,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20}},
		XAxis:      chart.Style{FontSize: 8},
		YAxis: chart.YAxis{
			Name:  s.YLabel,
			Range: &chart.ContinuousRange{Min: lo, Max: hi},
		},
		UseBaseValue: true,
		BaseValue:    0,
		Bars:         bars,
	}
	var buf bytes.Buffer
	if err := bc.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render bar chart: %w", err)
	}
	return buf.Bytes(), nil
}

func renderPie(s Spec, cats []category, width, height int) ([]byte, error) {
	var (
		vals  []chart.Value
		total float64
	)
	for _, c := range cats {
		if c.Value > 0 {
			total += c.Value
			vals = append(vals, chart.Value{Label: c.Label, Value: c.Value})
		}
	}
	if len(vals) == 0 {
		return nil, fmt.Errorf("pie chart needs at least one positive value")
	}
	if !finite(total) {
		return nil, fmt.Errorf("pie slices of %q sum out of range", s.Y)
	}
	pc := chart.PieChart{
		Title:  s.Title,
		Width:  width,
		Height: height,
		Values: vals,
	}
	var buf bytes.Buffer
	if err := pc.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render pie chart: %w", err)
	}
	return buf.Bytes(), nil
}

func renderXY(s Spec, pts []xyPoint, isTime bool, width, height int) ([]byte, error) {
	style := chart.Style{StrokeColor: chart.ColorBlue, StrokeWidth: 2}
	if s.Type == Scatter || len(pts) == 1 {
		style = chart.Style{StrokeWidth: chart.Disabled, DotWidth: 3, DotColor: chart.ColorBlue}
	}
	c := chart.Chart{
		Title:      s.Title,
		Width:      width,
		Height:     height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20}},
		XAxis:      chart.XAxis{Name: s.XLabel},
		YAxis:      chart.YAxis{Name: s.YLabel},
	}
	ys := make([]float64, len(pts))
	for i, p := range pts {
		ys[i] = p.Y
	}
	if lo, hi := span(ys); !drawable(lo, hi) {
		return nil, fmt.Errorf("%s values span %s to %s, too wide to draw", s.Y, short(lo), short(hi))
	}
	if !isTime {
		xs := make([]float64, len(pts))
		for i, p := range pts {
			xs[i] = p.X
		}
		if lo, hi := span(xs); !drawable(lo, hi) {
			return nil, fmt.Errorf("%s values span %s to %s, too wide to draw", s.X, short(lo), short(hi))
		}
	}
	switch {
	case isTime:
		xs := make([]time.Time, len(pts))
		for i, p := range pts {
			xs[i] = p.T
		}
		if len(xs) == 1 {
			xs = append(xs, xs[0].Add(24*time.Hour))
			ys = append(ys, ys[0])
		}
		c.XAxis.ValueFormatter = chart.TimeValueFormatter
		c.Series = []chart.Series{chart.TimeSeries{Name: s.YLabel, Style: style, XValues: xs, YValues: ys}}
	default:
		xs := make([]float64, len(pts))
		for i, p := range pts {
			xs[i] = p.X
		}
		if len(xs) == 1 {
			xs = append(xs, xs[0]+1)
			ys = append(ys, ys[0])
		}
		if pts[0].Name != "" && len(pts) <= defaultCategoryLimit {
			if ticks := labelTicks(pts); ticks != nil {
				c.XAxis.Ticks = ticks
			}
		}
		c.Series = []chart.Series{chart.ContinuousSeries{Name: s.YLabel, Style: style, XValues: xs, YValues: ys}}
	}
	if lo, hi := span(ys); lo == hi {
		c.YAxis.Range = &chart.ContinuousRange{Min: lo - 1, Max: hi + 1}
	}
	var buf bytes.Buffer
	if err := c.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render %s chart: %w", s.Type, err)
	}
	return buf.Bytes(), nil
}

// labelTicks names the X positions of a categorical line chart.
func labelTicks(pts []xyPoint) []chart.Tick {
	if len(pts) < 2 {
		return nil
	}
	ticks := make([]chart.Tick, len(pts))
	for i, p := range pts {
		ticks[i] = chart.Tick{Value: p.X, Label: p.Name}
	}
	return ticks
}

// drawable reports whether an axis over [lo, hi] stays finite once padded
// and divided into ticks.
func drawable(lo, hi float64) bool {
	return finite(lo) && finite(hi) && finite((hi-lo)*4) && finite(math.Abs(lo)*4) && finite(math.Abs(hi)*4)
}

func span(vals []float64) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range vals {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

func short(v float64) string {
	return strconv.FormatFloat(v, 'g', 4, 64)
}
