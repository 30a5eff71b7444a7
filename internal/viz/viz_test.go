package viz

import (
	"bytes"
	"context"
	"errors"
	"image"
	_ "image/png"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/AyushAagrwal/DataStatX/internal/ai"
	"github.com/AyushAagrwal/DataStatX/internal/analysis"
	"github.com/AyushAagrwal/DataStatX/internal/summarize"
)

const salesCSV = `region,month,units,price
North,2024-01-01,10,2.5
South,2024-01-01,4,3
North,2024-02-01,6,2.5
East,2024-02-01,8,4
South,2024-03-01,12,3
North,2024-03-01,,2
`

func sales(t *testing.T) *analysis.Dataset {
	t.Helper()
	ds, err := analysis.Parse("sales.csv", strings.NewReader(salesCSV), analysis.DefaultOptions())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return ds
}

type scriptedLLM struct {
	replies []string
	err     error
	calls   int
}

func (s *scriptedLLM) Complete(_ context.Context, _ ai.TextGenConfig, _ []ai.Message) (*ai.GenerateResponse, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	resp := &ai.GenerateResponse{}
	for i, r := range s.replies {
		resp.Choices = append(resp.Choices, ai.Choice{Index: i, Message: ai.Message{Role: "assistant", Content: r}})
	}
	return resp, nil
}

func quiet() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestParseSpecs(t *testing.T) {
	cases := []struct {
		name  string
		reply string
		want  int
	}{
		{"array in fence", "Here you go:\n```json\n[{\"type\":\"bar\",\"x\":\"region\",\"y\":\"units\"}]\n```", 1},
		{"wrapper", `{"charts":[{"type":"bar","x":"region"},{"type":"pie","x":"region"}]}`, 2},
		{"single object", `{"type":"histogram","x":"units"}`, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			specs, err := ParseSpecs(tc.reply)
			if err != nil {
				t.Fatalf("ParseSpecs: %v", err)
			}
			if len(specs) != tc.want {
				t.Fatalf("got %d specs, want %d", len(specs), tc.want)
			}
		})
	}
	if _, err := ParseSpecs("I cannot draw that."); !errors.Is(err, ErrNoSpecs) {
		t.Fatalf("prose reply: got %v", err)
	}
	if _, err := ParseSpecs("  "); !errors.Is(err, ErrNoSpecs) {
		t.Fatalf("blank reply: got %v", err)
	}
	if _, err := ParseSpecs("[]"); !errors.Is(err, ErrNoSpecs) {
		t.Fatalf("empty array: got %v", err)
	}
}

func TestNormalize(t *testing.T) {
	ds := sales(t)
	s, err := Spec{Type: "Column", X: "REGION", Y: "units"}.Normalize(ds)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if s.Type != Bar || s.X != "region" || s.Aggregation != AggSum {
		t.Fatalf("normalized = %+v", s)
	}
	if s.Title != "sum of units by region" || s.YLabel != "units" {
		t.Fatalf("defaults = %q / %q", s.Title, s.YLabel)
	}

	line, err := Spec{Type: "line", X: "month", Y: "units"}.Normalize(ds)
	if err != nil || line.Aggregation != AggMean {
		t.Fatalf("line default aggregation = %v, %v", line.Aggregation, err)
	}
	count, err := Spec{Type: "pie", X: "region"}.Normalize(ds)
	if err != nil || count.Aggregation != AggCount || count.YLabel != "count" {
		t.Fatalf("pie without y = %+v, %v", count, err)
	}

	bad := []Spec{
		{Type: "radar", X: "region"},
		{Type: "bar", X: "city"},
		{Type: "histogram", X: "region"},
		{Type: "scatter", X: "region", Y: "units"},
		{Type: "bar", X: "region", Y: "month", Aggregation: "sum"},
		{Type: "bar", X: "region", Aggregation: "median"},
	}
	for _, b := range bad {
		if _, err := b.Normalize(ds); err == nil {
			t.Fatalf("expected error for %+v", b)
		}
	}
}

func TestCategories(t *testing.T) {
	ds := sales(t)
	norm := func(s Spec) Spec {
		t.Helper()
		n, err := s.Normalize(ds)
		if err != nil {
			t.Fatalf("Normalize: %v", err)
		}
		return n
	}

	sum, err := categories(ds, norm(Spec{Type: "bar", X: "region", Y: "units"}))
	if err != nil {
		t.Fatalf("categories: %v", err)
	}
	want := []category{{"North", 16}, {"South", 16}, {"East", 8}}
	if len(sum) != len(want) {
		t.Fatalf("got %v", sum)
	}
	for i := range want {
		if sum[i] != want[i] {
			t.Fatalf("sum[%d] = %v, want %v", i, sum[i], want[i])
		}
	}

	mean, _ := categories(ds, norm(Spec{Type: "bar", X: "region", Y: "units", Aggregation: "mean"}))
	if mean[0].Value != 8 {
		t.Fatalf("mean North = %v, want 8 (missing cell skipped)", mean[0].Value)
	}

	count, _ := categories(ds, norm(Spec{Type: "bar", X: "region", Sort: "desc", Limit: 1}))
	if len(count) != 1 || count[0] != (category{"North", 3}) {
		t.Fatalf("count desc limit 1 = %v", count)
	}
}

func TestLinePointsOrderedByDate(t *testing.T) {
	ds := sales(t)
	s, _ := Spec{Type: "line", X: "month", Y: "units", Aggregation: "sum"}.Normalize(ds)
	pts, err := points(ds, s)
	if err != nil {
		t.Fatalf("points: %v", err)
	}
	if len(pts) != 3 {
		t.Fatalf("got %d points", len(pts))
	}
	for i := 1; i < len(pts); i++ {
		if !pts[i-1].T.Before(pts[i].T) {
			t.Fatalf("points not ordered: %v", pts)
		}
	}
	if pts[0].Y != 14 || pts[1].Y != 14 || pts[2].Y != 12 {
		t.Fatalf("sums = %v %v %v", pts[0].Y, pts[1].Y, pts[2].Y)
	}
}

func TestHistogramBins(t *testing.T) {
	bins, err := histogram([]float64{1, 2, 3, 4, 5, 6, 7, 8})
	if err != nil {
		t.Fatalf("histogram: %v", err)
	}
	if len(bins) != 4 {
		t.Fatalf("got %d bins, want 4", len(bins))
	}
	total := 0
	for _, b := range bins {
		total += b.Count
	}
	if total != 8 || bins[3].Hi != 8 {
		t.Fatalf("bins = %+v", bins)
	}
	single, _ := histogram([]float64{5, 5, 5})
	if len(single) != 1 || single[0].Count != 3 {
		t.Fatalf("constant column bins = %+v", single)
	}
}

func TestRenderEveryType(t *testing.T) {
	ds := sales(t)
	specs := []Spec{
		{Type: "bar", X: "region", Y: "units"},
		{Type: "pie", X: "region", Y: "units"},
		{Type: "line", X: "month", Y: "units"},
		{Type: "scatter", X: "price", Y: "units"},
		{Type: "histogram", X: "units"},
	}
	for _, raw := range specs {
		t.Run(string(raw.Type), func(t *testing.T) {
			s, err := raw.Normalize(ds)
			if err != nil {
				t.Fatalf("Normalize: %v", err)
			}
			png, err := Render(ds, s, 640, 480)
			if err != nil {
				t.Fatalf("Render: %v", err)
			}
			cfg, format, err := image.DecodeConfig(bytes.NewReader(png))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if format != "png" || cfg.Width != 640 || cfg.Height != 480 {
				t.Fatalf("got %s %dx%d", format, cfg.Width, cfg.Height)
			}
		})
	}
}

func TestRenderRejectsOverflowingValues(t *testing.T) {
	ds, err := analysis.Parse("huge.csv", strings.NewReader("a,b,c\nx,1e308,1\nx,1e308,2\ny,1.7e308,3\n"), analysis.DefaultOptions())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	specs := []Spec{
		{Type: "bar", X: "a", Y: "b"},
		{Type: "bar", X: "a", Y: "b", Aggregation: AggMean},
		{Type: "bar", X: "c", Y: "b", Aggregation: AggNone},
		{Type: "pie", X: "a", Y: "b"},
		{Type: "line", X: "a", Y: "b"},
		{Type: "scatter", X: "c", Y: "b"},
	}
	for _, raw := range specs {
		t.Run(string(raw.Type)+"/"+string(raw.Aggregation), func(t *testing.T) {
			s, err := raw.Normalize(ds)
			if err != nil {
				t.Fatalf("Normalize: %v", err)
			}
			done := make(chan error, 1)
			go func() {
				_, err := Render(ds, s, 320, 240)
				done <- err
			}()
			select {
			case err := <-done:
				if err == nil {
					t.Fatalf("rendered an axis that cannot be drawn")
				}
			case <-time.After(10 * time.Second):
				t.Fatalf("Render did not return")
			}
		})
	}

	g := NewGenerator(&scriptedLLM{replies: []string{`[{"type":"bar","x":"a","y":"b"}]`}}, quiet(), 320, 240)
	if _, err := g.Visualize(context.Background(), ds, summarize.Base(ds), "total b per a", ai.TextGenConfig{}); !errors.Is(err, ErrNoValidChart) {
		t.Fatalf("got %v, want ErrNoValidChart", err)
	}
}

func TestVisualizeSkipsInvalidSpecs(t *testing.T) {
	ds := sales(t)
	sum := summarize.Base(ds)
	llm := &scriptedLLM{replies: []string{
		`[{"type":"bar","x":"city","y":"units"}]`,
		"```json\n[{\"type\":\"bar\",\"x\":\"region\",\"y\":\"units\",\"title\":\"Units by region\"}]\n```",
	}}
	g := NewGenerator(llm, quiet(), 0, 0)

	charts, err := g.Visualize(context.Background(), ds, sum, "total units per region", ai.TextGenConfig{N: 2})
	if err != nil {
		t.Fatalf("Visualize: %v", err)
	}
	if len(charts) != 1 {
		t.Fatalf("got %d charts", len(charts))
	}
	c := charts[0]
	if c.Library != Library || c.Spec.Title != "Units by region" || !strings.Contains(c.Code, `"x":"region"`) {
		t.Fatalf("chart = %+v", c.Spec)
	}
	png, err := c.PNG()
	if err != nil {
		t.Fatalf("raster: %v", err)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(png))
	if err != nil || cfg.Width != DefaultWidth || cfg.Height != DefaultHeight {
		t.Fatalf("raster %dx%d, %v", cfg.Width, cfg.Height, err)
	}
}

func TestVisualizeErrors(t *testing.T) {
	ds := sales(t)
	sum := summarize.Base(ds)

	g := NewGenerator(&scriptedLLM{replies: []string{`[{"type":"radar","x":"region"}]`}}, quiet(), 320, 240)
	if _, err := g.Visualize(context.Background(), ds, sum, "plot", ai.TextGenConfig{}); !errors.Is(err, ErrNoValidChart) {
		t.Fatalf("got %v, want ErrNoValidChart", err)
	}

	remote := &ai.RateLimitError{APIError: &ai.APIError{StatusCode: 429, Message: "slow down"}}
	llm := &scriptedLLM{err: remote}
	g = NewGenerator(llm, quiet(), 320, 240)
	_, err := g.Visualize(context.Background(), ds, sum, "plot", ai.TextGenConfig{})
	var rl *ai.RateLimitError
	if !errors.As(err, &rl) {
		t.Fatalf("provider error lost: %v", err)
	}

	llm = &scriptedLLM{}
	g = NewGenerator(llm, quiet(), 320, 240)
	if _, err := g.Visualize(context.Background(), ds, sum, "   ", ai.TextGenConfig{}); err == nil {
		t.Fatalf("empty goal accepted")
	}
	if llm.calls != 0 {
		t.Fatalf("empty goal reached the model")
	}
}

func TestPromptSummaryCompactsWideDatasets(t *testing.T) {
	sum := &summarize.Summary{Name: "wide"}
	long := strings.Repeat("x", 400)
	for i := 0; i < 60; i++ {
		sum.Fields = append(sum.Fields, summarize.Field{
			Column:     "c" + strings.Repeat("_", i%3),
			Properties: summarize.Properties{Dtype: "string", Samples: []string{long, long, long}, Description: long},
		})
	}
	if promptSummary(&summarize.Summary{Name: "small"}) != (&summarize.Summary{Name: "small"}).JSON() {
		t.Fatalf("small summaries are sent unchanged")
	}
	out := promptSummary(sum)
	if len(out) >= len(sum.JSON()) {
		t.Fatalf("summary not compacted")
	}
	if len(sum.Fields[0].Properties.Samples) != 3 {
		t.Fatalf("compaction mutated the caller's summary")
	}
}
