package viz

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/AyushAagrwal/DataStatX/internal/ai"
	"github.com/AyushAagrwal/DataStatX/internal/analysis"
)

// ChartType names a supported chart.
type ChartType string

const (
	Bar       ChartType = "bar"
	Line      ChartType = "line"
	Scatter   ChartType = "scatter"
	Pie       ChartType = "pie"
	Histogram ChartType = "histogram"
)

// Aggregation folds Y values sharing an X value.
type Aggregation string

const (
	AggSum   Aggregation = "sum"
	AggMean  Aggregation = "mean"
	AggCount Aggregation = "count"
	AggNone  Aggregation = "none"
)

// Spec is one chart as described by the model.
type Spec struct {
	Type        ChartType   `json:"type"`
	X           string      `json:"x"`
	Y           string      `json:"y,omitempty"`
	Aggregation Aggregation `json:"aggregation,omitempty"`
	Title       string      `json:"title,omitempty"`
	XLabel      string      `json:"x_label,omitempty"`
	YLabel      string      `json:"y_label,omitempty"`
	// Sort orders categories by value: "asc", "desc" or "" for data order.
	Sort  string `json:"sort,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

// ErrNoSpecs is returned when a model reply holds no chart specs.
var ErrNoSpecs = errors.New("model reply contains no chart specification")

var typeAliases = map[string]ChartType{
	"bar": Bar, "column": Bar, "barplot": Bar,
	"line": Line, "lineplot": Line,
	"scatter": Scatter, "scatterplot": Scatter, "point": Scatter,
	"pie": Pie, "donut": Pie,
	"histogram": Histogram, "hist": Histogram,
}

// ParseSpecs decodes a model reply holding a JSON array of specs or a single
// spec object, tolerating prose and code fences around it.
func ParseSpecs(reply string) ([]Spec, error) {
	raw := strings.TrimSpace(ai.ExtractJSON(reply))
	if !strings.HasPrefix(raw, "[") && !strings.HasPrefix(raw, "{") {
		return nil, ErrNoSpecs
	}
	var specs []Spec
	if strings.HasPrefix(raw, "[") {
		if err := json.Unmarshal([]byte(raw), &specs); err != nil {
			return nil, fmt.Errorf("decode chart specs: %w", err)
		}
	} else {
		var wrapper struct {
			Charts []Spec `json:"charts"`
		}
		if err := json.Unmarshal([]byte(raw), &wrapper); err == nil && len(wrapper.Charts) > 0 {
			specs = wrapper.Charts
		} else {
			var one Spec
			if err := json.Unmarshal([]byte(raw), &one); err != nil {
				return nil, fmt.Errorf("decode chart spec: %w", err)
			}
			specs = []Spec{one}
		}
	}
	if len(specs) == 0 {
		return nil, ErrNoSpecs
	}
	return specs, nil
}

// Normalize resolves aliases and column names against ds and fills defaults.
func (s Spec) Normalize(ds *analysis.Dataset) (Spec, error) {
	t, ok := typeAliases[strings.ToLower(strings.TrimSpace(string(s.Type)))]
	if !ok {
		return s, fmt.Errorf("unsupported chart type %q", s.Type)
	}
	s.Type = t
	xi := ds.ColumnIndex(s.X)
	if xi < 0 {
		return s, fmt.Errorf("unknown column %q", s.X)
	}
	s.X = ds.Header[xi]
	yi := -1
	if strings.TrimSpace(s.Y) != "" {
		yi = ds.ColumnIndex(s.Y)
		if yi < 0 {
			return s, fmt.Errorf("unknown column %q", s.Y)
		}
		s.Y = ds.Header[yi]
	} else {
		s.Y = ""
	}
	s.Aggregation = Aggregation(strings.ToLower(strings.TrimSpace(string(s.Aggregation))))
	switch s.Aggregation {
	case "", AggSum, AggMean, AggCount, AggNone:
	default:
		return s, fmt.Errorf("unsupported aggregation %q", s.Aggregation)
	}
	s.Sort = strings.ToLower(strings.TrimSpace(s.Sort))
	if s.Sort != "" && s.Sort != "asc" && s.Sort != "desc" {
		s.Sort = ""
	}
	numeric := func(i int) bool { return i >= 0 && ds.Kinds[i] == analysis.KindNumeric }

	switch s.Type {
	case Histogram:
		if !numeric(xi) {
			return s, fmt.Errorf("histogram needs a numeric column, %q is %s", s.X, ds.Kinds[xi])
		}
		s.Y, s.Aggregation = "", AggCount
	case Scatter:
		if !numeric(xi) || !numeric(yi) {
			return s, fmt.Errorf("scatter needs two numeric columns")
		}
		s.Aggregation = AggNone
	case Bar, Pie, Line:
		if s.Aggregation == "" {
			switch {
			case yi < 0:
				s.Aggregation = AggCount
			case s.Type == Line:
				s.Aggregation = AggMean
			default:
				s.Aggregation = AggSum
			}
		}
		if s.Aggregation != AggCount && !numeric(yi) {
			if yi < 0 {
				return s, fmt.Errorf("%s chart with %s aggregation needs a y column", s.Type, s.Aggregation)
			}
			return s, fmt.Errorf("%s chart needs a numeric y column, %q is %s", s.Type, s.Y, ds.Kinds[yi])
		}
	}
	if s.Title == "" {
		s.Title = s.defaultTitle()
	}
	if s.XLabel == "" {
		s.XLabel = s.X
	}
	if s.YLabel == "" {
		s.YLabel = s.Y
		if s.Aggregation == AggCount || s.Y == "" {
			s.YLabel = "count"
		}
	}
	return s, nil
}

func (s Spec) defaultTitle() string {
	switch {
	case s.Type == Histogram:
		return "Distribution of " + s.X
	case s.Aggregation == AggCount:
		return "Count by " + s.X
	case s.Type == Scatter, s.Aggregation == AggNone:
		return s.Y + " by " + s.X
	default:
		return fmt.Sprintf("%s of %s by %s", s.Aggregation, s.Y, s.X)
	}
}
