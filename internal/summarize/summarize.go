// Package summarize builds the compact dataset description that is handed to
// the language model as chart-generation context.
package summarize

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	"github.com/AyushAagrwal/DataStatX/internal/ai"
	"github.com/AyushAagrwal/DataStatX/internal/analysis"
)

// Method selects how much of the summary is written by the model.
type Method string

const (
	// MethodDefault derives every field locally.
	MethodDefault Method = "default"
	// MethodLLM additionally asks the model for dataset and field descriptions.
	MethodLLM Method = "llm"
)

// ParseMethod validates a method name; empty means default.
func ParseMethod(s string) (Method, error) {
	switch Method(strings.ToLower(strings.TrimSpace(s))) {
	case "", MethodDefault:
		return MethodDefault, nil
	case MethodLLM:
		return MethodLLM, nil
	}
	return "", fmt.Errorf("unknown summary method %q (want default or llm)", s)
}

const maxSamples = 3

// Properties describes one column.
type Properties struct {
	Dtype           string   `json:"dtype"`
	Std             *float64 `json:"std,omitempty"`
	Min             any      `json:"min,omitempty"`
	Max             any      `json:"max,omitempty"`
	Samples         []string `json:"samples"`
	NumUniqueValues int      `json:"num_unique_values"`
	Unit            string   `json:"unit,omitempty"`
	SemanticType    string   `json:"semantic_type"`
	Description     string   `json:"description"`
}

// Field is a named column with its properties.
type Field struct {
	Column     string     `json:"column"`
	Properties Properties `json:"properties"`
}

// Summary is the dataset description.
type Summary struct {
	Name               string   `json:"name"`
	FileName           string   `json:"file_name"`
	Rows               int      `json:"rows"`
	DatasetDescription string   `json:"dataset_description"`
	Fields             []Field  `json:"fields"`
	FieldNames         []string `json:"field_names"`
}

// Field returns the named field.
func (s *Summary) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Column == name {
			return f, true
		}
	}
	return Field{}, false
}

// JSON renders the summary for prompts.
func (s *Summary) JSON() string {
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}

// Completer is the model call the llm method needs.
type Completer interface {
	Complete(ctx context.Context, cfg ai.TextGenConfig, messages []ai.Message) (*ai.GenerateResponse, error)
}

// Summarizer produces summaries.
type Summarizer struct {
	llm Completer
	log *logrus.Logger
}

// New returns a Summarizer. llm may be nil when only the default method is used.
func New(llm Completer, log *logrus.Logger) *Summarizer {
	if log == nil {
		log = logrus.New()
		log.SetLevel(logrus.PanicLevel)
	}
	return &Summarizer{llm: llm, log: log}
}

// Summarize describes ds using method.
func (s *Summarizer) Summarize(ctx context.Context, ds *analysis.Dataset, method Method, cfg ai.TextGenConfig) (*Summary, error) {
	if ds == nil || ds.NumRows() == 0 {
		return nil, analysis.ErrEmptyDataset
	}
	sum := Base(ds)
	switch method {
	case "", MethodDefault:
		return sum, nil
	case MethodLLM:
		if s.llm == nil {
			return nil, fmt.Errorf("summary method %q needs a language model", method)
		}
		if err := s.enrich(ctx, sum, cfg); err != nil {
			return nil, err
		}
		return sum, nil
	}
	return nil, fmt.Errorf("unknown summary method %q", method)
}

// Base builds the locally computed summary.
func Base(ds *analysis.Dataset) *Summary {
	name := strings.TrimSuffix(ds.Name, pathExt(ds.Name))
	sum := &Summary{Name: name, FileName: ds.Name, Rows: ds.NumRows()}
	for j, col := range ds.Header {
		sum.Fields = append(sum.Fields, Field{Column: col, Properties: properties(ds, j)})
		sum.FieldNames = append(sum.FieldNames, col)
	}
	return sum
}

func properties(ds *analysis.Dataset, j int) Properties {
	vals := ds.Values(j)
	uniq := distinct(vals)
	p := Properties{
		Dtype:           dtype(ds.Kinds[j], len(uniq), len(vals)),
		NumUniqueValues: len(uniq),
		Unit:            ds.Units[j],
		Samples:         []string{},
	}
	for _, v := range uniq {
		if len(p.Samples) == maxSamples {
			break
		}
		p.Samples = append(p.Samples, v)
	}
	switch ds.Kinds[j] {
	case analysis.KindNumeric:
		x := ds.Float64s(j)
		mn, mx := math.Inf(1), math.Inf(-1)
		for _, v := range x {
			if math.IsNaN(v) {
				continue
			}
			mn = math.Min(mn, v)
			mx = math.Max(mx, v)
		}
		if !math.IsInf(mn, 0) {
			p.Min, p.Max = mn, mx
		}
		if cs := describeStd(x); !math.IsNaN(cs) {
			p.Std = &cs
		}
	case analysis.KindDatetime:
		sorted := append([]string(nil), uniq...)
		sort.Strings(sorted)
		if len(sorted) > 0 {
			p.Min, p.Max = sorted[0], sorted[len(sorted)-1]
		}
	}
	return p
}

func describeStd(x []float64) float64 {
	vals := make([]float64, 0, len(x))
	for _, v := range x {
		if !math.IsNaN(v) {
			vals = append(vals, v)
		}
	}
	if len(vals) < 2 {
		return math.NaN()
	}
	return stat.StdDev(vals, nil)
}

func dtype(k analysis.Kind, unique, present int) string {
	switch k {
	case analysis.KindNumeric:
		return "number"
	case analysis.KindDatetime:
		return "date"
	case analysis.KindCategorical:
		if unique == 2 || (present > 0 && float64(unique)/float64(present) < 0.5) {
			return "category"
		}
		return "string"
	default:
		return "string"
	}
}

func distinct(vals []string) []string {
	seen := make(map[string]struct{}, len(vals))
	out := make([]string, 0)
	for _, v := range vals {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func pathExt(name string) string {
	if i := strings.LastIndex(name, "."); i > 0 {
		return name[i:]
	}
	return ""
}
