package summarize

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/AyushAagrwal/DataStatX/internal/ai"
	"github.com/AyushAagrwal/DataStatX/internal/analysis"
)

type fakeLLM struct {
	reply string
	err   error
	calls int
	last  []ai.Message
}

func (f *fakeLLM) Complete(_ context.Context, _ ai.TextGenConfig, msgs []ai.Message) (*ai.GenerateResponse, error) {
	f.calls++
	f.last = msgs
	if f.err != nil {
		return nil, f.err
	}
	return &ai.GenerateResponse{Choices: []ai.Choice{{Message: ai.Message{Role: "assistant", Content: f.reply}}}}, nil
}

const carsCSV = `model,hp,origin,released
a,100,US,2020-01-01
b,150,EU,2020-02-01
c,,US,2020-03-01
d,200,US,2020-04-01
`

func parse(t *testing.T) *analysis.Dataset {
	t.Helper()
	ds, err := analysis.Parse("cars.csv", strings.NewReader(carsCSV), analysis.DefaultOptions())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return ds
}

func TestDefaultSummary(t *testing.T) {
	s := New(nil, nil)
	sum, err := s.Summarize(context.Background(), parse(t), MethodDefault, ai.TextGenConfig{})
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if sum.Name != "cars" || sum.FileName != "cars.csv" || sum.Rows != 4 {
		t.Fatalf("header = %+v", sum)
	}
	hp, ok := sum.Field("hp")
	if !ok {
		t.Fatalf("hp field missing")
	}
	if hp.Properties.Dtype != "number" || hp.Properties.Min != 100.0 || hp.Properties.Max != 200.0 {
		t.Fatalf("hp = %+v", hp.Properties)
	}
	if hp.Properties.Std == nil || *hp.Properties.Std != 50 {
		t.Fatalf("hp std = %v", hp.Properties.Std)
	}
	if hp.Properties.NumUniqueValues != 3 || len(hp.Properties.Samples) != 3 {
		t.Fatalf("hp unique/samples = %+v", hp.Properties)
	}
	origin, _ := sum.Field("origin")
	if origin.Properties.Dtype != "category" {
		t.Fatalf("origin dtype = %s", origin.Properties.Dtype)
	}
	rel, _ := sum.Field("released")
	if rel.Properties.Dtype != "date" || rel.Properties.Min != "2020-01-01" {
		t.Fatalf("released = %+v", rel.Properties)
	}
	if !strings.Contains(sum.JSON(), `"field_names"`) {
		t.Fatalf("JSON missing field_names")
	}
}

func TestLLMSummaryKeepsLocalStats(t *testing.T) {
	llm := &fakeLLM{reply: "```json\n" + `{"name":"Cars","dataset_description":"Car models","fields":[
		{"column":"hp","properties":{"semantic_type":"power","description":"horse power","min":-1}},
		{"column":"ghost","properties":{"semantic_type":"x"}}]}` + "\n```"}
	s := New(llm, nil)
	sum, err := s.Summarize(context.Background(), parse(t), MethodLLM, ai.DefaultTextGenConfig("m"))
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if llm.calls != 1 || !strings.Contains(llm.last[1].Content, `"hp"`) {
		t.Fatalf("prompt did not carry the base summary")
	}
	hp, _ := sum.Field("hp")
	if hp.Properties.SemanticType != "power" || hp.Properties.Description != "horse power" {
		t.Fatalf("hp not annotated: %+v", hp.Properties)
	}
	if hp.Properties.Min != 100.0 {
		t.Fatalf("model overwrote local min: %v", hp.Properties.Min)
	}
	if sum.Name != "Cars" || sum.DatasetDescription != "Car models" {
		t.Fatalf("dataset annotation = %q / %q", sum.Name, sum.DatasetDescription)
	}
	if _, ok := sum.Field("ghost"); ok {
		t.Fatalf("unknown model field added")
	}
}

func TestLLMSummaryErrors(t *testing.T) {
	remote := &ai.ServerError{APIError: &ai.APIError{StatusCode: 503}}
	s := New(&fakeLLM{err: remote}, nil)
	_, err := s.Summarize(context.Background(), parse(t), MethodLLM, ai.TextGenConfig{})
	if !errors.Is(err, remote) || !ai.IsProviderError(err) {
		t.Fatalf("provider error not preserved: %v", err)
	}

	s = New(&fakeLLM{reply: "sorry, I can't"}, nil)
	_, err = s.Summarize(context.Background(), parse(t), MethodLLM, ai.TextGenConfig{})
	if err == nil || ai.IsProviderError(err) {
		t.Fatalf("invalid JSON should be a local error, got %v", err)
	}

	s = New(nil, nil)
	if _, err := s.Summarize(context.Background(), parse(t), MethodLLM, ai.TextGenConfig{}); err == nil {
		t.Fatalf("llm method without a model should fail")
	}
}

func TestParseMethod(t *testing.T) {
	for in, want := range map[string]Method{"": MethodDefault, "DEFAULT": MethodDefault, "llm": MethodLLM} {
		got, err := ParseMethod(in)
		if err != nil || got != want {
			t.Errorf("ParseMethod(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseMethod("columns"); err == nil {
		t.Errorf("unknown method accepted")
	}
}
