package summarize

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/AyushAagrwal/DataStatX/internal/ai"
)

const enrichSystemPrompt = `You are an experienced data analyst that can annotate datasets. Your instructions are as follows:
i) ALWAYS generate the name of the dataset and the dataset_description
ii) ALWAYS generate a field description.
iii) ALWAYS generate a semantic_type (a single word) for each field given its values e.g. company, city, number, supplier, location, gender, longitude, latitude, url, ip address, zip code, email, etc
You must return an updated JSON dictionary without any preamble or explanation.`

type enrichment struct {
	Name               string `json:"name"`
	DatasetDescription string `json:"dataset_description"`
	Fields             []struct {
		Column     string `json:"column"`
		Properties struct {
			SemanticType string `json:"semantic_type"`
			Description  string `json:"description"`
		} `json:"properties"`
	} `json:"fields"`
}

// enrich fills descriptive fields from the model. Locally computed
// statistics are never overwritten.
func (s *Summarizer) enrich(ctx context.Context, sum *Summary, cfg ai.TextGenConfig) error {
	cfg.N = 1
	msgs := []ai.Message{
		{Role: "system", Content: enrichSystemPrompt},
		{Role: "assistant", Content: "Annotate the dictionary below. Only return a JSON object.\n" + sum.JSON()},
	}
	resp, err := s.llm.Complete(ctx, cfg, msgs)
	if err != nil {
		return fmt.Errorf("summarize: %w", err)
	}
	raw := ai.ExtractJSON(ai.FirstContent(resp))
	var e enrichment
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return fmt.Errorf("summarize: model returned invalid JSON: %w", err)
	}
	if e.Name != "" {
		sum.Name = e.Name
	}
	sum.DatasetDescription = e.DatasetDescription
	byName := make(map[string]int, len(sum.Fields))
	for i, f := range sum.Fields {
		byName[f.Column] = i
	}
	matched := 0
	for _, f := range e.Fields {
		i, ok := byName[f.Column]
		if !ok {
			continue
		}
		matched++
		sum.Fields[i].Properties.SemanticType = f.Properties.SemanticType
		sum.Fields[i].Properties.Description = f.Properties.Description
	}
	s.log.WithFields(logrus.Fields{"fields": len(sum.Fields), "annotated": matched}).Debug("summary enriched")
	return nil
}
