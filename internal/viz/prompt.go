package viz

import (
	"fmt"
	"strings"

	"github.com/AyushAagrwal/DataStatX/internal/ai"
	"github.com/AyushAagrwal/DataStatX/internal/summarize"
	"github.com/AyushAagrwal/DataStatX/internal/utils"
)

// summaryTokenBudget is the estimated size above which the summary sent to
// the model is compacted.
const summaryTokenBudget = 6000

const systemPrompt = `You are a helpful assistant highly skilled in choosing good visualizations for a dataset. Given a dataset summary and a goal, describe the chart that best answers the goal.
Rules:
- Use ONLY column names that appear in the summary.
- Pick the chart type that suits the data: "bar" for categories, "line" for trends over time or ordered values, "scatter" for the relationship of two numeric columns, "pie" for parts of a whole with few categories, "histogram" for the distribution of one numeric column.
- "aggregation" is one of "sum", "mean", "count" or "none" and folds y values that share an x value.
- "sort" is "asc", "desc" or empty; "limit" caps the number of categories.
Return ONLY a JSON array of chart objects with the keys type, x, y, aggregation, title, x_label, y_label, sort, limit. No preamble, no explanation.`

// messages builds the conversation for one visualization request.
func messages(sum *summarize.Summary, goal string, n int) []ai.Message {
	var b strings.Builder
	b.WriteString("The dataset summary is:\n")
	b.WriteString(promptSummary(sum))
	b.WriteString("\n\nThe visualization goal is:\n")
	b.WriteString(strings.TrimSpace(goal))
	if n > 1 {
		fmt.Fprintf(&b, "\n\nReturn %d different charts ordered from best to worst.", n)
	}
	return []ai.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: b.String()},
	}
}

// promptSummary renders sum for the prompt, keeping one short sample per
// field and clipping descriptions when the full form is too large.
func promptSummary(sum *summarize.Summary) string {
	full := sum.JSON()
	if utils.CountTokens(full) <= summaryTokenBudget {
		return full
	}
	c := *sum
	c.DatasetDescription = utils.TruncateToTokenLimit(c.DatasetDescription, 64)
	c.Fields = make([]summarize.Field, len(sum.Fields))
	for i, f := range sum.Fields {
		p := f.Properties
		if len(p.Samples) > 1 {
			p.Samples = p.Samples[:1]
		}
		samples := make([]string, len(p.Samples))
		for j, s := range p.Samples {
			samples[j] = utils.TruncateToTokenLimit(s, 8)
		}
		p.Samples = samples
		p.Description = utils.TruncateToTokenLimit(p.Description, 24)
		c.Fields[i] = summarize.Field{Column: f.Column, Properties: p}
	}
	return c.JSON()
}
