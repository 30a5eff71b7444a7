package analysis

import (
	"fmt"
	"math"
	"strings"
)

// Markdown renders the statistics as tables suitable for terminals and prompts.
// Values are rounded to three decimals.
func (s *Stats) Markdown() string {
	var b strings.Builder
	b.WriteString("[SUMMARY STATISTICS]\n")
	if s.Name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", s.Name))
	}
	b.WriteString(fmt.Sprintf("Rows: %d\n\n", s.Rows))
	b.WriteString("| column | count | mean | std | min | 25% | 50% | 75% | max |\n")
	b.WriteString("| --- | --- | --- | --- | --- | --- | --- | --- | --- |\n")
	for _, c := range s.Describe {
		b.WriteString(fmt.Sprintf("| %s | %d | %s | %s | %s | %s | %s | %s | %s |\n",
			safeName(c.Name), c.Count, Round3(c.Mean), Round3(c.Std), Round3(c.Min),
			Round3(c.Q1), Round3(c.Median), Round3(c.Q3), Round3(c.Max)))
	}

	b.WriteString("\n[MEAN / MEDIAN]\n")
	for _, c := range s.Describe {
		b.WriteString(fmt.Sprintf("- %s: mean %s, median %s\n", safeName(c.Name), Round3(c.Mean), Round3(c.Median)))
	}

	b.WriteString("\n[MODE]\n")
	for _, m := range s.Mode {
		v := m.Value
		if v == "" {
			v = "NaN"
		}
		b.WriteString(fmt.Sprintf("- %s: %s\n", safeName(m.Column), safeVal(v)))
	}

	if s.Corr != nil && len(s.Corr.Columns) > 0 {
		b.WriteString("\n[CORRELATION MATRIX]\n| |")
		for _, c := range s.Corr.Columns {
			b.WriteString(" " + safeName(c) + " |")
		}
		b.WriteString("\n| --- |")
		for range s.Corr.Columns {
			b.WriteString(" --- |")
		}
		b.WriteString("\n")
		for i, row := range s.Corr.Values {
			b.WriteString("| " + safeName(s.Corr.Columns[i]) + " |")
			for _, v := range row {
				b.WriteString(" " + Round3(v) + " |")
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

// Markdown renders the schema and first rows of the dataset.
func (d *Dataset) Markdown(sampleRows int) string {
	var b strings.Builder
	b.WriteString("[DATASET]\n")
	if d.Name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", d.Name))
	}
	b.WriteString(fmt.Sprintf("Rows: %d\nColumns: %d\n\n[SCHEMA]\n", d.NumRows(), d.NumCols()))
	for j, h := range d.Header {
		name := safeName(h)
		if d.Units[j] != "" && !strings.Contains(h, d.Units[j]) {
			name = fmt.Sprintf("%s [%s]", name, d.Units[j])
		}
		missing := d.NumRows() - len(d.Values(j))
		b.WriteString(fmt.Sprintf("- %s: %s (missing %d)\n", name, d.Kinds[j], missing))
	}
	if sampleRows > d.NumRows() {
		sampleRows = d.NumRows()
	}
	if sampleRows <= 0 {
		return b.String()
	}
	b.WriteString("\n[HEAD]\n| ")
	for i, h := range d.Header {
		if i > 0 {
			b.WriteString(" | ")
		}
		b.WriteString(safeName(h))
	}
	b.WriteString(" |\n|")
	for range d.Header {
		b.WriteString(" --- |")
	}
	b.WriteString("\n")
	for _, row := range d.Rows[:sampleRows] {
		b.WriteString("| ")
		for i, val := range row {
			if i > 0 {
				b.WriteString(" | ")
			}
			if len(val) > 80 {
				val = val[:77] + "..."
			}
			b.WriteString(safeVal(val))
		}
		b.WriteString(" |\n")
	}
	return b.String()
}

// Round3 formats v with three decimals; NaN renders as "NaN".
func Round3(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return fmt.Sprintf("%.3f", v)
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return safeVal(s)
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
