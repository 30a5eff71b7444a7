package ai

import (
	"encoding/json"
	"strings"
)

// ExtractJSON cuts the first JSON object or array out of a model reply that
// may carry prose or markdown fences around it. If nothing decodable is
// found the trimmed input is returned unchanged.
func ExtractJSON(s string) string {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return raw
	}
	objStart := strings.Index(raw, "{")
	arrStart := strings.Index(raw, "[")
	start, end := -1, -1
	switch {
	case objStart >= 0 && (arrStart < 0 || objStart < arrStart):
		start = objStart
		end = strings.LastIndex(raw, "}")
	case arrStart >= 0:
		start = arrStart
		end = strings.LastIndex(raw, "]")
	}
	if start >= 0 && end > start {
		cut := raw[start : end+1]
		if json.Valid([]byte(cut)) {
			return cut
		}
		// Trailing prose may contain a closing bracket; fall back to the
		// first complete value.
		dec := json.NewDecoder(strings.NewReader(raw[start:]))
		var v json.RawMessage
		if err := dec.Decode(&v); err == nil {
			return string(v)
		}
		return cut
	}
	return raw
}
