package transcription

import (
	"encoding/json"
	"strings"
)

// ExtractJSON parses model output into a field map without ever failing.
// The raw text is first attempted as direct JSON. If that fails, the first
// top-level {...} span is extracted and parsed. If that also fails, the
// output degrades to {"raw": <original text>} so the pipeline never aborts
// on malformed model output.
func ExtractJSON(raw string) map[string]interface{} {
	trimmed := strings.TrimSpace(raw)

	var fields map[string]interface{}
	if err := json.Unmarshal([]byte(trimmed), &fields); err == nil && fields != nil {
		return fields
	}

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(trimmed[start:end+1]), &fields); err == nil && fields != nil {
			return fields
		}
	}

	return map[string]interface{}{"raw": raw}
}

// SplitSummary extracts the summary field into its own channel and returns
// the remaining fields as the structured object. The split is unconditional:
// summary is never duplicated into the structured output, and a missing
// summary yields "".
func SplitSummary(fields map[string]interface{}) (map[string]interface{}, string) {
	v, ok := fields["summary"]
	if !ok {
		return fields, ""
	}
	delete(fields, "summary")
	if s, ok := v.(string); ok {
		return fields, s
	}
	b, _ := json.Marshal(v)
	return fields, string(b)
}
