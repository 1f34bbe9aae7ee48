package transcription

import "testing"

func TestExtractJSON_Direct(t *testing.T) {
	fields := ExtractJSON(`{"diagnosis": "D", "summary": "S"}`)
	if fields["diagnosis"] != "D" {
		t.Errorf("expected diagnosis D, got %v", fields["diagnosis"])
	}
	if fields["summary"] != "S" {
		t.Errorf("expected summary S, got %v", fields["summary"])
	}
}

func TestExtractJSON_BraceSpan(t *testing.T) {
	raw := "Sure, here is the record:\n{\"diagnosis\": \"D\"}\nLet me know if you need more."
	fields := ExtractJSON(raw)
	if fields["diagnosis"] != "D" {
		t.Errorf("expected diagnosis D, got %v", fields["diagnosis"])
	}
	if _, ok := fields["raw"]; ok {
		t.Error("expected brace-span parse, not raw fallback")
	}
}

func TestExtractJSON_MarkdownFence(t *testing.T) {
	raw := "```json\n{\"diagnosis\": \"D\"}\n```"
	fields := ExtractJSON(raw)
	if fields["diagnosis"] != "D" {
		t.Errorf("expected diagnosis D, got %v", fields["diagnosis"])
	}
}

func TestExtractJSON_ProseFallback(t *testing.T) {
	raw := "The patient seems fine, no structured data available."
	fields := ExtractJSON(raw)
	if fields["raw"] != raw {
		t.Errorf("expected raw fallback with original text, got %v", fields["raw"])
	}
	if len(fields) != 1 {
		t.Errorf("expected only the raw field, got %d fields", len(fields))
	}
}

func TestExtractJSON_MalformedBraces(t *testing.T) {
	raw := "result: {not json at all"
	fields := ExtractJSON(raw)
	if fields["raw"] != raw {
		t.Errorf("expected raw fallback, got %v", fields)
	}
}

func TestExtractJSON_NonObjectJSON(t *testing.T) {
	raw := `["a", "b"]`
	fields := ExtractJSON(raw)
	if fields["raw"] != raw {
		t.Errorf("expected raw fallback for non-object JSON, got %v", fields)
	}
}

func TestSplitSummary(t *testing.T) {
	fields := map[string]interface{}{"summary": "S", "diagnosis": "D"}
	structured, summary := SplitSummary(fields)
	if summary != "S" {
		t.Errorf("expected summary S, got %q", summary)
	}
	if _, ok := structured["summary"]; ok {
		t.Error("summary must be excluded from structured fields")
	}
	if structured["diagnosis"] != "D" {
		t.Errorf("expected diagnosis to remain, got %v", structured["diagnosis"])
	}
}

func TestSplitSummary_Absent(t *testing.T) {
	structured, summary := SplitSummary(map[string]interface{}{"diagnosis": "D"})
	if summary != "" {
		t.Errorf("expected empty summary, got %q", summary)
	}
	if structured["diagnosis"] != "D" {
		t.Error("expected structured fields to pass through")
	}
}

func TestSplitSummary_NonString(t *testing.T) {
	structured, summary := SplitSummary(map[string]interface{}{"summary": []interface{}{"a", "b"}})
	if summary != `["a","b"]` {
		t.Errorf("expected marshalled summary, got %q", summary)
	}
	if _, ok := structured["summary"]; ok {
		t.Error("summary must be removed from structured fields")
	}
}
