package schema

import (
	"strings"
	"testing"
)

func metricSchema() *Schema {
	return &Schema{Fields: []Field{
		{Name: "metric_name", Kind: String},
		{Name: "metric_value", Kind: String},
		{Name: "metric_type", Kind: String, Enum: []string{"revenue", "profitability", "growth", "multiple", "other"}, Fallback: "other"},
		{Name: "confidence_score", Kind: Score},
	}}
}

func TestNormalize_MissingFieldsGetDefaults(t *testing.T) {
	out, notes := metricSchema().Normalize(map[string]any{
		"metric_name": "Revenue",
	})

	if out["metric_name"] != "Revenue" {
		t.Errorf("metric_name: got %v", out["metric_name"])
	}
	if out["metric_value"] != "" {
		t.Errorf("expected empty default for metric_value, got %v", out["metric_value"])
	}
	if out["metric_type"] != "other" {
		t.Errorf("expected enum fallback default for metric_type, got %v", out["metric_type"])
	}
	if out["confidence_score"] != 0.0 {
		t.Errorf("expected 0.0 default for confidence_score, got %v", out["confidence_score"])
	}
	if len(notes) != 3 {
		t.Errorf("expected 3 coercion notes, got %d: %v", len(notes), notes)
	}
}

func TestNormalize_ScoreClamping(t *testing.T) {
	tests := []struct {
		in   any
		want float64
	}{
		{1.7, 1.0},
		{-0.2, 0.0},
		{0.85, 0.85},
		{0.0, 0.0},
		{1.0, 1.0},
		{"0.6", 0.6},   // numeric string coerced
		{"nope", 0.0},  // unparseable defaults
		{[]any{}, 0.0}, // wrong type defaults
	}
	s := &Schema{Fields: []Field{{Name: "score", Kind: Score}}}
	for _, tc := range tests {
		out, _ := s.Normalize(map[string]any{"score": tc.in})
		if out["score"] != tc.want {
			t.Errorf("score %v: got %v, want %v", tc.in, out["score"], tc.want)
		}
	}
}

func TestNormalize_EnumFallback(t *testing.T) {
	s := &Schema{Fields: []Field{
		{Name: "severity", Kind: String, Enum: []string{"high", "medium", "low"}, Fallback: "medium"},
	}}

	out, notes := s.Normalize(map[string]any{"severity": "catastrophic"})
	if out["severity"] != "medium" {
		t.Errorf("expected fallback medium, got %v", out["severity"])
	}
	if len(notes) != 1 || !strings.Contains(notes[0], "enum") {
		t.Errorf("expected an enum fallback note, got %v", notes)
	}

	// Case and whitespace are normalized before the enum check.
	out, notes = s.Normalize(map[string]any{"severity": " HIGH "})
	if out["severity"] != "high" {
		t.Errorf("expected high, got %v", out["severity"])
	}
	if len(notes) != 0 {
		t.Errorf("expected no notes for valid enum value, got %v", notes)
	}
}

func TestNormalize_NestedArrayElements(t *testing.T) {
	s := &Schema{Fields: []Field{
		{Name: "inconsistencies", Kind: Array, Elem: &Schema{Fields: []Field{
			{Name: "description", Kind: String},
			{Name: "severity", Kind: String, Enum: []string{"high", "medium", "low"}, Fallback: "medium"},
		}}},
	}}

	out, _ := s.Normalize(map[string]any{
		"inconsistencies": []any{
			map[string]any{"description": "revenue mismatch", "severity": "catastrophic"},
			"not an object",
			map[string]any{"description": "timeline gap", "severity": "low"},
		},
	})

	items := out["inconsistencies"].([]any)
	if len(items) != 2 {
		t.Fatalf("expected 2 normalized items (non-object dropped), got %d", len(items))
	}
	first := items[0].(map[string]any)
	if first["severity"] != "medium" {
		t.Errorf("expected severity fallback medium, got %v", first["severity"])
	}
	second := items[1].(map[string]any)
	if second["severity"] != "low" {
		t.Errorf("expected severity low, got %v", second["severity"])
	}
}

func TestNormalize_NestedObject(t *testing.T) {
	s := &Schema{Fields: []Field{
		{Name: "risk_scores", Kind: Object, Elem: &Schema{Fields: []Field{
			{Name: "overall_risk", Kind: Score},
		}}},
	}}

	out, _ := s.Normalize(map[string]any{
		"risk_scores": map[string]any{"overall_risk": 2.5},
	})
	scores := out["risk_scores"].(map[string]any)
	if scores["overall_risk"] != 1.0 {
		t.Errorf("expected nested score clamped to 1.0, got %v", scores["overall_risk"])
	}
}

func TestNormalize_WrongTypesDefaulted(t *testing.T) {
	s := &Schema{Fields: []Field{
		{Name: "summary", Kind: String},
		{Name: "items", Kind: Array},
		{Name: "details", Kind: Object},
		{Name: "flag", Kind: Bool},
		{Name: "count", Kind: Number},
	}}

	out, notes := s.Normalize(map[string]any{
		"summary": 42,
		"items":   "not a list",
		"details": []any{"not", "a", "map"},
		"flag":    "yes",
		"count":   map[string]any{},
	})

	if out["summary"] != "" {
		t.Errorf("summary: got %v", out["summary"])
	}
	if len(out["items"].([]any)) != 0 {
		t.Errorf("items: got %v", out["items"])
	}
	if len(out["details"].(map[string]any)) != 0 {
		t.Errorf("details: got %v", out["details"])
	}
	if out["flag"] != false {
		t.Errorf("flag: got %v", out["flag"])
	}
	if out["count"] != 0.0 {
		t.Errorf("count: got %v", out["count"])
	}
	if len(notes) != 5 {
		t.Errorf("expected 5 notes, got %d: %v", len(notes), notes)
	}
}

func TestNormalize_StringArrayCoercion(t *testing.T) {
	s := &Schema{Fields: []Field{
		{Name: "mitigation_strategies", Kind: Array, Strings: true},
	}}

	out, notes := s.Normalize(map[string]any{
		"mitigation_strategies": []any{
			"diversify customer base",
			map[string]any{"strategy": "hedge"},
			3.5,
		},
	})

	items := out["mitigation_strategies"].([]any)
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	if items[0] != "diversify customer base" {
		t.Errorf("item 0: got %v", items[0])
	}
	if items[1] != `{"strategy":"hedge"}` {
		t.Errorf("item 1: expected JSON rendering, got %v", items[1])
	}
	if items[2] != "3.5" {
		t.Errorf("item 2: got %v", items[2])
	}
	if len(notes) != 2 {
		t.Errorf("expected 2 notes, got %v", notes)
	}
}

func TestNormalize_NeverReturnsNilValues(t *testing.T) {
	out, _ := metricSchema().Normalize(map[string]any{})
	for _, f := range metricSchema().Fields {
		if out[f.Name] == nil {
			t.Errorf("field %s is nil after normalization", f.Name)
		}
	}
}
