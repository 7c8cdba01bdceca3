package agent

import (
	"errors"
	"testing"
)

func TestFirstObject(t *testing.T) {
	raw := "Sure, here is the analysis:\n```json\n{\"risk_summary\": \"low\", \"score\": 0.4}\n```\nLet me know if you need more."
	m, err := FirstObject(raw)
	if err != nil {
		t.Fatalf("FirstObject: %v", err)
	}
	if m["risk_summary"] != "low" {
		t.Errorf("risk_summary = %v, want low", m["risk_summary"])
	}
}

func TestFirstObjectBracesInStrings(t *testing.T) {
	raw := `{"description": "uses {braces} and \"quotes\" inside", "n": 1}`
	m, err := FirstObject(raw)
	if err != nil {
		t.Fatalf("FirstObject: %v", err)
	}
	if m["description"] != `uses {braces} and "quotes" inside` {
		t.Errorf("description = %v", m["description"])
	}
}

func TestFirstObjectFirstMatch(t *testing.T) {
	raw := `{"first": true} trailing prose {"second": true}`
	m, err := FirstObject(raw)
	if err != nil {
		t.Fatalf("FirstObject: %v", err)
	}
	if _, ok := m["first"]; !ok {
		t.Error("expected first block, got a later one")
	}
}

func TestFirstArray(t *testing.T) {
	raw := "The metrics are:\n[{\"metric_name\": \"Revenue\"}, {\"metric_name\": \"EBITDA\"}]"
	arr, err := FirstArray(raw)
	if err != nil {
		t.Fatalf("FirstArray: %v", err)
	}
	if len(arr) != 2 {
		t.Fatalf("len = %d, want 2", len(arr))
	}
}

func TestFirstObjectNoBlock(t *testing.T) {
	_, err := FirstObject("I could not find any structured data in the document.")
	if !errors.Is(err, ErrNoStructuredBlock) {
		t.Errorf("err = %v, want ErrNoStructuredBlock", err)
	}
}

func TestFirstObjectUnbalanced(t *testing.T) {
	_, err := FirstObject(`{"open": "never closed"`)
	if !errors.Is(err, ErrMalformedBlock) {
		t.Errorf("err = %v, want ErrMalformedBlock", err)
	}
}

func TestFirstObjectInvalidJSON(t *testing.T) {
	_, err := FirstObject(`{broken: json,}`)
	if !errors.Is(err, ErrMalformedBlock) {
		t.Errorf("err = %v, want ErrMalformedBlock", err)
	}
}

func TestStripCodeBlock(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"```\n{\"a\": 1}\n```", `{"a": 1}`},
		{`{"a": 1}`, `{"a": 1}`},
	}
	for _, c := range cases {
		if got := stripCodeBlock(c.in); got != c.want {
			t.Errorf("stripCodeBlock(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
