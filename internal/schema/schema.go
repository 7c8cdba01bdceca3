// Package schema normalizes parsed model output against a per-agent output
// schema. Normalize never fails: whatever the model returned, the result is
// structurally valid for downstream storage. Bad content becomes safe
// defaults, not pipeline crashes.
package schema

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Kind is the primitive type a schema field declares.
type Kind int

const (
	String Kind = iota
	Number
	Bool
	Array
	Object
	// Score is a Number constrained to [0.0, 1.0]; out-of-range values are
	// clamped rather than rejected.
	Score
)

// Field declares one top-level field of an agent's output.
type Field struct {
	Name string
	Kind Kind
	// Enum restricts a String field to a closed value set. Values outside
	// the set are replaced with Fallback.
	Enum     []string
	Fallback string
	// Elem normalizes the elements of an Array field (or the value of an
	// Object field) when they are objects themselves.
	Elem *Schema
	// Strings coerces every element of an Array field to a string;
	// non-string elements are rendered as compact JSON.
	Strings bool
}

// Schema is a closed specification of an agent's output fields. Defined
// statically per agent, never mutated at runtime.
type Schema struct {
	Fields []Field
}

// Normalize makes raw schema-conformant. Missing fields get type-appropriate
// defaults, wrong primitive types are coerced when safely convertible, enum
// violations fall back, and score fields are clamped to [0.0, 1.0]. The
// returned notes record every substitution for observability.
func (s *Schema) Normalize(raw map[string]any) (map[string]any, []string) {
	out := make(map[string]any, len(s.Fields))
	var notes []string

	for _, f := range s.Fields {
		v, present := raw[f.Name]
		if !present || v == nil {
			out[f.Name] = f.defaultValue()
			notes = append(notes, f.Name+": missing, defaulted")
			continue
		}
		nv, ns := f.normalize(v)
		out[f.Name] = nv
		for _, n := range ns {
			notes = append(notes, f.Name+n)
		}
	}

	return out, notes
}

func (f Field) defaultValue() any {
	switch f.Kind {
	case String:
		if len(f.Enum) > 0 {
			return f.Fallback
		}
		return ""
	case Number, Score:
		return 0.0
	case Bool:
		return false
	case Array:
		return []any{}
	case Object:
		return map[string]any{}
	}
	return nil
}

func (f Field) normalize(v any) (any, []string) {
	switch f.Kind {
	case String:
		s, ok := AsString(v)
		if !ok {
			return f.defaultValue(), []string{": wrong type, defaulted"}
		}
		if len(f.Enum) > 0 {
			s = strings.ToLower(strings.TrimSpace(s))
			if !contains(f.Enum, s) {
				return f.Fallback, []string{fmt.Sprintf(": %q not in enum, fell back to %q", s, f.Fallback)}
			}
		}
		return s, nil

	case Number:
		n, ok := AsNumber(v)
		if !ok {
			return 0.0, []string{": wrong type, defaulted"}
		}
		return n, nil

	case Score:
		n, ok := AsNumber(v)
		if !ok {
			return 0.0, []string{": wrong type, defaulted"}
		}
		if c := Clamp01(n); c != n {
			return c, []string{fmt.Sprintf(": %v clamped to %v", n, c)}
		}
		return n, nil

	case Bool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
		return false, []string{": wrong type, defaulted"}

	case Array:
		arr, ok := v.([]any)
		if !ok {
			return []any{}, []string{": wrong type, defaulted"}
		}
		if f.Strings {
			out := make([]any, 0, len(arr))
			var notes []string
			for i, el := range arr {
				s, ok := AsString(el)
				if !ok {
					b, err := json.Marshal(el)
					if err != nil {
						notes = append(notes, fmt.Sprintf("[%d]: unrenderable, dropped", i))
						continue
					}
					s = string(b)
					notes = append(notes, fmt.Sprintf("[%d]: rendered as JSON string", i))
				}
				out = append(out, s)
			}
			return out, notes
		}
		if f.Elem == nil {
			return arr, nil
		}
		var notes []string
		out := make([]any, 0, len(arr))
		for i, el := range arr {
			m, ok := el.(map[string]any)
			if !ok {
				notes = append(notes, fmt.Sprintf("[%d]: not an object, dropped", i))
				continue
			}
			nm, ns := f.Elem.Normalize(m)
			for _, n := range ns {
				notes = append(notes, fmt.Sprintf("[%d].%s", i, n))
			}
			out = append(out, nm)
		}
		return out, notes

	case Object:
		m, ok := v.(map[string]any)
		if !ok {
			return map[string]any{}, []string{": wrong type, defaulted"}
		}
		if f.Elem == nil {
			return m, nil
		}
		nm, ns := f.Elem.Normalize(m)
		var notes []string
		for _, n := range ns {
			notes = append(notes, "."+n)
		}
		return nm, notes
	}
	return nil, nil
}

// AsString coerces v to a string. Only genuine strings qualify; numbers are
// not stringified because that loses the distinction the schema draws.
func AsString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// AsNumber coerces v to a float64, accepting numeric strings ("0.85") since
// models frequently quote numbers.
func AsNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// Clamp01 clamps a score into [0.0, 1.0].
func Clamp01(v float64) float64 {
	if v < 0.0 {
		return 0.0
	}
	if v > 1.0 {
		return 1.0
	}
	return v
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
