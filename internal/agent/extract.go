package agent

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Sentinel errors for structured-block extraction.
var (
	ErrNoStructuredBlock = errors.New("no structured block found in response")
	ErrMalformedBlock    = errors.New("malformed structured block")
)

var codeBlockRe = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")

// stripCodeBlock removes a fenced code-block wrapper around model output.
func stripCodeBlock(s string) string {
	s = strings.TrimSpace(s)
	if m := codeBlockRe.FindStringSubmatch(s); len(m) > 1 {
		return m[1]
	}
	return s
}

// FirstObject extracts and parses the first balanced {...} block from raw
// model text, tolerating surrounding prose and code fences. First-match,
// not best-match: identical input always yields the identical block.
func FirstObject(raw string) (map[string]any, error) {
	block, err := firstBlock(stripCodeBlock(raw), '{', '}')
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(block), &m); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedBlock, err)
	}
	return m, nil
}

// FirstArray extracts and parses the first balanced [...] block, for
// array-valued agents.
func FirstArray(raw string) ([]any, error) {
	block, err := firstBlock(stripCodeBlock(raw), '[', ']')
	if err != nil {
		return nil, err
	}
	var a []any
	if err := json.Unmarshal([]byte(block), &a); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedBlock, err)
	}
	return a, nil
}

// decode converts a normalized map/slice into a typed output struct. The
// validator guarantees every field has the declared primitive type, so a
// decode failure is a programming error in the agent's schema.
func decode(normalized, out any) error {
	b, err := json.Marshal(normalized)
	if err != nil {
		return fmt.Errorf("re-marshal normalized output: %w", err)
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("decode normalized output: %w", err)
	}
	return nil
}

// firstBlock returns the substring from the first open bracket to its
// balanced close, skipping brackets inside JSON strings.
func firstBlock(s string, open, close byte) (string, error) {
	start := strings.IndexByte(s, open)
	if start < 0 {
		return "", ErrNoStructuredBlock
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return s[start : i+1], nil
			}
		}
	}
	return "", fmt.Errorf("%w: unbalanced %c", ErrMalformedBlock, open)
}
