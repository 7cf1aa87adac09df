// Package extractor recovers the list of suggested steps from loosely
// formatted text returned by a generation API.
package extractor

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrMalformedResponse is matched by every error returned from ExtractSteps.
var ErrMalformedResponse = errors.New("malformed generation response")

// arrayPattern finds either a fenced code block (optionally tagged json) or
// the first single-line bracketed array. Group 1 is the fenced body, group 2
// the bare array.
var arrayPattern = regexp.MustCompile("```(?:json)?\\n([\\s\\S]*?)\\n```|(\\[.*?\\])")

// MalformedResponseError carries the raw model output for server-side
// diagnostics. Raw must never be echoed to callers.
type MalformedResponseError struct {
	Raw    string
	Reason string
	Err    error
}

func (e *MalformedResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", ErrMalformedResponse, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", ErrMalformedResponse, e.Reason)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// Is reports whether target is ErrMalformedResponse.
func (e *MalformedResponseError) Is(target error) bool {
	return target == ErrMalformedResponse
}

// ExtractSteps parses raw into an ordered list of steps. Text that already is
// a bracketed array is parsed as-is; otherwise a fenced json block or a bare
// array is searched for, with the fenced body preferred. Non-string elements
// are converted to their JSON text. An empty array yields an empty, non-nil
// slice.
func ExtractSteps(raw string) ([]string, error) {
	trimmed := strings.TrimSpace(raw)

	candidate := trimmed
	if !(strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]")) {
		m := arrayPattern.FindStringSubmatch(trimmed)
		if m == nil {
			return nil, &MalformedResponseError{Raw: raw, Reason: "no JSON array found"}
		}
		candidate = m[1]
		if candidate == "" {
			candidate = m[2]
		}
	}

	var elems []json.RawMessage
	if err := json.Unmarshal([]byte(candidate), &elems); err != nil {
		return nil, &MalformedResponseError{Raw: raw, Reason: "content is not a JSON array", Err: err}
	}
	if elems == nil {
		// a literal null decodes without error
		return nil, &MalformedResponseError{Raw: raw, Reason: "content is not a JSON array"}
	}

	steps := make([]string, 0, len(elems))
	for _, elem := range elems {
		s, err := StepText(elem)
		if err != nil {
			return nil, &MalformedResponseError{Raw: raw, Reason: "invalid array element", Err: err}
		}
		steps = append(steps, s)
	}
	return steps, nil
}

// StepText converts one JSON array element into display text. Strings are
// returned unquoted, null becomes the empty string and every other value is
// returned as compact JSON, so arrays keep their brackets ("[1,2]") rather
// than being flattened to "1,2" and a null step never shows up as "null".
func StepText(elem json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(elem)
	switch {
	case len(trimmed) == 0:
		return "", nil
	case trimmed[0] == '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", err
		}
		return s, nil
	case bytes.Equal(trimmed, []byte("null")):
		return "", nil
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return "", err
	}
	return buf.String(), nil
}
