// Package extract reconstructs structured data out of free-text model
// responses: JSON documents buried in prose, and filename-labeled fenced
// code blocks. Extraction is pure; the same text always yields the same
// result.
package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoStructuredData indicates the text contains no opening bracket.
var ErrNoStructuredData = errors.New("no structured data found in response")

// ErrUnbalancedBrackets indicates a JSON candidate was found but its
// brackets never balance (typically a truncated response).
var ErrUnbalancedBrackets = errors.New("unbalanced brackets in response")

// MalformedJSONError indicates the balanced candidate failed to parse.
type MalformedJSONError struct {
	Cause error
}

func (e *MalformedJSONError) Error() string {
	return fmt.Sprintf("malformed JSON in response: %v", e.Cause)
}

func (e *MalformedJSONError) Unwrap() error { return e.Cause }

// JSON scans text for the first JSON document and unmarshals it into v.
// The document is located by balanced-bracket matching from the first
// '{' or '[', so prose before and after the document is ignored.
func JSON(text string, v any) error {
	candidate, err := jsonCandidate(text)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(candidate), v); err != nil {
		return &MalformedJSONError{Cause: err}
	}
	return nil
}

// jsonCandidate returns the substring spanning the first balanced
// bracket run. String literals are honored so brackets inside them do
// not affect the depth count.
func jsonCandidate(text string) (string, error) {
	start := strings.IndexAny(text, "{[")
	if start < 0 {
		return "", ErrNoStructuredData
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return text[start : i+1], nil
			}
		}
	}

	return "", ErrUnbalancedBrackets
}
