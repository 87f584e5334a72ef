package alignment

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Validate checks an already-parsed candidate array against the structural
// contract: root is a list within [minItems, maxItems], every item is an
// object, sentences holds at least one non-null side, and the assessment
// record carries all 16 required keys. It returns (true, "") on success and
// (false, reason) otherwise; parse failures are handled upstream.
//
// Values are not checked against the prompted enums: structural completeness
// is enforced, enum compliance is advisory.
func Validate(arr []any, minItems, maxItems int) (bool, string) {
	if arr == nil {
		return false, "Output root is not an array."
	}
	if len(arr) < minItems {
		return false, fmt.Sprintf("Too few items: got %d, need at least %d.", len(arr), minItems)
	}
	if len(arr) > maxItems {
		return false, fmt.Sprintf("Too many items: got %d, must be <= %d.", len(arr), maxItems)
	}
	for idx, item := range arr {
		obj, ok := item.(map[string]any)
		if !ok {
			return false, fmt.Sprintf("Item %d is not an object.", idx)
		}
		sentences, ok := obj["sentences"].(map[string]any)
		if !ok {
			return false, fmt.Sprintf("Item %d: 'sentences' missing or not object.", idx)
		}
		if sentences["M1"] == nil && sentences["M2"] == nil {
			return false, fmt.Sprintf("Item %d: both M1 and M2 are null.", idx)
		}
		assessment, ok := obj["assessment"].(map[string]any)
		if !ok {
			return false, fmt.Sprintf("Item %d: 'assessment' missing or not object.", idx)
		}
		for _, key := range AssessmentKeys {
			if _, ok := assessment[key]; !ok {
				return false, fmt.Sprintf("Item %d: missing '%s' in assessment.", idx, key)
			}
		}
	}
	return true, ""
}

// ExtractFirstArray scans raw model output for the first syntactically
// complete top-level JSON array and parses it. Leading and trailing prose is
// tolerated; brackets inside JSON strings are ignored while scanning.
func ExtractFirstArray(text string) ([]any, error) {
	text = strings.TrimSpace(text)
	start := strings.IndexByte(text, '[')
	if start == -1 {
		return nil, errors.New("no '[' found in model output")
	}

	depth := 0
	inString := false
	escape := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			if escape {
				escape = false
				continue
			}
			switch c {
			case '\\':
				escape = true
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				var arr []any
				if err := json.Unmarshal([]byte(text[start:i+1]), &arr); err != nil {
					return nil, fmt.Errorf("parse extracted array: %w", err)
				}
				return arr, nil
			}
		}
	}
	return nil, errors.New("could not find a complete top-level JSON array in model output")
}
