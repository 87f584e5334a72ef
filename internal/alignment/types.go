// Package alignment implements the sentence-alignment-and-assessment
// contract with the generative model: bounded prompt construction, the
// structured-output schema, validation of the returned array, and the
// two-strategy request protocol (schema-constrained, then free-form).
package alignment

import "strings"

// AssessmentKeys are the required fields of every aligned unit's assessment
// record. Validation checks presence only; enum membership of the values is
// prompted but deliberately not enforced, tolerating model drift.
var AssessmentKeys = []string{
	"textual differences",
	"semantic impact",
	"sentiment before",
	"sentiment after",
	"sentiment change direction",
	"overall importance of the change",
	"importance category",
	"importance reason",
	"literature rationale",
	"version diff summary",
	"overall assessment",
	"POS category changed",
	"NER category changed",
	"grammar change",
	"verbal changes",
	"rewritten",
}

// PairAnalysisRecord is the persisted unit of work: one file per eligible
// snapshot pair. Items carry the model output verbatim, as generic JSON
// values, because under the free-form fallback a structurally invalid result
// is still persisted (best-effort policy).
type PairAnalysisRecord struct {
	PairIndex     int            `json:"pair_index"`
	NSentencesOld int            `json:"n_sentences_old"`
	NSentencesNew int            `json:"n_sentences_new"`
	MetadataOld   map[string]any `json:"metadata_old"`
	MetadataNew   map[string]any `json:"metadata_new"`
	Items         []any          `json:"items"`
}

// Present reports whether a sentence slot holds usable text: non-nil,
// non-blank, and not the literal placeholders "null"/"none".
func Present(v any) bool {
	if v == nil {
		return false
	}
	s, ok := v.(string)
	if !ok {
		return true
	}
	t := strings.TrimSpace(s)
	if t == "" {
		return false
	}
	switch strings.ToLower(t) {
	case "null", "none":
		return false
	}
	return true
}

// SentenceField extracts items[i].sentences[side] from a generic unit,
// returning nil when the path is missing.
func SentenceField(unit any, side string) any {
	m, ok := unit.(map[string]any)
	if !ok {
		return nil
	}
	s, ok := m["sentences"].(map[string]any)
	if !ok {
		return nil
	}
	return s[side]
}
