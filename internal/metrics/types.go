// Package metrics reduces persisted pair-analysis records into count-based
// statistics. Every semantic, sentiment, POS/NER, grammar, verbal,
// importance and rewritten counter is computed only over units whose
// textual-difference classification is one of the "yes" kinds: the
// changed-units-only rule is the central invariant of this layer.
package metrics

// ChangeCounts tallies textual-difference classifications and the
// importance split among changed units.
type ChangeCounts struct {
	TotalChanged                  int `json:"total_changed"`
	Yes                           int `json:"yes"`
	YesAddition                   int `json:"yes_addition"`
	YesDeletion                   int `json:"yes_deletion"`
	No                            int `json:"no"`
	Important                     int `json:"important"`
	NotImportant                  int `json:"not_important"`
	UnknownImportanceAmongChanged int `json:"unknown_importance_among_changed"`
}

// ImportanceOverall mirrors the importance split with presentation keys.
type ImportanceOverall struct {
	Important    int `json:"Important"`
	NotImportant int `json:"Not important"`
	Unknown      int `json:"Unknown (among changed)"`
}

// Bases records the denominators the per-field counters were computed over.
type Bases struct {
	UnitsTotal        int `json:"units_total"`
	ChangedUnitsTotal int `json:"changed_units_total"`
}

// LLMFields groups the per-assessment-field frequency counters. All of them
// honor the changed-units-only rule.
type LLMFields struct {
	TextualDifferences       map[string]int    `json:"textual_differences"`
	SemanticImpact           map[string]int    `json:"semantic_impact"`
	SentimentBefore          map[string]int    `json:"sentiment_before"`
	SentimentAfter           map[string]int    `json:"sentiment_after"`
	SentimentChangeDirection map[string]int    `json:"sentiment_change_direction"`
	ImportanceOverall        ImportanceOverall `json:"importance_overall"`
	ImportanceCategoryFreq   map[string]int    `json:"importance_category_freq"`
	POSCategoryChanged       map[string]int    `json:"pos_category_changed"`
	NERCategoryChanged       map[string]int    `json:"ner_category_changed"`
	GrammarChange            map[string]int    `json:"grammar_change"`
	VerbalChanges            map[string]int    `json:"verbal_changes"`
	Rewritten                map[string]int    `json:"rewritten"`
	Bases                    Bases             `json:"bases"`
}

// PairMetrics is the deterministic reduction of one pair analysis record.
// Timestamps are nil when the capture metadata failed to parse, and
// DeltaHours is nil unless both sides parsed.
type PairMetrics struct {
	PairIndex          int            `json:"pair_index"`
	TimestampOld       *string        `json:"timestamp_old"`
	TimestampNew       *string        `json:"timestamp_new"`
	DeltaHours         *float64       `json:"delta_hours"`
	UnitsTotal         int            `json:"units_total"`
	UnitsM1Nonnull     int            `json:"units_m1_nonnull"`
	UnitsM2Nonnull     int            `json:"units_m2_nonnull"`
	UnitsByType        map[string]int `json:"units_by_type"`
	ChangedUnitsByType map[string]int `json:"changed_units_by_type"`
	ChangedUnitsTotal  int            `json:"changed_units_total"`
	Changes            ChangeCounts   `json:"changes"`
	Semantic           map[string]int `json:"semantic"`
	VerbalFlags        map[string]int `json:"verbal_flags"`
	LLMFields          LLMFields      `json:"llm_fields"`
}

// Summary is the additive fold of all PairMetrics of one document.
type Summary struct {
	PairsTotal         int            `json:"pairs_total"`
	UnitsTotal         int            `json:"units_total"`
	UnitsM1Nonnull     int            `json:"units_m1_nonnull"`
	UnitsM2Nonnull     int            `json:"units_m2_nonnull"`
	UnitsByType        map[string]int `json:"units_by_type"`
	ChangedUnitsByType map[string]int `json:"changed_units_by_type"`
	ChangedUnitsTotal  int            `json:"changed_units_total"`
	Changes            ChangeCounts   `json:"changes"`
	Semantic           map[string]int `json:"semantic"`
	LLMFields          LLMFields      `json:"llm_fields"`
}

// Document bundles a document's summary with its chronologically sorted
// per-pair metrics; this is the persisted metrics artifact shape.
type Document struct {
	Summary Summary       `json:"summary"`
	PerPair []PairMetrics `json:"per_pair"`
}

// Seed key sets. split/merge alignment types are accepted upstream but not
// bucketed here; they contribute to totals only.
var (
	unitTypeKeys = []string{"match", "insert", "delete"}
	posKeys      = []string{"VERB", "NOUN", "PROPN", "ADJ", "NUM", "ADV"}
	nerKeys      = []string{"PERSON", "ORG", "GPE", "LOC", "DATE", "MONEY", "PERCENT"}
	grammarKeys  = []string{"yes", "no"}
	verbalKeys   = []string{"tense", "aspect", "voice", "modality"}
)

func seeded(keys []string) map[string]int {
	m := make(map[string]int, len(keys))
	for _, k := range keys {
		m[k] = 0
	}
	return m
}

func newLLMFields() LLMFields {
	return LLMFields{
		TextualDifferences:       map[string]int{},
		SemanticImpact:           map[string]int{},
		SentimentBefore:          map[string]int{},
		SentimentAfter:           map[string]int{},
		SentimentChangeDirection: map[string]int{},
		ImportanceCategoryFreq:   map[string]int{},
		POSCategoryChanged:       seeded(posKeys),
		NERCategoryChanged:       seeded(nerKeys),
		GrammarChange:            seeded(grammarKeys),
		VerbalChanges:            seeded(verbalKeys),
		Rewritten:                map[string]int{"true": 0, "false": 0},
	}
}
