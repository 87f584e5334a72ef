package metrics

import (
	"log"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/mementolab/driftwatch/internal/alignment"
	"github.com/mementolab/driftwatch/internal/analysis"
)

func unit(unitType, diff string, extra map[string]any) map[string]any {
	assessment := map[string]any{
		"textual differences":              diff,
		"semantic impact":                  "minor",
		"sentiment before":                 "neutral",
		"sentiment after":                  "neutral",
		"sentiment change direction":       "no change",
		"overall importance of the change": "Not important - phrasing only",
		"importance category":              "style/formatting",
		"importance reason":                "wording tweak",
		"literature rationale":             "stylistic edit",
		"version diff summary":             "reworded a clause",
		"overall assessment":               "minor stylistic revision",
		"POS category changed":             []any{},
		"NER category changed":             []any{},
		"grammar change":                   "no",
		"verbal changes":                   []any{},
		"rewritten":                        false,
	}
	for k, v := range extra {
		assessment[k] = v
	}
	return map[string]any{
		"type":       unitType,
		"sentences":  map[string]any{"M1": "old text", "M2": "new text"},
		"assessment": assessment,
	}
}

func TestClassifyTextualDiff(t *testing.T) {
	t.Parallel()
	cases := []struct {
		raw  string
		want string
	}{
		{"yes", tdYes},
		{"Yes", tdYes},
		{"yes (addition)", tdYesAddition},
		{"yes addition", tdYesAddition},
		{"YES (DELETION)", tdYesDeletion},
		{"yes deletion", tdYesDeletion},
		{"no", tdNo},
		{"", tdNo},
		{"maybe", tdNo},
	}
	for _, tc := range cases {
		if got := classifyTextualDiff(tc.raw); got != tc.want {
			t.Fatalf("classifyTextualDiff(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestChangedUnitsTotalTiesOut(t *testing.T) {
	t.Parallel()
	record := alignment.PairAnalysisRecord{
		PairIndex: 3,
		Items: []any{
			unit("match", "yes", nil),
			unit("insert", "yes (addition)", nil),
			unit("delete", "yes (deletion)", nil),
			unit("match", "no", nil),
			unit("match", "yes", nil),
		},
	}
	pm := ComputePair(record)

	if pm.ChangedUnitsTotal != 4 {
		t.Fatalf("changed units total = %d, want 4", pm.ChangedUnitsTotal)
	}
	if sum := pm.Changes.Yes + pm.Changes.YesAddition + pm.Changes.YesDeletion; sum != pm.Changes.TotalChanged {
		t.Fatalf("total_changed %d does not equal yes+addition+deletion %d", pm.Changes.TotalChanged, sum)
	}
	if pm.Changes.TotalChanged != pm.ChangedUnitsTotal {
		t.Fatalf("total_changed %d != changed_units_total %d", pm.Changes.TotalChanged, pm.ChangedUnitsTotal)
	}
	if pm.Changes.No != 1 {
		t.Fatalf("no count = %d, want 1", pm.Changes.No)
	}
	if pm.UnitsByType["match"] != 3 || pm.UnitsByType["insert"] != 1 || pm.UnitsByType["delete"] != 1 {
		t.Fatalf("units_by_type = %v", pm.UnitsByType)
	}
	if pm.ChangedUnitsByType["match"] != 2 {
		t.Fatalf("changed match count = %d, want 2", pm.ChangedUnitsByType["match"])
	}
}

// Unchanged units must contribute nothing beyond the "no" tally and the
// units_total base: dropping them changes only those two numbers.
func TestUnchangedUnitsDoNotMoveCounters(t *testing.T) {
	t.Parallel()
	changed := []any{
		unit("match", "yes", map[string]any{
			"semantic impact":                  "major",
			"overall importance of the change": "Important - corrected a figure",
			"grammar change":                   "yes",
			"POS category changed":             []any{"NUM"},
			"verbal changes":                   []any{"tense"},
			"rewritten":                        true,
		}),
	}
	noise := []any{
		unit("match", "no", map[string]any{
			"semantic impact":                  "major",
			"overall importance of the change": "Important - should never be counted",
			"grammar change":                   "yes",
			"POS category changed":             []any{"NUM", "VERB"},
			"verbal changes":                   []any{"voice"},
			"rewritten":                        true,
		}),
	}

	with := ComputePair(alignment.PairAnalysisRecord{Items: append(append([]any{}, changed...), noise...)})
	without := ComputePair(alignment.PairAnalysisRecord{Items: changed})

	// Strip the fields legitimately affected by the extra units.
	with.UnitsTotal, without.UnitsTotal = 0, 0
	with.UnitsM1Nonnull, without.UnitsM1Nonnull = 0, 0
	with.UnitsM2Nonnull, without.UnitsM2Nonnull = 0, 0
	with.UnitsByType, without.UnitsByType = nil, nil
	with.Changes.No, without.Changes.No = 0, 0
	with.LLMFields.TextualDifferences, without.LLMFields.TextualDifferences = nil, nil
	with.LLMFields.Bases.UnitsTotal, without.LLMFields.Bases.UnitsTotal = 0, 0

	if !reflect.DeepEqual(with, without) {
		t.Fatalf("unchanged units leaked into counters:\nwith:    %+v\nwithout: %+v", with, without)
	}
	if without.LLMFields.SemanticImpact["major"] != 1 {
		t.Fatalf("semantic impact = %v", without.LLMFields.SemanticImpact)
	}
	if without.LLMFields.POSCategoryChanged["NUM"] != 1 || without.LLMFields.POSCategoryChanged["VERB"] != 0 {
		t.Fatalf("pos counters = %v", without.LLMFields.POSCategoryChanged)
	}
	if without.VerbalFlags["tense"] != 1 || without.VerbalFlags["voice"] != 0 {
		t.Fatalf("verbal flags = %v", without.VerbalFlags)
	}
	if without.LLMFields.Rewritten["true"] != 1 {
		t.Fatalf("rewritten = %v", without.LLMFields.Rewritten)
	}
}

func TestImportancePrefixMatching(t *testing.T) {
	t.Parallel()
	record := alignment.PairAnalysisRecord{Items: []any{
		unit("match", "yes", map[string]any{"overall importance of the change": "Important - key fact changed"}),
		unit("match", "yes", map[string]any{"overall importance of the change": "important - lowercase still counts"}),
		unit("match", "yes", map[string]any{"overall importance of the change": "Not important - typo fix"}),
		unit("match", "yes", map[string]any{"overall importance of the change": "unclear"}),
		unit("match", "yes", map[string]any{"overall importance of the change": nil}),
	}}
	pm := ComputePair(record)

	if pm.Changes.Important != 2 || pm.Changes.NotImportant != 1 || pm.Changes.UnknownImportanceAmongChanged != 2 {
		t.Fatalf("importance split = %d/%d/%d", pm.Changes.Important, pm.Changes.NotImportant, pm.Changes.UnknownImportanceAmongChanged)
	}
	io := pm.LLMFields.ImportanceOverall
	if io.Important != 2 || io.NotImportant != 1 || io.Unknown != 2 {
		t.Fatalf("importance_overall = %+v", io)
	}
}

func TestTimestampsAndDelta(t *testing.T) {
	t.Parallel()
	record := alignment.PairAnalysisRecord{
		PairIndex:   1,
		MetadataOld: map[string]any{"warc-date": "2014-03-01T00:00:00Z"},
		MetadataNew: map[string]any{"warc-date": "2014-03-01T06:30:00Z"},
		Items:       []any{unit("match", "yes", nil)},
	}
	pm := ComputePair(record)
	if pm.TimestampOld == nil || *pm.TimestampOld != "2014-03-01T00:00:00Z" {
		t.Fatalf("timestamp_old = %v", pm.TimestampOld)
	}
	if pm.DeltaHours == nil || *pm.DeltaHours != 6.5 {
		t.Fatalf("delta_hours = %v", pm.DeltaHours)
	}

	record.MetadataNew = map[string]any{"warc-date": "garbage"}
	pm = ComputePair(record)
	if pm.TimestampNew != nil || pm.DeltaHours != nil {
		t.Fatalf("expected nil timestamp_new and delta, got %v / %v", pm.TimestampNew, pm.DeltaHours)
	}
}

func TestBuildSummaryFolds(t *testing.T) {
	t.Parallel()
	a := ComputePair(alignment.PairAnalysisRecord{Items: []any{
		unit("match", "yes", map[string]any{"semantic impact": "major"}),
		unit("insert", "yes (addition)", nil),
	}})
	b := ComputePair(alignment.PairAnalysisRecord{Items: []any{
		unit("match", "no", nil),
		unit("delete", "yes (deletion)", map[string]any{"semantic impact": "major"}),
	}})

	s := BuildSummary([]PairMetrics{a, b})
	if s.PairsTotal != 2 || s.UnitsTotal != 4 {
		t.Fatalf("pairs=%d units=%d", s.PairsTotal, s.UnitsTotal)
	}
	if s.ChangedUnitsTotal != 3 || s.Changes.TotalChanged != 3 {
		t.Fatalf("changed totals = %d/%d", s.ChangedUnitsTotal, s.Changes.TotalChanged)
	}
	if s.Semantic["major"] != 2 || s.Semantic["minor"] != 1 {
		t.Fatalf("semantic = %v", s.Semantic)
	}
	if s.UnitsByType["insert"] != 1 || s.UnitsByType["delete"] != 1 || s.UnitsByType["match"] != 2 {
		t.Fatalf("units_by_type = %v", s.UnitsByType)
	}
	if s.LLMFields.Bases.UnitsTotal != 4 || s.LLMFields.Bases.ChangedUnitsTotal != 3 {
		t.Fatalf("bases = %+v", s.LLMFields.Bases)
	}
}

func TestSortPairMetrics(t *testing.T) {
	t.Parallel()
	ts := func(s string) *string { return &s }
	pairs := []PairMetrics{
		{PairIndex: 2, TimestampNew: ts("2014-02-01T00:00:00Z")},
		{PairIndex: 5, TimestampNew: nil},
		{PairIndex: 1, TimestampNew: ts("2014-01-01T00:00:00Z")},
		{PairIndex: 0, TimestampNew: ts("2014-02-01T00:00:00Z")},
	}
	SortPairMetrics(pairs)
	got := []int{pairs[0].PairIndex, pairs[1].PairIndex, pairs[2].PairIndex, pairs[3].PairIndex}
	want := []int{5, 1, 0, 2}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("sort order = %v, want %v", got, want)
	}
}

func TestRunAllWritesMetricsArtifact(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	docDir := filepath.Join(root, "example.com_story")
	if err := os.MkdirAll(docDir, 0o755); err != nil {
		t.Fatal(err)
	}
	record := alignment.PairAnalysisRecord{
		PairIndex:     0,
		NSentencesOld: 2,
		NSentencesNew: 2,
		MetadataOld:   map[string]any{"warc-date": "2014-03-01T00:00:00Z"},
		MetadataNew:   map[string]any{"warc-date": "2014-03-02T00:00:00Z"},
		Items:         []any{unit("match", "yes", nil), unit("match", "no", nil)},
	}
	if err := analysis.WriteRecord(filepath.Join(docDir, "0000.json"), record); err != nil {
		t.Fatal(err)
	}

	logger := log.New(os.Stdout, "[TEST] ", log.LstdFlags)
	if err := RunAll(root, logger); err != nil {
		t.Fatalf("RunAll: %v", err)
	}

	doc, err := ReadDocument(docDir)
	if err != nil {
		t.Fatalf("ReadDocument: %v", err)
	}
	if doc.Summary.PairsTotal != 1 || doc.Summary.ChangedUnitsTotal != 1 {
		t.Fatalf("summary = %+v", doc.Summary)
	}
	if len(doc.PerPair) != 1 || doc.PerPair[0].PairIndex != 0 {
		t.Fatalf("per_pair = %+v", doc.PerPair)
	}
	if doc.PerPair[0].DeltaHours == nil || *doc.PerPair[0].DeltaHours != 24 {
		t.Fatalf("delta_hours = %v", doc.PerPair[0].DeltaHours)
	}

	// Recomputing must not pick up the metrics dir as a pair artifact.
	if err := RunAll(root, logger); err != nil {
		t.Fatalf("second RunAll: %v", err)
	}
	doc2, err := ReadDocument(docDir)
	if err != nil {
		t.Fatal(err)
	}
	if doc2.Summary.PairsTotal != 1 {
		t.Fatalf("pairs after recompute = %d, want 1", doc2.Summary.PairsTotal)
	}
}
