package metrics

import (
	"fmt"
	"strings"

	"github.com/mementolab/driftwatch/internal/alignment"
	"github.com/mementolab/driftwatch/internal/memento"
)

// textual-difference classification kinds.
const (
	tdYes         = "yes"
	tdYesAddition = "yes_addition"
	tdYesDeletion = "yes_deletion"
	tdNo          = "no"
)

// classifyTextualDiff maps a raw textual-difference label onto exactly one
// of the four kinds. Matching is case-insensitive and tolerates both
// "yes (addition)" and "yes addition" spellings; anything unrecognized
// counts as "no".
func classifyTextualDiff(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "yes (addition)", "yes addition":
		return tdYesAddition
	case "yes (deletion)", "yes deletion":
		return tdYesDeletion
	case "yes":
		return tdYes
	default:
		return tdNo
	}
}

// IsChangedLabel reports whether a raw textual-difference label marks a
// changed unit.
func IsChangedLabel(raw string) bool {
	return classifyTextualDiff(raw) != tdNo
}

func startsWithImportant(v any) bool {
	s, ok := v.(string)
	return ok && strings.HasPrefix(strings.ToLower(strings.TrimSpace(s)), "important -")
}

func startsWithNotImportant(v any) bool {
	s, ok := v.(string)
	return ok && strings.HasPrefix(strings.ToLower(strings.TrimSpace(s)), "not important -")
}

// asString renders a value the way the counters key on it; nil becomes "".
func asString(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// asList normalizes a multi-select field: nil and the literal "none"/empty
// string become empty, a list keeps its string elements, and any other
// scalar becomes a single-element list.
func asList(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		var out []string
		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		if s := strings.ToLower(strings.TrimSpace(t)); s == "none" || s == "" {
			return nil
		}
		return []string{t}
	default:
		return []string{fmt.Sprint(t)}
	}
}

func unitAssessment(unit any) map[string]any {
	m, ok := unit.(map[string]any)
	if !ok {
		return map[string]any{}
	}
	a, ok := m["assessment"].(map[string]any)
	if !ok {
		return map[string]any{}
	}
	return a
}

func unitType(unit any) string {
	m, ok := unit.(map[string]any)
	if !ok {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(asString(m["type"])))
}

// ComputePair reduces one pair analysis record to its metrics. Pure and
// idempotent: recomputing from the same persisted record always yields the
// same value.
func ComputePair(record alignment.PairAnalysisRecord) PairMetrics {
	pm := PairMetrics{
		PairIndex:          record.PairIndex,
		UnitsTotal:         len(record.Items),
		UnitsByType:        seeded(unitTypeKeys),
		ChangedUnitsByType: seeded(unitTypeKeys),
		Semantic:           map[string]int{},
		VerbalFlags:        map[string]int{},
		LLMFields:          newLLMFields(),
	}

	for _, it := range record.Items {
		if alignment.Present(alignment.SentenceField(it, "M1")) {
			pm.UnitsM1Nonnull++
		}
		if alignment.Present(alignment.SentenceField(it, "M2")) {
			pm.UnitsM2Nonnull++
		}
	}

	tOld, okOld := memento.ParseWarcDate(asString(record.MetadataOld["warc-date"]))
	tNew, okNew := memento.ParseWarcDate(asString(record.MetadataNew["warc-date"]))
	if okOld {
		s := memento.ISOOrEmpty(tOld, true)
		pm.TimestampOld = &s
	}
	if okNew {
		s := memento.ISOOrEmpty(tNew, true)
		pm.TimestampNew = &s
	}
	if okOld && okNew {
		d := tNew.Sub(tOld).Seconds() / 3600.0
		pm.DeltaHours = &d
	}

	f := &pm.LLMFields
	for _, it := range record.Items {
		itType := unitType(it)
		if _, ok := pm.UnitsByType[itType]; ok {
			pm.UnitsByType[itType]++
		}

		a := unitAssessment(it)
		tdRaw := strings.TrimSpace(asString(a["textual differences"]))
		f.TextualDifferences[tdRaw]++

		switch classifyTextualDiff(tdRaw) {
		case tdYesAddition:
			pm.Changes.YesAddition++
		case tdYesDeletion:
			pm.Changes.YesDeletion++
		case tdYes:
			pm.Changes.Yes++
		default:
			pm.Changes.No++
			continue
		}

		// Everything below only sees changed units.
		pm.ChangedUnitsTotal++

		switch oi := a["overall importance of the change"]; {
		case startsWithImportant(oi):
			pm.Changes.Important++
		case startsWithNotImportant(oi):
			pm.Changes.NotImportant++
		default:
			pm.Changes.UnknownImportanceAmongChanged++
		}

		if _, ok := pm.ChangedUnitsByType[itType]; ok {
			pm.ChangedUnitsByType[itType]++
		}

		if sem := strings.TrimSpace(asString(a["semantic impact"])); sem != "" {
			pm.Semantic[sem]++
			f.SemanticImpact[sem]++
		}

		if sb, ok := a["sentiment before"].(string); ok && sb != "" {
			f.SentimentBefore[sb]++
		}
		if sa, ok := a["sentiment after"].(string); ok && sa != "" {
			f.SentimentAfter[sa]++
		}
		if sd, ok := a["sentiment change direction"].(string); ok && sd != "" {
			f.SentimentChangeDirection[sd]++
		}

		for _, p := range asList(a["POS category changed"]) {
			if _, ok := f.POSCategoryChanged[p]; ok {
				f.POSCategoryChanged[p]++
			}
		}
		for _, n := range asList(a["NER category changed"]) {
			if _, ok := f.NERCategoryChanged[n]; ok {
				f.NERCategoryChanged[n]++
			}
		}

		if gc := strings.ToLower(strings.TrimSpace(asString(a["grammar change"]))); gc == "yes" || gc == "no" {
			f.GrammarChange[gc]++
		}

		for _, v := range asList(a["verbal changes"]) {
			v = strings.ToLower(strings.TrimSpace(v))
			if _, ok := f.VerbalChanges[v]; ok {
				f.VerbalChanges[v]++
			}
		}

		if rw, ok := a["rewritten"].(bool); ok {
			if rw {
				f.Rewritten["true"]++
			} else {
				f.Rewritten["false"]++
			}
		}

		if ic, ok := a["importance category"].(string); ok && strings.TrimSpace(ic) != "" {
			f.ImportanceCategoryFreq[strings.ToLower(strings.TrimSpace(ic))]++
		}
	}

	pm.Changes.TotalChanged = pm.Changes.Yes + pm.Changes.YesAddition + pm.Changes.YesDeletion
	f.ImportanceOverall = ImportanceOverall{
		Important:    pm.Changes.Important,
		NotImportant: pm.Changes.NotImportant,
		Unknown:      pm.Changes.UnknownImportanceAmongChanged,
	}
	f.Bases = Bases{UnitsTotal: pm.UnitsTotal, ChangedUnitsTotal: pm.ChangedUnitsTotal}

	for _, k := range verbalKeys {
		if f.VerbalChanges[k] > 0 {
			pm.VerbalFlags[k] = 1
		} else {
			pm.VerbalFlags[k] = 0
		}
	}
	return pm
}
