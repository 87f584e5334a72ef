package metrics

import "sort"

func sumInto(dst, src map[string]int) {
	for k, v := range src {
		dst[k] += v
	}
}

func addChangeCounts(dst *ChangeCounts, src ChangeCounts) {
	dst.TotalChanged += src.TotalChanged
	dst.Yes += src.Yes
	dst.YesAddition += src.YesAddition
	dst.YesDeletion += src.YesDeletion
	dst.No += src.No
	dst.Important += src.Important
	dst.NotImportant += src.NotImportant
	dst.UnknownImportanceAmongChanged += src.UnknownImportanceAmongChanged
}

func addLLMFields(dst *LLMFields, src LLMFields) {
	sumInto(dst.TextualDifferences, src.TextualDifferences)
	sumInto(dst.SemanticImpact, src.SemanticImpact)
	sumInto(dst.SentimentBefore, src.SentimentBefore)
	sumInto(dst.SentimentAfter, src.SentimentAfter)
	sumInto(dst.SentimentChangeDirection, src.SentimentChangeDirection)
	sumInto(dst.ImportanceCategoryFreq, src.ImportanceCategoryFreq)
	sumInto(dst.POSCategoryChanged, src.POSCategoryChanged)
	sumInto(dst.NERCategoryChanged, src.NERCategoryChanged)
	sumInto(dst.GrammarChange, src.GrammarChange)
	sumInto(dst.VerbalChanges, src.VerbalChanges)
	sumInto(dst.Rewritten, src.Rewritten)
	dst.ImportanceOverall.Important += src.ImportanceOverall.Important
	dst.ImportanceOverall.NotImportant += src.ImportanceOverall.NotImportant
	dst.ImportanceOverall.Unknown += src.ImportanceOverall.Unknown
	dst.Bases.UnitsTotal += src.Bases.UnitsTotal
	dst.Bases.ChangedUnitsTotal += src.Bases.ChangedUnitsTotal
}

// BuildSummary folds per-pair metrics into a document summary. Addition is
// the only operation, so the fold is order-independent.
func BuildSummary(pairs []PairMetrics) Summary {
	s := Summary{
		PairsTotal:         len(pairs),
		UnitsByType:        seeded(unitTypeKeys),
		ChangedUnitsByType: seeded(unitTypeKeys),
		Semantic:           map[string]int{},
		LLMFields:          newLLMFields(),
	}
	for _, pm := range pairs {
		s.UnitsTotal += pm.UnitsTotal
		s.UnitsM1Nonnull += pm.UnitsM1Nonnull
		s.UnitsM2Nonnull += pm.UnitsM2Nonnull
		sumInto(s.UnitsByType, pm.UnitsByType)
		sumInto(s.ChangedUnitsByType, pm.ChangedUnitsByType)
		s.ChangedUnitsTotal += pm.ChangedUnitsTotal
		addChangeCounts(&s.Changes, pm.Changes)
		sumInto(s.Semantic, pm.Semantic)
		addLLMFields(&s.LLMFields, pm.LLMFields)
	}
	return s
}

// SortPairMetrics orders pairs chronologically by new-side timestamp, with
// unparsable timestamps (nil) sorting first as the empty string, and the
// pair index breaking ties.
func SortPairMetrics(pairs []PairMetrics) {
	key := func(pm PairMetrics) string {
		if pm.TimestampNew == nil {
			return ""
		}
		return *pm.TimestampNew
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		ki, kj := key(pairs[i]), key(pairs[j])
		if ki != kj {
			return ki < kj
		}
		return pairs[i].PairIndex < pairs[j].PairIndex
	})
}
