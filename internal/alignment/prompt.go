package alignment

import (
	"fmt"
	"strings"
)

// Bounds computes the inclusive output-cardinality bound for an aligned-unit
// array: [max(n1,n2), n1+n2] over the rough sentence counts of the two texts.
func Bounds(n1, n2 int) (minItems, maxItems int) {
	minItems = n1
	if n2 > n1 {
		minItems = n2
	}
	return minItems, n1 + n2
}

// BuildPrompt constructs the alignment-and-assessment instruction for one
// snapshot pair. It enumerates the closed value set of every assessment
// field, states the hard output-cardinality bound, and embeds both texts
// verbatim. Pure function of its inputs.
func BuildPrompt(m1Text, m2Text string, minItems, maxItems int) string {
	var b strings.Builder
	b.WriteString("You will receive two mementos (M1, M2). Let's Think Step by Step\n" +
		"Perform these tasks internally (do NOT reveal steps):\n" +
		"1) Split both mementos into sentences.\n" +
		"2) Align sentences into operations: match / insert / delete\n" +
		"3) For each aligned unit, output ONE JSON object with:\n" +
		"   - 'type': one of ['match','insert','delete','split','merge']\n" +
		"   - 'sentences': { M1: <string|null>, M2: <string|null> } (copy verbatim; use null for missing side)\n" +
		"   - 'assessment': {\n" +
		"       'textual differences': 'yes' | 'no' | 'yes (addition)' | 'yes (deletion)',\n" +
		"       'POS category changed': [], or any of ['VERB','NOUN','PROPN','ADJ','NUM','ADV'],\n" +
		"       'NER category changed': [], or any of ['PERSON','ORG','GPE','LOC','DATE','MONEY','PERCENT'],\n" +
		"       'grammar change': 'yes' | 'no',\n" +
		"       'verbal changes': [], or any of ['tense','aspect','voice','modality'],\n" +
		"       'rewritten': true | false,\n" +
		"       'semantic impact': 'NA' | 'low' | 'moderate' | 'high',\n" +
		"       'sentiment before': one of ['Very Negative','Negative','Neutral','Positive','Very Positive'],\n" +
		"       'sentiment after': one of ['Very Negative','Negative','Neutral','Positive','Very Positive'],\n" +
		"       'sentiment change direction': one of ['more positive','no change','more negative'],\n" +
		"       'overall importance of the change': 'Important - <why>' or 'Not important - <why>',\n" +
		"       'importance category': short free-text label (e.g., 'major wording','temporal anchoring','numerical update','named-entity change','attribution/hedging','policy implication', etc.),\n" +
		"       'importance reason': 1-2 sentences explaining why the change matters,\n" +
		"       'literature rationale': brief paragraph (2-4 sentences) grounding the category in relevant scholarly areas (journalism studies, credibility, HCI change perception, fact-checking, temporal reasoning),\n" +
		"       'version diff summary': concise 1-2 sentence summary of what changed between M1 and M2,\n" +
		"       'overall assessment': a concise 2-4 sentence synthesis combining textual differences, POS/NER changes, grammar/verb changes, rewritten, semantic impact, sentiments and direction, and overall importance.\n" +
		"     }\n" +
		"\n" +
		"DEFINITIONS & RULES (be strict):\n" +
		"* 'textual differences':\n" +
		"   - 'yes (addition)' if M1 is null and M2 has text.\n" +
		"   - 'yes (deletion)' if M2 is null and M1 has text.\n" +
		"   - 'yes' if both sides exist but wording differs; 'no' only if strings are identical (ignoring trivial whitespace).\n" +
		"\n" +
		"* 'POS category changed' (select ALL that apply; use [] if none):\n" +
		"   - VERB: change in main verb(s) or auxiliaries that alter verb lexeme or form (e.g., 'was'->'is', 'support'->'oppose').\n" +
		"   - NOUN: change/add/remove a common noun head or key nominal (e.g., 'protests'->'riots').\n" +
		"   - PROPN: addition/removal/change of a proper name/title (e.g., 'Mr. Mubarak', 'Apple').\n" +
		"   - ADJ: change in an attributive/predicative adjective affecting description/intensity (e.g., 'severe'->'mild').\n" +
		"   - NUM: numbers or quantities (e.g., '3'->'5', 'thousands'->'dozens').\n" +
		"   - ADV: adverbs that change manner, time, degree or negation (e.g., 'allegedly', 'no longer').\n" +
		"\n" +
		"* 'NER category changed' (select ALL that apply; use [] if none):\n" +
		"   - PERSON (named individual), ORG (organization), GPE (countries/cities/polities), LOC (non-GPE locations),\n" +
		"     DATE (dates/periods like 'June 5', 'beginning of the month'), MONEY, PERCENT.\n" +
		"\n" +
		"* 'grammar change': 'yes' when there are grammatical/orthographic edits NOT captured by POS/NER lists, e.g.,\n" +
		"   articles/determiners, prepositions, conjunctions, agreement/number (singular/plural), word order micro-edits,\n" +
		"   punctuation/capitalization/hyphenation, and spelling variants. If POS/NER changes also occurred, still set 'yes'.\n" +
		"\n" +
		"* 'verbal changes' (pick all that apply; [] if none):\n" +
		"   - tense (time: present/past/future; e.g., 'have been'->'had been'),\n" +
		"   - aspect (progressive/perfect; e.g., 'is investigating'->'has investigated'),\n" +
		"   - voice (active<->passive),\n" +
		"   - modality (may/might/should/must/likely/allegedly).\n" +
		"\n" +
		"* 'rewritten': true if structure/order is substantially rephrased beyond minor edits.\n" +
		"   False when changes are local without structural rephrasing.\n" +
		"\n" +
		"* 'semantic impact' (does the *meaning, interpretation or factual content* change?):\n" +
		"   - NA: Not applicable if there are no changes.\n" +
		"   - low: equivalent meaning; no new facts/specificity.\n" +
		"   - moderate: added specificity/hedging/attribution that refines but does not contradict core facts.\n" +
		"   - high: Meaning is not equivalent or facts/claims/entities/numbers/dates change; reversals/contradictions; materially new information.\n" +
		"\n" +
		"* SENTIMENT CATEGORIES (analyze each side independently):\n" +
		"   - Very Negative: highly unfavorable, strongly critical, or alarming polarity with clear negative intensity.\n" +
		"   - Negative: unfavorable, critical, or disapproving polarity, but less intense than Very Negative.\n" +
		"   - Neutral: factual, descriptive, or balanced expression with no clear positive or negative polarity.\n" +
		"   - Positive: favorable, approving, or supportive polarity, but less intense than Very Positive.\n" +
		"   - Very Positive: highly favorable, strongly approving, or enthusiastic polarity with clear positive intensity.\n" +
		"  Then set 'sentiment change direction' by comparing M1 vs M2: 'more positive', 'no change', or 'more negative'.\n" +
		"\n" +
		"* 'overall importance of the change':\n" +
		"   Mark 'Important' if the change affects meaning in any way, Otherwise 'Not important'\n" +
		"   Use exactly 'Important - ...' or 'Not important - ...' followed by a brief explanation of why.\n" +
		"\n" +
		"* 'importance category': provide a compact, human-readable label (e.g., 'major wording', 'hedging/attribution', etc.).\n" +
		"\n" +
		"* 'literature rationale': briefly connect the category to relevant scholarly areas and literature. Do not cite specific papers; keep it general but academically grounded.\n" +
		"\n")
	fmt.Fprintf(&b, "Constraints: Return a JSON ARRAY ONLY (no prose). The array length must be BETWEEN %d and %d; preserve order; never create an item where both M1 and M2 are null.\n", minItems, maxItems)
	b.WriteString("\nMemento 1 (M1):\n")
	b.WriteString(m1Text)
	b.WriteString("\n\nMemento 2 (M2):\n")
	b.WriteString(m2Text)
	b.WriteString("\n")
	return b.String()
}
