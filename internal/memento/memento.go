// Package memento models archived article snapshots ("mementos") and the
// dataset files produced by the Wayback retriever: one JSON array per
// document, each element carrying the extracted article text and the WARC
// capture metadata.
package memento

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"
)

// Snapshot is one archived capture of a document's text.
type Snapshot struct {
	Text     string
	Metadata map[string]any
}

// WarcDate returns the raw capture timestamp string, or "" when absent.
func (s Snapshot) WarcDate() string {
	if v, ok := s.Metadata["warc-date"].(string); ok {
		return v
	}
	return ""
}

// URL returns the canonical source URL from the metadata, checking
// warc-target-uri, url and target-uri in that order.
func (s Snapshot) URL() string {
	for _, key := range []string{"warc-target-uri", "url", "target-uri"} {
		if v, ok := s.Metadata[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	schemeRe     = regexp.MustCompile(`https?://`)
	unsafeRe     = regexp.MustCompile(`[^a-z0-9\-_\.]+`)
	underscoreRe = regexp.MustCompile(`_+`)
	sentenceRe   = regexp.MustCompile(`(?:[\.\?\!])\s+|\n+`)
)

// Normalize lowercases text and collapses all whitespace runs to single
// spaces so that cosmetic edits do not register as changes.
func Normalize(text string) string {
	t := strings.ToLower(text)
	t = whitespaceRe.ReplaceAllString(t, " ")
	return strings.TrimSpace(t)
}

// HasChange reports whether two texts differ after normalization.
func HasChange(oldText, newText string) bool {
	return Normalize(oldText) != Normalize(newText)
}

// RoughSentenceSplit splits text on sentence-final punctuation followed by
// whitespace, or on newlines. It is deliberately crude: the counts only feed
// the output-cardinality bounds handed to the model.
func RoughSentenceSplit(text string) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	var parts []string
	last := 0
	for _, loc := range sentenceRe.FindAllStringIndex(trimmed, -1) {
		// Keep the punctuation with the sentence it terminates.
		end := loc[0]
		if end < len(trimmed) && (trimmed[end] == '.' || trimmed[end] == '?' || trimmed[end] == '!') {
			end++
		}
		parts = append(parts, trimmed[last:end])
		last = loc[1]
	}
	parts = append(parts, trimmed[last:])

	out := parts[:0]
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// RoughSentenceCount returns the number of rough sentences in text.
func RoughSentenceCount(text string) int {
	return len(RoughSentenceSplit(text))
}

// Slugify derives a filesystem-safe directory name from a canonical URL:
// lowercased, scheme stripped, runs outside [a-z0-9._-] collapsed to single
// underscores, truncated to maxLen. Empty input yields "unknown_link".
func Slugify(s string, maxLen int) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = schemeRe.ReplaceAllString(s, "")
	s = unsafeRe.ReplaceAllString(s, "_")
	s = underscoreRe.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if s == "" {
		return "unknown_link"
	}
	if len(s) > maxLen {
		s = s[:maxLen]
	}
	return s
}

// warcDateFormats are the accepted capture-timestamp layouts, tried in
// order. The canonical Z-suffixed form comes first.
var warcDateFormats = []string{
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05-07:00",
	"2006-01-02 15:04:05-07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseWarcDate parses a capture timestamp into UTC. The zero time and
// false are returned when no accepted layout matches.
func ParseWarcDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range warcDateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// ISOOrEmpty formats t as the canonical UTC ISO-8601 form, or "" when the
// parse flag is false.
func ISOOrEmpty(t time.Time, ok bool) string {
	if !ok {
		return ""
	}
	return t.UTC().Format("2006-01-02T15:04:05Z")
}

// rawRecord mirrors the two accepted dataset record shapes:
// {"article":{"text":...},"metadata":{...}} and {"text":...,"metadata":{...}}.
type rawRecord struct {
	Article *struct {
		Text string `json:"text"`
	} `json:"article"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata"`
}

func (r rawRecord) snapshot() Snapshot {
	text := ""
	if r.Article != nil {
		text = r.Article.Text
	}
	if text == "" {
		text = r.Text
	}
	meta := r.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	return Snapshot{Text: text, Metadata: meta}
}

// LoadDataset reads one document's snapshot collection from a dataset JSON
// file and returns it sorted by raw warc-date (lexicographic ISO ordering,
// which matches chronological order for the normalized UTC form).
func LoadDataset(path string) ([]Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	var raws []rawRecord
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("parse dataset %s: %w", path, err)
	}
	snaps := make([]Snapshot, 0, len(raws))
	for _, r := range raws {
		snaps = append(snaps, r.snapshot())
	}
	sort.SliceStable(snaps, func(i, j int) bool {
		return snaps[i].WarcDate() < snaps[j].WarcDate()
	})
	return snaps, nil
}

// DocumentSlug picks the first snapshot with a usable URL and slugifies it;
// when no snapshot carries one it falls back to the given name.
func DocumentSlug(snaps []Snapshot, fallback string) string {
	for _, s := range snaps {
		if u := s.URL(); u != "" {
			return Slugify(u, 120)
		}
	}
	return Slugify(fallback, 120)
}
