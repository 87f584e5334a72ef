// Package search maintains a bleve index over assessed change units so the
// analysis output can be queried by keyword ("which changes mention the
// casualty count?") without re-reading every pair artifact.
package search

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/blevesearch/bleve"

	"github.com/mementolab/driftwatch/internal/alignment"
	"github.com/mementolab/driftwatch/internal/analysis"
	"github.com/mementolab/driftwatch/internal/metrics"
)

// Unit is one indexed change unit. All fields are stored so hits can be
// rendered without going back to the pair artifacts.
type Unit struct {
	Document    string `json:"document"`
	PairIndex   int    `json:"pair_index"`
	UnitIndex   int    `json:"unit_index"`
	Type        string `json:"type"`
	SentenceOld string `json:"sentence_old"`
	SentenceNew string `json:"sentence_new"`
	DiffSummary string `json:"diff_summary"`
	Assessment  string `json:"assessment"`
	Importance  string `json:"importance"`
}

// Hit is one search result.
type Hit struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
	Rank  int     `json:"rank"`
	Unit  Unit    `json:"unit"`
}

// Index wraps the bleve index.
type Index struct {
	bleve bleve.Index
}

// Open opens the index at path, creating it when absent. Pass "" for an
// in-memory index.
func Open(path string) (*Index, error) {
	if path == "" {
		ix, err := bleve.NewMemOnly(bleve.NewIndexMapping())
		if err != nil {
			return nil, err
		}
		return &Index{bleve: ix}, nil
	}
	if _, err := os.Stat(path); err == nil {
		ix, err := bleve.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open index: %w", err)
		}
		return &Index{bleve: ix}, nil
	}
	ix, err := bleve.New(path, bleve.NewIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}
	return &Index{bleve: ix}, nil
}

// Close releases the underlying index.
func (ix *Index) Close() error { return ix.bleve.Close() }

func unitID(u Unit) string {
	return fmt.Sprintf("%s:%04d:%03d", u.Document, u.PairIndex, u.UnitIndex)
}

// Add indexes one change unit.
func (ix *Index) Add(u Unit) error {
	return ix.bleve.Index(unitID(u), u)
}

// IndexAnalysisRoot walks the analysis output tree and indexes every
// changed unit of every pair artifact. Returns the number of units indexed.
func (ix *Index) IndexAnalysisRoot(root string, logger *log.Logger) (int, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return 0, fmt.Errorf("read analysis root: %w", err)
	}
	total := 0
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		docDir := filepath.Join(root, e.Name())
		pairFiles, err := os.ReadDir(docDir)
		if err != nil {
			return total, err
		}
		names := make([]string, 0, len(pairFiles))
		for _, pf := range pairFiles {
			if pf.IsDir() || !strings.HasSuffix(pf.Name(), ".json") {
				continue
			}
			names = append(names, pf.Name())
		}
		sort.Strings(names)
		for _, name := range names {
			record, err := analysis.ReadRecord(filepath.Join(docDir, name))
			if err != nil {
				if logger != nil {
					logger.Printf("WARNING: skipping %s/%s: %v", e.Name(), name, err)
				}
				continue
			}
			n, err := ix.indexRecord(e.Name(), record)
			if err != nil {
				return total, err
			}
			total += n
		}
		if logger != nil {
			logger.Printf("indexed %s", e.Name())
		}
	}
	return total, nil
}

func (ix *Index) indexRecord(document string, record alignment.PairAnalysisRecord) (int, error) {
	n := 0
	for i, item := range record.Items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		a, _ := m["assessment"].(map[string]any)
		if a == nil {
			continue
		}
		if !metrics.IsChangedLabel(str(a["textual differences"])) {
			continue
		}
		u := Unit{
			Document:    document,
			PairIndex:   record.PairIndex,
			UnitIndex:   i,
			Type:        str(m["type"]),
			SentenceOld: str(alignment.SentenceField(item, "M1")),
			SentenceNew: str(alignment.SentenceField(item, "M2")),
			DiffSummary: str(a["version diff summary"]),
			Assessment:  str(a["overall assessment"]),
			Importance:  str(a["overall importance of the change"]),
		}
		if err := ix.Add(u); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

// Search runs a query-string query and returns up to k hits with their
// stored unit fields rehydrated.
func (ix *Index) Search(q string, k int) ([]Hit, error) {
	query := bleve.NewQueryStringQuery(q)
	req := bleve.NewSearchRequestOptions(query, k*3, 0, false)
	req.Fields = []string{"*"}
	res, err := ix.bleve.Search(req)
	if err != nil {
		return nil, err
	}
	var out []Hit
	for i, hit := range res.Hits {
		out = append(out, Hit{
			ID:    hit.ID,
			Score: hit.Score,
			Rank:  i + 1,
			Unit: Unit{
				Document:    str(hit.Fields["document"]),
				PairIndex:   asInt(hit.Fields["pair_index"]),
				UnitIndex:   asInt(hit.Fields["unit_index"]),
				Type:        str(hit.Fields["type"]),
				SentenceOld: str(hit.Fields["sentence_old"]),
				SentenceNew: str(hit.Fields["sentence_new"]),
				DiffSummary: str(hit.Fields["diff_summary"]),
				Assessment:  str(hit.Fields["assessment"]),
				Importance:  str(hit.Fields["importance"]),
			},
		})
		if len(out) >= k {
			break
		}
	}
	return out, nil
}

func asInt(v any) int {
	f, _ := v.(float64)
	return int(f)
}

// Snippet trims text for result rendering.
func Snippet(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if len(text) > 200 {
		return text[:200] + "..."
	}
	return text
}
