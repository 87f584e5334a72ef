// Package analysis drives the per-document, per-pair collection loop:
// change detection, the alignment request, and atomic persistence of one
// analysis artifact per eligible snapshot pair.
package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mementolab/driftwatch/internal/alignment"
	"github.com/mementolab/driftwatch/internal/config"
	"github.com/mementolab/driftwatch/internal/memento"
	"github.com/mementolab/driftwatch/internal/telemetry"
)

// PairAnalyzer obtains the aligned-unit array for one snapshot pair.
type PairAnalyzer interface {
	AlignAndAssess(ctx context.Context, oldText, newText string) ([]any, error)
}

// Runner walks a dataset directory and produces per-pair analysis artifacts
// under <analysis_dir>/<slug>/<pair_index>.json.
type Runner struct {
	cfg      config.PipelineConfig
	analyzer PairAnalyzer
	tele     *telemetry.Telemetry
	logger   *log.Logger
	runID    string
}

// NewRunner creates a Runner. Telemetry may be nil; a nil logger falls back
// to the default writer.
func NewRunner(cfg config.PipelineConfig, analyzer PairAnalyzer, tele *telemetry.Telemetry, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.New(log.Writer(), "[ANALYZE] ", log.LstdFlags)
	}
	return &Runner{
		cfg:      cfg,
		analyzer: analyzer,
		tele:     tele,
		logger:   logger,
		runID:    uuid.NewString(),
	}
}

// Run processes every dataset file in order. Document and pair failures are
// logged and isolated; Run only returns an error when the dataset directory
// itself is unreadable or the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	entries, err := os.ReadDir(r.cfg.DatasetDir)
	if err != nil {
		return fmt.Errorf("read dataset dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	r.logger.Printf("run %s: %d dataset files under %s", r.runID, len(names), r.cfg.DatasetDir)
	for i, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.ProcessDocument(ctx, filepath.Join(r.cfg.DatasetDir, name)); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.logger.Printf("skipping %s: %v", name, err)
		}
		if r.cfg.FilePause > 0 && i < len(names)-1 {
			select {
			case <-time.After(r.cfg.FilePause):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return nil
}

// ProcessDocument analyzes every eligible adjacent snapshot pair of one
// dataset file. A pair that fails during the request phase leaves no
// artifact, so re-runs pick it up again.
func (r *Runner) ProcessDocument(ctx context.Context, path string) error {
	snaps, err := memento.LoadDataset(path)
	if err != nil {
		return err
	}
	if len(snaps) < 2 {
		return nil
	}

	base := strings.TrimSuffix(filepath.Base(path), ".json")
	slug := memento.DocumentSlug(snaps, base)
	outDir := filepath.Join(r.cfg.AnalysisDir, slug)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	r.logger.Printf("processing %s -> %s", path, outDir)

	for i := 0; i < len(snaps)-1; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		pairIndex := i
		if pairIndex < r.cfg.StartPairIndex {
			continue
		}
		outFile := filepath.Join(outDir, fmt.Sprintf("%04d.json", pairIndex))
		if _, err := os.Stat(outFile); err == nil {
			r.skip()
			continue
		}

		older, newer := snaps[i], snaps[i+1]
		if strings.TrimSpace(older.Text) == "" || strings.TrimSpace(newer.Text) == "" {
			r.logger.Printf("%s pair %d: missing text fields", slug, pairIndex)
			r.skip()
			continue
		}
		if !memento.HasChange(older.Text, newer.Text) {
			r.skip()
			continue
		}

		items, err := r.analyzer.AlignAndAssess(ctx, older.Text, newer.Text)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.logger.Printf("%s pair %d: analysis failed: %v", slug, pairIndex, err)
			if r.tele != nil {
				r.tele.PairsFailed.Inc()
			}
			continue
		}

		record := alignment.PairAnalysisRecord{
			PairIndex:     pairIndex,
			NSentencesOld: countPresent(items, "M1"),
			NSentencesNew: countPresent(items, "M2"),
			MetadataOld:   older.Metadata,
			MetadataNew:   newer.Metadata,
			Items:         items,
		}
		if err := WriteRecord(outFile, record); err != nil {
			r.logger.Printf("%s pair %d: persist failed: %v", slug, pairIndex, err)
			if r.tele != nil {
				r.tele.PairsFailed.Inc()
			}
			continue
		}
		r.logger.Printf("%s pair %d: saved %s", slug, pairIndex, outFile)
		if r.tele != nil {
			r.tele.PairsOK.Inc()
		}
	}
	return nil
}

func (r *Runner) skip() {
	if r.tele != nil {
		r.tele.PairsSkipped.Inc()
	}
}

func countPresent(items []any, side string) int {
	n := 0
	for _, it := range items {
		if alignment.Present(alignment.SentenceField(it, side)) {
			n++
		}
	}
	return n
}

// WriteRecord persists a pair analysis record atomically: the JSON is
// staged in a temp file in the target directory and renamed into place, so
// interrupted runs never leave partial artifacts.
func WriteRecord(path string, record alignment.PairAnalysisRecord) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".pair-*.tmp")
	if err != nil {
		return fmt.Errorf("stage record: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close record: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("publish record: %w", err)
	}
	return nil
}

// ReadRecord loads a persisted pair analysis record.
func ReadRecord(path string) (alignment.PairAnalysisRecord, error) {
	var record alignment.PairAnalysisRecord
	data, err := os.ReadFile(path)
	if err != nil {
		return record, fmt.Errorf("read record: %w", err)
	}
	if err := json.Unmarshal(data, &record); err != nil {
		return record, fmt.Errorf("parse record %s: %w", path, err)
	}
	return record, nil
}
