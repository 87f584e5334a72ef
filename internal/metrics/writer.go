package metrics

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mementolab/driftwatch/internal/analysis"
)

// MetricsDirName is the per-document subdirectory holding derived metrics,
// excluded from pair-artifact discovery.
const MetricsDirName = "metrics"

// MetricsFileName is the artifact each document's metrics are written to.
const MetricsFileName = "metrics.json"

// ComputeDocument reads every pair artifact under docDir, reduces each to
// its PairMetrics, sorts chronologically and folds the summary. Artifacts
// that fail to parse are skipped with a log line rather than aborting the
// document.
func ComputeDocument(docDir string, logger *log.Logger) (Document, error) {
	entries, err := os.ReadDir(docDir)
	if err != nil {
		return Document{}, fmt.Errorf("read document dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	pairs := make([]PairMetrics, 0, len(names))
	for _, name := range names {
		record, err := analysis.ReadRecord(filepath.Join(docDir, name))
		if err != nil {
			if logger != nil {
				logger.Printf("WARNING: skipping %s: %v", filepath.Join(docDir, name), err)
			}
			continue
		}
		pairs = append(pairs, ComputePair(record))
	}
	SortPairMetrics(pairs)
	return Document{Summary: BuildSummary(pairs), PerPair: pairs}, nil
}

// WriteDocument persists a document's metrics to
// docDir/metrics/metrics.json via a temp file and rename.
func WriteDocument(docDir string, doc Document) error {
	outDir := filepath.Join(docDir, MetricsDirName)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create metrics dir: %w", err)
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal metrics: %w", err)
	}
	tmp, err := os.CreateTemp(outDir, ".metrics-*.tmp")
	if err != nil {
		return fmt.Errorf("stage metrics: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write metrics: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close metrics: %w", err)
	}
	return os.Rename(tmp.Name(), filepath.Join(outDir, MetricsFileName))
}

// ReadDocument loads a previously written metrics artifact.
func ReadDocument(docDir string) (Document, error) {
	var doc Document
	data, err := os.ReadFile(filepath.Join(docDir, MetricsDirName, MetricsFileName))
	if err != nil {
		return doc, fmt.Errorf("read metrics: %w", err)
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("parse metrics: %w", err)
	}
	return doc, nil
}

// RunAll computes and writes metrics for every document directory under the
// analysis root. Document directories with no pair artifacts still get a
// metrics file with zero pairs.
func RunAll(analysisRoot string, logger *log.Logger) error {
	entries, err := os.ReadDir(analysisRoot)
	if err != nil {
		return fmt.Errorf("read analysis root: %w", err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		docDir := filepath.Join(analysisRoot, e.Name())
		doc, err := ComputeDocument(docDir, logger)
		if err != nil {
			return err
		}
		if err := WriteDocument(docDir, doc); err != nil {
			return err
		}
		if logger != nil {
			logger.Printf("metrics: %s pairs=%d changed_units=%d", e.Name(), doc.Summary.PairsTotal, doc.Summary.ChangedUnitsTotal)
		}
	}
	return nil
}
