package wayback

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/time/rate"

	"github.com/mementolab/driftwatch/internal/config"
)

// DatasetTitle derives a short document title from an article URL: the
// first three hyphen-separated words of the final path segment, extension
// stripped. Shorter slugs are used whole.
func DatasetTitle(rawURL string) string {
	slug := strings.TrimRight(rawURL, "/")
	if i := strings.LastIndex(slug, "/"); i >= 0 {
		slug = slug[i+1:]
	}
	if i := strings.Index(slug, "."); i >= 0 {
		slug = slug[:i]
	}
	words := strings.Split(slug, "-")
	if len(words) >= 3 {
		return strings.Join(words[:3], "-")
	}
	return slug
}

// DatasetPath is the version file a document's records accumulate in.
func DatasetPath(datasetDir, title string) string {
	return filepath.Join(datasetDir, title+"_all_versions.json")
}

// AppendRecord loads the dataset file (or starts a fresh array), appends
// the record and rewrites the file atomically. A corrupt existing file is
// replaced rather than aborting the crawl.
func AppendRecord(path string, record Record) error {
	var records []Record
	if data, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(data, &records); err != nil {
			records = nil
		}
	}
	records = append(records, record)

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal dataset: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".dataset-*.tmp")
	if err != nil {
		return fmt.Errorf("stage dataset: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write dataset: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close dataset: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

// Retriever drives the full snapshot crawl: CDX discovery, per-capture
// extraction and dataset accumulation, one article URL at a time.
type Retriever struct {
	cfg       config.RetrieveConfig
	cdx       *CDXClient
	extractor *Extractor
	limiter   *rate.Limiter
	logger    *log.Logger
}

// NewRetriever wires a retriever from retrieval settings.
func NewRetriever(cfg config.RetrieveConfig, logger *log.Logger) *Retriever {
	cfg = cfg.Normalize()
	return &Retriever{
		cfg:       cfg,
		cdx:       NewCDXClient(cfg, logger),
		extractor: NewExtractor(&http.Client{Timeout: cfg.FetchTimeout}),
		limiter:   rate.NewLimiter(rate.Every(cfg.RequestSpacing), 1),
		logger:    logger,
	}
}

// RetrieveAll crawls every article URL into datasetDir. Failures on a
// single URL or capture are logged and skipped so one dead memento does not
// abort a long crawl.
func (r *Retriever) RetrieveAll(ctx context.Context, urls []string, datasetDir string) error {
	if err := os.MkdirAll(datasetDir, 0o755); err != nil {
		return fmt.Errorf("create dataset dir: %w", err)
	}
	for _, target := range urls {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.retrieveOne(ctx, target, datasetDir); err != nil {
			if ctx.Err() != nil {
				return err
			}
			r.logger.Printf("WARNING: retrieval failed for %s: %v", target, err)
		}
	}
	return nil
}

func (r *Retriever) retrieveOne(ctx context.Context, target, datasetDir string) error {
	title := DatasetTitle(target)
	captures, err := r.cdx.Captures(ctx, target, r.cfg.FromDate, r.cfg.ToDate)
	if err != nil {
		return err
	}
	first, last, ok := CaptureRange(captures)
	if !ok {
		r.logger.Printf("no captures found for %s in %s..%s", title, r.cfg.FromDate, r.cfg.ToDate)
		return nil
	}
	total := len(captures)
	if total > r.cfg.MaxCaptures {
		captures = captures[:r.cfg.MaxCaptures]
	}
	r.logger.Printf("%s: %d captures (%s..%s), processing %d (limit=%d)",
		title, total, first, last, len(captures), r.cfg.MaxCaptures)

	outPath := DatasetPath(datasetDir, title)
	saved := 0
	for _, capture := range captures {
		if err := r.limiter.Wait(ctx); err != nil {
			return err
		}
		record, err := r.extractor.Extract(ctx, capture.MementoURL)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.logger.Printf("WARNING: skipping capture %s: %v", capture.MementoURL, err)
			continue
		}
		if strings.TrimSpace(record.Article.Text) == "" {
			r.logger.Printf("WARNING: empty extraction for %s, skipping", capture.MementoURL)
			continue
		}
		if err := AppendRecord(outPath, record); err != nil {
			return err
		}
		saved++
	}
	r.logger.Printf("%s: saved %d/%d captures to %s", title, saved, len(captures), outPath)
	return nil
}
