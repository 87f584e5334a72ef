package server

import (
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mementolab/driftwatch/internal/alignment"
	"github.com/mementolab/driftwatch/internal/analysis"
	"github.com/mementolab/driftwatch/internal/metrics"
	"github.com/mementolab/driftwatch/internal/search"
	"github.com/mementolab/driftwatch/internal/telemetry"
)

func seedAnalysisTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	docDir := filepath.Join(root, "example.com_story")
	if err := os.MkdirAll(docDir, 0o755); err != nil {
		t.Fatal(err)
	}
	record := alignment.PairAnalysisRecord{
		PairIndex: 0,
		Items: []any{
			map[string]any{
				"type": "match",
				"sentences": map[string]any{
					"M1": "The vote was delayed.",
					"M2": "The vote was delayed until Monday.",
				},
				"assessment": map[string]any{
					"textual differences":              "yes",
					"version diff summary":             "delay given a concrete date",
					"overall assessment":               "clarifying revision",
					"overall importance of the change": "Not important - added detail",
				},
			},
		},
	}
	if err := analysis.WriteRecord(filepath.Join(docDir, "0000.json"), record); err != nil {
		t.Fatal(err)
	}
	doc, err := metrics.ComputeDocument(docDir, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := metrics.WriteDocument(docDir, doc); err != nil {
		t.Fatal(err)
	}
	return root
}

func testServer(t *testing.T, root string, index *search.Index) *Server {
	t.Helper()
	logger := log.New(os.Stdout, "[TEST] ", log.LstdFlags)
	return New(root, index, telemetry.New(), logger)
}

func TestHealthz(t *testing.T) {
	t.Parallel()
	s := testServer(t, t.TempDir(), nil)
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthz = %d %q", rec.Code, rec.Body.String())
	}
}

func TestListDocuments(t *testing.T) {
	t.Parallel()
	root := seedAnalysisTree(t)
	s := testServer(t, root, nil)
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/documents", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	var docs []documentInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &docs); err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 {
		t.Fatalf("docs = %+v", docs)
	}
	if docs[0].Slug != "example.com_story" || docs[0].Pairs != 1 || !docs[0].HasMetrics {
		t.Fatalf("doc = %+v", docs[0])
	}
	if docs[0].HasChart {
		t.Fatalf("chart should not exist yet: %+v", docs[0])
	}
}

func TestDocumentMetrics(t *testing.T) {
	t.Parallel()
	root := seedAnalysisTree(t)
	s := testServer(t, root, nil)

	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/documents/example.com_story/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	var doc metrics.Document
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatal(err)
	}
	if doc.Summary.PairsTotal != 1 || doc.Summary.ChangedUnitsTotal != 1 {
		t.Fatalf("summary = %+v", doc.Summary)
	}

	rec = httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/documents/no-such-doc/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing doc status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "error") {
		t.Fatalf("error body = %s", rec.Body.String())
	}
}

func TestDocumentChartNotRendered(t *testing.T) {
	t.Parallel()
	root := seedAnalysisTree(t)
	s := testServer(t, root, nil)
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/documents/example.com_story/chart", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestSlugTraversalRejected(t *testing.T) {
	t.Parallel()
	root := seedAnalysisTree(t)
	s := testServer(t, root, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/documents/..%2F..%2Fetc/metrics", nil)
	s.Echo().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest && rec.Code != http.StatusNotFound {
		t.Fatalf("traversal status = %d", rec.Code)
	}
}

func TestSearchEndpoint(t *testing.T) {
	t.Parallel()
	root := seedAnalysisTree(t)
	index, err := search.Open("")
	if err != nil {
		t.Fatal(err)
	}
	defer index.Close()
	if _, err := index.IndexAnalysisRoot(root, nil); err != nil {
		t.Fatal(err)
	}
	s := testServer(t, root, index)

	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/search?q=delay&k=5", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	var hits []search.Hit
	if err := json.Unmarshal(rec.Body.Bytes(), &hits); err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].Unit.Document != "example.com_story" {
		t.Fatalf("hits = %+v", hits)
	}

	rec = httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/search", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing q status = %d", rec.Code)
	}

	noIndex := testServer(t, root, nil)
	rec = httptest.NewRecorder()
	noIndex.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/search?q=delay", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("no-index status = %d", rec.Code)
	}
}

func TestMetricsEndpointServesPrometheus(t *testing.T) {
	t.Parallel()
	s := testServer(t, t.TempDir(), nil)
	s.tele.PairsOK.Inc()
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "driftwatch_pairs_analyzed_total") {
		t.Fatalf("metrics body missing counter:\n%s", rec.Body.String())
	}
}
