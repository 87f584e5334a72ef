// Package server exposes a read-only HTTP API over the analysis output
// tree: document listings, computed metrics, daily charts and keyword
// search over assessed change units.
package server

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mementolab/driftwatch/internal/chart"
	"github.com/mementolab/driftwatch/internal/metrics"
	"github.com/mementolab/driftwatch/internal/search"
	"github.com/mementolab/driftwatch/internal/telemetry"
)

// Server serves analysis results from the filesystem. It never mutates the
// analysis tree.
type Server struct {
	analysisRoot string
	index        *search.Index
	tele         *telemetry.Telemetry
	logger       *log.Logger
}

// New builds a server over analysisRoot. index may be nil, in which case
// the search endpoint reports 503.
func New(analysisRoot string, index *search.Index, tele *telemetry.Telemetry, logger *log.Logger) *Server {
	return &Server{analysisRoot: analysisRoot, index: index, tele: tele, logger: logger}
}

// Echo assembles the routed echo instance. Split from Run so tests can
// drive handlers without binding a port.
func (s *Server) Echo() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	baseLogger := s.logger
	if baseLogger == nil {
		baseLogger = log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	}
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "OPTIONS"},
		AllowHeaders: []string{"Content-Type"},
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	if s.tele != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.tele.Registry, promhttp.HandlerOpts{})))
	}

	api := e.Group("/api")
	api.GET("/documents", s.listDocuments)
	api.GET("/documents/:slug/metrics", s.documentMetrics)
	api.GET("/documents/:slug/chart", s.documentChart)
	api.GET("/search", s.searchUnits)
	return e
}

// Run serves until the listener fails.
func (s *Server) Run(addr string) error {
	return s.Echo().Start(addr)
}

type documentInfo struct {
	Slug       string `json:"slug"`
	Pairs      int    `json:"pairs"`
	HasMetrics bool   `json:"has_metrics"`
	HasChart   bool   `json:"has_chart"`
}

func (s *Server) listDocuments(c echo.Context) error {
	entries, err := os.ReadDir(s.analysisRoot)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "analysis root unavailable")
	}
	docs := []documentInfo{}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		docDir := filepath.Join(s.analysisRoot, e.Name())
		info := documentInfo{Slug: e.Name()}
		if pairFiles, err := os.ReadDir(docDir); err == nil {
			for _, pf := range pairFiles {
				if !pf.IsDir() && filepath.Ext(pf.Name()) == ".json" {
					info.Pairs++
				}
			}
		}
		if _, err := os.Stat(filepath.Join(docDir, metrics.MetricsDirName, metrics.MetricsFileName)); err == nil {
			info.HasMetrics = true
		}
		if _, err := os.Stat(filepath.Join(docDir, metrics.MetricsDirName, chart.ChartFileName)); err == nil {
			info.HasChart = true
		}
		docs = append(docs, info)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Slug < docs[j].Slug })
	return c.JSON(http.StatusOK, docs)
}

// docDir resolves a slug inside the analysis root, rejecting traversal.
func (s *Server) docDir(slug string) (string, error) {
	if slug == "" || slug != filepath.Base(slug) || slug == "." || slug == ".." {
		return "", echo.NewHTTPError(http.StatusBadRequest, "invalid document slug")
	}
	dir := filepath.Join(s.analysisRoot, slug)
	if st, err := os.Stat(dir); err != nil || !st.IsDir() {
		return "", echo.NewHTTPError(http.StatusNotFound, "document not found")
	}
	return dir, nil
}

func (s *Server) documentMetrics(c echo.Context) error {
	dir, err := s.docDir(c.Param("slug"))
	if err != nil {
		return err
	}
	doc, err := metrics.ReadDocument(dir)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "metrics not computed for document")
	}
	return c.JSON(http.StatusOK, doc)
}

func (s *Server) documentChart(c echo.Context) error {
	dir, err := s.docDir(c.Param("slug"))
	if err != nil {
		return err
	}
	path := filepath.Join(dir, metrics.MetricsDirName, chart.ChartFileName)
	if _, err := os.Stat(path); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "chart not rendered for document")
	}
	return c.File(path)
}

func (s *Server) searchUnits(c echo.Context) error {
	if s.index == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "search index not configured")
	}
	q := c.QueryParam("q")
	if q == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "q is required")
	}
	k := 10
	if raw := c.QueryParam("k"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "k must be a positive integer")
		}
		k = n
	}
	hits, err := s.index.Search(q, k)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if hits == nil {
		hits = []search.Hit{}
	}
	return c.JSON(http.StatusOK, hits)
}
