// Package wayback retrieves archived snapshots of news articles from the
// Wayback Machine and turns them into version datasets: one JSON array per
// article URL, each element holding the extracted text plus capture
// metadata.
package wayback

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/mementolab/driftwatch/internal/config"
)

const userAgent = "driftwatch research crawler (+https://github.com/mementolab/driftwatch)"

// Capture is one CDX index row for an archived page.
type Capture struct {
	Timestamp  string // 14-digit YYYYMMDDHHMMSS
	Original   string // the live URL the capture was taken of
	MementoURL string // replayable web.archive.org URL
}

// CDXClient queries the Wayback CDX index. All requests share one rate
// limiter so pagination stays polite.
type CDXClient struct {
	endpoint string
	http     *http.Client
	limiter  *rate.Limiter
	logger   *log.Logger
}

// NewCDXClient builds a client from retrieval settings.
func NewCDXClient(cfg config.RetrieveConfig, logger *log.Logger) *CDXClient {
	return &CDXClient{
		endpoint: cfg.CDXEndpoint,
		http:     &http.Client{Timeout: cfg.FetchTimeout},
		limiter:  rate.NewLimiter(rate.Every(cfg.RequestSpacing), 1),
		logger:   logger,
	}
}

func (c *CDXClient) queryURL(target, fromDate, toDate string) string {
	q := url.Values{}
	q.Set("url", target)
	q.Set("matchType", "exact")
	q.Set("from", fromDate)
	q.Set("to", toDate)
	q.Set("filter", "statuscode:200")
	return c.endpoint + "?" + q.Encode()
}

func (c *CDXClient) get(ctx context.Context, rawURL string) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, fmt.Errorf("cdx status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return resp, nil
}

func (c *CDXClient) numPages(ctx context.Context, base string) (int, error) {
	resp, err := c.get(ctx, base+"&showNumPages=true")
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64))
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(body)))
	if err != nil {
		return 0, fmt.Errorf("parse page count %q: %w", strings.TrimSpace(string(body)), err)
	}
	return n, nil
}

// Captures pages through the CDX index for target and returns every 200-OK
// capture in the date window, oldest first as the index returns them.
func (c *CDXClient) Captures(ctx context.Context, target, fromDate, toDate string) ([]Capture, error) {
	base := c.queryURL(target, fromDate, toDate)
	pages, err := c.numPages(ctx, base)
	if err != nil {
		return nil, fmt.Errorf("cdx page count for %s: %w", target, err)
	}

	var captures []Capture
	for page := 0; page < pages; page++ {
		pageURL := fmt.Sprintf("%s&page=%d", base, page)
		if c.logger != nil {
			c.logger.Printf("cdx: downloading page %d/%d for %s", page+1, pages, target)
		}
		resp, err := c.get(ctx, pageURL)
		if err != nil {
			return nil, fmt.Errorf("cdx page %d for %s: %w", page, target, err)
		}
		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			// urlkey timestamp original mimetype statuscode digest length
			parts := strings.Fields(scanner.Text())
			if len(parts) < 3 {
				continue
			}
			ts := parts[1]
			captures = append(captures, Capture{
				Timestamp:  ts,
				Original:   parts[2],
				MementoURL: MementoURL(ts, target),
			})
		}
		err = scanner.Err()
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("cdx read page %d for %s: %w", page, target, err)
		}
	}
	return captures, nil
}

// MementoURL builds the replay URL for a capture of target.
func MementoURL(timestamp, target string) string {
	return fmt.Sprintf("https://web.archive.org/web/%s/%s", timestamp, target)
}

// CaptureRange returns the YYYYMMDD dates of the oldest and newest capture,
// or false when the slice is empty.
func CaptureRange(captures []Capture) (first, last string, ok bool) {
	for _, c := range captures {
		if len(c.Timestamp) < 8 {
			continue
		}
		day := c.Timestamp[:8]
		if first == "" || day < first {
			first = day
		}
		if day > last {
			last = day
		}
	}
	return first, last, first != ""
}

// ParseMementoTimestamp extracts the capture time from a replay URL such as
// https://web.archive.org/web/20140301123000/https://example.com/a. The
// id_ replay-mode suffix is tolerated.
func ParseMementoTimestamp(mementoURL string) (time.Time, error) {
	parts := strings.Split(mementoURL, "/")
	if len(parts) < 5 {
		return time.Time{}, fmt.Errorf("not a memento url: %s", mementoURL)
	}
	ts := strings.SplitN(parts[4], "id_", 2)[0]
	t, err := time.Parse("20060102150405", ts)
	if err != nil {
		return time.Time{}, fmt.Errorf("memento timestamp %q: %w", ts, err)
	}
	return t.UTC(), nil
}
