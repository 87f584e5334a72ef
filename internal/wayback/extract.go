package wayback

import (
	"context"
	"crypto/md5"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-shiori/go-readability"
	"github.com/google/uuid"
)

// Article is the extracted content of one archived page.
type Article struct {
	Title   string   `json:"title"`
	Text    string   `json:"text"`
	Authors []string `json:"authors"`
}

// Record is one dataset element: the extracted article plus WARC-style
// capture metadata. The metadata keys follow WARC header conventions so
// downstream consumers can treat datasets like thin WARC extracts.
type Record struct {
	Metadata map[string]any `json:"metadata"`
	Article  Article        `json:"article"`
}

// Extractor turns a memento replay URL into a dataset record by fetching
// the archived HTML and running readability extraction over it.
type Extractor struct {
	http *http.Client
}

// NewExtractor builds an extractor that uses the given HTTP client.
func NewExtractor(client *http.Client) *Extractor {
	return &Extractor{http: client}
}

func (e *Extractor) fetchHTML(ctx context.Context, mementoURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mementoURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := e.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("memento status %d for %s", resp.StatusCode, mementoURL)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// Extract fetches mementoURL and builds its dataset record. The capture
// time is taken from the URL itself, not from response headers, so records
// stay stable across replays.
func (e *Extractor) Extract(ctx context.Context, mementoURL string) (Record, error) {
	capturedAt, err := ParseMementoTimestamp(mementoURL)
	if err != nil {
		return Record{}, err
	}

	html, err := e.fetchHTML(ctx, mementoURL)
	if err != nil {
		return Record{}, fmt.Errorf("fetch memento: %w", err)
	}

	parsed, err := url.Parse(mementoURL)
	if err != nil {
		return Record{}, fmt.Errorf("parse memento url: %w", err)
	}
	article, err := readability.FromReader(strings.NewReader(html), parsed)
	if err != nil {
		return Record{}, fmt.Errorf("extract article from %s: %w", mementoURL, err)
	}

	text := strings.TrimSpace(article.TextContent)
	var authors []string
	if byline := strings.TrimSpace(article.Byline); byline != "" {
		authors = []string{byline}
	}

	textDigest := sha1.Sum([]byte(text))
	urlHash := md5.Sum([]byte(mementoURL))

	return Record{
		Article: Article{
			Title:   strings.TrimSpace(article.Title),
			Text:    text,
			Authors: authors,
		},
		Metadata: map[string]any{
			"warc-date":         capturedAt.Format("2006-01-02T15:04:05") + "Z",
			"warc-record-id":    fmt.Sprintf("<urn:uuid:%s>", uuid.New()),
			"warc-block-digest": "sha1:" + hex.EncodeToString(textDigest[:]),
			"warc-target-uri":   mementoURL,
			"content-length":    len(text),
			"url-hash":          hex.EncodeToString(urlHash[:]),
		},
	}, nil
}
