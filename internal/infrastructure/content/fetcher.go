package content

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"HNFilter/internal/ports"
)

const maxBodyBytes = 5 << 20

// Fetcher downloads a page and extracts its readable text.
type Fetcher struct {
	client   *http.Client
	maxChars int
	logger   *slog.Logger
}

var _ ports.ContentFetcher = (*Fetcher)(nil)

// NewFetcher builds a fetcher; maxChars <= 0 disables truncation.
func NewFetcher(client *http.Client, maxChars int, logger *slog.Logger) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &Fetcher{client: client, maxChars: maxChars, logger: logger}
}

// Fetch returns extracted plain text, or "" when anything goes wrong.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) string {
	text, err := f.fetch(ctx, pageURL)
	if err != nil {
		if f.logger != nil {
			f.logger.Debug("content fetch failed", "url", pageURL, "error", err)
		}
		return ""
	}
	return truncateRunes(text, f.maxChars)
}

func (f *Fetcher) fetch(ctx context.Context, pageURL string) (string, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; HNFilter/1.0)")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("page returned %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	if article, err := readability.FromReader(bytes.NewReader(body), parsed); err == nil {
		if text := collapseSpace(article.TextContent); text != "" {
			return text, nil
		}
	}

	return paragraphText(body)
}

// paragraphText is the fallback when readability finds no main content.
func paragraphText(body []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parse document: %w", err)
	}

	var parts []string
	doc.Find("p").Each(func(_ int, p *goquery.Selection) {
		if text := collapseSpace(p.Text()); text != "" {
			parts = append(parts, text)
		}
	})
	if len(parts) == 0 {
		return "", fmt.Errorf("no text content")
	}
	return strings.Join(parts, "\n"), nil
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
