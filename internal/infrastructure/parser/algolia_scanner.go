package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"HNFilter/internal/domain"
	"HNFilter/internal/scanner"
)

const (
	algoliaDefaultEndpoint = "https://hn.algolia.com/api/v1/search_by_date"
	hnItemURL              = "https://news.ycombinator.com/item?id="
	hackerNewsSource       = "hackernews"
)

// AlgoliaScanner pages through the HN Algolia search API for stories inside the window.
type AlgoliaScanner struct {
	client      *http.Client
	endpoint    string
	hitsPerPage int
	maxPages    int
	logger      *slog.Logger
}

// AlgoliaOptions tunes paging; zero values fall back to defaults.
type AlgoliaOptions struct {
	Endpoint    string
	HitsPerPage int
	MaxPages    int
}

var _ scanner.Scanner = (*AlgoliaScanner)(nil)

// NewAlgoliaScanner wires an HTTP client; hitsPerPage defaults to 100 and maxPages to 10.
func NewAlgoliaScanner(client *http.Client, opts AlgoliaOptions, logger *slog.Logger) *AlgoliaScanner {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	if opts.Endpoint == "" {
		opts.Endpoint = algoliaDefaultEndpoint
	}
	if opts.HitsPerPage <= 0 {
		opts.HitsPerPage = 100
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = 10
	}
	return &AlgoliaScanner{
		client:      client,
		endpoint:    opts.Endpoint,
		hitsPerPage: opts.HitsPerPage,
		maxPages:    opts.MaxPages,
		logger:      logger,
	}
}

// Name identifies the strategy inside the registry.
func (a *AlgoliaScanner) Name() string {
	return "algolia"
}

// Scan collects stories created inside the window with at least MinEngagement comments,
// drops link-less items, orders them by comment count and truncates to MaxItems.
func (a *AlgoliaScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.Article, domain.FetchStats, error) {
	stats := domain.FetchStats{
		Source:        a.Name(),
		MinEngagement: req.MinEngagement,
		Window:        req.Window,
	}

	since := req.Since().Unix()

	hits, total, err := a.collect(ctx, since, req.MinEngagement)
	if err != nil {
		stats.Err = err
		return nil, stats, err
	}
	stats.MeetingThreshold = total

	inWindow, err := a.count(ctx, since)
	if err != nil {
		a.debug("window count failed", "error", err)
		inWindow = total
	}
	stats.InWindow = inWindow

	articles := make([]domain.Article, 0, len(hits))
	for _, hit := range hits {
		if strings.TrimSpace(hit.URL) == "" {
			continue
		}
		articles = append(articles, hit.toArticle())
	}

	articles = scanner.HottestFirst(articles, req.MaxItems)
	stats.Returned = len(articles)

	return articles, stats, nil
}

func (a *AlgoliaScanner) collect(ctx context.Context, since int64, minComments int) ([]algoliaHit, int, error) {
	filters := fmt.Sprintf("created_at_i>%d,num_comments>=%d", since, minComments)

	var (
		hits  []algoliaHit
		total int
	)
	for page := 0; page < a.maxPages; page++ {
		pageURL, err := buildSearchURL(a.endpoint, filters, a.hitsPerPage, page)
		if err != nil {
			return nil, 0, err
		}

		resp, err := a.fetchPage(ctx, pageURL)
		if err != nil {
			return nil, 0, fmt.Errorf("page %d: %w", page, err)
		}
		total = resp.NbHits
		a.debug("algolia page", "page", page, "hits", len(resp.Hits), "nb_hits", resp.NbHits, "nb_pages", resp.NbPages)

		if len(resp.Hits) == 0 {
			break
		}
		hits = append(hits, resp.Hits...)

		if len(hits) >= resp.NbHits || page+1 >= resp.NbPages {
			break
		}
	}

	return hits, total, nil
}

func (a *AlgoliaScanner) count(ctx context.Context, since int64) (int, error) {
	pageURL, err := buildSearchURL(a.endpoint, fmt.Sprintf("created_at_i>%d", since), 0, 0)
	if err != nil {
		return 0, err
	}
	resp, err := a.fetchPage(ctx, pageURL)
	if err != nil {
		return 0, err
	}
	return resp.NbHits, nil
}

func (a *AlgoliaScanner) fetchPage(ctx context.Context, pageURL string) (*algoliaResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "HNFilter/1.0")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("algolia returned %s", resp.Status)
	}

	var out algoliaResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return &out, nil
}

func (a *AlgoliaScanner) debug(msg string, args ...any) {
	if a.logger != nil {
		a.logger.Debug(msg, args...)
	}
}

func buildSearchURL(base, numericFilters string, hitsPerPage, page int) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid search url %s: %w", base, err)
	}

	query := parsed.Query()
	query.Set("tags", "story")
	query.Set("numericFilters", numericFilters)
	query.Set("hitsPerPage", strconv.Itoa(hitsPerPage))
	query.Set("page", strconv.Itoa(page))
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

type algoliaResponse struct {
	Hits        []algoliaHit `json:"hits"`
	NbHits      int          `json:"nbHits"`
	Page        int          `json:"page"`
	NbPages     int          `json:"nbPages"`
	HitsPerPage int          `json:"hitsPerPage"`
}

type algoliaHit struct {
	ObjectID    string `json:"objectID"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	CreatedAtI  int64  `json:"created_at_i"`
	NumComments int    `json:"num_comments"`
	Points      int    `json:"points"`
}

func (h algoliaHit) toArticle() domain.Article {
	return domain.Article{
		ID:            "hn-" + h.ObjectID,
		Title:         strings.TrimSpace(h.Title),
		URL:           domain.NormalizeURL(h.URL),
		Source:        hackerNewsSource,
		PublishedAt:   time.Unix(h.CreatedAtI, 0).UTC(),
		CommentCount:  h.NumComments,
		Points:        h.Points,
		DiscussionURL: hnItemURL + h.ObjectID,
	}
}
