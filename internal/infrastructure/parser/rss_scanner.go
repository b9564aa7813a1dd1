package parser

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"HNFilter/internal/domain"
	"HNFilter/internal/scanner"
)

var (
	pointsExpr   = regexp.MustCompile(`^Points:\s*(\d+)`)
	commentsExpr = regexp.MustCompile(`^#\s*Comments:\s*(\d+)`)
)

// RSSScanner reads an hnrss.org style feed. Engagement is recovered from the
// "Points" and "# Comments" paragraphs of each item description.
type RSSScanner struct {
	client  *http.Client
	feedURL string
	parser  *gofeed.Parser
	logger  *slog.Logger
}

var _ scanner.Scanner = (*RSSScanner)(nil)

// NewRSSScanner wires an HTTP client for the given feed.
func NewRSSScanner(client *http.Client, feedURL string, logger *slog.Logger) *RSSScanner {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &RSSScanner{
		client:  client,
		feedURL: feedURL,
		parser:  gofeed.NewParser(),
		logger:  logger,
	}
}

// Name identifies the strategy inside the registry.
func (r *RSSScanner) Name() string {
	return "rss"
}

// Scan applies the same window, threshold, ordering and truncation rules as the search scanner.
func (r *RSSScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.Article, domain.FetchStats, error) {
	stats := domain.FetchStats{
		Source:        r.Name(),
		MinEngagement: req.MinEngagement,
		Window:        req.Window,
	}

	feed, err := r.fetchFeed(ctx)
	if err != nil {
		stats.Err = err
		return nil, stats, err
	}

	since := req.Since()
	articles := make([]domain.Article, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		published := req.Now
		if item.PublishedParsed != nil {
			published = item.PublishedParsed.UTC()
		}
		if !published.After(since) {
			continue
		}
		stats.InWindow++

		meta := parseItemDescription(item.Description)
		if meta.comments < req.MinEngagement {
			continue
		}
		stats.MeetingThreshold++

		link := domain.NormalizeURL(item.Link)
		if link == "" {
			continue
		}

		articles = append(articles, domain.Article{
			ID:            "rss-" + strings.TrimSpace(item.GUID),
			Title:         strings.TrimSpace(item.Title),
			URL:           link,
			Source:        hackerNewsSource,
			PublishedAt:   published,
			CommentCount:  meta.comments,
			Points:        meta.points,
			DiscussionURL: meta.discussionURL,
		})
	}

	articles = scanner.HottestFirst(articles, req.MaxItems)
	stats.Returned = len(articles)
	return articles, stats, nil
}

func (r *RSSScanner) fetchFeed(ctx context.Context) (*gofeed.Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "HNFilter/1.0")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned %s", resp.Status)
	}

	feed, err := r.parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	return feed, nil
}

type itemMeta struct {
	points        int
	comments      int
	discussionURL string
}

func parseItemDescription(description string) itemMeta {
	var meta itemMeta
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(description))
	if err != nil {
		return meta
	}

	doc.Find("p").Each(func(_ int, p *goquery.Selection) {
		text := strings.TrimSpace(p.Text())
		if m := pointsExpr.FindStringSubmatch(text); m != nil {
			meta.points, _ = strconv.Atoi(m[1])
			return
		}
		if m := commentsExpr.FindStringSubmatch(text); m != nil {
			meta.comments, _ = strconv.Atoi(m[1])
			return
		}
		if strings.HasPrefix(text, "Comments URL:") {
			if href, ok := p.Find("a").First().Attr("href"); ok {
				meta.discussionURL = strings.TrimSpace(href)
			}
		}
	})
	return meta
}
