package parser

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"HNFilter/internal/scanner"
)

func rssItem(title, link, guid string, published time.Time, points, comments int) string {
	return fmt.Sprintf(`<item>
  <title>%s</title>
  <link>%s</link>
  <guid isPermaLink="false">%s</guid>
  <pubDate>%s</pubDate>
  <description><![CDATA[<p>Article URL: <a href="%s">%s</a></p>
<hr>
<p>Comments URL: <a href="https://news.ycombinator.com/item?id=%s">https://news.ycombinator.com/item?id=%s</a></p>
<p>Points: %d</p>
<p># Comments: %d</p>]]></description>
</item>`, title, link, guid, published.Format(time.RFC1123Z), link, link, guid, guid, points, comments)
}

func TestParseItemDescription(t *testing.T) {
	t.Parallel()

	desc := `<p>Article URL: <a href="https://example.com">https://example.com</a></p>
<p>Comments URL: <a href="https://news.ycombinator.com/item?id=42">link</a></p>
<p>Points: 120</p>
<p># Comments: 37</p>`

	meta := parseItemDescription(desc)
	if meta.points != 120 || meta.comments != 37 {
		t.Fatalf("unexpected engagement: %+v", meta)
	}
	if meta.discussionURL != "https://news.ycombinator.com/item?id=42" {
		t.Fatalf("unexpected discussion url %q", meta.discussionURL)
	}

	if empty := parseItemDescription(""); empty.comments != 0 || empty.points != 0 {
		t.Fatalf("expected zero meta for empty description, got %+v", empty)
	}
}

func TestRSSScannerWindowThresholdAndOrder(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	feed := `<?xml version="1.0" encoding="UTF-8"?><rss version="2.0"><channel><title>HN</title>` +
		rssItem("Fresh low", "https://example.com/low", "1", now.Add(-time.Hour), 5, 2) +
		rssItem("Fresh hot", "https://example.com/hot", "2", now.Add(-2*time.Hour), 300, 90) +
		rssItem("Fresh warm", "https://example.com/warm", "3", now.Add(-3*time.Hour), 80, 25) +
		rssItem("Too old", "https://example.com/old", "4", now.Add(-48*time.Hour), 900, 400) +
		`</channel></rss>`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(feed))
	}))
	defer srv.Close()

	s := NewRSSScanner(srv.Client(), srv.URL, nil)
	articles, stats, err := s.Scan(context.Background(), scanner.Request{
		MinEngagement: 10,
		Window:        24 * time.Hour,
		MaxItems:      10,
		Now:           now,
	})
	if err != nil {
		t.Fatalf("Scan error: %v", err)
	}

	if len(articles) != 2 {
		t.Fatalf("expected 2 articles, got %d", len(articles))
	}
	if articles[0].URL != "https://example.com/hot" || articles[1].URL != "https://example.com/warm" {
		t.Fatalf("unexpected order: %s, %s", articles[0].URL, articles[1].URL)
	}
	if articles[0].Points != 300 || articles[0].CommentCount != 90 {
		t.Fatalf("unexpected engagement: %+v", articles[0])
	}
	if stats.InWindow != 3 || stats.MeetingThreshold != 2 || stats.Returned != 2 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestRSSScannerParseFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not a feed"))
	}))
	defer srv.Close()

	s := NewRSSScanner(srv.Client(), srv.URL, nil)
	articles, stats, err := s.Scan(context.Background(), scanner.Request{Window: time.Hour, Now: time.Now()})
	if err == nil || stats.Err == nil {
		t.Fatal("expected parse error")
	}
	if len(articles) != 0 {
		t.Fatalf("expected no articles, got %d", len(articles))
	}
}
