package domain

import (
	"fmt"
	"strings"
	"time"
)

// Article is a candidate story normalized from an upstream listing.
type Article struct {
	ID            string
	Title         string
	URL           string
	Source        string
	PublishedAt   time.Time
	Content       string
	CommentCount  int
	Points        int
	DiscussionURL string
}

// Key returns the identity of the article: its URL with surrounding whitespace removed.
func (a Article) Key() string {
	return NormalizeURL(a.URL)
}

// NormalizeURL trims whitespace; no further canonicalization is applied.
func NormalizeURL(raw string) string {
	return strings.TrimSpace(raw)
}

// RelevanceVerdict is the oracle's answer for a single topic.
type RelevanceVerdict struct {
	Topic       Topic
	IsRelevant  bool
	RawResponse string
}

// TopicMatch annotates a matched article with one topic that was judged relevant.
type TopicMatch struct {
	Topic       Topic   `json:"topic"`
	RawResponse string  `json:"raw_response"`
	Similarity  float64 `json:"similarity,omitempty"`
	Prefiltered bool    `json:"prefiltered"`
}

// Relevance describes how the match was reached.
func (m TopicMatch) Relevance() string {
	if m.Prefiltered {
		return fmt.Sprintf("Verified match (similarity: %.2f)", m.Similarity)
	}
	return "Match (embedding filter disabled)"
}

// MatchedArticle is an article with at least one relevant topic.
type MatchedArticle struct {
	Article   Article
	Matches   []TopicMatch
	RunID     string
	MatchedAt time.Time
}

// TopicNames lists matched topics in order.
func (m MatchedArticle) TopicNames() []string {
	names := make([]string, 0, len(m.Matches))
	for _, match := range m.Matches {
		names = append(names, string(match.Topic))
	}
	return names
}

// FetchStats summarizes one scanner pass for diagnostics.
type FetchStats struct {
	Source           string
	InWindow         int
	MeetingThreshold int
	Returned         int
	MinEngagement    int
	Window           time.Duration
	Err              error
}

func (s FetchStats) String() string {
	if s.Err != nil {
		return fmt.Sprintf("%s: fetch failed: %v", s.Source, s.Err)
	}
	return fmt.Sprintf("%s: found %d stories in the last %s, %d with >= %d comments, returning %d",
		s.Source, s.InWindow, s.Window, s.MeetingThreshold, s.MinEngagement, s.Returned)
}

// Batch is everything one fetch cycle produced.
type Batch struct {
	RunID    string
	Articles []Article
	Stats    []FetchStats
}

// Summary joins the per-source statistic lines.
func (b Batch) Summary() string {
	lines := make([]string, 0, len(b.Stats))
	for _, s := range b.Stats {
		lines = append(lines, s.String())
	}
	return strings.Join(lines, "; ")
}
