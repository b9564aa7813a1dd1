package storage

import (
	"time"

	"HNFilter/internal/domain"
)

// record is the document shape shared by the key-value backends.
type record struct {
	ID            string              `json:"id"`
	Title         string              `json:"title"`
	URL           string              `json:"url"`
	Source        string              `json:"source"`
	PublishedAt   time.Time           `json:"published_at"`
	CommentCount  int                 `json:"comment_count"`
	Points        int                 `json:"points"`
	DiscussionURL string              `json:"discussion_url,omitempty"`
	Matches       []domain.TopicMatch `json:"matches"`
	RunID         string              `json:"run_id"`
	MatchedAt     time.Time           `json:"matched_at"`
}

func toRecord(m domain.MatchedArticle) record {
	return record{
		ID:            m.Article.ID,
		Title:         m.Article.Title,
		URL:           m.Article.Key(),
		Source:        m.Article.Source,
		PublishedAt:   m.Article.PublishedAt,
		CommentCount:  m.Article.CommentCount,
		Points:        m.Article.Points,
		DiscussionURL: m.Article.DiscussionURL,
		Matches:       m.Matches,
		RunID:         m.RunID,
		MatchedAt:     m.MatchedAt,
	}
}

func (r record) toDomain() domain.MatchedArticle {
	return domain.MatchedArticle{
		Article: domain.Article{
			ID:            r.ID,
			Title:         r.Title,
			URL:           r.URL,
			Source:        r.Source,
			PublishedAt:   r.PublishedAt,
			CommentCount:  r.CommentCount,
			Points:        r.Points,
			DiscussionURL: r.DiscussionURL,
		},
		Matches:   r.Matches,
		RunID:     r.RunID,
		MatchedAt: r.MatchedAt,
	}
}
