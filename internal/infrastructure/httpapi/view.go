package httpapi

import (
	"time"

	"HNFilter/internal/domain"
)

// ArticleView is the JSON shape of a matched article.
type ArticleView struct {
	ID            string              `json:"id"`
	Title         string              `json:"title"`
	URL           string              `json:"url"`
	Source        string              `json:"source"`
	PublishedAt   *time.Time          `json:"published_at,omitempty"`
	CommentCount  int                 `json:"comment_count"`
	Points        int                 `json:"points"`
	DiscussionURL string              `json:"discussion_url,omitempty"`
	Matches       []domain.TopicMatch `json:"matches"`
	RunID         string              `json:"run_id,omitempty"`
	MatchedAt     time.Time           `json:"matched_at"`
}

func NewArticleView(m domain.MatchedArticle) ArticleView {
	view := ArticleView{
		ID:            m.Article.ID,
		Title:         m.Article.Title,
		URL:           m.Article.URL,
		Source:        m.Article.Source,
		CommentCount:  m.Article.CommentCount,
		Points:        m.Article.Points,
		DiscussionURL: m.Article.DiscussionURL,
		Matches:       m.Matches,
		RunID:         m.RunID,
		MatchedAt:     m.MatchedAt,
	}
	if !m.Article.PublishedAt.IsZero() {
		published := m.Article.PublishedAt
		view.PublishedAt = &published
	}
	return view
}
