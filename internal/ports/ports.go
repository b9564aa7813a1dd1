package ports

import (
	"context"
	"time"

	"HNFilter/internal/domain"
)

// ArticleSource pulls one fetch cycle of fresh, deduplicated candidates.
type ArticleSource interface {
	FetchAll(ctx context.Context) (domain.Batch, error)
}

// ContentFetcher extracts readable text from an article URL; failures yield "".
type ContentFetcher interface {
	Fetch(ctx context.Context, url string) string
}

// ArticleRepository persists matched articles and answers whether a URL was seen.
type ArticleRepository interface {
	Exists(ctx context.Context, url string) (bool, error)
	Save(ctx context.Context, article domain.MatchedArticle) error
	List(ctx context.Context, limit int) ([]domain.MatchedArticle, error)
}

// Completer sends one prompt to a text-completion backend and returns the text answer.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Embedder turns texts into vectors, one per input, in order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// Notifier delivers a matched article to a chat or other channel.
type Notifier interface {
	Notify(ctx context.Context, article domain.MatchedArticle) error
}

// Scheduler controls when cycles execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}

// TopicSource yields the default topic list for a cycle.
type TopicSource interface {
	Topics(ctx context.Context) ([]domain.Topic, error)
}
