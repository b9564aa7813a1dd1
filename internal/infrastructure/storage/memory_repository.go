package storage

import (
	"context"
	"sort"
	"sync"

	"HNFilter/internal/domain"
	"HNFilter/internal/ports"
)

// MemoryRepository keeps matches in process memory; used for dry runs.
type MemoryRepository struct {
	mu    sync.RWMutex
	items map[string]domain.MatchedArticle
	order []string
}

var _ ports.ArticleRepository = (*MemoryRepository)(nil)

// NewMemoryRepository returns an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{items: make(map[string]domain.MatchedArticle)}
}

// Exists reports whether url was saved.
func (r *MemoryRepository) Exists(_ context.Context, url string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.items[domain.NormalizeURL(url)]
	return ok, nil
}

// Save keeps the first article stored under a URL.
func (r *MemoryRepository) Save(_ context.Context, article domain.MatchedArticle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := article.Article.Key()
	if _, ok := r.items[key]; ok {
		return nil
	}
	r.items[key] = article
	r.order = append(r.order, key)
	return nil
}

// List returns articles newest first. limit <= 0 means all.
func (r *MemoryRepository) List(_ context.Context, limit int) ([]domain.MatchedArticle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.MatchedArticle, 0, len(r.order))
	for i := len(r.order) - 1; i >= 0; i-- {
		result = append(result, r.items[r.order[i]])
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].MatchedAt.After(result[j].MatchedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Close is a no-op.
func (r *MemoryRepository) Close() error { return nil }
