package scanner

import (
	"context"
	"fmt"
	"sort"
	"time"

	"HNFilter/internal/domain"
)

// Request carries the fetch window parameters shared by every strategy.
type Request struct {
	MinEngagement int
	Window        time.Duration
	MaxItems      int
	Now           time.Time
}

// Since returns the lower creation-time bound of the window.
func (r Request) Since() time.Time {
	return r.Now.Add(-r.Window)
}

// Scanner captures a single upstream strategy (Algolia search, RSS, etc.).
// Implementations return candidates already windowed, URL-filtered, sorted by
// engagement and truncated to MaxItems.
type Scanner interface {
	Name() string
	Scan(ctx context.Context, req Request) ([]domain.Article, domain.FetchStats, error)
}

// Registry keeps a mapping from scanner names to their implementations.
type Registry struct {
	scanners map[string]Scanner
	order    []string
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{scanners: map[string]Scanner{}}
}

// Register adds or replaces a scanner implementation. Registration order is kept.
func (r *Registry) Register(scanner Scanner) {
	if r.scanners == nil {
		r.scanners = map[string]Scanner{}
	}
	name := scanner.Name()
	if _, exists := r.scanners[name]; !exists {
		r.order = append(r.order, name)
	}
	r.scanners[name] = scanner
}

// Resolve returns a scanner by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Scanner, error) {
	if scanner, ok := r.scanners[name]; ok {
		return scanner, nil
	}
	return nil, fmt.Errorf("scanner %s is not registered", name)
}

// All returns the registered scanners in registration order.
func (r *Registry) All() []Scanner {
	out := make([]Scanner, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.scanners[name])
	}
	return out
}

// HottestFirst stable-sorts articles by comment count, highest first, and
// truncates to limit when limit is positive.
func HottestFirst(articles []domain.Article, limit int) []domain.Article {
	sort.SliceStable(articles, func(i, j int) bool {
		return articles[i].CommentCount > articles[j].CommentCount
	})
	if limit > 0 && len(articles) > limit {
		articles = articles[:limit]
	}
	return articles
}
