package parser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"HNFilter/internal/config"
	"HNFilter/internal/domain"
	"HNFilter/internal/ports"
	"HNFilter/internal/scanner"
)

const defaultContentConcurrency = 20

// StrategySource implements ArticleSource via registered scanner strategies.
type StrategySource struct {
	registry    *scanner.Registry
	settings    config.HackerNewsConfig
	content     ports.ContentFetcher
	concurrency int
	clock       func() time.Time
	logger      *slog.Logger
}

var _ ports.ArticleSource = (*StrategySource)(nil)

// SourceDeps lists optional collaborators of StrategySource.
type SourceDeps struct {
	// Content is consulted for every returned article when non-nil.
	Content     ports.ContentFetcher
	Concurrency int
	Clock       func() time.Time
	Logger      *slog.Logger
}

// NewStrategySource wires the scanner registry with the fetch window settings.
func NewStrategySource(reg *scanner.Registry, settings config.HackerNewsConfig, deps SourceDeps) *StrategySource {
	if deps.Concurrency <= 0 {
		deps.Concurrency = defaultContentConcurrency
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	return &StrategySource{
		registry:    reg,
		settings:    settings,
		content:     deps.Content,
		concurrency: deps.Concurrency,
		clock:       deps.Clock,
		logger:      deps.Logger,
	}
}

// FetchAll runs one fetch cycle with the configured window and thresholds.
func (s *StrategySource) FetchAll(ctx context.Context) (domain.Batch, error) {
	return s.Fetch(ctx, scanner.Request{
		MinEngagement: s.settings.MinComments,
		Window:        s.settings.Window(),
		MaxItems:      s.settings.MaxItems,
	})
}

// Fetch iterates over registered scanners and merges their candidates.
// Every call owns a fresh Deduplicator, so a URL is emitted at most once per cycle.
// Upstream failures are logged and contribute nothing.
func (s *StrategySource) Fetch(ctx context.Context, req scanner.Request) (domain.Batch, error) {
	if s.registry == nil {
		return domain.Batch{}, fmt.Errorf("scanner registry is not configured")
	}
	if req.Now.IsZero() {
		req.Now = s.clock()
	}

	batch := domain.Batch{RunID: uuid.NewString()}
	dedup := scanner.NewDeduplicator()

	var candidates []domain.Article
	for _, strategy := range s.registry.All() {
		results, stats, err := strategy.Scan(ctx, req)
		batch.Stats = append(batch.Stats, stats)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return domain.Batch{}, ctxErr
			}
			s.warn("scanner failed", "run_id", batch.RunID, "scanner", strategy.Name(), "error", err)
			continue
		}

		for _, article := range results {
			if !dedup.MarkIfNew(article.URL) {
				s.debug("duplicate url skipped", "run_id", batch.RunID, "scanner", strategy.Name(), "url", article.URL)
				continue
			}
			candidates = append(candidates, article)
		}
		s.info("scanner done", "run_id", batch.RunID, "stats", stats.String())
	}

	candidates = scanner.HottestFirst(candidates, req.MaxItems)

	if s.content != nil && len(candidates) > 0 {
		if err := s.fillContent(ctx, candidates); err != nil {
			return domain.Batch{}, err
		}
	}

	batch.Articles = candidates
	return batch, nil
}

// fillContent fetches bodies on a bounded pool; results are written by index so
// ordering matches the sequential order.
func (s *StrategySource) fillContent(ctx context.Context, articles []domain.Article) error {
	var g errgroup.Group
	g.SetLimit(s.concurrency)

	for i := range articles {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			articles[i].Content = s.content.Fetch(ctx, articles[i].URL)
			return nil
		})
	}
	_ = g.Wait()

	return ctx.Err()
}

func (s *StrategySource) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *StrategySource) info(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Info(msg, args...)
	}
}

func (s *StrategySource) warn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
