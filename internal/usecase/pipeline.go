package usecase

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"HNFilter/internal/domain"
	"HNFilter/internal/logging"
	"HNFilter/internal/ports"
)

// ErrCycleInProgress is returned when a cycle is requested while another one runs.
var ErrCycleInProgress = errors.New("cycle already in progress")

// MatcherDeps wires the collaborators of the matching stage.
type MatcherDeps struct {
	Verifier   Verifier
	Narrower   TopicNarrower
	Repository ports.ArticleRepository
	Clock      func() time.Time
	Logger     *slog.Logger
}

// Matcher turns candidate articles into matched articles, one at a time.
type Matcher struct {
	verifier   Verifier
	narrower   TopicNarrower
	repository ports.ArticleRepository
	clock      func() time.Time
	logger     *slog.Logger
}

// NewMatcher constructs the matching stage; a nil narrower sends every topic to the oracle.
func NewMatcher(deps MatcherDeps) *Matcher {
	narrower := deps.Narrower
	if narrower == nil {
		narrower = PassThroughNarrower{}
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &Matcher{
		verifier:   deps.Verifier,
		narrower:   narrower,
		repository: deps.Repository,
		clock:      clock,
		logger:     logger.With("component", "matcher"),
	}
}

// Process lazily yields matched articles under a fresh run id.
func (m *Matcher) Process(ctx context.Context, articles []domain.Article, topics []domain.Topic) iter.Seq[domain.MatchedArticle] {
	return m.ProcessRun(ctx, uuid.NewString(), articles, topics)
}

// ProcessRun is Process with a caller-chosen run id. Each article is fully
// resolved and persisted before it is yielded; failures drop only that article.
func (m *Matcher) ProcessRun(ctx context.Context, runID string, articles []domain.Article, topics []domain.Topic) iter.Seq[domain.MatchedArticle] {
	return func(yield func(domain.MatchedArticle) bool) {
		for _, article := range articles {
			if ctx.Err() != nil {
				return
			}

			matched, ok, err := m.processOne(ctx, runID, article, topics)
			if err != nil {
				m.logger.Error("article processing failed", "title", article.Title, "url", article.URL, "error", err)
				continue
			}
			if !ok {
				continue
			}
			if !yield(matched) {
				return
			}
		}
	}
}

func (m *Matcher) processOne(ctx context.Context, runID string, article domain.Article, topics []domain.Topic) (domain.MatchedArticle, bool, error) {
	if m.repository != nil {
		exists, err := m.repository.Exists(ctx, article.Key())
		if err != nil {
			return domain.MatchedArticle{}, false, fmt.Errorf("check existing: %w", err)
		}
		if exists {
			m.logger.Info("skipping already processed article", "title", article.Title)
			return domain.MatchedArticle{}, false, nil
		}
	}

	if len(topics) == 0 {
		m.logger.Warn("no topics available for matching")
		return domain.MatchedArticle{}, false, nil
	}
	if m.verifier == nil {
		return domain.MatchedArticle{}, false, fmt.Errorf("no verifier configured")
	}

	candidates, err := m.narrower.Narrow(ctx, article, topics)
	if err != nil {
		return domain.MatchedArticle{}, false, fmt.Errorf("narrow topics: %w", err)
	}
	if len(candidates) == 0 {
		m.logger.Debug("no candidate topics after narrowing", "title", article.Title)
		return domain.MatchedArticle{}, false, nil
	}

	subset := make([]domain.Topic, len(candidates))
	for i, c := range candidates {
		subset[i] = c.Topic
	}

	verdicts := m.verifier.Verify(ctx, article, subset)

	var matches []domain.TopicMatch
	for i, verdict := range verdicts {
		if !verdict.IsRelevant || i >= len(candidates) {
			continue
		}
		matches = append(matches, domain.TopicMatch{
			Topic:       verdict.Topic,
			RawResponse: verdict.RawResponse,
			Similarity:  candidates[i].Similarity,
			Prefiltered: candidates[i].Prefiltered,
		})
	}
	if len(matches) == 0 {
		return domain.MatchedArticle{}, false, nil
	}

	matched := domain.MatchedArticle{
		Article:   article,
		Matches:   matches,
		RunID:     runID,
		MatchedAt: m.clock().UTC(),
	}

	if m.repository != nil {
		if err := m.repository.Save(ctx, matched); err != nil {
			return domain.MatchedArticle{}, false, fmt.Errorf("persist article: %w", err)
		}
	}

	m.logger.Info("article matched", "title", article.Title, "topics", matched.TopicNames())
	return matched, true, nil
}

// CycleDeps wires a full fetch-and-match run.
type CycleDeps struct {
	Source   ports.ArticleSource
	Matcher  *Matcher
	Notifier ports.Notifier
	Topics   ports.TopicSource
	Logger   *slog.Logger
}

// CycleReport summarizes one finished cycle.
type CycleReport struct {
	RunID      string    `json:"run_id"`
	Fetched    int       `json:"fetched"`
	Matched    int       `json:"matched"`
	Stats      []string  `json:"stats"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Cycle runs fetch, match and notify as one unit. Only one cycle runs at a time.
type Cycle struct {
	source   ports.ArticleSource
	matcher  *Matcher
	notifier ports.Notifier
	topics   ports.TopicSource
	logger   *slog.Logger

	mu sync.Mutex
}

// NewCycle constructs the orchestration component.
func NewCycle(deps CycleDeps) *Cycle {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &Cycle{
		source:   deps.Source,
		matcher:  deps.Matcher,
		notifier: deps.Notifier,
		topics:   deps.Topics,
		logger:   logger.With("component", "cycle"),
	}
}

// Run fetches candidates and streams matches to onMatch as they are produced.
// When topics is empty the configured topic source is used.
func (c *Cycle) Run(ctx context.Context, topics []domain.Topic, onMatch func(domain.MatchedArticle)) (CycleReport, error) {
	if !c.mu.TryLock() {
		return CycleReport{}, ErrCycleInProgress
	}
	defer c.mu.Unlock()

	report := CycleReport{StartedAt: time.Now().UTC()}

	if len(topics) == 0 && c.topics != nil {
		loaded, err := c.topics.Topics(ctx)
		if err != nil {
			return report, fmt.Errorf("load topics: %w", err)
		}
		topics = loaded
	}
	if len(topics) == 0 {
		c.logger.Warn("cycle has no topics, nothing to match")
	}

	if c.source == nil || c.matcher == nil {
		return report, fmt.Errorf("cycle is not wired")
	}

	batch, err := c.source.FetchAll(ctx)
	if err != nil {
		return report, fmt.Errorf("fetch articles: %w", err)
	}
	report.RunID = batch.RunID
	report.Fetched = len(batch.Articles)
	for _, s := range batch.Stats {
		report.Stats = append(report.Stats, s.String())
	}
	c.logger.Info("fetch completed", "run_id", batch.RunID, "articles", len(batch.Articles), "stats", batch.Summary())

	for matched := range c.matcher.ProcessRun(ctx, batch.RunID, batch.Articles, topics) {
		report.Matched++
		if onMatch != nil {
			onMatch(matched)
		}
		if c.notifier != nil {
			if err := c.notifier.Notify(ctx, matched); err != nil {
				c.logger.Warn("notify failed", "url", matched.Article.URL, "error", err)
			}
		}
	}

	report.FinishedAt = time.Now().UTC()
	c.logger.Info("cycle finished", "run_id", report.RunID, "fetched", report.Fetched, "matched", report.Matched)

	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}
