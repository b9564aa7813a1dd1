package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"HNFilter/internal/config"
	"HNFilter/internal/domain"
	"HNFilter/internal/infrastructure/content"
	"HNFilter/internal/infrastructure/httpapi"
	"HNFilter/internal/infrastructure/llm"
	"HNFilter/internal/infrastructure/ml"
	"HNFilter/internal/infrastructure/parser"
	"HNFilter/internal/infrastructure/scheduler"
	"HNFilter/internal/infrastructure/storage"
	"HNFilter/internal/infrastructure/telegram"
	"HNFilter/internal/infrastructure/topics"
	"HNFilter/internal/logging"
	"HNFilter/internal/ports"
	"HNFilter/internal/scanner"
	"HNFilter/internal/usecase"
)

const shutdownTimeout = 15 * time.Second

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg        config.Config
	logger     *slog.Logger
	repo       storage.Repository
	cycle      *usecase.Cycle
	summarizer *usecase.Summarizer
}

// New builds every adapter selected by cfg.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	repo, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	completer, err := newCompleter(ctx, cfg.Oracle)
	if err != nil {
		_ = repo.Close()
		return nil, err
	}

	matcher := usecase.NewMatcher(usecase.MatcherDeps{
		Verifier:   usecase.NewOracle(completer, oracleOptions(cfg.Oracle), baseLogger),
		Narrower:   newNarrower(cfg.Prefilter),
		Repository: repo,
		Logger:     baseLogger,
	})

	cycle := usecase.NewCycle(usecase.CycleDeps{
		Source:   newSource(cfg, baseLogger),
		Matcher:  matcher,
		Notifier: newNotifier(cfg.Telegram, baseLogger),
		Topics:   topics.NewSource(cfg.Topics),
		Logger:   baseLogger,
	})

	summarizer := usecase.NewSummarizer(completer, newPageFetcher(cfg, baseLogger), usecase.SummaryOptions{
		MaxAttempts: cfg.Oracle.MaxAttempts,
		Cooldown:    time.Duration(cfg.Oracle.ErrorCooldownSec) * time.Second,
	}, baseLogger)

	return &Application{cfg: cfg, logger: baseLogger, repo: repo, cycle: cycle, summarizer: summarizer}, nil
}

// RunOnce executes a single cycle and prints each match to out.
func (a *Application) RunOnce(ctx context.Context, out io.Writer) error {
	report, err := a.cycle.Run(ctx, nil, func(m domain.MatchedArticle) {
		fmt.Fprintf(out, "%s\n%s\nTopics: %s\n\n", m.Article.Title, m.Article.URL, strings.Join(m.TopicNames(), ", "))
	})
	if err != nil {
		return err
	}

	for _, line := range report.Stats {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintf(out, "matched %d of %d articles\n", report.Matched, report.Fetched)
	return nil
}

// Serve runs the cron scheduler and the HTTP API until ctx is cancelled.
func (a *Application) Serve(ctx context.Context) error {
	cron, err := scheduler.NewCronScheduler(a.cfg.Scheduler.CronExpression, a.cfg.Scheduler.Location(), a.logger)
	if err != nil {
		return err
	}
	sched := usecase.NewScheduler(cron, a.cycle, a.logger)
	server := httpapi.NewServer(a.cfg.HTTP.Addr, a.cycle, a.repo, a.logger).WithSummarizer(a.summarizer)

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(server.ListenAndServe)
	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		var errs []error
		if err := server.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown http: %w", err))
		}
		if err := sched.Stop(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("stop scheduler: %w", err))
		}
		return errors.Join(errs...)
	})

	return g.Wait()
}

// Summarize returns a short LLM summary of the page at url.
func (a *Application) Summarize(ctx context.Context, url string) (string, error) {
	return a.summarizer.Summarize(ctx, url)
}

// Close releases storage connections.
func (a *Application) Close() error {
	if a.repo == nil {
		return nil
	}
	return a.repo.Close()
}

func newSource(cfg config.Config, logger *slog.Logger) ports.ArticleSource {
	client := &http.Client{Timeout: time.Duration(cfg.HackerNews.TimeoutSecond) * time.Second}

	registry := scanner.NewRegistry()
	registry.Register(parser.NewAlgoliaScanner(client, parser.AlgoliaOptions{
		Endpoint:    cfg.HackerNews.Endpoint,
		HitsPerPage: cfg.HackerNews.HitsPerPage,
		MaxPages:    cfg.HackerNews.MaxPages,
	}, logger.With("component", "scanner.algolia")))
	if cfg.RSS.Enabled {
		registry.Register(parser.NewRSSScanner(client, cfg.RSS.FeedURL, logger.With("component", "scanner.rss")))
	}

	deps := parser.SourceDeps{
		Concurrency: cfg.Content.Concurrency,
		Logger:      logger.With("component", "source"),
	}
	if cfg.Content.Enabled {
		deps.Content = content.NewFetcher(client, cfg.Content.MaxChars, logger.With("component", "content"))
	}

	return parser.NewStrategySource(registry, cfg.HackerNews, deps)
}

func newPageFetcher(cfg config.Config, logger *slog.Logger) ports.ContentFetcher {
	client := &http.Client{Timeout: time.Duration(cfg.HackerNews.TimeoutSecond) * time.Second}
	return content.NewFetcher(client, cfg.Content.MaxChars, logger.With("component", "content"))
}

func newCompleter(ctx context.Context, cfg config.OracleConfig) (ports.Completer, error) {
	switch strings.ToLower(cfg.Provider) {
	case "gemini":
		client, err := llm.NewGeminiClient(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("init gemini: %w", err)
		}
		return client, nil
	case "", "openai", "groq":
		return llm.NewChatGPTClient(cfg, nil), nil
	default:
		return nil, fmt.Errorf("unknown oracle provider %q", cfg.Provider)
	}
}

func oracleOptions(cfg config.OracleConfig) usecase.OracleOptions {
	return usecase.OracleOptions{
		UseContent:        cfg.UseContent,
		ContentChars:      cfg.ContentChars,
		MaxAttempts:       cfg.MaxAttempts,
		RateLimitCooldown: time.Duration(cfg.RateLimitCooldownSec) * time.Second,
		ErrorCooldown:     time.Duration(cfg.ErrorCooldownSec) * time.Second,
	}
}

func newNarrower(cfg config.PrefilterConfig) usecase.TopicNarrower {
	if !cfg.Enabled {
		return usecase.PassThroughNarrower{}
	}
	return usecase.NewEmbeddingNarrower(ml.NewClient(cfg, nil), cfg.Threshold)
}

func newNotifier(cfg config.TelegramConfig, logger *slog.Logger) ports.Notifier {
	if cfg.BotToken == "" || cfg.ChatID == 0 {
		return nil
	}
	notifier, err := telegram.NewNotifier(cfg.BotToken, cfg.ChatID, logger)
	if err != nil {
		logger.Warn("telegram disabled", "error", err)
		return nil
	}
	return notifier
}
