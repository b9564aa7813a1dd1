package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"HNFilter/internal/logging"
	"HNFilter/internal/ports"
)

// ErrNoContent is returned when no readable text could be extracted from the URL.
var ErrNoContent = errors.New("could not fetch article content from url")

const summaryPrompt = "Please provide a concise summary of the following article text:\n\n"

// SummaryOptions tunes the summary retry policy.
type SummaryOptions struct {
	MaxAttempts int
	Cooldown    time.Duration
}

// Summarizer condenses an article page into a short LLM-written summary.
type Summarizer struct {
	completer ports.Completer
	content   ports.ContentFetcher
	opts      SummaryOptions
	logger    *slog.Logger
}

// NewSummarizer wires a completion backend and a page text extractor.
// Zero attempts means 3; a negative cooldown means 5s.
func NewSummarizer(completer ports.Completer, content ports.ContentFetcher, opts SummaryOptions, logger *slog.Logger) *Summarizer {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.Cooldown < 0 {
		opts.Cooldown = defaultErrorCooldown
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Summarizer{
		completer: completer,
		content:   content,
		opts:      opts,
		logger:    logger.With("component", "summarizer"),
	}
}

// Summarize fetches the page at url and asks the backend for a summary.
func (s *Summarizer) Summarize(ctx context.Context, url string) (string, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return "", fmt.Errorf("url is required")
	}

	text := strings.TrimSpace(s.content.Fetch(ctx, url))
	if text == "" {
		s.logger.Warn("no content to summarize", "url", url)
		return "", ErrNoContent
	}

	summary, err := completeWithRetry(ctx, s.completer, summaryPrompt+text, s.opts.MaxAttempts, func(error) time.Duration {
		return s.opts.Cooldown
	}, s.logger)
	if err != nil {
		return "", fmt.Errorf("summarize after %d attempts: %w", s.opts.MaxAttempts, err)
	}
	return strings.TrimSpace(summary), nil
}
