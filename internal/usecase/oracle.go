package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"HNFilter/internal/domain"
	"HNFilter/internal/logging"
	"HNFilter/internal/ports"
)

const (
	defaultMaxAttempts       = 3
	defaultRateLimitCooldown = 60 * time.Second
	defaultErrorCooldown     = 5 * time.Second
	defaultContentChars      = 2000
	missingAnswer            = "no"
)

// OracleOptions tunes prompt construction and the retry policy.
type OracleOptions struct {
	UseContent        bool
	ContentChars      int
	MaxAttempts       int
	RateLimitCooldown time.Duration
	ErrorCooldown     time.Duration
}

func (o OracleOptions) withDefaults() OracleOptions {
	if o.ContentChars <= 0 {
		o.ContentChars = defaultContentChars
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = defaultMaxAttempts
	}
	if o.RateLimitCooldown < 0 {
		o.RateLimitCooldown = defaultRateLimitCooldown
	}
	if o.ErrorCooldown < 0 {
		o.ErrorCooldown = defaultErrorCooldown
	}
	return o
}

// DefaultOracleOptions returns the production retry policy.
func DefaultOracleOptions() OracleOptions {
	return OracleOptions{
		ContentChars:      defaultContentChars,
		MaxAttempts:       defaultMaxAttempts,
		RateLimitCooldown: defaultRateLimitCooldown,
		ErrorCooldown:     defaultErrorCooldown,
	}
}

// Verifier decides per-topic relevance for one article.
type Verifier interface {
	Verify(ctx context.Context, article domain.Article, topics []domain.Topic) []domain.RelevanceVerdict
}

// Oracle batches all topics of one article into a single completion call.
type Oracle struct {
	completer ports.Completer
	opts      OracleOptions
	logger    *slog.Logger
}

var _ Verifier = (*Oracle)(nil)

// NewOracle wires a completion backend with the given options.
func NewOracle(completer ports.Completer, opts OracleOptions, logger *slog.Logger) *Oracle {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Oracle{
		completer: completer,
		opts:      opts.withDefaults(),
		logger:    logger.With("component", "oracle"),
	}
}

// Verify returns exactly one verdict per topic, in order. Backend failures that
// survive all attempts mark every topic as not relevant.
func (o *Oracle) Verify(ctx context.Context, article domain.Article, topics []domain.Topic) []domain.RelevanceVerdict {
	if len(topics) == 0 {
		return []domain.RelevanceVerdict{}
	}

	prompt := BuildPrompt(article, topics, o.opts.UseContent, o.opts.ContentChars)

	answer, err := o.complete(ctx, prompt)
	if err != nil {
		o.logger.Error("verification failed", "title", article.Title, "attempts", o.opts.MaxAttempts, "error", err)
		return failedVerdicts(topics, err)
	}

	verdicts := ParseVerdicts(answer, topics)
	o.logger.Info("verification completed", "title", article.Title, "topics", len(topics))
	return verdicts
}

func (o *Oracle) complete(ctx context.Context, prompt string) (string, error) {
	return completeWithRetry(ctx, o.completer, prompt, o.opts.MaxAttempts, func(err error) time.Duration {
		if ports.IsCooldownError(err) {
			return o.opts.RateLimitCooldown
		}
		return o.opts.ErrorCooldown
	}, o.logger)
}

// completeWithRetry calls completer up to attempts times. A blank answer counts
// as a failure. cooldown picks the wait after each failed attempt.
func completeWithRetry(ctx context.Context, completer ports.Completer, prompt string, attempts int, cooldown func(error) time.Duration, logger *slog.Logger) (string, error) {
	var (
		answer  string
		lastErr error
		attempt int
	)

	backoff := retry.BackoffFunc(func() (time.Duration, bool) {
		return cooldown(lastErr), false
	})

	err := retry.Do(ctx, retry.WithMaxRetries(uint64(attempts-1), backoff), func(ctx context.Context) error {
		attempt++
		text, err := completer.Complete(ctx, prompt)
		if err == nil && strings.TrimSpace(text) == "" {
			err = ports.ErrEmptyCompletion
		}
		if err != nil {
			lastErr = err
			logger.Warn("completion attempt failed",
				"attempt", attempt,
				"max_attempts", attempts,
				"cooldown", ports.IsCooldownError(err),
				"error", err)
			return retry.RetryableError(err)
		}
		answer = text
		return nil
	})
	if err != nil {
		return "", err
	}
	return answer, nil
}

// BuildPrompt renders the numbered question list sent to the backend.
func BuildPrompt(article domain.Article, topics []domain.Topic, useContent bool, contentChars int) string {
	var b strings.Builder

	b.WriteString("Analyze if this article is relevant to each of the following questions/topics.\n")
	b.WriteString("For each question, respond with a single line containing the question number followed by 'yes' or 'no'.\n\n")
	fmt.Fprintf(&b, "Article Title: %s\n", article.Title)
	if useContent && article.Content != "" {
		fmt.Fprintf(&b, "Article Content: %s\n", prefixRunes(article.Content, contentChars))
	}
	b.WriteString("\nQuestions/Topics:\n")
	for i, topic := range topics {
		fmt.Fprintf(&b, "%d. %s\n", i+1, topic)
	}
	b.WriteString("\nFor each question above, respond with the question number followed by 'yes' or 'no' on separate lines.\n")
	b.WriteString("Example:\n1. yes\n2. no\n3. no")

	return b.String()
}

// ParseVerdicts reads "<n>. yes|no" lines. Lines that do not start with a digit,
// lack a '.', carry a non-integer number or point outside topics are ignored.
// Topics without an answer default to "no".
func ParseVerdicts(response string, topics []domain.Topic) []domain.RelevanceVerdict {
	answers := make(map[domain.Topic]string, len(topics))

	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || line[0] < '0' || line[0] > '9' {
			continue
		}

		left, right, ok := strings.Cut(line, ".")
		if !ok {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(left))
		if err != nil {
			continue
		}
		idx := n - 1
		if idx < 0 || idx >= len(topics) {
			continue
		}
		answers[topics[idx]] = strings.ToLower(strings.TrimSpace(right))
	}

	verdicts := make([]domain.RelevanceVerdict, 0, len(topics))
	for _, topic := range topics {
		answer, ok := answers[topic]
		if !ok {
			answer = missingAnswer
		}
		verdicts = append(verdicts, domain.RelevanceVerdict{
			Topic:       topic,
			IsRelevant:  answer == "yes",
			RawResponse: answer,
		})
	}
	return verdicts
}

func failedVerdicts(topics []domain.Topic, cause error) []domain.RelevanceVerdict {
	raw := fmt.Sprintf("Error: %v", cause)
	verdicts := make([]domain.RelevanceVerdict, len(topics))
	for i, topic := range topics {
		verdicts[i] = domain.RelevanceVerdict{Topic: topic, RawResponse: raw}
	}
	return verdicts
}

func prefixRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
