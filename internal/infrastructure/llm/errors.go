package llm

import (
	"fmt"
	"strings"

	"HNFilter/internal/ports"
)

// Sentinels shared with the oracle retry policy.
var (
	ErrRateLimited     = ports.ErrRateLimited
	ErrQuotaExhausted  = ports.ErrQuotaExhausted
	ErrEmptyCompletion = ports.ErrEmptyCompletion
)

// StatusError is a non-success HTTP answer that is neither throttling nor quota.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("llm error %s", e.Status)
	}
	return fmt.Sprintf("llm error %s: %s", e.Status, e.Body)
}

// IsCooldownError reports whether err should trigger the long cooldown path.
func IsCooldownError(err error) bool {
	return ports.IsCooldownError(err)
}

func looksLikeQuota(text string) bool {
	lower := strings.ToLower(text)
	return strings.Contains(lower, "quota") || strings.Contains(lower, "billing")
}
