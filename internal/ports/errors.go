package ports

import "errors"

var (
	// ErrRateLimited marks an HTTP 429 / throttling answer from a completion backend.
	ErrRateLimited = errors.New("llm rate limited")
	// ErrQuotaExhausted marks a provider-reported exhausted quota or billing limit.
	ErrQuotaExhausted = errors.New("llm quota exhausted")
	// ErrEmptyCompletion is returned when the backend answered without any text.
	ErrEmptyCompletion = errors.New("llm returned empty completion")
)

// IsCooldownError reports whether err asks the caller to back off for the long cooldown.
func IsCooldownError(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrQuotaExhausted)
}
