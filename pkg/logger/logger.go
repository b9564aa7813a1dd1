package logger

import (
	"log"
	"log/slog"
)

// New returns a printf-style logger that forwards into base, tagged with component.
// Libraries such as cron and the Telegram bot API expect this shape.
func New(base *slog.Logger, component string) *log.Logger {
	if base == nil {
		base = slog.Default()
	}
	return slog.NewLogLogger(base.With("component", component).Handler(), slog.LevelInfo)
}
