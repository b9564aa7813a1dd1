package topics

import (
	"context"
	"fmt"
	"os"

	"HNFilter/internal/config"
	"HNFilter/internal/domain"
	"HNFilter/internal/ports"
)

// Source yields inline topics when configured, otherwise the lines of a file.
// The file is re-read on every call so edits apply to the next cycle.
type Source struct {
	path   string
	inline []domain.Topic
}

var _ ports.TopicSource = (*Source)(nil)

// NewSource builds a topic source from configuration.
func NewSource(cfg config.TopicsConfig) *Source {
	return &Source{path: cfg.File, inline: domain.TopicsFromStrings(cfg.Items)}
}

func (s *Source) Topics(_ context.Context) ([]domain.Topic, error) {
	if len(s.inline) > 0 {
		return s.inline, nil
	}
	if s.path == "" {
		return nil, nil
	}

	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read topics file %s: %w", s.path, err)
	}
	return domain.ParseTopics(string(raw)), nil
}
