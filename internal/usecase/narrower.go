package usecase

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"

	"HNFilter/internal/domain"
	"HNFilter/internal/ports"
)

// DefaultSimilarityThreshold is the cosine score a topic must exceed to reach the oracle.
const DefaultSimilarityThreshold = 0.7

// CandidateTopic is a topic selected for verification, with its pre-filter score.
type CandidateTopic struct {
	Topic       domain.Topic
	Similarity  float64
	Prefiltered bool
}

// TopicNarrower selects the subset of topics worth sending to the oracle.
type TopicNarrower interface {
	Narrow(ctx context.Context, article domain.Article, topics []domain.Topic) ([]CandidateTopic, error)
}

// PassThroughNarrower keeps every topic.
type PassThroughNarrower struct{}

var _ TopicNarrower = PassThroughNarrower{}

func (PassThroughNarrower) Narrow(_ context.Context, _ domain.Article, topics []domain.Topic) ([]CandidateTopic, error) {
	out := make([]CandidateTopic, len(topics))
	for i, topic := range topics {
		out[i] = CandidateTopic{Topic: topic}
	}
	return out, nil
}

// EmbeddingNarrower keeps topics whose embedding is close to the article text.
// Topic vectors are cached for the lifetime of the narrower.
type EmbeddingNarrower struct {
	embedder  ports.Embedder
	threshold float64

	mu    sync.Mutex
	cache map[domain.Topic][]float64
}

var _ TopicNarrower = (*EmbeddingNarrower)(nil)

// NewEmbeddingNarrower uses DefaultSimilarityThreshold when threshold <= 0.
func NewEmbeddingNarrower(embedder ports.Embedder, threshold float64) *EmbeddingNarrower {
	if threshold <= 0 {
		threshold = DefaultSimilarityThreshold
	}
	return &EmbeddingNarrower{
		embedder:  embedder,
		threshold: threshold,
		cache:     make(map[domain.Topic][]float64),
	}
}

func (n *EmbeddingNarrower) Narrow(ctx context.Context, article domain.Article, topics []domain.Topic) ([]CandidateTopic, error) {
	if len(topics) == 0 {
		return nil, nil
	}

	topicVectors, err := n.topicVectors(ctx, topics)
	if err != nil {
		return nil, err
	}

	text := articleText(article)
	if text == "" {
		return nil, nil
	}
	vectors, err := n.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embed article: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embed article: got %d vectors", len(vectors))
	}

	var out []CandidateTopic
	for i, topic := range topics {
		score := cosine(vectors[0], topicVectors[i])
		if score > n.threshold {
			out = append(out, CandidateTopic{Topic: topic, Similarity: score, Prefiltered: true})
		}
	}
	return out, nil
}

func (n *EmbeddingNarrower) topicVectors(ctx context.Context, topics []domain.Topic) ([][]float64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	var missing []string
	for _, topic := range topics {
		if _, ok := n.cache[topic]; !ok {
			missing = append(missing, string(topic))
		}
	}

	if len(missing) > 0 {
		vectors, err := n.embedder.Embed(ctx, missing)
		if err != nil {
			return nil, fmt.Errorf("embed topics: %w", err)
		}
		if len(vectors) != len(missing) {
			return nil, fmt.Errorf("embed topics: got %d vectors for %d topics", len(vectors), len(missing))
		}
		for i, text := range missing {
			n.cache[domain.Topic(text)] = vectors[i]
		}
	}

	out := make([][]float64, len(topics))
	for i, topic := range topics {
		out[i] = n.cache[topic]
	}
	return out, nil
}

func articleText(article domain.Article) string {
	return strings.TrimSpace(article.Title + "\n" + article.Content)
}

func cosine(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
