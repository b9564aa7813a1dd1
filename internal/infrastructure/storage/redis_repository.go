package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"HNFilter/internal/domain"
	"HNFilter/internal/ports"
)

const (
	redisArticlePrefix = "hnfilter:article:"
	redisIndexKey      = "hnfilter:articles"
)

// RedisRepository keeps one JSON document per URL and a sorted index by match time.
type RedisRepository struct {
	client *redis.Client
}

var _ ports.ArticleRepository = (*RedisRepository)(nil)

// NewRedisRepository connects to addr.
func NewRedisRepository(addr string) *RedisRepository {
	return NewRedisRepositoryWithClient(redis.NewClient(&redis.Options{Addr: addr}))
}

// NewRedisRepositoryWithClient wraps an existing client.
func NewRedisRepositoryWithClient(client *redis.Client) *RedisRepository {
	return &RedisRepository{client: client}
}

// Ping tests connectivity.
func (r *RedisRepository) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}

// Exists reports whether url already has a document.
func (r *RedisRepository) Exists(ctx context.Context, url string) (bool, error) {
	n, err := r.client.Exists(ctx, articleKey(url)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists: %w", err)
	}
	return n > 0, nil
}

// Save writes the document with SETNX and indexes it with ZADD NX inside one
// MULTI block, so a duplicate URL is a no-op and a stored document is always listed.
func (r *RedisRepository) Save(ctx context.Context, article domain.MatchedArticle) error {
	payload, err := json.Marshal(toRecord(article))
	if err != nil {
		return fmt.Errorf("marshal article: %w", err)
	}

	key := articleKey(article.Article.URL)
	member := redis.Z{Score: float64(unixMilli(article.MatchedAt)), Member: article.Article.Key()}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SetNX(ctx, key, payload, 0)
		pipe.ZAddNX(ctx, redisIndexKey, member)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis save: %w", err)
	}
	return nil
}

// List returns stored articles, most recently matched first. limit <= 0 means all.
func (r *RedisRepository) List(ctx context.Context, limit int) ([]domain.MatchedArticle, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}

	urls, err := r.client.ZRevRange(ctx, redisIndexKey, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("redis zrevrange: %w", err)
	}
	if len(urls) == 0 {
		return nil, nil
	}

	keys := make([]string, len(urls))
	for i, url := range urls {
		keys[i] = articleKey(url)
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget: %w", err)
	}

	result := make([]domain.MatchedArticle, 0, len(values))
	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			continue
		}
		var rec record
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("decode %s: %w", keys[i], err)
		}
		result = append(result, rec.toDomain())
	}
	return result, nil
}

// Close releases the client connection pool.
func (r *RedisRepository) Close() error {
	if err := r.client.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
		return err
	}
	return nil
}

func articleKey(url string) string {
	return redisArticlePrefix + domain.NormalizeURL(url)
}
