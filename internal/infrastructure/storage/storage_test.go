package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"HNFilter/internal/config"
	"HNFilter/internal/domain"
)

func matched(url string, at time.Time, topics ...domain.Topic) domain.MatchedArticle {
	matches := make([]domain.TopicMatch, len(topics))
	for i, topic := range topics {
		matches[i] = domain.TopicMatch{Topic: topic, RawResponse: "yes"}
	}
	return domain.MatchedArticle{
		Article: domain.Article{
			ID:           "hn-1",
			Title:        "title for " + url,
			URL:          url,
			Source:       "hackernews",
			PublishedAt:  at.Add(-time.Hour),
			CommentCount: 42,
			Points:       100,
		},
		Matches:   matches,
		RunID:     "run-1",
		MatchedAt: at,
	}
}

func exerciseRepository(t *testing.T, repo Repository) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	exists, err := repo.Exists(ctx, "https://example.com/a")
	if err != nil || exists {
		t.Fatalf("expected missing article, got %v %v", exists, err)
	}

	if err := repo.Save(ctx, matched("https://example.com/a", base, "go", "databases")); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if err := repo.Save(ctx, matched("https://example.com/b", base.Add(time.Minute), "rust")); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	duplicate := matched(" https://example.com/a ", base.Add(time.Hour), "other")
	if err := repo.Save(ctx, duplicate); err != nil {
		t.Fatalf("duplicate Save should be a no-op, got %v", err)
	}

	exists, err = repo.Exists(ctx, "https://example.com/a")
	if err != nil || !exists {
		t.Fatalf("expected stored article, got %v %v", exists, err)
	}

	all, err := repo.List(ctx, 0)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 articles, got %d", len(all))
	}
	if all[0].Article.URL != "https://example.com/b" || all[1].Article.URL != "https://example.com/a" {
		t.Fatalf("expected newest first, got %s, %s", all[0].Article.URL, all[1].Article.URL)
	}

	a := all[1]
	if len(a.Matches) != 2 || a.Matches[0].Topic != "go" || a.Matches[1].Topic != "databases" {
		t.Fatalf("matches not preserved: %+v", a.Matches)
	}
	if !a.MatchedAt.Equal(base) || a.Article.CommentCount != 42 || a.RunID != "run-1" {
		t.Fatalf("fields not preserved: %+v", a)
	}

	limited, err := repo.List(ctx, 1)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(limited) != 1 || limited[0].Article.URL != "https://example.com/b" {
		t.Fatalf("unexpected limited list %+v", limited)
	}
}

func TestSQLiteRepository(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "hnfilter.db")
	repo, err := Open(context.Background(), config.StorageConfig{Driver: "sqlite", DSN: path})
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	defer repo.Close()

	exerciseRepository(t, repo)
}

func TestSQLiteRepositoryReopen(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "hnfilter.db")

	first, err := OpenSQL(ctx, DriverSQLite, path)
	if err != nil {
		t.Fatalf("OpenSQL error: %v", err)
	}
	if err := first.Save(ctx, matched("https://example.com/a", time.Now(), "go")); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	second, err := OpenSQL(ctx, DriverSQLite, path)
	if err != nil {
		t.Fatalf("reopen error: %v", err)
	}
	defer second.Close()

	exists, err := second.Exists(ctx, "https://example.com/a")
	if err != nil || !exists {
		t.Fatalf("expected article to survive reopen, got %v %v", exists, err)
	}
}

func TestMemoryRepository(t *testing.T) {
	t.Parallel()

	repo, err := Open(context.Background(), config.StorageConfig{Driver: "memory"})
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	exerciseRepository(t, repo)
}

func TestNewSQLRepositoryPlaceholders(t *testing.T) {
	t.Parallel()

	// sql.Open does not dial, so a postgres handle can be built without a server.
	db, err := sql.Open(DriverPostgres, "postgres://hnfilter@127.0.0.1:1/hnfilter?sslmode=disable")
	if err != nil {
		t.Fatalf("sql.Open error: %v", err)
	}
	defer db.Close()

	tests := []struct {
		driver string
		want   string
	}{
		{driver: DriverPostgres, want: "SELECT 1 FROM matched_articles WHERE url = $1 AND run_id = $2"},
		{driver: DriverSQLite, want: "SELECT 1 FROM matched_articles WHERE url = ? AND run_id = ?"},
	}

	for _, tt := range tests {
		repo := NewSQLRepository(db, tt.driver)
		query, _, err := repo.builder.Select("1").From(articlesTable).
			Where("url = ?", "u").Where("run_id = ?", "r").ToSql()
		if err != nil {
			t.Fatalf("%s: ToSql error: %v", tt.driver, err)
		}
		if query != tt.want {
			t.Fatalf("%s: got %q, want %q", tt.driver, query, tt.want)
		}
	}
}

func TestRedisRepository(t *testing.T) {
	t.Parallel()

	server := miniredis.RunT(t)
	repo, err := Open(context.Background(), config.StorageConfig{Driver: "redis", RedisAddr: server.Addr()})
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	defer repo.Close()

	exerciseRepository(t, repo)

	score, err := server.ZScore(redisIndexKey, "https://example.com/a")
	if err != nil {
		t.Fatalf("ZScore error: %v", err)
	}
	want := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC).UnixMilli()
	if int64(score) != want {
		t.Fatalf("duplicate save moved the index score: got %v, want %d", score, want)
	}
	if members, _ := server.ZMembers(redisIndexKey); len(members) != 2 {
		t.Fatalf("expected 2 index members, got %v", members)
	}
}

func TestRedisRepositoryIndexesOrphanedDocument(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	server := miniredis.RunT(t)
	repo := NewRedisRepository(server.Addr())
	defer repo.Close()

	// A document without an index entry, as left by an older partial write.
	if err := server.Set(articleKey("https://example.com/a"), `{"url":"https://example.com/a"}`); err != nil {
		t.Fatalf("Set error: %v", err)
	}

	if err := repo.Save(ctx, matched("https://example.com/a", time.Now(), "go")); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	all, err := repo.List(ctx, 0)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(all) != 1 || all[0].Article.URL != "https://example.com/a" {
		t.Fatalf("expected the stored document to be listed, got %+v", all)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	t.Parallel()

	if _, err := Open(context.Background(), config.StorageConfig{Driver: "mongo"}); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestRedisRepositoryUnreachable(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if _, err := Open(ctx, config.StorageConfig{Driver: "redis", RedisAddr: "127.0.0.1:1"}); err == nil {
		t.Fatal("expected ping failure for unreachable redis")
	}
}

func TestArticleKeyTrims(t *testing.T) {
	t.Parallel()

	if got := articleKey("  https://example.com/x "); got != "hnfilter:article:https://example.com/x" {
		t.Fatalf("unexpected key %q", got)
	}
}
