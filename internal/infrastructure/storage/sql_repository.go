package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"HNFilter/internal/domain"
	"HNFilter/internal/ports"
)

const articlesTable = "matched_articles"

var articleColumns = []string{
	"url", "external_id", "title", "source", "published_at", "comment_count",
	"points", "discussion_url", "matches", "run_id", "matched_at",
}

// SQLRepository persists matched articles into SQLite or Postgres.
type SQLRepository struct {
	db      *sql.DB
	builder sq.StatementBuilderType
	driver  string
}

var _ ports.ArticleRepository = (*SQLRepository)(nil)

// OpenSQL opens the database for driver ("sqlite" or "postgres") and applies the schema.
func OpenSQL(ctx context.Context, driver, dsn string) (*SQLRepository, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}

	repo := NewSQLRepository(db, driver)
	if err := repo.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// NewSQLRepository wires a sql.DB implementation.
func NewSQLRepository(db *sql.DB, driver string) *SQLRepository {
	var format sq.PlaceholderFormat = sq.Question
	if driver == DriverPostgres {
		format = sq.Dollar
	}
	return &SQLRepository{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(format),
		driver:  driver,
	}
}

// Migrate creates the articles table when missing.
func (r *SQLRepository) Migrate(ctx context.Context) error {
	query := `CREATE TABLE IF NOT EXISTS ` + articlesTable + ` (
		url            TEXT PRIMARY KEY,
		external_id    TEXT NOT NULL DEFAULT '',
		title          TEXT NOT NULL,
		source         TEXT NOT NULL DEFAULT '',
		published_at   BIGINT NOT NULL DEFAULT 0,
		comment_count  INTEGER NOT NULL DEFAULT 0,
		points         INTEGER NOT NULL DEFAULT 0,
		discussion_url TEXT NOT NULL DEFAULT '',
		matches        TEXT NOT NULL,
		run_id         TEXT NOT NULL DEFAULT '',
		matched_at     BIGINT NOT NULL
	)`
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("create %s: %w", articlesTable, err)
	}

	index := `CREATE INDEX IF NOT EXISTS idx_matched_articles_matched_at ON ` + articlesTable + ` (matched_at)`
	if _, err := r.db.ExecContext(ctx, index); err != nil {
		return fmt.Errorf("create matched_at index: %w", err)
	}
	return nil
}

// Exists reports whether url was already stored.
func (r *SQLRepository) Exists(ctx context.Context, url string) (bool, error) {
	query, args, err := r.builder.
		Select("1").
		From(articlesTable).
		Where(sq.Eq{"url": domain.NormalizeURL(url)}).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build exists query: %w", err)
	}

	var one int
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&one)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("query exists: %w", err)
	default:
		return true, nil
	}
}

// Save inserts the article; an existing URL is left untouched.
func (r *SQLRepository) Save(ctx context.Context, article domain.MatchedArticle) error {
	matches, err := json.Marshal(article.Matches)
	if err != nil {
		return fmt.Errorf("marshal matches: %w", err)
	}

	a := article.Article
	query, args, err := r.builder.
		Insert(articlesTable).
		Columns(articleColumns...).
		Values(
			a.Key(), a.ID, a.Title, a.Source, unixMilli(a.PublishedAt), a.CommentCount,
			a.Points, a.DiscussionURL, string(matches), article.RunID, unixMilli(article.MatchedAt),
		).
		Suffix("ON CONFLICT (url) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert article: %w", err)
	}
	return nil
}

// List returns the newest matches first; limit <= 0 returns everything.
func (r *SQLRepository) List(ctx context.Context, limit int) ([]domain.MatchedArticle, error) {
	builder := r.builder.
		Select(articleColumns...).
		From(articlesTable).
		OrderBy("matched_at DESC", "url")
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}

	var result []domain.MatchedArticle
	for rows.Next() {
		var (
			m                    domain.MatchedArticle
			published, matchedAt int64
			matches              string
		)
		if err := rows.Scan(
			&m.Article.URL, &m.Article.ID, &m.Article.Title, &m.Article.Source, &published,
			&m.Article.CommentCount, &m.Article.Points, &m.Article.DiscussionURL, &matches,
			&m.RunID, &matchedAt,
		); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan article: %w", err)
		}
		if err := json.Unmarshal([]byte(matches), &m.Matches); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("decode matches for %s: %w", m.Article.URL, err)
		}
		m.Article.PublishedAt = fromUnixMilli(published)
		m.MatchedAt = fromUnixMilli(matchedAt)
		result = append(result, m)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}

	return result, nil
}

// Close releases the database handle.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

func unixMilli(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromUnixMilli(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
