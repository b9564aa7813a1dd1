package httpapi

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"HNFilter/internal/domain"
	"HNFilter/internal/infrastructure/storage"
	"HNFilter/internal/usecase"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeRunner struct {
	matches []domain.MatchedArticle
	err     error
	topics  []domain.Topic
}

func (f *fakeRunner) Run(_ context.Context, topics []domain.Topic, onMatch func(domain.MatchedArticle)) (usecase.CycleReport, error) {
	f.topics = topics
	for _, m := range f.matches {
		onMatch(m)
	}
	return usecase.CycleReport{RunID: "run-1", Fetched: 3, Matched: len(f.matches)}, f.err
}

func sampleMatch(url string, at time.Time) domain.MatchedArticle {
	return domain.MatchedArticle{
		Article:   domain.Article{Title: "title " + url, URL: url, CommentCount: 30},
		Matches:   []domain.TopicMatch{{Topic: "go", RawResponse: "yes"}},
		RunID:     "run-1",
		MatchedAt: at,
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()

	s := NewServer(":0", &fakeRunner{}, storage.NewMemoryRepository(), nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
}

func TestCreateRunStreamsMatches(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{matches: []domain.MatchedArticle{
		sampleMatch("https://example.com/1", time.Now()),
		sampleMatch("https://example.com/2", time.Now()),
	}}
	s := NewServer(":0", runner, storage.NewMemoryRepository(), nil)

	body := strings.NewReader(`{"topics":["go"],"text":"- rust\n\ndatabases"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/runs", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/x-ndjson" {
		t.Fatalf("unexpected content type %q", ct)
	}

	want := []domain.Topic{"go", "rust", "databases"}
	if len(runner.topics) != len(want) {
		t.Fatalf("unexpected topics %v", runner.topics)
	}
	for i := range want {
		if runner.topics[i] != want[i] {
			t.Fatalf("unexpected topics %v", runner.topics)
		}
	}

	var events []streamEvent
	scanner := bufio.NewScanner(rec.Body)
	for scanner.Scan() {
		var ev streamEvent
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			t.Fatalf("decode line %q: %v", scanner.Text(), err)
		}
		events = append(events, ev)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if events[0].Type != "match" || events[0].Article.URL != "https://example.com/1" {
		t.Fatalf("unexpected first event %+v", events[0])
	}
	if events[2].Type != "report" || events[2].Report.RunID != "run-1" || events[2].Report.Matched != 2 {
		t.Fatalf("unexpected report event %+v", events[2])
	}
}

func TestCreateRunWithoutBodyUsesDefaults(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{}
	s := NewServer(":0", runner, storage.NewMemoryRepository(), nil)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/runs", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if len(runner.topics) != 0 {
		t.Fatalf("expected default topics, got %v", runner.topics)
	}
}

func TestCreateRunConflict(t *testing.T) {
	t.Parallel()

	s := NewServer(":0", &fakeRunner{err: usecase.ErrCycleInProgress}, storage.NewMemoryRepository(), nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/runs", nil))

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestCreateRunBadBody(t *testing.T) {
	t.Parallel()

	s := NewServer(":0", &fakeRunner{}, storage.NewMemoryRepository(), nil)
	req := httptest.NewRequest(http.MethodPost, "/api/runs", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCreateRunErrorAfterStreaming(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{
		matches: []domain.MatchedArticle{sampleMatch("https://example.com/1", time.Now())},
		err:     errors.New("context canceled"),
	}
	s := NewServer(":0", runner, storage.NewMemoryRepository(), nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/runs", nil))

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	if len(lines) != 2 || !strings.Contains(lines[1], `"type":"error"`) {
		t.Fatalf("expected trailing error event, got %q", rec.Body.String())
	}
}

func TestListArticles(t *testing.T) {
	t.Parallel()

	repo := storage.NewMemoryRepository()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i, url := range []string{"https://example.com/1", "https://example.com/2", "https://example.com/3"} {
		if err := repo.Save(context.Background(), sampleMatch(url, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("Save error: %v", err)
		}
	}
	s := NewServer(":0", &fakeRunner{}, repo, nil)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/articles?limit=2", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}

	var views []ArticleView
	if err := json.Unmarshal(rec.Body.Bytes(), &views); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(views) != 2 || views[0].URL != "https://example.com/3" {
		t.Fatalf("unexpected views %+v", views)
	}

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/articles?limit=abc", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad limit, got %d", rec.Code)
	}
}

func TestListArticlesMarkdown(t *testing.T) {
	t.Parallel()

	repo := storage.NewMemoryRepository()
	match := sampleMatch("https://example.com/1", time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	match.Matches = append(match.Matches, domain.TopicMatch{Topic: "databases", RawResponse: "yes", Similarity: 0.834, Prefiltered: true})
	if err := repo.Save(context.Background(), match); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	s := NewServer(":0", &fakeRunner{}, repo, nil)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/articles?format=markdown", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/markdown") {
		t.Fatalf("unexpected content type %q", ct)
	}

	want := "# Verified Hacker News Links\n\n" +
		"- [title https://example.com/1](https://example.com/1)\n" +
		"  - Matched Topic: go (Match (embedding filter disabled))\n" +
		"  - Matched Topic: databases (Verified match (similarity: 0.83))\n"
	if rec.Body.String() != want {
		t.Fatalf("got %q, want %q", rec.Body.String(), want)
	}
}

func TestRenderMarkdownEmpty(t *testing.T) {
	t.Parallel()

	if got := RenderMarkdown(nil); got != "" {
		t.Fatalf("expected empty document, got %q", got)
	}
}

type fakeSummarizer struct {
	summary string
	err     error
	url     string
}

func (f *fakeSummarizer) Summarize(_ context.Context, url string) (string, error) {
	f.url = url
	return f.summary, f.err
}

func TestSummarizeArticle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		summarizer *fakeSummarizer
		target     string
		wantCode   int
		wantBody   string
	}{
		{
			name:       "summary",
			summarizer: &fakeSummarizer{summary: "short"},
			target:     "/api/articles/summary?url=https://example.com/a",
			wantCode:   http.StatusOK,
			wantBody:   `"summary":"short"`,
		},
		{
			name:       "missing url",
			summarizer: &fakeSummarizer{},
			target:     "/api/articles/summary",
			wantCode:   http.StatusBadRequest,
		},
		{
			name:       "no content",
			summarizer: &fakeSummarizer{err: usecase.ErrNoContent},
			target:     "/api/articles/summary?url=https://example.com/a",
			wantCode:   http.StatusUnprocessableEntity,
			wantBody:   `"Error: `,
		},
		{
			name:       "backend failure",
			summarizer: &fakeSummarizer{err: errors.New("quota")},
			target:     "/api/articles/summary?url=https://example.com/a",
			wantCode:   http.StatusBadGateway,
			wantBody:   "quota",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := NewServer(":0", &fakeRunner{}, storage.NewMemoryRepository(), nil).WithSummarizer(tt.summarizer)
			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.target, nil))

			if rec.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d: %s", tt.wantCode, rec.Code, rec.Body.String())
			}
			if tt.wantBody != "" && !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Fatalf("body %q misses %q", rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestSummarizeArticleNotConfigured(t *testing.T) {
	t.Parallel()

	s := NewServer(":0", &fakeRunner{}, storage.NewMemoryRepository(), nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/articles/summary?url=https://example.com/a", nil))
	if rec.Code != http.StatusNotImplemented {
		t.Fatalf("expected 501, got %d", rec.Code)
	}
}
