package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"HNFilter/internal/domain"
	"HNFilter/internal/ports"
	"HNFilter/internal/usecase"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// CycleRunner executes one fetch-and-match cycle.
type CycleRunner interface {
	Run(ctx context.Context, topics []domain.Topic, onMatch func(domain.MatchedArticle)) (usecase.CycleReport, error)
}

// Summarizer produces a short summary of the page at url.
type Summarizer interface {
	Summarize(ctx context.Context, url string) (string, error)
}

// Server exposes health, run trigger and stored matches over HTTP.
type Server struct {
	engine     *gin.Engine
	runner     CycleRunner
	repo       ports.ArticleRepository
	summarizer Summarizer
	logger     *slog.Logger
	srv        *http.Server
}

// NewServer builds the gin engine and routes.
func NewServer(addr string, runner CycleRunner, repo ports.ArticleRepository, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(logger))

	s := &Server{
		engine: engine,
		runner: runner,
		repo:   repo,
		logger: logger.With("component", "http"),
	}

	engine.GET("/healthz", s.health)
	api := engine.Group("/api")
	{
		api.POST("/runs", s.createRun)
		api.GET("/articles", s.listArticles)
		api.GET("/articles/summary", s.summarizeArticle)
	}

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// WithSummarizer enables the summary endpoint.
func (s *Server) WithSummarizer(summarizer Summarizer) *Server {
	s.summarizer = summarizer
	return s
}

// Handler returns the routed engine.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe blocks until the server stops; a graceful shutdown returns nil.
func (s *Server) ListenAndServe() error {
	s.logger.Info("http server listening", "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type runRequest struct {
	Topics []string `json:"topics"`
	Text   string   `json:"text"`
}

type streamEvent struct {
	Type    string               `json:"type"`
	Article *ArticleView         `json:"article,omitempty"`
	Report  *usecase.CycleReport `json:"report,omitempty"`
	Error   string               `json:"error,omitempty"`
}

func (s *Server) createRun(c *gin.Context) {
	var req runRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}
	}

	topics := domain.TopicsFromStrings(req.Topics)
	if strings.TrimSpace(req.Text) != "" {
		topics = domain.TopicsFromStrings(append(topicStrings(topics), req.Text))
	}

	started := false
	enc := json.NewEncoder(c.Writer)
	write := func(ev streamEvent) {
		if !started {
			c.Header("Content-Type", "application/x-ndjson")
			c.Status(http.StatusOK)
			started = true
		}
		if err := enc.Encode(ev); err != nil {
			s.logger.Warn("stream write failed", "error", err)
			return
		}
		c.Writer.Flush()
	}

	report, err := s.runner.Run(c.Request.Context(), topics, func(m domain.MatchedArticle) {
		view := NewArticleView(m)
		write(streamEvent{Type: "match", Article: &view})
	})

	switch {
	case errors.Is(err, usecase.ErrCycleInProgress) && !started:
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case err != nil && !started:
		s.logger.Error("run failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	case err != nil:
		write(streamEvent{Type: "error", Error: err.Error()})
	default:
		write(streamEvent{Type: "report", Report: &report})
	}
}

func (s *Server) listArticles(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultListLimit)))
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	articles, err := s.repo.List(c.Request.Context(), limit)
	if err != nil {
		s.logger.Error("list articles failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list articles"})
		return
	}

	if c.Query("format") == "markdown" {
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="hacker_news_links_%s.md"`, time.Now().Format("2006-01-02")))
		c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(RenderMarkdown(articles)))
		return
	}

	views := make([]ArticleView, 0, len(articles))
	for _, a := range articles {
		views = append(views, NewArticleView(a))
	}
	c.JSON(http.StatusOK, views)
}

func (s *Server) summarizeArticle(c *gin.Context) {
	if s.summarizer == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "summaries are not configured"})
		return
	}

	url := strings.TrimSpace(c.Query("url"))
	if url == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url is required"})
		return
	}

	summary, err := s.summarizer.Summarize(c.Request.Context(), url)
	switch {
	case errors.Is(err, usecase.ErrNoContent):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Error: " + err.Error()})
	case err != nil:
		s.logger.Error("summary failed", "url", url, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Error: " + err.Error()})
	default:
		c.JSON(http.StatusOK, gin.H{"url": url, "summary": summary})
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}

func topicStrings(topics []domain.Topic) []string {
	out := make([]string, len(topics))
	for i, t := range topics {
		out[i] = string(t)
	}
	return out
}
