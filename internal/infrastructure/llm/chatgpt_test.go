package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"HNFilter/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *ChatGPTClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewChatGPTClient(config.OracleConfig{
		Endpoint: srv.URL,
		Model:    "gpt-4o-mini",
		APIKey:   "secret",
	}, srv.Client())
}

func TestChatGPTComplete(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("unexpected auth header %q", got)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "gpt-4o-mini" || len(req.Messages) != 1 || req.Messages[0].Role != "user" {
			t.Errorf("unexpected request %+v", req)
		}
		if !strings.Contains(req.Messages[0].Content, "prompt body") {
			t.Errorf("prompt not forwarded: %q", req.Messages[0].Content)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"1. yes\n2. no"}}]}`))
	})

	got, err := client.Complete(context.Background(), "prompt body")
	if err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	if got != "1. yes\n2. no" {
		t.Fatalf("unexpected completion %q", got)
	}
}

func TestChatGPTClassifiesErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{name: "rate limited", status: http.StatusTooManyRequests, body: `{"error":{"message":"slow down","code":"rate_limit_exceeded"}}`, want: ErrRateLimited},
		{name: "quota", status: http.StatusTooManyRequests, body: `{"error":{"message":"You exceeded your current quota","type":"insufficient_quota","code":"insufficient_quota"}}`, want: ErrQuotaExhausted},
		{name: "empty choices", status: http.StatusOK, body: `{"choices":[]}`, want: ErrEmptyCompletion},
		{name: "blank content", status: http.StatusOK, body: `{"choices":[{"message":{"content":"   "}}]}`, want: ErrEmptyCompletion},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})
			_, err := client.Complete(context.Background(), "x")
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestChatGPTStatusError(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := client.Complete(context.Background(), "x")
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusInternalServerError || statusErr.Body != "boom" {
		t.Fatalf("unexpected status error %+v", statusErr)
	}
	if IsCooldownError(err) {
		t.Fatal("server error should not use the long cooldown")
	}
}

func TestClassifyGeminiError(t *testing.T) {
	t.Parallel()

	if err := classifyGeminiError(errors.New("Error 429, Message: Resource has been exhausted (e.g. check quota)., Status: RESOURCE_EXHAUSTED")); !errors.Is(err, ErrQuotaExhausted) {
		t.Fatalf("expected quota error, got %v", err)
	}
	if err := classifyGeminiError(errors.New("Error 429: Too Many Requests")); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected rate limit error, got %v", err)
	}
	err := classifyGeminiError(errors.New("Error 500: internal"))
	if IsCooldownError(err) {
		t.Fatalf("unexpected cooldown classification for %v", err)
	}
}
