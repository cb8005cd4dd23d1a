package nexus

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

type fakeAPI struct {
	remaining   int
	generations atomic.Int32
	quotaCalls  atomic.Int32
	failWith    int
	failBody    string
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/flowminds/quota", func(w http.ResponseWriter, r *http.Request) {
		f.quotaCalls.Add(1)
		json.NewEncoder(w).Encode(map[string]any{
			"remaining": f.remaining,
			"limit":     10,
			"resetAt":   "2026-04-03T00:00:00Z",
		})
	})
	mux.HandleFunc("POST /v1/flowminds/generate", func(w http.ResponseWriter, r *http.Request) {
		f.generations.Add(1)
		if f.failWith != 0 {
			w.WriteHeader(f.failWith)
			w.Write([]byte(f.failBody))
			return
		}
		var req generateRequest
		json.NewDecoder(r.Body).Decode(&req)
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    map[string]string{"mermaid": "graph TD\nA[" + req.Prompt + "]"},
		})
	})
	return mux
}

func setup(t *testing.T, api *fakeAPI) *Client {
	t.Helper()
	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)
	return New(srv.URL + "/")
}

func TestQuota(t *testing.T) {
	c := setup(t, &fakeAPI{remaining: 7})

	if _, known := c.Remaining(); known {
		t.Fatal("remaining should be unknown before the first fetch")
	}
	q, err := c.Quota(context.Background())
	if err != nil {
		t.Fatalf("Quota: %v", err)
	}
	if q.Remaining != 7 || q.Limit != 10 {
		t.Errorf("quota = %+v", q)
	}
	if !q.ResetAt.Equal(time.Date(2026, 4, 3, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("resetAt = %v", q.ResetAt)
	}
	if n, known := c.Remaining(); n != 7 || !known {
		t.Errorf("Remaining = %d, %v", n, known)
	}
}

func TestGenerateDecrementsLocally(t *testing.T) {
	api := &fakeAPI{remaining: 2}
	c := setup(t, api)
	ctx := context.Background()

	src, err := c.Generate(ctx, "hello")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if src != "graph TD\nA[hello]" {
		t.Errorf("source = %q", src)
	}
	if api.quotaCalls.Load() != 1 {
		t.Errorf("quota fetched %d times, want 1", api.quotaCalls.Load())
	}

	if _, err := c.Generate(ctx, "again"); err != nil {
		t.Fatalf("second Generate: %v", err)
	}

	// The local count is now zero; no request leaves the client.
	if _, err := c.Generate(ctx, "third"); !errors.Is(err, ErrDailyLimit) {
		t.Fatalf("err = %v, want ErrDailyLimit", err)
	}
	if msg := ErrDailyLimit.Error(); msg != strings.ToLower(msg) || strings.HasSuffix(msg, ".") {
		t.Errorf("ErrDailyLimit = %q, want a lowercase message without trailing period", msg)
	}
	if api.generations.Load() != 2 {
		t.Errorf("server saw %d generations, want 2", api.generations.Load())
	}
	if n, _ := c.Remaining(); n != 0 {
		t.Errorf("remaining = %d", n)
	}
	if api.quotaCalls.Load() != 1 {
		t.Errorf("quota refetched: %d calls", api.quotaCalls.Load())
	}
}

func TestGenerateUpstreamErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"error field", http.StatusTooManyRequests, `{"error":"Daily limit exceeded. Please try again tomorrow."}`, "Daily limit exceeded. Please try again tomorrow."},
		{"no error field", http.StatusBadGateway, `{}`, DefaultFailureMessage},
		{"not json", http.StatusInternalServerError, `<html>oops</html>`, DefaultFailureMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := setup(t, &fakeAPI{remaining: 5, failWith: tt.status, failBody: tt.body})

			_, err := c.Generate(context.Background(), "x")
			var ue *UpstreamError
			if !errors.As(err, &ue) {
				t.Fatalf("err = %v, want *UpstreamError", err)
			}
			if ue.Status != tt.status || ue.Message != tt.want {
				t.Errorf("UpstreamError = %+v", ue)
			}
			if n, _ := c.Remaining(); n != 5 {
				t.Errorf("failed call decremented quota: %d", n)
			}
		})
	}
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(url)
	_, err := c.Quota(context.Background())
	var ue *UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("err = %v", err)
	}
	if ue.Status != 0 || ue.Message == "" || ue.Err == nil {
		t.Errorf("UpstreamError = %+v", ue)
	}
}
