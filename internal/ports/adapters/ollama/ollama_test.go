package ollama

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/forPelevin/vidscope/internal/apperr"
	"github.com/forPelevin/vidscope/internal/logging"
	"github.com/forPelevin/vidscope/internal/types"
)

func newTestAdapter(url string) *Adapter {
	return New(Config{
		Host:              url,
		Model:             "llama3",
		RequestsPerMinute: 60000,
		Backoff:           time.Millisecond,
		Log:               logging.Discard(),
	})
}

func TestSummarize_SendsJSONFormatAndParses(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var req generateRequest
		b, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(b, &req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if req.Model != "llama3" || req.Format != "json" || req.Stream {
			t.Errorf("unexpected request: %+v", req)
		}
		if !strings.Contains(req.Prompt, "the quick fox") {
			t.Errorf("prompt missing transcript: %q", req.Prompt)
		}
		_ = json.NewEncoder(w).Encode(generateResponse{
			Response: `{"summary":"A fox.","key_points":["quick"]}`,
			Done:     true,
		})
	}))
	defer srv.Close()

	tr := types.Transcript{Segments: []types.Segment{{Start: 0, End: 1, Text: "the quick fox"}}}
	got, err := newTestAdapter(srv.URL).Summarize(context.Background(), tr, nil)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if got.Text != "A fox." || len(got.KeyPoints) != 1 || got.Provider != ProviderName || got.Model != "llama3" {
		t.Fatalf("unexpected summary: %+v", got)
	}
}

func TestSummarize_RetriesServerErrors(t *testing.T) {
	t.Parallel()

	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			http.Error(w, "model loading", http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(generateResponse{Response: "plain summary", Done: true})
	}))
	defer srv.Close()

	got, err := newTestAdapter(srv.URL).Summarize(context.Background(), types.Transcript{}, nil)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if got.Text != "plain summary" {
		t.Fatalf("unexpected text: %q", got.Text)
	}
	if n := atomic.LoadInt32(&calls); n != 3 {
		t.Fatalf("expected 3 calls, got %d", n)
	}
}

func TestSummarize_DoesNotRetryClientErrors(t *testing.T) {
	t.Parallel()

	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, `{"error":"model \"llama3\" not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestAdapter(srv.URL).Summarize(context.Background(), types.Transcript{}, nil)
	if !apperr.Is(err, apperr.KindModel) {
		t.Fatalf("expected model error, got %v", err)
	}
	if !strings.Contains(err.Error(), "status 404") {
		t.Fatalf("expected status in error: %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("expected 1 call, got %d", n)
	}
}

func TestSummarize_GivesUpAfterMaxRetries(t *testing.T) {
	t.Parallel()

	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestAdapter(srv.URL).Summarize(context.Background(), types.Transcript{}, nil)
	if err == nil {
		t.Fatalf("expected error")
	}
	if n := atomic.LoadInt32(&calls); n != maxRetries {
		t.Fatalf("expected %d calls, got %d", maxRetries, n)
	}
}

func TestNew_Defaults(t *testing.T) {
	t.Parallel()

	a := New(Config{Host: "gpu-box:11434/"})
	if a.host != "http://gpu-box:11434" {
		t.Fatalf("unexpected host: %q", a.host)
	}
	if a.model != defaultModel {
		t.Fatalf("unexpected model: %q", a.model)
	}
}

func TestBackoffFor_CapsAndJitters(t *testing.T) {
	t.Parallel()

	for attempt := 1; attempt <= 10; attempt++ {
		got := backoffFor(initialBackoff, attempt)
		base := time.Duration(float64(initialBackoff) * float64(int(1)<<(attempt-1)))
		if base > maxBackoff {
			base = maxBackoff
		}
		if got < base || got >= base+base/2+1 {
			t.Fatalf("attempt %d: backoff %s outside [%s, %s)", attempt, got, base, base+base/2)
		}
	}
}
