package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/openshelf/ragd/internal/log"
)

// newStreamServer returns a test server that writes the given NDJSON lines
// to any /api/generate request, flushing after each line.
func newStreamServer(t *testing.T, lines []string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		flusher := w.(http.Flusher)
		for _, line := range lines {
			fmt.Fprintln(w, line)
			flusher.Flush()
		}
	}))
}

func TestGenerate(t *testing.T) {
	var gotReq generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		fmt.Fprint(w, `{"response":"  hello world  ","done":true}`)
	}))
	defer srv.Close()

	c := New(srv.URL, "test-model", log.NewNop())
	got, err := c.Generate(context.Background(), "say hello")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got != "hello world" {
		t.Errorf("Generate() = %q, want trimmed %q", got, "hello world")
	}

	if gotReq.Model != "test-model" {
		t.Errorf("request model = %q, want test-model", gotReq.Model)
	}
	if gotReq.Stream {
		t.Error("request stream = true, want false")
	}
	if gotReq.Options.Temperature != temperature || gotReq.Options.TopP != topP || gotReq.Options.NumCtx != contextWindow {
		t.Errorf("request options = %+v, want defaults", gotReq.Options)
	}
}

func TestGenerateStreamDeltas(t *testing.T) {
	srv := newStreamServer(t, []string{
		`{"response":"The ","done":false}`,
		`{"response":"answer","done":false}`,
		`{"response":".","done":false}`,
		`{"response":"","done":true}`,
	})
	defer srv.Close()

	c := New(srv.URL, "test-model", log.NewNop())

	var got []string
	err := c.GenerateStream(context.Background(), "question", func(delta string) error {
		got = append(got, delta)
		return nil
	})
	if err != nil {
		t.Fatalf("GenerateStream() error = %v", err)
	}

	want := []string{"The ", "answer", "."}
	if len(got) != len(want) {
		t.Fatalf("got %d deltas %v, want %d", len(got), got, len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("delta[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestGenerateStreamSkipsBadLines(t *testing.T) {
	srv := newStreamServer(t, []string{
		`{"response":"good","done":false}`,
		`this is not json`,
		``,
		`{"response":"also good","done":true}`,
	})
	defer srv.Close()

	c := New(srv.URL, "test-model", log.NewNop())

	var got []string
	err := c.GenerateStream(context.Background(), "q", func(delta string) error {
		got = append(got, delta)
		return nil
	})
	if err != nil {
		t.Fatalf("GenerateStream() error = %v", err)
	}
	if len(got) != 2 || got[0] != "good" || got[1] != "also good" {
		t.Errorf("deltas = %v, want [good, also good]", got)
	}
}

func TestGenerateStreamStopsAtDone(t *testing.T) {
	srv := newStreamServer(t, []string{
		`{"response":"first","done":false}`,
		`{"response":"last","done":true}`,
		`{"response":"after done","done":false}`,
	})
	defer srv.Close()

	c := New(srv.URL, "test-model", log.NewNop())

	var got []string
	if err := c.GenerateStream(context.Background(), "q", func(delta string) error {
		got = append(got, delta)
		return nil
	}); err != nil {
		t.Fatalf("GenerateStream() error = %v", err)
	}
	if len(got) != 2 {
		t.Errorf("deltas = %v, want stream to stop at done marker", got)
	}
}

func TestGenerateStreamEOFWithoutDone(t *testing.T) {
	srv := newStreamServer(t, []string{
		`{"response":"only","done":false}`,
	})
	defer srv.Close()

	c := New(srv.URL, "test-model", log.NewNop())

	if err := c.GenerateStream(context.Background(), "q", func(string) error { return nil }); err != nil {
		t.Errorf("GenerateStream() on clean EOF = %v, want nil", err)
	}
}

func TestGenerateStreamCallbackError(t *testing.T) {
	srv := newStreamServer(t, []string{
		`{"response":"a","done":false}`,
		`{"response":"b","done":false}`,
	})
	defer srv.Close()

	c := New(srv.URL, "test-model", log.NewNop())

	sentinel := errors.New("consumer rejected delta")
	err := c.GenerateStream(context.Background(), "q", func(string) error { return sentinel })
	if !errors.Is(err, sentinel) {
		t.Errorf("GenerateStream() error = %v, want callback error", err)
	}
}

func TestGenerateStreamNonOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"model not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(srv.URL, "missing-model", log.NewNop())

	err := c.GenerateStream(context.Background(), "q", func(string) error { return nil })
	if err == nil {
		t.Fatal("GenerateStream() error = nil, want non-nil for 404")
	}
	if !strings.Contains(err.Error(), "model not found") {
		t.Errorf("error %v does not carry response body", err)
	}
}

func TestGenerateStreamCancellation(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		fmt.Fprintln(w, `{"response":"partial","done":false}`)
		flusher.Flush()
		<-release // hold the stream open
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	c := New(srv.URL, "test-model", log.NewNop())

	errCh := make(chan error, 1)
	go func() {
		errCh <- c.GenerateStream(ctx, "q", func(string) error { return nil })
	}()

	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("GenerateStream() error = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("GenerateStream() did not return after cancellation")
	}
}

func TestGenerateNonOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(srv.URL, "test-model", log.NewNop())
	if _, err := c.Generate(context.Background(), "q"); err == nil {
		t.Error("Generate() error = nil, want non-nil for 503")
	}
}

func TestNewTrimsTrailingSlash(t *testing.T) {
	c := New("http://localhost:11434/", "m", log.NewNop())
	if c.baseURL != "http://localhost:11434" {
		t.Errorf("baseURL = %q, want trailing slash trimmed", c.baseURL)
	}
}
