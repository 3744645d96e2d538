package httpx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(opts ...Option) *Client {
	opts = append([]Option{WithSleep(func(time.Duration) {}), WithBaseDelay(time.Millisecond)}, opts...)
	return New("test", opts...)
}

func TestDoReturnsParsedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"success"}`))
	}))
	defer srv.Close()

	res, err := newTestClient().Do(context.Background(), http.MethodGet, srv.URL, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != http.StatusOK || !res.ParseOK {
		t.Errorf("unexpected result: %+v", res)
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := res.Decode(&body); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if body.Status != "success" {
		t.Errorf("body.Status = %q", body.Status)
	}
}

func TestDoMarksNonJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html>upstream error</html>"))
	}))
	defer srv.Close()

	res, err := newTestClient().Do(context.Background(), http.MethodGet, srv.URL, nil, nil)
	if err != nil {
		t.Fatalf("non-JSON body must not be an error: %v", err)
	}
	if res.ParseOK {
		t.Error("expected ParseOK=false for non-JSON body")
	}
	if err := res.Decode(&struct{}{}); err == nil {
		t.Error("Decode must refuse an unparsable body")
	}
}

func TestDoRetriesRateLimit(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	var delays []time.Duration
	c := New("test", WithBaseDelay(100*time.Millisecond), WithSleep(func(d time.Duration) {
		delays = append(delays, d)
	}))
	res, err := c.Do(context.Background(), http.MethodGet, srv.URL, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 attempts, got %d", calls)
	}
	if res.Status != http.StatusOK {
		t.Errorf("final status = %d", res.Status)
	}
	// Linear backoff: base, then 2x base.
	if len(delays) != 2 || delays[0] != 100*time.Millisecond || delays[1] != 200*time.Millisecond {
		t.Errorf("unexpected backoff delays: %v", delays)
	}
}

func TestDoGivesUpAfterBound(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestClient().Do(context.Background(), http.MethodGet, srv.URL, nil, nil)
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if calls != DefaultMaxAttempts {
		t.Errorf("expected %d attempts, got %d", DefaultMaxAttempts, calls)
	}
}

func TestDoRetriesTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	c := newTestClient(WithMaxAttempts(2))
	_, err := c.Do(context.Background(), http.MethodGet, srv.URL, nil, nil)
	if err == nil {
		t.Fatal("expected transport error")
	}
}
