package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"syscall"
	"testing"
	"time"
)

type ipv4Server struct {
	URL string
	srv *http.Server
	ln  net.Listener
}

func newIPv4Server(t *testing.T, handler http.Handler) *ipv4Server {
	t.Helper()
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		if errors.Is(err, syscall.EACCES) || errors.Is(err, syscall.EPERM) {
			t.Skipf("skipping test: cannot open local listener (%v)", err)
		}
		t.Fatalf("listen tcp4: %v", err)
	}
	srv := &http.Server{Handler: handler}
	s := &ipv4Server{
		URL: "http://" + ln.Addr().String(),
		srv: srv,
		ln:  ln,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			panic(fmt.Sprintf("test server serve: %v", err))
		}
	}()
	return s
}

func (s *ipv4Server) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = s.srv.Shutdown(ctx)
}

func testServerSequence(t *testing.T, statuses []int, headers []http.Header, bodyOK any) *ipv4Server {
	t.Helper()
	var idx int32
	return newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		i := int(atomic.AddInt32(&idx, 1)) - 1
		if i >= len(statuses) {
			i = len(statuses) - 1
		}
		st := statuses[i]
		if headers != nil && i < len(headers) && headers[i] != nil {
			for k, vals := range headers[i] {
				for _, v := range vals {
					w.Header().Add(k, v)
				}
			}
		}
		if st >= 200 && st < 300 {
			w.WriteHeader(st)
			_ = json.NewEncoder(w).Encode(bodyOK)
			return
		}
		w.WriteHeader(st)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "rate limited"}})
	}))
}

func TestGenerateRetriesOn429(t *testing.T) {
	okBody := GenerateResponse{Choices: []Choice{{Message: Message{Role: "assistant", Content: "ok"}}}}
	srv := testServerSequence(t, []int{429, 200}, []http.Header{{"Retry-After": {"0"}}, {}}, okBody)
	defer srv.Close()

	c := NewClient("test", srv.URL, 2*time.Second, Backoff{MaxAttempts: 3, Base: 10 * time.Millisecond, Max: 100 * time.Millisecond})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	resp, err := c.Generate(ctx, GenerateRequest{Model: "test-model", Messages: []Message{{Role: "user", Content: "hi"}}, MaxTokens: 1})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if FirstContent(resp) != "ok" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestLongRetryAfterIsReturnedNotWaited(t *testing.T) {
	okBody := GenerateResponse{Choices: []Choice{{Message: Message{Role: "assistant", Content: "ok"}}}}
	srv := testServerSequence(t, []int{429, 200}, []http.Header{{"Retry-After": {"3600"}}, {}}, okBody)
	defer srv.Close()

	c := NewClient("test", srv.URL, 2*time.Second, Backoff{MaxAttempts: 3, Base: 10 * time.Millisecond, Max: 100 * time.Millisecond})
	start := time.Now()
	_, err := c.Generate(context.Background(), GenerateRequest{Model: "m", Messages: []Message{{Role: "user", Content: "hi"}}})
	var rl *RateLimitError
	if !errors.As(err, &rl) {
		t.Fatalf("expected RateLimitError, got %T: %v", err, err)
	}
	if rl.RetryAfter != time.Hour {
		t.Fatalf("RetryAfter = %v, want 1h", rl.RetryAfter)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("Generate waited %v before giving up", elapsed)
	}
}

func TestGenerateGivesUpAfterServerErrors(t *testing.T) {
	srv := testServerSequence(t, []int{500, 502, 503}, nil, nil)
	defer srv.Close()

	c := NewClient("test", srv.URL, 2*time.Second, Backoff{MaxAttempts: 3, Base: time.Millisecond, Max: 5 * time.Millisecond})
	_, err := c.Generate(context.Background(), GenerateRequest{Model: "m", Messages: []Message{{Role: "user", Content: "hi"}}})
	var se *ServerError
	if !errors.As(err, &se) {
		t.Fatalf("expected ServerError, got %T: %v", err, err)
	}
	if !IsProviderError(err) {
		t.Fatalf("server error must count as a provider error")
	}
}

func TestErrorIncludesRequestID(t *testing.T) {
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("X-Request-Id", "req_test_123")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "bad req", "code": "bad_request"}})
	}))
	defer srv.Close()

	c := NewClient("test", srv.URL, 2*time.Second, Backoff{MaxAttempts: 1, Base: 10 * time.Millisecond, Max: 50 * time.Millisecond})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := c.Generate(ctx, GenerateRequest{Model: "test-model", Messages: []Message{{Role: "user", Content: "hi"}}, MaxTokens: 1})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "req_test_123") {
		t.Fatalf("expected request id in error, got: %v", err)
	}
	var br *BadRequestError
	if !errors.As(err, &br) {
		t.Fatalf("expected BadRequestError, got %T", err)
	}
}

func TestUnauthorizedIsAuthError(t *testing.T) {
	srv := testServerSequence(t, []int{401}, nil, nil)
	defer srv.Close()
	c := NewClient("bad-key", srv.URL, time.Second, Backoff{MaxAttempts: 3, Base: time.Millisecond, Max: time.Millisecond})
	_, err := c.Generate(context.Background(), GenerateRequest{Model: "m", Messages: []Message{{Role: "user", Content: "hi"}}})
	var ae *AuthError
	if !errors.As(err, &ae) {
		t.Fatalf("expected AuthError, got %T: %v", err, err)
	}
}

func TestMissingKeyIsProviderError(t *testing.T) {
	c := NewClient("", "", time.Second, Backoff{MaxAttempts: 1})
	_, err := c.Generate(context.Background(), GenerateRequest{Model: "m"})
	if !IsProviderError(err) {
		t.Fatalf("missing key should surface as a provider error, got %v", err)
	}
}

func TestUnreachableHostIsTransportError(t *testing.T) {
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("cannot open listener: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()

	c := NewClient("k", "http://"+addr, time.Second, Backoff{MaxAttempts: 1})
	_, err = c.Generate(context.Background(), GenerateRequest{Model: "m", Messages: []Message{{Role: "user", Content: "hi"}}})
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransportError, got %T: %v", err, err)
	}
}

func TestIsProviderErrorIgnoresLocalErrors(t *testing.T) {
	if IsProviderError(errors.New("parse csv")) {
		t.Fatalf("plain errors are not provider errors")
	}
	if IsProviderError(nil) {
		t.Fatalf("nil is not a provider error")
	}
	wrapped := fmt.Errorf("visualize: %w", &RateLimitError{APIError: &APIError{StatusCode: 429}})
	if !IsProviderError(wrapped) {
		t.Fatalf("wrapped rate limit should be a provider error")
	}
}

func TestRegistryProviders(t *testing.T) {
	for _, name := range []string{ProviderOpenAI, ProviderOpenRouter, ProviderOllama, "OpenAI"} {
		if _, ok := GetRuntime(name, RuntimeConfig{APIKey: "k"}); !ok {
			t.Errorf("provider %q not registered", name)
		}
	}
	if _, ok := GetRuntime("nope", RuntimeConfig{}); ok {
		t.Errorf("unknown provider should not resolve")
	}
}

func TestQuota429IsNotRetried(t *testing.T) {
	var calls int32
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "You exceeded your current quota", "code": "insufficient_quota"}})
	}))
	defer srv.Close()
	c := NewClient("k", srv.URL, time.Second, Backoff{MaxAttempts: 3, Base: time.Millisecond, Max: time.Millisecond})
	_, err := c.Generate(context.Background(), GenerateRequest{Model: "m", Messages: []Message{{Role: "user", Content: "hi"}}})
	var qe *QuotaExceededError
	if !errors.As(err, &qe) {
		t.Fatalf("expected QuotaExceededError, got %T: %v", err, err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("quota errors must not be retried, calls=%d", n)
	}
}

func TestRetryStopsWhenContextCancelled(t *testing.T) {
	srv := testServerSequence(t, []int{503}, nil, nil)
	defer srv.Close()
	c := NewClient("k", srv.URL, time.Second, Backoff{MaxAttempts: 5, Base: time.Hour, Max: time.Hour})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := c.Generate(ctx, GenerateRequest{Model: "m", Messages: []Message{{Role: "user", Content: "hi"}}})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Fatalf("backoff ignored the context")
	}
}

func TestBackoffDelayIsCapped(t *testing.T) {
	b := Backoff{MaxAttempts: 10, Base: 100 * time.Millisecond, Max: time.Second}
	for attempt := 1; attempt <= 10; attempt++ {
		if d := b.delay(attempt); d <= 0 || d > time.Second {
			t.Fatalf("attempt %d: delay %v outside (0, 1s]", attempt, d)
		}
	}
	if d := b.delay(1); d < 80*time.Millisecond || d > 120*time.Millisecond {
		t.Fatalf("first delay %v not within jitter of base", d)
	}
}

func TestRetryAfterHeader(t *testing.T) {
	h := http.Header{}
	h.Set("Retry-After", "7")
	if d, err := retryAfter(h); err != nil || d != 7*time.Second {
		t.Fatalf("seconds form: %v %v", d, err)
	}
	h.Set("Retry-After", "soon")
	if _, err := retryAfter(h); err == nil {
		t.Fatalf("expected error for invalid value")
	}
}
