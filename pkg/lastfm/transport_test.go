package lastfm

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/time/rate"
)

// withFastRetries keeps the retry count but drops the wait between attempts.
func withFastRetries(c *Client) *Client {
	c.newBackOff = func() backoff.BackOff {
		return backoff.NewConstantBackOff(time.Millisecond)
	}
	return c
}

func TestCalculateSignature(t *testing.T) {
	params := map[string]string{
		"method":  "auth.getSession",
		"api_key": "key",
		"token":   "tok",
		"format":  "json",
	}
	// md5("api_keykeymethodauth.getSessiontokentoksecret")
	want := "04e870be4bb79756721b7bc1937fe83d"
	got := calculateSignature(params, "secret")

	if got != want {
		t.Fatalf("calculateSignature() = %q, want %q", got, want)
	}
	withoutFormat := calculateSignature(map[string]string{
		"method":  "auth.getSession",
		"api_key": "key",
		"token":   "tok",
	}, "secret")
	if got != withoutFormat {
		t.Error("format parameter must not affect the signature")
	}
	if got == calculateSignature(params, "other-secret") {
		t.Error("signature does not depend on the secret")
	}
}

func TestCall_RetriesTemporaryErrors(t *testing.T) {
	var attempts int32
	client := withFastRetries(newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			writeXML(t, w, http.StatusOK, `<lfm status="failed"><error code="11">Service Offline</error></lfm>`)
			return
		}
		writeXML(t, w, http.StatusOK, `<lfm status="ok"><token>after-retry</token></lfm>`)
	}))

	token, err := client.Auth().GetToken(context.Background())
	if err != nil {
		t.Fatalf("expected success after retries, got error: %v", err)
	}
	if token.Token != "after-retry" {
		t.Errorf("expected token after-retry, got %q", token.Token)
	}
	if got := atomic.LoadInt32(&attempts); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
}

func TestCall_RetriesServerErrors(t *testing.T) {
	var attempts int32
	client := withFastRetries(newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeXML(t, w, http.StatusOK, `<lfm status="ok"><token>after-503</token></lfm>`)
	}))

	token, err := client.Auth().GetToken(context.Background())
	if err != nil {
		t.Fatalf("expected success after retry, got error: %v", err)
	}
	if token.Token != "after-503" {
		t.Errorf("expected token after-503, got %q", token.Token)
	}
}

func TestCall_PermanentErrorNotRetried(t *testing.T) {
	var attempts int32
	client := newTestClient(t, "sk", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		writeXML(t, w, http.StatusOK, `<lfm status="failed"><error code="9">Invalid session key</error></lfm>`)
	})

	_, err := client.Scrobble().UpdateNowPlaying(context.Background(), Track{Artist: "A", Track: "T"})
	if !errors.Is(err, &Error{Code: ErrCodeInvalidSessionKey}) {
		t.Fatalf("expected invalid session key error, got %v", err)
	}
	if got := atomic.LoadInt32(&attempts); got != 1 {
		t.Errorf("expected 1 attempt, got %d", got)
	}
}

func TestCall_UnexpectedStatus(t *testing.T) {
	client := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	_, err := client.Auth().GetToken(context.Background())
	if err == nil {
		t.Fatal("expected error for 403")
	}
}

func TestCall_RateLimited(t *testing.T) {
	var attempts int32
	handler := func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		writeXML(t, w, http.StatusOK, `<lfm status="ok"><token>t</token></lfm>`)
	}
	client := newTestClient(t, "", handler)
	client.limiter = rate.NewLimiter(rate.Every(time.Hour), 1)

	if _, err := client.Auth().GetToken(context.Background()); err != nil {
		t.Fatalf("first call should use the burst: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := client.Auth().GetToken(ctx); err == nil {
		t.Fatal("expected second call to be throttled")
	}
	if got := atomic.LoadInt32(&attempts); got != 1 {
		t.Errorf("expected 1 request to reach the server, got %d", got)
	}
}

func TestErrorTemporary(t *testing.T) {
	tests := map[int]bool{
		ErrCodeServiceOffline:    true,
		ErrCodeTempUnavailable:   true,
		ErrCodeOperationFailed:   true,
		ErrCodeRateLimitExceeded: true,
		ErrCodeInvalidSessionKey: false,
		ErrCodeInvalidAPIKey:     false,
		ErrCodeUnauthorizedToken: false,
		ErrCodeInvalidParameters: false,
	}
	for code, want := range tests {
		if got := (&Error{Code: code}).Temporary(); got != want {
			t.Errorf("Error{Code: %d}.Temporary() = %v, want %v", code, got, want)
		}
	}
}

func TestCall_GivesUpAfterMaxAttempts(t *testing.T) {
	var attempts int32
	client := withFastRetries(newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		writeXML(t, w, http.StatusOK, `<lfm status="failed"><error code="16">Temporarily unavailable</error></lfm>`)
	}))

	_, err := client.Auth().GetToken(context.Background())
	if !errors.Is(err, &Error{Code: ErrCodeTempUnavailable}) {
		t.Fatalf("expected temporary error after retries, got %v", err)
	}
	if got := atomic.LoadInt32(&attempts); got != maxAttempts {
		t.Errorf("expected %d attempts, got %d", maxAttempts, got)
	}
}

func TestCall_CancelledWhileWaiting(t *testing.T) {
	var attempts int32
	client := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusBadGateway)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := client.Auth().GetToken(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if got := atomic.LoadInt32(&attempts); got != 1 {
		t.Errorf("expected 1 attempt before the deadline, got %d", got)
	}
}

func TestDefaultBackOff(t *testing.T) {
	b, ok := defaultBackOff().(*backoff.ExponentialBackOff)
	if !ok {
		t.Fatalf("defaultBackOff() = %T, want *backoff.ExponentialBackOff", defaultBackOff())
	}
	if b.InitialInterval != initialBackoff {
		t.Errorf("InitialInterval = %v, want %v", b.InitialInterval, initialBackoff)
	}
	if b.MaxInterval != maxBackoff {
		t.Errorf("MaxInterval = %v, want %v", b.MaxInterval, maxBackoff)
	}
}
