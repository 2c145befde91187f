package httpx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"
)

func TestRetryableStatus(t *testing.T) {
	cases := []struct {
		code int
		want bool
	}{
		{http.StatusOK, false},
		{http.StatusBadRequest, false},
		{http.StatusUnauthorized, false},
		{http.StatusConflict, false},
		{http.StatusRequestTimeout, true},
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusBadGateway, true},
	}
	for _, tc := range cases {
		if got := RetryableStatus(tc.code); got != tc.want {
			t.Errorf("RetryableStatus(%d) = %v, want %v", tc.code, got, tc.want)
		}
	}
}

func TestRetryableClassifiesErrors(t *testing.T) {
	if Retryable(nil) {
		t.Fatal("nil error should not be retryable")
	}
	if Retryable(context.Canceled) {
		t.Fatal("cancellation should never be retried")
	}
	if Retryable(fmt.Errorf("wrapped: %w", context.DeadlineExceeded)) {
		t.Fatal("deadline exceeded should never be retried")
	}
	transient := &StatusError{Op: "upload", StatusCode: http.StatusServiceUnavailable}
	if !Retryable(fmt.Errorf("attempt 1: %w", transient)) {
		t.Fatal("wrapped 503 should be retryable")
	}
	permanent := &StatusError{Op: "upload", StatusCode: http.StatusForbidden}
	if Retryable(permanent) {
		t.Fatal("403 should not be retryable")
	}
	if Retryable(errors.New("something else")) {
		t.Fatal("unclassified errors should not be retried")
	}
}

func TestRetryAfterFromError(t *testing.T) {
	err := fmt.Errorf("attempt 1: %w", &StatusError{
		Op:         "generate",
		StatusCode: http.StatusTooManyRequests,
		RetryAfter: 3 * time.Second,
	})
	if got := RetryAfter(err); got != 3*time.Second {
		t.Fatalf("RetryAfter = %v, want 3s", got)
	}
	if got := RetryAfter(errors.New("plain")); got != 0 {
		t.Fatalf("plain error should carry no delay, got %v", got)
	}
}

func TestParseRetryAfter(t *testing.T) {
	if delay, ok := ParseRetryAfter("5"); !ok || delay != 5*time.Second {
		t.Fatalf("seconds form: got %v %v", delay, ok)
	}
	if _, ok := ParseRetryAfter("-1"); ok {
		t.Fatal("negative seconds should be rejected")
	}
	if _, ok := ParseRetryAfter(""); ok {
		t.Fatal("empty header should be rejected")
	}
	future := time.Now().Add(90 * time.Second).UTC().Format(http.TimeFormat)
	delay, ok := ParseRetryAfter(future)
	if !ok || delay <= 0 || delay > 91*time.Second {
		t.Fatalf("http date form: got %v %v", delay, ok)
	}
	past := time.Now().Add(-time.Minute).UTC().Format(http.TimeFormat)
	if _, ok := ParseRetryAfter(past); ok {
		t.Fatal("past date should be rejected")
	}
}

func TestLinearBackoff(t *testing.T) {
	base := 500 * time.Millisecond
	if got := LinearBackoff(base, 10*time.Second, 1); got != base {
		t.Fatalf("attempt 1: %v", got)
	}
	if got := LinearBackoff(base, 10*time.Second, 3); got != 1500*time.Millisecond {
		t.Fatalf("attempt 3: %v", got)
	}
	if got := LinearBackoff(base, time.Second, 5); got != time.Second {
		t.Fatalf("cap: %v", got)
	}
	if got := LinearBackoff(0, time.Second, 2); got != 0 {
		t.Fatalf("zero base: %v", got)
	}
}

func TestSleepHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Sleep(ctx, time.Minute); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if err := Sleep(context.Background(), 0); err != nil {
		t.Fatalf("zero delay: %v", err)
	}
}
