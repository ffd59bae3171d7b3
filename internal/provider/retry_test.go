package provider

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"rate limited", &APIError{StatusCode: 429, Body: "slow down"}, true},
		{"server error", &APIError{StatusCode: 503, Body: "unavailable"}, true},
		{"bad request", &APIError{StatusCode: 400, Body: "nope"}, false},
		{"unauthorized", &APIError{StatusCode: 401, Body: "key"}, false},
		{"deadline", context.DeadlineExceeded, true},
		{"plain error", errors.New("boom"), false},
		{"wrapped api error", errors.Join(errors.New("outer"), &APIError{StatusCode: 500}), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestWithRetryRecoversFromTransient(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}

	calls := 0
	err := withRetry(context.Background(), policy, func() error {
		calls++
		if calls < 3 {
			return &APIError{StatusCode: 500, Body: "flaky"}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("withRetry: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestWithRetryStopsOnPermanent(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 5, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}

	calls := 0
	err := withRetry(context.Background(), policy, func() error {
		calls++
		return &APIError{StatusCode: 400, Body: "bad input"}
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("permanent error should not be retried, got %d calls", calls)
	}
}

func TestWithRetryExhaustsBudget(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}

	calls := 0
	err := withRetry(context.Background(), policy, func() error {
		calls++
		return &APIError{StatusCode: 500, Body: "always down"}
	})
	if err == nil {
		t.Fatal("expected error after budget exhausted")
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}
