package batch

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestShouldRetryItem(t *testing.T) {
	policy := retryPolicy{base: time.Second, max: time.Minute}

	transient := fmt.Errorf("%w: cwebp exited 1", ErrConversion)
	if !policy.shouldRetryItem(QueueItem{RetryCount: 0}, transient) {
		t.Fatal("transient failure under the cap should retry")
	}
	if !policy.shouldRetryItem(QueueItem{RetryCount: MaxRetryAttempts - 1}, transient) {
		t.Fatal("last attempt under the cap should retry")
	}
	if policy.shouldRetryItem(QueueItem{RetryCount: MaxRetryAttempts}, transient) {
		t.Fatal("attempt cap reached, must not retry")
	}

	for _, permanent := range []error{ErrSourceMissing, ErrFormatDisabled, ErrConfiguration} {
		wrapped := fmt.Errorf("%w: detail", permanent)
		if policy.shouldRetryItem(QueueItem{}, wrapped) {
			t.Fatalf("%v must never be retried", permanent)
		}
	}

	if !policy.shouldRetryItem(QueueItem{}, errors.New("unclassified")) {
		t.Fatal("unknown errors default to transient")
	}
}

func TestNextRetryDelayBackoff(t *testing.T) {
	policy := retryPolicy{base: 30 * time.Second, max: 10 * time.Minute}

	cases := []struct {
		retryCount int
		want       time.Duration
	}{
		{0, 30 * time.Second},
		{1, time.Minute},
		{2, 2 * time.Minute},
		{3, 4 * time.Minute},
	}
	for _, tc := range cases {
		got := policy.nextRetryDelay(QueueItem{RetryCount: tc.retryCount})
		if got != tc.want {
			t.Fatalf("retry %d: got %s, want %s", tc.retryCount, got, tc.want)
		}
	}
}

func TestNextRetryDelayCapped(t *testing.T) {
	policy := retryPolicy{base: 30 * time.Second, max: 2 * time.Minute}
	if got := policy.nextRetryDelay(QueueItem{RetryCount: 10}); got != 2*time.Minute {
		t.Fatalf("expected cap, got %s", got)
	}
	// Shift overflow collapses to the cap rather than a negative delay.
	if got := policy.nextRetryDelay(QueueItem{RetryCount: 70}); got != 2*time.Minute {
		t.Fatalf("expected cap on overflow, got %s", got)
	}
}
