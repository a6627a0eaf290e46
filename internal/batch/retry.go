package batch

import "time"

// MaxRetryAttempts caps transient retries per item.
const MaxRetryAttempts = 3

// retryPolicy decides whether a failed item goes back on the queue and how
// long it stays gated first.
type retryPolicy struct {
	base time.Duration
	max  time.Duration
}

// shouldRetryItem returns true for transient failures while the item is under
// the attempt cap. Permanent error kinds are never retried.
func (p retryPolicy) shouldRetryItem(item QueueItem, err error) bool {
	if item.RetryCount >= MaxRetryAttempts {
		return false
	}
	return !isPermanent(err)
}

// nextRetryDelay grows exponentially with the attempt count, capped at max.
func (p retryPolicy) nextRetryDelay(item QueueItem) time.Duration {
	delay := p.base << uint(item.RetryCount)
	if delay > p.max || delay <= 0 {
		return p.max
	}
	return delay
}
