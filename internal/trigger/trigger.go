package trigger

import (
	"sync"
	"time"
)

// Ticker invokes a registered callback on a fixed interval from a background
// goroutine. Register replaces any existing registration; Deregister is safe
// to call from inside the callback, which is how the batch executor releases
// the trigger when its queue drains.
type Ticker struct {
	mu     sync.Mutex
	stop   chan struct{}
	next   time.Time
	active bool
}

// NewTicker constructs an idle ticker trigger.
func NewTicker() *Ticker {
	return &Ticker{}
}

// Register starts firing fn every interval. The first firing happens one
// interval from now.
func (t *Ticker) Register(interval time.Duration, fn func()) {
	if interval <= 0 || fn == nil {
		return
	}

	t.mu.Lock()
	if t.active {
		close(t.stop)
	}
	stop := make(chan struct{})
	t.stop = stop
	t.active = true
	t.next = time.Now().Add(interval)
	t.mu.Unlock()

	go t.run(interval, fn, stop)
}

func (t *Ticker) run(interval time.Duration, fn func(), stop chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			fn()
			t.mu.Lock()
			if t.active && t.stop == stop {
				t.next = time.Now().Add(interval)
			}
			t.mu.Unlock()
		}
	}
}

// Deregister stops the recurring callback. The running goroutine exits after
// any in-flight callback returns; Deregister does not wait for it.
func (t *Ticker) Deregister() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.active {
		return
	}
	close(t.stop)
	t.active = false
	t.next = time.Time{}
}

// Next returns the next scheduled firing, or the zero time while idle.
func (t *Ticker) Next() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.active {
		return time.Time{}
	}
	return t.next
}

// Manual is a trigger for tests and one-shot CLI ticks: registration stores
// the callback and Fire invokes it synchronously.
type Manual struct {
	mu sync.Mutex
	fn func()
}

// NewManual constructs an unregistered manual trigger.
func NewManual() *Manual {
	return &Manual{}
}

// Register stores fn; the interval is ignored.
func (m *Manual) Register(_ time.Duration, fn func()) {
	m.mu.Lock()
	m.fn = fn
	m.mu.Unlock()
}

// Deregister forgets the stored callback.
func (m *Manual) Deregister() {
	m.mu.Lock()
	m.fn = nil
	m.mu.Unlock()
}

// Next always reports the zero time; manual triggers have no schedule.
func (m *Manual) Next() time.Time {
	return time.Time{}
}

// Fire invokes the registered callback, reporting whether one was set.
func (m *Manual) Fire() bool {
	m.mu.Lock()
	fn := m.fn
	m.mu.Unlock()
	if fn == nil {
		return false
	}
	fn()
	return true
}

// Registered reports whether a callback is currently stored.
func (m *Manual) Registered() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fn != nil
}
