package collector

import (
	"sync"
	"time"
)

// ActivityMonitor records the most recent user interaction. Touch is called
// from input event callbacks; the emitter reads it on every tick. Safe for
// concurrent use.
type ActivityMonitor struct {
	mu   sync.Mutex
	last time.Time
}

// NewActivityMonitor starts with the given instant as the first activity, so
// a freshly opened page counts as active until the idle cutoff passes.
func NewActivityMonitor(now time.Time) *ActivityMonitor {
	return &ActivityMonitor{last: now}
}

// Touch records an interaction at t. Out-of-order timestamps are ignored.
func (m *ActivityMonitor) Touch(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.After(m.last) {
		m.last = t
	}
}

// Last returns the most recent interaction time.
func (m *ActivityMonitor) Last() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// SinceActivity returns how long the page has been idle as of now.
func (m *ActivityMonitor) SinceActivity(now time.Time) time.Duration {
	return now.Sub(m.Last())
}
