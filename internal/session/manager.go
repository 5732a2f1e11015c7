package session

import (
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// Manager serializes message processing per user to prevent race conditions
// when multiple messages arrive simultaneously for the same phone number.
// It also holds a token bucket per phone to throttle floods.
type Manager struct {
	mu      sync.Mutex
	entries map[string]*userLock

	limit rate.Limit
	burst int
}

type userLock struct {
	mu       sync.Mutex
	limiter  *rate.Limiter
	lastUsed time.Time

	// set on the first refused message, cleared by the next accepted one
	throttled atomic.Bool
}

// NewManager creates a Manager allowing perMinute messages per phone, with
// bursts of the same size. perMinute <= 0 disables throttling.
func NewManager(perMinute int) *Manager {
	m := &Manager{
		entries: make(map[string]*userLock),
		limit:   rate.Inf,
		burst:   1,
	}
	if perMinute > 0 {
		m.limit = rate.Every(time.Minute / time.Duration(perMinute))
		m.burst = perMinute
	}
	return m
}

func (m *Manager) entry(phone string) *userLock {
	m.mu.Lock()
	defer m.mu.Unlock()
	ul, ok := m.entries[phone]
	if !ok {
		ul = &userLock{limiter: rate.NewLimiter(m.limit, m.burst)}
		m.entries[phone] = ul
	}
	ul.lastUsed = time.Now()
	return ul
}

// WithLock executes fn while holding the per-phone mutex.
// Concurrent messages from the same phone are serialized; different phones run in parallel.
func (m *Manager) WithLock(phone string, fn func() error) error {
	ul := m.entry(phone)

	ul.mu.Lock()
	defer ul.mu.Unlock()

	return fn()
}

// Allow reports whether phone may send another message right now. When it
// may not, notify is true only for the first refusal since the last accepted
// message, so a flood is answered with a single notice.
func (m *Manager) Allow(phone string) (ok, notify bool) {
	ul := m.entry(phone)
	if ul.limiter.Allow() {
		ul.throttled.Store(false)
		return true, false
	}
	return false, !ul.throttled.Swap(true)
}

// Cleanup removes locks not used within maxAge to prevent memory leaks.
// Entries currently held by WithLock are kept.
func (m *Manager) Cleanup(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	now := time.Now()
	for phone, ul := range m.entries {
		if now.Sub(ul.lastUsed) <= maxAge {
			continue
		}
		if !ul.mu.TryLock() {
			continue
		}
		ul.mu.Unlock()
		delete(m.entries, phone)
		removed++
	}
	return removed
}

// Len returns the number of tracked phones.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
