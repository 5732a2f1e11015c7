package session

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithLockSerializesSamePhone(t *testing.T) {
	m := NewManager(0)

	var active, maxActive int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.WithLock("5491100000000", func() error {
				n := atomic.AddInt32(&active, 1)
				for {
					old := atomic.LoadInt32(&maxActive)
					if n <= old || atomic.CompareAndSwapInt32(&maxActive, old, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&active, -1)
				return nil
			})
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, maxActive)
}

func TestWithLockDifferentPhonesRunInParallel(t *testing.T) {
	m := NewManager(0)

	inside := make(chan struct{})
	release := make(chan struct{})
	go m.WithLock("a", func() error {
		close(inside)
		<-release
		return nil
	})
	<-inside

	done := make(chan struct{})
	go func() {
		m.WithLock("b", func() error { return nil })
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("phone b blocked by phone a")
	}
	close(release)
}

func TestWithLockReturnsError(t *testing.T) {
	m := NewManager(0)
	err := m.WithLock("a", func() error { return assert.AnError })
	assert.ErrorIs(t, err, assert.AnError)
}

func allowed(m *Manager, phone string) bool {
	ok, _ := m.Allow(phone)
	return ok
}

func TestAllow(t *testing.T) {
	m := NewManager(3)
	assert.True(t, allowed(m, "a"))
	assert.True(t, allowed(m, "a"))
	assert.True(t, allowed(m, "a"))
	assert.False(t, allowed(m, "a"), "burst exhausted")
	assert.True(t, allowed(m, "b"), "limits are per phone")

	unlimited := NewManager(0)
	for i := 0; i < 100; i++ {
		assert.True(t, allowed(unlimited, "a"))
	}
}

func TestAllowNotifiesOncePerThrottle(t *testing.T) {
	m := NewManager(60)
	for i := 0; i < 60; i++ {
		ok, notify := m.Allow("a")
		require.True(t, ok)
		require.False(t, notify)
	}

	ok, notify := m.Allow("a")
	assert.False(t, ok)
	assert.True(t, notify, "first refusal is announced")
	for i := 0; i < 5; i++ {
		ok, notify = m.Allow("a")
		assert.False(t, ok)
		assert.False(t, notify, "later refusals are silent")
	}

	time.Sleep(1100 * time.Millisecond)
	ok, _ = m.Allow("a")
	require.True(t, ok, "one token refilled")
	ok, notify = m.Allow("a")
	assert.False(t, ok)
	assert.True(t, notify, "a new throttle window is announced again")
}

func TestCleanup(t *testing.T) {
	m := NewManager(0)
	m.WithLock("idle", func() error { return nil })

	held := make(chan struct{})
	release := make(chan struct{})
	go m.WithLock("busy", func() error {
		close(held)
		<-release
		return nil
	})
	<-held
	assert.Equal(t, 2, m.Len())

	assert.Equal(t, 0, m.Cleanup(time.Hour), "recently used entries stay")

	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, 1, m.Cleanup(time.Millisecond), "held lock is kept")
	assert.Equal(t, 1, m.Len())

	close(release)
}
