package store

import (
	"sync"
	"time"
)

const subscriberBuffer = 16

// MemoryStore is an in-memory implementation of [Store].
//
// The snapshot is replaced wholesale on every [MemoryStore.Replace]. Updates
// to subscribers are sent non-blocking; a subscriber whose buffer is full
// misses that snapshot.
type MemoryStore struct {
	mu          sync.RWMutex
	snapshot    Snapshot
	hasSnapshot bool
	status      Status

	subscribers map[chan Snapshot]struct{}
	subMu       sync.RWMutex
}

// NewMemoryStore creates an empty [MemoryStore].
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		subscribers: make(map[chan Snapshot]struct{}),
	}
}

// Replace stores snap and notifies all subscribers.
func (m *MemoryStore) Replace(snap Snapshot) {
	m.mu.Lock()
	m.snapshot = snap
	m.hasSnapshot = true
	m.status = Status{
		OK:            true,
		AttemptedAt:   snap.UpdatedAt,
		UpdatedAt:     snap.UpdatedAt,
		Transport:     snap.Transport,
		Conversations: len(snap.State.Conversations),
		Students:      len(snap.State.Students),
	}
	m.mu.Unlock()

	m.notifySubscribers(snap)
}

// Current returns the current snapshot.
//
// The returned State shares its records with the store; callers must treat
// it as read-only.
func (m *MemoryStore) Current() (Snapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot, m.hasSnapshot
}

// RecordFailure marks the latest attempt as failed, keeping the snapshot.
func (m *MemoryStore) RecordFailure(err error, at time.Time) {
	var msg *string
	if err != nil {
		s := err.Error()
		msg = &s
	}

	m.mu.Lock()
	m.status.OK = false
	m.status.AttemptedAt = at
	m.status.Error = msg
	m.mu.Unlock()
}

// Status returns the outcome of the latest refresh attempt.
func (m *MemoryStore) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// Subscribe creates a new subscription.
//
// Caller must call [MemoryStore.Unsubscribe] when done to prevent resource leaks.
func (m *MemoryStore) Subscribe() <-chan Snapshot {
	ch := make(chan Snapshot, subscriberBuffer)

	m.subMu.Lock()
	m.subscribers[ch] = struct{}{}
	m.subMu.Unlock()

	return ch
}

// Unsubscribe removes a subscription and closes its channel.
// Safe to call multiple times or with an unknown channel.
func (m *MemoryStore) Unsubscribe(ch <-chan Snapshot) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	for subCh := range m.subscribers {
		if subCh == ch {
			delete(m.subscribers, subCh)
			close(subCh)
			break
		}
	}
}

// notifySubscribers sends snap to all active subscribers without blocking.
func (m *MemoryStore) notifySubscribers(snap Snapshot) {
	m.subMu.RLock()
	defer m.subMu.RUnlock()

	for ch := range m.subscribers {
		select {
		case ch <- snap:
		default:
			// subscriber is slow, drop the snapshot
		}
	}
}
