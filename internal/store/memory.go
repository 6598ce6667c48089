package store

import (
	"sort"
	"sync"
)

const subscriberBuffer = 100

// MemoryStore is an in-memory implementation of [Store].
//
// Updates to subscribers are sent non-blocking; if a subscriber's buffer is
// full, the update is dropped for that subscriber.
type MemoryStore struct {
	mu          sync.RWMutex
	statuses    map[string]StatusResult
	subscribers map[chan StatusResult]struct{}
	subMu       sync.RWMutex
}

// NewMemoryStore creates an empty [MemoryStore].
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		statuses:    make(map[string]StatusResult),
		subscribers: make(map[chan StatusResult]struct{}),
	}
}

// Seed registers endpoints before their first check so the API lists every
// monitored endpoint from the start. Existing entries are left untouched and
// subscribers are not notified.
func (m *MemoryStore) Seed(results ...StatusResult) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range results {
		if _, ok := m.statuses[r.Name]; ok {
			continue
		}
		if r.State == "" {
			r.State = StateUnknown
		}
		m.statuses[r.Name] = r
	}
}

// Update stores a [StatusResult] and notifies all subscribers.
func (m *MemoryStore) Update(result StatusResult) {
	m.mu.Lock()
	m.statuses[result.Name] = result
	m.mu.Unlock()

	m.notifySubscribers(result)
}

// Get returns the stored status for name.
func (m *MemoryStore) Get(name string) (StatusResult, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.statuses[name]
	return r, ok
}

// GetAll returns a snapshot of all stored results sorted by name.
func (m *MemoryStore) GetAll() []StatusResult {
	m.mu.RLock()
	results := make([]StatusResult, 0, len(m.statuses))
	for _, status := range m.statuses {
		results = append(results, status)
	}
	m.mu.RUnlock()

	sort.Slice(results, func(i, j int) bool {
		return results[i].Name < results[j].Name
	})
	return results
}

// Subscribe creates a new subscription with a buffer of 100 updates.
//
// Caller must call [MemoryStore.Unsubscribe] when done to prevent resource leaks.
func (m *MemoryStore) Subscribe() <-chan StatusResult {
	ch := make(chan StatusResult, subscriberBuffer)

	m.subMu.Lock()
	m.subscribers[ch] = struct{}{}
	m.subMu.Unlock()

	return ch
}

// Unsubscribe removes a subscription and closes its channel.
func (m *MemoryStore) Unsubscribe(ch <-chan StatusResult) {
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

// SubscriberCount returns the number of active subscriptions.
func (m *MemoryStore) SubscriberCount() int {
	m.subMu.RLock()
	defer m.subMu.RUnlock()
	return len(m.subscribers)
}

func (m *MemoryStore) notifySubscribers(result StatusResult) {
	m.subMu.RLock()
	defer m.subMu.RUnlock()

	for ch := range m.subscribers {
		select {
		case ch <- result:
		default:
			// subscriber is slow, drop the message
		}
	}
}
