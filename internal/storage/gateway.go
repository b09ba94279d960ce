// Package storage provides the durable key-value gateway backing the review
// workflow: a persisted session envelope with staleness expiry and the
// longer-lived done-marker set.
package storage

import "sync"

const (
	// SessionKey stores the persisted session envelope.
	SessionKey = "review_session"
	// DoneKey stores the done-marker username set.
	DoneKey = "review_done"
)

// Gateway is the injected durable key-value dependency. All operations are
// synchronous and best-effort; callers treat failures as advisory.
type Gateway interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
	Delete(key string) error
}

// MemoryStore is an in-memory Gateway for tests and ephemeral runs.
type MemoryStore struct {
	mutex   sync.Mutex
	entries map[string][]byte
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string][]byte)}
}

// Get returns a copy of the stored value for the key.
func (store *MemoryStore) Get(key string) ([]byte, bool, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	value, found := store.entries[key]
	if !found {
		return nil, false, nil
	}
	return append([]byte(nil), value...), true, nil
}

// Set stores a copy of the value under the key.
func (store *MemoryStore) Set(key string, value []byte) error {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	store.entries[key] = append([]byte(nil), value...)
	return nil
}

// Delete removes the entry for the key.
func (store *MemoryStore) Delete(key string) error {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	delete(store.entries, key)
	return nil
}
