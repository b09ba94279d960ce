package storage

import (
	"encoding/json"
	"strings"
	"sync"

	"go.uber.org/zap"
)

const (
	logMessageDoneLoadFailure = "done marker load failure"
	logMessageDoneSaveFailure = "done marker save failure"
)

// DoneStore tracks usernames already acted on at the platform. It outlives
// session resets and carries no expiry. Mutations are written through to the
// gateway immediately; write failures are logged and absorbed because the
// in-memory set remains authoritative for the running process.
type DoneStore struct {
	mutex     sync.Mutex
	gateway   Gateway
	logger    *zap.Logger
	usernames []string
}

// NewDoneStore constructs a done store and loads any persisted markers.
func NewDoneStore(gateway Gateway, logger *zap.Logger) *DoneStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	store := &DoneStore{gateway: gateway, logger: logger, usernames: []string{}}

	encoded, found, getErr := gateway.Get(DoneKey)
	if getErr != nil {
		logger.Warn(logMessageDoneLoadFailure, zap.Error(getErr))
		return store
	}
	if found {
		if decodeErr := json.Unmarshal(encoded, &store.usernames); decodeErr != nil {
			logger.Warn(logMessageDoneLoadFailure, zap.Error(decodeErr))
			store.usernames = []string{}
		}
	}
	return store
}

// Mark records a username as acted upon. Duplicate marks are ignored.
func (store *DoneStore) Mark(username string) {
	trimmed := strings.TrimSpace(username)
	if trimmed == "" {
		return
	}

	store.mutex.Lock()
	defer store.mutex.Unlock()

	if store.containsLocked(trimmed) {
		return
	}
	store.usernames = append(store.usernames, trimmed)
	store.persistLocked()
}

// Unmark removes a username from the done set.
func (store *DoneStore) Unmark(username string) {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	kept := store.usernames[:0]
	for _, existing := range store.usernames {
		if !strings.EqualFold(existing, username) {
			kept = append(kept, existing)
		}
	}
	store.usernames = kept
	store.persistLocked()
}

// Contains reports whether the username has been marked done.
func (store *DoneStore) Contains(username string) bool {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	return store.containsLocked(username)
}

// List returns the marked usernames in insertion order.
func (store *DoneStore) List() []string {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	return append([]string{}, store.usernames...)
}

func (store *DoneStore) containsLocked(username string) bool {
	for _, existing := range store.usernames {
		if strings.EqualFold(existing, username) {
			return true
		}
	}
	return false
}

func (store *DoneStore) persistLocked() {
	encoded, encodeErr := json.Marshal(store.usernames)
	if encodeErr != nil {
		store.logger.Warn(logMessageDoneSaveFailure, zap.Error(encodeErr))
		return
	}
	if setErr := store.gateway.Set(DoneKey, encoded); setErr != nil {
		store.logger.Warn(logMessageDoneSaveFailure, zap.Error(setErr))
	}
}
