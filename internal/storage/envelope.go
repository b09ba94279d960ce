package storage

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	// DefaultTimeToLive expires persisted envelopes after thirty days.
	DefaultTimeToLive = 30 * 24 * time.Hour

	encodeEnvelopeErrorFormat = "encode envelope: %w"
	decodeEnvelopeErrorFormat = "decode envelope: %w"
)

// envelope wraps a persisted payload with its save timestamp so staleness
// can be checked on load.
type envelope struct {
	SavedAt time.Time       `json:"savedAt"`
	Payload json.RawMessage `json:"payload"`
}

// EnvelopeStore persists one payload under a fixed key, discarding entries
// older than the configured time to live on load.
type EnvelopeStore struct {
	gateway    Gateway
	key        string
	timeToLive time.Duration
}

// NewEnvelopeStore constructs an envelope store over the gateway. A zero
// time to live falls back to the thirty day default.
func NewEnvelopeStore(gateway Gateway, key string, timeToLive time.Duration) *EnvelopeStore {
	if timeToLive <= 0 {
		timeToLive = DefaultTimeToLive
	}
	return &EnvelopeStore{gateway: gateway, key: key, timeToLive: timeToLive}
}

// Save wraps the payload with the save timestamp and writes it.
func (store *EnvelopeStore) Save(payload json.RawMessage, now time.Time) error {
	encoded, encodeErr := json.Marshal(envelope{SavedAt: now, Payload: payload})
	if encodeErr != nil {
		return fmt.Errorf(encodeEnvelopeErrorFormat, encodeErr)
	}
	return store.gateway.Set(store.key, encoded)
}

// Load returns the stored payload unless it is absent or expired. An expired
// entry is deleted and reported as absent.
func (store *EnvelopeStore) Load(now time.Time) (json.RawMessage, bool, error) {
	encoded, found, getErr := store.gateway.Get(store.key)
	if getErr != nil || !found {
		return nil, false, getErr
	}

	var stored envelope
	if decodeErr := json.Unmarshal(encoded, &stored); decodeErr != nil {
		return nil, false, fmt.Errorf(decodeEnvelopeErrorFormat, decodeErr)
	}
	if now.Sub(stored.SavedAt) > store.timeToLive {
		_ = store.gateway.Delete(store.key)
		return nil, false, nil
	}
	return stored.Payload, true, nil
}

// Clear removes the stored envelope.
func (store *EnvelopeStore) Clear() error {
	return store.gateway.Delete(store.key)
}
