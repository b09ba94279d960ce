package session

import (
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/follow-sift/fsift/internal/roster"
	"github.com/follow-sift/fsift/internal/storage"
)

const (
	logMessageSessionSaveFailure    = "session save failure"
	logMessageSessionRestoreFailure = "session restore failure"
	logMessageSessionClearFailure   = "session clear failure"
)

// ManagerConfig configures a Manager instance.
type ManagerConfig struct {
	Store  *storage.EnvelopeStore
	Logger *zap.Logger
	Clock  func() time.Time
}

// Manager couples the session state machine with the persistence gateway.
// Every mutation is written through after the in-memory transition; storage
// failures are logged and absorbed because persistence is advisory, never a
// correctness dependency of the in-memory state.
type Manager struct {
	mutex   sync.Mutex
	session *Session
	store   *storage.EnvelopeStore
	logger  *zap.Logger
	clock   func() time.Time
}

// NewManager constructs a Manager from configuration values. A nil store
// keeps the workflow purely in-memory.
func NewManager(configuration ManagerConfig) *Manager {
	logger := configuration.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := configuration.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Manager{
		session: NewSession(),
		store:   configuration.Store,
		logger:  logger,
		clock:   clock,
	}
}

// Restore loads a persisted, non-expired session envelope and resumes from
// it. It reports whether a session was restored.
func (manager *Manager) Restore() bool {
	manager.mutex.Lock()
	defer manager.mutex.Unlock()

	if manager.store == nil {
		return false
	}
	payload, found, loadErr := manager.store.Load(manager.clock())
	if loadErr != nil {
		manager.logger.Warn(logMessageSessionRestoreFailure, zap.Error(loadErr))
		return false
	}
	if !found {
		return false
	}
	var state State
	if decodeErr := json.Unmarshal(payload, &state); decodeErr != nil {
		manager.logger.Warn(logMessageSessionRestoreFailure, zap.Error(decodeErr))
		return false
	}
	if len(state.Candidates) == 0 {
		return false
	}
	manager.session = RestoreSession(state)
	return true
}

// Start begins a review over a fresh candidate list.
func (manager *Manager) Start(candidates []roster.UserRecord) error {
	manager.mutex.Lock()
	defer manager.mutex.Unlock()

	if startErr := manager.session.Start(candidates); startErr != nil {
		return startErr
	}
	manager.persistLocked()
	return nil
}

// Decide records an outcome for the current candidate.
func (manager *Manager) Decide(direction Direction) error {
	manager.mutex.Lock()
	defer manager.mutex.Unlock()

	if decideErr := manager.session.Decide(direction); decideErr != nil {
		return decideErr
	}
	manager.persistLocked()
	return nil
}

// Undo retracts the most recent decision.
func (manager *Manager) Undo() error {
	manager.mutex.Lock()
	defer manager.mutex.Unlock()

	if undoErr := manager.session.Undo(); undoErr != nil {
		return undoErr
	}
	manager.persistLocked()
	return nil
}

// Reset discards all progress and deletes the persisted envelope. The
// done-marker store is deliberately untouched: it records real-world actions
// that survive re-analysis.
func (manager *Manager) Reset() {
	manager.mutex.Lock()
	defer manager.mutex.Unlock()

	manager.session.Reset()
	if manager.store == nil {
		return
	}
	if clearErr := manager.store.Clear(); clearErr != nil {
		manager.logger.Warn(logMessageSessionClearFailure, zap.Error(clearErr))
	}
}

// Snapshot returns a deep copy of the current session state.
func (manager *Manager) Snapshot() State {
	manager.mutex.Lock()
	defer manager.mutex.Unlock()

	return manager.session.Snapshot()
}

// Step reports the workflow stage.
func (manager *Manager) Step() Step {
	manager.mutex.Lock()
	defer manager.mutex.Unlock()

	return manager.session.Step()
}

// CanUndo reports whether a decision can be retracted.
func (manager *Manager) CanUndo() bool {
	manager.mutex.Lock()
	defer manager.mutex.Unlock()

	return manager.session.CanUndo()
}

// Current returns the candidate awaiting a decision, if any.
func (manager *Manager) Current() (roster.UserRecord, bool) {
	manager.mutex.Lock()
	defer manager.mutex.Unlock()

	return manager.session.Current()
}

func (manager *Manager) persistLocked() {
	if manager.store == nil {
		return
	}
	payload, encodeErr := json.Marshal(manager.session.Snapshot())
	if encodeErr != nil {
		manager.logger.Warn(logMessageSessionSaveFailure, zap.Error(encodeErr))
		return
	}
	if saveErr := manager.store.Save(payload, manager.clock()); saveErr != nil {
		manager.logger.Warn(logMessageSessionSaveFailure, zap.Error(saveErr))
	}
}
