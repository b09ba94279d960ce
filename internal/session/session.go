// Package session implements the resumable decision workflow over the
// non-follower candidate list.
package session

import (
	"errors"
	"strings"

	"github.com/follow-sift/fsift/internal/roster"
)

// Direction is the outcome the reviewer chose for the current candidate.
type Direction string

const (
	// DirectionUnfollow records the decision to stop following the candidate.
	DirectionUnfollow Direction = "unfollow"
	// DirectionKeep records the decision to keep following the candidate.
	DirectionKeep Direction = "keep"
)

// Step names the workflow stage surfaced to presentation collaborators.
type Step string

const (
	// StepUpload indicates no candidate list has been loaded yet.
	StepUpload Step = "upload"
	// StepSwipe indicates candidates remain to be reviewed.
	StepSwipe Step = "swipe"
	// StepResults indicates every candidate has been reviewed.
	StepResults Step = "results"
)

var (
	// ErrEmptyCandidates rejects starting a session without candidates.
	ErrEmptyCandidates = errors.New("candidate list is empty")
	// ErrSessionComplete rejects deciding when no candidate remains.
	ErrSessionComplete = errors.New("all candidates are already reviewed")
	// ErrNothingToUndo rejects undoing before any decision was made.
	ErrNothingToUndo = errors.New("no decision to undo")
	// ErrUnknownDirection rejects decision directions outside unfollow/keep.
	ErrUnknownDirection = errors.New("unknown decision direction")
)

// ParseDirection validates a raw direction value.
func ParseDirection(value string) (Direction, error) {
	switch Direction(strings.ToLower(strings.TrimSpace(value))) {
	case DirectionUnfollow:
		return DirectionUnfollow, nil
	case DirectionKeep:
		return DirectionKeep, nil
	default:
		return "", ErrUnknownDirection
	}
}

// DecisionSet groups reviewed records by outcome, in decision order. A
// username appears in at most one of the two sequences at any time.
type DecisionSet struct {
	Unfollow []roster.UserRecord `json:"unfollow"`
	Keep     []roster.UserRecord `json:"keep"`
}

// Stats summarizes review progress.
type Stats struct {
	Total     int `json:"total"`
	Processed int `json:"processed"`
}

// State is a snapshot of the review workflow.
type State struct {
	Candidates   []roster.UserRecord `json:"candidates"`
	CurrentIndex int                 `json:"currentIndex"`
	Decisions    DecisionSet         `json:"decisions"`
	Stats        Stats               `json:"stats"`
}

// Session is the decision state machine over one candidate list. Its
// transition methods mutate in-memory state only; persistence is layered on
// top by the Manager.
type Session struct {
	state State
}

// NewSession constructs an empty session awaiting a candidate list.
func NewSession() *Session {
	return &Session{state: emptyState()}
}

// RestoreSession rebuilds a session from a previously persisted state. The
// derived fields are recomputed and the index clamped so a tampered or
// inconsistent snapshot can never corrupt the invariants.
func RestoreSession(state State) *Session {
	state.Stats.Total = len(state.Candidates)
	state.Stats.Processed = len(state.Decisions.Unfollow) + len(state.Decisions.Keep)
	if state.CurrentIndex < 0 {
		state.CurrentIndex = 0
	}
	if state.CurrentIndex > state.Stats.Total {
		state.CurrentIndex = state.Stats.Total
	}
	return &Session{state: cloneState(state)}
}

// Start loads a fresh candidate list and rewinds all progress.
func (reviewSession *Session) Start(candidates []roster.UserRecord) error {
	if len(candidates) == 0 {
		return ErrEmptyCandidates
	}
	reviewSession.state = emptyState()
	reviewSession.state.Candidates = append([]roster.UserRecord(nil), candidates...)
	reviewSession.state.Stats.Total = len(candidates)
	return nil
}

// Decide records the outcome for the current candidate and advances.
func (reviewSession *Session) Decide(direction Direction) error {
	if reviewSession.state.CurrentIndex >= len(reviewSession.state.Candidates) {
		return ErrSessionComplete
	}
	currentRecord := reviewSession.state.Candidates[reviewSession.state.CurrentIndex]
	switch direction {
	case DirectionUnfollow:
		reviewSession.state.Decisions.Unfollow = append(reviewSession.state.Decisions.Unfollow, currentRecord)
	case DirectionKeep:
		reviewSession.state.Decisions.Keep = append(reviewSession.state.Decisions.Keep, currentRecord)
	default:
		return ErrUnknownDirection
	}
	reviewSession.state.Stats.Processed++
	reviewSession.state.CurrentIndex++
	return nil
}

// Undo retreats one position and removes the retreated record from whichever
// decision sequence holds it. Removal matches the most recent entry with the
// candidate's username rather than popping the last element, so it stays
// correct even if the sequences are ever reordered.
func (reviewSession *Session) Undo() error {
	if reviewSession.state.CurrentIndex == 0 {
		return ErrNothingToUndo
	}
	previousIndex := reviewSession.state.CurrentIndex - 1
	previousRecord := reviewSession.state.Candidates[previousIndex]

	reviewSession.state.Decisions.Unfollow = removeMostRecentByUsername(reviewSession.state.Decisions.Unfollow, previousRecord.Username)
	reviewSession.state.Decisions.Keep = removeMostRecentByUsername(reviewSession.state.Decisions.Keep, previousRecord.Username)
	reviewSession.state.Stats.Processed = len(reviewSession.state.Decisions.Unfollow) + len(reviewSession.state.Decisions.Keep)
	reviewSession.state.CurrentIndex = previousIndex
	return nil
}

// Reset discards the candidate list and all progress.
func (reviewSession *Session) Reset() {
	reviewSession.state = emptyState()
}

// CanUndo reports whether at least one decision can be retracted.
func (reviewSession *Session) CanUndo() bool {
	return reviewSession.state.CurrentIndex > 0
}

// IsComplete reports whether every candidate has been reviewed.
func (reviewSession *Session) IsComplete() bool {
	return len(reviewSession.state.Candidates) > 0 &&
		reviewSession.state.CurrentIndex >= len(reviewSession.state.Candidates)
}

// Step derives the workflow stage from the current state.
func (reviewSession *Session) Step() Step {
	switch {
	case len(reviewSession.state.Candidates) == 0:
		return StepUpload
	case reviewSession.IsComplete():
		return StepResults
	default:
		return StepSwipe
	}
}

// Current returns the candidate awaiting a decision, if any.
func (reviewSession *Session) Current() (roster.UserRecord, bool) {
	if reviewSession.state.CurrentIndex >= len(reviewSession.state.Candidates) {
		return roster.UserRecord{}, false
	}
	return reviewSession.state.Candidates[reviewSession.state.CurrentIndex], true
}

// Snapshot returns a deep copy of the session state for observers.
func (reviewSession *Session) Snapshot() State {
	return cloneState(reviewSession.state)
}

func emptyState() State {
	return State{
		Candidates: []roster.UserRecord{},
		Decisions:  DecisionSet{Unfollow: []roster.UserRecord{}, Keep: []roster.UserRecord{}},
	}
}

func cloneState(state State) State {
	cloned := state
	cloned.Candidates = append([]roster.UserRecord{}, state.Candidates...)
	cloned.Decisions.Unfollow = append([]roster.UserRecord{}, state.Decisions.Unfollow...)
	cloned.Decisions.Keep = append([]roster.UserRecord{}, state.Decisions.Keep...)
	return cloned
}

func removeMostRecentByUsername(records []roster.UserRecord, username string) []roster.UserRecord {
	for recordIndex := len(records) - 1; recordIndex >= 0; recordIndex-- {
		if strings.EqualFold(records[recordIndex].Username, username) {
			return append(records[:recordIndex:recordIndex], records[recordIndex+1:]...)
		}
	}
	return records
}
