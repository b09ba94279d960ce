// Package export serializes decision sets and done markers for the results
// surface: CSV rows, a JSON summary, and the pending-username clipboard
// payload.
package export

import (
	"encoding/csv"
	"encoding/json"
	"strings"
	"time"

	"github.com/follow-sift/fsift/internal/session"
)

const (
	csvColumnUsername  = "username"
	csvColumnAction    = "action"
	csvColumnStatus    = "status"
	csvColumnTimestamp = "timestamp"

	actionUnfollow      = "unfollow"
	actionKeep          = "keep"
	statusDone          = "done"
	statusPending       = "pending"
	statusNotApplicable = "n/a"
)

var csvHeaderColumns = []string{csvColumnUsername, csvColumnAction, csvColumnStatus, csvColumnTimestamp}

// Summary is the JSON export shape for a finished review.
type Summary struct {
	ExportedAt string       `json:"exportedAt"`
	Unfollow   []string     `json:"unfollow"`
	Keep       []string     `json:"keep"`
	Stats      SummaryStats `json:"stats"`
}

// SummaryStats counts the decisions per outcome.
type SummaryStats struct {
	TotalUnfollow int `json:"totalUnfollow"`
	TotalKeep     int `json:"totalKeep"`
}

// CSV renders the decision set as username,action,status,timestamp rows.
// Unfollow rows carry done/pending status from the done-marker set; keep
// rows are not actionable and report n/a.
func CSV(decisions session.DecisionSet, doneUsernames []string, now time.Time) (string, error) {
	doneKeys := make(map[string]struct{}, len(doneUsernames))
	for _, username := range doneUsernames {
		doneKeys[strings.ToLower(username)] = struct{}{}
	}
	exportedAt := now.UTC().Format(time.RFC3339)

	var buffer strings.Builder
	csvWriter := csv.NewWriter(&buffer)
	if writeErr := csvWriter.Write(csvHeaderColumns); writeErr != nil {
		return "", writeErr
	}
	for _, record := range decisions.Unfollow {
		status := statusPending
		if _, marked := doneKeys[record.Key()]; marked {
			status = statusDone
		}
		if writeErr := csvWriter.Write([]string{record.Username, actionUnfollow, status, exportedAt}); writeErr != nil {
			return "", writeErr
		}
	}
	for _, record := range decisions.Keep {
		if writeErr := csvWriter.Write([]string{record.Username, actionKeep, statusNotApplicable, exportedAt}); writeErr != nil {
			return "", writeErr
		}
	}
	csvWriter.Flush()
	return buffer.String(), csvWriter.Error()
}

// JSONSummary builds the export summary for the decision set.
func JSONSummary(decisions session.DecisionSet, now time.Time) Summary {
	unfollowUsernames := make([]string, 0, len(decisions.Unfollow))
	for _, record := range decisions.Unfollow {
		unfollowUsernames = append(unfollowUsernames, record.Username)
	}
	keepUsernames := make([]string, 0, len(decisions.Keep))
	for _, record := range decisions.Keep {
		keepUsernames = append(keepUsernames, record.Username)
	}
	return Summary{
		ExportedAt: now.UTC().Format(time.RFC3339),
		Unfollow:   unfollowUsernames,
		Keep:       keepUsernames,
		Stats: SummaryStats{
			TotalUnfollow: len(decisions.Unfollow),
			TotalKeep:     len(decisions.Keep),
		},
	}
}

// JSON renders the export summary as indented JSON.
func JSON(decisions session.DecisionSet, now time.Time) ([]byte, error) {
	return json.MarshalIndent(JSONSummary(decisions, now), "", "  ")
}

// PendingUsernames joins the unfollow usernames not yet marked done with
// newlines, ready for clipboard copy.
func PendingUsernames(decisions session.DecisionSet, doneUsernames []string) string {
	doneKeys := make(map[string]struct{}, len(doneUsernames))
	for _, username := range doneUsernames {
		doneKeys[strings.ToLower(username)] = struct{}{}
	}
	pending := make([]string, 0, len(decisions.Unfollow))
	for _, record := range decisions.Unfollow {
		if _, marked := doneKeys[record.Key()]; !marked {
			pending = append(pending, record.Username)
		}
	}
	return strings.Join(pending, "\n")
}
