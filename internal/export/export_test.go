package export_test

import (
	"testing"
	"time"

	"github.com/follow-sift/fsift/internal/export"
	"github.com/follow-sift/fsift/internal/roster"
	"github.com/follow-sift/fsift/internal/session"
)

var exportMoment = time.Date(2026, time.April, 5, 10, 0, 0, 0, time.UTC)

func decisionsFixture() session.DecisionSet {
	return session.DecisionSet{
		Unfollow: []roster.UserRecord{{Username: "nike"}, {Username: "adidas"}},
		Keep:     []roster.UserRecord{{Username: "friend1"}},
	}
}

func TestCSV(t *testing.T) {
	csvDocument, renderErr := export.CSV(decisionsFixture(), []string{"Nike"}, exportMoment)
	if renderErr != nil {
		t.Fatalf("CSV returned error: %v", renderErr)
	}

	expected := "username,action,status,timestamp\n" +
		"nike,unfollow,done,2026-04-05T10:00:00Z\n" +
		"adidas,unfollow,pending,2026-04-05T10:00:00Z\n" +
		"friend1,keep,n/a,2026-04-05T10:00:00Z\n"
	if csvDocument != expected {
		t.Fatalf("CSV output mismatch:\n got %q\nwant %q", csvDocument, expected)
	}
}

func TestCSVWithoutDecisions(t *testing.T) {
	csvDocument, renderErr := export.CSV(session.DecisionSet{}, nil, exportMoment)
	if renderErr != nil {
		t.Fatalf("CSV returned error: %v", renderErr)
	}
	if csvDocument != "username,action,status,timestamp\n" {
		t.Fatalf("empty CSV output mismatch: %q", csvDocument)
	}
}

func TestJSONSummary(t *testing.T) {
	summary := export.JSONSummary(decisionsFixture(), exportMoment)

	if summary.ExportedAt != "2026-04-05T10:00:00Z" {
		t.Fatalf("ExportedAt = %q", summary.ExportedAt)
	}
	if len(summary.Unfollow) != 2 || summary.Unfollow[0] != "nike" || summary.Unfollow[1] != "adidas" {
		t.Fatalf("Unfollow = %v", summary.Unfollow)
	}
	if len(summary.Keep) != 1 || summary.Keep[0] != "friend1" {
		t.Fatalf("Keep = %v", summary.Keep)
	}
	if summary.Stats.TotalUnfollow != 2 || summary.Stats.TotalKeep != 1 {
		t.Fatalf("Stats = %+v", summary.Stats)
	}
}

func TestPendingUsernames(t *testing.T) {
	testCases := []struct {
		name          string
		doneUsernames []string
		expected      string
	}{
		{name: "nothing done yet", doneUsernames: nil, expected: "nike\nadidas"},
		{name: "case insensitive done markers", doneUsernames: []string{"NIKE"}, expected: "adidas"},
		{name: "everything done", doneUsernames: []string{"nike", "adidas"}, expected: ""},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			pending := export.PendingUsernames(decisionsFixture(), testCase.doneUsernames)
			if pending != testCase.expected {
				t.Fatalf("PendingUsernames = %q, want %q", pending, testCase.expected)
			}
		})
	}
}
