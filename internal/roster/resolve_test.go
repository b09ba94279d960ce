package roster_test

import (
	"reflect"
	"testing"

	"github.com/follow-sift/fsift/internal/roster"
)

func TestResolve(t *testing.T) {
	testCases := []struct {
		name              string
		following         []string
		followers         []string
		expectedUsernames []string
	}{
		{
			name:              "filters mutuals and sorts ascending",
			following:         []string{"nike", "adidas", "friend1", "friend2"},
			followers:         []string{"friend1", "friend2"},
			expectedUsernames: []string{"adidas", "nike"},
		},
		{
			name:              "matching is case insensitive",
			following:         []string{"Nike", "Friend1"},
			followers:         []string{"FRIEND1"},
			expectedUsernames: []string{"Nike"},
		},
		{
			name:              "duplicates in following pass through independently",
			following:         []string{"nike", "NIKE", "friend1"},
			followers:         []string{"friend1"},
			expectedUsernames: []string{"nike", "NIKE"},
		},
		{
			name:              "everyone follows back",
			following:         []string{"friend1"},
			followers:         []string{"friend1", "extra"},
			expectedUsernames: []string{},
		},
		{
			name:              "nobody follows back",
			following:         []string{"zeta", "alpha"},
			followers:         []string{},
			expectedUsernames: []string{"alpha", "zeta"},
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			nonFollowers := roster.Resolve(recordsFromUsernames(testCase.following), recordsFromUsernames(testCase.followers))
			assertUsernames(t, nonFollowers, testCase.expectedUsernames)
		})
	}
}

func TestResolveIsIdempotent(t *testing.T) {
	following := recordsFromUsernames([]string{"nike", "adidas", "friend1"})
	followers := recordsFromUsernames([]string{"friend1"})

	firstRun := roster.Resolve(following, followers)
	secondRun := roster.Resolve(following, followers)
	if !reflect.DeepEqual(firstRun, secondRun) {
		t.Fatalf("Resolve is not idempotent: %v vs %v", firstRun, secondRun)
	}
}

func TestResolveSampleData(t *testing.T) {
	sampleFollowing, sampleFollowers := roster.SampleData()
	nonFollowers := roster.Resolve(sampleFollowing, sampleFollowers)
	assertUsernames(t, nonFollowers, []string{"adidas", "apple", "google", "nike"})
}

func recordsFromUsernames(usernames []string) []roster.UserRecord {
	records := make([]roster.UserRecord, 0, len(usernames))
	for _, username := range usernames {
		records = append(records, roster.UserRecord{Username: username})
	}
	return records
}
