package roster

import "sort"

// Resolve returns the records in following whose usernames have no
// case-insensitive match in followers, sorted ascending by lowercase
// username. Duplicate usernames in following pass through independently;
// deduplication is the caller's concern.
func Resolve(following []UserRecord, followers []UserRecord) []UserRecord {
	followerKeys := make(map[string]struct{}, len(followers))
	for _, followerRecord := range followers {
		followerKeys[followerRecord.Key()] = struct{}{}
	}

	nonFollowers := make([]UserRecord, 0, len(following))
	for _, followedRecord := range following {
		if _, followsBack := followerKeys[followedRecord.Key()]; !followsBack {
			nonFollowers = append(nonFollowers, followedRecord)
		}
	}

	sort.SliceStable(nonFollowers, func(firstIndex, secondIndex int) bool {
		return nonFollowers[firstIndex].Key() < nonFollowers[secondIndex].Key()
	})
	return nonFollowers
}

// SampleData returns a canonical following/followers pair for demos and tests.
func SampleData() ([]UserRecord, []UserRecord) {
	sampleEpoch := int64(1609459200)
	newSampleRecord := func(username string) UserRecord {
		epoch := sampleEpoch
		return UserRecord{Username: username, Timestamp: &epoch}
	}

	sampleFollowing := []UserRecord{
		newSampleRecord("nike"),
		newSampleRecord("adidas"),
		newSampleRecord("apple"),
		newSampleRecord("google"),
		newSampleRecord("friend1"),
		newSampleRecord("friend2"),
	}
	sampleFollowers := []UserRecord{
		newSampleRecord("friend1"),
		newSampleRecord("friend2"),
		newSampleRecord("random_follower"),
	}
	return sampleFollowing, sampleFollowers
}
