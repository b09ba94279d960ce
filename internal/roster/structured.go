package roster

import (
	"encoding/json"
	"strings"
)

const (
	invalidStructuredDocumentMessage = "invalid JSON document: verify the file is a social graph export"

	followingCollectionKey = "relationships_following"
	followersCollectionKey = "relationships_followers"
	genericFollowingKey    = "following"
	genericFollowersKey    = "followers"
	nestedStringListKey    = "string_list_data"
	nestedValueKey         = "value"
	nestedTimestampKey     = "timestamp"
	flatUsernameKey        = "username"
	flatTimestampKey       = "timestamp"
	flatProfilePictureKey  = "profile_pic_url"
)

// entryShapeMatcher pairs a shape predicate with its record extractor.
// Matchers are tried in priority order; the first match wins and entries
// matching no shape are discarded.
type entryShapeMatcher struct {
	matches func(entry any) bool
	extract func(entry any) (UserRecord, bool)
}

var entryShapeMatchers = []entryShapeMatcher{
	{matches: isNestedStringListEntry, extract: extractNestedStringListEntry},
	{matches: isFlatObjectEntry, extract: extractFlatObjectEntry},
	{matches: isBareStringEntry, extract: extractBareStringEntry},
}

// NormalizeStructured converts a structured export document into canonical
// records. The relevant collection is located by trying, in order, the
// role-specific relationship key, the document itself when it is already an
// array, and the generic role key. Unparseable documents fail with a
// FormatError; entries matching no known shape are dropped silently.
func NormalizeStructured(document []byte, role Role) ([]UserRecord, error) {
	var root any
	if unmarshalErr := json.Unmarshal(document, &root); unmarshalErr != nil {
		return nil, newFormatError(invalidStructuredDocumentMessage)
	}

	entries := locateEntries(root, role)
	records := make([]UserRecord, 0, len(entries))
	for _, entry := range entries {
		for _, matcher := range entryShapeMatchers {
			if !matcher.matches(entry) {
				continue
			}
			if record, extracted := matcher.extract(entry); extracted {
				records = append(records, record)
			}
			break
		}
	}
	return records, nil
}

func locateEntries(root any, role Role) []any {
	roleKey := followingCollectionKey
	genericKey := genericFollowingKey
	if role == RoleFollowers {
		roleKey = followersCollectionKey
		genericKey = genericFollowersKey
	}

	if rootObject, isObject := root.(map[string]any); isObject {
		if entries, found := rootObject[roleKey].([]any); found {
			return entries
		}
	}
	if entries, isArray := root.([]any); isArray {
		return entries
	}
	if rootObject, isObject := root.(map[string]any); isObject {
		if entries, found := rootObject[genericKey].([]any); found {
			return entries
		}
	}
	return nil
}

func isNestedStringListEntry(entry any) bool {
	entryObject, isObject := entry.(map[string]any)
	if !isObject {
		return false
	}
	nestedValues, isArray := entryObject[nestedStringListKey].([]any)
	return isArray && len(nestedValues) > 0
}

func extractNestedStringListEntry(entry any) (UserRecord, bool) {
	entryObject := entry.(map[string]any)
	nestedValues := entryObject[nestedStringListKey].([]any)
	firstValue, isObject := nestedValues[0].(map[string]any)
	if !isObject {
		return UserRecord{}, false
	}
	username := strings.TrimSpace(stringForKey(firstValue, nestedValueKey))
	if username == "" {
		return UserRecord{}, false
	}
	return UserRecord{
		Username:  username,
		Timestamp: epochForKey(firstValue, nestedTimestampKey),
	}, true
}

func isFlatObjectEntry(entry any) bool {
	entryObject, isObject := entry.(map[string]any)
	if !isObject {
		return false
	}
	return stringForKey(entryObject, flatUsernameKey) != ""
}

func extractFlatObjectEntry(entry any) (UserRecord, bool) {
	entryObject := entry.(map[string]any)
	username := strings.TrimSpace(stringForKey(entryObject, flatUsernameKey))
	if username == "" {
		return UserRecord{}, false
	}
	record := UserRecord{
		Username:  username,
		Timestamp: epochForKey(entryObject, flatTimestampKey),
	}
	if pictureURL := stringForKey(entryObject, flatProfilePictureKey); pictureURL != "" {
		record.ProfilePicURL = &pictureURL
	}
	return record, true
}

func isBareStringEntry(entry any) bool {
	_, isString := entry.(string)
	return isString
}

func extractBareStringEntry(entry any) (UserRecord, bool) {
	username := strings.TrimSpace(entry.(string))
	if username == "" {
		return UserRecord{}, false
	}
	return UserRecord{Username: username}, true
}

func stringForKey(entryObject map[string]any, key string) string {
	if value, found := entryObject[key]; found {
		if text, isString := value.(string); isString {
			return text
		}
	}
	return ""
}

func epochForKey(entryObject map[string]any, key string) *int64 {
	if value, found := entryObject[key]; found {
		if number, isNumber := value.(float64); isNumber {
			seconds := int64(number)
			return &seconds
		}
	}
	return nil
}
