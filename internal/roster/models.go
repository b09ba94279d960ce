// Package roster normalizes heterogeneous social graph exports into
// canonical user records and computes the non-follow-back set.
package roster

import "strings"

// Role identifies which side of the social graph an export file describes.
type Role string

const (
	// RoleFollowing marks an export of accounts the owner follows.
	RoleFollowing Role = "following"
	// RoleFollowers marks an export of accounts following the owner.
	RoleFollowers Role = "followers"
)

// UserRecord is the canonical form of a single account entry.
type UserRecord struct {
	Username      string  `json:"username"`
	Timestamp     *int64  `json:"timestamp"`
	ProfilePicURL *string `json:"profilePicUrl"`
}

// Key returns the case-insensitive identity of the record.
func (record UserRecord) Key() string {
	return strings.ToLower(record.Username)
}

// FormatError signals input that cannot be interpreted as a supported
// export format. Its message is intended for direct display to the user.
type FormatError struct {
	Message string
}

// Error returns the user-facing message.
func (formatErr *FormatError) Error() string {
	return formatErr.Message
}

func newFormatError(message string) error {
	return &FormatError{Message: message}
}
