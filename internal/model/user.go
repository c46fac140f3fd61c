// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered account.
//
// WHY IS ID THE EXTERNAL SUBJECT?
// The identity provider owns authentication, so the user's internal ID is
// the provider's subject id captured the first time we see the account.
// After that it never changes: if the provider later presents the same
// email under a different subject, the stored ID wins and a warning is
// logged (see service.UserResolver).
//
// Email is the business key used for lookups and carries a UNIQUE
// constraint in the database.
type User struct {
	ID             string     `json:"uid"`
	Email          string     `json:"email"`
	Name           *string    `json:"name"`
	AvatarURL      *string    `json:"avatar_url"`
	AvatarFileSize FileSize   `json:"avatar_file_size"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      *time.Time `json:"updated_at"`
}

// Identity is the canonical subject yielded by a verified bearer token.
type Identity struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          *string
}
