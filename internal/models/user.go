package models

import (
	"time"
)

// OAuth providers a user can be linked to
const (
	OAuthProviderGitHub = "github"
	OAuthProviderGoogle = "google"
)

type User struct {
	ID            string
	Email         string
	Username      string
	PasswordHash  string  // Empty for OAuth-only users
	OAuthProvider *string // "github", "google" or nil
	OAuthID       *string
	IsActive      bool
	IsAdmin       bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// HasPassword reports whether the user can sign in with a password
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}
