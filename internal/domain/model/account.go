package model

import "time"

// Account is a locally registered identity.
type Account struct {
	ID           string
	Email        string
	PasswordHash string // empty for OAuth-only accounts
	Metadata     map[string]string
	CreatedAt    time.Time
}
