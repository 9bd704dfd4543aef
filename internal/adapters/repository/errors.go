package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound     = errors.New("not found")
	ErrDuplicate    = errors.New("already exists")
	ErrInvalidLimit = errors.New("invalid leaderboard limit")
	ErrInvalidInput = errors.New("invalid input")
	// ErrPersistence wraps driver failures so callers can tell them apart
	// from domain outcomes.
	ErrPersistence = errors.New("persistence error")
)
