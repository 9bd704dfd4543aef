package service

import "errors"

var (
	// ErrLoadTimeout is returned when the profile store does not answer in
	// time. The player continues with zero defaults.
	ErrLoadTimeout = errors.New("profile load timed out")
	// ErrProfileLoad wraps any other profile load failure.
	ErrProfileLoad = errors.New("profile load failed")
	// ErrNoPlayer is returned for users without an active game.
	ErrNoPlayer = errors.New("player not signed in")
	// ErrNotStarted is returned before Start or after Stop.
	ErrNotStarted = errors.New("service not started")
)
