package game

import (
	"errors"
	"fmt"

	"github.com/okian/guessr/internal/domain/random"
)

var (
	// ErrInvalidGuess is wrapped by every *ValidationError.
	ErrInvalidGuess = errors.New("invalid guess")
	// ErrNotPlaying rejects guesses and hints once a game is over.
	ErrNotPlaying = errors.New("game is not in progress")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("game machine closed")
)

// ValidationError describes a rejected guess. The session is unchanged.
type ValidationError struct {
	Input string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %q: enter a whole number between %d and %d",
		ErrInvalidGuess, e.Input, random.MinNumber, random.MaxNumber)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidGuess }
