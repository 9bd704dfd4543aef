package game

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/okian/guessr/internal/domain/random"
)

// MaxAttempts is the number of guesses allowed per game.
const MaxAttempts = 10

// Feedback is the outcome of one accepted guess.
type Feedback string

const (
	TooLow    Feedback = "too_low"
	TooHigh   Feedback = "too_high"
	Correct   Feedback = "correct"
	Exhausted Feedback = "exhausted"
)

// Message renders the feedback the way the player sees it.
func (f Feedback) Message(target int) string {
	switch f {
	case TooLow:
		return "Too low"
	case TooHigh:
		return "Too high"
	case Correct:
		return "Correct!"
	case Exhausted:
		return fmt.Sprintf("Too many attempts. The number was %d.", target)
	default:
		return string(f)
	}
}

// Status is the lifecycle state of a game.
type Status string

const (
	Playing Status = "playing"
	Won     Status = "won"
	Lost    Status = "lost"
)

// Guess is one entry of the history, oldest first.
type Guess struct {
	Value    int      `json:"value"`
	Feedback Feedback `json:"feedback"`
	Message  string   `json:"message"`
}

// Session is a single play-through.
type Session struct {
	Target         int
	Attempts       int
	History        []Guess
	Status         Status
	StartedAt      time.Time // zero until the first accepted guess
	ElapsedSeconds int
}

func newSession(target int) Session {
	return Session{Target: target, Status: Playing}
}

// Started reports whether the first guess was accepted.
func (s *Session) Started() bool { return !s.StartedAt.IsZero() }

// ParseGuess converts player input into a guess in range.
func ParseGuess(raw string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || v < random.MinNumber || v > random.MaxNumber {
		return 0, &ValidationError{Input: raw}
	}
	return v, nil
}
