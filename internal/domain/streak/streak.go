// Package streak tracks consecutive wins and the score multiplier they earn.
package streak

import "time"

// StaleAfter is how long a streak survives without a win.
const StaleAfter = 24 * time.Hour

// MultiplierFor maps a streak length to its score multiplier.
func MultiplierFor(streak int) float64 {
	switch {
	case streak >= 4:
		return 1.5
	case streak == 3:
		return 1.25
	case streak == 2:
		return 1.1
	default:
		return 1.0
	}
}

// State is a player's streak. The zero value is a player who never won.
// Highest is never lowered and is always at least Current.
type State struct {
	Current int       `json:"current_streak"`
	Highest int       `json:"highest_streak"`
	LastWin time.Time `json:"last_win,omitzero"`
}

// Multiplier returns the multiplier for the current streak.
func (s State) Multiplier() float64 {
	return MultiplierFor(s.Current)
}

// OnWin extends the streak and stamps the win time.
func (s *State) OnWin(now time.Time) {
	s.Current++
	if s.Current > s.Highest {
		s.Highest = s.Current
	}
	s.LastWin = now
}

// OnLoss breaks the streak.
func (s *State) OnLoss() {
	s.Current = 0
}

// ApplyStaleness zeroes Current when the last win is at least StaleAfter
// old, or missing. It reports whether the streak was reset.
func (s *State) ApplyStaleness(now time.Time) bool {
	if s.Current == 0 {
		return false
	}
	if s.LastWin.IsZero() || now.Sub(s.LastWin) >= StaleAfter {
		s.Current = 0
		return true
	}
	return false
}

// Normalize repairs records that break the Highest >= Current rule and
// clamps negatives, which can only come from a hand-edited store row.
func (s *State) Normalize() {
	if s.Current < 0 {
		s.Current = 0
	}
	if s.Highest < s.Current {
		s.Highest = s.Current
	}
}
