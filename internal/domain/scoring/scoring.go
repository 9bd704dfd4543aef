// Package scoring computes the points awarded for a won game.
package scoring

import "math"

// Scoring constants. Every term is multiplied by the streak multiplier.
const (
	BasePoints        = 1000
	AttemptPenalty    = 50
	QuickWinBonus     = 500
	QuickWinAttempts  = 3
	FastWinBonus      = 300
	FastWinSeconds    = 30
	DefaultMultiplier = 1.0
)

// Breakdown itemises a score so the win response can show how it was built.
type Breakdown struct {
	Base          float64 `json:"base"`
	Penalty       int     `json:"penalty"`
	QuickWinBonus float64 `json:"quick_win_bonus"`
	FastWinBonus  float64 `json:"fast_win_bonus"`
	Multiplier    float64 `json:"multiplier"`
	Total         int     `json:"total"`
}

// Compute returns the points for winning after attempts guesses (the
// winning one included) and elapsedSeconds on the clock.
func Compute(attempts int, elapsedSeconds float64, multiplier float64) int {
	return Explain(attempts, elapsedSeconds, multiplier).Total
}

// Explain computes the score and returns each term.
func Explain(attempts int, elapsedSeconds float64, multiplier float64) Breakdown {
	if attempts < 0 {
		attempts = 0
	}
	if multiplier <= 0 || math.IsNaN(multiplier) {
		multiplier = DefaultMultiplier
	}

	penalty := AttemptPenalty * attempts
	base := BasePoints - penalty
	if base < 0 {
		base = 0
	}

	b := Breakdown{
		Base:       float64(base) * multiplier,
		Penalty:    penalty,
		Multiplier: multiplier,
	}
	if attempts <= QuickWinAttempts {
		b.QuickWinBonus = QuickWinBonus * multiplier
	}
	if elapsedSeconds < FastWinSeconds {
		b.FastWinBonus = FastWinBonus * multiplier
	}
	b.Total = int(math.Round(b.Base + b.QuickWinBonus + b.FastWinBonus))
	return b
}
