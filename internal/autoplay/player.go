package autoplay

import (
	"context"
	"fmt"
)

// Range of secret numbers the bots search.
const (
	minNumber = 1
	maxNumber = 100
)

// playGame plays one game by binary search and reports whether it was won.
// The search needs at most seven guesses, well inside the attempt limit.
func playGame(ctx context.Context, c *client, stats *Stats) (bool, error) {
	if err := c.newGame(ctx); err != nil {
		return false, err
	}
	lo, hi := minNumber, maxNumber
	for lo <= hi {
		mid := lo + (hi-lo)/2
		res, err := c.guess(ctx, mid)
		if err != nil {
			return false, err
		}
		stats.Guesses.Add(1)
		switch res.Feedback {
		case "too_low":
			lo = mid + 1
		case "too_high":
			hi = mid - 1
		default:
			return res.Status == "won", nil
		}
		if res.Status != "playing" {
			return res.Status == "won", nil
		}
	}
	return false, fmt.Errorf("search space exhausted between %d and %d", minNumber, maxNumber)
}
