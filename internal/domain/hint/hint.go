// Package hint builds clues about a secret number.
package hint

import (
	"fmt"

	"github.com/okian/guessr/internal/domain/random"
)

const (
	midpoint  = 50
	rangeSize = 25
)

// primes up to 100; targets never exceed random.MaxNumber.
var primes = map[int]struct{}{
	2: {}, 3: {}, 5: {}, 7: {}, 11: {}, 13: {}, 17: {}, 19: {}, 23: {}, 29: {},
	31: {}, 37: {}, 41: {}, 43: {}, 47: {}, 53: {}, 59: {}, 61: {}, 67: {}, 71: {},
	73: {}, 79: {}, 83: {}, 89: {}, 97: {},
}

// IsPrime reports whether n is a prime not larger than 100.
func IsPrime(n int) bool {
	_, ok := primes[n]
	return ok
}

// RangeFor returns the 25-wide bucket containing target.
func RangeFor(target int) (lo, hi int) {
	lo = ((target-1)/rangeSize)*rangeSize + 1
	return lo, lo + rangeSize - 1
}

// Candidates lists every true clue for target in a stable order: parity,
// side of 50, multiple of 5, prime, range.
func Candidates(target int) []string {
	out := make([]string, 0, 5)

	if target%2 == 0 {
		out = append(out, "The number is even")
	} else {
		out = append(out, "The number is odd")
	}

	if target > midpoint {
		out = append(out, fmt.Sprintf("The number is greater than %d", midpoint))
	} else {
		out = append(out, fmt.Sprintf("The number is less than %d", midpoint))
	}

	if target%5 == 0 {
		out = append(out, "The number is a multiple of 5")
	}
	if IsPrime(target) {
		out = append(out, "The number is prime")
	}

	lo, hi := RangeFor(target)
	out = append(out, fmt.Sprintf("The number is between %d and %d", lo, hi))
	return out
}

// Engine picks one clue uniformly at random.
type Engine struct {
	src random.Source
}

// NewEngine returns an Engine drawing from src.
func NewEngine(src random.Source) *Engine {
	return &Engine{src: src}
}

// Hint returns one clue about target.
func (e *Engine) Hint(target int) string {
	c := Candidates(target)
	return c[e.src.Intn(len(c))]
}
