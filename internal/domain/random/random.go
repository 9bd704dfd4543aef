// Package random provides the number source used to draw secret targets
// and pick hints.
package random

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// Inclusive range of secret numbers.
const (
	MinNumber = 1
	MaxNumber = 100
)

// Source yields secret targets and uniform picks.
type Source interface {
	// Next returns a uniform integer in [MinNumber, MaxNumber].
	Next() int
	// Intn returns a uniform integer in [0, n).
	Intn(n int) int
}

// NewSeed generates a random seed using crypto/rand.
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

type lockedSource struct {
	mu sync.Mutex
	r  *rand.Rand
}

// New returns a Source seeded from crypto/rand. It falls back to the clock
// when the system entropy pool cannot be read.
func New() Source {
	seed, err := NewSeed()
	if err != nil {
		seed = time.Now().UnixNano()
	}
	return NewSeeded(seed)
}

// NewSeeded returns a deterministic Source. Safe for concurrent use.
func NewSeeded(seed int64) Source {
	return &lockedSource{r: rand.New(rand.NewSource(seed))} //nolint:gosec // game secrets, not crypto
}

func (s *lockedSource) Next() int {
	return MinNumber + s.Intn(MaxNumber-MinNumber+1)
}

func (s *lockedSource) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Intn(n)
}

// Scripted replays fixed values. Targets cycle through Targets; picks
// cycle through Picks, each reduced modulo n. Useful in tests.
type Scripted struct {
	mu      sync.Mutex
	Targets []int
	Picks   []int
	ti, pi  int
}

// Fixed returns a Scripted source whose targets are values.
func Fixed(values ...int) *Scripted {
	return &Scripted{Targets: values}
}

func (s *Scripted) Next() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Targets) == 0 {
		return MinNumber
	}
	v := s.Targets[s.ti%len(s.Targets)]
	s.ti++
	return v
}

func (s *Scripted) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n <= 0 || len(s.Picks) == 0 {
		return 0
	}
	v := s.Picks[s.pi%len(s.Picks)]
	s.pi++
	return ((v % n) + n) % n
}
