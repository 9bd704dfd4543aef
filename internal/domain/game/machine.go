// Package game implements the guessing game state machine for one player.
//
// A Machine owns the current Session together with the player's cached
// profile and hint points. Every mutation happens under the machine's lock;
// persistence is requested through a Persister and never awaited.
package game

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/okian/guessr/internal/domain/hint"
	"github.com/okian/guessr/internal/domain/model"
	"github.com/okian/guessr/internal/domain/points"
	"github.com/okian/guessr/internal/domain/profile"
	"github.com/okian/guessr/internal/domain/random"
	"github.com/okian/guessr/internal/domain/scoring"
	"github.com/okian/guessr/pkg/logger"
)

const tickInterval = time.Second

// Persister receives profile writes. Implementations must not block.
type Persister interface {
	RequestUpdate(ctx context.Context, u model.ProfileUpdate)
}

type nopPersister struct{}

func (nopPersister) RequestUpdate(context.Context, model.ProfileUpdate) {}

// Result is the outcome of an accepted guess.
type Result struct {
	Guess     int                `json:"guess"`
	Feedback  Feedback           `json:"feedback"`
	Message   string             `json:"message"`
	Status    Status             `json:"status"`
	Attempts  int                `json:"attempts"`
	Remaining int                `json:"remaining"`
	Awarded   int                `json:"awarded,omitempty"`
	Breakdown *scoring.Breakdown `json:"breakdown,omitempty"`
	Target    int                `json:"target,omitempty"` // revealed once the game is over
}

// HintResult is a purchased hint and the balance left.
type HintResult struct {
	Hint    string `json:"hint"`
	Balance int    `json:"balance"`
}

// View is an immutable snapshot of the machine.
type View struct {
	UserID         string          `json:"user_id"`
	Status         Status          `json:"status"`
	Attempts       int             `json:"attempts"`
	Remaining      int             `json:"remaining"`
	History        []Guess         `json:"history"`
	ElapsedSeconds int             `json:"elapsed_seconds"`
	Started        bool            `json:"started"`
	Target         int             `json:"target,omitempty"`
	Profile        profile.Profile `json:"profile"`
	Multiplier     float64         `json:"multiplier"`
	HintCost       int             `json:"hint_cost"`
	CanBuyHint     bool            `json:"can_buy_hint"`
}

// Machine is the per-player game state machine. Safe for concurrent use.
type Machine struct {
	mu sync.Mutex

	userID   string
	session  Session
	prof     profile.Profile
	ledger   *points.Ledger
	src      random.Source
	hints    *hint.Engine
	clock    Clock
	persist  Persister
	hintCost int
	log      logger.Logger

	// timer state; gen changes whenever a ticker is stopped so that a late
	// tick from an old ticker cannot touch the next game.
	ticker   Ticker
	stopTick chan struct{}
	gen      uint64
	closed   bool
}

// NewMachine creates a machine for userID with zero profile defaults and
// starts the first game.
func NewMachine(userID string, opts ...Option) *Machine {
	m := &Machine{
		userID:   userID,
		prof:     profile.Zero(userID),
		ledger:   points.NewLedger(0),
		clock:    SystemClock{},
		persist:  nopPersister{},
		hintCost: points.DefaultHintCost,
		log:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.src == nil {
		m.src = random.New()
	}
	m.hints = hint.NewEngine(m.src)
	m.ledger.Set(m.prof.PurchasedPoints)
	m.session = newSession(m.src.Next())
	return m
}

// UserID returns the owner of the machine.
func (m *Machine) UserID() string { return m.userID }

// SubmitGuess validates raw and advances the game. Invalid input returns a
// *ValidationError and leaves the session untouched.
func (m *Machine) SubmitGuess(ctx context.Context, raw string) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return Result{}, ErrClosed
	}
	if m.session.Status != Playing {
		return Result{}, ErrNotPlaying
	}
	value, err := ParseGuess(raw)
	if err != nil {
		return Result{}, err
	}

	now := m.clock.Now()
	if !m.session.Started() {
		m.session.StartedAt = now
		m.startTimerLocked()
	}
	m.session.Attempts++

	s := &m.session
	res := Result{Guess: value}

	switch {
	case value == s.Target:
		res.Feedback = Correct
		s.Status = Won
		m.stopTimerLocked()

		elapsed := now.Sub(s.StartedAt).Seconds()
		b := scoring.Explain(s.Attempts, elapsed, m.prof.Streak.Multiplier())
		res.Awarded = b.Total
		res.Breakdown = &b

		m.prof.Score += b.Total
		m.prof.Streak.OnWin(now)
		if m.prof.Score > m.prof.PersonalBest {
			m.prof.PersonalBest = m.prof.Score
		}
		m.persist.RequestUpdate(ctx, model.ProfileUpdate{
			UserID:        m.userID,
			Score:         model.Int(m.prof.Score),
			PersonalBest:  model.Int(m.prof.PersonalBest),
			CurrentStreak: model.Int(m.prof.Streak.Current),
			HighestStreak: model.Int(m.prof.Streak.Highest),
			LastWin:       model.Time(now),
			RequestedAt:   now,
		})

	case s.Attempts >= MaxAttempts:
		res.Feedback = Exhausted
		s.Status = Lost
		m.stopTimerLocked()

		m.prof.Streak.OnLoss()
		m.persist.RequestUpdate(ctx, model.ProfileUpdate{
			UserID:        m.userID,
			Score:         model.Int(m.prof.Score),
			CurrentStreak: model.Int(0),
			RequestedAt:   now,
		})

	case value < s.Target:
		res.Feedback = TooLow
	default:
		res.Feedback = TooHigh
	}

	res.Message = res.Feedback.Message(s.Target)
	s.History = append(s.History, Guess{Value: value, Feedback: res.Feedback, Message: res.Message})

	res.Status = s.Status
	res.Attempts = s.Attempts
	res.Remaining = MaxAttempts - s.Attempts
	if s.Status != Playing {
		res.Target = s.Target
	}

	m.log.Debug(ctx, "guess accepted",
		logger.UserID(m.userID),
		logger.Int("attempts", s.Attempts),
		logger.String("feedback", string(res.Feedback)),
	)
	return res, nil
}

// NewGame discards the current session and draws a new target. Score,
// streak and points carry over.
func (m *Machine) NewGame() View {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopTimerLocked()
	m.session = newSession(m.src.Next())
	return m.viewLocked()
}

// Tick advances the elapsed time by one second while a started game is
// in progress.
func (m *Machine) Tick() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tickLocked()
}

func (m *Machine) tickLocked() {
	if m.session.Status == Playing && m.session.Started() {
		m.session.ElapsedSeconds++
	}
}

// BuyHint spends the hint cost and returns a clue about the target. It is
// rejected without deduction when the balance is short or the game is over.
func (m *Machine) BuyHint(ctx context.Context) (HintResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return HintResult{}, ErrClosed
	}
	if m.session.Status != Playing {
		return HintResult{}, ErrNotPlaying
	}
	balance, err := m.ledger.Spend(m.hintCost)
	if err != nil {
		return HintResult{Balance: balance}, err
	}
	m.prof.PurchasedPoints = balance

	m.persist.RequestUpdate(ctx, model.ProfileUpdate{
		UserID:      m.userID,
		PointsDelta: -m.hintCost,
		RequestedAt: m.clock.Now(),
	})
	return HintResult{Hint: m.hints.Hint(m.session.Target), Balance: balance}, nil
}

// CreditPoints adds points bought remotely and returns the new balance.
func (m *Machine) CreditPoints(n int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	balance, err := m.ledger.Credit(n)
	if err != nil {
		return balance, err
	}
	m.prof.PurchasedPoints = balance
	return balance, nil
}

// LoadProfile replaces the cached profile with one read from the store.
func (m *Machine) LoadProfile(p profile.Profile) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p.UserID = m.userID
	m.prof = p
	m.ledger.Set(p.PurchasedPoints)
}

// Reset zeroes the cached profile and starts a fresh game. Used on sign-out.
func (m *Machine) Reset() View {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopTimerLocked()
	m.prof = profile.Zero(m.userID)
	m.ledger.Set(0)
	m.session = newSession(m.src.Next())
	return m.viewLocked()
}

// Close stops the timer. The machine rejects further play.
func (m *Machine) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopTimerLocked()
	m.closed = true
}

// View returns a snapshot of the session and profile.
func (m *Machine) View() View {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.viewLocked()
}

// Profile returns the cached profile.
func (m *Machine) Profile() profile.Profile {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.prof
}

func (m *Machine) viewLocked() View {
	s := m.session
	v := View{
		UserID:         m.userID,
		Status:         s.Status,
		Attempts:       s.Attempts,
		Remaining:      MaxAttempts - s.Attempts,
		History:        slices.Clone(s.History),
		ElapsedSeconds: s.ElapsedSeconds,
		Started:        s.Started(),
		Profile:        m.prof,
		Multiplier:     m.prof.Streak.Multiplier(),
		HintCost:       m.hintCost,
	}
	if v.History == nil {
		v.History = []Guess{}
	}
	v.Profile.PurchasedPoints = m.ledger.Balance()
	v.CanBuyHint = s.Status == Playing && v.Profile.PurchasedPoints >= m.hintCost
	if s.Status != Playing {
		v.Target = s.Target
	}
	return v
}

// startTimerLocked starts the one-second ticker. Must be called with m.mu held.
func (m *Machine) startTimerLocked() {
	if m.ticker != nil {
		return
	}
	t := m.clock.NewTicker(tickInterval)
	stop := make(chan struct{})
	m.ticker = t
	m.stopTick = stop
	gen := m.gen

	go func() {
		for {
			select {
			case <-stop:
				return
			case <-t.C():
				m.mu.Lock()
				if m.gen == gen {
					m.tickLocked()
				}
				m.mu.Unlock()
			}
		}
	}()
}

// stopTimerLocked stops the ticker once. Must be called with m.mu held.
func (m *Machine) stopTimerLocked() {
	if m.ticker == nil {
		return
	}
	m.ticker.Stop()
	close(m.stopTick)
	m.ticker = nil
	m.stopTick = nil
	m.gen++
}
