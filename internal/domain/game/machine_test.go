package game_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/guessr/internal/domain/game"
	"github.com/okian/guessr/internal/domain/model"
	"github.com/okian/guessr/internal/domain/points"
	"github.com/okian/guessr/internal/domain/profile"
	"github.com/okian/guessr/internal/domain/random"
	"github.com/okian/guessr/internal/domain/streak"
	. "github.com/smartystreets/goconvey/convey"
)

type manualTicker struct {
	c     chan time.Time
	mu    sync.Mutex
	stops int
}

func (t *manualTicker) C() <-chan time.Time { return t.c }

func (t *manualTicker) Stop() {
	t.mu.Lock()
	t.stops++
	t.mu.Unlock()
}

func (t *manualTicker) Stops() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stops
}

type manualClock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*manualTicker
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func (c *manualClock) NewTicker(time.Duration) game.Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTicker{c: make(chan time.Time)}
	c.tickers = append(c.tickers, t)
	return t
}

func (c *manualClock) Tickers() []*manualTicker {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*manualTicker(nil), c.tickers...)
}

type recordingPersister struct {
	mu      sync.Mutex
	updates []model.ProfileUpdate
}

func (p *recordingPersister) RequestUpdate(_ context.Context, u model.ProfileUpdate) {
	p.mu.Lock()
	p.updates = append(p.updates, u)
	p.mu.Unlock()
}

func (p *recordingPersister) Updates() []model.ProfileUpdate {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]model.ProfileUpdate(nil), p.updates...)
}

func eventually(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func newFixture(target int, opts ...game.Option) (*game.Machine, *manualClock, *recordingPersister) {
	clock := &manualClock{now: time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)}
	persister := &recordingPersister{}
	src := random.Fixed(target)
	src.Picks = []int{0}
	all := append([]game.Option{
		game.WithRandomSource(src),
		game.WithClock(clock),
		game.WithPersister(persister),
	}, opts...)
	return game.NewMachine("user-1", all...), clock, persister
}

func TestSubmitGuessValidation(t *testing.T) {
	Convey("Given a fresh game", t, func() {
		m, clock, persister := newFixture(42)
		ctx := context.Background()

		for _, raw := range []string{"0", "101", "abc", "", "4.5", "-3"} {
			Convey("When guessing "+raw, func() {
				_, err := m.SubmitGuess(ctx, raw)

				Convey("Then it is rejected without changing the session", func() {
					var verr *game.ValidationError
					So(errors.As(err, &verr), ShouldBeTrue)
					So(errors.Is(err, game.ErrInvalidGuess), ShouldBeTrue)
					v := m.View()
					So(v.Attempts, ShouldEqual, 0)
					So(v.History, ShouldBeEmpty)
					So(v.Started, ShouldBeFalse)
					So(clock.Tickers(), ShouldBeEmpty)
					So(persister.Updates(), ShouldBeEmpty)
				})
			})
		}

		Convey("When guessing with surrounding whitespace", func() {
			res, err := m.SubmitGuess(ctx, " 1 ")
			So(err, ShouldBeNil)
			So(res.Feedback, ShouldEqual, game.TooLow)
		})
	})
}

func TestWin(t *testing.T) {
	Convey("Given target 42 and no streak", t, func() {
		m, clock, persister := newFixture(42)
		ctx := context.Background()

		Convey("When the player guesses 10, 80, 42 within 12 seconds", func() {
			r1, _ := m.SubmitGuess(ctx, "10")
			clock.Advance(5 * time.Second)
			r2, _ := m.SubmitGuess(ctx, "80")
			clock.Advance(7 * time.Second)
			r3, err := m.SubmitGuess(ctx, "42")

			Convey("Then feedback follows the target", func() {
				So(err, ShouldBeNil)
				So(r1.Feedback, ShouldEqual, game.TooLow)
				So(r1.Message, ShouldEqual, "Too low")
				So(r2.Feedback, ShouldEqual, game.TooHigh)
				So(r2.Message, ShouldEqual, "Too high")
				So(r3.Feedback, ShouldEqual, game.Correct)
				So(r3.Message, ShouldEqual, "Correct!")
				So(r3.Status, ShouldEqual, game.Won)
				So(r3.Target, ShouldEqual, 42)
			})

			Convey("Then 1650 points are awarded and the streak grows", func() {
				So(r3.Awarded, ShouldEqual, 1650)
				So(r3.Breakdown.Total, ShouldEqual, 1650)
				p := m.Profile()
				So(p.Score, ShouldEqual, 1650)
				So(p.PersonalBest, ShouldEqual, 1650)
				So(p.Streak.Current, ShouldEqual, 1)
				So(p.Streak.Highest, ShouldEqual, 1)
			})

			Convey("Then a profile update is requested", func() {
				u := persister.Updates()
				So(len(u), ShouldEqual, 1)
				So(*u[0].Score, ShouldEqual, 1650)
				So(*u[0].CurrentStreak, ShouldEqual, 1)
				So(*u[0].HighestStreak, ShouldEqual, 1)
				So(u[0].LastWin, ShouldNotBeNil)
				So(u[0].PointsDelta, ShouldEqual, 0)
			})

			Convey("Then the history keeps guesses oldest first", func() {
				h := m.View().History
				So(len(h), ShouldEqual, 3)
				So(h[0].Value, ShouldEqual, 10)
				So(h[2].Feedback, ShouldEqual, game.Correct)
			})

			Convey("Then the timer stopped exactly once", func() {
				ts := clock.Tickers()
				So(len(ts), ShouldEqual, 1)
				So(ts[0].Stops(), ShouldEqual, 1)
				m.Close()
				So(ts[0].Stops(), ShouldEqual, 1)
			})

			Convey("Then further guesses are refused", func() {
				_, err := m.SubmitGuess(ctx, "42")
				So(errors.Is(err, game.ErrNotPlaying), ShouldBeTrue)
				So(m.View().Attempts, ShouldEqual, 3)
			})
		})
	})

	Convey("Given a player on a streak of 3", t, func() {
		p := profile.Zero("user-1")
		p.Score = 1000
		p.PersonalBest = 1000
		p.Streak = streak.State{Current: 3, Highest: 3}
		m, clock, _ := newFixture(7, game.WithProfile(p))
		ctx := context.Background()

		Convey("When they win on the fifth guess after 40 seconds", func() {
			for _, g := range []string{"1", "2", "3", "4"} {
				_, _ = m.SubmitGuess(ctx, g)
			}
			clock.Advance(40 * time.Second)
			res, err := m.SubmitGuess(ctx, "7")

			Convey("Then the pre-win multiplier of 1.25 applies", func() {
				So(err, ShouldBeNil)
				So(res.Breakdown.Multiplier, ShouldEqual, 1.25)
				So(res.Awarded, ShouldEqual, 938)
				So(m.Profile().Score, ShouldEqual, 1938)
				So(m.Profile().Streak.Current, ShouldEqual, 4)
				So(m.View().Multiplier, ShouldEqual, 1.5)
			})
		})
	})
}

func TestLoss(t *testing.T) {
	Convey("Given target 42 and a streak of 2", t, func() {
		p := profile.Zero("user-1")
		p.Score = 500
		p.Streak = streak.State{Current: 2, Highest: 6}
		m, clock, persister := newFixture(42, game.WithProfile(p))
		ctx := context.Background()

		Convey("When ten wrong guesses are made", func() {
			var last game.Result
			for i := 1; i <= 10; i++ {
				var err error
				last, err = m.SubmitGuess(ctx, "1")
				So(err, ShouldBeNil)
				if i < 10 {
					So(last.Status, ShouldEqual, game.Playing)
				}
			}

			Convey("Then the game is lost and the target revealed", func() {
				So(last.Feedback, ShouldEqual, game.Exhausted)
				So(last.Message, ShouldEqual, "Too many attempts. The number was 42.")
				So(last.Status, ShouldEqual, game.Lost)
				So(last.Remaining, ShouldEqual, 0)
				So(m.View().Target, ShouldEqual, 42)
			})

			Convey("Then the streak resets but score and highest are kept", func() {
				pr := m.Profile()
				So(pr.Streak.Current, ShouldEqual, 0)
				So(pr.Streak.Highest, ShouldEqual, 6)
				So(pr.Score, ShouldEqual, 500)
			})

			Convey("Then an update with unchanged score and zero streak is requested", func() {
				u := persister.Updates()
				So(len(u), ShouldEqual, 1)
				So(*u[0].Score, ShouldEqual, 500)
				So(*u[0].CurrentStreak, ShouldEqual, 0)
				So(u[0].HighestStreak, ShouldBeNil)
			})

			Convey("Then the ticker was stopped", func() {
				So(clock.Tickers()[0].Stops(), ShouldEqual, 1)
			})

			Convey("Then an eleventh guess is refused", func() {
				_, err := m.SubmitGuess(ctx, "42")
				So(errors.Is(err, game.ErrNotPlaying), ShouldBeTrue)
			})
		})
	})
}

func TestBuyHint(t *testing.T) {
	Convey("Given a player with 50 points", t, func() {
		p := profile.Zero("user-1")
		p.PurchasedPoints = 50
		m, _, persister := newFixture(50, game.WithProfile(p))

		Convey("When a hint is requested", func() {
			res, err := m.BuyHint(context.Background())

			Convey("Then it is rejected and nothing is deducted", func() {
				So(errors.Is(err, points.ErrInsufficientPoints), ShouldBeTrue)
				So(res.Hint, ShouldBeEmpty)
				So(m.View().Profile.PurchasedPoints, ShouldEqual, 50)
				So(m.View().CanBuyHint, ShouldBeFalse)
				So(persister.Updates(), ShouldBeEmpty)
			})
		})
	})

	Convey("Given a player with 150 points", t, func() {
		p := profile.Zero("user-1")
		p.PurchasedPoints = 150
		m, _, persister := newFixture(50, game.WithProfile(p))

		Convey("When a hint is requested", func() {
			res, err := m.BuyHint(context.Background())

			Convey("Then a true hint is shown and 50 points remain", func() {
				So(err, ShouldBeNil)
				So(res.Hint, ShouldEqual, "The number is even")
				So(res.Balance, ShouldEqual, 50)
				So(m.View().Profile.PurchasedPoints, ShouldEqual, 50)
			})

			Convey("Then the spend is persisted as a relative change", func() {
				u := persister.Updates()
				So(len(u), ShouldEqual, 1)
				So(u[0].PointsDelta, ShouldEqual, -100)
			})
		})

		Convey("When the game is already over", func() {
			_, _ = m.SubmitGuess(context.Background(), "50")
			_, err := m.BuyHint(context.Background())

			Convey("Then hints are refused", func() {
				So(errors.Is(err, game.ErrNotPlaying), ShouldBeTrue)
				So(m.View().Profile.PurchasedPoints, ShouldEqual, 150)
			})
		})
	})

	Convey("Given a custom hint cost", t, func() {
		p := profile.Zero("user-1")
		p.PurchasedPoints = 100
		m, _, _ := newFixture(50, game.WithProfile(p), game.WithHintCost(40))
		res, err := m.BuyHint(context.Background())
		So(err, ShouldBeNil)
		So(res.Balance, ShouldEqual, 60)
	})
}

func TestTimer(t *testing.T) {
	Convey("Given a game in progress", t, func() {
		m, clock, _ := newFixture(42)
		ctx := context.Background()

		Convey("When no guess was made", func() {
			m.Tick()

			Convey("Then elapsed time does not move", func() {
				So(m.View().ElapsedSeconds, ShouldEqual, 0)
				So(clock.Tickers(), ShouldBeEmpty)
			})
		})

		Convey("When the first guess starts the timer", func() {
			_, _ = m.SubmitGuess(ctx, "1")
			ts := clock.Tickers()
			So(len(ts), ShouldEqual, 1)

			ts[0].c <- time.Now()
			ts[0].c <- time.Now()

			Convey("Then ticks advance the elapsed time", func() {
				So(eventually(func() bool { return m.View().ElapsedSeconds == 2 }), ShouldBeTrue)
			})

			Convey("And more guesses do not start another ticker", func() {
				_, _ = m.SubmitGuess(ctx, "2")
				So(len(clock.Tickers()), ShouldEqual, 1)
			})

			Convey("And a new game is started", func() {
				eventually(func() bool { return m.View().ElapsedSeconds == 2 })
				v := m.NewGame()

				Convey("Then the old ticker is stopped once and the clock resets", func() {
					So(ts[0].Stops(), ShouldEqual, 1)
					So(v.ElapsedSeconds, ShouldEqual, 0)
					So(v.Started, ShouldBeFalse)
					m.Tick()
					So(m.View().ElapsedSeconds, ShouldEqual, 0)
				})
			})

			Convey("And the game ends", func() {
				_, _ = m.SubmitGuess(ctx, "42")
				before := m.View().ElapsedSeconds
				m.Tick()

				Convey("Then the last value is retained", func() {
					So(m.View().ElapsedSeconds, ShouldEqual, before)
				})
			})
		})
	})
}

func TestNewGameAndReset(t *testing.T) {
	Convey("Given a player who just won", t, func() {
		clock := &manualClock{now: time.Now()}
		src := random.Fixed(10, 20, 30)
		p := profile.Zero("user-1")
		p.PurchasedPoints = 300
		m := game.NewMachine("user-1", game.WithRandomSource(src), game.WithClock(clock), game.WithProfile(p))
		_, _ = m.SubmitGuess(context.Background(), "10")
		score := m.Profile().Score

		Convey("When a new game starts", func() {
			v := m.NewGame()

			Convey("Then the session resets but score, streak and points persist", func() {
				So(v.Status, ShouldEqual, game.Playing)
				So(v.Attempts, ShouldEqual, 0)
				So(v.History, ShouldBeEmpty)
				So(v.Target, ShouldEqual, 0)
				So(v.Profile.Score, ShouldEqual, score)
				So(v.Profile.Streak.Current, ShouldEqual, 1)
				So(v.Profile.PurchasedPoints, ShouldEqual, 300)
			})

			Convey("Then the new target is drawn", func() {
				res, _ := m.SubmitGuess(context.Background(), "20")
				So(res.Feedback, ShouldEqual, game.Correct)
			})
		})

		Convey("When the player signs out", func() {
			v := m.Reset()

			Convey("Then everything is zeroed", func() {
				So(v.Profile.Score, ShouldEqual, 0)
				So(v.Profile.Streak.Current, ShouldEqual, 0)
				So(v.Profile.PurchasedPoints, ShouldEqual, 0)
				So(v.Status, ShouldEqual, game.Playing)
			})
		})

		Convey("When points are credited after a purchase", func() {
			bal, err := m.CreditPoints(1200)
			So(err, ShouldBeNil)
			So(bal, ShouldEqual, 1500)
			So(m.Profile().PurchasedPoints, ShouldEqual, 1500)
		})

		Convey("When a stored profile is loaded", func() {
			loaded := profile.Zero("someone-else")
			loaded.Score = 9000
			loaded.PurchasedPoints = 20
			m.LoadProfile(loaded)

			Convey("Then it replaces the cache but keeps the owner", func() {
				v := m.View()
				So(v.Profile.UserID, ShouldEqual, "user-1")
				So(v.Profile.Score, ShouldEqual, 9000)
				So(v.Profile.PurchasedPoints, ShouldEqual, 20)
			})
		})

		Convey("When the machine is closed", func() {
			m.Close()
			_, err := m.SubmitGuess(context.Background(), "5")
			So(errors.Is(err, game.ErrClosed), ShouldBeTrue)
		})
	})
}

func TestParseGuess(t *testing.T) {
	Convey("Given boundary inputs", t, func() {
		v, err := game.ParseGuess("1")
		So(err, ShouldBeNil)
		So(v, ShouldEqual, 1)
		v, err = game.ParseGuess("100")
		So(err, ShouldBeNil)
		So(v, ShouldEqual, 100)
		_, err = game.ParseGuess("101")
		So(err, ShouldNotBeNil)
		So(err.Error(), ShouldContainSubstring, "between 1 and 100")
	})
}
