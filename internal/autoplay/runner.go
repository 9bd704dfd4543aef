// Package autoplay drives the game API with bots that sign up, play by
// binary search and then check the leaderboard against their profiles.
package autoplay

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/okian/guessr/pkg/logger"
)

type bot struct {
	id     string
	name   string
	client *client
}

// Run executes a complete autoplay session.
func Run(ctx context.Context, cfg Config, log logger.Logger) (*Stats, error) {
	cfg = withDefaults(cfg)
	if log == nil {
		log = logger.Nop()
	}
	stats := &Stats{StartTime: time.Now()}

	log.Info(ctx, "starting autoplay",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("bots", cfg.Bots),
		logger.Int("games", cfg.Games),
		logger.Int("workers", cfg.Workers))

	if err := newClient(cfg.BaseURL, cfg.Timeout).health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	bots, err := register(ctx, cfg, stats)
	if err != nil {
		return stats, fmt.Errorf("bot registration failed: %w", err)
	}

	play(ctx, cfg, bots, stats, log)

	expected, err := finalScores(ctx, bots)
	if err != nil {
		return stats, fmt.Errorf("profile read failed: %w", err)
	}
	if err := awaitLeaderboard(ctx, cfg, expected); err != nil {
		return stats, fmt.Errorf("leaderboard verification failed: %w", err)
	}

	stats.Duration = time.Since(stats.StartTime)
	displayFinalStats(ctx, log, stats)
	return stats, nil
}

func withDefaults(cfg Config) Config {
	if cfg.Bots <= 0 {
		cfg.Bots = DefaultBots
	}
	if cfg.Games <= 0 {
		cfg.Games = DefaultGames
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU() * 2
	}
	if cfg.TopN <= 0 {
		cfg.TopN = DefaultTopN
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Settle <= 0 {
		cfg.Settle = DefaultSettle
	}
	return cfg
}

// register signs up every bot with a unique email.
func register(ctx context.Context, cfg Config, stats *Stats) ([]*bot, error) {
	run := uuid.NewString()[:8]
	bots := make([]*bot, cfg.Bots)
	for i := range bots {
		name := fmt.Sprintf("bot-%s-%03d", run, i)
		c := newClient(cfg.BaseURL, cfg.Timeout)
		s, err := c.signUp(ctx, name+"@autoplay.local", name)
		if err != nil {
			return nil, err
		}
		bots[i] = &bot{id: s.User.ID, name: name, client: c}
		stats.BotsRegistered.Add(1)
	}
	return bots, nil
}

// play runs every bot's games with at most cfg.Workers bots at a time.
func play(ctx context.Context, cfg Config, bots []*bot, stats *Stats, log logger.Logger) {
	work := make(chan *bot)
	var wg sync.WaitGroup
	for range min(cfg.Workers, len(bots)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for b := range work {
				for g := range cfg.Games {
					won, err := playGame(ctx, b.client, stats)
					if err != nil {
						stats.Failures.Add(1)
						log.Warn(ctx, "game failed", logger.String("bot", b.name), logger.Error(err))
						continue
					}
					stats.GamesPlayed.Add(1)
					if won {
						stats.GamesWon.Add(1)
					}
					if cfg.Verbose {
						log.Info(ctx, "game finished", logger.String("bot", b.name), logger.Int("game", g), logger.Bool("won", won))
					}
				}
			}
		}()
	}
	for _, b := range bots {
		select {
		case work <- b:
		case <-ctx.Done():
		}
	}
	close(work)
	wg.Wait()
}

func finalScores(ctx context.Context, bots []*bot) (map[string]int, error) {
	out := make(map[string]int, len(bots))
	for _, b := range bots {
		p, err := b.client.profile(ctx)
		if err != nil {
			return nil, err
		}
		out[b.id] = p.Score
	}
	return out, nil
}

// awaitLeaderboard polls until the leaderboard agrees with expected or the
// settle time runs out; profile writes reach the store asynchronously.
func awaitLeaderboard(ctx context.Context, cfg Config, expected map[string]int) error {
	c := newClient(cfg.BaseURL, cfg.Timeout)
	deadline := time.Now().Add(cfg.Settle)
	for {
		entries, err := c.leaderboard(ctx, cfg.TopN)
		if err == nil {
			err = verifyLeaderboard(entries, expected)
		}
		if err == nil || time.Now().After(deadline) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var perGame float64
	if n := stats.GamesPlayed.Load(); n > 0 {
		perGame = float64(stats.Guesses.Load()) / float64(n)
	}
	log.Info(ctx, "final statistics",
		logger.Int64("botsRegistered", stats.BotsRegistered.Load()),
		logger.Int64("gamesPlayed", stats.GamesPlayed.Load()),
		logger.Int64("gamesWon", stats.GamesWon.Load()),
		logger.Int64("failures", stats.Failures.Load()),
		logger.Float64("guessesPerGame", perGame),
		logger.Duration("duration", stats.Duration))
}
