package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/guessr/internal/domain/game"
	"github.com/okian/guessr/internal/domain/points"
	"github.com/okian/guessr/internal/domain/profile"
	"github.com/okian/guessr/internal/domain/types"
	"github.com/okian/guessr/pkg/metrics"
)

// Hint outcomes recorded in metrics.
const (
	hintOK           = "ok"
	hintInsufficient = "insufficient_points"
	hintNotPlaying   = "not_playing"
)

// ProfileView is the player's profile with values derived from it.
type ProfileView struct {
	profile.Profile
	Multiplier      float64 `json:"multiplier"`
	GlobalHighScore int     `json:"global_high_score"`
}

// Guess submits raw as the next guess of userID.
func (s *Service) Guess(ctx context.Context, userID, raw string) (game.Result, error) {
	m, err := s.Player(userID)
	if err != nil {
		return game.Result{}, err
	}
	res, err := m.SubmitGuess(ctx, raw)
	if err != nil {
		if errors.Is(err, game.ErrInvalidGuess) {
			metrics.RecordGuess("invalid")
		}
		return res, err
	}

	metrics.RecordGuess(string(res.Feedback))
	if res.Status != game.Playing {
		metrics.RecordGameFinished(string(res.Status))
	}
	if res.Awarded > 0 {
		metrics.RecordPointsAwarded(res.Awarded)
	}
	return res, nil
}

// Hint buys a hint for the current game of userID.
func (s *Service) Hint(ctx context.Context, userID string) (game.HintResult, error) {
	m, err := s.Player(userID)
	if err != nil {
		return game.HintResult{}, err
	}
	res, err := m.BuyHint(ctx)
	switch {
	case err == nil:
		metrics.RecordHint(hintOK)
	case errors.Is(err, points.ErrInsufficientPoints):
		metrics.RecordHint(hintInsufficient)
	case errors.Is(err, game.ErrNotPlaying):
		metrics.RecordHint(hintNotPlaying)
	}
	return res, err
}

// NewGame abandons the current game of userID and starts another.
func (s *Service) NewGame(_ context.Context, userID string) (game.View, error) {
	m, err := s.Player(userID)
	if err != nil {
		return game.View{}, err
	}
	return m.NewGame(), nil
}

// View returns the current game of userID.
func (s *Service) View(_ context.Context, userID string) (game.View, error) {
	m, err := s.Player(userID)
	if err != nil {
		return game.View{}, err
	}
	return m.View(), nil
}

// Profile returns the cached profile of userID and the global high score.
// A failing high score read is reported as 0.
func (s *Service) Profile(ctx context.Context, userID string) (ProfileView, error) {
	m, err := s.Player(userID)
	if err != nil {
		return ProfileView{}, err
	}
	v := m.View()
	high, err := s.GlobalHighScore(ctx)
	if err != nil {
		metrics.RecordErrorByComponent("leaderboard", "high_score")
	}
	return ProfileView{
		Profile:         v.Profile,
		Multiplier:      v.Multiplier,
		GlobalHighScore: max(high, v.Profile.Score),
	}, nil
}

// Leaderboard returns up to limit players ordered by score. limit is
// capped at the configured maximum.
func (s *Service) Leaderboard(ctx context.Context, limit int, order types.Order) ([]types.Entry, error) {
	if limit > s.maxLimit {
		limit = s.maxLimit
	}
	entries, err := s.store.TopN(ctx, limit, order)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	return entries, nil
}

// MaxLeaderboardLimit returns the cap applied by Leaderboard.
func (s *Service) MaxLeaderboardLimit() int { return s.maxLimit }
