package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/guessr/internal/adapters/auth"
	"github.com/okian/guessr/internal/adapters/mq/queue"
	"github.com/okian/guessr/internal/adapters/repository"
	"github.com/okian/guessr/internal/domain/model"
	"github.com/okian/guessr/internal/domain/profile"
	"github.com/okian/guessr/internal/domain/types"
	"github.com/okian/guessr/pkg/logger"
	"github.com/okian/guessr/pkg/metrics"
)

// Profile load outcomes.
const (
	loadFound   = "found"
	loadCreated = "created"
	loadTimeout = "timeout"
	loadError   = "error"
)

// LoadResult is what a profile load produced.
type LoadResult struct {
	Profile         profile.Profile
	GlobalHighScore int
	Created         bool // no row existed and one was inserted
	Stale           bool // the streak was reset because the last win was too old
}

// Load reads the profile of user, creating it on first sign-in. It never
// waits longer than the configured timeout and never fails hard: on error
// the result carries zero defaults and the error says why.
func (s *Service) Load(ctx context.Context, user auth.User) (LoadResult, error) {
	start := time.Now()
	// a caller that goes away must not leave the player with zero defaults
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.loadTimeout)
	defer cancel()

	username := profile.Username(user.Metadata, user.Email)
	res := LoadResult{Profile: profile.Zero(user.ID)}
	res.Profile.Username = username

	rec, created, err := s.fetchOrCreate(ctx, user.ID, username)
	if err != nil {
		outcome, wrapped := loadError, fmt.Errorf("%w: %w", ErrProfileLoad, err)
		if errors.Is(err, context.DeadlineExceeded) {
			outcome, wrapped = loadTimeout, fmt.Errorf("%w after %s", ErrLoadTimeout, s.loadTimeout)
		}
		metrics.RecordProfileLoad(outcome, msSince(start))
		metrics.RecordErrorByComponent("profile_sync", outcome)
		s.logger.Error(ctx, "profile load failed", logger.UserID(user.ID), logger.Error(err))
		return res, wrapped
	}

	now := time.Now()
	p, stale := profile.FromRecord(rec, now)
	res.Profile, res.Created, res.Stale = p, created, stale
	if stale {
		s.RequestUpdate(ctx, model.ProfileUpdate{UserID: user.ID, CurrentStreak: model.Int(0), RequestedAt: now})
	}

	if high, err := s.GlobalHighScore(ctx); err == nil {
		res.GlobalHighScore = high
	} else {
		s.logger.Warn(ctx, "global high score unavailable", logger.Error(err))
	}

	outcome := loadFound
	if created {
		outcome = loadCreated
	}
	metrics.RecordProfileLoad(outcome, msSince(start))
	return res, nil
}

func (s *Service) fetchOrCreate(ctx context.Context, userID, username string) (model.ProfileRecord, bool, error) {
	rec, err := s.store.GetProfile(ctx, userID)
	if err == nil {
		return rec, false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return model.ProfileRecord{}, false, err
	}

	created, err := s.store.InsertProfileIfAbsent(ctx, model.ProfileRecord{UserID: userID, Username: username})
	if err != nil {
		return model.ProfileRecord{}, false, err
	}
	if created {
		if n, err := s.store.Count(ctx); err == nil {
			metrics.UpdateTotalPlayers(n)
		}
	}
	// read back so a row inserted concurrently by another session wins
	rec, err = s.store.GetProfile(ctx, userID)
	if err != nil {
		return model.ProfileRecord{}, false, err
	}
	return rec, created, nil
}

// RequestUpdate implements game.Persister. The write is queued on the
// user's shard and applied later; a full or closed queue drops it.
func (s *Service) RequestUpdate(ctx context.Context, u model.ProfileUpdate) {
	if u.Empty() {
		return
	}
	s.mu.RLock()
	q := s.queue
	s.mu.RUnlock()
	if q == nil {
		return
	}
	if err := q.Enqueue(ctx, queue.Job{Update: u, EnqueuedAt: time.Now()}); err != nil {
		metrics.RecordProfileSyncError()
		s.logger.Warn(ctx, "profile update dropped", logger.UserID(u.UserID), logger.Error(err))
	}
}

// GlobalHighScore returns the best score of any player, 0 when none exist.
func (s *Service) GlobalHighScore(ctx context.Context) (int, error) {
	top, err := s.store.TopN(ctx, 1, types.OrderDesc)
	if err != nil {
		return 0, err
	}
	if len(top) == 0 {
		return 0, nil
	}
	return top[0].Score, nil
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}
