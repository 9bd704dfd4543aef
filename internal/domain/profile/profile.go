// Package profile is the locally cached view of a player's stored profile.
package profile

import (
	"strings"
	"time"

	"github.com/okian/guessr/internal/domain/model"
	"github.com/okian/guessr/internal/domain/streak"
)

// DefaultUsername is used when nothing better can be derived.
const DefaultUsername = "player"

// Profile is the cached player state. Score and points are never negative.
type Profile struct {
	UserID          string       `json:"user_id"`
	Username        string       `json:"username"`
	Score           int          `json:"score"`
	PersonalBest    int          `json:"personal_best"`
	PurchasedPoints int          `json:"purchased_points"`
	Streak          streak.State `json:"streak"`
}

// Zero returns the defaults used before the store answers, or when it fails.
func Zero(userID string) Profile {
	return Profile{UserID: userID, Username: DefaultUsername}
}

// FromRecord converts a stored row and applies streak staleness once.
// The second result reports whether the streak was reset as stale.
func FromRecord(rec model.ProfileRecord, now time.Time) (Profile, bool) {
	p := Profile{
		UserID:          rec.UserID,
		Username:        rec.Username,
		Score:           max(rec.Score, 0),
		PersonalBest:    max(rec.PersonalBest, 0),
		PurchasedPoints: max(rec.PurchasedPoints, 0),
		Streak: streak.State{
			Current: rec.CurrentStreak,
			Highest: rec.HighestStreak,
		},
	}
	if rec.LastWin != nil {
		p.Streak.LastWin = *rec.LastWin
	}
	if p.Username == "" {
		p.Username = DefaultUsername
	}
	p.Streak.Normalize()
	stale := p.Streak.ApplyStaleness(now)
	return p, stale
}

// Record converts p back into a store row.
func (p Profile) Record() model.ProfileRecord {
	rec := model.ProfileRecord{
		UserID:          p.UserID,
		Username:        p.Username,
		Score:           p.Score,
		PersonalBest:    p.PersonalBest,
		PurchasedPoints: p.PurchasedPoints,
		CurrentStreak:   p.Streak.Current,
		HighestStreak:   p.Streak.Highest,
	}
	if !p.Streak.LastWin.IsZero() {
		rec.LastWin = model.Time(p.Streak.LastWin)
	}
	return rec
}

// Username derives a display name from auth metadata, trying name,
// full_name and username before the email local part.
func Username(metadata map[string]string, email string) string {
	for _, key := range []string{"name", "full_name", "username"} {
		if v := strings.TrimSpace(metadata[key]); v != "" {
			return v
		}
	}
	if local, _, ok := strings.Cut(email, "@"); ok && strings.TrimSpace(local) != "" {
		return strings.TrimSpace(local)
	}
	return DefaultUsername
}
