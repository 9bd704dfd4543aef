// Package model contains the rows and partial updates exchanged with the
// profile and account stores.
package model

import "time"

// ProfileRecord is a stored player profile.
type ProfileRecord struct {
	UserID          string
	Username        string
	Score           int
	PersonalBest    int
	PurchasedPoints int
	CurrentStreak   int
	HighestStreak   int
	LastWin         *time.Time // nil when the player never won
	UpdatedAt       time.Time
}

// ProfileUpdate is a partial profile write. Nil fields are left untouched.
// Points are only ever moved relative to the stored balance, so a queued
// spend commutes with a purchase applied by AddPoints.
type ProfileUpdate struct {
	UserID        string
	Score         *int
	PersonalBest  *int
	PointsDelta   int // added to purchased points; the result never drops below 0
	CurrentStreak *int
	HighestStreak *int
	LastWin       *time.Time
	RequestedAt   time.Time
}

// Empty reports whether the update changes nothing.
func (u ProfileUpdate) Empty() bool {
	return u.Score == nil && u.PersonalBest == nil && u.PointsDelta == 0 &&
		u.CurrentStreak == nil && u.HighestStreak == nil && u.LastWin == nil
}

// Apply copies the set fields of u onto r.
func (u ProfileUpdate) Apply(r *ProfileRecord) {
	if u.Score != nil {
		r.Score = *u.Score
	}
	if u.PersonalBest != nil {
		r.PersonalBest = *u.PersonalBest
	}
	if u.PointsDelta != 0 {
		r.PurchasedPoints = max(r.PurchasedPoints+u.PointsDelta, 0)
	}
	if u.CurrentStreak != nil {
		r.CurrentStreak = *u.CurrentStreak
	}
	if u.HighestStreak != nil {
		r.HighestStreak = *u.HighestStreak
	}
	if u.LastWin != nil {
		t := *u.LastWin
		r.LastWin = &t
	}
}

// AddPointsResult mirrors the remote add_points call.
type AddPointsResult struct {
	Success   bool   `json:"success"`
	NewPoints int    `json:"new_points"`
	Error     string `json:"error,omitempty"`
}

// Int returns a pointer to v.
func Int(v int) *int { return &v }

// Time returns a pointer to t.
func Time(t time.Time) *time.Time { return &t }
