package autoplay

import (
	"sync/atomic"
	"time"
)

// Config holds configuration for an autoplay run.
type Config struct {
	BaseURL string        // Base URL of the service
	Bots    int           // Number of bot accounts to register
	Games   int           // Games each bot plays
	Workers int           // Bots playing at the same time
	TopN    int           // Leaderboard entries to fetch for verification
	Timeout time.Duration // HTTP request timeout
	Settle  time.Duration // How long to wait for profile writes to reach the leaderboard
	Verbose bool          // Log every game
}

// Entry represents a leaderboard entry.
type Entry struct {
	Rank     int    `json:"rank"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Score    int    `json:"score"`
}

// guessResult is the subset of the guess response the bots read.
type guessResult struct {
	Feedback string `json:"feedback"`
	Status   string `json:"status"`
	Attempts int    `json:"attempts"`
	Awarded  int    `json:"awarded"`
}

type session struct {
	AccessToken string `json:"access_token"`
	User        struct {
		ID string `json:"id"`
	} `json:"user"`
}

type profileView struct {
	UserID string `json:"user_id"`
	Score  int    `json:"score"`
}

// Stats holds run statistics. Counters are updated by concurrent bots.
type Stats struct {
	BotsRegistered atomic.Int64
	GamesPlayed    atomic.Int64
	GamesWon       atomic.Int64
	Guesses        atomic.Int64
	Failures       atomic.Int64
	StartTime      time.Time
	Duration       time.Duration
}
