package autoplay

import "time"

// Defaults used when a Config field is zero.
const (
	DefaultBots    = 10
	DefaultGames   = 5
	DefaultTopN    = 50
	DefaultTimeout = 10 * time.Second
	DefaultSettle  = 30 * time.Second

	botPassword  = "autoplay-bot"
	pollInterval = 100 * time.Millisecond
)
