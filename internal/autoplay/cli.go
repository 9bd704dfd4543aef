package autoplay

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/okian/guessr/pkg/logger"
)

// File permission constants.
const logFilePermission = 0o600

// SetupLogging initializes the global logger writing to stdout and, when
// logFile is set, to that file as well.
func SetupLogging(logFile string) error {
	var w io.Writer = os.Stdout
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
		if err != nil {
			return fmt.Errorf("failed to create log file: %w", err)
		}
		w = io.MultiWriter(os.Stdout, f)
	}
	if err := logger.InitWith(w, logger.FormatText); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// ParseFlags reads a Config from args. help reports -help.
func ParseFlags(args []string) (cfg Config, logFile string, help bool, err error) {
	fs := flag.NewFlagSet("autoplay", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&cfg.BaseURL, "url", "http://localhost:9080", "base URL of the service")
	fs.IntVar(&cfg.Bots, "bots", DefaultBots, "number of bot accounts")
	fs.IntVar(&cfg.Games, "games", DefaultGames, "games per bot")
	fs.IntVar(&cfg.Workers, "workers", 0, "bots playing concurrently (default CPU cores * 2)")
	fs.IntVar(&cfg.TopN, "top", DefaultTopN, "leaderboard entries to verify")
	fs.DurationVar(&cfg.Timeout, "timeout", DefaultTimeout, "HTTP request timeout")
	fs.DurationVar(&cfg.Settle, "settle", DefaultSettle, "time allowed for scores to reach the leaderboard")
	fs.BoolVar(&cfg.Verbose, "verbose", false, "log every game")
	fs.StringVar(&logFile, "log", "", "also write logs to this file")
	fs.BoolVar(&help, "help", false, "show help")
	err = fs.Parse(args)
	return cfg, logFile, help, err
}

// ShowHelp prints usage information for the autoplay tool.
func ShowHelp(w io.Writer) {
	fmt.Fprintf(w, `guessr autoplay
===============

Registers bot players, plays games by binary search and verifies that the
leaderboard matches the bots' profiles.

Usage:
  go run ./cmd/autoplay [options]

Options:
  -url string        Base URL of the service (default "http://localhost:9080")
  -bots int          Number of bot accounts (default %d)
  -games int         Games per bot (default %d)
  -workers int       Bots playing concurrently (default CPU cores * 2)
  -top int           Leaderboard entries to verify (default %d)
  -timeout duration  HTTP request timeout (default %s)
  -settle duration   Time allowed for scores to reach the leaderboard (default %s)
  -log string        Also write logs to this file
  -verbose           Log every game
  -help              Show this help message
`, DefaultBots, DefaultGames, DefaultTopN, DefaultTimeout, DefaultSettle)
}
