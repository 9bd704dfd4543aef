package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/guessr/internal/autoplay"
	"github.com/okian/guessr/pkg/logger"
)

func main() {
	cfg, logFile, help, err := autoplay.ParseFlags(os.Args[1:])
	if err != nil || help {
		autoplay.ShowHelp(os.Stderr)
		if err != nil {
			os.Exit(2)
		}
		return
	}
	if err := autoplay.SetupLogging(logFile); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := logger.Get()
	if _, err := autoplay.Run(ctx, cfg, log); err != nil {
		log.Error(ctx, "autoplay failed", logger.Error(err))
		os.Exit(1)
	}
	log.Info(ctx, "autoplay completed successfully")
}
