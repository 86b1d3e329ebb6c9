package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"github.com/drewfead/marquee/internal/config"
	"github.com/drewfead/marquee/internal/root"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := config.LoadDotEnv(); err != nil {
		slog.Warn("ignoring .env", "error", err)
	}

	rootCmd, err := root.Root(ctx)
	if err != nil {
		slog.Error("failed to create root command", "error", err)
		os.Exit(137)
	}

	if err := rootCmd.Run(ctx, os.Args); err != nil {
		slog.Error("command failed", "error", err)
		stop()
		os.Exit(1)
	}
}
