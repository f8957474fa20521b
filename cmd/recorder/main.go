// Recorder CLI - discovers capture sources, checks permissions, and
// records displays or windows to video files.
package main

import (
	"log/slog"
	"os"

	"github.com/ahzs645/screencapture/internal/cli"
	"github.com/ahzs645/screencapture/internal/config"
	"github.com/ahzs645/screencapture/internal/permission"
	"github.com/ahzs645/screencapture/internal/provider/screenshot"
)

func main() {
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	env := config.Load()

	provider := screenshot.New()
	defer provider.Close()

	deps := &cli.Dependencies{
		Provider: provider,
		Gate:     permission.New(),
		Env:      env,
	}

	if err := cli.NewRootCmd(deps).Execute(); err != nil {
		os.Exit(1)
	}
}
