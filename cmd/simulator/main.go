package main

import (
	"log/slog"
	"os"
	"time"

	"hirehub/simulator"

	"github.com/lmittmann/tint"
)

// Runs the full stack in-process on in-memory stores and drives a two-user
// chat scenario through the real HTTP and websocket surfaces.
func main() {
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      slog.LevelInfo,
		TimeFormat: time.Kitchen,
	})))

	harness := simulator.NewHarness()
	defer harness.Close()

	slog.Info("simulator starting", "url", harness.BaseURL())
	if err := simulator.RunScenario(harness); err != nil {
		slog.Error("scenario failed", "error", err)
		os.Exit(1)
	}
	slog.Info("scenario passed")
}
