package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"

	"wsimport/cmd/wsimport/cmd"
	"wsimport/lib/telemetry"
	"wsimport/lib/util/serviceutil"
)

func main() {
	// The handler reads the level through a LevelVar, so installing it
	// before flag parsing still honors --verbose.
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      cmd.LogLevel,
		TimeFormat: time.Kitchen,
	}))
	slog.SetDefault(logger)

	ctx := serviceutil.SignalContext()

	t, err := telemetry.SetupFromEnv(ctx, "wsimport")
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		serviceutil.Fatal("setup telemetry", err)
	}
	if err == nil {
		telemetry.InstrumentPerfStats(ctx)
		defer t.Shutdown(context.Background())
	}

	cmd.ExecuteContext(ctx)
}
