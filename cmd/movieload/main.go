package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/JonMunkholm/movieload/internal/config"
	"github.com/JonMunkholm/movieload/internal/etl"
	"github.com/JonMunkholm/movieload/internal/logging"
	"github.com/JonMunkholm/movieload/internal/runlog"
	"github.com/JonMunkholm/movieload/internal/store"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	// Interrupts cancel in-flight database work; the log is still exported
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ctx, _ = logging.NewRun(ctx)
	logger := logging.FromContext(ctx)

	logger.Info("configuration loaded",
		"input", cfg.Input.Path,
		"driver", cfg.Database.Driver,
		"table", cfg.Upload.Table,
		"batch_size", cfg.Upload.BatchSize,
		"log_path", cfg.Output.LogPath,
	)
	logger.Debug("effective configuration", "config", cfg.String())

	open := func(ctx context.Context) (store.DB, error) {
		return store.Open(ctx, cfg.Database)
	}

	rep, err := etl.NewPipeline(cfg, open, runlog.New()).Run(ctx)
	if err != nil {
		logger.Error("run failed", "error", err)
		stop()
		os.Exit(1)
	}

	logger.Info("run complete",
		"rows", rep.Rows,
		"uploaded", rep.Upload.Inserted,
		"validated", rep.Validation.Rows,
		"duration", rep.Upload.Duration,
	)
}
