package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"set-game-server/internal/config"
	"set-game-server/internal/server"
)

const shutdownTimeout = 30 * time.Second

var configPath = flag.String("config", "", "path to configuration file (defaults to ./config.yaml when present)")

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		// os.Exit skips deferred calls, so flush buffered entries first.
		logger.Error("server stopped", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
	logger.Info("graceful shutdown complete")
}

// run serves until SIGINT or SIGTERM and then shuts down in order: rooms
// first so clients see their sockets close, then the HTTP server.

func run(cfg *config.Config, logger *zap.Logger) error {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The archive is optional; migrations run before any room can finish a game.
	archive, err := server.OpenArchive(ctx, cfg.Archive.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer archive.Close()
	if archive == nil {
		logger.Info("game archive disabled")
	} else if err := archive.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate archive: %w", err)
	}

	metrics := server.NewMetrics("setgame")
	srv, httpServer := server.NewServer(cfg, logger, metrics, archive)

	g, gctx := errgroup.WithContext(ctx)

	// Serve HTTP until Shutdown closes the listener.
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	// Idle room cleanup and rate limiter housekeeping.
	g.Go(func() error {
		srv.Run(gctx)
		return nil
	})

	// Wait for a signal, or for the listener to fail, then drain.
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received, press Ctrl+C again to force")
		stop() // Allow Ctrl+C to force shutdown

		// Both phases share one deadline.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		// Stop every room actor. This closes all websocket clients, whose
		// handlers then return, so the HTTP shutdown below is not left waiting
		// on hijacked connections.
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("room shutdown incomplete", zap.Error(err))
		}
		// Stop accepting requests and wait for in-flight HTTP handlers.
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server forced to shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// initLogger builds a zap logger: JSON for production, colored console
// output otherwise.
func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
