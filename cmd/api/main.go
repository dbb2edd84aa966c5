package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/predtracker/predtracker/internal/app"
	"github.com/predtracker/predtracker/internal/config"
	"github.com/predtracker/predtracker/internal/observability"
	"github.com/predtracker/predtracker/internal/platform/logging"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	slogLogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: toSlogLevel(cfg.LogLevel),
	}))

	appLogger, stopBetterStack, err := observability.InitBetterStackLogger(cfg, nil)
	if err != nil {
		slogLogger.Error("init logger", "error", err)
		os.Exit(1)
	}
	logging.SetDefault(appLogger)

	stopUptrace, err := observability.InitUptrace(cfg, appLogger)
	if err != nil {
		appLogger.Error("init uptrace", "error", err)
		os.Exit(1)
	}

	stopPyroscope, err := observability.InitPyroscope(cfg, slogLogger)
	if err != nil {
		appLogger.Error("init pyroscope", "error", err)
		os.Exit(1)
	}

	pprofServer, err := observability.StartPprofServer(cfg, slogLogger)
	if err != nil {
		appLogger.Error("start pprof server", "error", err)
		os.Exit(1)
	}

	srv, cleanup, err := app.NewHTTPServer(cfg, slogLogger, appLogger)
	if err != nil {
		appLogger.Error("build app", "error", err)
		os.Exit(1)
	}

	go func() {
		appLogger.Info("http server starting", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("http server failed", "error", err)
			os.Exit(1)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("graceful shutdown failed", "error", err)
	}

	if err := cleanup(shutdownCtx); err != nil {
		appLogger.Error("close resources", "error", err)
	}
	if pprofServer != nil {
		if err := observability.StopPprofServer(pprofServer, slogLogger, 3*time.Second); err != nil {
			appLogger.Error("stop pprof server", "error", err)
		}
	}
	if stopPyroscope != nil {
		if err := stopPyroscope(); err != nil {
			appLogger.Error("stop pyroscope", "error", err)
		}
	}
	if err := stopUptrace(shutdownCtx); err != nil {
		appLogger.Error("stop uptrace", "error", err)
	}
	if err := stopBetterStack(shutdownCtx); err != nil {
		appLogger.Error("stop betterstack", "error", err)
	}

	appLogger.Info("http server stopped")
	_ = appLogger.Sync()
}

func toSlogLevel(level logging.Level) slog.Level {
	switch level {
	case logging.LevelDebug:
		return slog.LevelDebug
	case logging.LevelWarn:
		return slog.LevelWarn
	case logging.LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
