package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/xoxhunterxd/instagram-downloader/api"
	"github.com/xoxhunterxd/instagram-downloader/download"
	"github.com/xoxhunterxd/instagram-downloader/tr"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	setupLogger(cfg.LogLevel, cfg.LogFormat)

	if err := tr.Init("instagram-downloader"); err != nil {
		return err
	}
	defer tr.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider, err := download.NewProvider(&cfg.ProviderURL)
	if err != nil {
		return fmt.Errorf("creating provider: %w", err)
	}

	storage, err := newStorage(ctx, cfg)
	if err != nil {
		return fmt.Errorf("creating storage: %w", err)
	}
	if storage != nil {
		defer storage.Close()
		slog.Info("storage configured", "storage", storage.String())
	}

	resolver := &download.Resolver{
		Provider: provider,
		Storage:  storage,
		Opts: download.Options{
			ExtractTimeout: cfg.ExtractTimeout,
			UploadTimeout:  cfg.UploadTimeout,
			SignedURLTTL:   cfg.R2.TTL(),
		},
	}

	server := &api.Server{Addr: cfg.Addr, Resolver: resolver}

	errChan := make(chan error, 1)
	go func() {
		slog.Info("server started", "addr", cfg.Addr)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		slog.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// newStorage picks the storage backend: an explicit STORAGE_URL wins, then
// a complete R2_* block. A partially filled R2 block is a misconfiguration
// worth flagging, but the service still serves direct downloads.
func newStorage(ctx context.Context, cfg config) (download.Storage, error) {
	if cfg.StorageURL != nil {
		return download.NewStorage(ctx, cfg.StorageURL)
	}

	if cfg.R2.Complete() {
		return download.NewR2Storage(ctx, cfg.R2)
	}

	if missing := cfg.R2.Missing(); len(missing) < 4 {
		slog.Warn("partial r2 config, link delivery disabled", "missing", missing)
	}

	return nil, nil
}

func setupLogger(level, format string) {
	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(level)})
	default:
		handler = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      parseLevel(level),
			TimeFormat: time.TimeOnly,
		})
	}
	slog.SetDefault(slog.New(handler))
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
