package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofrs/flock"

	"actas/internal/api"
	"actas/internal/audit"
	"actas/internal/config"
	"actas/internal/lifecycle"
	"actas/internal/logging"
	"actas/internal/session"
	"actas/internal/store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("ensure directories: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	// A second daemon writing the same database would corrupt wizard
	// sessions, so refuse to start while the lock is held.
	lockPath := filepath.Join(cfg.Paths.DataDir, "actasd.lock")
	lock := flock.New(lockPath)
	locked, err := lock.TryLock()
	if err != nil {
		logger.Error("acquire daemon lock", slog.String("path", lockPath), slog.String("error", err.Error()))
		return
	}
	if !locked {
		logger.Error("another actasd instance is already running", slog.String("lock", lockPath))
		return
	}
	defer lock.Unlock() //nolint:errcheck

	st, err := store.Open(cfg)
	if err != nil {
		logger.Error("open store", slog.String("error", err.Error()))
		return
	}
	defer st.Close()

	recorder := audit.NewRecorder(st, logger)
	handler := api.NewHandler(cfg, st,
		lifecycle.NewManager(st, recorder, logger),
		session.NewManager(st),
		recorder, logger)

	server := &http.Server{
		Addr:              cfg.Paths.APIBind,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()
	logger.Info("actasd listening",
		slog.String("bind", cfg.Paths.APIBind),
		slog.String("database", st.Path()))

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("serve api", slog.String("error", err.Error()))
		}
	case <-ctx.Done():
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("shutdown", slog.String("error", err.Error()))
		}
		logger.Info("actasd shutting down")
	}
}
