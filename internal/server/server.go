// Package server assembles the HTTP handlers and runs the server.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/matthewbaird/fadem/internal/activity"
	"github.com/matthewbaird/fadem/internal/arrears"
	"github.com/matthewbaird/fadem/internal/clock"
	"github.com/matthewbaird/fadem/internal/handler"
	"github.com/matthewbaird/fadem/internal/ledger"
	"github.com/matthewbaird/fadem/internal/storage"
)

const shutdownTimeout = 10 * time.Second

// Config holds server dependencies.
type Config struct {
	Addr     string
	Engine   *ledger.Engine
	Repo     *storage.Repository
	Monitor  *arrears.Monitor
	Activity activity.Store
	Stream   *handler.AlertStream
	// Clock drives default query windows; nil means the system clock.
	Clock  clock.Clock
	Logger *zap.Logger
}

// NewRouter registers every route under /v1 plus /healthz.
func NewRouter(cfg Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(handler.Recovery(logger), handler.Logging(logger))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/v1", func(r chi.Router) {
		handler.NewLedgerHandler(cfg.Engine, logger).Routes(r)
		handler.NewAlertHandler(cfg.Engine, cfg.Monitor, cfg.Stream, logger).Routes(r)
		handler.NewDataHandler(cfg.Engine, cfg.Repo, logger).Routes(r)
		if cfg.Activity != nil {
			handler.NewActivityHandler(cfg.Activity, cfg.Clock, logger).Routes(r)
		}
	})
	return r
}

// Run serves until ctx is done, then shuts down gracefully.
func Run(ctx context.Context, cfg Config) error {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           NewRouter(cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("addr", cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.Info("server stopped")
	return nil
}
