package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cira-io/cira-runtime/internal/pipeline"
)

// startHealthServer runs a small HTTP server exposing liveness and the
// executor's statistics counters. Returns a function that shuts the
// server down.
func (a *App) startHealthServer(stats *pipeline.Stats) func() {
	logger := a.logger

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.config.HealthPort),
		Handler: a.healthMux(stats),
	}

	go func() {
		logger.Info("Health server starting.", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Health server failed.", "error", err)
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Health server shutdown failed.", "error", err)
		}
	}
}

// healthMux builds the liveness and stats routes.
func (a *App) healthMux(stats *pipeline.Stats) *http.ServeMux {
	logger := a.logger

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "OK")
	})
	mux.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(stats.Snapshot()); err != nil {
			logger.Warn("Failed to encode stats snapshot.", "error", err)
		}
	})
	return mux
}
