package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// healthHandler answers liveness probes.
func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	a.logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

// startServers starts the health check and metrics servers that are enabled.
func (a *App) startServers() {
	if a.config.HealthcheckPort > 0 {
		mux := http.NewServeMux()
		mux.HandleFunc("/health", a.healthHandler)
		a.healthServer = a.serve("🩺 Health check", a.config.HealthcheckPort, "/health", mux)
	} else {
		a.logger.Debug("Health check server not started: disabled")
	}

	if a.metrics != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", a.metrics.Handler())
		a.metricsServer = a.serve("📈 Metrics", a.config.MetricsPort, "/metrics", mux)
	}
}

func (a *App) serve(name string, port int, path string, h http.Handler) *http.Server {
	addr := fmt.Sprintf(":%d", port)
	srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		a.logger.Info(name+" server starting", "address", fmt.Sprintf("http://localhost%s%s", addr, path))
		// ListenAndServe returns ErrServerClosed on graceful shutdown.
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error(name+" server failed unexpectedly", "error", err)
		}
	}()
	return srv
}

// closeServers shuts down whatever startServers started.
func (a *App) closeServers(ctx context.Context) {
	for _, srv := range []*http.Server{a.healthServer, a.metricsServer} {
		if srv == nil {
			continue
		}
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("Server shutdown failed", "address", srv.Addr, "error", err)
		}
		cancel()
	}
	a.healthServer, a.metricsServer = nil, nil
	a.logger.Debug("Servers shut down gracefully.")
}
