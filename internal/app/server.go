package app

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Proton-105/emerans-bots/internal/middleware"
	"github.com/Proton-105/emerans-bots/pkg/graceful"
	"github.com/Proton-105/emerans-bots/pkg/logger"
)

const readHeaderTimeout = 5 * time.Second

// handler serves /metrics, /healthz and /readyz.
func (a *App) handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	a.probes.Register(mux)

	return logger.Middleware(middleware.New(a.log)(mux))
}

// httpServer returns nil when the metrics server is disabled.
func (a *App) httpServer() *graceful.Server {
	if !a.cfg.Metrics.Enabled {
		return nil
	}

	srv := &http.Server{
		Addr:              a.cfg.Metrics.Addr,
		Handler:           a.handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return graceful.NewServer(a.log, srv, a.cfg.Metrics.ShutdownTimeout)
}
