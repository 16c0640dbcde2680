package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/Proton-105/emerans-bots/internal/health"
)

// ErrNotReady is returned by Readiness before MarkReady and after MarkStopping.
var ErrNotReady = errors.New("bot is not ready")

// HealthChecker exposes liveness and readiness probes.
type HealthChecker interface {
	Liveness(ctx context.Context) error
	Readiness(ctx context.Context) error
}

// Probes reports the bot live as long as the process runs and ready while it polls
// Telegram with every component check passing.
type Probes struct {
	log     *slog.Logger
	checker *health.Checker
	ready   atomic.Bool
}

var _ HealthChecker = (*Probes)(nil)

// NewProbes creates a new Probes instance. checker may be nil.
func NewProbes(log *slog.Logger, checker *health.Checker) *Probes {
	if log == nil {
		log = slog.Default()
	}
	return &Probes{log: log, checker: checker}
}

// MarkReady flips readiness on once polling has started.
func (p *Probes) MarkReady() {
	p.ready.Store(true)
}

// MarkStopping flips readiness off at the start of shutdown.
func (p *Probes) MarkStopping() {
	p.ready.Store(false)
}

// Liveness always reports success.
func (p *Probes) Liveness(ctx context.Context) error {
	p.log.Debug("liveness probe called")
	return nil
}

// Readiness fails until MarkReady and whenever a component check fails.
func (p *Probes) Readiness(ctx context.Context) error {
	if !p.ready.Load() {
		return ErrNotReady
	}
	if p.checker == nil {
		return nil
	}
	if !health.Healthy(p.checker.Check(ctx)) {
		return errors.New("component check failed")
	}
	return nil
}

// Register mounts /healthz and /readyz on mux.
func (p *Probes) Register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		p.write(w, p.Liveness(r.Context()), nil)
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		var components map[string]string
		if p.checker != nil {
			components = p.checker.Check(r.Context())
		}
		p.write(w, p.Readiness(r.Context()), components)
	})
}

func (p *Probes) write(w http.ResponseWriter, err error, components map[string]string) {
	body := struct {
		Status     string            `json:"status"`
		Error      string            `json:"error,omitempty"`
		Components map[string]string `json:"components,omitempty"`
	}{Status: "ok", Components: components}

	status := http.StatusOK
	if err != nil {
		status = http.StatusServiceUnavailable
		body.Status = "unavailable"
		body.Error = err.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if encErr := json.NewEncoder(w).Encode(body); encErr != nil {
		p.log.Warn("failed to write probe response", slog.Any("error", encErr))
	}
}
