package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Proton-105/emerans-bots/internal/state"
)

var (
	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "active_sessions",
		Help: "Users currently inside a conversation flow",
	})
	sessionsByFlow = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sessions_by_flow",
		Help: "Active sessions per flow",
	}, []string{"flow"})
)

// SessionSource lists the stored sessions.
type SessionSource interface {
	GetAllStates(ctx context.Context) ([]*state.UserState, error)
}

// StateCollector samples the session store into the session gauges.
type StateCollector struct {
	source   SessionSource
	interval time.Duration
	log      *slog.Logger
}

func NewStateCollector(source SessionSource) *StateCollector {
	return &StateCollector{source: source, interval: 15 * time.Second, log: slog.Default()}
}

// Run samples immediately and then every interval until ctx is cancelled.
func (c *StateCollector) Run(ctx context.Context) {
	if c.source == nil {
		return
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		if err := c.collect(ctx); err != nil && ctx.Err() == nil {
			c.log.WarnContext(ctx, "session metrics skipped", slog.Any("error", err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (c *StateCollector) collect(ctx context.Context) error {
	states, err := c.source.GetAllStates(ctx)
	if err != nil {
		return err
	}

	counts := make(map[string]int)
	for _, st := range states {
		flow := "none"
		if st != nil && st.Flow != "" {
			flow = st.Flow
		}
		counts[flow]++
	}

	activeSessions.Set(float64(len(states)))
	sessionsByFlow.Reset()
	for flow, n := range counts {
		sessionsByFlow.WithLabelValues(flow).Set(float64(n))
	}
	return nil
}
