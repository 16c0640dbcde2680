// Package metrics declares the Prometheus series shared by the bots.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Proton-105/emerans-bots/internal/state"
)

var (
	botUpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_updates_total",
			Help: "Updates handled by kind, action and status",
		},
		[]string{"kind", "action", "status"},
	)
	updateDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "update_duration_seconds",
			Help:    "Time spent handling one update",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"kind"},
	)
	stateTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "state_transitions_total",
			Help: "Total number of conversation state transitions",
		},
		[]string{"from", "to"},
	)
	flowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flows_total",
			Help: "Conversation flows by name and result (started, finished, cancelled)",
		},
		[]string{"flow", "result"},
	)
	storeSavesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_saves_total",
			Help: "Document saves by bot and status",
		},
		[]string{"bot", "status"},
	)
	storeSaveDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "store_save_duration_seconds",
			Help:    "Time spent rewriting the document file",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"bot"},
	)
	errorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Total number of errors split by type and severity",
		},
		[]string{"type", "severity"},
	)
)

func init() {
	state.RegisterTransitionRecorder(RecordStateTransition)
}

// RecordUpdate counts one handled update and its duration.
func RecordUpdate(kind, action, status string, duration time.Duration) {
	if action == "" {
		action = "unknown"
	}
	botUpdatesTotal.WithLabelValues(kind, action, status).Inc()
	updateDurationSeconds.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordStateTransition tracks FSM transitions.
func RecordStateTransition(from, to string) {
	if from == "" {
		from = "unknown"
	}
	if to == "" {
		to = "unknown"
	}

	stateTransitionsTotal.WithLabelValues(from, to).Inc()
}

// RecordFlow counts flow lifecycle events.
func RecordFlow(flow, result string) {
	if flow == "" {
		flow = "unknown"
	}
	flowsTotal.WithLabelValues(flow, result).Inc()
}

// RecordStoreSave tracks a document rewrite.
func RecordStoreSave(bot string, duration time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	storeSavesTotal.WithLabelValues(bot, status).Inc()
	storeSaveDuration.WithLabelValues(bot).Observe(duration.Seconds())
}

// RecordError increments error counters with metadata.
func RecordError(errType, severity string) {
	if errType == "" {
		errType = "unknown"
	}
	if severity == "" {
		severity = "unknown"
	}

	errorsTotal.WithLabelValues(errType, severity).Inc()
}
