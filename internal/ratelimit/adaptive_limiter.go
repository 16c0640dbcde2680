package ratelimit

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	rateLimitChecksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ratelimit_checks_total",
		Help: "Rate limit checks by backend and result.",
	}, []string{"backend", "result"})

	rateLimitDegraded = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ratelimit_degraded",
		Help: "1 while rate limiting runs on the in-memory fallback.",
	})

	rateLimitRedisErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ratelimit_redis_errors_total",
		Help: "Redis errors seen by the rate limiter.",
	})
)

func init() {
	prometheus.MustRegister(rateLimitChecksTotal, rateLimitDegraded, rateLimitRedisErrorsTotal)
}

// AdaptiveLimiter asks redis first and answers from process memory with half the limit
// while redis is failing. Each instance runs on its own, so the fallback is stricter.
type AdaptiveLimiter struct {
	primary  Limiter
	fallback Limiter
	log      *slog.Logger
	degraded atomic.Bool
}

var _ Limiter = (*AdaptiveLimiter)(nil)

func NewAdaptiveLimiter(primary, fallback Limiter, log *slog.Logger) *AdaptiveLimiter {
	if log == nil {
		log = slog.Default()
	}
	return &AdaptiveLimiter{primary: primary, fallback: fallback, log: log}
}

// Degraded reports whether the last check was answered by the fallback.
func (a *AdaptiveLimiter) Degraded() bool {
	return a.degraded.Load()
}

func (a *AdaptiveLimiter) Check(ctx context.Context, key string, limit int, window time.Duration) (*Result, error) {
	result, err := a.primary.Check(ctx, key, limit, window)
	if err == nil {
		if a.degraded.CompareAndSwap(true, false) {
			rateLimitDegraded.Set(0)
			a.log.InfoContext(ctx, "redis rate limiter recovered")
		}
		rateLimitChecksTotal.WithLabelValues("redis", resultLabel(result.Allowed)).Inc()
		return result, nil
	}

	rateLimitRedisErrorsTotal.Inc()
	if a.degraded.CompareAndSwap(false, true) {
		rateLimitDegraded.Set(1)
		a.log.WarnContext(ctx, "redis rate limiter failed, using in-memory fallback", slog.Any("error", err))
	}

	result, err = a.fallback.Check(ctx, key, max(limit/2, 1), window)
	if err != nil {
		return nil, err
	}
	rateLimitChecksTotal.WithLabelValues("memory", resultLabel(result.Allowed)).Inc()
	return result, nil
}

func resultLabel(allowed bool) string {
	if allowed {
		return "allowed"
	}
	return "rejected"
}
