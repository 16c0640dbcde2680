package ratelimit

import (
	"context"
	"strconv"
	"time"
)

// Result captures the outcome of a rate-limit evaluation.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// Limiter counts hits per key in a sliding window. A denied hit is reported through
// Result.Allowed; an error means the backend itself failed.
type Limiter interface {
	Check(ctx context.Context, key string, limit int, window time.Duration) (*Result, error)
}

// UserKey is the limiter key for one Telegram user.
func UserKey(userID int64) string {
	return "user:" + strconv.FormatInt(userID, 10)
}
