package ratelimit

import (
	"fmt"
	"time"

	"github.com/Proton-105/emerans-bots/pkg/config"
)

// Rule allows Limit hits per Window.
type Rule struct {
	Limit  int
	Window time.Duration
}

// Rules is the parsed rate limit section.
type Rules struct {
	user      Rule
	admin     Rule
	whitelist map[int64]struct{}
}

// NewRules parses the configured rules. The admin rule defaults to the per-user one.
func NewRules(cfg config.RateLimitConfig) (*Rules, error) {
	user, err := parseRule("per_user", cfg.PerUser)
	if err != nil {
		return nil, err
	}

	admin := user
	if cfg.Admin.Limit != 0 || cfg.Admin.Window != "" {
		if admin, err = parseRule("admin", cfg.Admin); err != nil {
			return nil, err
		}
	}

	whitelist := make(map[int64]struct{}, len(cfg.Whitelist))
	for _, id := range cfg.Whitelist {
		whitelist[id] = struct{}{}
	}
	return &Rules{user: user, admin: admin, whitelist: whitelist}, nil
}

// Exempt reports whether userID bypasses rate limiting.
func (r *Rules) Exempt(userID int64) bool {
	_, ok := r.whitelist[userID]
	return ok
}

// For returns the rule for an admin or a regular user.
func (r *Rules) For(admin bool) Rule {
	if admin {
		return r.admin
	}
	return r.user
}

func parseRule(name string, raw config.RateLimitRule) (Rule, error) {
	if raw.Limit <= 0 {
		return Rule{}, fmt.Errorf("rate_limit.%s: limit must be positive", name)
	}
	window, err := time.ParseDuration(raw.Window)
	if err != nil {
		return Rule{}, fmt.Errorf("rate_limit.%s: window: %w", name, err)
	}
	if window <= 0 {
		return Rule{}, fmt.Errorf("rate_limit.%s: window must be positive", name)
	}
	return Rule{Limit: raw.Limit, Window: window}, nil
}
