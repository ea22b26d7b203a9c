package app

import (
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// RateLimitConfig bounds submission attempts per client identity.
type RateLimitConfig struct {
	MaxAttempts   int
	Window        time.Duration
	MaxIdentities int
}

// DefaultRateLimitConfig allows three attempts per hour.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{MaxAttempts: 3, Window: time.Hour, MaxIdentities: 10000}
}

// RateLimitDecision is the outcome of one Allow call.
type RateLimitDecision struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// RateLimiter is a sliding-window limiter keyed by client identity. Each
// identity keeps at most MaxAttempts timestamps; the identity table is an LRU
// so churn through many identities cannot grow memory without bound.
type RateLimiter struct {
	mu      sync.Mutex
	cfg     RateLimitConfig
	windows *lru.Cache[string, []time.Time]
	now     func() time.Time
}

// NewRateLimiter validates cfg and builds a limiter. A nil clock uses time.Now.
func NewRateLimiter(cfg RateLimitConfig, now func() time.Time) (*RateLimiter, error) {
	defaults := DefaultRateLimitConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaults.MaxAttempts
	}
	if cfg.Window <= 0 {
		cfg.Window = defaults.Window
	}
	if cfg.MaxIdentities <= 0 {
		cfg.MaxIdentities = defaults.MaxIdentities
	}
	windows, err := lru.New[string, []time.Time](cfg.MaxIdentities)
	if err != nil {
		return nil, fmt.Errorf("create rate limit table: %w", err)
	}
	if now == nil {
		now = time.Now
	}
	return &RateLimiter{cfg: cfg, windows: windows, now: now}, nil
}

// Allow records an attempt for identity when under the cap. Timestamps at or
// before now-Window are purged first.
func (l *RateLimiter) Allow(identity string) RateLimitDecision {
	if identity == "" {
		identity = "unknown"
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	windowStart := now.Add(-l.cfg.Window)
	previous, _ := l.windows.Get(identity)

	valid := make([]time.Time, 0, l.cfg.MaxAttempts)
	for _, ts := range previous {
		if ts.After(windowStart) {
			valid = append(valid, ts)
		}
	}

	if len(valid) >= l.cfg.MaxAttempts {
		l.windows.Add(identity, valid)
		return RateLimitDecision{
			Allowed:   false,
			Remaining: 0,
			ResetAt:   valid[0].Add(l.cfg.Window),
		}
	}

	valid = append(valid, now)
	l.windows.Add(identity, valid)
	return RateLimitDecision{
		Allowed:   true,
		Remaining: l.cfg.MaxAttempts - len(valid),
		ResetAt:   valid[0].Add(l.cfg.Window),
	}
}
