package http

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// LoginThrottleConfig bounds admin login attempts per client IP.
type LoginThrottleConfig struct {
	RequestsPerMinute int
	Burst             int
	EntryTTL          time.Duration
	CleanupInterval   time.Duration
}

// DefaultLoginThrottleConfig allows a burst of five logins, refilling one every 12s.
func DefaultLoginThrottleConfig() LoginThrottleConfig {
	return LoginThrottleConfig{RequestsPerMinute: 5, Burst: 5}
}

type throttleEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type loginThrottle struct {
	mu              sync.Mutex
	limit           rate.Limit
	burst           int
	entries         map[string]*throttleEntry
	entryTTL        time.Duration
	cleanupInterval time.Duration
	lastCleanup     time.Time
	now             func() time.Time
}

func newLoginThrottle(cfg LoginThrottleConfig, now func() time.Time) *loginThrottle {
	if now == nil {
		now = time.Now
	}
	ttl := cfg.EntryTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	cleanup := cfg.CleanupInterval
	if cleanup <= 0 {
		cleanup = 5 * time.Minute
	}
	return &loginThrottle{
		limit:           rate.Every(time.Minute / time.Duration(cfg.RequestsPerMinute)),
		burst:           cfg.Burst,
		entries:         make(map[string]*throttleEntry),
		entryTTL:        ttl,
		cleanupInterval: cleanup,
		lastCleanup:     now(),
		now:             now,
	}
}

func (t *loginThrottle) allow(key string) bool {
	if t == nil || key == "" {
		return true
	}
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	if now.Sub(t.lastCleanup) >= t.cleanupInterval {
		for k, entry := range t.entries {
			if now.Sub(entry.lastSeen) > t.entryTTL {
				delete(t.entries, k)
			}
		}
		t.lastCleanup = now
	}

	entry, ok := t.entries[key]
	if !ok {
		entry = &throttleEntry{limiter: rate.NewLimiter(t.limit, t.burst)}
		t.entries[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

// loginThrottleMiddleware rejects login bursts from one client with 429.
// A non-positive rate or burst disables throttling.
func loginThrottleMiddleware(cfg LoginThrottleConfig, now func() time.Time) gin.HandlerFunc {
	if cfg.RequestsPerMinute <= 0 || cfg.Burst <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	throttle := newLoginThrottle(cfg, now)
	return func(c *gin.Context) {
		if !throttle.allow(c.ClientIP()) {
			c.Header("Retry-After", "60")
			abortWithMessage(c, http.StatusTooManyRequests, "Too many login attempts. Please try again later.")
			return
		}
		c.Next()
	}
}
