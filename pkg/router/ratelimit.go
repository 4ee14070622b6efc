package router

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/opd-ai/landkeep/pkg/land"
)

// joinRateLimiter throttles join attempts per ClientID using a token bucket,
// keyed on ClientID instead of IP since the router's Connection abstraction
// has no guaranteed IP.
type joinRateLimiter struct {
	mu              sync.Mutex
	limiters        map[land.ClientID]*rateLimiterEntry
	requestsPerSec  rate.Limit
	burst           int
	cleanupInterval time.Duration
	maxAge          time.Duration
	stop            chan struct{}
	stopOnce        sync.Once
	logger          *logrus.Entry
}

type rateLimiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// newJoinRateLimiter constructs a limiter allowing requestsPerSec sustained
// joins per ClientID with the given burst. A zero requestsPerSec disables
// limiting entirely (Allow always returns true).
func newJoinRateLimiter(requestsPerSec float64, burst int, cleanupInterval time.Duration) *joinRateLimiter {
	if cleanupInterval <= 0 {
		cleanupInterval = time.Minute
	}
	rl := &joinRateLimiter{
		limiters:        make(map[land.ClientID]*rateLimiterEntry),
		requestsPerSec:  rate.Limit(requestsPerSec),
		burst:           burst,
		cleanupInterval: cleanupInterval,
		maxAge:          cleanupInterval * 5,
		stop:            make(chan struct{}),
		logger:          logrus.WithField("function", "joinRateLimiter"),
	}
	if requestsPerSec > 0 {
		go rl.cleanupLoop()
	}
	return rl
}

func (rl *joinRateLimiter) allow(clientID land.ClientID) bool {
	if rl.requestsPerSec <= 0 {
		return true
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, ok := rl.limiters[clientID]
	if !ok {
		entry = &rateLimiterEntry{limiter: rate.NewLimiter(rl.requestsPerSec, rl.burst)}
		rl.limiters[clientID] = entry
	}
	entry.lastAccess = time.Now()
	return entry.limiter.Allow()
}

func (rl *joinRateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.cleanup()
		}
	}
}

func (rl *joinRateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := time.Now()
	removed := 0
	for id, entry := range rl.limiters {
		if now.Sub(entry.lastAccess) > rl.maxAge {
			delete(rl.limiters, id)
			removed++
		}
	}
	if removed > 0 {
		rl.logger.WithField("removed", removed).Debug("cleaned up expired join rate limiters")
	}
}

func (rl *joinRateLimiter) close() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}
