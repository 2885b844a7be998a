package middleware

import (
	"hash/maphash"
	"math"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/guttosm/pixie-cache/internal/domain/dto"
	"github.com/guttosm/pixie-cache/internal/metrics"
	"github.com/rs/zerolog/log"
)

const (
	limiterShards = 16
	// sweepEvery is how many Allow calls pass between sweeps of stale windows.
	sweepEvery = 1024
)

// clientWindow is one client's fixed-window counter.
type clientWindow struct {
	start time.Time
	used  int
}

type limiterShard struct {
	mu      sync.Mutex
	clients map[string]*clientWindow
}

// Decision is the outcome of one rate limit check.
type Decision struct {
	Allowed   bool
	Remaining int
	// Reset is the time left until the client's window starts over.
	Reset time.Duration
}

// RateLimiter allows each client a fixed number of requests per period.
// Clients are spread across shards to keep lock contention low, and stale
// windows are swept inline so the limiter owns no goroutine.
type RateLimiter struct {
	limit  int
	period time.Duration
	seed   maphash.Seed
	shards [limiterShards]limiterShard
	calls  atomic.Uint64
	now    func() time.Time
}

// NewRateLimiter creates a limiter allowing limit requests per period for each client.
func NewRateLimiter(limit int, period time.Duration) *RateLimiter {
	rl := &RateLimiter{
		limit:  limit,
		period: period,
		seed:   maphash.MakeSeed(),
		now:    time.Now,
	}
	for i := range rl.shards {
		rl.shards[i].clients = make(map[string]*clientWindow)
	}
	return rl
}

func (rl *RateLimiter) shard(client string) *limiterShard {
	return &rl.shards[maphash.String(rl.seed, client)%limiterShards]
}

// Allow consumes one request from client's budget.
func (rl *RateLimiter) Allow(client string) Decision {
	now := rl.now()
	if rl.calls.Add(1)%sweepEvery == 0 {
		rl.sweep(now)
	}

	s := rl.shard(client)
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.clients[client]
	if !ok || now.Sub(w.start) >= rl.period {
		w = &clientWindow{start: now}
		s.clients[client] = w
	}
	reset := rl.period - now.Sub(w.start)

	if w.used >= rl.limit {
		return Decision{Allowed: false, Remaining: 0, Reset: reset}
	}
	w.used++
	return Decision{Allowed: true, Remaining: rl.limit - w.used, Reset: reset}
}

// sweep drops windows that ended more than one period ago.
func (rl *RateLimiter) sweep(now time.Time) {
	for i := range rl.shards {
		s := &rl.shards[i]
		s.mu.Lock()
		for client, w := range s.clients {
			if now.Sub(w.start) >= 2*rl.period {
				delete(s.clients, client)
			}
		}
		s.mu.Unlock()
	}
}

// Clients returns the number of clients currently tracked.
func (rl *RateLimiter) Clients() int {
	n := 0
	for i := range rl.shards {
		s := &rl.shards[i]
		s.mu.Lock()
		n += len(s.clients)
		s.mu.Unlock()
	}
	return n
}

// RateLimit returns a middleware that limits requests per client IP.
func (rl *RateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		client := c.ClientIP()
		d := rl.Allow(client)
		resetSeconds := strconv.Itoa(int(math.Ceil(d.Reset.Seconds())))

		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		c.Header("X-RateLimit-Reset", resetSeconds)

		if !d.Allowed {
			metrics.RecordRateLimited()
			log.Warn().Str("client_ip", client).Str("path", c.Request.URL.Path).Msg("Rate limit exceeded")
			c.Header("Retry-After", resetSeconds)
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				dto.NewError(dto.ErrCodeRateLimit, "Too many requests, please try again later").
					WithRequestID(GetRequestID(c)))
			return
		}

		c.Next()
	}
}
