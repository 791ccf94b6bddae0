package handler

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/crimelens/crime-insights-service/internal/dto"
	"github.com/crimelens/crime-insights-service/internal/metrics"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

// requestIDMiddleware propagates the caller's request id or assigns a new one
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}

		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func accessLogMiddleware(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("request_id", c.GetString(requestIDKey)))
	}
}

func metricsMiddleware(recorder *metrics.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		recorder.ObserveHTTP(route, c.Request.Method, c.Writer.Status(), time.Since(start))
	}
}

// limiterIdleTTL is the minimum time a client's limiter is kept after its last request
const limiterIdleTTL = 15 * time.Minute

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// clientLimiters holds one token bucket per client IP. Buckets idle for longer
// than ttl are evicted; ttl is never shorter than a full refill, so an evicted
// bucket would have been full anyway.
type clientLimiters struct {
	mu        sync.Mutex
	entries   map[string]*clientLimiter
	limit     rate.Limit
	burst     int
	ttl       time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func newClientLimiters(requestsPerMinute, burst int, ttl time.Duration) *clientLimiters {
	if burst <= 0 {
		burst = 1
	}
	interval := time.Minute / time.Duration(requestsPerMinute)
	if refill := time.Duration(burst) * interval; refill > ttl {
		ttl = refill
	}

	return &clientLimiters{
		entries:   make(map[string]*clientLimiter),
		limit:     rate.Every(interval),
		burst:     burst,
		ttl:       ttl,
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

func (l *clientLimiters) get(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= l.ttl {
		l.sweep(now)
	}

	entry, ok := l.entries[ip]
	if !ok {
		entry = &clientLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.entries[ip] = entry
	}
	entry.lastSeen = now
	return entry.limiter
}

// sweep drops idle entries; the caller holds mu
func (l *clientLimiters) sweep(now time.Time) {
	for ip, entry := range l.entries {
		if now.Sub(entry.lastSeen) >= l.ttl {
			delete(l.entries, ip)
		}
	}
	l.lastSweep = now
}

// rateLimitMiddleware rejects requests above requestsPerMinute per client IP
func rateLimitMiddleware(requestsPerMinute, burst int) gin.HandlerFunc {
	limiters := newClientLimiters(requestsPerMinute, burst, limiterIdleTTL)

	return func(c *gin.Context) {
		ip := c.ClientIP()
		if ip == "" {
			ip = c.RemoteIP()
		}

		if !limiters.get(ip).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.ErrorResponse{
				Error:   "rate_limited",
				Message: "rate limit exceeded",
			})
			return
		}

		c.Next()
	}
}
