/* Copyright (c) 2025 B Board
 * SPDX-License-Identifier: BSD-3-Clause */
package http

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimiter is a fixed-window per-key counter. It replaces the old
// module-level mutable map with an injected store owned by the router, so
// its lifecycle is explicit and tests can construct their own.
type RateLimiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	now    func() time.Time
	seen   map[string]*rateWindow
}

type rateWindow struct {
	start time.Time
	count int
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:  limit,
		window: window,
		now:    time.Now,
		seen:   map[string]*rateWindow{},
	}
}

// sweepThreshold caps how many distinct keys accumulate before expired
// windows are swept, so one-off client IPs don't grow the map forever.
const sweepThreshold = 1024

// Allow reports whether key has budget left in the current window, and
// consumes one unit when it does. Stale windows are dropped on touch, and
// the whole map is swept once it outgrows sweepThreshold.
func (l *RateLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if len(l.seen) > sweepThreshold {
		l.sweep(now)
	}
	w, ok := l.seen[key]
	if !ok || now.Sub(w.start) >= l.window {
		l.seen[key] = &rateWindow{start: now, count: 1}
		return true
	}
	if w.count >= l.limit {
		return false
	}
	w.count++
	return true
}

func (l *RateLimiter) sweep(now time.Time) {
	for k, w := range l.seen {
		if now.Sub(w.start) >= l.window {
			delete(l.seen, k)
		}
	}
}

// RateLimit keys on client IP and answers 429 when the budget is spent.
func RateLimit(l *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"message": "too many requests"})
			return
		}
		c.Next()
	}
}
