// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package lens

import (
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RequestID makes sure every request carries an X-Request-ID, echoed in
// the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		getOrCreateRequestID(c)
		c.Next()
	}
}

// clientLimiters hands out one token bucket per client IP.
type clientLimiters struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[string]*clientLimiter
	maxIdle  time.Duration
	lastGC   time.Time
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func (l *clientLimiters) get(key string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastGC) > l.maxIdle {
		for k, cl := range l.limiters {
			if now.Sub(cl.lastSeen) > l.maxIdle {
				delete(l.limiters, k)
			}
		}
		l.lastGC = now
	}

	cl, ok := l.limiters[key]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[key] = cl
	}
	cl.lastSeen = now
	return cl.limiter
}

// RateLimit limits each client IP to perSecond requests with the given
// burst. Rejected requests get 429 with a Retry-After header. A
// non-positive perSecond disables limiting.
//
// Thread Safety:
//
//	The returned handler is safe for concurrent use.
func RateLimit(perSecond float64, burst int) gin.HandlerFunc {
	if perSecond <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if burst < 1 {
		burst = 1
	}
	limiters := &clientLimiters{
		limit:    rate.Limit(perSecond),
		burst:    burst,
		limiters: make(map[string]*clientLimiter),
		maxIdle:  5 * time.Minute,
		lastGC:   time.Now(),
	}

	return func(c *gin.Context) {
		now := time.Now()
		res := limiters.get(c.ClientIP(), now).ReserveN(now, 1)
		if delay := res.DelayFrom(now); delay > 0 {
			res.CancelAt(now)
			retry := int(delay/time.Second) + 1
			slog.Warn("rate limited",
				slog.String("request_id", getOrCreateRequestID(c)),
				slog.String("client", c.ClientIP()),
				slog.String("path", c.FullPath()),
			)
			c.Header("Retry-After", strconv.Itoa(retry))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{
				Error: "too many requests",
				Code:  CodeRateLimited,
			})
			return
		}
		c.Next()
	}
}
