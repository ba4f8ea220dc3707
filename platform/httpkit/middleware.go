// Package httpkit holds the gin plumbing shared by every module: response
// helpers, error mapping, authentication and request middleware.
package httpkit

import (
	"net/http"
	"sync"
	"time"

	"sales_pipeline_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// HeaderRequestID carries the correlation id in both directions.
const HeaderRequestID = "X-Request-ID"

var securityHeaders = map[string]string{
	"X-Content-Type-Options":  "nosniff",
	"X-Frame-Options":         "DENY",
	"Referrer-Policy":         "strict-origin-when-cross-origin",
	"Content-Security-Policy": "default-src 'none'; frame-ancestors 'none'",
	"Cache-Control":           "no-store",
}

// RequestLogger assigns a request id (reusing an inbound X-Request-ID),
// exposes it to downstream loggers and logs the request once served.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(HeaderRequestID, requestID)
		c.Request = c.Request.WithContext(logger.ContextWithRequestID(c.Request.Context(), requestID))

		c.Next()

		log.WithContext(c.Request.Context()).HTTPRequest(
			c.Request.Method,
			routeOf(c),
			c.Writer.Status(),
			float64(time.Since(start).Microseconds())/1000,
			c.ClientIP(),
		)
	}
}

// SecurityHeaders sets the headers a JSON API needs; HSTS only over TLS.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		for name, value := range securityHeaders {
			c.Header(name, value)
		}
		if c.Request.TLS != nil {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		c.Next()
	}
}

// IPRateLimiter hands out one token bucket per client IP.
type IPRateLimiter struct {
	limiters sync.Map
	limit    rate.Limit
	burst    int
	log      *logger.Logger
}

// NewIPRateLimiter allows perSecond sustained requests per client with the
// given burst. log may be nil.
func NewIPRateLimiter(perSecond rate.Limit, burst int, log *logger.Logger) *IPRateLimiter {
	return &IPRateLimiter{limit: perSecond, burst: burst, log: log}
}

func (l *IPRateLimiter) limiterFor(ip string) *rate.Limiter {
	if v, ok := l.limiters.Load(ip); ok {
		return v.(*rate.Limiter)
	}
	v, _ := l.limiters.LoadOrStore(ip, rate.NewLimiter(l.limit, l.burst))
	return v.(*rate.Limiter)
}

// RateLimit answers 429 once a client exhausts its bucket.
func (l *IPRateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if l.limiterFor(ip).Allow() {
			c.Next()
			return
		}
		if l.log != nil {
			l.log.RateLimitExceeded(ip, routeOf(c))
		}
		c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{Error: "rate limit exceeded"})
	}
}

// routeOf prefers the matched pattern over the raw path.
func routeOf(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return c.Request.URL.Path
}
