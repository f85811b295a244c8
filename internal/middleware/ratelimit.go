package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"dinehub/internal/common"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// Rule is a token-bucket definition: bursts up to Burst, refilling at
// PerMinute tokens per minute.
type Rule struct {
	Burst     int
	PerMinute int
}

// publicRules guard unauthenticated sensitive endpoints, keyed by client IP.
var publicRules = map[string]Rule{
	"POST /api/auth/register":        {Burst: 3, PerMinute: 3},
	"POST /api/auth/login":           {Burst: 5, PerMinute: 5},
	"POST /api/auth/forgot-password": {Burst: 3, PerMinute: 3},
	"POST /api/auth/reset-password":  {Burst: 5, PerMinute: 5},
	"POST /api/contact":              {Burst: 3, PerMinute: 3},
}

// authRules guard authenticated endpoints, keyed by user id. Requests not
// matching a specific rule fall under the catch-all.
var authRules = map[string]Rule{
	"POST /api/support/tickets": {Burst: 10, PerMinute: 10},
}

var defaultAuthRule = Rule{Burst: 120, PerMinute: 120}

// RateLimiter holds one lazily created token bucket per (key, rule) pair.
// Buckets live for the process lifetime; this guards abuse, not storage.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{buckets: make(map[string]*rate.Limiter)}
}

// allow performs the atomic check-and-consume for a key under a rule.
func (l *RateLimiter) allow(key string, rule Rule) bool {
	l.mu.Lock()
	limiter, ok := l.buckets[key]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(rule.PerMinute)), rule.Burst)
		l.buckets[key] = limiter
	}
	l.mu.Unlock()
	return limiter.Allow()
}

func tooManyRequests(c echo.Context) error {
	return c.JSON(http.StatusTooManyRequests, common.CreateErrorResponse("RATE_LIMITED", "Too many requests", nil))
}

// PublicLimit applies the per-IP rules before authentication or any
// business logic runs. OPTIONS always bypasses.
func (l *RateLimiter) PublicLimit() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.Method == http.MethodOptions {
				return next(c)
			}
			rule, ok := publicRules[req.Method+" "+req.URL.Path]
			if !ok {
				return next(c)
			}
			key := "ip:" + clientIP(req) + ":" + req.URL.Path
			if !l.allow(key, rule) {
				return tooManyRequests(c)
			}
			return next(c)
		}
	}
}

// AuthLimit applies per-user rules after authentication. Requests without
// an identity pass through; the auth layer rejects them.
func (l *RateLimiter) AuthLimit() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.Method == http.MethodOptions {
				return next(c)
			}
			identity, ok := common.IdentityFromContext(req.Context())
			if !ok {
				return next(c)
			}
			rule, ok := authRules[req.Method+" "+req.URL.Path]
			key := "user:" + identity.UserID.String() + ":" + req.URL.Path
			if !ok {
				rule = defaultAuthRule
				key = "user:" + identity.UserID.String()
			}
			if !l.allow(key, rule) {
				return tooManyRequests(c)
			}
			return next(c)
		}
	}
}

// clientIP prefers the first X-Forwarded-For entry, falling back to the
// socket address.
func clientIP(req *http.Request) string {
	if fwd := req.Header.Get("X-Forwarded-For"); fwd != "" {
		if first := strings.TrimSpace(strings.Split(fwd, ",")[0]); first != "" {
			return first
		}
	}
	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		return req.RemoteAddr
	}
	return host
}
