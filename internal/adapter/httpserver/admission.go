package httpserver

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/seibert-media/lower-thirds-tools/internal/adapter/metrics"
	"github.com/seibert-media/lower-thirds-tools/internal/platform/config"
	apperrors "github.com/seibert-media/lower-thirds-tools/internal/platform/errors"
)

const attemptLimiterExpiry = 5 * time.Minute

const (
	rejectAttemptRate  = "attempt_rate"
	rejectOpenSessions = "open_sessions"
)

// socketAdmission gates new socket connections per client address: a token
// bucket on connection attempts and a cap on concurrently open sessions.
// The session slot is held until the socket handler returns.
type socketAdmission struct {
	attempts   *middleware.RateLimiterMemoryStore
	sessions   *ipConnectionLimiter
	rejections *prometheus.CounterVec
}

// newSocketAdmission builds the policy from cfg. httpMetrics may be nil.
func newSocketAdmission(cfg *config.Config, httpMetrics *metrics.HTTPMetrics) *socketAdmission {
	a := &socketAdmission{
		attempts: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(cfg.SocketRateLimit),
			Burst:     cfg.SocketRateBurst,
			ExpiresIn: attemptLimiterExpiry,
		}),
		sessions: newIPConnectionLimiter(cfg.MaxConnectionsPerIP),
	}
	if httpMetrics != nil {
		a.rejections = httpMetrics.SocketRejections
	}
	return a
}

func (a *socketAdmission) middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ip := c.RealIP()

		if allowed, err := a.attempts.Allow(ip); err != nil || !allowed {
			return a.reject(ip, rejectAttemptRate, "Too many connection attempts, try again later.")
		}
		if !a.sessions.acquire(ip) {
			return a.reject(ip, rejectOpenSessions, "Too many open connections from this address.")
		}
		defer a.sessions.release(ip)

		return next(c)
	}
}

func (a *socketAdmission) reject(ip, reason, message string) error {
	if a.rejections != nil {
		a.rejections.WithLabelValues(reason).Inc()
	}
	return apperrors.RateLimitedError(message).
		WithField("remote_addr", ip).
		WithField("reason", reason)
}
