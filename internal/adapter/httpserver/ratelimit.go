package httpserver

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

const limiterIdleExpiry = 5 * time.Minute

// callerKey buckets API traffic per chat group so one busy group cannot
// starve the others. Routes without a group fall back to the client IP.
func callerKey(c echo.Context) (string, error) {
	if group := c.Param("group"); group != "" {
		return "group:" + group, nil
	}
	return "ip:" + c.RealIP(), nil
}

// newAPIRateLimiter guards the API itself. It is independent of the
// per-actor interaction limiter, which produces outcomes instead of 429s.
func newAPIRateLimiter(perSecond float64, burst int) echo.MiddlewareFunc {
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(perSecond),
			Burst:     burst,
			ExpiresIn: limiterIdleExpiry,
		}),
		IdentifierExtractor: callerKey,
		ErrorHandler: func(_ echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusForbidden, "caller could not be identified").SetInternal(err)
		},
		DenyHandler: func(c echo.Context, key string, _ error) error {
			c.Response().Header().Set("Retry-After", "1")
			return echo.NewHTTPError(http.StatusTooManyRequests, "too many requests for "+key)
		},
	})
}
