package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// RateLimiter caps the request rate of the whole server with a token bucket.
type RateLimiter struct {
	limiter *rate.Limiter
	now     func() time.Time
}

// NewRateLimiter creates a limiter allowing perSecond requests with the given burst.
func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
		now:     time.Now,
	}
}

// Allow reports whether a request arriving now may proceed.
func (r *RateLimiter) Allow() bool {
	return r.limiter.AllowN(r.now(), 1)
}

// Middleware rejects requests with 429 once the bucket is empty.
func (r *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !r.Allow() {
				c.Response().Header().Set("Retry-After", "1")
				return DataResponse(c, http.StatusTooManyRequests, []*AppError{
					NewAppError("ERR_RATE_LIMITED", "", "too many requests", http.StatusTooManyRequests),
				})
			}
			return next(c)
		}
	}
}
