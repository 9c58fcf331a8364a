package middleware

import (
	"time"

	"ledgerimport/internal/caching"
	"ledgerimport/internal/common"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// TenantRateLimit allows at most limit requests per tenant and window for the
// wrapped routes. Cache errors let the request through.
func TenantRateLimit(cache caching.ImportStatusCache, scope string, limit int, window time.Duration, logger logrus.FieldLogger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tenantID, ok := common.GetTenantIDFromContext(c.Request().Context())
			if !ok || limit <= 0 {
				return next(c)
			}

			limited, err := cache.IsRateLimited(c.Request().Context(), scope+":"+tenantID.String(), limit, window)
			if err != nil {
				logger.WithError(err).WithField("tenant_id", tenantID).Warn("rate limit check failed")
				return next(c)
			}
			if limited {
				return common.SendTooManyRequests(c, "too many uploads, retry later")
			}
			return next(c)
		}
	}
}
