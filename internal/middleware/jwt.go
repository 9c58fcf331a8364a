package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"ledgerimport/internal/common"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// JWTCustomClaims are the claims expected on every API token.
type JWTCustomClaims struct {
	UserID   uuid.UUID `json:"user_id"`
	TenantID uuid.UUID `json:"tenant_id"`
	jwt.RegisteredClaims
}

// Validate is called by the jwt parser after the registered claims are checked.
func (c *JWTCustomClaims) Validate() error {
	if c.TenantID == uuid.Nil {
		return errors.New("missing tenant_id claim")
	}
	return nil
}

// AuthOptions selects the token verification keys. JWKSURL wins over Secret.
type AuthOptions struct {
	Secret  string
	JWKSURL string
}

// NewJWTMiddleware verifies bearer tokens and puts the tenant and user ids on
// the request context. The returned stop func ends JWKS background refresh.
func NewJWTMiddleware(opts AuthOptions, logger logrus.FieldLogger) (echo.MiddlewareFunc, func(), error) {
	cfg := echojwt.Config{
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return new(JWTCustomClaims)
		},
		SuccessHandler: func(c echo.Context) {
			token, ok := c.Get("user").(*jwt.Token)
			if !ok {
				return
			}
			claims, ok := token.Claims.(*JWTCustomClaims)
			if !ok {
				return
			}
			ctx := context.WithValue(c.Request().Context(), common.UserIDKey, claims.UserID)
			ctx = context.WithValue(ctx, common.TenantIDKey, claims.TenantID)
			c.SetRequest(c.Request().WithContext(ctx))
		},
		ErrorHandler: func(c echo.Context, err error) error {
			logger.WithError(err).WithField("path", c.Path()).Debug("rejected token")
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
		},
	}

	stop := func() {}
	switch {
	case opts.JWKSURL != "":
		jwks, err := keyfunc.Get(opts.JWKSURL, keyfunc.Options{
			RefreshInterval:   time.Hour,
			RefreshRateLimit:  5 * time.Minute,
			RefreshUnknownKID: true,
			RefreshErrorHandler: func(err error) {
				logger.WithError(err).Warn("failed to refresh JWKS")
			},
		})
		if err != nil {
			return nil, nil, err
		}
		cfg.KeyFunc = jwks.Keyfunc
		stop = jwks.EndBackground
	case opts.Secret != "":
		cfg.SigningKey = []byte(opts.Secret)
	default:
		return nil, nil, errors.New("either a JWT secret or a JWKS url is required")
	}

	return echojwt.WithConfig(cfg), stop, nil
}

// RequireTenant rejects requests that reached a handler without a tenant.
func RequireTenant(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, ok := common.GetTenantIDFromContext(c.Request().Context()); !ok {
			return common.SendUnauthorizedError(c)
		}
		return next(c)
	}
}
