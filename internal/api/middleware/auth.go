// Package middleware provides HTTP middleware for the messaging API.
package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/icd-messaging-backend/internal/auth"
	"github.com/welldanyogia/icd-messaging-backend/internal/logger"
	"github.com/welldanyogia/icd-messaging-backend/internal/models"
)

// IdentityKey is the echo context key under which the verified identity is stored
const IdentityKey = "identity"

// TokenQueryParam carries the token for clients that cannot set headers (browser WebSockets)
const TokenQueryParam = "token"

// IdentityAuth verifies the bearer identity token and places the identity on the request context.
// The token is read from the Authorization header, falling back to the token query parameter.
func IdentityAuth(verifier *auth.TokenVerifier, audit *logger.AuditLogger) echo.MiddlewareFunc {
	if audit == nil {
		audit = logger.NewAuditLogger(nil)
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			token := auth.BearerToken(req.Header.Get(echo.HeaderAuthorization))
			if token == "" {
				token = c.QueryParam(TokenQueryParam)
			}

			identity, err := verifier.Verify(token)
			if err != nil {
				reason := "invalid token"
				if errors.Is(err, auth.ErrMissingToken) {
					reason = "missing token"
				}
				audit.AuthFailure(c.RealIP(), req.URL.Path, reason)
				return echo.NewHTTPError(http.StatusUnauthorized, map[string]string{
					"error": reason,
					"code":  "AUTHENTICATION_REQUIRED",
				})
			}

			c.SetRequest(req.WithContext(auth.WithIdentity(req.Context(), identity)))
			c.Set(IdentityKey, identity)
			return next(c)
		}
	}
}

// IdentityFrom returns the identity placed on c by IdentityAuth
func IdentityFrom(c echo.Context) (models.Identity, bool) {
	return auth.FromContext(c.Request().Context())
}
