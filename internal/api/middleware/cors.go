package middleware

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const defaultOrigin = "http://localhost:3000"

// SecureCORS returns CORS middleware restricted to origins.
// The wildcard origin is dropped in production.
func SecureCORS(origins []string, production bool) echo.MiddlewareFunc {
	return middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     AllowedOrigins(origins, production),
		AllowMethods:     []string{echo.GET, echo.POST, echo.PUT, echo.PATCH, echo.DELETE, echo.OPTIONS},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, echo.HeaderXRequestID},
		ExposeHeaders:    []string{echo.HeaderXRequestID, echo.HeaderContentDisposition},
		AllowCredentials: true,
		MaxAge:           300,
	})
}

// AllowedOrigins applies the production wildcard rule and the localhost default
func AllowedOrigins(origins []string, production bool) []string {
	out := make([]string, 0, len(origins))
	for _, origin := range origins {
		if origin == "" || (production && origin == "*") {
			continue
		}
		out = append(out, origin)
	}
	if len(out) == 0 {
		out = []string{defaultOrigin}
	}
	return out
}
