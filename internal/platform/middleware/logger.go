package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/polmed/mobiclinic/internal/platform/auth"
)

// Logger emits one structured line per request. Besides the usual HTTP
// fields it records who acted (user and role from the auth context) and
// which field device the request came from, since most writes originate
// on clinic tablets syncing through the agent.
func Logger(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			rid, _ := c.Get("request_id").(string)
			deviceID := c.Request().Header.Get("X-Device-ID")

			err := next(c)

			// Auth middleware runs further down the chain, so the user
			// identity is only on the request context after next returns.
			req := c.Request()
			ctx := req.Context()

			evt := logger.Info()
			if err != nil {
				evt = logger.Error().Err(err)
			}

			evt.
				Str("request_id", rid).
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", c.Response().Status).
				Dur("latency", time.Since(start)).
				Str("remote_ip", c.RealIP())

			if user := auth.UserNameFromContext(ctx); user != "" {
				evt = evt.Str("user", user)
			}
			if role := auth.RoleFromContext(ctx); role != "" {
				evt = evt.Str("role", role)
			}
			if deviceID != "" {
				evt = evt.Str("device_id", deviceID)
			}

			evt.Msg("request")
			return err
		}
	}
}
