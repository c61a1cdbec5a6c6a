package hosting

import (
	"log/slog"
	"slices"
	"time"

	"github.com/gofiber/fiber/v2"
)

// quietPaths are polled by tooling and only logged when they fail.
var quietPaths = []string{"/health", "/metrics"}

// RequestLogMiddleware logs every request. Server errors log at error level,
// client errors at warn, the rest at debug.
func RequestLogMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		requestType := "api"
		switch {
		case c.Get("HX-Request") == "true":
			requestType = "htmx"
		case c.Path() == "/events":
			requestType = "stream"
		}

		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		attrs := []any{
			"type", requestType,
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"duration", time.Since(start).String(),
		}

		switch {
		case status >= 500:
			slog.Error("HTTP request", append(attrs, "error", err)...)
		case status >= 400:
			slog.Warn("HTTP request", append(attrs, "error", err)...)
		case slices.Contains(quietPaths, c.Path()):
		default:
			slog.Debug("HTTP request", attrs...)
		}
		return err
	}
}
