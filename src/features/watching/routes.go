package watching

import (
	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes registers the routes for the watching feature.
func RegisterRoutes(app *fiber.App, service *Service) {
	handler := NewHandler(service)

	app.Get("/watcher/status", handler.GetStatus)
	app.Post("/watcher/restart", handler.RestartWatcher)
	app.Get("/pending", handler.GetPending)
}
