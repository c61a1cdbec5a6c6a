package notifying

import (
	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes registers the routes for the notifying feature.
func RegisterRoutes(app *fiber.App, hub *Hub) {
	handler := NewHandler(hub)

	app.Get("/events", handler.Events)
}
