package resolving

import (
	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes registers the routes for the resolving feature.
func RegisterRoutes(app *fiber.App, service *Service) {
	handler := NewHandler(service)

	app.Post("/resolve", handler.Resolve)
	app.Post("/files/delete", handler.DeleteFile)
	app.Get("/history", handler.GetHistory)
}
