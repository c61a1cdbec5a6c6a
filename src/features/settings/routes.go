package settings

import (
	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes registers the routes for the settings feature.
func RegisterRoutes(app *fiber.App, service *Service) {
	handler := NewHandler(service)

	group := app.Group("/settings")
	group.Get("/", handler.GetSettings)
	group.Get("/watch", handler.GetWatchPath)
	group.Get("/save", handler.GetSavePath)
	group.Get("/copy", handler.GetCopyPath)
	group.Put("/copy", handler.SetCopyPath)

	group.Post("/watch/select", handler.SelectWatchFolder)
	group.Post("/save/select", handler.SelectSaveFolder)
	group.Post("/copy/select", handler.SelectCopyFolder)
}
