package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
)

// RegisterRoutes registers the prometheus endpoint with the Fiber app.
func RegisterRoutes(app *fiber.App, recorder *Recorder) {
	app.Get("/metrics", adaptor.HTTPHandler(recorder.Handler()))
}
