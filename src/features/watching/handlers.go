package watching

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
)

// Handler is the handler for the watching feature.
type Handler struct {
	service *Service
}

// NewHandler creates a new handler for the watching feature.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// GetStatus returns whether the watcher runs, on which folder, and the pending file.
func (h *Handler) GetStatus(c *fiber.Ctx) error {
	return c.JSON(h.service.Status())
}

// RestartWatcher re-creates the watcher on the configured folder.
func (h *Handler) RestartWatcher(c *fiber.Ctx) error {
	if err := h.service.Restart("manual"); err != nil {
		slog.Error("Failed to restart watcher", "error", err)
		if c.Get("HX-Request") == "true" {
			return c.Render("toast/toastErr", fiber.Map{
				"Msg": "Failed to restart watcher: " + err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	if c.Get("HX-Request") == "true" {
		return c.Render("toast/toastOk", fiber.Map{
			"Msg": "File watcher restarted",
		})
	}
	return c.JSON(h.service.Status())
}

// GetPending returns the file waiting for a decision, or 204 when there is none.
func (h *Handler) GetPending(c *fiber.Ctx) error {
	file, ok := h.service.Pending()
	if !ok {
		return c.SendStatus(fiber.StatusNoContent)
	}
	return c.JSON(file)
}
