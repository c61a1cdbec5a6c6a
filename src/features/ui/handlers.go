package ui

import (
	"log/slog"

	"github.com/contre95/snapsaver/src/features/config"
	"github.com/contre95/snapsaver/src/features/settings"
	"github.com/contre95/snapsaver/src/features/watching"
	"github.com/contre95/snapsaver/src/media"
	"github.com/gofiber/fiber/v2"
)

// Handler is the handler for the UI feature.
type Handler struct {
	configManager *config.Manager
	settings      *settings.Service
	watching      *watching.Service
}

// NewHandler creates a new handler for the UI feature.
func NewHandler(configManager *config.Manager, settingsService *settings.Service, watchingService *watching.Service) *Handler {
	return &Handler{
		configManager: configManager,
		settings:      settingsService,
		watching:      watchingService,
	}
}

// RenderDashboard renders the main dashboard page.
func (h *Handler) RenderDashboard(c *fiber.Ctx) error {
	slog.Debug("RenderDashboard handler called")
	folders, err := h.settings.Snapshot(c.Context())
	if err != nil {
		return err
	}
	data := fiber.Map{
		"Title":      "Dashboard",
		"Folders":    folders,
		"Status":     h.watching.Status(),
		"Extensions": media.SupportedExtensions(),
		"Asciify":    h.configManager.Get().Naming.Asciify,
	}
	if c.Get("HX-Request") != "true" {
		data["Section"] = "dashboard"
		return c.Render("main", data)
	}
	return c.Render("sections/dashboard", data)
}

// RenderSettingsSection renders the folder settings form.
func (h *Handler) RenderSettingsSection(c *fiber.Ctx) error {
	slog.Debug("RenderSettingsSection handler called")
	folders, err := h.settings.Snapshot(c.Context())
	if err != nil {
		return err
	}
	data := fiber.Map{
		"Title":   "Settings",
		"Folders": folders,
	}
	if c.Get("HX-Request") != "true" {
		data["Section"] = "settings"
		return c.Render("main", data)
	}
	return c.Render("sections/settings", data)
}

// RenderPendingCard renders the decision form for the pending file.
func (h *Handler) RenderPendingCard(c *fiber.Ctx) error {
	file, ok := h.watching.Pending()
	if !ok {
		return c.Render("cards/pending", fiber.Map{})
	}
	return c.Render("cards/pending", fiber.Map{"File": file})
}
