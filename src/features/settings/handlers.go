package settings

import (
	"context"
	"log/slog"

	"github.com/contre95/snapsaver/src/media"
	"github.com/gofiber/fiber/v2"
)

// Handler is the handler for the settings feature.
type Handler struct {
	service *Service
}

// NewHandler creates a new handler for the settings feature.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type pathRequest struct {
	Path string `json:"path" form:"path"`
}

// GetSettings returns the three directories.
func (h *Handler) GetSettings(c *fiber.Ctx) error {
	cfg, err := h.service.Snapshot(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(cfg)
}

func (h *Handler) GetSavePath(c *fiber.Ctx) error {
	path, err := h.service.GetSavePath(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"path": path})
}

func (h *Handler) GetCopyPath(c *fiber.Ctx) error {
	path, err := h.service.GetCopyPath(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"path": path})
}

func (h *Handler) GetWatchPath(c *fiber.Ctx) error {
	path, err := h.service.GetWatchPath(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"path": path})
}

// SetCopyPath stores the copy folder without a picker.
func (h *Handler) SetCopyPath(c *fiber.Ctx) error {
	var req pathRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "cannot parse request body",
		})
	}
	if err := h.service.SetCopyPath(c.Context(), req.Path); err != nil {
		slog.Error("Failed to set copy path", "path", req.Path, "error", err)
		return respondErr(c, err)
	}
	return respondOk(c, "Copy folder updated", fiber.Map{"path": req.Path})
}

func (h *Handler) SelectWatchFolder(c *fiber.Ctx) error {
	return h.selectFolder(c, "Watch", h.service.SelectWatchFolder)
}

func (h *Handler) SelectSaveFolder(c *fiber.Ctx) error {
	return h.selectFolder(c, "Save", h.service.SelectSaveFolder)
}

func (h *Handler) SelectCopyFolder(c *fiber.Ctx) error {
	return h.selectFolder(c, "Copy", h.service.SelectCopyFolder)
}

func (h *Handler) selectFolder(c *fiber.Ctx, label string, pick func(context.Context, FolderPicker) (string, error)) error {
	var req pathRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "cannot parse request body",
		})
	}
	path, err := pick(c.Context(), PathPicker(req.Path))
	if err != nil {
		slog.Error("Failed to select folder", "folder", label, "path", req.Path, "error", err)
		return respondErr(c, err)
	}
	if path == "" {
		return respondOk(c, label+" folder unchanged", fiber.Map{"path": nil, "selected": false})
	}
	c.Response().Header.Set("HX-Trigger", "settingsUpdated")
	return respondOk(c, label+" folder set to "+path, fiber.Map{"path": path, "selected": true})
}

func isHTMX(c *fiber.Ctx) bool {
	return c.Get("HX-Request") == "true"
}

func respondOk(c *fiber.Ctx, msg string, body fiber.Map) error {
	if isHTMX(c) {
		return c.Render("toast/toastOk", fiber.Map{"Msg": msg})
	}
	return c.JSON(body)
}

func respondErr(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	if media.IsUserError(err) {
		status = fiber.StatusBadRequest
	}
	if isHTMX(c) {
		return c.Render("toast/toastErr", fiber.Map{"Msg": err.Error()})
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}
