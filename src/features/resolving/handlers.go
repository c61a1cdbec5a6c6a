package resolving

import (
	"log/slog"

	"github.com/contre95/snapsaver/src/media"
	"github.com/gofiber/fiber/v2"
)

// Handler is the handler for the resolving feature.
type Handler struct {
	service *Service
}

// NewHandler creates a new handler for the resolving feature.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type resolveRequest struct {
	ID             string `json:"id" form:"id"`
	Kind           string `json:"kind" form:"kind"`
	NewName        string `json:"newName" form:"newName"`
	DestinationDir string `json:"destinationDir" form:"destinationDir"`
}

// Resolve applies a decision to the pending file.
func (h *Handler) Resolve(c *fiber.Ctx) error {
	var req resolveRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "cannot parse request body",
		})
	}
	kind, err := media.ParseDecisionKind(req.Kind)
	if err != nil {
		return h.fail(c, err)
	}
	decision := media.Decision{Kind: kind, NewName: req.NewName, DestinationDir: req.DestinationDir}

	outcome, err := h.service.ResolvePending(c.Context(), req.ID, decision)
	if err != nil {
		slog.Error("Failed to resolve file", "id", req.ID, "kind", req.Kind, "error", err)
		return h.fail(c, err)
	}
	return h.ok(c, outcome)
}

// DeleteFile removes a file by path.
func (h *Handler) DeleteFile(c *fiber.Ctx) error {
	type deleteRequest struct {
		Path string `json:"path" form:"path"`
	}
	var req deleteRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "cannot parse request body",
		})
	}
	outcome, err := h.service.DeleteFile(c.Context(), req.Path)
	if err != nil {
		slog.Error("Failed to delete file", "path", req.Path, "error", err)
		return h.fail(c, err)
	}
	return h.ok(c, outcome)
}

// GetHistory lists recent decisions.
func (h *Handler) GetHistory(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 20)
	records, err := h.service.History(c.Context(), limit)
	if err != nil {
		slog.Error("Failed to load history", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	if c.Get("HX-Request") == "true" {
		return c.Render("history", fiber.Map{"Records": records})
	}
	return c.JSON(records)
}

func (h *Handler) ok(c *fiber.Ctx, outcome media.Outcome) error {
	if c.Get("HX-Request") == "true" {
		c.Response().Header.Set("HX-Trigger", "historyUpdated")
		return c.Render("toast/toastOk", fiber.Map{
			"Msg": outcome.Message,
		})
	}
	return c.JSON(outcome)
}

func (h *Handler) fail(c *fiber.Ctx, err error) error {
	if c.Get("HX-Request") == "true" {
		return c.Render("toast/toastErr", fiber.Map{
			"Msg": err.Error(),
		})
	}
	return c.Status(statusFor(err)).JSON(fiber.Map{
		"error": err.Error(),
	})
}
