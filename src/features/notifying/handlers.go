package notifying

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
)

const keepAliveInterval = 15 * time.Second

// Handler serves the notification stream.
type Handler struct {
	hub *Hub
}

// NewHandler creates a new handler for the notifying feature.
func NewHandler(hub *Hub) *Handler {
	return &Handler{hub: hub}
}

// Events streams notifications as server sent events until the client goes away.
func (h *Handler) Events(c *fiber.Ctx) error {
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	id, events := h.hub.Subscribe()
	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer h.hub.Unsubscribe(id)
		slog.Debug("Events stream opened", "id", id)

		if err := writeComment(w, "connected"); err != nil {
			return
		}
		ticker := time.NewTicker(keepAliveInterval)
		defer ticker.Stop()
		for {
			select {
			case n, ok := <-events:
				if !ok {
					return
				}
				if err := writeEvent(w, n); err != nil {
					slog.Debug("Events stream closed", "id", id, "error", err)
					return
				}
			case <-ticker.C:
				if err := writeComment(w, "ping"); err != nil {
					slog.Debug("Events stream closed", "id", id, "error", err)
					return
				}
			}
		}
	}))
	return nil
}

// writeEvent writes one SSE frame and flushes it.
func writeEvent(w *bufio.Writer, n Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", n.ID, n.Kind, payload); err != nil {
		return err
	}
	return w.Flush()
}

func writeComment(w *bufio.Writer, text string) error {
	if _, err := fmt.Fprintf(w, ": %s\n\n", text); err != nil {
		return err
	}
	return w.Flush()
}
