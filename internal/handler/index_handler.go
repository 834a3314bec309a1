package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/arturoeanton/bizreg-assistant/internal/domain"
	"github.com/arturoeanton/bizreg-assistant/internal/middleware"
	"github.com/arturoeanton/bizreg-assistant/internal/port"
)

// IndexController is the part of service.IndexManager the HTTP layer uses.
type IndexController interface {
	Status() domain.IndexStatus
	Start(ctx context.Context) error
	Subscribe() (<-chan domain.IndexStatus, func())
}

// IndexHandler exposes the knowledge index lifecycle.
type IndexHandler struct {
	indexes       IndexController
	rebuildGuard  fiber.Handler
	streamTimeout time.Duration
}

// NewIndexHandler creates a new index handler. rebuildGuard protects the
// rebuild endpoint.
func NewIndexHandler(indexes IndexController, rebuildGuard fiber.Handler) *IndexHandler {
	return &IndexHandler{
		indexes:       indexes,
		rebuildGuard:  rebuildGuard,
		streamTimeout: 5 * time.Minute,
	}
}

// Register sets up index routes.
func (h *IndexHandler) Register(router fiber.Router) {
	idx := router.Group("/index")
	idx.Get("/status", h.GetStatus)
	idx.Post("/rebuild", h.rebuildGuard, h.Rebuild)
	idx.Get("/stream", h.StreamSSE)
}

// GetStatus returns the current index status.
func (h *IndexHandler) GetStatus(c fiber.Ctx) error {
	return c.JSON(h.indexes.Status())
}

// Rebuild starts a background rebuild of the index.
func (h *IndexHandler) Rebuild(c fiber.Ctx) error {
	middleware.SetAuditAction(c, domain.AuditActionIndexRebuild)

	// The build outlives the request.
	if err := h.indexes.Start(context.Background()); err != nil {
		if errors.Is(err, port.ErrBuildInProgress) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error":  err.Error(),
				"status": h.indexes.Status(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(fiber.StatusAccepted).JSON(h.indexes.Status())
}

// StreamSSE streams index status changes via Server-Sent Events until the
// index reaches READY or DEGRADED.
func (h *IndexHandler) StreamSSE(c fiber.Ctx) error {
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")

	current := h.indexes.Status()
	if current.State.Built() {
		return c.SendString(sseEvent(current))
	}

	ch, cancel := h.indexes.Subscribe()
	timeout := h.streamTimeout

	return c.SendStreamWriter(func(w *bufio.Writer) {
		defer cancel()

		// Re-read after subscribing so a transition in between is not lost.
		status := h.indexes.Status()
		fmt.Fprint(w, sseEvent(status))
		if err := w.Flush(); err != nil || status.State.Built() {
			return
		}

		deadline := time.After(timeout)
		for {
			select {
			case update, ok := <-ch:
				if !ok {
					return
				}
				fmt.Fprint(w, sseEvent(update))
				if err := w.Flush(); err != nil {
					return
				}
				if update.State.Built() {
					return
				}
			case <-deadline:
				slog.Warn("index SSE timeout")
				return
			}
		}
	})
}

func sseEvent(status domain.IndexStatus) string {
	data, _ := json.Marshal(status)
	event := "progress"
	if status.State.Built() {
		event = "complete"
	}
	return fmt.Sprintf("event: %s\ndata: %s\n\n", event, data)
}
