package handler

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/BitGladiator/image-queue-processor/internal/model"
	"github.com/BitGladiator/image-queue-processor/internal/store"
	"github.com/BitGladiator/image-queue-processor/pkg/response"
)

// AdminHandler exposes the destructive history operations to operators.
type AdminHandler struct {
	history   *store.HistoryStore
	validator *validator.Validate
}

func NewAdminHandler(historyStore *store.HistoryStore, v *validator.Validate) *AdminHandler {
	return &AdminHandler{
		history:   historyStore,
		validator: v,
	}
}

// Delete handles DELETE /api/admin/history/:jobId
func (h *AdminHandler) Delete(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	existed, err := h.history.Delete(c.Context(), jobID)
	if err != nil {
		return response.StoreError(c, "Failed to delete record")
	}
	if !existed {
		return response.NotFound(c, "Record not found")
	}

	return response.NoContent(c)
}

// Purge handles POST /api/admin/history/purge
func (h *AdminHandler) Purge(c *fiber.Ctx) error {
	var req model.PurgeRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	removed, err := h.history.PurgeOlderThan(c.Context(), time.Duration(req.Days)*24*time.Hour)
	if err != nil {
		return response.StoreError(c, "Failed to purge records")
	}

	return response.OK(c, model.PurgeResponse{Removed: removed})
}
