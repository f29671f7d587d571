package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/BitGladiator/image-queue-processor/internal/model"
	"github.com/BitGladiator/image-queue-processor/internal/store"
	"github.com/BitGladiator/image-queue-processor/pkg/response"
)

const defaultHistoryLimit = 50

type HistoryHandler struct {
	history   *store.HistoryStore
	validator *validator.Validate
}

func NewHistoryHandler(historyStore *store.HistoryStore, v *validator.Validate) *HistoryHandler {
	return &HistoryHandler{
		history:   historyStore,
		validator: v,
	}
}

// List handles GET /api/history
func (h *HistoryHandler) List(c *fiber.Ctx) error {
	var query model.HistoryQuery
	if err := c.QueryParser(&query); err != nil {
		return response.ValidationError(c, "Invalid query parameters", nil)
	}

	if err := h.validator.Struct(&query); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	if query.Limit == 0 {
		query.Limit = defaultHistoryLimit
	}

	records, err := h.history.List(c.Context(), query.Limit, query.Offset, query.Filter)
	if err != nil {
		return response.StoreError(c, "Failed to read history")
	}

	return response.OK(c, model.HistoryPage{
		Records: records,
		Limit:   query.Limit,
		Offset:  query.Offset,
	})
}

// Stats handles GET /api/history/stats
func (h *HistoryHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.history.Stats(c.Context())
	if err != nil {
		return response.StoreError(c, "Failed to compute history stats")
	}

	return response.OK(c, stats)
}
