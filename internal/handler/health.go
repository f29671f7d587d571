package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/BitGladiator/image-queue-processor/internal/metrics"
	"github.com/BitGladiator/image-queue-processor/internal/model"
	"github.com/BitGladiator/image-queue-processor/pkg/response"
)

// HealthHandler serves the liveness probe and the metrics exposition.
type HealthHandler struct {
	aggregator *metrics.Aggregator
}

func NewHealthHandler(aggregator *metrics.Aggregator) *HealthHandler {
	return &HealthHandler{aggregator: aggregator}
}

// Health handles GET /health
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	return response.OK(c, model.HealthResponse{
		Status:        "ok",
		Timestamp:     time.Now(),
		UptimeSeconds: h.aggregator.Uptime().Seconds(),
	})
}

// Metrics handles GET /metrics
func (h *HealthHandler) Metrics(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, "text/plain; charset=utf-8")
	return c.SendString(h.aggregator.RenderText())
}
