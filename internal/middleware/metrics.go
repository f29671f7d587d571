package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/BitGladiator/image-queue-processor/internal/metrics"
)

// Metrics records every inbound request and its duration on the aggregator.
func Metrics(aggregator *metrics.Aggregator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		aggregator.ObserveRequest(time.Since(start))
		return err
	}
}
