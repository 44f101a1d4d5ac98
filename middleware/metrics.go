package middleware

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"threadscope/metrics"
	"threadscope/utils"
)

// RequestMetrics counts requests by method, route pattern and status
func RequestMetrics() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if e, ok := err.(*fiber.Error); ok {
				status = e.Code
			} else if code, ok := errorCode(err); ok {
				status = code
			}
		}

		metrics.HTTPRequests.WithLabelValues(c.Method(), c.Route().Path, strconv.Itoa(status)).Inc()
		return err
	}
}

func errorCode(err error) (int, bool) {
	if appErr, ok := utils.AsAppError(err); ok {
		return appErr.Code, true
	}
	return 0, false
}
