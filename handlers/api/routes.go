package api

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"threadscope/utils"
)

// RegisterRoutes mounts the analysis endpoints under router
func RegisterRoutes(router fiber.Router, h *AnalysisHandler) {
	router.Post("/analyses", h.CreateAnalysis)
	router.Get("/analyses", h.ListAnalyses)
	router.Get("/analyses/:id", h.GetAnalysis)
	router.Get("/analyses/:id/threads", h.GetThreads)
	router.Get("/analyses/:id/threads/:threadId", h.GetThread)
	router.Delete("/analyses/:id", h.DeleteAnalysis)
}

// Health reports liveness
func Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// ErrorHandler renders AppError and fiber errors as {"error": ...}
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := err.Error()

	if appErr, ok := utils.AsAppError(err); ok {
		code = appErr.Code
		message = appErr.Message
		if code >= fiber.StatusInternalServerError {
			utils.Log.Error("Application error: %v", appErr)
		} else {
			utils.Log.Debug("Request rejected: %v", appErr)
		}
	} else if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": message,
	})
}
