package cmd

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"threadscope/config"
	"threadscope/handlers/api"
	"threadscope/loader"
	"threadscope/middleware"
	"threadscope/models"
	"threadscope/storage"
	"threadscope/utils"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP analysis service",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		analysisStorage, err := storage.NewAnalysisStorage(cfg.Storage.Path)
		if err != nil {
			return err
		}
		defer analysisStorage.Close()

		cache := utils.NewMemoryCache[*models.Document](cfg.Cache.TTL.Duration, time.Minute)
		defer cache.Close()

		app := newApp(cfg, analysisStorage, cache)

		utils.Log.Info("Starting server on port %d...", cfg.Server.Port)
		if err := app.Listen(fmt.Sprintf(":%d", cfg.Server.Port)); err != nil {
			return fmt.Errorf("error starting server: %w", err)
		}
		return nil
	},
}

// newApp wires middleware and routes around the given storage
func newApp(cfg *config.Config, analysisStorage *storage.AnalysisStorage, cache *utils.MemoryCache[*models.Document]) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "threadscope",
		BodyLimit:    cfg.Server.BodyLimitMB * 1024 * 1024,
		ErrorHandler: api.ErrorHandler,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(middleware.RequestMetrics())

	app.Get("/health", api.Health)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	handler := api.NewAnalysisHandler(analysisStorage, cache,
		loader.Options{HTMLFallback: cfg.Parser.HTMLFallback},
		cfg.Output.Workers, cfg.Output.Indent)

	apiRoutes := app.Group("/api",
		middleware.RateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window.Duration),
		middleware.BearerAuth(cfg.JWT.Secret))
	api.RegisterRoutes(apiRoutes, handler)

	// 404 Handler for undefined routes
	app.Use(func(c *fiber.Ctx) error {
		return utils.NotFoundError("Not found", nil)
	})

	return app
}
