package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpapi "github.com/i474232898/agrorain/internal/api/http"
	"github.com/i474232898/agrorain/internal/config"
	"github.com/i474232898/agrorain/internal/observability"
	"github.com/i474232898/agrorain/internal/rainfall"
	"github.com/i474232898/agrorain/internal/scheduler"
	"github.com/i474232898/agrorain/internal/store"
)

func main() {
	// Load configuration (reads .env when present).
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logg := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logg)

	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Backend is chosen once for the whole session.
	sel, err := store.Open(ctx, cfg.StoreConfig(), logg)
	if err != nil {
		logg.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	backend := sel.Store
	metrics.Backend.WithLabelValues(string(backend.Kind())).Set(1)

	service := rainfall.NewService(backend, clockwork.NewRealClock(), logg, metrics, cfg.ServiceOptions(sel.OfflineReason))

	svcCtx, cancelSvc := context.WithCancel(ctx)
	service.Start(svcCtx)

	// Periodic connectivity probe for the remote backend.
	sched := scheduler.New(service, cfg.ProbeInterval, logg)
	if err := sched.Start(); err != nil {
		logg.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}

	app := fiber.New(fiber.Config{
		AppName:               "agrorain",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())
	app.Use(httpapi.RequestMetrics(metrics))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "agrorain",
			"backend": service.Backend(),
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	httpapi.RegisterRoutes(app, service)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			logg.Error("fiber server stopped", "error", err)
			stop()
		}
	}()
	logg.Info("listening", "port", cfg.Port, "backend", backend.Kind())

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logg.Warn("error during shutdown", "error", err)
	}

	sched.Stop()
	cancelSvc()
	service.Wait()

	if err := backend.Close(); err != nil {
		logg.Warn("closing store failed", "error", err)
	}
	logg.Info("stopped")
}
