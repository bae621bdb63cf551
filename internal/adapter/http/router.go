package http

import (
	"context"
	"errors"
	"time"

	"application-pdf/internal/infrastructure/logger"
	"application-pdf/internal/infrastructure/metrics"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"
)

// ServerConfig holds the fiber settings of the API server.
type ServerConfig struct {
	AppName      string
	BodyLimit    int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

// NewApp builds the fiber application with middleware and routes.
func NewApp(cfg ServerConfig, h *Handler, m *metrics.Metrics, health HealthCheck, log *zap.Logger) *fiber.App {
	if log == nil {
		log = zap.NewNop()
	}
	app := fiber.New(fiber.Config{
		AppName:               cfg.AppName,
		BodyLimit:             cfg.BodyLimit,
		ReadTimeout:           cfg.ReadTimeout,
		WriteTimeout:          cfg.WriteTimeout,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	app.Use(requestid.New(requestid.Config{ContextKey: logger.RequestIDKey}))
	app.Use(logger.FiberMiddleware(log))
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))

	app.Get("/healthz", healthHandler(health))
	if m != nil {
		app.Get("/metrics", adaptor.HTTPHandler(m.Handler()))
	}

	api := app.Group("/api/submissions")
	api.Post("/", h.CreateSubmission)
	api.Get("/:id", h.GetSubmission)
	api.Get("/:id/pdf", h.DownloadPDF)
	api.Post("/:id/retry", h.RetrySubmission)

	return app
}

// errorHandler writes every error as a JSON body. Unexpected errors are
// hidden from the client; the request logger records them.
func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(errorBody(fe.Message))
	}
	return c.Status(fiber.StatusInternalServerError).JSON(errorBody("internal server error"))
}

func healthHandler(check HealthCheck) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if check != nil {
			ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable", "error": err.Error()})
			}
		}
		return c.JSON(fiber.Map{"status": "ok"})
	}
}
