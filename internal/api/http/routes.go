package httpapi

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/agrorain/internal/export"
	"github.com/i474232898/agrorain/internal/observability"
	"github.com/i474232898/agrorain/internal/rainfall"
	"github.com/i474232898/agrorain/internal/store"
)

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *rainfall.Service) {
	v1 := app.Group("/api/v1")

	v1.Get("/gauges", func(c *fiber.Ctx) error {
		return c.JSON(service.Gauges())
	})

	v1.Post("/gauges", func(c *fiber.Ctx) error {
		var in rainfall.GaugeInput
		if err := c.BodyParser(&in); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid gauge payload: "+err.Error())
		}

		g, err := service.CreateGauge(c.UserContext(), in)
		if err != nil {
			return writeError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(g)
	})

	v1.Delete("/gauges/:id", func(c *fiber.Ctx) error {
		confirmed := c.QueryBool("confirm", false)
		if err := service.DeleteGauge(c.UserContext(), c.Params("id"), confirmed); err != nil {
			return writeError(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	v1.Get("/gauges/summaries", func(c *fiber.Ctx) error {
		return c.JSON(service.Summaries())
	})

	v1.Get("/records", func(c *fiber.Ctx) error {
		records := service.Records()
		if gaugeID := c.Query("gaugeId"); gaugeID != "" {
			filtered := records[:0]
			for _, r := range records {
				if r.GaugeID == gaugeID {
					filtered = append(filtered, r)
				}
			}
			records = filtered
		}
		return c.JSON(records)
	})

	v1.Post("/records", func(c *fiber.Ctx) error {
		var in rainfall.RecordInput
		if err := c.BodyParser(&in); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid record payload: "+err.Error())
		}

		r, err := service.CreateRecord(c.UserContext(), in)
		if err != nil {
			return writeError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(r)
	})

	v1.Get("/dashboard", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"stats":  service.Stats(),
			"series": service.Series(),
		})
	})

	v1.Get("/dashboard/series", func(c *fiber.Ctx) error {
		return c.JSON(service.Series())
	})

	v1.Get("/map", func(c *fiber.Ctx) error {
		return c.JSON(service.MapView())
	})

	v1.Get("/map/export.kml", func(c *fiber.Ctx) error {
		var buf bytes.Buffer
		if err := export.WriteKML(&buf, service.Summaries()); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to export map")
		}

		c.Set(fiber.HeaderContentType, export.ContentType)
		c.Set(fiber.HeaderContentDisposition,
			fmt.Sprintf("attachment; filename=%q", export.Filename(service.Now())))
		return c.Send(buf.Bytes())
	})

	v1.Get("/status", func(c *fiber.Ctx) error {
		return c.JSON(service.Status())
	})
}

// ErrorHandler renders every error as {"error":true,"message":...}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}

// RequestMetrics counts requests by route template and status.
func RequestMetrics(m *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		status := c.Response().StatusCode()
		var e *fiber.Error
		if errors.As(err, &e) {
			status = e.Code
		} else if err != nil {
			status = fiber.StatusInternalServerError
		}

		m.HTTPRequests.WithLabelValues(c.Route().Path, strconv.Itoa(status)).Inc()
		return err
	}
}

// writeError maps service errors onto HTTP statuses. Anything that is not
// an input problem is a failed write against the backend.
func writeError(err error) error {
	switch {
	case errors.Is(err, rainfall.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, rainfall.ErrConfirmationRequired):
		return fiber.NewError(fiber.StatusPreconditionRequired, "deletion must be confirmed with confirm=true")
	case errors.Is(err, store.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrConflict):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	default:
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}
}
