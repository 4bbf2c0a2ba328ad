package reconciliation

import (
	"errors"

	"drift-reconciler/core/archive"
	"drift-reconciler/core/logger"
	"drift-reconciler/core/reconcile"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for reconciliation.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the reconciliation routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/reconciliation/:entity")
	group.Post("/run", h.requireEntity, h.HandleRun)
	group.Get("/latest", h.requireEntity, h.requireTenant, h.HandleLatest)
	group.Get("/history", h.requireEntity, h.requireTenant, h.HandleHistory)
	group.Get("/counts", h.requireEntity, h.requireTenant, h.HandleCounts)
	group.Get("/reports", h.requireEntity, h.requireTenant, h.HandleReports)
	group.Get("/reports/:id", h.requireEntity, h.requireTenant, h.HandleReport)
}

type runRequest struct {
	TenantID    string `json:"tenant_id"`
	WindowStart int64  `json:"window_start"`
	WindowEnd   int64  `json:"window_end"`
}

func (h *Handler) requireEntity(c *fiber.Ctx) error {
	if !h.service.HasEntity(c.Params("entity")) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "unknown entity type: " + c.Params("entity")})
	}
	return c.Next()
}

func (h *Handler) requireTenant(c *fiber.Ctx) error {
	if c.Query("tenant") == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "tenant query parameter is required"})
	}
	return c.Next()
}

func (h *Handler) window(c *fiber.Ctx) (reconcile.Window, bool) {
	w := h.service.Window(int64(c.QueryInt("start")), int64(c.QueryInt("end")))
	return w, w.Validate() == nil
}

// HandleRun triggers one reconciliation attempt for a tenant.
// The body is optional; tenant and window may also be passed as query parameters.
func (h *Handler) HandleRun(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	entity := c.Params("entity")

	req := runRequest{
		TenantID:    c.Query("tenant"),
		WindowStart: int64(c.QueryInt("start")),
		WindowEnd:   int64(c.QueryInt("end")),
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
	}
	if req.TenantID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "tenant_id is required"})
	}
	window := h.service.Window(req.WindowStart, req.WindowEnd)
	if err := window.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	l.Info("Manual reconciliation requested",
		zap.String("tenant", req.TenantID),
		zap.String("entity", entity),
		zap.Int64("window_start", window.Start),
		zap.Int64("window_end", window.End))

	result, err := h.service.Run(c.UserContext(), req.TenantID, entity, window)
	if err != nil {
		l.Error("Manual reconciliation failed", zap.Error(err))
		return c.Status(runErrorStatus(err)).JSON(fiber.Map{
			"status": result.Status,
			"window": result.Window,
			"error":  err.Error(),
		})
	}
	return c.JSON(result)
}

func runErrorStatus(err error) int {
	switch {
	case errors.Is(err, reconcile.ErrLockNotObtained):
		return fiber.StatusConflict
	case reconcile.IsKind(err, reconcile.Transient):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// HandleLatest returns the newest record of a tenant's pair.
func (h *Handler) HandleLatest(c *fiber.Ctx) error {
	tenant := c.Query("tenant")

	record, err := h.service.Latest(c.UserContext(), tenant, c.Params("entity"))
	if err != nil {
		logger.WithRayID(h.service.logger, c).Error("Failed to load latest record", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if record == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no reconciliation recorded yet"})
	}
	return c.JSON(record)
}

// HandleHistory lists the newest records of a tenant's pair.
func (h *Handler) HandleHistory(c *fiber.Ctx) error {
	tenant := c.Query("tenant")

	records, err := h.service.History(c.UserContext(), tenant, c.Params("entity"), c.QueryInt("limit", 50))
	if err != nil {
		logger.WithRayID(h.service.logger, c).Error("Failed to list records", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"records": records})
}

// HandleCounts compares row counts of both stores without repairing anything.
func (h *Handler) HandleCounts(c *fiber.Ctx) error {
	tenant := c.Query("tenant")
	window, ok := h.window(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid window"})
	}

	counts, err := h.service.Counts(c.UserContext(), tenant, c.Params("entity"), window)
	if err != nil {
		logger.WithRayID(h.service.logger, c).Error("Failed to count rows", zap.Error(err))
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(counts)
}

// HandleReports lists archived drift reports.
func (h *Handler) HandleReports(c *fiber.Ctx) error {
	tenant := c.Query("tenant")

	ids, err := h.service.Reports(c.UserContext(), tenant, c.Params("entity"))
	if err != nil {
		return h.reportError(c, err)
	}
	return c.JSON(fiber.Map{"reports": ids})
}

// HandleReport returns one archived drift report.
func (h *Handler) HandleReport(c *fiber.Ctx) error {
	tenant := c.Query("tenant")

	report, err := h.service.Report(c.UserContext(), tenant, c.Params("entity"), c.Params("id"))
	if err != nil {
		return h.reportError(c, err)
	}
	return c.JSON(report)
}

func (h *Handler) reportError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ErrArchiveDisabled), errors.Is(err, archive.ErrReportNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	default:
		logger.WithRayID(h.service.logger, c).Error("Failed to read drift report", zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
	}
}
