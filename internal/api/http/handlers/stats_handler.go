package handlers

import (
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/bonus-desk/internal/service"
)

// StatsHandler serves the dashboard and analytics endpoints.
type StatsHandler struct {
	stats *service.StatsService
}

// NewStatsHandler constructs the handler.
func NewStatsHandler(stats *service.StatsService) *StatsHandler {
	return &StatsHandler{stats: stats}
}

// Summary GET /admin/stats/summary.
func (h *StatsHandler) Summary(c *fiber.Ctx) error {
	if _, err := requireAdmin(c); err != nil {
		return err
	}
	summary, err := h.stats.Summary(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": summary})
}

// Charts GET /admin/stats/charts.
func (h *StatsHandler) Charts(c *fiber.Ctx) error {
	if _, err := requireAdmin(c); err != nil {
		return err
	}
	charts, err := h.stats.Charts(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": charts})
}

// TopSubmitters GET /admin/stats/top-users?days=7&limit=10.
func (h *StatsHandler) TopSubmitters(c *fiber.Ctx) error {
	if _, err := requireAdmin(c); err != nil {
		return err
	}
	days, _ := strconv.Atoi(c.Query("days", "7"))
	limit, _ := strconv.Atoi(c.Query("limit", "10"))
	top, err := h.stats.TopSubmitters(c.Context(), days, limit)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": top})
}

// Export GET /admin/stats/export?days=30 streams a CSV attachment.
func (h *StatsHandler) Export(c *fiber.Ctx) error {
	if _, err := requireAdmin(c); err != nil {
		return err
	}
	days, _ := strconv.Atoi(c.Query("days", "30"))
	data, err := h.stats.ExportCSV(c.Context(), days)
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", h.stats.ExportFilename()))
	return c.Send(data)
}
