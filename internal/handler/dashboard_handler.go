package handler

import (
	"strconv"

	"inventrack/internal/service"

	"github.com/gofiber/fiber/v2"
)

type DashboardHandler struct {
	service service.DashboardService
}

func NewDashboardHandler(s service.DashboardService) *DashboardHandler {
	return &DashboardHandler{service: s}
}

// GetStockMovement returns stock movement data for charts
// Query params: days (default 7, at most 90)
func (h *DashboardHandler) GetStockMovement(c *fiber.Ctx) error {
	days, err := strconv.Atoi(c.Query("days", "7"))
	if err != nil {
		return validationFailed(c, map[string]string{"days": "The days field must be an integer."})
	}

	data, err := h.service.StockMovement(c.UserContext(), days)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"period": days,
		"data":   data,
	})
}

// GetDashboardStats returns overview statistics
func (h *DashboardHandler) GetDashboardStats(c *fiber.Ctx) error {
	stats, err := h.service.Summary(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(stats)
}
