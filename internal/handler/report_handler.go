package handler

import (
	"fmt"

	"inventrack/internal/repository"
	"inventrack/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type ReportHandler struct {
	service service.ReportService
	logs    repository.ActivityLogRepository
}

func NewReportHandler(s service.ReportService, logs repository.ActivityLogRepository) *ReportHandler {
	return &ReportHandler{service: s, logs: logs}
}

func reportQuery(c *fiber.Ctx) service.ReportQuery {
	return service.ReportQuery{
		FromDate: c.Query("from_date"),
		ToDate:   c.Query("to_date"),
		Type:     c.Query("type"),
		Page:     c.QueryInt("page", 1),
	}
}

// GetReport returns filtered transactions, totals and recent activity
// Query params: from_date, to_date, type, page
// GET /api/v1/reports
func (h *ReportHandler) GetReport(c *fiber.Ctx) error {
	index, err := h.service.Index(c.UserContext(), reportQuery(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(index)
}

// ExportReport sends the report as a file download
// Query params: the report filters plus format (csv|xlsx, default csv)
// GET /api/v1/reports/export
func (h *ReportHandler) ExportReport(c *fiber.Ctx) error {
	who, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}

	file, err := h.service.Export(c.UserContext(), reportQuery(c), c.Query("format"), who)
	if err != nil {
		return respondError(c, err)
	}

	c.Set(fiber.HeaderContentType, file.ContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, file.Name))
	return c.Send(file.Body)
}

// GetActivityLogs pages through the audit trail, newest first
// Query params: model_type, user_id, page
// GET /api/v1/activity-logs
func (h *ReportHandler) GetActivityLogs(c *fiber.Ctx) error {
	filter := repository.ActivityLogFilter{
		ModelType: c.Query("model_type"),
		Page:      repository.Page{Number: c.QueryInt("page", 1), PerPage: repository.DefaultPerPage},
	}
	if raw := c.Query("user_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return validationFailed(c, map[string]string{"user_id": "The selected user id is invalid."})
		}
		filter.UserID = &id
	}

	page, err := h.logs.List(c.UserContext(), filter)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}
