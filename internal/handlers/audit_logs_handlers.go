package handlers

import (
	"net/http"
	"strconv"
	"time"

	"ledgerimport/internal/common"
	"ledgerimport/internal/models"
	"ledgerimport/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// AuditLogsHandlers handles audit logs related HTTP requests
type AuditLogsHandlers struct {
	auditLogsService services.AuditLogsService
}

func NewAuditLogsHandlers(auditLogsService services.AuditLogsService) *AuditLogsHandlers {
	return &AuditLogsHandlers{auditLogsService: auditLogsService}
}

// ListAuditLogs retrieves audit logs with filtering and pagination
func (h *AuditLogsHandlers) ListAuditLogs(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, ok := common.GetTenantIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Tenant not found")
	}

	filters := &models.AuditLogFilters{}
	if table := c.QueryParam("table"); table != "" {
		filters.TableName = &table
	}
	if recordID := c.QueryParam("record_id"); recordID != "" {
		filters.RecordID = &recordID
	}
	if action := c.QueryParam("action"); action != "" {
		filters.Action = &action
	}
	if userID := c.QueryParam("user_id"); userID != "" {
		if uid, err := uuid.Parse(userID); err == nil {
			filters.ChangedBy = &uid
		}
	}
	if startDate := c.QueryParam("start_date"); startDate != "" {
		if sd, err := time.Parse(time.RFC3339, startDate); err == nil {
			filters.StartDate = &sd
		}
	}
	if endDate := c.QueryParam("end_date"); endDate != "" {
		if ed, err := time.Parse(time.RFC3339, endDate); err == nil {
			filters.EndDate = &ed
		}
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	limit, offset, err := common.ValidatePaginationParams(limit, offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	filters.Limit = limit
	filters.Offset = offset

	logs, err := h.auditLogsService.ListAuditLogs(ctx, tenantID, filters)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"data":   logs,
		"total":  len(logs),
		"limit":  filters.Limit,
		"offset": filters.Offset,
	})
}

// GetAuditLog retrieves a specific audit log entry
func (h *AuditLogsHandlers) GetAuditLog(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, ok := common.GetTenantIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Tenant not found")
	}

	auditLogID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid audit log ID")
	}

	log, err := h.auditLogsService.GetAuditLog(ctx, tenantID, auditLogID)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Audit log not found")
	}

	return c.JSON(http.StatusOK, log)
}
