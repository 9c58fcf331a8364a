package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ledgerimport/internal/models"
	"ledgerimport/internal/repositories"

	"github.com/google/uuid"
)

type AuditLogsService interface {
	// Create audit log entry
	LogActivity(ctx context.Context, tenantID uuid.UUID, tableName, recordID, action string, changedBy *uuid.UUID, oldValues, newValues models.JSONB) error

	// LogImport records the outcome of one accounting import attempt
	LogImport(ctx context.Context, tenantID, importID uuid.UUID, changedBy *uuid.UUID, details models.JSONB) error

	// Query audit logs
	GetAuditLog(ctx context.Context, tenantID, auditLogID uuid.UUID) (*models.AuditLog, error)
	ListAuditLogs(ctx context.Context, tenantID uuid.UUID, filters *models.AuditLogFilters) ([]*models.AuditLog, error)

	// ListImports returns the import history of a tenant, newest first
	ListImports(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.AuditLog, error)
}

type auditLogsService struct {
	auditLogsRepo repositories.AuditLogsRepository
}

func NewAuditLogsService(auditLogsRepo repositories.AuditLogsRepository) AuditLogsService {
	return &auditLogsService{
		auditLogsRepo: auditLogsRepo,
	}
}

// LogActivity creates a new audit log entry with validation
func (s *auditLogsService) LogActivity(ctx context.Context, tenantID uuid.UUID, tableName, recordID, action string, changedBy *uuid.UUID, oldValues, newValues models.JSONB) error {
	if tenantID == uuid.Nil {
		return errors.New("tenant_id is required")
	}
	if tableName == "" {
		return errors.New("table_name is required")
	}
	if action == "" {
		return errors.New("action is required")
	}

	auditLog := &models.AuditLog{
		ID:        uuid.New(),
		TenantID:  tenantID,
		TableName: tableName,
		RecordID:  recordID,
		Action:    action,
		NewValues: newValues,
		OldValues: oldValues,
		ChangedBy: changedBy,
		CreatedAt: time.Now(),
	}

	return s.auditLogsRepo.Create(ctx, auditLog)
}

func (s *auditLogsService) LogImport(ctx context.Context, tenantID, importID uuid.UUID, changedBy *uuid.UUID, details models.JSONB) error {
	return s.LogActivity(ctx, tenantID, "journal_entries", importID.String(), models.ActionAccountingImport, changedBy, nil, details)
}

func (s *auditLogsService) GetAuditLog(ctx context.Context, tenantID, auditLogID uuid.UUID) (*models.AuditLog, error) {
	auditLog, err := s.auditLogsRepo.GetByID(ctx, tenantID, auditLogID)
	if err != nil {
		return nil, fmt.Errorf("failed to get audit log: %w", err)
	}
	return auditLog, nil
}

func (s *auditLogsService) ListAuditLogs(ctx context.Context, tenantID uuid.UUID, filters *models.AuditLogFilters) ([]*models.AuditLog, error) {
	if err := validateAuditFilters(filters); err != nil {
		return nil, err
	}
	return s.auditLogsRepo.List(ctx, tenantID, filters)
}

func (s *auditLogsService) ListImports(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.AuditLog, error) {
	action := models.ActionAccountingImport
	return s.ListAuditLogs(ctx, tenantID, &models.AuditLogFilters{
		Action: &action,
		Limit:  limit,
		Offset: offset,
	})
}

func validateAuditFilters(filters *models.AuditLogFilters) error {
	if filters == nil {
		return nil
	}
	if filters.Limit < 0 || filters.Limit > 1000 {
		return errors.New("limit must be between 0 and 1000")
	}
	if filters.Offset < 0 {
		return errors.New("offset cannot be negative")
	}
	if filters.StartDate != nil && filters.EndDate != nil && filters.EndDate.Before(*filters.StartDate) {
		return errors.New("end_date cannot be before start_date")
	}
	return nil
}
