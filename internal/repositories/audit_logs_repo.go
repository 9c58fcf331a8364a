package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ledgerimport/internal/models"

	"github.com/google/uuid"
)

type AuditLogsRepository interface {
	// Create a new audit log entry
	Create(ctx context.Context, auditLog *models.AuditLog) error

	// Get audit log by ID and tenant
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.AuditLog, error)

	// List audit logs with filtering options
	List(ctx context.Context, tenantID uuid.UUID, filters *models.AuditLogFilters) ([]*models.AuditLog, error)
}

type auditLogsRepo struct {
	db DB
}

func NewAuditLogsRepo(db DB) AuditLogsRepository {
	return &auditLogsRepo{db: db}
}

const auditLogSelect = `
		SELECT id, tenant_id, table_name, record_id, action, new_values, old_values, changed_by, created_at
		FROM audit_logs`

func (r *auditLogsRepo) Create(ctx context.Context, auditLog *models.AuditLog) error {
	auditLog.CreatedAt = time.Now()
	if auditLog.ID == uuid.Nil {
		auditLog.ID = uuid.New()
	}

	query := `
		INSERT INTO audit_logs (id, tenant_id, table_name, record_id, action, new_values, old_values, changed_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	newValues, err := marshalJSONB(auditLog.NewValues)
	if err != nil {
		return fmt.Errorf("failed to marshal new_values: %w", err)
	}
	oldValues, err := marshalJSONB(auditLog.OldValues)
	if err != nil {
		return fmt.Errorf("failed to marshal old_values: %w", err)
	}

	_, err = r.db.Exec(ctx, query,
		auditLog.ID,
		auditLog.TenantID,
		auditLog.TableName,
		auditLog.RecordID,
		auditLog.Action,
		newValues,
		oldValues,
		auditLog.ChangedBy,
		auditLog.CreatedAt,
	)
	return err
}

func (r *auditLogsRepo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.AuditLog, error) {
	query := auditLogSelect + ` WHERE tenant_id = $1 AND id = $2`

	auditLog, err := scanAuditLog(r.db.QueryRow(ctx, query, tenantID, id))
	if err != nil {
		return nil, err
	}
	return auditLog, nil
}

func (r *auditLogsRepo) List(ctx context.Context, tenantID uuid.UUID, filters *models.AuditLogFilters) ([]*models.AuditLog, error) {
	if filters == nil {
		filters = &models.AuditLogFilters{}
	}

	query := auditLogSelect + ` WHERE tenant_id = $1`
	args := []interface{}{tenantID}
	argIdx := 1

	if filters.TableName != nil {
		argIdx++
		query += fmt.Sprintf(" AND table_name = $%d", argIdx)
		args = append(args, *filters.TableName)
	}

	if filters.RecordID != nil {
		argIdx++
		query += fmt.Sprintf(" AND record_id = $%d", argIdx)
		args = append(args, *filters.RecordID)
	}

	if filters.Action != nil {
		argIdx++
		query += fmt.Sprintf(" AND action = $%d", argIdx)
		args = append(args, *filters.Action)
	}

	if filters.ChangedBy != nil {
		argIdx++
		query += fmt.Sprintf(" AND changed_by = $%d", argIdx)
		args = append(args, *filters.ChangedBy)
	}

	if filters.StartDate != nil {
		argIdx++
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, *filters.StartDate)
	}

	if filters.EndDate != nil {
		argIdx++
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, *filters.EndDate)
	}

	query += " ORDER BY created_at DESC"

	if filters.Limit > 0 {
		argIdx++
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, filters.Limit)
		if filters.Offset > 0 {
			argIdx++
			query += fmt.Sprintf(" OFFSET $%d", argIdx)
			args = append(args, filters.Offset)
		}
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var auditLogs []*models.AuditLog
	for rows.Next() {
		auditLog, err := scanAuditLog(rows)
		if err != nil {
			return nil, err
		}
		auditLogs = append(auditLogs, auditLog)
	}
	return auditLogs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAuditLog(row rowScanner) (*models.AuditLog, error) {
	auditLog := &models.AuditLog{}
	var newValuesBytes, oldValuesBytes []byte

	err := row.Scan(
		&auditLog.ID,
		&auditLog.TenantID,
		&auditLog.TableName,
		&auditLog.RecordID,
		&auditLog.Action,
		&newValuesBytes,
		&oldValuesBytes,
		&auditLog.ChangedBy,
		&auditLog.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(newValuesBytes) > 0 {
		if err := json.Unmarshal(newValuesBytes, &auditLog.NewValues); err != nil {
			return nil, fmt.Errorf("failed to unmarshal new_values: %w", err)
		}
	}
	if len(oldValuesBytes) > 0 {
		if err := json.Unmarshal(oldValuesBytes, &auditLog.OldValues); err != nil {
			return nil, fmt.Errorf("failed to unmarshal old_values: %w", err)
		}
	}
	return auditLog, nil
}

func marshalJSONB(v models.JSONB) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}
