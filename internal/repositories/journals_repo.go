package repositories

import (
	"context"
	"time"

	"ledgerimport/internal/models"

	"github.com/google/uuid"
)

type JournalsRepository interface {
	// GetIDsByCodes returns the ids of the tenant's journals among codes, keyed by code
	GetIDsByCodes(ctx context.Context, tenantID uuid.UUID, codes []string) (map[string]uuid.UUID, error)

	// BulkCreate inserts journals, assigning missing ids
	BulkCreate(ctx context.Context, journals []*models.Journal) error
}

type journalsRepo struct {
	db DB
}

func NewJournalsRepo(db DB) JournalsRepository {
	return &journalsRepo{db: db}
}

var journalColumns = []string{
	"id", "tenant_id", "code", "name", "type", "description", "is_active", "imported_from_file", "created_at",
}

func (r *journalsRepo) GetIDsByCodes(ctx context.Context, tenantID uuid.UUID, codes []string) (map[string]uuid.UUID, error) {
	if len(codes) == 0 {
		return map[string]uuid.UUID{}, nil
	}

	query := `SELECT id, code FROM journals WHERE tenant_id = $1 AND code = ANY($2)`
	rows, err := r.db.Query(ctx, query, tenantID, codes)
	if err != nil {
		return nil, err
	}
	return scanIDMap(rows)
}

func (r *journalsRepo) BulkCreate(ctx context.Context, journals []*models.Journal) error {
	if len(journals) == 0 {
		return nil
	}

	now := time.Now()
	rows := make([][]any, 0, len(journals))
	for _, j := range journals {
		if j.ID == uuid.Nil {
			j.ID = uuid.New()
		}
		j.CreatedAt = now
		rows = append(rows, []any{
			j.ID, j.TenantID, j.Code, j.Name, string(j.Type), j.Description, j.IsActive, j.ImportedFrom, j.CreatedAt,
		})
	}
	return bulkInsert(ctx, r.db, "journals", journalColumns, rows)
}
