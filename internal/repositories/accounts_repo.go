package repositories

import (
	"context"
	"time"

	"ledgerimport/internal/models"

	"github.com/google/uuid"
)

type AccountsRepository interface {
	// GetIDsByNumbers returns the ids of the tenant's accounts among numbers, keyed by account number
	GetIDsByNumbers(ctx context.Context, tenantID uuid.UUID, numbers []string) (map[string]uuid.UUID, error)

	// BulkCreate inserts chart-of-accounts rows, assigning missing ids
	BulkCreate(ctx context.Context, accounts []*models.Account) error
}

type accountsRepo struct {
	db DB
}

func NewAccountsRepo(db DB) AccountsRepository {
	return &accountsRepo{db: db}
}

var accountColumns = []string{
	"id", "tenant_id", "account_number", "account_name", "account_type", "account_class", "description",
	"is_active", "is_detail_account", "current_balance", "balance_debit", "balance_credit",
	"imported_from_file", "created_at",
}

func (r *accountsRepo) GetIDsByNumbers(ctx context.Context, tenantID uuid.UUID, numbers []string) (map[string]uuid.UUID, error) {
	if len(numbers) == 0 {
		return map[string]uuid.UUID{}, nil
	}

	query := `SELECT id, account_number FROM chart_of_accounts WHERE tenant_id = $1 AND account_number = ANY($2)`
	rows, err := r.db.Query(ctx, query, tenantID, numbers)
	if err != nil {
		return nil, err
	}
	return scanIDMap(rows)
}

func (r *accountsRepo) BulkCreate(ctx context.Context, accounts []*models.Account) error {
	if len(accounts) == 0 {
		return nil
	}

	now := time.Now()
	rows := make([][]any, 0, len(accounts))
	for _, a := range accounts {
		if a.ID == uuid.Nil {
			a.ID = uuid.New()
		}
		a.CreatedAt = now
		rows = append(rows, []any{
			a.ID, a.TenantID, a.AccountNumber, a.AccountName, string(a.AccountType), a.AccountClass, a.Description,
			a.IsActive, a.IsDetailAccount, a.CurrentBalance, a.BalanceDebit, a.BalanceCredit,
			a.ImportedFromFile, a.CreatedAt,
		})
	}
	return bulkInsert(ctx, r.db, "chart_of_accounts", accountColumns, rows)
}
