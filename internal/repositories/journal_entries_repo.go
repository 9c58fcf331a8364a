package repositories

import (
	"context"
	"time"

	"ledgerimport/internal/models"

	"github.com/google/uuid"
)

type JournalEntriesRepository interface {
	// BulkCreate inserts entry headers, assigning missing ids
	BulkCreate(ctx context.Context, entries []*models.JournalEntry) error
}

type JournalEntryLinesRepository interface {
	// BulkCreate inserts entry lines in a single statement
	BulkCreate(ctx context.Context, lines []*models.JournalEntryLine) error
}

type journalEntriesRepo struct {
	db DB
}

func NewJournalEntriesRepo(db DB) JournalEntriesRepository {
	return &journalEntriesRepo{db: db}
}

var journalEntryColumns = []string{
	"id", "tenant_id", "journal_id", "entry_date", "description", "reference_number", "status",
	"imported_from_file", "source_journal_code", "source_entry_number", "original_data", "created_at",
}

func (r *journalEntriesRepo) BulkCreate(ctx context.Context, entries []*models.JournalEntry) error {
	if len(entries) == 0 {
		return nil
	}

	now := time.Now()
	rows := make([][]any, 0, len(entries))
	for _, e := range entries {
		if e.ID == uuid.Nil {
			e.ID = uuid.New()
		}
		e.CreatedAt = now
		rows = append(rows, []any{
			e.ID, e.TenantID, e.JournalID, e.EntryDate, e.Description, e.ReferenceNumber, e.Status,
			e.ImportedFromFile, e.SourceJournalCode, e.SourceEntryNumber, e.OriginalData, e.CreatedAt,
		})
	}
	return bulkInsert(ctx, r.db, "journal_entries", journalEntryColumns, rows)
}

type journalEntryLinesRepo struct {
	db DB
}

func NewJournalEntryLinesRepo(db DB) JournalEntryLinesRepository {
	return &journalEntryLinesRepo{db: db}
}

var journalEntryLineColumns = []string{
	"id", "tenant_id", "journal_entry_id", "account_id", "description", "debit_amount", "credit_amount",
	"line_order", "account_number", "account_name", "created_at",
}

func (r *journalEntryLinesRepo) BulkCreate(ctx context.Context, lines []*models.JournalEntryLine) error {
	if len(lines) == 0 {
		return nil
	}

	now := time.Now()
	rows := make([][]any, 0, len(lines))
	for _, l := range lines {
		if l.ID == uuid.Nil {
			l.ID = uuid.New()
		}
		l.CreatedAt = now
		rows = append(rows, []any{
			l.ID, l.TenantID, l.JournalEntryID, l.AccountID, l.Description, l.DebitAmount, l.CreditAmount,
			l.LineOrder, l.AccountNumber, l.AccountName, l.CreatedAt,
		})
	}
	return bulkInsert(ctx, r.db, "journal_entry_lines", journalEntryLineColumns, rows)
}
