package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// JournalType classifies a journal by the operations it records.
type JournalType string

const (
	JournalTypeBank          JournalType = "bank"
	JournalTypeCash          JournalType = "cash"
	JournalTypeSale          JournalType = "sale"
	JournalTypePurchase      JournalType = "purchase"
	JournalTypeMiscellaneous JournalType = "miscellaneous"
)

// AccountType is the balance-sheet or income-statement category of an account.
type AccountType string

const (
	AccountTypeAsset     AccountType = "asset"
	AccountTypeLiability AccountType = "liability"
	AccountTypeEquity    AccountType = "equity"
	AccountTypeRevenue   AccountType = "revenue"
	AccountTypeExpense   AccountType = "expense"
)

// EntryStatusPosted is the status given to imported journal entries.
const EntryStatusPosted = "posted"

// Journal is a tenant's book of original entry, unique per (tenant_id, code).
type Journal struct {
	ID           uuid.UUID   `json:"id" db:"id"`
	TenantID     uuid.UUID   `json:"tenant_id" db:"tenant_id"`
	Code         string      `json:"code" db:"code"`
	Name         string      `json:"name" db:"name"`
	Type         JournalType `json:"type" db:"type"`
	Description  string      `json:"description" db:"description"`
	IsActive     bool        `json:"is_active" db:"is_active"`
	ImportedFrom bool        `json:"imported_from_file" db:"imported_from_file"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at"`
}

// Account is a chart-of-accounts row, unique per (tenant_id, account_number).
type Account struct {
	ID               uuid.UUID       `json:"id" db:"id"`
	TenantID         uuid.UUID       `json:"tenant_id" db:"tenant_id"`
	AccountNumber    string          `json:"account_number" db:"account_number"`
	AccountName      string          `json:"account_name" db:"account_name"`
	AccountType      AccountType     `json:"account_type" db:"account_type"`
	AccountClass     int             `json:"account_class" db:"account_class"`
	Description      string          `json:"description" db:"description"`
	IsActive         bool            `json:"is_active" db:"is_active"`
	IsDetailAccount  bool            `json:"is_detail_account" db:"is_detail_account"`
	CurrentBalance   decimal.Decimal `json:"current_balance" db:"current_balance"`
	BalanceDebit     decimal.Decimal `json:"balance_debit" db:"balance_debit"`
	BalanceCredit    decimal.Decimal `json:"balance_credit" db:"balance_credit"`
	ImportedFromFile bool            `json:"imported_from_file" db:"imported_from_file"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
}

// JournalEntry groups the lines sharing a (journal code, entry number) pair in the source file.
type JournalEntry struct {
	ID                uuid.UUID       `json:"id" db:"id"`
	TenantID          uuid.UUID       `json:"tenant_id" db:"tenant_id"`
	JournalID         uuid.UUID       `json:"journal_id" db:"journal_id"`
	EntryDate         string          `json:"entry_date" db:"entry_date"`
	Description       string          `json:"description" db:"description"`
	ReferenceNumber   string          `json:"reference_number" db:"reference_number"`
	Status            string          `json:"status" db:"status"`
	ImportedFromFile  bool            `json:"imported_from_file" db:"imported_from_file"`
	SourceJournalCode string          `json:"source_journal_code" db:"source_journal_code"`
	SourceEntryNumber string          `json:"source_entry_number" db:"source_entry_number"`
	OriginalData      json.RawMessage `json:"original_data" db:"original_data"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
}

// JournalEntryLine is one debit/credit posting of a journal entry.
type JournalEntryLine struct {
	ID             uuid.UUID       `json:"id" db:"id"`
	TenantID       uuid.UUID       `json:"tenant_id" db:"tenant_id"`
	JournalEntryID uuid.UUID       `json:"journal_entry_id" db:"journal_entry_id"`
	AccountID      uuid.UUID       `json:"account_id" db:"account_id"`
	Description    string          `json:"description" db:"description"`
	DebitAmount    decimal.Decimal `json:"debit_amount" db:"debit_amount"`
	CreditAmount   decimal.Decimal `json:"credit_amount" db:"credit_amount"`
	LineOrder      int             `json:"line_order" db:"line_order"`
	AccountNumber  string          `json:"account_number" db:"account_number"`
	AccountName    string          `json:"account_name" db:"account_name"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
}
