package models

import (
	"time"

	"github.com/google/uuid"
)

// ImportError is a non-fatal problem met while persisting parsed lines.
type ImportError struct {
	Key        string `json:"key"`
	LineNumber int    `json:"line_number,omitempty"`
	Message    string `json:"message"`
}

// ImportSummary reports what an import created, found and skipped.
type ImportSummary struct {
	JournalsCreated  int                `json:"journals_created"`
	JournalsExisting int                `json:"journals_existing"`
	AccountsCreated  int                `json:"accounts_created"`
	AccountsExisting int                `json:"accounts_existing"`
	EntriesCreated   int                `json:"entries_created"`
	LinesCreated     int                `json:"lines_created"`
	LinesWithErrors  int                `json:"lines_with_errors"`
	Errors           []ImportError      `json:"errors"`
	Format           FileFormat         `json:"format"`
	Standard         AccountingStandard `json:"standard,omitempty"`
	Statistics       ParseStats         `json:"statistics"`
}

// ImportResult is the outcome of an import. Either Summary or Error is set.
type ImportResult struct {
	Success bool           `json:"success"`
	Summary *ImportSummary `json:"summary,omitempty"`
	Error   string         `json:"error,omitempty"`
	Parse   *ParseResult   `json:"parse,omitempty"`
}

// Import job states tracked for queued imports.
const (
	ImportStatusQueued     = "queued"
	ImportStatusProcessing = "processing"
	ImportStatusCompleted  = "completed"
	ImportStatusFailed     = "failed"
)

// ImportJob is the status record of a queued import.
type ImportJob struct {
	ID        uuid.UUID      `json:"id"`
	TenantID  uuid.UUID      `json:"tenant_id"`
	FileName  string         `json:"file_name"`
	ObjectKey string         `json:"object_key"`
	Status    string         `json:"status"`
	Error     string         `json:"error,omitempty"`
	Summary   *ImportSummary `json:"summary,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}
