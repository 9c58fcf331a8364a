package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"ledgerimport/internal/models"
	"ledgerimport/internal/parser"
	"ledgerimport/internal/repositories"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DefaultLineBatchSize is the number of entry lines written per insert statement.
const DefaultLineBatchSize = 100

// ErrNoTenant is returned when an import is started without a tenant.
var ErrNoTenant = errors.New("tenant is required")

// ImportMeta identifies an import attempt.
type ImportMeta struct {
	ID       uuid.UUID
	TenantID uuid.UUID
	UserID   *uuid.UUID
	FileName string
}

// LedgerRepositories groups the stores an import writes to.
type LedgerRepositories struct {
	Journals repositories.JournalsRepository
	Accounts repositories.AccountsRepository
	Entries  repositories.JournalEntriesRepository
	Lines    repositories.JournalEntryLinesRepository
}

type AccountingImportService interface {
	// ParseAndImport reads, parses and imports a file. The error is only set
	// when the file cannot be read; import failures are reported in the result.
	ParseAndImport(ctx context.Context, meta ImportMeta, r io.Reader, opts parser.ParseOptions) (*models.ImportResult, error)

	// ImportParsedData reconciles journals and accounts for the tenant, then
	// creates one journal entry per (journal code, entry number) with its lines.
	ImportParsedData(ctx context.Context, parsed *models.ParseResult, meta ImportMeta) *models.ImportResult
}

// accountingImportService runs the import phases sequentially. Imports are not
// transactional and two imports for the same tenant may race on journal and
// account creation.
type accountingImportService struct {
	repos     LedgerRepositories
	audit     AuditLogsService
	logger    logrus.FieldLogger
	batchSize int
}

func NewAccountingImportService(repos LedgerRepositories, audit AuditLogsService, logger logrus.FieldLogger, batchSize int) AccountingImportService {
	if batchSize <= 0 {
		batchSize = DefaultLineBatchSize
	}
	return &accountingImportService{
		repos:     repos,
		audit:     audit,
		logger:    logger,
		batchSize: batchSize,
	}
}

func (s *accountingImportService) ParseAndImport(ctx context.Context, meta ImportMeta, r io.Reader, opts parser.ParseOptions) (*models.ImportResult, error) {
	if meta.TenantID == uuid.Nil {
		return nil, ErrNoTenant
	}
	if meta.ID == uuid.Nil {
		meta.ID = uuid.New()
	}

	content, err := parser.ReadContent(meta.FileName, r)
	if err != nil {
		return nil, err
	}

	parsed := content.Parse(opts)
	if !parsed.Success {
		msg := "no valid entries in file"
		if len(parsed.Errors) > 0 {
			msg = parsed.Errors[0].Error()
		}
		s.logger.WithFields(logrus.Fields{
			"tenant_id": meta.TenantID,
			"import_id": meta.ID,
			"file":      meta.FileName,
		}).Warn("accounting file rejected: " + msg)
		s.logImport(ctx, meta, parsed, nil, msg)
		return &models.ImportResult{Success: false, Error: msg, Parse: parsed}, nil
	}

	return s.ImportParsedData(ctx, parsed, meta), nil
}

func (s *accountingImportService) ImportParsedData(ctx context.Context, parsed *models.ParseResult, meta ImportMeta) *models.ImportResult {
	if meta.ID == uuid.Nil {
		meta.ID = uuid.New()
	}
	log := s.logger.WithFields(logrus.Fields{
		"tenant_id": meta.TenantID,
		"import_id": meta.ID,
		"format":    parsed.Format,
	})

	summary := &models.ImportSummary{
		Errors:     []models.ImportError{},
		Format:     parsed.Format,
		Standard:   parsed.Standard,
		Statistics: parsed.Stats,
	}

	fail := func(phase string, err error) *models.ImportResult {
		msg := fmt.Sprintf("%s: %v", phase, err)
		log.WithError(err).WithField("phase", phase).Error("accounting import failed")
		s.logImport(ctx, meta, parsed, summary, msg)
		return &models.ImportResult{Success: false, Error: msg}
	}

	if meta.TenantID == uuid.Nil {
		return fail("tenant", ErrNoTenant)
	}
	if len(parsed.Lines) == 0 {
		return fail("parse", errors.New("no valid entries in file"))
	}

	journalIDs, err := s.reconcileJournals(ctx, meta.TenantID, parsed, summary)
	if err != nil {
		return fail("journals", err)
	}
	log.WithFields(logrus.Fields{"created": summary.JournalsCreated, "existing": summary.JournalsExisting}).Debug("journals reconciled")

	accountIDs, err := s.reconcileAccounts(ctx, meta.TenantID, parsed, summary)
	if err != nil {
		return fail("accounts", err)
	}
	log.WithFields(logrus.Fields{"created": summary.AccountsCreated, "existing": summary.AccountsExisting}).Debug("accounts reconciled")

	entries, err := s.createEntries(ctx, meta.TenantID, parsed.Lines, journalIDs, summary)
	if err != nil {
		return fail("entries", err)
	}

	s.createLines(ctx, meta.TenantID, entries, accountIDs, summary)

	log.WithFields(logrus.Fields{
		"entries_created":   summary.EntriesCreated,
		"lines_created":     summary.LinesCreated,
		"lines_with_errors": summary.LinesWithErrors,
	}).Info("accounting import completed")

	s.logImport(ctx, meta, parsed, summary, "")
	return &models.ImportResult{Success: true, Summary: summary}
}

func (s *accountingImportService) reconcileJournals(ctx context.Context, tenantID uuid.UUID, parsed *models.ParseResult, summary *models.ImportSummary) (map[string]uuid.UUID, error) {
	var codes []string
	names := make(map[string]string)
	for _, l := range parsed.Lines {
		if _, ok := names[l.JournalCode]; !ok {
			codes = append(codes, l.JournalCode)
			names[l.JournalCode] = l.JournalName
		}
	}

	ids, err := s.repos.Journals.GetIDsByCodes(ctx, tenantID, codes)
	if err != nil {
		return nil, err
	}

	var missing []*models.Journal
	for _, code := range codes {
		if _, ok := ids[code]; ok {
			summary.JournalsExisting++
			continue
		}
		journalType := InferJournalType(code)
		name := names[code]
		if name == "" || name == code {
			name = JournalName(code, journalType)
		}
		missing = append(missing, &models.Journal{
			ID:           uuid.New(),
			TenantID:     tenantID,
			Code:         code,
			Name:         name,
			Type:         journalType,
			Description:  fmt.Sprintf("Imported journal - %s (%s)", name, parsed.Standard.Label()),
			IsActive:     true,
			ImportedFrom: true,
		})
	}

	if err := s.repos.Journals.BulkCreate(ctx, missing); err != nil {
		return nil, err
	}

	resolved := make(map[string]uuid.UUID, len(codes))
	for code, id := range ids {
		resolved[code] = id
	}
	for _, j := range missing {
		resolved[j.Code] = j.ID
	}
	summary.JournalsCreated = len(missing)
	return resolved, nil
}

func (s *accountingImportService) reconcileAccounts(ctx context.Context, tenantID uuid.UUID, parsed *models.ParseResult, summary *models.ImportSummary) (map[string]uuid.UUID, error) {
	var numbers []string
	names := make(map[string]string)
	for _, l := range parsed.Lines {
		name, seen := names[l.AccountNumber]
		if !seen {
			numbers = append(numbers, l.AccountNumber)
		}
		if name == "" {
			names[l.AccountNumber] = l.AccountName
		}
	}

	ids, err := s.repos.Accounts.GetIDsByNumbers(ctx, tenantID, numbers)
	if err != nil {
		return nil, err
	}

	var missing []*models.Account
	for _, number := range numbers {
		if _, ok := ids[number]; ok {
			summary.AccountsExisting++
			continue
		}
		name := names[number]
		if name == "" {
			name = "Account " + number
		}
		missing = append(missing, &models.Account{
			ID:               uuid.New(),
			TenantID:         tenantID,
			AccountNumber:    number,
			AccountName:      name,
			AccountType:      InferAccountType(number, parsed.Standard),
			AccountClass:     AccountClass(number),
			Description:      fmt.Sprintf("Imported account (%s) - %s", parsed.Standard.Label(), name),
			IsActive:         true,
			IsDetailAccount:  true,
			ImportedFromFile: true,
		})
	}

	if err := s.repos.Accounts.BulkCreate(ctx, missing); err != nil {
		return nil, err
	}

	resolved := make(map[string]uuid.UUID, len(numbers))
	for number, id := range ids {
		resolved[number] = id
	}
	for _, a := range missing {
		resolved[a.AccountNumber] = a.ID
	}
	summary.AccountsCreated = len(missing)
	return resolved, nil
}

type entryKey struct {
	journalCode string
	entryNumber string
}

func (k entryKey) String() string {
	return k.journalCode + "/" + k.entryNumber
}

type entryGroup struct {
	key   entryKey
	lines []models.AccountingLine
	entry *models.JournalEntry
}

// groupLines groups lines by (journal code, entry number), keeping first-seen order.
func groupLines(lines []models.AccountingLine) []*entryGroup {
	var groups []*entryGroup
	index := make(map[entryKey]*entryGroup)
	for _, l := range lines {
		key := entryKey{journalCode: l.JournalCode, entryNumber: l.EntryNumber}
		g, ok := index[key]
		if !ok {
			g = &entryGroup{key: key}
			index[key] = g
			groups = append(groups, g)
		}
		g.lines = append(g.lines, l)
	}
	return groups
}

func (s *accountingImportService) createEntries(ctx context.Context, tenantID uuid.UUID, lines []models.AccountingLine, journalIDs map[string]uuid.UUID, summary *models.ImportSummary) ([]*entryGroup, error) {
	var created []*entryGroup
	var entries []*models.JournalEntry

	for _, g := range groupLines(lines) {
		journalID, ok := journalIDs[g.key.journalCode]
		if !ok {
			for _, l := range g.lines {
				summary.Errors = append(summary.Errors, models.ImportError{
					Key:        g.key.String(),
					LineNumber: l.LineNumber,
					Message:    fmt.Sprintf("journal %s not found", g.key.journalCode),
				})
			}
			summary.LinesWithErrors += len(g.lines)
			continue
		}

		first := g.lines[0]
		description := first.Description
		if description == "" {
			description = "Entry " + g.key.entryNumber
		}
		reference := first.DocumentRef
		if reference == "" {
			reference = g.key.entryNumber
		}
		original, err := json.Marshal(g.lines)
		if err != nil {
			return nil, fmt.Errorf("failed to encode lines of entry %s: %w", g.key, err)
		}

		g.entry = &models.JournalEntry{
			ID:                uuid.New(),
			TenantID:          tenantID,
			JournalID:         journalID,
			EntryDate:         first.EntryDate,
			Description:       description,
			ReferenceNumber:   reference,
			Status:            models.EntryStatusPosted,
			ImportedFromFile:  true,
			SourceJournalCode: g.key.journalCode,
			SourceEntryNumber: g.key.entryNumber,
			OriginalData:      original,
		}
		entries = append(entries, g.entry)
		created = append(created, g)
	}

	if err := s.repos.Entries.BulkCreate(ctx, entries); err != nil {
		return nil, err
	}
	summary.EntriesCreated = len(entries)
	return created, nil
}

func (s *accountingImportService) createLines(ctx context.Context, tenantID uuid.UUID, groups []*entryGroup, accountIDs map[string]uuid.UUID, summary *models.ImportSummary) {
	var rows []*models.JournalEntryLine
	var sourceLines []int
	for _, g := range groups {
		for i, l := range g.lines {
			accountID, ok := accountIDs[l.AccountNumber]
			if !ok {
				summary.Errors = append(summary.Errors, models.ImportError{
					Key:        g.key.String(),
					LineNumber: l.LineNumber,
					Message:    fmt.Sprintf("account %s not found", l.AccountNumber),
				})
				summary.LinesWithErrors++
				continue
			}

			description := l.Description
			if description == "" {
				description = l.DocumentRef
			}
			if description == "" {
				description = fmt.Sprintf("Line %d", i+1)
			}
			rows = append(rows, &models.JournalEntryLine{
				ID:             uuid.New(),
				TenantID:       tenantID,
				JournalEntryID: g.entry.ID,
				AccountID:      accountID,
				Description:    description,
				DebitAmount:    l.Debit,
				CreditAmount:   l.Credit,
				LineOrder:      i + 1,
				AccountNumber:  l.AccountNumber,
				AccountName:    l.AccountName,
			})
			sourceLines = append(sourceLines, l.LineNumber)
		}
	}

	for start := 0; start < len(rows); start += s.batchSize {
		end := min(start+s.batchSize, len(rows))
		if err := s.repos.Lines.BulkCreate(ctx, rows[start:end]); err != nil {
			s.logger.WithError(err).WithField("tenant_id", tenantID).Warn("journal entry line batch failed")
			summary.Errors = append(summary.Errors, models.ImportError{
				Key:        fmt.Sprintf("batch %d", start/s.batchSize+1),
				LineNumber: sourceLines[start],
				Message:    fmt.Sprintf("failed to insert lines %d to %d: %v", sourceLines[start], sourceLines[end-1], err),
			})
			summary.LinesWithErrors += end - start
			continue
		}
		summary.LinesCreated += end - start
	}
}

// logImport writes the audit row of an attempt. A failure here never fails the import.
func (s *accountingImportService) logImport(ctx context.Context, meta ImportMeta, parsed *models.ParseResult, summary *models.ImportSummary, failure string) {
	details := models.JSONB{
		"status":    "success",
		"file_name": meta.FileName,
		"format":    string(parsed.Format),
		"standard":  string(parsed.Standard),
		"statistics": models.JSONB{
			"total_lines":  parsed.Stats.TotalLines,
			"valid_lines":  parsed.Stats.ValidLines,
			"error_lines":  parsed.Stats.ErrorLines,
			"total_debit":  parsed.Stats.TotalDebit.StringFixed(2),
			"total_credit": parsed.Stats.TotalCredit.StringFixed(2),
			"balance":      parsed.Stats.Balance.StringFixed(2),
		},
	}
	if summary != nil {
		details["journals_created"] = summary.JournalsCreated
		details["journals_existing"] = summary.JournalsExisting
		details["accounts_created"] = summary.AccountsCreated
		details["accounts_existing"] = summary.AccountsExisting
		details["entries_created"] = summary.EntriesCreated
		details["lines_created"] = summary.LinesCreated
		details["lines_with_errors"] = summary.LinesWithErrors
		details["error_count"] = len(summary.Errors)
	}
	if failure != "" {
		details["status"] = "failed"
		details["error"] = failure
	}

	if err := s.audit.LogImport(ctx, meta.TenantID, meta.ID, meta.UserID, details); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"tenant_id": meta.TenantID,
			"import_id": meta.ID,
		}).Warn("failed to write import audit log")
	}
}
