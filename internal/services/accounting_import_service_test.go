package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"ledgerimport/internal/models"
	"ledgerimport/internal/parser"
	"ledgerimport/internal/repositories"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// memoryLedger is an in-memory stand-in for the ledger tables.
type memoryLedger struct {
	journals     map[uuid.UUID]map[string]uuid.UUID
	accounts     map[uuid.UUID]map[string]uuid.UUID
	journalRows  []*models.Journal
	accountRows  []*models.Account
	entries      []*models.JournalEntry
	lines        []*models.JournalEntryLine
	lineCalls    int
	failLineCall map[int]bool
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{
		journals:     map[uuid.UUID]map[string]uuid.UUID{},
		accounts:     map[uuid.UUID]map[string]uuid.UUID{},
		failLineCall: map[int]bool{},
	}
}

func (m *memoryLedger) repositories() LedgerRepositories {
	return LedgerRepositories{
		Journals: memoryJournals{m},
		Accounts: memoryAccounts{m},
		Entries:  memoryEntries{m},
		Lines:    memoryLines{m},
	}
}

func lookup(table map[uuid.UUID]map[string]uuid.UUID, tenantID uuid.UUID, keys []string) map[string]uuid.UUID {
	out := map[string]uuid.UUID{}
	for _, k := range keys {
		if id, ok := table[tenantID][k]; ok {
			out[k] = id
		}
	}
	return out
}

func store(table map[uuid.UUID]map[string]uuid.UUID, tenantID uuid.UUID, key string, id uuid.UUID) {
	if table[tenantID] == nil {
		table[tenantID] = map[string]uuid.UUID{}
	}
	table[tenantID][key] = id
}

type memoryJournals struct{ m *memoryLedger }

func (r memoryJournals) GetIDsByCodes(_ context.Context, tenantID uuid.UUID, codes []string) (map[string]uuid.UUID, error) {
	return lookup(r.m.journals, tenantID, codes), nil
}

func (r memoryJournals) BulkCreate(_ context.Context, journals []*models.Journal) error {
	for _, j := range journals {
		store(r.m.journals, j.TenantID, j.Code, j.ID)
		r.m.journalRows = append(r.m.journalRows, j)
	}
	return nil
}

type memoryAccounts struct{ m *memoryLedger }

func (r memoryAccounts) GetIDsByNumbers(_ context.Context, tenantID uuid.UUID, numbers []string) (map[string]uuid.UUID, error) {
	return lookup(r.m.accounts, tenantID, numbers), nil
}

func (r memoryAccounts) BulkCreate(_ context.Context, accounts []*models.Account) error {
	for _, a := range accounts {
		store(r.m.accounts, a.TenantID, a.AccountNumber, a.ID)
		r.m.accountRows = append(r.m.accountRows, a)
	}
	return nil
}

type memoryEntries struct{ m *memoryLedger }

func (r memoryEntries) BulkCreate(_ context.Context, entries []*models.JournalEntry) error {
	r.m.entries = append(r.m.entries, entries...)
	return nil
}

type memoryLines struct{ m *memoryLedger }

func (r memoryLines) BulkCreate(_ context.Context, lines []*models.JournalEntryLine) error {
	r.m.lineCalls++
	if r.m.failLineCall[r.m.lineCalls] {
		return errors.New("insert or update on table violates foreign key constraint")
	}
	r.m.lines = append(r.m.lines, lines...)
	return nil
}

const bankStatementFile = `JournalCode;EcritureNum;EcritureDate;CompteNum;CompteLib;EcritureLib;Debit;Credit
BQ1;1;20240131;512000;Banque;Paiement fournisseur;0,00;1500,00
BQ1;1;20240131;401000;Fournisseur;Paiement fournisseur;1000,00;0,00
BQ1;1;20240131;401000;Fournisseur;Paiement fournisseur;500,00;0,00
`

type AccountingImportServiceTestSuite struct {
	suite.Suite
	ledger    *memoryLedger
	auditRepo *repositories.MockAuditLogsRepository
	service   AccountingImportService
	tenantID  uuid.UUID
	ctx       context.Context
}

func (suite *AccountingImportServiceTestSuite) SetupTest() {
	logger, _ := test.NewNullLogger()
	suite.ledger = newMemoryLedger()
	suite.auditRepo = &repositories.MockAuditLogsRepository{}
	suite.auditRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	suite.service = NewAccountingImportService(suite.ledger.repositories(), NewAuditLogsService(suite.auditRepo), logger, 0)
	suite.tenantID = uuid.New()
	suite.ctx = context.Background()
}

func TestAccountingImportServiceTestSuite(t *testing.T) {
	suite.Run(t, new(AccountingImportServiceTestSuite))
}

func (suite *AccountingImportServiceTestSuite) meta() ImportMeta {
	return ImportMeta{TenantID: suite.tenantID, FileName: "fec.txt"}
}

func (suite *AccountingImportServiceTestSuite) auditLogs() []*models.AuditLog {
	var logs []*models.AuditLog
	for _, call := range suite.auditRepo.Calls {
		if call.Method == "Create" {
			logs = append(logs, call.Arguments.Get(1).(*models.AuditLog))
		}
	}
	return logs
}

func (suite *AccountingImportServiceTestSuite) TestImport_BankPayment() {
	t := suite.T()
	parsed := parser.Parse(bankStatementFile, parser.ParseOptions{})
	require.True(t, parsed.Success)

	result := suite.service.ImportParsedData(suite.ctx, parsed, suite.meta())

	require.True(t, result.Success, result.Error)
	summary := result.Summary
	assert.Equal(t, 1, summary.JournalsCreated)
	assert.Equal(t, 0, summary.JournalsExisting)
	assert.Equal(t, 2, summary.AccountsCreated)
	assert.Equal(t, 1, summary.EntriesCreated)
	assert.Equal(t, 3, summary.LinesCreated)
	assert.Equal(t, 0, summary.LinesWithErrors)
	assert.Empty(t, summary.Errors)
	assert.Equal(t, models.FormatFEC, summary.Format)
	assert.Equal(t, models.StandardPCG, summary.Standard)

	require.Len(t, suite.ledger.journalRows, 1)
	journal := suite.ledger.journalRows[0]
	assert.Equal(t, "BQ1", journal.Code)
	assert.Equal(t, models.JournalTypeBank, journal.Type)
	assert.Equal(t, "Bank journal 1", journal.Name)
	assert.True(t, journal.IsActive)
	assert.True(t, journal.ImportedFrom)
	assert.Equal(t, "Imported journal - Bank journal 1 (PCG)", journal.Description)

	require.Len(t, suite.ledger.accountRows, 2)
	bank, supplier := suite.ledger.accountRows[0], suite.ledger.accountRows[1]
	assert.Equal(t, "512000", bank.AccountNumber)
	assert.Equal(t, models.AccountTypeAsset, bank.AccountType)
	assert.Equal(t, 5, bank.AccountClass)
	assert.Equal(t, "401000", supplier.AccountNumber)
	assert.Equal(t, "Fournisseur", supplier.AccountName)
	assert.Equal(t, models.AccountTypeLiability, supplier.AccountType)
	assert.Equal(t, 4, supplier.AccountClass)

	require.Len(t, suite.ledger.entries, 1)
	entry := suite.ledger.entries[0]
	assert.Equal(t, journal.ID, entry.JournalID)
	assert.Equal(t, "2024-01-31", entry.EntryDate)
	assert.Equal(t, "Paiement fournisseur", entry.Description)
	assert.Equal(t, "1", entry.ReferenceNumber)
	assert.Equal(t, models.EntryStatusPosted, entry.Status)
	assert.Equal(t, "BQ1", entry.SourceJournalCode)
	assert.Contains(t, string(entry.OriginalData), `"account_number":"401000"`)

	require.Len(t, suite.ledger.lines, 3)
	debit, credit := decimal.Zero, decimal.Zero
	for i, line := range suite.ledger.lines {
		assert.Equal(t, i+1, line.LineOrder)
		assert.Equal(t, entry.ID, line.JournalEntryID)
		debit = debit.Add(line.DebitAmount)
		credit = credit.Add(line.CreditAmount)
	}
	assert.True(t, debit.Equal(decimal.NewFromInt(1500)))
	assert.True(t, credit.Equal(decimal.NewFromInt(1500)))
	assert.Equal(t, bank.ID, suite.ledger.lines[0].AccountID)
	assert.Equal(t, supplier.ID, suite.ledger.lines[1].AccountID)

	logs := suite.auditLogs()
	require.Len(t, logs, 1)
	assert.Equal(t, models.ActionAccountingImport, logs[0].Action)
	assert.Equal(t, "journal_entries", logs[0].TableName)
	assert.Equal(t, "success", logs[0].NewValues["status"])
	assert.Equal(t, 3, logs[0].NewValues["lines_created"])
}

func (suite *AccountingImportServiceTestSuite) TestImport_SecondRunReusesJournalsAndAccounts() {
	t := suite.T()
	parsed := parser.Parse(bankStatementFile, parser.ParseOptions{})

	first := suite.service.ImportParsedData(suite.ctx, parsed, suite.meta())
	second := suite.service.ImportParsedData(suite.ctx, parsed, suite.meta())

	require.True(t, first.Success)
	require.True(t, second.Success)
	assert.Equal(t, 0, second.Summary.JournalsCreated)
	assert.Equal(t, first.Summary.JournalsCreated, second.Summary.JournalsExisting)
	assert.Equal(t, 0, second.Summary.AccountsCreated)
	assert.Equal(t, first.Summary.AccountsCreated, second.Summary.AccountsExisting)
	assert.Len(t, suite.ledger.journalRows, 1)
	assert.Len(t, suite.ledger.accountRows, 2)
	// Entries are not deduplicated across runs.
	assert.Len(t, suite.ledger.entries, 2)
	assert.Equal(t, suite.ledger.entries[0].JournalID, suite.ledger.entries[1].JournalID)
}

func (suite *AccountingImportServiceTestSuite) TestImport_TenantsAreIsolated() {
	t := suite.T()
	parsed := parser.Parse(bankStatementFile, parser.ParseOptions{})

	suite.service.ImportParsedData(suite.ctx, parsed, suite.meta())
	other := suite.service.ImportParsedData(suite.ctx, parsed, ImportMeta{TenantID: uuid.New()})

	require.True(t, other.Success)
	assert.Equal(t, 1, other.Summary.JournalsCreated)
	assert.Equal(t, 2, other.Summary.AccountsCreated)
}

func (suite *AccountingImportServiceTestSuite) TestImport_FailedLineBatchIsReported() {
	t := suite.T()
	logger, _ := test.NewNullLogger()
	suite.service = NewAccountingImportService(suite.ledger.repositories(), NewAuditLogsService(suite.auditRepo), logger, 2)
	suite.ledger.failLineCall[2] = true

	var b strings.Builder
	b.WriteString("JournalCode;EcritureNum;EcritureDate;CompteNum;Debit;Credit\n")
	b.WriteString("VT;1;20240105;411000;120,00;0,00\n")
	b.WriteString("VT;1;20240105;706000;0,00;100,00\n")
	b.WriteString("VT;1;20240105;445710;0,00;20,00\n")
	b.WriteString("VT;2;20240106;411000;60,00;0,00\n")
	b.WriteString("VT;2;20240106;706000;0,00;60,00\n")
	b.WriteString("VT;3;bad-date;706000;0,00;60,00\n")
	parsed := parser.Parse(b.String(), parser.ParseOptions{})
	require.Equal(t, 5, parsed.Stats.ValidLines)

	result := suite.service.ImportParsedData(suite.ctx, parsed, suite.meta())

	require.True(t, result.Success)
	summary := result.Summary
	assert.Equal(t, 3, suite.ledger.lineCalls)
	assert.Equal(t, 2, summary.EntriesCreated)
	assert.Equal(t, 3, summary.LinesCreated)
	assert.Equal(t, 2, summary.LinesWithErrors)
	assert.Equal(t, parsed.Stats.ValidLines, summary.LinesCreated+summary.LinesWithErrors)
	require.Len(t, summary.Errors, 1)
	assert.Equal(t, "batch 2", summary.Errors[0].Key)
	assert.Equal(t, 4, summary.Errors[0].LineNumber)
	assert.Contains(t, summary.Errors[0].Message, "lines 4 to 5")
}

func (suite *AccountingImportServiceTestSuite) TestImport_JournalInsertFailureIsFatal() {
	t := suite.T()
	logger, _ := test.NewNullLogger()
	journals := &repositories.MockJournalsRepository{}
	accounts := &repositories.MockAccountsRepository{}
	journals.On("GetIDsByCodes", suite.ctx, suite.tenantID, []string{"BQ1"}).Return(map[string]uuid.UUID{}, nil)
	journals.On("BulkCreate", suite.ctx, mock.Anything).Return(errors.New("permission denied for table journals"))
	service := NewAccountingImportService(LedgerRepositories{Journals: journals, Accounts: accounts}, NewAuditLogsService(suite.auditRepo), logger, 0)

	result := service.ImportParsedData(suite.ctx, parser.Parse(bankStatementFile, parser.ParseOptions{}), suite.meta())

	assert.False(t, result.Success)
	assert.Nil(t, result.Summary)
	assert.Contains(t, result.Error, "journals")
	assert.Contains(t, result.Error, "permission denied")
	journals.AssertExpectations(t)
	accounts.AssertNotCalled(t, "GetIDsByNumbers", mock.Anything, mock.Anything, mock.Anything)

	logs := suite.auditLogs()
	require.Len(t, logs, 1)
	assert.Equal(t, "failed", logs[0].NewValues["status"])
}

func (suite *AccountingImportServiceTestSuite) TestImport_AccountLookupFailureIsFatal() {
	t := suite.T()
	logger, _ := test.NewNullLogger()
	accounts := &repositories.MockAccountsRepository{}
	entries := &repositories.MockJournalEntriesRepository{}
	accounts.On("GetIDsByNumbers", suite.ctx, suite.tenantID, []string{"512000", "401000"}).Return(nil, errors.New("timeout"))
	repos := suite.ledger.repositories()
	repos.Accounts = accounts
	repos.Entries = entries
	service := NewAccountingImportService(repos, NewAuditLogsService(suite.auditRepo), logger, 0)

	result := service.ImportParsedData(suite.ctx, parser.Parse(bankStatementFile, parser.ParseOptions{}), suite.meta())

	assert.False(t, result.Success)
	assert.Equal(t, "accounts: timeout", result.Error)
	entries.AssertNotCalled(t, "BulkCreate", mock.Anything, mock.Anything)
}

func (suite *AccountingImportServiceTestSuite) TestImport_AuditFailureIsNotFatal() {
	t := suite.T()
	logger, hook := test.NewNullLogger()
	auditRepo := &repositories.MockAuditLogsRepository{}
	auditRepo.On("Create", mock.Anything, mock.Anything).Return(errors.New("audit_logs does not exist"))
	service := NewAccountingImportService(suite.ledger.repositories(), NewAuditLogsService(auditRepo), logger, 0)

	result := service.ImportParsedData(suite.ctx, parser.Parse(bankStatementFile, parser.ParseOptions{}), suite.meta())

	assert.True(t, result.Success)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "failed to write import audit log", hook.LastEntry().Message)
}

func (suite *AccountingImportServiceTestSuite) TestParseAndImport_RejectsFileWithoutValidLines() {
	t := suite.T()

	result, err := suite.service.ParseAndImport(suite.ctx, suite.meta(), strings.NewReader("Foo;Bar\n1;2\n"), parser.ParseOptions{})

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "required column")
	require.NotNil(t, result.Parse)
	assert.Empty(t, suite.ledger.journalRows)

	logs := suite.auditLogs()
	require.Len(t, logs, 1)
	assert.Equal(t, "failed", logs[0].NewValues["status"])
}

func (suite *AccountingImportServiceTestSuite) TestParseAndImport_Success() {
	t := suite.T()

	result, err := suite.service.ParseAndImport(suite.ctx, suite.meta(), strings.NewReader(bankStatementFile), parser.ParseOptions{})

	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Equal(t, 3, result.Summary.LinesCreated)
}

func (suite *AccountingImportServiceTestSuite) TestParseAndImport_Errors() {
	_, err := suite.service.ParseAndImport(suite.ctx, ImportMeta{FileName: "x.csv"}, strings.NewReader(bankStatementFile), parser.ParseOptions{})
	assert.ErrorIs(suite.T(), err, ErrNoTenant)

	_, err = suite.service.ParseAndImport(suite.ctx, suite.meta(), strings.NewReader(""), parser.ParseOptions{})
	assert.ErrorIs(suite.T(), err, parser.ErrEmptyFile)
}
