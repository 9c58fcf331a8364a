package repositories

import (
	"context"

	"ledgerimport/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockJournalsRepository is a testify mock of JournalsRepository.
type MockJournalsRepository struct {
	mock.Mock
}

func (m *MockJournalsRepository) GetIDsByCodes(ctx context.Context, tenantID uuid.UUID, codes []string) (map[string]uuid.UUID, error) {
	args := m.Called(ctx, tenantID, codes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]uuid.UUID), args.Error(1)
}

func (m *MockJournalsRepository) BulkCreate(ctx context.Context, journals []*models.Journal) error {
	return m.Called(ctx, journals).Error(0)
}

// MockAccountsRepository is a testify mock of AccountsRepository.
type MockAccountsRepository struct {
	mock.Mock
}

func (m *MockAccountsRepository) GetIDsByNumbers(ctx context.Context, tenantID uuid.UUID, numbers []string) (map[string]uuid.UUID, error) {
	args := m.Called(ctx, tenantID, numbers)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]uuid.UUID), args.Error(1)
}

func (m *MockAccountsRepository) BulkCreate(ctx context.Context, accounts []*models.Account) error {
	return m.Called(ctx, accounts).Error(0)
}

// MockJournalEntriesRepository is a testify mock of JournalEntriesRepository.
type MockJournalEntriesRepository struct {
	mock.Mock
}

func (m *MockJournalEntriesRepository) BulkCreate(ctx context.Context, entries []*models.JournalEntry) error {
	return m.Called(ctx, entries).Error(0)
}

// MockJournalEntryLinesRepository is a testify mock of JournalEntryLinesRepository.
type MockJournalEntryLinesRepository struct {
	mock.Mock
}

func (m *MockJournalEntryLinesRepository) BulkCreate(ctx context.Context, lines []*models.JournalEntryLine) error {
	return m.Called(ctx, lines).Error(0)
}

// MockAuditLogsRepository is a testify mock of AuditLogsRepository.
type MockAuditLogsRepository struct {
	mock.Mock
}

func (m *MockAuditLogsRepository) Create(ctx context.Context, auditLog *models.AuditLog) error {
	return m.Called(ctx, auditLog).Error(0)
}

func (m *MockAuditLogsRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.AuditLog, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AuditLog), args.Error(1)
}

func (m *MockAuditLogsRepository) List(ctx context.Context, tenantID uuid.UUID, filters *models.AuditLogFilters) ([]*models.AuditLog, error) {
	args := m.Called(ctx, tenantID, filters)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.AuditLog), args.Error(1)
}
