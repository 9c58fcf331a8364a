package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ledgerimport/internal/common"
	"ledgerimport/internal/jobs"
	"ledgerimport/internal/models"
	"ledgerimport/internal/parser"
	"ledgerimport/internal/repositories"
	"ledgerimport/internal/services"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type MockAccountingImportService struct {
	mock.Mock
}

func (m *MockAccountingImportService) ParseAndImport(ctx context.Context, meta services.ImportMeta, r io.Reader, opts parser.ParseOptions) (*models.ImportResult, error) {
	args := m.Called(ctx, meta, r, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ImportResult), args.Error(1)
}

func (m *MockAccountingImportService) ImportParsedData(ctx context.Context, parsed *models.ParseResult, meta services.ImportMeta) *models.ImportResult {
	return m.Called(ctx, parsed, meta).Get(0).(*models.ImportResult)
}

type MockArchiveService struct {
	mock.Mock
}

func (m *MockArchiveService) Store(ctx context.Context, tenantID, importID uuid.UUID, fileName string, reader io.Reader, size int64) (string, error) {
	args := m.Called(ctx, tenantID, importID, fileName, reader, size)
	return args.String(0), args.Error(1)
}

func (m *MockArchiveService) Fetch(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	args := m.Called(ctx, objectKey)
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

func (m *MockArchiveService) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	args := m.Called(ctx, cutoff)
	return args.Int(0), args.Error(1)
}

func (m *MockArchiveService) EnsureBucketExists(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockArchiveService) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type MockImportStatusCache struct {
	mock.Mock
}

func (m *MockImportStatusCache) SetImport(ctx context.Context, job *models.ImportJob, ttl time.Duration) error {
	return m.Called(ctx, job, ttl).Error(0)
}

func (m *MockImportStatusCache) GetImport(ctx context.Context, tenantID, importID uuid.UUID) (*models.ImportJob, error) {
	args := m.Called(ctx, tenantID, importID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ImportJob), args.Error(1)
}

func (m *MockImportStatusCache) DeleteImport(ctx context.Context, tenantID, importID uuid.UUID) error {
	return m.Called(ctx, tenantID, importID).Error(0)
}

func (m *MockImportStatusCache) IsRateLimited(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	args := m.Called(ctx, key, limit, window)
	return args.Bool(0), args.Error(1)
}

func (m *MockImportStatusCache) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type MockEnqueuer struct {
	mock.Mock
}

func (m *MockEnqueuer) Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	args := m.Called(task, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*asynq.TaskInfo), args.Error(1)
}

const uploadFile = `JournalCode;EcritureNum;EcritureDate;CompteNum;CompteLib;EcritureLib;Debit;Credit
BQ1;1;20240131;512000;Banque;Paiement fournisseur;0,00;1500,00
BQ1;1;20240131;401000;Fournisseur;Paiement fournisseur;1500,00;0,00
`

type ImportHandlersTestSuite struct {
	suite.Suite
	e         *echo.Echo
	imports   *MockAccountingImportService
	auditRepo *repositories.MockAuditLogsRepository
	archive   *MockArchiveService
	status    *MockImportStatusCache
	queue     *MockEnqueuer
	handlers  *ImportHandlers
	tenantID  uuid.UUID
	userID    uuid.UUID
}

func (suite *ImportHandlersTestSuite) SetupTest() {
	logger, _ := test.NewNullLogger()
	suite.e = echo.New()
	suite.imports = &MockAccountingImportService{}
	suite.auditRepo = &repositories.MockAuditLogsRepository{}
	suite.archive = &MockArchiveService{}
	suite.status = &MockImportStatusCache{}
	suite.queue = &MockEnqueuer{}
	suite.tenantID = uuid.New()
	suite.userID = uuid.New()
	suite.handlers = NewImportHandlers(suite.imports, services.NewAuditLogsService(suite.auditRepo), nil, suite.status, nil, ImportOptions{
		DefaultCurrency: "EUR",
		StatusTTL:       time.Hour,
		MaxRetry:        2,
	}, logger)
}

func (suite *ImportHandlersTestSuite) TearDownTest() {
	suite.imports.AssertExpectations(suite.T())
	suite.archive.AssertExpectations(suite.T())
	suite.status.AssertExpectations(suite.T())
	suite.queue.AssertExpectations(suite.T())
}

func TestImportHandlersTestSuite(t *testing.T) {
	suite.Run(t, new(ImportHandlersTestSuite))
}

func (suite *ImportHandlersTestSuite) enableQueue() {
	suite.handlers.archive = suite.archive
	suite.handlers.queue = suite.queue
}

func multipartRequest(t *testing.T, target, fileName, content string, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if fileName != "" {
		part, err := w.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return req
}

func (suite *ImportHandlersTestSuite) withTenant(req *http.Request) *http.Request {
	ctx := context.WithValue(req.Context(), common.TenantIDKey, suite.tenantID)
	ctx = context.WithValue(ctx, common.UserIDKey, suite.userID)
	return req.WithContext(ctx)
}

func (suite *ImportHandlersTestSuite) serve(req *http.Request, handler echo.HandlerFunc, params ...string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	c := suite.e.NewContext(req, rec)
	if len(params) == 2 {
		c.SetParamNames(params[0])
		c.SetParamValues(params[1])
	}
	err := handler(c)
	require.NoError(suite.T(), err)
	return rec
}

func (suite *ImportHandlersTestSuite) TestUpload_Synchronous() {
	summary := &models.ImportSummary{JournalsCreated: 1, AccountsCreated: 2, EntriesCreated: 1, LinesCreated: 2, Errors: []models.ImportError{}}
	matchMeta := mock.MatchedBy(func(meta services.ImportMeta) bool {
		return meta.TenantID == suite.tenantID && *meta.UserID == suite.userID && meta.FileName == "fec.txt" && meta.ID != uuid.Nil
	})
	suite.imports.On("ParseAndImport", mock.Anything, matchMeta, mock.Anything, parser.ParseOptions{DefaultCurrency: "XOF", ExpectedStandard: models.StandardSYSCOHADA}).
		Return(&models.ImportResult{Success: true, Summary: summary}, nil).Once()

	req := suite.withTenant(multipartRequest(suite.T(), "/v1/imports", "fec.txt", uploadFile, map[string]string{
		"default_currency": "xof",
		"standard":         "syscohada",
	}))
	rec := suite.serve(req, suite.handlers.Upload)

	assert.Equal(suite.T(), http.StatusOK, rec.Code)
	var result models.ImportResult
	require.NoError(suite.T(), json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(suite.T(), result.Success)
	assert.Equal(suite.T(), 2, result.Summary.LinesCreated)
}

func (suite *ImportHandlersTestSuite) TestUpload_FailedImport() {
	suite.imports.On("ParseAndImport", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&models.ImportResult{Success: false, Error: "accounts: timeout"}, nil).Once()

	rec := suite.serve(suite.withTenant(multipartRequest(suite.T(), "/v1/imports", "fec.txt", uploadFile, nil)), suite.handlers.Upload)

	assert.Equal(suite.T(), http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(suite.T(), rec.Body.String(), "accounts: timeout")
}

func (suite *ImportHandlersTestSuite) TestUpload_EmptyFile() {
	suite.imports.On("ParseAndImport", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, parser.ErrEmptyFile).Once()

	rec := suite.serve(suite.withTenant(multipartRequest(suite.T(), "/v1/imports", "fec.txt", "", nil)), suite.handlers.Upload)

	assert.Equal(suite.T(), http.StatusBadRequest, rec.Code)
	assert.Contains(suite.T(), rec.Body.String(), "VALIDATION_ERROR")
}

func (suite *ImportHandlersTestSuite) TestUpload_RejectedRequests() {
	rec := suite.serve(multipartRequest(suite.T(), "/v1/imports", "fec.txt", uploadFile, nil), suite.handlers.Upload)
	assert.Equal(suite.T(), http.StatusUnauthorized, rec.Code)

	rec = suite.serve(suite.withTenant(multipartRequest(suite.T(), "/v1/imports", "", "", nil)), suite.handlers.Upload)
	assert.Equal(suite.T(), http.StatusBadRequest, rec.Code)
	assert.Contains(suite.T(), rec.Body.String(), "an accounting file is required")

	rec = suite.serve(suite.withTenant(multipartRequest(suite.T(), "/v1/imports", "fec.txt", uploadFile, map[string]string{"standard": "HGB"})), suite.handlers.Upload)
	assert.Equal(suite.T(), http.StatusBadRequest, rec.Code)
	assert.Contains(suite.T(), rec.Body.String(), "standard must be one of")

	rec = suite.serve(suite.withTenant(multipartRequest(suite.T(), "/v1/imports", "fec.txt", uploadFile, map[string]string{"default_currency": "EURO"})), suite.handlers.Upload)
	assert.Equal(suite.T(), http.StatusBadRequest, rec.Code)

	rec = suite.serve(suite.withTenant(multipartRequest(suite.T(), "/v1/imports", "fec.txt", uploadFile, map[string]string{"async": "true"})), suite.handlers.Upload)
	assert.Equal(suite.T(), http.StatusBadRequest, rec.Code)
	assert.Contains(suite.T(), rec.Body.String(), "asynchronous imports are not available")
}

func (suite *ImportHandlersTestSuite) TestUpload_Queued() {
	suite.enableQueue()
	key := "imports/" + suite.tenantID.String() + "/2024/01/31/x-fec.txt"
	suite.archive.On("Store", mock.Anything, suite.tenantID, mock.Anything, "fec.txt", mock.Anything, int64(len(uploadFile))).Return(key, nil).Once()

	var queued *asynq.Task
	suite.queue.On("Enqueue", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		queued = args.Get(0).(*asynq.Task)
	}).Return(&asynq.TaskInfo{ID: "task"}, nil).Once()

	var recorded *models.ImportJob
	suite.status.On("SetImport", mock.Anything, mock.Anything, time.Hour).Run(func(args mock.Arguments) {
		recorded = args.Get(1).(*models.ImportJob)
	}).Return(nil).Once()

	req := suite.withTenant(multipartRequest(suite.T(), "/v1/imports", "fec.txt", uploadFile, map[string]string{"async": "true"}))
	rec := suite.serve(req, suite.handlers.Upload)

	require.Equal(suite.T(), http.StatusAccepted, rec.Code)
	var accepted ImportAccepted
	require.NoError(suite.T(), json.Unmarshal(rec.Body.Bytes(), &accepted))
	assert.Equal(suite.T(), models.ImportStatusQueued, accepted.Status)

	require.NotNil(suite.T(), queued)
	payload, err := jobs.ParseImportPayload(queued)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), accepted.ImportID, payload.ImportID)
	assert.Equal(suite.T(), suite.tenantID, payload.TenantID)
	assert.Equal(suite.T(), key, payload.ObjectKey)
	assert.Equal(suite.T(), "EUR", payload.DefaultCurrency)

	require.NotNil(suite.T(), recorded)
	assert.Equal(suite.T(), accepted.ImportID, recorded.ID)
	assert.Equal(suite.T(), models.ImportStatusQueued, recorded.Status)
}

func (suite *ImportHandlersTestSuite) TestUpload_LargeFilesAreQueued() {
	suite.enableQueue()
	suite.handlers.opts.AsyncThreshold = 10
	suite.archive.On("Store", mock.Anything, suite.tenantID, mock.Anything, "fec.txt", mock.Anything, mock.Anything).Return("key", nil).Once()
	suite.queue.On("Enqueue", mock.Anything, mock.Anything).Return(nil, errors.New("redis: connection refused")).Once()

	rec := suite.serve(suite.withTenant(multipartRequest(suite.T(), "/v1/imports", "fec.txt", uploadFile, nil)), suite.handlers.Upload)

	assert.Equal(suite.T(), http.StatusInternalServerError, rec.Code)
	assert.Contains(suite.T(), rec.Body.String(), "failed to queue import")
}

func (suite *ImportHandlersTestSuite) TestPreview() {
	rec := suite.serve(multipartRequest(suite.T(), "/v1/imports/preview", "fec.txt", uploadFile, nil), suite.handlers.Preview)

	require.Equal(suite.T(), http.StatusOK, rec.Code)
	var result models.ParseResult
	require.NoError(suite.T(), json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(suite.T(), result.Success)
	assert.Equal(suite.T(), models.FormatFEC, result.Format)
	assert.Len(suite.T(), result.Lines, 2)
	assert.Equal(suite.T(), 2, result.Stats.ValidLines)
}

func (suite *ImportHandlersTestSuite) TestPreview_EmptyFile() {
	rec := suite.serve(multipartRequest(suite.T(), "/v1/imports/preview", "fec.txt", "", nil), suite.handlers.Preview)
	assert.Equal(suite.T(), http.StatusBadRequest, rec.Code)
}

func (suite *ImportHandlersTestSuite) TestStatus() {
	importID := uuid.New()
	job := &models.ImportJob{ID: importID, TenantID: suite.tenantID, Status: models.ImportStatusProcessing}
	suite.status.On("GetImport", mock.Anything, suite.tenantID, importID).Return(job, nil).Once()

	rec := suite.serve(suite.withTenant(httptest.NewRequest(http.MethodGet, "/", nil)), suite.handlers.Status, "id", importID.String())

	assert.Equal(suite.T(), http.StatusOK, rec.Code)
	assert.Contains(suite.T(), rec.Body.String(), `"status":"processing"`)
}

func (suite *ImportHandlersTestSuite) TestStatus_NotFound() {
	importID := uuid.New()
	suite.status.On("GetImport", mock.Anything, suite.tenantID, importID).Return(nil, nil).Once()

	rec := suite.serve(suite.withTenant(httptest.NewRequest(http.MethodGet, "/", nil)), suite.handlers.Status, "id", importID.String())
	assert.Equal(suite.T(), http.StatusNotFound, rec.Code)

	rec = suite.serve(suite.withTenant(httptest.NewRequest(http.MethodGet, "/", nil)), suite.handlers.Status, "id", "42")
	assert.Equal(suite.T(), http.StatusBadRequest, rec.Code)
}

func (suite *ImportHandlersTestSuite) TestHistory() {
	logs := []*models.AuditLog{{
		ID:        uuid.New(),
		TenantID:  suite.tenantID,
		TableName: "journal_entries",
		Action:    models.ActionAccountingImport,
		NewValues: models.JSONB{"status": "success", "file_name": "fec.txt"},
	}}
	suite.auditRepo.On("List", mock.Anything, suite.tenantID, mock.MatchedBy(func(f *models.AuditLogFilters) bool {
		return f.Action != nil && *f.Action == models.ActionAccountingImport && f.Limit == 20 && f.Offset == 40
	})).Return(logs, nil).Once()

	rec := suite.serve(suite.withTenant(httptest.NewRequest(http.MethodGet, "/v1/imports/history?limit=20&offset=40", nil)), suite.handlers.History)

	assert.Equal(suite.T(), http.StatusOK, rec.Code)
	assert.Contains(suite.T(), rec.Body.String(), `"file_name":"fec.txt"`)
	assert.Contains(suite.T(), rec.Body.String(), `"total":1`)
	suite.auditRepo.AssertExpectations(suite.T())
}
