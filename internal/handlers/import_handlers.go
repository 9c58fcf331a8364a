package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"ledgerimport/internal/caching"
	"ledgerimport/internal/common"
	"ledgerimport/internal/jobs"
	"ledgerimport/internal/models"
	"ledgerimport/internal/parser"
	"ledgerimport/internal/services"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

const previewLineLimit = 50

// ImportOptions tunes the upload endpoints.
type ImportOptions struct {
	DefaultCurrency string
	// Uploads larger than AsyncThreshold bytes are queued even without async=true.
	AsyncThreshold int64
	StatusTTL      time.Duration
	MaxRetry       int
	Timeout        time.Duration
}

// ImportHandlers serves accounting file uploads. The archive and queue are
// optional; without them only synchronous imports are available.
type ImportHandlers struct {
	imports services.AccountingImportService
	audit   services.AuditLogsService
	archive services.ArchiveService
	status  caching.ImportStatusCache
	queue   jobs.Enqueuer
	opts    ImportOptions
	logger  logrus.FieldLogger
}

func NewImportHandlers(imports services.AccountingImportService, audit services.AuditLogsService, archive services.ArchiveService, status caching.ImportStatusCache, queue jobs.Enqueuer, opts ImportOptions, logger logrus.FieldLogger) *ImportHandlers {
	return &ImportHandlers{
		imports: imports,
		audit:   audit,
		archive: archive,
		status:  status,
		queue:   queue,
		opts:    opts,
		logger:  logger,
	}
}

// ImportAccepted is returned for queued imports.
type ImportAccepted struct {
	ImportID uuid.UUID `json:"import_id"`
	Status   string    `json:"status"`
}

func (h *ImportHandlers) parseOptions(c echo.Context) (parser.ParseOptions, error) {
	opts := parser.ParseOptions{DefaultCurrency: h.opts.DefaultCurrency}
	if currency := strings.TrimSpace(c.FormValue("default_currency")); currency != "" {
		if len(currency) != 3 {
			return opts, errors.New("default_currency must be a 3-letter ISO code")
		}
		opts.DefaultCurrency = strings.ToUpper(currency)
	}
	if standard := strings.TrimSpace(c.FormValue("standard")); standard != "" {
		opts.ExpectedStandard = models.ParseStandard(strings.ToUpper(standard))
		if opts.ExpectedStandard == "" {
			return opts, errors.New("standard must be one of PCG, SYSCOHADA, IFRS, SCF, US_GAAP")
		}
	}
	return opts, nil
}

// Upload imports an accounting file into the tenant's ledger.
func (h *ImportHandlers) Upload(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID, ok := common.GetTenantIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}
	var userID *uuid.UUID
	if id, ok := common.GetUserIDFromContext(ctx); ok {
		userID = &id
	}

	file, err := c.FormFile("file")
	if err != nil {
		return common.SendValidationError(c, "file", "an accounting file is required")
	}
	opts, err := h.parseOptions(c)
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	meta := services.ImportMeta{ID: uuid.New(), TenantID: tenantID, UserID: userID, FileName: file.Filename}
	async, _ := strconv.ParseBool(c.FormValue("async"))
	if h.opts.AsyncThreshold > 0 && file.Size > h.opts.AsyncThreshold {
		async = true
	}
	if async && (h.queue == nil || h.archive == nil) {
		return common.SendClientError(c, "asynchronous imports are not available")
	}

	src, err := file.Open()
	if err != nil {
		return common.SendServerError(c, "failed to read uploaded file")
	}
	defer src.Close()

	log := h.logger.WithFields(logrus.Fields{"tenant_id": tenantID, "import_id": meta.ID, "file": file.Filename})

	if async {
		return h.enqueue(c, meta, opts, src, file.Size, log)
	}

	if h.archive != nil {
		if _, err := h.archive.Store(ctx, tenantID, meta.ID, file.Filename, src, file.Size); err != nil {
			log.WithError(err).Warn("failed to archive upload")
		}
		if _, err := src.Seek(0, io.SeekStart); err != nil {
			return common.SendServerError(c, "failed to read uploaded file")
		}
	}

	result, err := h.imports.ParseAndImport(ctx, meta, src, opts)
	if err != nil {
		if errors.Is(err, parser.ErrEmptyFile) || errors.Is(err, parser.ErrUnsupportedFile) {
			return common.SendValidationError(c, "file", err.Error())
		}
		log.WithError(err).Error("accounting import could not start")
		return common.SendServerError(c, "failed to import file")
	}
	if !result.Success {
		return c.JSON(http.StatusUnprocessableEntity, result)
	}
	return c.JSON(http.StatusOK, result)
}

func (h *ImportHandlers) enqueue(c echo.Context, meta services.ImportMeta, opts parser.ParseOptions, src io.Reader, size int64, log logrus.FieldLogger) error {
	ctx := c.Request().Context()

	key, err := h.archive.Store(ctx, meta.TenantID, meta.ID, meta.FileName, src, size)
	if err != nil {
		log.WithError(err).Error("failed to archive upload")
		return common.SendServerError(c, "failed to store file")
	}

	task, err := jobs.NewImportTask(jobs.ImportPayload{
		ImportID:         meta.ID,
		TenantID:         meta.TenantID,
		UserID:           meta.UserID,
		ObjectKey:        key,
		FileName:         meta.FileName,
		DefaultCurrency:  opts.DefaultCurrency,
		ExpectedStandard: opts.ExpectedStandard,
	})
	if err != nil {
		return common.SendServerError(c, "failed to queue import")
	}

	var taskOpts []asynq.Option
	if h.opts.MaxRetry > 0 {
		taskOpts = append(taskOpts, asynq.MaxRetry(h.opts.MaxRetry))
	}
	if h.opts.Timeout > 0 {
		taskOpts = append(taskOpts, asynq.Timeout(h.opts.Timeout))
	}
	if _, err := h.queue.Enqueue(task, taskOpts...); err != nil {
		log.WithError(err).Error("failed to enqueue import")
		return common.SendServerError(c, "failed to queue import")
	}

	now := time.Now()
	job := &models.ImportJob{
		ID:        meta.ID,
		TenantID:  meta.TenantID,
		FileName:  meta.FileName,
		ObjectKey: key,
		Status:    models.ImportStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.status.SetImport(ctx, job, h.opts.StatusTTL); err != nil {
		log.WithError(err).Warn("failed to record queued import")
	}

	log.Info("accounting import queued")
	return c.JSON(http.StatusAccepted, ImportAccepted{ImportID: meta.ID, Status: models.ImportStatusQueued})
}

// Preview parses an uploaded file without writing anything.
func (h *ImportHandlers) Preview(c echo.Context) error {
	file, err := c.FormFile("file")
	if err != nil {
		return common.SendValidationError(c, "file", "an accounting file is required")
	}
	opts, err := h.parseOptions(c)
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	src, err := file.Open()
	if err != nil {
		return common.SendServerError(c, "failed to read uploaded file")
	}
	defer src.Close()

	content, err := parser.ReadContent(file.Filename, src)
	if err != nil {
		return common.SendValidationError(c, "file", err.Error())
	}

	result := content.Parse(opts)
	if len(result.Lines) > previewLineLimit {
		result.Lines = result.Lines[:previewLineLimit]
	}
	return c.JSON(http.StatusOK, result)
}

// Status returns the state of a queued import.
func (h *ImportHandlers) Status(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID, ok := common.GetTenantIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	importID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}
	if h.status == nil {
		return common.SendNotFoundError(c, "import")
	}

	job, err := h.status.GetImport(ctx, tenantID, importID)
	if err != nil {
		h.logger.WithError(err).WithField("import_id", importID).Error("failed to read import status")
		return common.SendServerError(c, "failed to read import status")
	}
	if job == nil {
		return common.SendNotFoundError(c, "import")
	}
	return c.JSON(http.StatusOK, job)
}

// History lists the tenant's import attempts from the audit log, newest first.
func (h *ImportHandlers) History(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID, ok := common.GetTenantIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	limit, offset, err := common.ValidatePaginationParams(limit, offset)
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	logs, err := h.audit.ListImports(ctx, tenantID, limit, offset)
	if err != nil {
		return common.SendServerError(c, "failed to list imports")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"data":   logs,
		"total":  len(logs),
		"limit":  limit,
		"offset": offset,
	})
}
