package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ledgerimport/internal/caching"
	"ledgerimport/internal/models"
	"ledgerimport/internal/parser"
	"ledgerimport/internal/services"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
)

// Task type definitions
const (
	TypeAccountingImport = "accounting:import"

	ImportQueue = "imports"
)

// ImportPayload describes an archived upload waiting to be imported.
type ImportPayload struct {
	ImportID         uuid.UUID                 `json:"import_id"`
	TenantID         uuid.UUID                 `json:"tenant_id"`
	UserID           *uuid.UUID                `json:"user_id,omitempty"`
	ObjectKey        string                    `json:"object_key"`
	FileName         string                    `json:"file_name"`
	DefaultCurrency  string                    `json:"default_currency,omitempty"`
	ExpectedStandard models.AccountingStandard `json:"expected_standard,omitempty"`
}

func (p ImportPayload) options() parser.ParseOptions {
	return parser.ParseOptions{DefaultCurrency: p.DefaultCurrency, ExpectedStandard: p.ExpectedStandard}
}

// NewImportTask creates an accounting import task on the imports queue.
func NewImportTask(payload ImportPayload, opts ...asynq.Option) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	opts = append([]asynq.Option{asynq.Queue(ImportQueue), asynq.TaskID(payload.ImportID.String())}, opts...)
	return asynq.NewTask(TypeAccountingImport, data, opts...), nil
}

func ParseImportPayload(t *asynq.Task) (ImportPayload, error) {
	var payload ImportPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return payload, fmt.Errorf("failed to unmarshal import payload: %w", err)
	}
	if payload.TenantID == uuid.Nil || payload.ImportID == uuid.Nil || payload.ObjectKey == "" {
		return payload, errors.New("import payload is missing tenant, import id or object key")
	}
	return payload, nil
}

// Enqueuer is satisfied by *asynq.Client.
type Enqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// ImportProcessor runs queued imports from the upload archive.
type ImportProcessor struct {
	imports   services.AccountingImportService
	archive   services.ArchiveService
	status    caching.ImportStatusCache
	statusTTL time.Duration
	logger    logrus.FieldLogger
	now       func() time.Time
}

func NewImportProcessor(imports services.AccountingImportService, archive services.ArchiveService, status caching.ImportStatusCache, statusTTL time.Duration, logger logrus.FieldLogger) *ImportProcessor {
	return &ImportProcessor{
		imports:   imports,
		archive:   archive,
		status:    status,
		statusTTL: statusTTL,
		logger:    logger,
		now:       time.Now,
	}
}

// ProcessTask handles accounting import tasks. Only storage errors are retried:
// a rejected file or a failed import is final, since imports are not transactional.
func (p *ImportProcessor) ProcessTask(ctx context.Context, t *asynq.Task) error {
	payload, err := ParseImportPayload(t)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	log := p.logger.WithFields(logrus.Fields{
		"tenant_id": payload.TenantID,
		"import_id": payload.ImportID,
		"file":      payload.FileName,
	})
	log.Info("starting queued accounting import")
	p.setStatus(ctx, payload, models.ImportStatusProcessing, nil, "")

	obj, err := p.archive.Fetch(ctx, payload.ObjectKey)
	if err != nil {
		log.WithError(err).Error("failed to fetch archived upload")
		return err
	}
	defer obj.Close()

	result, err := p.imports.ParseAndImport(ctx, services.ImportMeta{
		ID:       payload.ImportID,
		TenantID: payload.TenantID,
		UserID:   payload.UserID,
		FileName: payload.FileName,
	}, obj, payload.options())
	if err != nil {
		p.setStatus(ctx, payload, models.ImportStatusFailed, nil, err.Error())
		if errors.Is(err, parser.ErrEmptyFile) || errors.Is(err, parser.ErrUnsupportedFile) {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}

	if !result.Success {
		log.WithField("error", result.Error).Warn("queued accounting import failed")
		p.setStatus(ctx, payload, models.ImportStatusFailed, nil, result.Error)
		return nil
	}

	log.WithFields(logrus.Fields{
		"entries_created": result.Summary.EntriesCreated,
		"lines_created":   result.Summary.LinesCreated,
	}).Info("queued accounting import completed")
	p.setStatus(ctx, payload, models.ImportStatusCompleted, result.Summary, "")
	return nil
}

func (p *ImportProcessor) setStatus(ctx context.Context, payload ImportPayload, status string, summary *models.ImportSummary, failure string) {
	now := p.now()
	job, err := p.status.GetImport(ctx, payload.TenantID, payload.ImportID)
	if err != nil || job == nil {
		job = &models.ImportJob{
			ID:        payload.ImportID,
			TenantID:  payload.TenantID,
			FileName:  payload.FileName,
			ObjectKey: payload.ObjectKey,
			CreatedAt: now,
		}
	}
	job.Status = status
	job.Summary = summary
	job.Error = failure
	job.UpdatedAt = now

	if err := p.status.SetImport(ctx, job, p.statusTTL); err != nil {
		p.logger.WithError(err).WithField("import_id", payload.ImportID).Warn("failed to update import status")
	}
}
