package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/cbcs-registration/internal/models"
	appErrors "github.com/noah-isme/cbcs-registration/pkg/errors"
	"github.com/noah-isme/cbcs-registration/pkg/jobs"
	"github.com/noah-isme/cbcs-registration/pkg/session"
)

// ImportJobType prefixes queue job types for spreadsheet imports.
const ImportJobType = "import"

type importRunner interface {
	Run(ctx context.Context, req ImportRequest) (*models.ImportResult, error)
}

type importJobStore interface {
	Save(ctx context.Context, job *models.ImportJob) error
	Find(ctx context.Context, id string) (*models.ImportJob, error)
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

// importPayload travels through the queue; the session keeps the registrar token alive for the worker.
type importPayload struct {
	Request ImportRequest
	Session *session.Session
}

// ImportService runs spreadsheet imports inline or in the background.
type ImportService struct {
	runner importRunner
	store  importJobStore
	queue  jobDispatcher
	logger *zap.Logger
	now    func() time.Time
}

// NewImportService constructs an ImportService. store and queue may be nil when background imports are off.
func NewImportService(runner importRunner, store importJobStore, queue jobDispatcher, logger *zap.Logger) *ImportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportService{
		runner: runner,
		store:  store,
		queue:  queue,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Import processes the file within the request.
func (s *ImportService) Import(ctx context.Context, req ImportRequest) (*models.ImportResult, error) {
	return s.runner.Run(ctx, req)
}

// Enqueue records a QUEUED job and hands it to the worker pool.
func (s *ImportService) Enqueue(ctx context.Context, req ImportRequest) (*models.ImportJob, error) {
	if s.store == nil || s.queue == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "background imports are disabled")
	}
	sess := session.FromContext(ctx)
	job := &models.ImportJob{
		ID:        uuid.NewString(),
		Kind:      req.Kind,
		Filename:  req.Filename,
		Status:    models.ImportJobQueued,
		CreatedBy: sess.Actor(),
		CreatedAt: s.now(),
	}
	if err := s.store.Save(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record import job")
	}
	if err := s.queue.Enqueue(jobs.Job{
		ID:      job.ID,
		Type:    fmt.Sprintf("%s:%s", ImportJobType, req.Kind),
		Payload: importPayload{Request: req, Session: sess},
	}); err != nil {
		job.Status = models.ImportJobFailed
		job.Error = err.Error()
		if saveErr := s.store.Save(ctx, job); saveErr != nil {
			s.logger.Warn("failed to mark import job failed", zap.String("job_id", job.ID), zap.Error(saveErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue import")
	}
	s.logger.Info("import queued", zap.String("job_id", job.ID), zap.String("kind", string(req.Kind)), zap.String("actor", job.CreatedBy))
	return job, nil
}

// Job returns a background import record.
func (s *ImportService) Job(ctx context.Context, id string) (*models.ImportJob, error) {
	if s.store == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "import job not found")
	}
	return s.store.Find(ctx, id)
}

// ImportOutcome maps a tally onto the error the response should carry, if any.
func ImportOutcome(result *models.ImportResult) error {
	switch {
	case result == nil:
		return appErrors.ErrInternal
	case result.Partial():
		return appErrors.Clone(appErrors.ErrPartialBatch, fmt.Sprintf("%d of %d rows failed to import", result.Failed, result.Total))
	case result.Failed > 0 && result.Succeeded == 0:
		return appErrors.Clone(appErrors.ErrValidation, "no rows were imported")
	case result.Total == 0:
		return appErrors.Clone(appErrors.ErrValidation, "file contains no data rows")
	}
	return nil
}

// ImportWorker bridges queue jobs to the Importer.
type ImportWorker struct {
	runner importRunner
	store  importJobStore
	logger *zap.Logger
	now    func() time.Time
}

// NewImportWorker constructs a worker.
func NewImportWorker(runner importRunner, store importJobStore, logger *zap.Logger) *ImportWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportWorker{
		runner: runner,
		store:  store,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Handle processes a queue job. Once rows have been submitted the job is never retried,
// since replaying it would create them twice.
func (w *ImportWorker) Handle(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(importPayload)
	if !ok {
		w.logger.Error("unexpected import payload", zap.String("job_id", job.ID), zap.String("type", job.Type))
		return nil
	}
	record, err := w.store.Find(ctx, job.ID)
	if err != nil {
		return err
	}
	record.Status = models.ImportJobProcessing
	if err := w.store.Save(ctx, record); err != nil {
		return err
	}

	result, runErr := w.runner.Run(session.WithSession(ctx, payload.Session), payload.Request)
	finished := w.now()
	record.FinishedAt = &finished
	if runErr != nil {
		record.Status = models.ImportJobFailed
		record.Error = appErrors.FromError(runErr).Message
	} else {
		record.Status = models.ImportJobFinished
		record.Result = result
		record.Error = ""
	}
	if err := w.store.Save(ctx, record); err != nil {
		w.logger.Warn("failed to record import outcome", zap.String("job_id", job.ID), zap.Error(err))
	}
	return nil
}

// GiveUp marks a job FAILED once the queue stops retrying it.
func (w *ImportWorker) GiveUp(ctx context.Context, job jobs.Job, cause error) {
	record, err := w.store.Find(context.WithoutCancel(ctx), job.ID)
	if err != nil {
		w.logger.Warn("import job lost", zap.String("job_id", job.ID), zap.Error(err))
		return
	}
	finished := w.now()
	record.Status = models.ImportJobFailed
	record.Error = appErrors.FromError(cause).Message
	record.FinishedAt = &finished
	if err := w.store.Save(context.WithoutCancel(ctx), record); err != nil {
		w.logger.Warn("failed to record import outcome", zap.String("job_id", job.ID), zap.Error(err))
	}
}
