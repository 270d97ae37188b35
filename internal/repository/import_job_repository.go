package repository

import (
	"context"
	"errors"
	"time"

	"github.com/noah-isme/cbcs-registration/internal/models"
	appErrors "github.com/noah-isme/cbcs-registration/pkg/errors"
)

const importJobKeyPrefix = "import_job:"

// ImportJobRepository tracks asynchronous imports in Redis.
type ImportJobRepository struct {
	store KeyValueStore
	ttl   time.Duration
}

// NewImportJobRepository constructs an ImportJobRepository.
func NewImportJobRepository(store KeyValueStore, ttl time.Duration) *ImportJobRepository {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &ImportJobRepository{store: store, ttl: ttl}
}

// Save upserts the job record.
func (r *ImportJobRepository) Save(ctx context.Context, job *models.ImportJob) error {
	return r.store.Set(ctx, importJobKeyPrefix+job.ID, job, r.ttl)
}

// Find returns ErrNotFound for unknown or expired jobs.
func (r *ImportJobRepository) Find(ctx context.Context, id string) (*models.ImportJob, error) {
	var job models.ImportJob
	if err := r.store.Get(ctx, importJobKeyPrefix+id, &job); err != nil {
		if errors.Is(err, appErrors.ErrCacheMiss) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "import job not found")
		}
		return nil, err
	}
	return &job, nil
}
