package repository

import (
	"context"
	"errors"
	"time"

	"github.com/noah-isme/cbcs-registration/internal/models"
	appErrors "github.com/noah-isme/cbcs-registration/pkg/errors"
)

const heldKeyPrefix = "held_courses:"

// HeldCourseRepository remembers courses removed from another semester under the hold policy.
type HeldCourseRepository struct {
	store KeyValueStore
	ttl   time.Duration
}

// NewHeldCourseRepository constructs a HeldCourseRepository. A zero ttl keeps entries until overwritten.
func NewHeldCourseRepository(store KeyValueStore, ttl time.Duration) *HeldCourseRepository {
	return &HeldCourseRepository{store: store, ttl: ttl}
}

// Load returns the held courses for a student; none is not an error.
func (r *HeldCourseRepository) Load(ctx context.Context, username string) ([]models.Course, error) {
	var courses []models.Course
	if err := r.store.Get(ctx, heldKeyPrefix+username, &courses); err != nil {
		if errors.Is(err, appErrors.ErrCacheMiss) {
			return nil, nil
		}
		return nil, err
	}
	return courses, nil
}

// Save replaces the held courses; an empty list clears the key.
func (r *HeldCourseRepository) Save(ctx context.Context, username string, courses []models.Course) error {
	if len(courses) == 0 {
		return r.store.Delete(ctx, heldKeyPrefix+username)
	}
	return r.store.Set(ctx, heldKeyPrefix+username, courses, r.ttl)
}
