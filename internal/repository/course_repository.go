package repository

import (
	"context"

	"github.com/noah-isme/cbcs-registration/internal/models"
)

// CourseRepository manages course offerings on the registrar.
type CourseRepository struct {
	client *RegistrarClient
}

// NewCourseRepository constructs a CourseRepository.
func NewCourseRepository(client *RegistrarClient) *CourseRepository {
	return &CourseRepository{client: client}
}

// List returns GET /courses/.
func (r *CourseRepository) List(ctx context.Context) ([]models.Course, error) {
	var out []models.Course
	if err := r.client.Get(ctx, "/courses/", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Create posts a single course to POST /courses/.
func (r *CourseRepository) Create(ctx context.Context, req models.CreateCourseRequest) (*models.Course, error) {
	var out models.Course
	if err := r.client.Post(ctx, "/courses/", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateBatch posts {"courses": [...]} to POST /courses/bulk-upload/.
func (r *CourseRepository) CreateBatch(ctx context.Context, reqs []models.CreateCourseRequest) (*models.BatchImportReply, error) {
	var out models.BatchImportReply
	body := map[string]interface{}{"courses": reqs}
	if err := r.client.Post(ctx, "/courses/bulk-upload/", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
