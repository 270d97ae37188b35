package repository

import (
	"context"

	"github.com/noah-isme/cbcs-registration/internal/models"
)

// DashboardRepository reads and mutates the authenticated student's enrollment state.
type DashboardRepository struct {
	client *RegistrarClient
}

// NewDashboardRepository constructs a DashboardRepository.
func NewDashboardRepository(client *RegistrarClient) *DashboardRepository {
	return &DashboardRepository{client: client}
}

// Get fetches GET /studDash/.
func (r *DashboardRepository) Get(ctx context.Context) (*models.StudentDashboard, error) {
	var out models.StudentDashboard
	if err := r.client.Get(ctx, "/studDash/", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Enroll posts an enroll or unenroll batch to POST /studDash/.
func (r *DashboardRepository) Enroll(ctx context.Context, req models.EnrollmentRequest) error {
	return r.client.Post(ctx, "/studDash/", req, nil)
}
