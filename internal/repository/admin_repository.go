package repository

import (
	"context"

	"github.com/noah-isme/cbcs-registration/internal/models"
)

// AdminRepository reads the admin form context.
type AdminRepository struct {
	client *RegistrarClient
}

// NewAdminRepository constructs an AdminRepository.
func NewAdminRepository(client *RegistrarClient) *AdminRepository {
	return &AdminRepository{client: client}
}

// Context returns GET /adminDash/.
func (r *AdminRepository) Context(ctx context.Context) (*models.AdminContext, error) {
	var out models.AdminContext
	if err := r.client.Get(ctx, "/adminDash/", &out); err != nil {
		return nil, err
	}
	return &out, nil
}
