package repository

import (
	"context"

	"github.com/noah-isme/cbcs-registration/internal/models"
)

// ReviewRepository covers the head-of-department dashboard.
type ReviewRepository struct {
	client *RegistrarClient
}

// NewReviewRepository constructs a ReviewRepository.
func NewReviewRepository(client *RegistrarClient) *ReviewRepository {
	return &ReviewRepository{client: client}
}

// Overview returns GET /hodDash/.
func (r *ReviewRepository) Overview(ctx context.Context) (*models.HODOverview, error) {
	var out models.HODOverview
	if err := r.client.Get(ctx, "/hodDash/", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Decide sends PUT /hodDash/ {report_id, status, reason}.
func (r *ReviewRepository) Decide(ctx context.Context, decision models.ReviewDecision) error {
	return r.client.Put(ctx, "/hodDash/", decision, nil)
}
