package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/cbcs-registration/internal/models"
	appErrors "github.com/noah-isme/cbcs-registration/pkg/errors"
)

type mockReviewRepo struct {
	decisions []models.ReviewDecision
	err       error
	overview  *models.HODOverview
}

func (m *mockReviewRepo) Overview(ctx context.Context) (*models.HODOverview, error) {
	return m.overview, m.err
}

func (m *mockReviewRepo) Decide(ctx context.Context, decision models.ReviewDecision) error {
	m.decisions = append(m.decisions, decision)
	return m.err
}

func TestReviewServiceRejectWithoutReasonMakesNoCall(t *testing.T) {
	repo := &mockReviewRepo{}
	svc := NewReviewService(repo, nil)

	_, err := svc.Decide(context.Background(), 12, "rejected", "   ")
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	assert.Empty(t, repo.decisions)
}

func TestReviewServiceSetStatus(t *testing.T) {
	svc := NewReviewService(&mockReviewRepo{}, nil)

	d, err := svc.SetStatus(3, "Approved", "")
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusApproved, d.Status)

	d, err = svc.SetStatus(3, "REJECTED", "  missing core course ")
	require.NoError(t, err)
	assert.Equal(t, "missing core course", d.Reason)

	_, err = svc.SetStatus(3, "archived", "")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.SetStatus(0, "approved", "")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestReviewServiceSaveDecisionMarksSaved(t *testing.T) {
	repo := &mockReviewRepo{}
	svc := NewReviewService(repo, nil)

	report, err := svc.Decide(context.Background(), 12, "rejected", "exceeds elective quota")
	require.NoError(t, err)
	assert.True(t, report.IsSaved)
	require.Len(t, repo.decisions, 1)
	assert.Equal(t, models.ReviewDecision{ReportID: 12, Status: models.ReportStatusRejected, Reason: "exceeds elective quota"}, repo.decisions[0])
}

func TestReviewServiceSaveDecisionConflictNotRetried(t *testing.T) {
	repo := &mockReviewRepo{err: appErrors.Clone(appErrors.ErrConflict, "report already decided")}
	svc := NewReviewService(repo, nil)

	_, err := svc.Decide(context.Background(), 12, "approved", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrConflict))
	assert.Len(t, repo.decisions, 1)
}
