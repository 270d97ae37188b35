package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/cbcs-registration/internal/models"
	appErrors "github.com/noah-isme/cbcs-registration/pkg/errors"
	"github.com/noah-isme/cbcs-registration/pkg/session"
)

type reviewRepository interface {
	Overview(ctx context.Context) (*models.HODOverview, error)
	Decide(ctx context.Context, decision models.ReviewDecision) error
}

// ReviewService lets a head of department approve or reject semester reports.
type ReviewService struct {
	repo   reviewRepository
	logger *zap.Logger
}

// NewReviewService constructs a ReviewService.
func NewReviewService(repo reviewRepository, logger *zap.Logger) *ReviewService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReviewService{repo: repo, logger: logger}
}

// SetStatus validates a decision without contacting the registrar.
// A rejection needs a non-blank reason.
func (s *ReviewService) SetStatus(reportID int, status, reason string) (*models.ReviewDecision, error) {
	if reportID <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "report id is required")
	}
	parsed, ok := models.ParseReportStatus(status)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "status must be pending, approved or rejected")
	}
	reason = strings.TrimSpace(reason)
	if parsed == models.ReportStatusRejected && reason == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a reason is required to reject a report")
	}
	return &models.ReviewDecision{ReportID: reportID, Status: parsed, Reason: reason}, nil
}

// SaveDecision sends the decision once; failures, including an already decided report, are not retried.
func (s *ReviewService) SaveDecision(ctx context.Context, decision *models.ReviewDecision) (*models.SemesterReport, error) {
	if decision == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "decision is required")
	}
	if err := s.repo.Decide(ctx, *decision); err != nil {
		s.logger.Warn("review decision not saved",
			zap.Int("report_id", decision.ReportID),
			zap.String("status", string(decision.Status)),
			zap.String("reviewer", session.FromContext(ctx).Actor()),
			zap.Error(err),
		)
		return nil, err
	}
	s.logger.Info("review decision saved",
		zap.Int("report_id", decision.ReportID),
		zap.String("status", string(decision.Status)),
		zap.String("reviewer", session.FromContext(ctx).Actor()),
	)
	return &models.SemesterReport{
		ID:      decision.ReportID,
		Status:  decision.Status,
		Reason:  decision.Reason,
		IsSaved: true,
	}, nil
}

// Decide runs SetStatus then SaveDecision.
func (s *ReviewService) Decide(ctx context.Context, reportID int, status, reason string) (*models.SemesterReport, error) {
	decision, err := s.SetStatus(reportID, status, reason)
	if err != nil {
		return nil, err
	}
	return s.SaveDecision(ctx, decision)
}

// Overview returns the head-of-department dashboard.
func (s *ReviewService) Overview(ctx context.Context) (*models.HODOverview, error) {
	return s.repo.Overview(ctx)
}
