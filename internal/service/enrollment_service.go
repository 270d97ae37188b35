package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/cbcs-registration/internal/catalog"
	"github.com/noah-isme/cbcs-registration/internal/dto"
	"github.com/noah-isme/cbcs-registration/internal/ledger"
	"github.com/noah-isme/cbcs-registration/internal/models"
	appErrors "github.com/noah-isme/cbcs-registration/pkg/errors"
	"github.com/noah-isme/cbcs-registration/pkg/session"
)

type studentDashboardRepository interface {
	Get(ctx context.Context) (*models.StudentDashboard, error)
	Enroll(ctx context.Context, req models.EnrollmentRequest) error
}

type heldCourseStore interface {
	Load(ctx context.Context, username string) ([]models.Course, error)
	Save(ctx context.Context, username string, courses []models.Course) error
}

// EnrollmentConfig carries the registration rules.
type EnrollmentConfig struct {
	CreditCeiling int
	SemesterCount int
	RemovalPolicy ledger.RemovalPolicy
}

// EnrollmentService drives the student's ledger against the registrar.
// Every mutation is applied locally first, then committed and reconciled, or reverted.
type EnrollmentService struct {
	repo    studentDashboardRepository
	held    heldCourseStore
	metrics *MetricsService
	logger  *zap.Logger
	cfg     EnrollmentConfig
}

// NewEnrollmentService constructs an EnrollmentService. held may be nil when the hold policy is off.
func NewEnrollmentService(repo studentDashboardRepository, held heldCourseStore, metrics *MetricsService, logger *zap.Logger, cfg EnrollmentConfig) *EnrollmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CreditCeiling <= 0 {
		cfg.CreditCeiling = ledger.DefaultCreditCeiling
	}
	if cfg.SemesterCount <= 0 {
		cfg.SemesterCount = 8
	}
	if cfg.RemovalPolicy == "" {
		cfg.RemovalPolicy = ledger.RemovalDiscard
	}
	return &EnrollmentService{repo: repo, held: held, metrics: metrics, logger: logger, cfg: cfg}
}

// Load returns the current registration screen.
func (s *EnrollmentService) Load(ctx context.Context) (*dto.LedgerView, error) {
	l, dash, err := s.open(ctx)
	if err != nil {
		return nil, err
	}
	return s.view(l, dash, nil), nil
}

// AddCourse selects a course. Validation failures never reach the registrar.
func (s *EnrollmentService) AddCourse(ctx context.Context, courseID int) (*dto.LedgerView, error) {
	l, dash, err := s.open(ctx)
	if err != nil {
		return nil, err
	}
	m, err := l.Add(courseID)
	if err != nil {
		s.metrics.RecordLedgerMutation(string(ledger.MutationAdd), "rejected")
		return nil, err
	}
	s.metrics.RecordLedgerMutation(string(ledger.MutationAdd), "accepted")
	return s.sync(ctx, l, dash, m)
}

// RemoveCourse deselects a course.
func (s *EnrollmentService) RemoveCourse(ctx context.Context, courseID int) (*dto.LedgerView, error) {
	l, dash, err := s.open(ctx)
	if err != nil {
		return nil, err
	}
	m, err := l.Remove(courseID)
	if err != nil {
		s.metrics.RecordLedgerMutation(string(ledger.MutationRemove), "rejected")
		return nil, err
	}
	s.metrics.RecordLedgerMutation(string(ledger.MutationRemove), "accepted")
	return s.sync(ctx, l, dash, m)
}

// Submit sends the whole selection as one enroll batch. Course ids not yet selected are added
// through the ledger first so the ceiling holds for the batch as a whole.
func (s *EnrollmentService) Submit(ctx context.Context, courseIDs []int) (*dto.LedgerView, error) {
	l, dash, err := s.open(ctx)
	if err != nil {
		return nil, err
	}

	var applied []*ledger.Mutation
	for _, id := range courseIDs {
		if st := l.State(id); st == ledger.StateEnrolled || st == ledger.StatePending {
			continue
		}
		m, err := l.Add(id)
		if err != nil {
			for i := len(applied) - 1; i >= 0; i-- {
				l.Revert(applied[i])
			}
			s.metrics.RecordLedgerMutation(string(ledger.MutationAdd), "rejected")
			return nil, err
		}
		applied = append(applied, m)
	}

	selected := l.SelectedIDs()
	if len(selected) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no courses selected")
	}

	req := models.EnrollmentRequest{CourseIDs: selected, Type: models.EnrollmentActionEnroll}
	if err := s.repo.Enroll(ctx, req); err != nil {
		for i := len(applied) - 1; i >= 0; i-- {
			l.Revert(applied[i])
		}
		s.metrics.RecordLedgerMutation(string(ledger.MutationAdd), "reverted")
		s.logger.Warn("enrollment submission failed; selection reverted",
			zap.String("student", session.FromContext(ctx).Actor()),
			zap.Ints("course_ids", selected),
			zap.Error(err),
		)
		view := s.view(l, dash, &dto.SyncStatus{Status: dto.SyncReverted, Error: appErrors.FromError(err)})
		return view, err
	}
	for _, m := range applied {
		l.Commit(m)
	}
	s.metrics.RecordLedgerMutation(string(ledger.MutationAdd), "committed")
	s.logger.Info("enrollment submitted",
		zap.String("student", session.FromContext(ctx).Actor()),
		zap.Int("courses", len(selected)),
		zap.Int("credits", l.CreditTotal()),
	)
	return s.reconcile(ctx, l, dash, &dto.SyncStatus{Status: dto.SyncSynced}), nil
}

func (s *EnrollmentService) open(ctx context.Context) (*ledger.Ledger, *models.StudentDashboard, error) {
	dash, err := s.repo.Get(ctx)
	if err != nil {
		return nil, nil, err
	}
	opts := []ledger.Option{
		ledger.WithCeiling(s.cfg.CreditCeiling),
		ledger.WithRemovalPolicy(s.cfg.RemovalPolicy),
	}
	if s.holding() {
		held, err := s.held.Load(ctx, dashboardOwner(ctx, dash))
		if err != nil {
			s.logger.Warn("failed to load held courses", zap.Error(err))
		}
		opts = append(opts, ledger.WithHeld(held))
	}
	return ledger.New(ledger.SnapshotFromDashboard(dash), opts...), dash, nil
}

// sync pushes one mutation to the registrar and resolves it.
func (s *EnrollmentService) sync(ctx context.Context, l *ledger.Ledger, dash *models.StudentDashboard, m *ledger.Mutation) (*dto.LedgerView, error) {
	if m.Local {
		return s.view(l, dash, &dto.SyncStatus{Status: dto.SyncSynced, Mutation: m}), nil
	}

	req := models.EnrollmentRequest{CourseIDs: []int{m.Course.ID}, Type: m.Action()}
	if err := s.repo.Enroll(ctx, req); err != nil {
		l.Revert(m)
		s.metrics.RecordLedgerMutation(string(m.Kind), "reverted")
		s.logger.Warn("enrollment sync failed; reverted",
			zap.String("student", session.FromContext(ctx).Actor()),
			zap.String("kind", string(m.Kind)),
			zap.Int("course_id", m.Course.ID),
			zap.Error(err),
		)
		view := s.view(l, dash, &dto.SyncStatus{Status: dto.SyncReverted, Mutation: m, Error: appErrors.FromError(err)})
		return view, err
	}

	l.Commit(m)
	s.metrics.RecordLedgerMutation(string(m.Kind), "committed")
	if m.Outcome == ledger.StateHeld {
		s.saveHeld(ctx, l, dash)
	}
	return s.reconcile(ctx, l, dash, &dto.SyncStatus{Status: dto.SyncSynced, Mutation: m}), nil
}

// reconcile refetches the registrar state; on failure the committed local view is returned as stale.
func (s *EnrollmentService) reconcile(ctx context.Context, l *ledger.Ledger, dash *models.StudentDashboard, status *dto.SyncStatus) *dto.LedgerView {
	fresh, err := s.repo.Get(ctx)
	if err != nil {
		s.logger.Warn("reconcile refetch failed", zap.Error(err))
		status.Status = dto.SyncStale
		status.Error = appErrors.FromError(err)
		return s.view(l, dash, status)
	}
	l.Reconcile(ledger.SnapshotFromDashboard(fresh))
	s.saveHeld(ctx, l, fresh)
	return s.view(l, fresh, status)
}

func (s *EnrollmentService) saveHeld(ctx context.Context, l *ledger.Ledger, dash *models.StudentDashboard) {
	if !s.holding() {
		return
	}
	if err := s.held.Save(ctx, dashboardOwner(ctx, dash), l.Held()); err != nil {
		s.logger.Warn("failed to persist held courses", zap.Error(err))
	}
}

func (s *EnrollmentService) holding() bool {
	return s.held != nil && s.cfg.RemovalPolicy == ledger.RemovalHold
}

func (s *EnrollmentService) view(l *ledger.Ledger, dash *models.StudentDashboard, status *dto.SyncStatus) *dto.LedgerView {
	profile := dto.StudentProfile{
		Username:   dash.Username,
		Department: dash.Department,
	}
	student := models.Student{Username: dash.Username, FirstName: dash.FirstName, LastName: dash.LastName, Batch: dash.Batch}
	profile.FullName = student.FullName()
	profile.Batch = student.BatchLabel()
	if dash.Program != nil {
		profile.Program = dash.Program.Name
	}

	return &dto.LedgerView{
		Profile:          profile,
		CurrentSemester:  l.CurrentSemester(),
		CreditTotal:      l.CreditTotal(),
		CreditCeiling:    l.Ceiling(),
		CreditsRemaining: l.Remaining(),
		Available:        catalog.GroupCoursesBySemester(l.Available()),
		Enrolled:         l.Enrolled(),
		Held:             l.Held(),
		Reports:          reportViews(l.Reports()),
		SemesterOptions:  catalog.SemesterOptions(s.cfg.SemesterCount),
		Sync:             status,
	}
}

func reportViews(reports []models.SemesterReport) []dto.ReportView {
	out := make([]dto.ReportView, 0, len(reports))
	for _, r := range reports {
		out = append(out, dto.ReportView{SemesterReport: r, TotalCredits: r.TotalCredits()})
	}
	return out
}

func dashboardOwner(ctx context.Context, dash *models.StudentDashboard) string {
	if dash != nil && dash.Username != "" {
		return dash.Username
	}
	return session.FromContext(ctx).Actor()
}
