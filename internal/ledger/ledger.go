// Package ledger holds a student's in-memory view of selected and enrolled courses.
//
// Mutations are applied optimistically as a pending overlay and must be committed or
// reverted once the registrar answers. A Ledger is not safe for concurrent use.
package ledger

import (
	"fmt"

	"github.com/noah-isme/cbcs-registration/internal/models"
	appErrors "github.com/noah-isme/cbcs-registration/pkg/errors"
)

// DefaultCreditCeiling is used when no ceiling option is supplied.
const DefaultCreditCeiling = 30

// State is the per-course position in the enrollment lifecycle.
type State string

const (
	StateUnknown   State = ""
	StateAvailable State = "AVAILABLE"
	StatePending   State = "SELECTED_PENDING_SYNC"
	StateEnrolled  State = "ENROLLED"
	StateHeld      State = "HELD"
	StateDiscarded State = "DISCARDED"
)

// RemovalPolicy decides where a removed course from another semester goes.
type RemovalPolicy string

const (
	// RemovalDiscard drops it from both lists.
	RemovalDiscard RemovalPolicy = "discard"
	// RemovalHold keeps it in a separate other-semester bucket.
	RemovalHold RemovalPolicy = "hold"
)

// Snapshot is the authoritative state the ledger is derived from.
type Snapshot struct {
	Available       []models.Course
	Enrolled        []models.EnrolledCourse
	CurrentSemester int
	Reports         []models.SemesterReport
}

// SnapshotFromDashboard adapts a registrar dashboard payload.
func SnapshotFromDashboard(d *models.StudentDashboard) Snapshot {
	if d == nil {
		return Snapshot{}
	}
	return Snapshot{
		Available:       d.AvailableCourses,
		Enrolled:        d.EnrolledCourses,
		CurrentSemester: d.CurrentSemester.Int(),
		Reports:         d.Reports,
	}
}

// Entry is a course on the enrolled side of the ledger.
type Entry struct {
	EnrollmentID int           `json:"enrollment_id,omitempty"`
	Course       models.Course `json:"course"`
	State        State         `json:"state"`
}

// Option customises a Ledger.
type Option func(*Ledger)

// WithCeiling sets the credit ceiling; non-positive values are ignored.
func WithCeiling(ceiling int) Option {
	return func(l *Ledger) {
		if ceiling > 0 {
			l.ceiling = ceiling
		}
	}
}

// WithRemovalPolicy sets the other-semester removal policy.
func WithRemovalPolicy(policy RemovalPolicy) Option {
	return func(l *Ledger) {
		if policy == RemovalHold || policy == RemovalDiscard {
			l.policy = policy
		}
	}
}

// WithHeld seeds the other-semester bucket from an earlier session.
func WithHeld(courses []models.Course) Option {
	return func(l *Ledger) {
		l.held = append([]models.Course(nil), courses...)
	}
}

// Ledger tracks available and enrolled courses with a running credit total.
type Ledger struct {
	available       []models.Course
	enrolled        []Entry
	held            []models.Course
	discarded       map[int]models.Course
	pending         map[int]*Mutation
	reports         []models.SemesterReport
	creditTotal     int
	currentSemester int
	ceiling         int
	policy          RemovalPolicy
}

// New builds a ledger from a snapshot.
func New(s Snapshot, opts ...Option) *Ledger {
	l := &Ledger{ceiling: DefaultCreditCeiling, policy: RemovalDiscard}
	for _, opt := range opts {
		opt(l)
	}
	l.load(s)
	return l
}

func (l *Ledger) load(s Snapshot) {
	enrolledIDs := make(map[int]struct{}, len(s.Enrolled))
	l.enrolled = make([]Entry, 0, len(s.Enrolled))
	l.creditTotal = 0
	for _, e := range s.Enrolled {
		if _, dup := enrolledIDs[e.Course.ID]; dup {
			continue
		}
		enrolledIDs[e.Course.ID] = struct{}{}
		l.enrolled = append(l.enrolled, Entry{EnrollmentID: e.ID, Course: e.Course, State: StateEnrolled})
		l.creditTotal += e.Course.Credit
	}

	availableIDs := make(map[int]struct{}, len(s.Available))
	l.available = make([]models.Course, 0, len(s.Available))
	for _, c := range s.Available {
		if _, taken := enrolledIDs[c.ID]; taken {
			continue
		}
		if _, dup := availableIDs[c.ID]; dup {
			continue
		}
		availableIDs[c.ID] = struct{}{}
		l.available = append(l.available, c)
	}

	held := l.held[:0:0]
	for _, c := range l.held {
		_, taken := enrolledIDs[c.ID]
		_, offered := availableIDs[c.ID]
		if !taken && !offered {
			held = append(held, c)
		}
	}
	l.held = held

	l.currentSemester = s.CurrentSemester
	l.reports = s.Reports
	l.pending = make(map[int]*Mutation)
	if l.discarded == nil {
		l.discarded = make(map[int]models.Course)
	}
	for id := range enrolledIDs {
		delete(l.discarded, id)
	}
	for id := range availableIDs {
		delete(l.discarded, id)
	}
}

// Reconcile re-derives the ledger from the registrar's authoritative state.
// Outstanding pending mutations are dropped.
func (l *Ledger) Reconcile(s Snapshot) {
	l.load(s)
}

// Add selects an available course. The credit ceiling is checked locally and a
// rejection leaves the ledger untouched. Re-adding a course whose removal is still
// pending cancels that removal locally and restores the original enrollment.
func (l *Ledger) Add(courseID int) (*Mutation, error) {
	if idx := l.enrolledIndex(courseID); idx >= 0 {
		return nil, appErrors.Clone(appErrors.ErrAlreadyEnrolled, fmt.Sprintf("course %d is already selected", courseID))
	}
	idx := l.availableIndex(courseID)
	if idx < 0 {
		return nil, appErrors.Clone(appErrors.ErrCourseUnavailable, fmt.Sprintf("course %d is not available", courseID))
	}
	course := l.available[idx]
	if l.creditTotal+course.Credit > l.ceiling {
		return nil, appErrors.Clone(appErrors.ErrCreditLimit,
			fmt.Sprintf("cannot add %s: %d + %d credits exceeds the %d credit limit", course.Code, l.creditTotal, course.Credit, l.ceiling))
	}

	l.available = removeCourseAt(l.available, idx)
	if prior, ok := l.pending[courseID]; ok && prior.Kind == MutationRemove && !prior.resolved {
		prior.resolved = true
		delete(l.pending, courseID)
		l.enrolled = insertEntry(l.enrolled, prior.enrolledIndex, prior.entry)
		l.creditTotal += prior.entry.Course.Credit
		return &Mutation{
			Kind:           MutationAdd,
			Course:         prior.entry.Course,
			Outcome:        prior.entry.State,
			Local:          true,
			availableIndex: idx,
			resolved:       true,
		}, nil
	}

	l.enrolled = append(l.enrolled, Entry{Course: course, State: StatePending})
	l.creditTotal += course.Credit
	delete(l.discarded, courseID)

	m := &Mutation{Kind: MutationAdd, Course: course, Outcome: StatePending, availableIndex: idx}
	l.pending[courseID] = m
	return m, nil
}

// Remove deselects a course. It returns to the available list only when it belongs
// to the current semester; otherwise the removal policy applies.
func (l *Ledger) Remove(courseID int) (*Mutation, error) {
	idx := l.enrolledIndex(courseID)
	if idx < 0 {
		return nil, appErrors.Clone(appErrors.ErrNotEnrolled, fmt.Sprintf("course %d is not selected", courseID))
	}
	entry := l.enrolled[idx]
	m := &Mutation{Kind: MutationRemove, Course: entry.Course, entry: entry, enrolledIndex: idx}

	// A selection the registrar never saw is cancelled locally.
	if prior, ok := l.pending[courseID]; ok && prior.Kind == MutationAdd && entry.State == StatePending {
		m.Local = true
		prior.resolved = true
		delete(l.pending, courseID)
	}

	l.enrolled = append(l.enrolled[:idx:idx], l.enrolled[idx+1:]...)
	l.creditTotal -= entry.Course.Credit

	switch {
	case entry.Course.SemesterNumber() == l.currentSemester:
		l.available = append(l.available, entry.Course)
		m.Outcome = StateAvailable
	case l.policy == RemovalHold:
		l.held = append(l.held, entry.Course)
		m.Outcome = StateHeld
	default:
		l.discarded[courseID] = entry.Course
		m.Outcome = StateDiscarded
	}

	if m.Local {
		m.resolved = true
		return m, nil
	}
	l.pending[courseID] = m
	return m, nil
}

// Commit confirms a mutation after the registrar accepted it. Stale mutations are ignored.
func (l *Ledger) Commit(m *Mutation) {
	if m == nil || m.resolved || l.pending[m.Course.ID] != m {
		return
	}
	m.resolved = true
	delete(l.pending, m.Course.ID)
	if m.Kind == MutationAdd {
		if idx := l.enrolledIndex(m.Course.ID); idx >= 0 {
			l.enrolled[idx].State = StateEnrolled
		}
	}
}

// Revert undoes a mutation the registrar rejected, restoring the prior state.
// It reports whether anything changed. Mutations superseded by a later change or
// dropped by Reconcile are ignored.
func (l *Ledger) Revert(m *Mutation) bool {
	if m == nil || m.resolved || l.pending[m.Course.ID] != m {
		return false
	}
	m.resolved = true
	m.Reverted = true
	delete(l.pending, m.Course.ID)

	switch m.Kind {
	case MutationAdd:
		idx := l.enrolledIndex(m.Course.ID)
		if idx < 0 {
			return false
		}
		l.enrolled = append(l.enrolled[:idx:idx], l.enrolled[idx+1:]...)
		l.creditTotal -= m.Course.Credit
		l.available = insertCourse(l.available, m.availableIndex, m.Course)
	case MutationRemove:
		switch m.Outcome {
		case StateAvailable:
			if idx := l.availableIndex(m.Course.ID); idx >= 0 {
				l.available = removeCourseAt(l.available, idx)
			}
		case StateHeld:
			if idx := indexOf(l.held, m.Course.ID); idx >= 0 {
				l.held = removeCourseAt(l.held, idx)
			}
		default:
			delete(l.discarded, m.Course.ID)
		}
		l.enrolled = insertEntry(l.enrolled, m.enrolledIndex, m.entry)
		l.creditTotal += m.Course.Credit
	}
	return true
}

// Available returns a copy of the unselected courses.
func (l *Ledger) Available() []models.Course {
	return append([]models.Course(nil), l.available...)
}

// Enrolled returns a copy of the enrolled side, including pending selections.
func (l *Ledger) Enrolled() []Entry {
	return append([]Entry(nil), l.enrolled...)
}

// EnrolledCourses returns the courses of Enrolled.
func (l *Ledger) EnrolledCourses() []models.Course {
	out := make([]models.Course, 0, len(l.enrolled))
	for _, e := range l.enrolled {
		out = append(out, e.Course)
	}
	return out
}

// Held returns removed courses kept under RemovalHold.
func (l *Ledger) Held() []models.Course {
	return append([]models.Course(nil), l.held...)
}

// SelectedIDs lists the course ids on the enrolled side, in order.
func (l *Ledger) SelectedIDs() []int {
	ids := make([]int, 0, len(l.enrolled))
	for _, e := range l.enrolled {
		ids = append(ids, e.Course.ID)
	}
	return ids
}

// CreditTotal is always the sum of credits on the enrolled side.
func (l *Ledger) CreditTotal() int { return l.creditTotal }

// Ceiling is the configured credit limit.
func (l *Ledger) Ceiling() int { return l.ceiling }

// Remaining is the credit headroom before the ceiling.
func (l *Ledger) Remaining() int { return l.ceiling - l.creditTotal }

// CurrentSemester is the student's active semester.
func (l *Ledger) CurrentSemester() int { return l.currentSemester }

// Reports returns the semester report history.
func (l *Ledger) Reports() []models.SemesterReport {
	return append([]models.SemesterReport(nil), l.reports...)
}

// PendingCount is the number of unresolved mutations.
func (l *Ledger) PendingCount() int { return len(l.pending) }

// Course looks a course up on either side of the ledger.
func (l *Ledger) Course(courseID int) (models.Course, bool) {
	if idx := l.availableIndex(courseID); idx >= 0 {
		return l.available[idx], true
	}
	if idx := l.enrolledIndex(courseID); idx >= 0 {
		return l.enrolled[idx].Course, true
	}
	return models.Course{}, false
}

// State reports where a course currently sits.
func (l *Ledger) State(courseID int) State {
	if idx := l.enrolledIndex(courseID); idx >= 0 {
		return l.enrolled[idx].State
	}
	if l.availableIndex(courseID) >= 0 {
		return StateAvailable
	}
	if indexOf(l.held, courseID) >= 0 {
		return StateHeld
	}
	if _, ok := l.discarded[courseID]; ok {
		return StateDiscarded
	}
	return StateUnknown
}

func (l *Ledger) availableIndex(courseID int) int {
	return indexOf(l.available, courseID)
}

func (l *Ledger) enrolledIndex(courseID int) int {
	for i, e := range l.enrolled {
		if e.Course.ID == courseID {
			return i
		}
	}
	return -1
}

func indexOf(courses []models.Course, courseID int) int {
	for i, c := range courses {
		if c.ID == courseID {
			return i
		}
	}
	return -1
}

func removeCourseAt(courses []models.Course, idx int) []models.Course {
	return append(courses[:idx:idx], courses[idx+1:]...)
}

func insertCourse(courses []models.Course, idx int, c models.Course) []models.Course {
	if idx < 0 || idx > len(courses) {
		idx = len(courses)
	}
	out := make([]models.Course, 0, len(courses)+1)
	out = append(out, courses[:idx]...)
	out = append(out, c)
	return append(out, courses[idx:]...)
}

func insertEntry(entries []Entry, idx int, e Entry) []Entry {
	if idx < 0 || idx > len(entries) {
		idx = len(entries)
	}
	out := make([]Entry, 0, len(entries)+1)
	out = append(out, entries[:idx]...)
	out = append(out, e)
	return append(out, entries[idx:]...)
}
