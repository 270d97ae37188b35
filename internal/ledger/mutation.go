package ledger

import "github.com/noah-isme/cbcs-registration/internal/models"

// MutationKind distinguishes selections from deselections.
type MutationKind string

const (
	MutationAdd    MutationKind = "add"
	MutationRemove MutationKind = "remove"
)

// Mutation is a pending local change awaiting the registrar's answer.
type Mutation struct {
	Kind    MutationKind  `json:"kind"`
	Course  models.Course `json:"course"`
	Outcome State         `json:"outcome"`
	// Local is set when the change never needs to reach the registrar.
	Local    bool `json:"local,omitempty"`
	Reverted bool `json:"reverted,omitempty"`

	availableIndex int
	enrolledIndex  int
	entry          Entry
	resolved       bool
}

// Resolved reports whether the mutation was committed or reverted.
func (m *Mutation) Resolved() bool { return m != nil && m.resolved }

// Action maps the mutation to the registrar's enrollment verb.
func (m *Mutation) Action() models.EnrollmentAction {
	if m.Kind == MutationRemove {
		return models.EnrollmentActionUnenroll
	}
	return models.EnrollmentActionEnroll
}
