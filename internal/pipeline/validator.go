package pipeline

import (
	"fmt"

	"funnelflow/internal/model"
)

// Policy selects how strictly the validator gates stage moves.
type Policy int

const (
	// PolicyPermissive allows a move from any non-terminal stage to any
	// other catalog stage. This matches free drag between board columns.
	PolicyPermissive Policy = iota
	// PolicyStepwise allows only the next stage in pipeline order, the
	// losing terminal, or (for biddings) archival. This matches the
	// constrained "advance" buttons on a record's detail panel.
	PolicyStepwise
)

// Outcome classifies a validation decision.
type Outcome int

const (
	// Accepted means the move is legal and changes state.
	Accepted Outcome = iota
	// AcceptedNoop means the target equals the current stage: legal, but
	// nothing changes and nothing must be persisted.
	AcceptedNoop
	// Rejected means the move is illegal; Reason explains why.
	Rejected
)

// Decision is the result of validating a requested transition.
type Decision struct {
	Reason  string
	Outcome Outcome
}

// Validator gates stage transitions against the status catalog.
type Validator struct {
	policy Policy
}

// NewValidator creates a validator with the given policy.
func NewValidator(policy Policy) *Validator {
	return &Validator{policy: policy}
}

// Validate decides whether a record of the given kind may move from current
// to target. It never mutates anything; callers act on the decision.
func (v *Validator) Validate(kind model.Kind, current, target model.Stage) Decision {
	if !Contains(kind, target) {
		return Decision{
			Outcome: Rejected,
			Reason:  fmt.Sprintf("stage %q does not exist for %s records", target, kind),
		}
	}
	if !Contains(kind, current) {
		return Decision{
			Outcome: Rejected,
			Reason:  fmt.Sprintf("record is in unknown stage %q", current),
		}
	}
	if current == target {
		return Decision{Outcome: AcceptedNoop}
	}
	if IsTerminal(kind, current) {
		return Decision{
			Outcome: Rejected,
			Reason:  fmt.Sprintf("%s is final; the record cannot leave it", Label(kind, current)),
		}
	}

	if v.policy == PolicyStepwise && !v.stepwiseAllowed(kind, current, target) {
		return Decision{
			Outcome: Rejected,
			Reason: fmt.Sprintf("only %s can follow %s here",
				allowedTargetsLabel(kind, current), Label(kind, current)),
		}
	}

	return Decision{Outcome: Accepted}
}

func (v *Validator) stepwiseAllowed(kind model.Kind, current, target model.Stage) bool {
	if next, ok := NextStage(kind, current); ok && target == next {
		return true
	}
	if target == LosingStage(kind) {
		return true
	}
	if kind == model.KindBidding && target == StageArchived {
		return true
	}
	return false
}

func allowedTargetsLabel(kind model.Kind, current model.Stage) string {
	next, ok := NextStage(kind, current)
	losing := LosingStage(kind)
	switch {
	case ok && next != losing:
		return fmt.Sprintf("%s or %s", Label(kind, next), Label(kind, losing))
	default:
		return Label(kind, losing)
	}
}
