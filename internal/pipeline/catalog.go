// Package pipeline owns the status catalog and the transition rules that
// govern how a record may move between stages.
package pipeline

import "funnelflow/internal/model"

// Opportunity stages, in pipeline order.
const (
	StageNewLead          model.Stage = "new-lead"
	StageMeetingScheduled model.Stage = "meeting-scheduled"
	StageDiscovery        model.Stage = "discovery"
	StageProposalSent     model.Stage = "proposal-sent"
	StageNegotiation      model.Stage = "negotiation"
	StageWon              model.Stage = "won"
	StageLost             model.Stage = "lost"
)

// Bidding stages, in pipeline order.
const (
	StageInternalReview     model.Stage = "internal-review"
	StageAwaitingAuction    model.Stage = "awaiting-auction"
	StageDocumentSubmission model.Stage = "document-submission"
	StageSignatures         model.Stage = "signatures"
	StageNotWon             model.Stage = "not-won"
	StageArchived           model.Stage = "archived"
)

// StageInfo describes one catalog entry: the stable identifier plus the
// label used wherever the stage is rendered.
type StageInfo struct {
	ID       model.Stage
	Label    string
	Terminal bool
}

// The catalog is plain configuration data. Both the validator and every
// surface that renders stage columns consult it, so the two can never
// disagree on the set of stages.
var opportunityStages = []StageInfo{
	{ID: StageNewLead, Label: "New lead"},
	{ID: StageMeetingScheduled, Label: "Meeting scheduled"},
	{ID: StageDiscovery, Label: "Discovery"},
	{ID: StageProposalSent, Label: "Proposal sent"},
	{ID: StageNegotiation, Label: "Negotiation"},
	{ID: StageWon, Label: "Won", Terminal: true},
	{ID: StageLost, Label: "Lost", Terminal: true},
}

var biddingStages = []StageInfo{
	{ID: StageInternalReview, Label: "Internal review"},
	{ID: StageAwaitingAuction, Label: "Awaiting auction"},
	{ID: StageDocumentSubmission, Label: "Document submission"},
	{ID: StageSignatures, Label: "Signatures"},
	{ID: StageWon, Label: "Won", Terminal: true},
	{ID: StageNotWon, Label: "Not won", Terminal: true},
	{ID: StageArchived, Label: "Archived", Terminal: true},
}

// StagesFor returns the ordered stages for a record kind. The returned slice
// is shared; callers must not mutate it.
func StagesFor(kind model.Kind) []StageInfo {
	switch kind {
	case model.KindOpportunity:
		return opportunityStages
	case model.KindBidding:
		return biddingStages
	default:
		return nil
	}
}

// Contains reports whether the stage belongs to the kind's catalog.
func Contains(kind model.Kind, stage model.Stage) bool {
	for _, s := range StagesFor(kind) {
		if s.ID == stage {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the stage admits no further transitions.
// Archived counts as terminal: records are parked there and only an explicit
// reopen (out of scope for board moves) could ever bring one back.
func IsTerminal(kind model.Kind, stage model.Stage) bool {
	for _, s := range StagesFor(kind) {
		if s.ID == stage {
			return s.Terminal
		}
	}
	return false
}

// InitialStage returns the stage a newly created record starts in.
func InitialStage(kind model.Kind) model.Stage {
	stages := StagesFor(kind)
	if len(stages) == 0 {
		return ""
	}
	return stages[0].ID
}

// NextStage returns the next non-terminal step in pipeline order, or the
// winning terminal when the record sits on the last active stage. It returns
// false when the current stage is terminal or unknown.
func NextStage(kind model.Kind, stage model.Stage) (model.Stage, bool) {
	stages := StagesFor(kind)
	for i, s := range stages {
		if s.ID != stage {
			continue
		}
		if s.Terminal {
			return "", false
		}
		// The stage after the last active one is the winning outcome.
		if i+1 < len(stages) {
			return stages[i+1].ID, true
		}
		return "", false
	}
	return "", false
}

// LosingStage returns the terminal stage that marks a lost outcome for the
// kind: lost for opportunities, not-won for biddings.
func LosingStage(kind model.Kind) model.Stage {
	switch kind {
	case model.KindOpportunity:
		return StageLost
	case model.KindBidding:
		return StageNotWon
	default:
		return ""
	}
}

// ActiveStages returns the non-terminal stages for the kind, in order.
func ActiveStages(kind model.Kind) []model.Stage {
	var out []model.Stage
	for _, s := range StagesFor(kind) {
		if !s.Terminal {
			out = append(out, s.ID)
		}
	}
	return out
}

// Label returns the display label for a stage, falling back to the raw
// identifier for stages outside the catalog.
func Label(kind model.Kind, stage model.Stage) string {
	for _, s := range StagesFor(kind) {
		if s.ID == stage {
			return s.Label
		}
	}
	return string(stage)
}
