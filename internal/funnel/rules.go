package funnel

import (
	"log/slog"

	"github.com/imobia/leadpipe/internal/models"
)

// awaitingInfoThreshold is the number of exchanged messages after which a
// lead still missing all qualification data is parked in aguardando_info.
const awaitingInfoThreshold = 5

// RuleInput carries the contextual signals a progression rule may consult.
type RuleInput struct {
	Lead              *models.Lead
	LastMessage       *models.Message
	MessageCount      int
	MatchedProperties []models.Property
}

// progressionRule proposes a next stage for a lead, or "" to stay put.
// Rules never consult the transition table themselves; CalculateNextStage
// validates every proposal before returning it.
type progressionRule func(in RuleInput) string

// progressionRules maps each automated stage to its rule. Stages without an
// entry are manual-only: the lead stays until an external actor moves it or
// the human-request detector fires.
var progressionRules = map[string]progressionRule{
	StageWelcome: func(in RuleInput) string {
		return StageDataCollection
	},
	StageDataCollection: func(in RuleInput) string {
		if in.Lead != nil && hasAnyQualificationData(in.Lead) {
			return StageMatching
		}
		if in.MessageCount > awaitingInfoThreshold {
			return StageAwaitingInfo
		}
		return ""
	},
	StageAwaitingInfo: func(in RuleInput) string {
		if in.LastMessage != nil && in.LastMessage.IsIncoming() {
			return StageDataCollection
		}
		return ""
	},
	StageMatching: func(in RuleInput) string {
		if len(in.MatchedProperties) > 0 {
			return StagePresentation
		}
		return StageNoMatch
	},
	StagePresentation: func(in RuleInput) string {
		if in.LastMessage == nil || !in.LastMessage.IsIncoming() {
			return ""
		}
		text := in.LastMessage.Text()
		if HasInterestKeyword(text) {
			return StageInterest
		}
		if HasRefinementKeyword(text) {
			return StageRefinement
		}
		return ""
	},
	StageNoMatch: func(in RuleInput) string {
		if in.LastMessage != nil && in.LastMessage.IsIncoming() && HasAffirmativeKeyword(in.LastMessage.Text()) {
			return StageRefinement
		}
		return ""
	},
	StageRefinement: func(in RuleInput) string {
		if in.Lead != nil && in.MessageCount > in.Lead.LastMessageCount {
			return StageMatching
		}
		return ""
	},
}

// hasAnyQualificationData reports whether at least one of the three
// qualification categories (budget, location, rooms) is known.
func hasAnyQualificationData(lead *models.Lead) bool {
	return lead.BudgetMin != nil || lead.BudgetMax != nil ||
		lead.Location != nil || lead.Rooms != nil
}

// CalculateNextStage runs the automatic progression rule for the lead's
// current stage and returns the proposed next stage, or "" when no rule
// exists, the rule does not fire, or the proposal is not a legal transition.
// Illegal proposals are discarded silently per the pipeline contract; use
// EvaluateNextStage when the discard needs to be observable.
func CalculateNextStage(current string, lead *models.Lead, lastMessage *models.Message, messageCount int, matched []models.Property) string {
	next, _ := EvaluateNextStage(current, RuleInput{
		Lead:              lead,
		LastMessage:       lastMessage,
		MessageCount:      messageCount,
		MatchedProperties: matched,
	})
	return next
}

// EvaluateNextStage is CalculateNextStage with a diagnostic channel: the
// second return value is true when a rule fired but its proposal was
// rejected by the transition table. Callers that only need the proposal can
// ignore it.
func EvaluateNextStage(current string, in RuleInput) (next string, discarded bool) {
	rule, ok := progressionRules[current]
	if !ok {
		return "", false
	}
	proposed := rule(in)
	if proposed == "" {
		return "", false
	}
	if !IsValidTransition(current, proposed) {
		slog.Warn("funnel: progression rule proposed illegal transition", "from", current, "to", proposed)
		return "", true
	}
	return proposed, false
}
