package conversation

import (
	"strings"

	"github.com/imobia/leadpipe/internal/funnel"
	"github.com/imobia/leadpipe/internal/models"
)

// Keyword sets for the message-content-driven progression variant. These are
// deliberately distinct from the funnel package rule keywords: the two rule
// sets evolved separately in production and merging them would change
// observable behavior.
var (
	presentationInterestWords = []string{"visita", "ver", "conhecer", "gostei", "interessei"}
	schedulingWords           = []string{"agendar", "visitar", "quando posso", "marcar", "que horas"}
	retryMatchingWords        = []string{"sim", "quero", "tentar", "ajustar", "mudar"}
)

// DetectStageProgression is the conversational-flow variant of stage
// progression: it inspects only the lead state and the last message content
// for a subset of stages. It always returns a stage key; when nothing
// matches it returns the current stage unchanged, which callers must treat
// as "no transition", not as an error.
func DetectStageProgression(currentStage string, lead *models.Lead, lastMessage *models.Message) string {
	var text string
	if lastMessage != nil {
		text = strings.ToLower(lastMessage.Text())
	}

	switch currentStage {
	case funnel.StageDataCollection:
		if HasEnoughDataForMatching(lead) {
			return funnel.StageMatching
		}
	case funnel.StagePresentation:
		if matchesAny(text, presentationInterestWords) {
			return funnel.StageInterest
		}
	case funnel.StageInterest:
		if matchesAny(text, schedulingWords) {
			return funnel.StageScheduling
		}
	case funnel.StageNoMatch:
		if matchesAny(text, retryMatchingWords) {
			return funnel.StageRefinement
		}
	}
	return currentStage
}

// matchesAny reports whether text contains any of the given words. The text
// is already lowercased by the caller.
func matchesAny(text string, words []string) bool {
	if text == "" {
		return false
	}
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}
