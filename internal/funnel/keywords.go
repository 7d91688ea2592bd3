package funnel

import "strings"

// humanRequestKeywords trigger an immediate handoff to a human agent,
// regardless of the lead's current stage.
var humanRequestKeywords = []string{
	"falar com",
	"atendente",
	"corretor",
	"humano",
	"gerente",
	"não consigo",
	"nao consigo",
	"pessoa de verdade",
	"reclamação",
	"reclamacao",
}

// interestKeywords signal interest in a presented property.
var interestKeywords = []string{
	"gostei",
	"interessante",
	"quero",
	"agendar",
	"visitar",
	"mais informações",
	"me interessa",
	"parece bom",
	"quero ver",
	"quero conhecer",
	"aceito",
}

// refinementKeywords signal the lead wants different search criteria.
var refinementKeywords = []string{
	"outro",
	"diferente",
	"mais barato",
	"mais caro",
	"outra região",
	"outro bairro",
	"mais quartos",
	"maior",
	"menor",
	"não gostei",
}

// affirmativeKeywords accept an offer to retry matching after no results.
var affirmativeKeywords = []string{
	"sim",
	"quero",
	"tentar",
	"ok",
	"pode ser",
}

// containsAny reports whether text contains any of the keywords,
// case-insensitively. First match wins in list order.
func containsAny(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// DetectHumanRequestKeywords reports whether the message asks for a human
// agent. Callers use this to force a transition to the handoff stage before
// any automatic rule runs.
func DetectHumanRequestKeywords(message string) bool {
	if message == "" {
		return false
	}
	return containsAny(message, humanRequestKeywords)
}

// HasInterestKeyword reports whether the message contains an interest signal.
func HasInterestKeyword(message string) bool {
	return containsAny(message, interestKeywords)
}

// HasRefinementKeyword reports whether the message asks for different criteria.
func HasRefinementKeyword(message string) bool {
	return containsAny(message, refinementKeywords)
}

// HasAffirmativeKeyword reports whether the message accepts a retry offer.
func HasAffirmativeKeyword(message string) bool {
	return containsAny(message, affirmativeKeywords)
}
