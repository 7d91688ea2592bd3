package conversation

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/imobia/leadpipe/internal/models"
)

// Greeting hour boundaries.
const (
	morningStartHour   = 6
	afternoonStartHour = 12
	eveningStartHour   = 18
)

// maxHighlights caps how many highlights a property preview shows.
const maxHighlights = 3

// FormatCurrencyValue renders a value as pt-BR currency ("R$ 450.000,00").
// Zero or negative values render as "Sob consulta".
func FormatCurrencyValue(value float64) string {
	if value <= 0 {
		return "Sob consulta"
	}
	cents := int64(value*100 + 0.5)
	whole := cents / 100
	frac := cents % 100

	digits := fmt.Sprintf("%d", whole)
	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(d)
	}
	return fmt.Sprintf("R$ %s,%02d", b.String(), frac)
}

// GetTimeBasedGreeting returns the greeting for an hour of day using the
// fixed 6/12/18 boundaries.
func GetTimeBasedGreeting(hour int) string {
	switch {
	case hour >= morningStartHour && hour < afternoonStartHour:
		return "Bom dia"
	case hour >= afternoonStartHour && hour < eveningStartHour:
		return "Boa tarde"
	default:
		return "Boa noite"
	}
}

// ExtractPropertyHighlights returns up to three highlight lines for a
// property. The highlights field is tried as a JSON array first, then as a
// comma-separated list; with no highlights at all, the first non-blank lines
// of the description are used.
func ExtractPropertyHighlights(property models.Property) []string {
	raw := strings.TrimSpace(property.Highlights)
	if raw != "" {
		var parsed []string
		if err := json.Unmarshal([]byte(raw), &parsed); err == nil {
			return truncateHighlights(parsed)
		}
		return truncateHighlights(strings.Split(raw, ","))
	}

	var lines []string
	for _, line := range strings.Split(property.Description, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
		if len(lines) == maxHighlights {
			break
		}
	}
	return lines
}

// truncateHighlights trims whitespace, drops blank entries and caps the list.
func truncateHighlights(items []string) []string {
	var out []string
	for _, item := range items {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
		if len(out) == maxHighlights {
			break
		}
	}
	return out
}

// BuildPropertyPreviewMessage renders one property as a WhatsApp-friendly
// card with title, price, rooms, location and highlights.
func BuildPropertyPreviewMessage(property models.Property) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🏠 *%s*\n", property.Title)
	fmt.Fprintf(&b, "💰 %s\n", FormatCurrencyValue(property.SalePrice))
	if property.Bedrooms > 0 {
		fmt.Fprintf(&b, "🛏 %d quarto(s)", property.Bedrooms)
		if property.Suites > 0 {
			fmt.Fprintf(&b, ", %d suíte(s)", property.Suites)
		}
		b.WriteString("\n")
	}
	if property.Neighborhood != "" || property.City != "" {
		fmt.Fprintf(&b, "📍 %s\n", joinNonEmpty(property.Neighborhood, property.City))
	}
	for _, h := range ExtractPropertyHighlights(property) {
		fmt.Fprintf(&b, "• %s\n", h)
	}
	return strings.TrimRight(b.String(), "\n")
}

// joinNonEmpty joins the non-empty parts with " - ".
func joinNonEmpty(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " - ")
}

// BuildGenericWelcomeMessage greets a new lead that arrived without a
// specific property in mind. Hour selects the greeting; name may be empty.
func BuildGenericWelcomeMessage(name string, hour int) string {
	greeting := GetTimeBasedGreeting(hour)
	if first := ExtractPreferredName(name); first != "" {
		greeting = fmt.Sprintf("%s, %s", greeting, first)
	}
	return fmt.Sprintf("%s! 👋 Sou o assistente digital da imobiliária. "+
		"Vou te ajudar a encontrar o imóvel ideal. "+
		"Para começar, me conta: qual região você procura e qual o seu orçamento?", greeting)
}

// BuildPropertyWelcomeMessage greets a lead that arrived asking about a
// specific property.
func BuildPropertyWelcomeMessage(name string, hour int, property models.Property) string {
	greeting := GetTimeBasedGreeting(hour)
	if first := ExtractPreferredName(name); first != "" {
		greeting = fmt.Sprintf("%s, %s", greeting, first)
	}
	return fmt.Sprintf("%s! 👋 Vi que você se interessou por este imóvel:\n\n%s\n\n"+
		"Quer saber mais detalhes ou agendar uma visita?", greeting, BuildPropertyPreviewMessage(property))
}

// BuildNoMatchMessage tells the lead no property matched the current
// criteria and offers to retry with different ones.
func BuildNoMatchMessage(lead *models.Lead) string {
	var criteria []string
	if lead != nil {
		if lead.Location != nil && *lead.Location != "" {
			criteria = append(criteria, fmt.Sprintf("região %s", *lead.Location))
		}
		if lead.Rooms != nil {
			criteria = append(criteria, fmt.Sprintf("%d quarto(s)", *lead.Rooms))
		}
		if lead.BudgetMax != nil {
			criteria = append(criteria, fmt.Sprintf("até %s", FormatCurrencyValue(*lead.BudgetMax)))
		}
	}
	msg := "Ainda não encontrei um imóvel que combine com o que você procura"
	if len(criteria) > 0 {
		msg += fmt.Sprintf(" (%s)", strings.Join(criteria, ", "))
	}
	return msg + ". Quer tentar com outros critérios? Posso buscar em outra região ou outra faixa de preço. 😊"
}

// FormatConversationHistory renders messages as "Cliente:"/"Atendente:"
// lines, preferring the audio transcription over raw content. Used to give
// the reply generator the conversation context.
func FormatConversationHistory(messages []models.Message) string {
	var b strings.Builder
	for _, m := range messages {
		text := m.Text()
		if text == "" {
			continue
		}
		speaker := "Atendente"
		if m.IsIncoming() {
			speaker = "Cliente"
		}
		fmt.Fprintf(&b, "%s: %s\n", speaker, text)
	}
	return strings.TrimRight(b.String(), "\n")
}
