// Package conversation turns free-text WhatsApp messages into structured
// lead facts: budget, CPF, email, room count, income. It also scores
// property matches and builds the fixed message templates sent back to
// leads.
//
// Every function here is a pure, total computation: malformed or missing
// input resolves to nil/zero values, never an error.
package conversation

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/imobia/leadpipe/internal/models"
)

var (
	cpfPunctuatedRe = regexp.MustCompile(`\d{3}\.\d{3}\.\d{3}-\d{2}`)
	cpfBareRe       = regexp.MustCompile(`\b\d{11}\b`)
	emailRe         = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	nonDigitRe      = regexp.MustCompile(`\D`)

	// budgetRangeRe captures "de X a Y" / "entre X e Y" with optional
	// magnitude words after each value.
	budgetRangeRe = regexp.MustCompile(`(?i)(?:de|entre)\s+(?:r\$\s*)?([\d.,]+)\s*(milh[õo]es|milh[ãa]o|mil|k)?\s*(?:a|e|até|ate)\s+(?:r\$\s*)?([\d.,]+)\s*(milh[õo]es|milh[ãa]o|mil|k)?`)
	// budgetCeilingRe captures "até X" / "máximo X" style ceilings.
	budgetCeilingRe = regexp.MustCompile(`(?i)(?:até|ate|m[áa]ximo(?:\s+de)?|no\s+m[áa]x(?:imo)?)\s+(?:r\$\s*)?([\d.,]+)\s*(milh[õo]es|milh[ãa]o|mil|k)?`)

	// incomeRe captures "renda ... <value>" with an optional trailing "mil".
	incomeRe = regexp.MustCompile(`(?i)renda[^\d]*([\d.,]+)\s*(mil)?`)
	// isolatedNumberRe is the income fallback: a standalone run of 4+ digits.
	isolatedNumberRe = regexp.MustCompile(`\b(\d{4,})\b`)

	// roomsRe captures "3 quartos", "2 dormitórios", "1 suíte".
	roomsRe = regexp.MustCompile(`(?i)(\d{1,2})\s*(?:quartos?|dormit[óo]rios?|su[íi]tes?)`)
)

// Income fallback bounds: isolated numbers outside this range are assumed to
// be phone numbers, CEPs or property codes rather than a monthly income.
const (
	minPlausibleIncome = 1000
	maxPlausibleIncome = 1000000
)

// BudgetRange is the extracted budget of a lead. Either or both bounds may
// be nil when the message carries no recognizable budget.
type BudgetRange struct {
	Min *float64
	Max *float64
}

// ExtractCPF returns the 11-digit CPF found in the text, or empty string.
// It accepts both the punctuated XXX.XXX.XXX-XX form and a bare 11-digit run.
func ExtractCPF(text string) string {
	match := cpfPunctuatedRe.FindString(text)
	if match == "" {
		match = cpfBareRe.FindString(text)
	}
	if match == "" {
		return ""
	}
	digits := nonDigitRe.ReplaceAllString(match, "")
	if len(digits) != 11 {
		return ""
	}
	return digits
}

// ExtractEmail returns the first email address in the text, lowercased, or
// empty string.
func ExtractEmail(text string) string {
	return strings.ToLower(emailRe.FindString(text))
}

// ExtractBudget recognizes a budget range ("de X a Y", "entre X e Y") or a
// ceiling ("até X", "máximo X") in the text. The range pattern takes
// precedence over the ceiling pattern. Magnitude words expand the captured
// value: milhão/milhões ×1.000.000, mil/k ×1.000.
func ExtractBudget(text string) BudgetRange {
	if m := budgetRangeRe.FindStringSubmatch(text); m != nil {
		min := applyMagnitude(NormalizeNumericValue(m[1]), m[2])
		max := applyMagnitude(NormalizeNumericValue(m[3]), m[4])
		if min != nil && max != nil {
			return BudgetRange{Min: min, Max: max}
		}
	}
	if m := budgetCeilingRe.FindStringSubmatch(text); m != nil {
		if max := applyMagnitude(NormalizeNumericValue(m[1]), m[2]); max != nil {
			return BudgetRange{Max: max}
		}
	}
	return BudgetRange{}
}

// applyMagnitude multiplies a parsed value by the magnitude word captured
// next to it.
func applyMagnitude(value *float64, unit string) *float64 {
	if value == nil {
		return nil
	}
	v := *value
	switch strings.ToLower(unit) {
	case "milhão", "milhao", "milhões", "milhoes":
		v *= 1_000_000
	case "mil", "k":
		v *= 1_000
	}
	return &v
}

// ExtractMonthlyIncome returns the monthly income mentioned in the text, or
// nil. It first looks for an explicit "renda ... <value>" pattern (with an
// optional trailing "mil" multiplier) and falls back to an isolated 4+ digit
// number, accepted only inside the plausible income range so phone numbers
// and CEPs are not misread as income.
func ExtractMonthlyIncome(text string) *float64 {
	if m := incomeRe.FindStringSubmatch(text); m != nil {
		if v := NormalizeNumericValue(m[1]); v != nil {
			value := *v
			if strings.EqualFold(m[2], "mil") {
				value *= 1_000
			}
			return &value
		}
	}
	if m := isolatedNumberRe.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil && v >= minPlausibleIncome && v <= maxPlausibleIncome {
			return &v
		}
	}
	return nil
}

// ExtractRooms returns the desired room count mentioned in the text, or nil.
func ExtractRooms(text string) *int {
	m := roomsRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return nil
	}
	return &n
}

// NormalizeNumericValue parses a pt-BR formatted number: currency symbol and
// whitespace are stripped, "." thousands separators removed, the ","
// decimal separator converted to ".". Returns nil on empty input or parse
// failure.
func NormalizeNumericValue(raw string) *float64 {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, "R$", "")
	s = strings.ReplaceAll(s, "r$", "")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

// ExtractPreferredName returns the first whitespace-delimited token of a
// full name, or empty string for blank input.
func ExtractPreferredName(fullName string) string {
	fields := strings.Fields(fullName)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// Media file extension groups used by DetectMessageType.
var (
	audioExtensions = []string{".ogg", ".oga", ".mp3", ".wav"}
	imageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".heic"}
	videoExtensions = []string{".mp4", ".mov", ".avi"}
)

// DetectMessageType classifies a message payload. Without a media URL the
// message is plain text. An explicit MIME hint wins over the URL extension;
// anything with media that is neither audio, image nor video is a document.
func DetectMessageType(mediaURL, mediaType string) models.MessageKind {
	if mediaURL == "" {
		return models.MessageKindText
	}
	if mediaType != "" {
		mt := strings.ToLower(mediaType)
		switch {
		case strings.Contains(mt, "audio"):
			return models.MessageKindAudio
		case strings.Contains(mt, "image"):
			return models.MessageKindImage
		case strings.Contains(mt, "video"):
			return models.MessageKindVideo
		default:
			return models.MessageKindDocument
		}
	}
	url := strings.ToLower(mediaURL)
	// Drop query string before looking at the extension.
	if i := strings.IndexAny(url, "?#"); i >= 0 {
		url = url[:i]
	}
	for _, ext := range audioExtensions {
		if strings.HasSuffix(url, ext) {
			return models.MessageKindAudio
		}
	}
	for _, ext := range imageExtensions {
		if strings.HasSuffix(url, ext) {
			return models.MessageKindImage
		}
	}
	for _, ext := range videoExtensions {
		if strings.HasSuffix(url, ext) {
			return models.MessageKindVideo
		}
	}
	return models.MessageKindDocument
}

// ExtractFacts runs every extractor over one message text and returns the
// combined fact-update bag. Fields that could not be extracted stay nil.
func ExtractFacts(text string) models.LeadUpdate {
	var update models.LeadUpdate
	budget := ExtractBudget(text)
	update.BudgetMin = budget.Min
	update.BudgetMax = budget.Max
	if cpf := ExtractCPF(text); cpf != "" && ValidateCPF(cpf) {
		update.CPF = &cpf
	}
	if email := ExtractEmail(text); email != "" {
		update.Email = &email
	}
	update.Rooms = ExtractRooms(text)
	// The isolated-number income fallback would swallow a budget figure, so
	// when the message carries a budget only the explicit "renda" pattern is
	// trusted for income.
	if budget.Min == nil && budget.Max == nil || incomeRe.MatchString(text) {
		update.MonthlyIncome = ExtractMonthlyIncome(text)
	}
	return update
}
