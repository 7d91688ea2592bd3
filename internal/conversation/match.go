package conversation

import (
	"math"
	"strings"

	"github.com/imobia/leadpipe/internal/models"
)

// Match score weights.
const (
	matchBaseScore        = 50.0
	matchPricePoints      = 30.0
	matchRoomPoints       = 10.0
	matchExactRoomBonus   = 5.0
	matchNeighborhoodGain = 15.0
	matchCityGain         = 10.0
	matchMaxScore         = 100.0

	// exactTargetSpread is the tolerance band used when the lead gave a
	// zero-width budget range: the price term falls off linearly over
	// ±20% of the target price instead of dividing by zero.
	exactTargetSpread = 0.2
)

// defaultMatchLimit caps how many properties a match query returns.
const defaultMatchLimit = 10

// HasEnoughDataForMatching reports whether the lead carries all three
// qualification categories needed to search: some budget bound, a location
// and a room count.
func HasEnoughDataForMatching(lead *models.Lead) bool {
	if lead == nil {
		return false
	}
	hasBudget := lead.BudgetMin != nil || lead.BudgetMax != nil
	return hasBudget && lead.Location != nil && lead.Rooms != nil
}

// BuildPropertyMatchQuery constructs the declarative filter handed to the
// store: active, publicly listed, for sale, inside the budget bounds, at
// least the requested bedroom count, and the requested location as a
// substring of neighborhood or city.
func BuildPropertyMatchQuery(lead *models.Lead) models.PropertyFilter {
	filter := models.PropertyFilter{
		OnlyActive:    true,
		OnlyPublished: true,
		Purpose:       "venda",
		Limit:         defaultMatchLimit,
	}
	if lead == nil {
		return filter
	}
	filter.CompanyID = lead.CompanyID
	filter.PriceMin = lead.BudgetMin
	filter.PriceMax = lead.BudgetMax
	filter.MinBedrooms = lead.Rooms
	filter.Location = lead.Location
	return filter
}

// CalculateMatchScore ranks how well a property fits the lead's stated
// criteria on a 0..100 scale. Base 50; the price term (up to +30) only
// applies when both budget bounds are known and decays linearly with the
// distance from the budget midpoint; rooms add +10 when sufficient plus +5
// when exact; location adds +15 on a neighborhood match or +10 on a city
// match. The result is clamped to 100.
func CalculateMatchScore(property models.Property, lead *models.Lead) float64 {
	score := matchBaseScore
	if lead == nil {
		return score
	}

	if lead.BudgetMin != nil && lead.BudgetMax != nil {
		score += priceTerm(property.SalePrice, *lead.BudgetMin, *lead.BudgetMax)
	}

	if lead.Rooms != nil {
		if property.Bedrooms >= *lead.Rooms {
			score += matchRoomPoints
			if property.Bedrooms == *lead.Rooms {
				score += matchExactRoomBonus
			}
		}
	}

	if lead.Location != nil {
		loc := strings.ToLower(*lead.Location)
		switch {
		case loc != "" && strings.Contains(strings.ToLower(property.Neighborhood), loc):
			score += matchNeighborhoodGain
		case loc != "" && strings.Contains(strings.ToLower(property.City), loc):
			score += matchCityGain
		}
	}

	if score > matchMaxScore {
		score = matchMaxScore
	}
	return score
}

// priceTerm computes the budget contribution: full points at the budget
// midpoint, falling off linearly with distance scaled by the range width. A
// zero-width range is treated as an exact-price target with a ±20% band so
// the term stays defined.
func priceTerm(price, budgetMin, budgetMax float64) float64 {
	mid := (budgetMin + budgetMax) / 2
	width := budgetMax - budgetMin
	if width <= 0 {
		width = math.Abs(mid) * exactTargetSpread
		if width == 0 {
			if price == mid {
				return matchPricePoints
			}
			return 0
		}
	}
	penalty := math.Abs(price-mid) / width * matchPricePoints
	if penalty > matchPricePoints {
		penalty = matchPricePoints
	}
	return matchPricePoints - penalty
}
