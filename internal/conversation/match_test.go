package conversation

import (
	"testing"

	"github.com/imobia/leadpipe/internal/models"
)

func fptr(v float64) *float64 { return &v }
func iptr(v int) *int         { return &v }
func sptr(v string) *string   { return &v }

func TestHasEnoughDataForMatching(t *testing.T) {
	tests := []struct {
		name string
		lead *models.Lead
		want bool
	}{
		{"nil lead", nil, false},
		{"empty lead", &models.Lead{}, false},
		{"budget only", &models.Lead{BudgetMax: fptr(500000)}, false},
		{"budget and location", &models.Lead{BudgetMax: fptr(500000), Location: sptr("Centro")}, false},
		{"all three with max", &models.Lead{BudgetMax: fptr(500000), Location: sptr("Centro"), Rooms: iptr(2)}, true},
		{"all three with min", &models.Lead{BudgetMin: fptr(300000), Location: sptr("Centro"), Rooms: iptr(2)}, true},
		{"missing budget", &models.Lead{Location: sptr("Centro"), Rooms: iptr(2)}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := HasEnoughDataForMatching(tc.lead); got != tc.want {
				t.Errorf("HasEnoughDataForMatching = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestBuildPropertyMatchQuery(t *testing.T) {
	lead := &models.Lead{
		CompanyID: "tenant-1",
		BudgetMin: fptr(300000),
		BudgetMax: fptr(500000),
		Location:  sptr("Centro"),
		Rooms:     iptr(2),
	}
	filter := BuildPropertyMatchQuery(lead)
	if !filter.OnlyActive || !filter.OnlyPublished {
		t.Error("filter must restrict to active, published listings")
	}
	if filter.Purpose != "venda" {
		t.Errorf("purpose = %q, want venda", filter.Purpose)
	}
	if filter.CompanyID != "tenant-1" {
		t.Errorf("company id = %q", filter.CompanyID)
	}
	if filter.PriceMin == nil || *filter.PriceMin != 300000 || filter.PriceMax == nil || *filter.PriceMax != 500000 {
		t.Error("price bounds not carried into filter")
	}
	if filter.MinBedrooms == nil || *filter.MinBedrooms != 2 {
		t.Error("bedroom minimum not carried into filter")
	}
	if filter.Location == nil || *filter.Location != "Centro" {
		t.Error("location not carried into filter")
	}
}

func TestCalculateMatchScoreFullMatchClampsTo100(t *testing.T) {
	// 50 base + 30 price (exact midpoint) + 10 rooms + 5 exact + 15
	// neighborhood = 110, clamped to 100.
	lead := &models.Lead{
		BudgetMin: fptr(400000),
		BudgetMax: fptr(600000),
		Rooms:     iptr(2),
		Location:  sptr("Centro"),
	}
	property := models.Property{SalePrice: 500000, Bedrooms: 2, Neighborhood: "Centro"}
	if got := CalculateMatchScore(property, lead); got != 100 {
		t.Errorf("score = %v, want 100", got)
	}
}

func TestCalculateMatchScoreTerms(t *testing.T) {
	tests := []struct {
		name     string
		lead     *models.Lead
		property models.Property
		want     float64
	}{
		{"nil lead is base", nil, models.Property{SalePrice: 100}, 50},
		{"no criteria is base", &models.Lead{}, models.Property{SalePrice: 500000}, 50},
		{
			"price term needs both bounds",
			&models.Lead{BudgetMax: fptr(500000)},
			models.Property{SalePrice: 500000},
			50,
		},
		{
			"price at range edge scores half the price points",
			&models.Lead{BudgetMin: fptr(400000), BudgetMax: fptr(600000)},
			models.Property{SalePrice: 600000},
			65, // 50 + (30 - 100000/200000*30)
		},
		{
			"price far outside range gets no price points",
			&models.Lead{BudgetMin: fptr(400000), BudgetMax: fptr(600000)},
			models.Property{SalePrice: 1200000},
			50,
		},
		{
			"more rooms than requested",
			&models.Lead{Rooms: iptr(2)},
			models.Property{Bedrooms: 3},
			60,
		},
		{
			"fewer rooms than requested",
			&models.Lead{Rooms: iptr(3)},
			models.Property{Bedrooms: 2},
			50,
		},
		{
			"city match when neighborhood differs",
			&models.Lead{Location: sptr("campinas")},
			models.Property{Neighborhood: "Taquaral", City: "Campinas"},
			60,
		},
		{
			"neighborhood substring match is case-insensitive",
			&models.Lead{Location: sptr("JARDIM")},
			models.Property{Neighborhood: "Jardim Paulista", City: "São Paulo"},
			65,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := CalculateMatchScore(tc.property, tc.lead); got != tc.want {
				t.Errorf("score = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestCalculateMatchScoreZeroWidthRange(t *testing.T) {
	// A zero-width budget range is treated as an exact-price target rather
	// than dividing by zero.
	lead := &models.Lead{BudgetMin: fptr(500000), BudgetMax: fptr(500000)}
	exact := CalculateMatchScore(models.Property{SalePrice: 500000}, lead)
	if exact != 80 {
		t.Errorf("exact target score = %v, want 80", exact)
	}
	near := CalculateMatchScore(models.Property{SalePrice: 550000}, lead)
	if near <= 50 || near >= exact {
		t.Errorf("near target score = %v, want between 50 and %v", near, exact)
	}
	far := CalculateMatchScore(models.Property{SalePrice: 5000000}, lead)
	if far != 50 {
		t.Errorf("far target score = %v, want 50", far)
	}
}
