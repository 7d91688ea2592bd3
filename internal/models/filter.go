package models

// PropertyFilter is a declarative description of a property search. The
// conversation layer builds it from lead facts; the store executes it.
type PropertyFilter struct {
	CompanyID string

	// OnlyActive and OnlyPublished restrict to listings visible to leads.
	OnlyActive    bool
	OnlyPublished bool
	// Purpose restricts the listing purpose (e.g. "venda").
	Purpose string

	// PriceMin/PriceMax bound the sale price. Either may be nil.
	PriceMin *float64
	PriceMax *float64

	// MinBedrooms keeps properties with at least this many bedrooms.
	MinBedrooms *int

	// Location is matched as a case-insensitive substring of either the
	// neighborhood or the city.
	Location *string

	// Limit caps the result set; zero means no limit.
	Limit int
}

// PropertyMatch pairs a property with its compatibility score for one lead.
type PropertyMatch struct {
	Property Property `json:"imovel"`
	Score    float64  `json:"pontuacao"`
}
