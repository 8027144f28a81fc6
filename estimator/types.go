package estimator

const (
	// MaxResultsPerPage bounds a single GetProducts call. Only the first
	// page is inspected; see Catalog.unitPrice.
	MaxResultsPerPage int32 = 100

	// HoursPerMonth converts hourly unit prices into monthly costs.
	HoursPerMonth = 730.0
)

// Pricing is one product record of the AWS Pricing catalog, as returned
// inside GetProducts PriceList entries.
type Pricing struct {
	Product     Product
	ServiceCode string
	Terms       Terms
}

type Terms struct {
	OnDemand map[string]SKU
	Reserved map[string]SKU
}

type Product struct {
	ProductFamily string
	Attributes    map[string]string
	Sku           string
}

type SKU struct {
	PriceDimensions map[string]Details
	Sku             string
	EffectiveDate   string
	OfferTermCode   string
	TermAttributes  string
}

type Details struct {
	Unit         string
	EndRange     string
	Description  string
	AppliesTo    []string
	RateCode     string
	BeginRange   string
	PricePerUnit map[string]string
}
