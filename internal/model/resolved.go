package model

import "github.com/shopspring/decimal"

// PricingType records which catalog supplied a resolved price.
type PricingType string

const (
	PricingPlatformSeries              PricingType = "platform_series"
	PricingPlatformSeriesCustomization PricingType = "platform_series_customization"
	PricingCustomSeries                PricingType = "custom_series"
	PricingModelOverride               PricingType = "model_override"
	PricingTier                        PricingType = "tier_pricing"
)

// ResolvedPrice is the effective, provenance-tagged price of one issue
// for one provider.
type ResolvedPrice struct {
	ProviderID       string          `json:"provider_id"`
	Issue            string          `json:"issue"`
	PartType         PartType        `json:"part_type,omitempty"`
	Price            decimal.Decimal `json:"price"`
	Warranty         string          `json:"warranty,omitempty"`
	PricingType      PricingType     `json:"pricing_type"`
	SourceSeriesName string          `json:"source_series_name,omitempty"`
}

// IssueBreakdown is the per-issue view shown to the customer. Offered is
// false when no catalog layer priced the issue.
type IssueBreakdown struct {
	Issue   string          `json:"issue"`
	Offered bool            `json:"offered"`
	Prices  []ResolvedPrice `json:"prices,omitempty"`
}

// CandidateProvider is a provider that survived discovery, gating and the
// geo filter, with its prices attached.
type CandidateProvider struct {
	ProviderID      string               `json:"provider_id"`
	Name            string               `json:"name"`
	Rating          float64              `json:"rating"`
	YearsExperience int                  `json:"years_experience"`
	Verified        bool                 `json:"verified"`
	Location        *Location            `json:"location,omitempty"`
	Availability    []AvailabilityWindow `json:"availability,omitempty"`

	Prices     []ResolvedPrice  `json:"prices"`
	Breakdown  []IssueBreakdown `json:"breakdown"`
	NotOffered []string         `json:"not_offered,omitempty"`

	DistanceKm    float64         `json:"distance_km"`
	TotalEstimate decimal.Decimal `json:"total_estimate"`
	StartingPrice decimal.Decimal `json:"starting_price"`
}

// Experience returns years of experience for ranking.
func (c *CandidateProvider) Experience() int { return c.YearsExperience }

// Coordinates returns the provider location, nil when unknown.
func (c *CandidateProvider) Coordinates() *Location { return c.Location }

// SetDistance records the computed distance.
func (c *CandidateProvider) SetDistance(km float64) { c.DistanceKm = km }

// Distance returns the computed distance.
func (c *CandidateProvider) Distance() float64 { return c.DistanceKm }
