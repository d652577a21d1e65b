package classify

import (
	"github.com/shopspring/decimal"

	"github.com/repairhub/pricing-engine/internal/model"
)

// Classify maps a market price onto a tier using the thresholds for the
// device type. Unknown device types classify as standard.
func (p *Policy) Classify(price decimal.Decimal, dt model.DeviceType) model.Tier {
	dp, ok := p.DeviceTypes[dt]
	if !ok {
		return model.TierStandard
	}
	switch {
	case price.LessThanOrEqual(decimal.NewFromFloat(dp.BasicMax)):
		return model.TierBasic
	case price.LessThanOrEqual(decimal.NewFromFloat(dp.StandardMax)):
		return model.TierStandard
	default:
		return model.TierPremium
	}
}

// SuggestTierByBrand returns the tier of a brand from the allow-lists,
// or the device type's default tier.
func (p *Policy) SuggestTierByBrand(brand string, dt model.DeviceType) model.Tier {
	dp, ok := p.DeviceTypes[dt]
	if !ok {
		return model.TierStandard
	}
	if tier, ok := dp.brandTier[normalize(brand)]; ok {
		return tier
	}
	return dp.fallback
}

// SuggestTier applies the segment heuristic before the brand lists.
func (p *Policy) SuggestTier(segment, brand string, dt model.DeviceType) model.Tier {
	if dp, ok := p.DeviceTypes[dt]; ok && segment != "" {
		if tier, ok := dp.segmentTier[normalize(segment)]; ok {
			return tier
		}
	}
	return p.SuggestTierByBrand(brand, dt)
}

// ForDevice classifies by market price when known, heuristics otherwise.
func (p *Policy) ForDevice(d model.Device) model.Tier {
	if d.MarketPrice != nil && d.MarketPrice.IsPositive() {
		return p.Classify(*d.MarketPrice, d.Category)
	}
	return p.SuggestTier(d.Segment, d.Brand, d.Category)
}
