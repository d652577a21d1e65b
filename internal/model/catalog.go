package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

// PlatformSeries is a centrally authored template grouping a brand's
// devices for shared pricing.
type PlatformSeries struct {
	ID         string                     `json:"id"`
	Name       string                     `json:"name"`
	Brand      string                     `json:"brand"`
	DeviceType DeviceType                 `json:"device_type"`
	Models     []string                   `json:"models"`
	BasePrices map[string]decimal.Decimal `json:"base_prices,omitempty"`
}

// Contains reports whether the series lists the model.
func (s PlatformSeries) Contains(modelName string) bool {
	for _, m := range s.Models {
		if SameName(m, modelName) {
			return true
		}
	}
	return false
}

// ModelRef is one normalized series membership entry. An empty Brand
// means the entry was stored as a bare model name and matches any brand.
type ModelRef struct {
	Brand string `json:"brand,omitempty"`
	Model string `json:"model"`
}

// ParseModelRef accepts both stored encodings: "model" and "brand:model".
func ParseModelRef(raw string) ModelRef {
	raw = strings.TrimSpace(raw)
	if brand, mdl, ok := strings.Cut(raw, ":"); ok && strings.TrimSpace(brand) != "" && strings.TrimSpace(mdl) != "" {
		return ModelRef{Brand: strings.TrimSpace(brand), Model: strings.TrimSpace(mdl)}
	}
	return ModelRef{Model: raw}
}

// ParseModelRefs parses a stored model list, skipping blanks.
func ParseModelRefs(raw []string) []ModelRef {
	refs := make([]ModelRef, 0, len(raw))
	for _, r := range raw {
		ref := ParseModelRef(r)
		if ref.Model == "" {
			continue
		}
		refs = append(refs, ref)
	}
	return refs
}

// String renders the ref in its canonical stored form.
func (r ModelRef) String() string {
	if r.Brand == "" {
		return r.Model
	}
	return r.Brand + ":" + r.Model
}

// Matches reports whether the ref denotes the given device.
func (r ModelRef) Matches(brand, modelName string) bool {
	if !SameName(r.Model, modelName) {
		return false
	}
	return r.Brand == "" || SameName(r.Brand, brand)
}

// CustomSeries is a provider-authored grouping of models. A non-empty
// SourcePlatformSeriesID marks it as a customization of that platform
// series.
type CustomSeries struct {
	ID                     string     `json:"id"`
	ProviderID             string     `json:"provider_id"`
	Name                   string     `json:"name"`
	DeviceType             DeviceType `json:"device_type"`
	Brand                  string     `json:"brand,omitempty"`
	Models                 []ModelRef `json:"models"`
	SourcePlatformSeriesID string     `json:"source_platform_series_id,omitempty"`
}

// IsPlatformCustomization reports whether the series re-prices a platform template.
func (s CustomSeries) IsPlatformCustomization() bool {
	return s.SourcePlatformSeriesID != ""
}

// Contains reports whether any model ref denotes the device. Bare refs
// take the series brand when one is set.
func (s CustomSeries) Contains(brand, modelName string) bool {
	for _, r := range s.Models {
		if r.Brand == "" {
			r.Brand = s.Brand
		}
		if r.Matches(brand, modelName) {
			return true
		}
	}
	return false
}

// ServiceScope identifies which shape an offered service row has.
type ServiceScope string

const (
	ScopeSeries       ServiceScope = "series"
	ScopeCustomSeries ServiceScope = "custom_series"
	ScopeModel        ServiceScope = "model"
)

// OfferedService is a priced unit of work authored by a provider.
type OfferedService struct {
	ID             string          `json:"id"`
	ProviderID     string          `json:"provider_id"`
	DeviceType     DeviceType      `json:"device_type"`
	Brand          string          `json:"brand"`
	SeriesID       string          `json:"series_id,omitempty"`
	CustomSeriesID string          `json:"custom_series_id,omitempty"`
	Model          string          `json:"model,omitempty"`
	Issue          string          `json:"issue"`
	PartType       PartType        `json:"part_type,omitempty"`
	Price          decimal.Decimal `json:"price"`
	Warranty       string          `json:"warranty,omitempty"`
}

// Scope derives the row shape. An explicit model always makes the row a
// model override, whatever series it also references.
func (s OfferedService) Scope() ServiceScope {
	switch {
	case s.Model != "":
		return ScopeModel
	case s.CustomSeriesID != "":
		return ScopeCustomSeries
	default:
		return ScopeSeries
	}
}

// TierPriceRow is a provider's flat price per complexity tier for one issue.
type TierPriceRow struct {
	ID         string          `json:"id,omitempty"`
	ProviderID string          `json:"provider_id"`
	DeviceType DeviceType      `json:"device_type"`
	Brand      string          `json:"brand"`
	Issue      string          `json:"issue"`
	Basic      decimal.Decimal `json:"basic"`
	Standard   decimal.Decimal `json:"standard"`
	Premium    decimal.Decimal `json:"premium"`
}

// PriceFor selects the column for a tier.
func (r TierPriceRow) PriceFor(t Tier) (decimal.Decimal, bool) {
	switch t {
	case TierBasic:
		return r.Basic, true
	case TierStandard:
		return r.Standard, true
	case TierPremium:
		return r.Premium, true
	default:
		return decimal.Zero, false
	}
}
