package model

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DeviceType is the device category a repair applies to.
type DeviceType string

const (
	DeviceTypePhone  DeviceType = "phone"
	DeviceTypeLaptop DeviceType = "laptop"
)

// ParseDeviceType normalizes a category string.
func ParseDeviceType(s string) (DeviceType, error) {
	switch DeviceType(strings.ToLower(strings.TrimSpace(s))) {
	case DeviceTypePhone:
		return DeviceTypePhone, nil
	case DeviceTypeLaptop:
		return DeviceTypeLaptop, nil
	default:
		return "", eris.Errorf("model: unknown device type %q", s)
	}
}

// Tier is the complexity classification of a device.
type Tier string

const (
	TierBasic    Tier = "basic"
	TierStandard Tier = "standard"
	TierPremium  Tier = "premium"
)

// ParseTier rejects anything that is not one of the three tiers.
func ParseTier(s string) (Tier, error) {
	switch Tier(strings.ToLower(strings.TrimSpace(s))) {
	case TierBasic:
		return TierBasic, nil
	case TierStandard:
		return TierStandard, nil
	case TierPremium:
		return TierPremium, nil
	default:
		return "", eris.Errorf("model: unknown tier %q", s)
	}
}

// Device is immutable reference data identified by (Category, Brand, Model).
type Device struct {
	Category    DeviceType       `json:"category"`
	Brand       string           `json:"brand"`
	Model       string           `json:"model"`
	MarketPrice *decimal.Decimal `json:"market_price,omitempty"`

	// Segment is the laptop market segment (gaming, business, student).
	Segment string `json:"segment,omitempty"`

	// PlatformSeriesID is set when the caller already knows the series.
	PlatformSeriesID string `json:"platform_series_id,omitempty"`
}

// PartType distinguishes screen part grades.
type PartType string

const (
	PartTypeNone PartType = ""
	PartTypeOEM  PartType = "OEM"
	PartTypeHQ   PartType = "HQ"
)

// ParsePartType maps stored values onto a PartType. Unknown values are
// kept verbatim upper-cased so they still key distinctly.
func ParsePartType(s string) PartType {
	v := strings.ToUpper(strings.TrimSpace(s))
	switch v {
	case "":
		return PartTypeNone
	case string(PartTypeOEM):
		return PartTypeOEM
	case string(PartTypeHQ):
		return PartTypeHQ
	default:
		return PartType(v)
	}
}

// order is the output ordering of part types within one issue.
func (p PartType) order() int {
	switch p {
	case PartTypeNone:
		return 0
	case PartTypeOEM:
		return 1
	case PartTypeHQ:
		return 2
	default:
		return 3
	}
}

// Less orders part types none, OEM, HQ, then anything else by name.
func (p PartType) Less(o PartType) bool {
	if p.order() != o.order() {
		return p.order() < o.order()
	}
	return p < o
}

// IssueKey folds an issue name into its lookup key. Issues are always
// matched by name, never by identifier.
func IssueKey(name string) string {
	// cases.Caser is stateful; one per call.
	return cases.Lower(language.Und).String(strings.TrimSpace(name))
}

// IssueKeys folds and de-duplicates names, preserving first occurrence.
func IssueKeys(names []string) []string {
	seen := make(map[string]bool, len(names))
	keys := make([]string, 0, len(names))
	for _, n := range names {
		k := IssueKey(n)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		keys = append(keys, k)
	}
	return keys
}

// SameName reports case-insensitive trimmed equality.
func SameName(a, b string) bool {
	return IssueKey(a) == IssueKey(b)
}
