// Package classify maps devices onto complexity tiers.
package classify

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/repairhub/pricing-engine/internal/model"
)

// ErrInvalidPolicy is returned for a tier policy that cannot be used.
var ErrInvalidPolicy = eris.New("classify: invalid policy")

// Policy holds the classification rules per device type.
type Policy struct {
	DeviceTypes map[model.DeviceType]DevicePolicy `yaml:"device_types"`
}

// DevicePolicy configures one device type. Prices at or below BasicMax are
// basic, at or below StandardMax standard, anything above premium.
type DevicePolicy struct {
	BasicMax    float64             `yaml:"basic_max"`
	StandardMax float64             `yaml:"standard_max"`
	Brands      map[string][]string `yaml:"brands"`   // tier -> brands
	Segments    map[string]string   `yaml:"segments"` // segment -> tier
	DefaultTier string              `yaml:"default_tier"`

	brandTier   map[string]model.Tier
	segmentTier map[string]model.Tier
	fallback    model.Tier
}

// DefaultPolicy returns the built-in marketplace thresholds.
func DefaultPolicy() *Policy {
	p := &Policy{
		DeviceTypes: map[model.DeviceType]DevicePolicy{
			model.DeviceTypePhone: {
				BasicMax:    25000,
				StandardMax: 60000,
				Brands: map[string][]string{
					"premium": {"Apple", "Samsung"},
					"basic":   {"Xiaomi", "Realme", "Vivo", "Oppo", "Infinix", "iQOO"},
				},
				DefaultTier: "standard",
			},
			model.DeviceTypeLaptop: {
				BasicMax:    40000,
				StandardMax: 80000,
				Brands: map[string][]string{
					"premium": {"Apple"},
				},
				Segments: map[string]string{
					"gaming":   "premium",
					"business": "standard",
					"student":  "basic",
				},
				DefaultTier: "standard",
			},
		},
	}
	if err := p.Validate(); err != nil {
		panic(err) // built-in policy is static
	}
	return p
}

// LoadPolicy reads a YAML policy file. The file has a top-level
// "classify" key.
func LoadPolicy(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "classify: read policy %s", path)
	}

	var wrapper struct {
		Classify Policy `yaml:"classify"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "classify: parse policy")
	}

	p := &wrapper.Classify
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks the policy and builds its lookup tables.
func (p *Policy) Validate() error {
	if len(p.DeviceTypes) == 0 {
		return eris.Wrap(ErrInvalidPolicy, "no device types")
	}
	for dt, dp := range p.DeviceTypes {
		if _, err := model.ParseDeviceType(string(dt)); err != nil {
			return eris.Wrapf(ErrInvalidPolicy, "device type %q", dt)
		}
		if dp.BasicMax <= 0 || dp.StandardMax <= dp.BasicMax {
			return eris.Wrapf(ErrInvalidPolicy, "%s: thresholds must satisfy 0 < basic_max < standard_max", dt)
		}

		dp.brandTier = make(map[string]model.Tier)
		for tierName, brands := range dp.Brands {
			tier, err := model.ParseTier(tierName)
			if err != nil {
				return eris.Wrapf(ErrInvalidPolicy, "%s: brand tier %q", dt, tierName)
			}
			for _, b := range brands {
				dp.brandTier[normalize(b)] = tier
			}
		}

		dp.segmentTier = make(map[string]model.Tier)
		for segment, tierName := range dp.Segments {
			tier, err := model.ParseTier(tierName)
			if err != nil {
				return eris.Wrapf(ErrInvalidPolicy, "%s: segment %q tier %q", dt, segment, tierName)
			}
			dp.segmentTier[normalize(segment)] = tier
		}

		dp.fallback = model.TierStandard
		if dp.DefaultTier != "" {
			tier, err := model.ParseTier(dp.DefaultTier)
			if err != nil {
				return eris.Wrapf(ErrInvalidPolicy, "%s: default tier %q", dt, dp.DefaultTier)
			}
			dp.fallback = tier
		}

		p.DeviceTypes[dt] = dp
	}
	return nil
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
