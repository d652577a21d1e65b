package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDeviceType(t *testing.T) {
	t.Parallel()

	dt, err := ParseDeviceType(" Phone ")
	require.NoError(t, err)
	assert.Equal(t, DeviceTypePhone, dt)

	dt, err = ParseDeviceType("LAPTOP")
	require.NoError(t, err)
	assert.Equal(t, DeviceTypeLaptop, dt)

	_, err = ParseDeviceType("tablet")
	assert.Error(t, err)
}

func TestParseTier(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"basic", "Standard", " PREMIUM"} {
		_, err := ParseTier(s)
		assert.NoError(t, err, s)
	}
	_, err := ParseTier("gold")
	assert.Error(t, err)
}

func TestParsePartType(t *testing.T) {
	t.Parallel()

	assert.Equal(t, PartTypeNone, ParsePartType(""))
	assert.Equal(t, PartTypeOEM, ParsePartType("oem"))
	assert.Equal(t, PartTypeHQ, ParsePartType(" hq "))
	assert.Equal(t, PartType("COPY"), ParsePartType("copy"))
}

func TestPartTypeLess(t *testing.T) {
	t.Parallel()

	assert.True(t, PartTypeNone.Less(PartTypeOEM))
	assert.True(t, PartTypeOEM.Less(PartTypeHQ))
	assert.True(t, PartTypeHQ.Less(PartType("AAA")))
	assert.True(t, PartType("AAA").Less(PartType("BBB")))
	assert.False(t, PartTypeHQ.Less(PartTypeHQ))
}

func TestIssueKeys(t *testing.T) {
	t.Parallel()

	keys := IssueKeys([]string{"Screen Replacement", " screen replacement ", "", "Battery"})
	assert.Equal(t, []string{"screen replacement", "battery"}, keys)
	assert.True(t, SameName("Galaxy A14", "galaxy a14 "))
}

func TestParseModelRef(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want ModelRef
	}{
		{"iPhone 13", ModelRef{Model: "iPhone 13"}},
		{"Apple:iPhone 13", ModelRef{Brand: "Apple", Model: "iPhone 13"}},
		{" Samsung : Galaxy A14 ", ModelRef{Brand: "Samsung", Model: "Galaxy A14"}},
		{":iPhone 13", ModelRef{Model: ":iPhone 13"}},
		{"Apple:", ModelRef{Model: "Apple:"}},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ParseModelRef(tt.raw))
		})
	}

	refs := ParseModelRefs([]string{"Apple:iPhone 13", " ", "Pixel 7"})
	require.Len(t, refs, 2)
	assert.Equal(t, "Apple:iPhone 13", refs[0].String())
	assert.Equal(t, "Pixel 7", refs[1].String())
}

func TestModelRefMatches(t *testing.T) {
	t.Parallel()

	bare := ModelRef{Model: "iPhone 13"}
	assert.True(t, bare.Matches("Apple", "iphone 13"))
	assert.True(t, bare.Matches("Anything", "IPHONE 13"))

	scoped := ModelRef{Brand: "Apple", Model: "iPhone 13"}
	assert.True(t, scoped.Matches("apple", "iPhone 13"))
	assert.False(t, scoped.Matches("Samsung", "iPhone 13"))
	assert.False(t, scoped.Matches("Apple", "iPhone 14"))
}

func TestSeriesContains(t *testing.T) {
	t.Parallel()

	ps := PlatformSeries{Models: []string{"Galaxy A14", "Galaxy A15"}}
	assert.True(t, ps.Contains("galaxy a15"))
	assert.False(t, ps.Contains("Galaxy S23"))

	cs := CustomSeries{Models: []ModelRef{{Model: "Galaxy A14"}, {Brand: "Apple", Model: "iPhone 13"}}}
	assert.True(t, cs.Contains("Samsung", "Galaxy A14"))
	assert.True(t, cs.Contains("Apple", "iPhone 13"))
	assert.False(t, cs.Contains("Samsung", "iPhone 13"))
	assert.False(t, cs.IsPlatformCustomization())

	scoped := CustomSeries{Brand: "Apple", Models: []ModelRef{{Model: "Galaxy A14"}, ParseModelRef("Samsung : Galaxy A15")}}
	assert.False(t, scoped.Contains("Samsung", "Galaxy A14"))
	assert.True(t, scoped.Contains("samsung", "galaxy a15"))

	cs.SourcePlatformSeriesID = "ps1"
	assert.True(t, cs.IsPlatformCustomization())
}

func TestOfferedServiceScope(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ScopeSeries, OfferedService{SeriesID: "ps1"}.Scope())
	assert.Equal(t, ScopeCustomSeries, OfferedService{CustomSeriesID: "cs1"}.Scope())
	assert.Equal(t, ScopeModel, OfferedService{SeriesID: "ps1", CustomSeriesID: "cs1", Model: "iPhone 13"}.Scope())
}

func TestTierPriceRowPriceFor(t *testing.T) {
	t.Parallel()

	row := TierPriceRow{
		Basic:    decimal.NewFromInt(100),
		Standard: decimal.NewFromInt(200),
		Premium:  decimal.NewFromInt(300),
	}
	for tier, want := range map[Tier]int64{TierBasic: 100, TierStandard: 200, TierPremium: 300} {
		p, ok := row.PriceFor(tier)
		require.True(t, ok)
		assert.True(t, p.Equal(decimal.NewFromInt(want)), tier)
	}
	_, ok := row.PriceFor("gold")
	assert.False(t, ok)
}

func TestProviderEligible(t *testing.T) {
	t.Parallel()

	p := Provider{Approved: true, Verified: true, OnboardingCompleted: true}
	assert.True(t, p.Eligible())

	p.Verified = false
	assert.False(t, p.Eligible())
}

func TestLocationValid(t *testing.T) {
	t.Parallel()

	assert.True(t, Location{Lat: 12.97, Lng: 77.59}.Valid())
	assert.True(t, Location{Lat: -90, Lng: 180}.Valid())
	assert.False(t, Location{Lat: 90.1}.Valid())
	assert.False(t, Location{Lng: -180.5}.Valid())
}
