// Package catalog is the data-access layer over the pricing catalogs and
// the provider directory. It executes queries and returns raw matching
// rows; precedence and merge rules live in the pricing package.
package catalog

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/repairhub/pricing-engine/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = eris.New("catalog: not found")

// CustomSeriesFilter selects provider custom series. An empty
// SourcePlatformSeriesID returns both customizations and fully custom series.
type CustomSeriesFilter struct {
	ProviderID             string
	DeviceType             model.DeviceType
	SourcePlatformSeriesID string
}

// ServiceFilter selects offered service rows of one scope. Issues must be
// issue keys (see model.IssueKey).
type ServiceFilter struct {
	ProviderIDs     []string
	DeviceType      model.DeviceType
	Brand           string
	Scope           model.ServiceScope
	SeriesID        string   // ScopeSeries
	CustomSeriesIDs []string // ScopeCustomSeries
	Model           string   // ScopeModel
	Issues          []string
}

// TierPriceFilter selects tier price rows.
type TierPriceFilter struct {
	ProviderIDs []string
	DeviceType  model.DeviceType
	Brand       string
	Issues      []string
}

// DiscoveryFilter selects providers with any offered service row for a
// device and one of the requested issues. PlatformSeriesID widens the
// match to series-scoped rows of the device's platform series.
type DiscoveryFilter struct {
	DeviceType       model.DeviceType
	Brand            string
	Model            string
	PlatformSeriesID string
	Issues           []string
}

// Reader is the read-only contract used during resolution.
type Reader interface {
	ListPlatformSeries(ctx context.Context, brand string, deviceType model.DeviceType) ([]model.PlatformSeries, error)
	ListCustomSeries(ctx context.Context, f CustomSeriesFilter) ([]model.CustomSeries, error)
	ListOfferedServices(ctx context.Context, f ServiceFilter) ([]model.OfferedService, error)
	ListTierPrices(ctx context.Context, f TierPriceFilter) ([]model.TierPriceRow, error)
	DiscoverProviders(ctx context.Context, f DiscoveryFilter) ([]string, error)
	TierPricedProviders(ctx context.Context, f TierPriceFilter) ([]string, error)
	GetProviders(ctx context.Context, ids []string) ([]model.Provider, error)
}

// Store adds the write and lifecycle operations used by the CLI.
type Store interface {
	Reader
	UpsertTierPrices(ctx context.Context, rows []model.TierPriceRow) (int64, error)
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

func validateServiceFilter(f ServiceFilter) error {
	switch f.Scope {
	case model.ScopeSeries:
		if f.SeriesID == "" {
			return eris.New("catalog: series scope requires series id")
		}
	case model.ScopeCustomSeries:
		if len(f.CustomSeriesIDs) == 0 {
			return eris.New("catalog: custom series scope requires custom series ids")
		}
	case model.ScopeModel:
		if f.Model == "" {
			return eris.New("catalog: model scope requires model")
		}
	default:
		return eris.Errorf("catalog: unknown service scope %q", f.Scope)
	}
	return nil
}
