package catalog

import (
	"context"

	"github.com/repairhub/pricing-engine/internal/model"
	"github.com/repairhub/pricing-engine/internal/resilience"
)

// ResilientReader retries transient read failures and stops calling the
// database while the breaker is open.
type ResilientReader struct {
	next    Reader
	retry   resilience.RetryConfig
	breaker *resilience.CircuitBreaker
}

// NewResilientReader wraps next. A nil breaker disables circuit breaking.
func NewResilientReader(next Reader, retry resilience.RetryConfig, breaker *resilience.CircuitBreaker) *ResilientReader {
	return &ResilientReader{next: next, retry: retry, breaker: breaker}
}

func call[T any](ctx context.Context, r *ResilientReader, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	cfg := r.retry
	if cfg.OnRetry == nil {
		cfg.OnRetry = resilience.RetryLogger("catalog." + op)
	}
	attempt := func(ctx context.Context) (T, error) {
		return resilience.DoVal(ctx, cfg, fn)
	}
	if r.breaker == nil {
		return attempt(ctx)
	}
	return resilience.ExecuteVal(ctx, r.breaker, attempt)
}

func (r *ResilientReader) ListPlatformSeries(ctx context.Context, brand string, deviceType model.DeviceType) ([]model.PlatformSeries, error) {
	return call(ctx, r, "list_platform_series", func(ctx context.Context) ([]model.PlatformSeries, error) {
		return r.next.ListPlatformSeries(ctx, brand, deviceType)
	})
}

func (r *ResilientReader) ListCustomSeries(ctx context.Context, f CustomSeriesFilter) ([]model.CustomSeries, error) {
	return call(ctx, r, "list_custom_series", func(ctx context.Context) ([]model.CustomSeries, error) {
		return r.next.ListCustomSeries(ctx, f)
	})
}

func (r *ResilientReader) ListOfferedServices(ctx context.Context, f ServiceFilter) ([]model.OfferedService, error) {
	return call(ctx, r, "list_offered_services", func(ctx context.Context) ([]model.OfferedService, error) {
		return r.next.ListOfferedServices(ctx, f)
	})
}

func (r *ResilientReader) ListTierPrices(ctx context.Context, f TierPriceFilter) ([]model.TierPriceRow, error) {
	return call(ctx, r, "list_tier_prices", func(ctx context.Context) ([]model.TierPriceRow, error) {
		return r.next.ListTierPrices(ctx, f)
	})
}

func (r *ResilientReader) DiscoverProviders(ctx context.Context, f DiscoveryFilter) ([]string, error) {
	return call(ctx, r, "discover_providers", func(ctx context.Context) ([]string, error) {
		return r.next.DiscoverProviders(ctx, f)
	})
}

func (r *ResilientReader) TierPricedProviders(ctx context.Context, f TierPriceFilter) ([]string, error) {
	return call(ctx, r, "tier_priced_providers", func(ctx context.Context) ([]string, error) {
		return r.next.TierPricedProviders(ctx, f)
	})
}

func (r *ResilientReader) GetProviders(ctx context.Context, ids []string) ([]model.Provider, error) {
	return call(ctx, r, "get_providers", func(ctx context.Context) ([]model.Provider, error) {
		return r.next.GetProviders(ctx, ids)
	})
}
