package pricing

import (
	"context"

	"github.com/repairhub/pricing-engine/internal/catalog"
	"github.com/repairhub/pricing-engine/internal/model"
)

type request struct {
	target     *Target
	providerID string
}

type stage struct {
	name string
	run  func(ctx context.Context, cat Catalog, req *request) (Layer, error)
}

// stages in precedence order, lowest first.
var stages = []stage{
	{name: string(model.PricingPlatformSeries), run: platformSeriesStage},
	{name: string(model.PricingPlatformSeriesCustomization), run: customizationStage},
	{name: string(model.PricingCustomSeries), run: customSeriesStage},
	{name: string(model.PricingModelOverride), run: modelOverrideStage},
}

// platformSeriesStage prices the provider's series-scoped rows for the
// device's platform series.
func platformSeriesStage(ctx context.Context, cat Catalog, req *request) (Layer, error) {
	series := req.target.Series
	if series == nil {
		return nil, nil
	}
	rows, err := cat.ListOfferedServices(ctx, catalog.ServiceFilter{
		ProviderIDs: []string{req.providerID},
		DeviceType:  req.target.Device.Category,
		Brand:       req.target.Device.Brand,
		Scope:       model.ScopeSeries,
		SeriesID:    series.ID,
		Issues:      req.target.IssueKeys(),
	})
	if err != nil {
		return nil, err
	}
	return toLayer(req, rows, func(model.OfferedService) (model.PricingType, string) {
		return model.PricingPlatformSeries, series.Name
	}), nil
}

// customizationStage overlays every custom series the provider derived
// from the device's platform series, whether or not it lists the device.
func customizationStage(ctx context.Context, cat Catalog, req *request) (Layer, error) {
	series := req.target.Series
	if series == nil {
		return nil, nil
	}
	custom, err := cat.ListCustomSeries(ctx, catalog.CustomSeriesFilter{
		ProviderID:             req.providerID,
		DeviceType:             req.target.Device.Category,
		SourcePlatformSeriesID: series.ID,
	})
	if err != nil {
		return nil, err
	}
	return customRows(ctx, cat, req, custom, func(model.CustomSeries) model.PricingType {
		return model.PricingPlatformSeriesCustomization
	})
}

// customSeriesStage overlays custom series whose model list contains the device.
func customSeriesStage(ctx context.Context, cat Catalog, req *request) (Layer, error) {
	all, err := cat.ListCustomSeries(ctx, catalog.CustomSeriesFilter{
		ProviderID: req.providerID,
		DeviceType: req.target.Device.Category,
	})
	if err != nil {
		return nil, err
	}
	var matched []model.CustomSeries
	for _, s := range all {
		if s.Contains(req.target.Device.Brand, req.target.Device.Model) {
			matched = append(matched, s)
		}
	}
	return customRows(ctx, cat, req, matched, func(s model.CustomSeries) model.PricingType {
		if s.IsPlatformCustomization() {
			return model.PricingPlatformSeriesCustomization
		}
		return model.PricingCustomSeries
	})
}

// modelOverrideStage prices rows scoped to exactly this device.
func modelOverrideStage(ctx context.Context, cat Catalog, req *request) (Layer, error) {
	d := req.target.Device
	rows, err := cat.ListOfferedServices(ctx, catalog.ServiceFilter{
		ProviderIDs: []string{req.providerID},
		DeviceType:  d.Category,
		Brand:       d.Brand,
		Scope:       model.ScopeModel,
		Model:       d.Model,
		Issues:      req.target.IssueKeys(),
	})
	if err != nil {
		return nil, err
	}
	return toLayer(req, rows, func(model.OfferedService) (model.PricingType, string) {
		return model.PricingModelOverride, ""
	}), nil
}

func customRows(ctx context.Context, cat Catalog, req *request, series []model.CustomSeries, tag func(model.CustomSeries) model.PricingType) (Layer, error) {
	if len(series) == 0 {
		return nil, nil
	}
	byID := make(map[string]model.CustomSeries, len(series))
	ids := make([]string, 0, len(series))
	for _, s := range series {
		byID[s.ID] = s
		ids = append(ids, s.ID)
	}
	rows, err := cat.ListOfferedServices(ctx, catalog.ServiceFilter{
		ProviderIDs:     []string{req.providerID},
		DeviceType:      req.target.Device.Category,
		Brand:           req.target.Device.Brand,
		Scope:           model.ScopeCustomSeries,
		CustomSeriesIDs: ids,
		Issues:          req.target.IssueKeys(),
	})
	if err != nil {
		return nil, err
	}
	return toLayer(req, rows, func(row model.OfferedService) (model.PricingType, string) {
		s := byID[row.CustomSeriesID]
		return tag(s), s.Name
	}), nil
}

// toLayer keys rows by (issue, part type). Rows for issues that were not
// requested are ignored. Within one layer the last row wins.
func toLayer(req *request, rows []model.OfferedService, tag func(model.OfferedService) (model.PricingType, string)) Layer {
	layer := make(Layer, len(rows))
	for _, row := range rows {
		is, ok := req.target.requested(row.Issue)
		if !ok || row.ProviderID != req.providerID {
			continue
		}
		pt, source := tag(row)
		layer[Key{Issue: is.key, PartType: row.PartType}] = model.ResolvedPrice{
			ProviderID:       req.providerID,
			Issue:            is.name,
			PartType:         row.PartType,
			Price:            row.Price,
			Warranty:         row.Warranty,
			PricingType:      pt,
			SourceSeriesName: source,
		}
	}
	return layer
}

// tierFallback prices still-missing issues from the provider's tier rows
// at the device's complexity tier. Non-positive tier cells count as unset.
func tierFallback(ctx context.Context, cat Catalog, req *request, missing []string) (Layer, error) {
	d := req.target.Device
	rows, err := cat.ListTierPrices(ctx, catalog.TierPriceFilter{
		ProviderIDs: []string{req.providerID},
		DeviceType:  d.Category,
		Brand:       d.Brand,
		Issues:      missing,
	})
	if err != nil {
		return nil, err
	}
	want := make(map[string]bool, len(missing))
	for _, k := range missing {
		want[k] = true
	}
	layer := make(Layer)
	for _, row := range rows {
		is, ok := req.target.requested(row.Issue)
		if !ok || !want[is.key] || row.ProviderID != req.providerID {
			continue
		}
		key := Key{Issue: is.key}
		if _, done := layer[key]; done {
			continue
		}
		price, ok := row.PriceFor(req.target.Tier)
		if !ok || !price.IsPositive() {
			continue
		}
		layer[key] = model.ResolvedPrice{
			ProviderID:  req.providerID,
			Issue:       is.name,
			Price:       price,
			PricingType: model.PricingTier,
		}
	}
	return layer, nil
}
