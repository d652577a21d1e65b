// Package pricing resolves the effective price of requested issues for one
// provider by layering the provider's catalogs in a fixed precedence order.
//
// Stages run lowest precedence first and are merged by fold, so a later
// stage replaces an earlier one at the same (issue, part type) key:
//
//	platform series < platform customization < custom series < model override
//
// Tier prices are consulted last and only for issues no stage priced.
package pricing

import (
	"context"
	"slices"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/repairhub/pricing-engine/internal/catalog"
	"github.com/repairhub/pricing-engine/internal/classify"
	"github.com/repairhub/pricing-engine/internal/metrics"
	"github.com/repairhub/pricing-engine/internal/model"
)

// Catalog is the read surface the resolver needs. catalog.Reader
// satisfies it.
type Catalog interface {
	ListPlatformSeries(ctx context.Context, brand string, deviceType model.DeviceType) ([]model.PlatformSeries, error)
	ListCustomSeries(ctx context.Context, f catalog.CustomSeriesFilter) ([]model.CustomSeries, error)
	ListOfferedServices(ctx context.Context, f catalog.ServiceFilter) ([]model.OfferedService, error)
	ListTierPrices(ctx context.Context, f catalog.TierPriceFilter) ([]model.TierPriceRow, error)
}

// Key identifies one slot of the merged price list.
type Key struct {
	Issue    string // issue key, see model.IssueKey
	PartType model.PartType
}

// Layer is the output of one stage.
type Layer map[Key]model.ResolvedPrice

// fold merges layers in order; a later layer wins on equal keys.
func fold(layers ...Layer) Layer {
	out := make(Layer)
	for _, l := range layers {
		for k, v := range l {
			out[k] = v
		}
	}
	return out
}

// Resolution is the resolver output for one provider. Prices are ordered
// by requested issue then part type; Unresolved lists requested issues
// with no price from any layer, in request order.
type Resolution struct {
	ProviderID string                `json:"provider_id"`
	Prices     []model.ResolvedPrice `json:"prices"`
	Unresolved []string              `json:"unresolved,omitempty"`
}

// Resolved reports whether at least one issue was priced.
func (r *Resolution) Resolved() bool {
	return len(r.Prices) > 0
}

// issueRef pairs the lookup key with the caller's spelling.
type issueRef struct {
	key  string
	name string
}

// Target is the device context shared by every provider of one query.
type Target struct {
	Device model.Device
	Series *model.PlatformSeries
	Tier   model.Tier
	issues []issueRef
}

// IssueKeys returns the de-duplicated lookup keys in request order.
func (t *Target) IssueKeys() []string {
	keys := make([]string, len(t.issues))
	for i, is := range t.issues {
		keys[i] = is.key
	}
	return keys
}

// IssueNames returns the requested issue names, one per key.
func (t *Target) IssueNames() []string {
	names := make([]string, len(t.issues))
	for i, is := range t.issues {
		names[i] = is.name
	}
	return names
}

func (t *Target) requested(issue string) (issueRef, bool) {
	k := model.IssueKey(issue)
	for _, is := range t.issues {
		if is.key == k {
			return is, true
		}
	}
	return issueRef{}, false
}

// Resolver merges catalog layers into effective prices.
type Resolver struct {
	catalog Catalog
	policy  *classify.Policy
}

// NewResolver creates a Resolver. A nil policy uses classify.DefaultPolicy.
func NewResolver(cat Catalog, policy *classify.Policy) *Resolver {
	if policy == nil {
		policy = classify.DefaultPolicy()
	}
	return &Resolver{catalog: cat, policy: policy}
}

// Prepare builds the per-query Target: it normalizes the requested
// issues, classifies the device and looks up its platform series. A failed
// series lookup leaves Series nil; only cancellation is returned.
func (r *Resolver) Prepare(ctx context.Context, device model.Device, issues []string) (*Target, error) {
	t := &Target{Device: device, Tier: r.policy.ForDevice(device)}
	seen := make(map[string]bool, len(issues))
	for _, name := range issues {
		k := model.IssueKey(name)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		t.issues = append(t.issues, issueRef{key: k, name: name})
	}

	series, err := r.lookupSeries(ctx, device)
	if err != nil {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "pricing: prepare")
		}
		metrics.StageErrors.WithLabelValues("series_lookup").Inc()
		zap.L().Warn("pricing: platform series lookup failed",
			zap.String("brand", device.Brand),
			zap.String("model", device.Model),
			zap.Error(err),
		)
	}
	t.Series = series
	return t, nil
}

func (r *Resolver) lookupSeries(ctx context.Context, d model.Device) (*model.PlatformSeries, error) {
	all, err := r.catalog.ListPlatformSeries(ctx, d.Brand, d.Category)
	if err != nil {
		if d.PlatformSeriesID != "" {
			return &model.PlatformSeries{ID: d.PlatformSeriesID}, err
		}
		return nil, err
	}
	for i := range all {
		s := all[i]
		if d.PlatformSeriesID != "" && s.ID == d.PlatformSeriesID {
			return &s, nil
		}
		if d.PlatformSeriesID == "" && s.Contains(d.Model) {
			return &s, nil
		}
	}
	if d.PlatformSeriesID != "" {
		return &model.PlatformSeries{ID: d.PlatformSeriesID}, nil
	}
	return nil, nil
}

// Resolve prices issues for one provider. It is Prepare followed by
// ResolveFor.
func (r *Resolver) Resolve(ctx context.Context, device model.Device, issues []string, providerID string) (*Resolution, error) {
	t, err := r.Prepare(ctx, device, issues)
	if err != nil {
		return nil, err
	}
	return r.ResolveFor(ctx, t, providerID)
}

// ResolveFor prices the target's issues for one provider. A stage whose
// catalog read fails contributes nothing; only cancellation is returned.
func (r *Resolver) ResolveFor(ctx context.Context, t *Target, providerID string) (*Resolution, error) {
	res := &Resolution{ProviderID: providerID}
	if len(t.issues) == 0 {
		return res, nil
	}

	req := &request{target: t, providerID: providerID}
	layers := make([]Layer, 0, len(stages))
	for _, st := range stages {
		layer, err := st.run(ctx, r.catalog, req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, eris.Wrapf(ctx.Err(), "pricing: resolve provider %s", providerID)
			}
			metrics.StageErrors.WithLabelValues(st.name).Inc()
			zap.L().Warn("pricing: stage degraded",
				zap.String("stage", st.name),
				zap.String("provider_id", providerID),
				zap.Error(err),
			)
			continue
		}
		metrics.StagePrices.WithLabelValues(st.name).Add(float64(len(layer)))
		layers = append(layers, layer)
	}
	merged := fold(layers...)

	if missing := unpriced(t, merged); len(missing) > 0 {
		layer, err := tierFallback(ctx, r.catalog, req, missing)
		switch {
		case err != nil && ctx.Err() != nil:
			return nil, eris.Wrapf(ctx.Err(), "pricing: resolve provider %s", providerID)
		case err != nil:
			metrics.StageErrors.WithLabelValues(string(model.PricingTier)).Inc()
			zap.L().Warn("pricing: tier fallback degraded",
				zap.String("provider_id", providerID),
				zap.Error(err),
			)
		default:
			metrics.StagePrices.WithLabelValues(string(model.PricingTier)).Add(float64(len(layer)))
			merged = fold(merged, layer)
		}
	}

	for _, is := range t.issues {
		var prices []model.ResolvedPrice
		for k, p := range merged {
			if k.Issue == is.key {
				prices = append(prices, p)
			}
		}
		if len(prices) == 0 {
			res.Unresolved = append(res.Unresolved, is.name)
			continue
		}
		slices.SortFunc(prices, func(a, b model.ResolvedPrice) int {
			switch {
			case a.PartType.Less(b.PartType):
				return -1
			case b.PartType.Less(a.PartType):
				return 1
			default:
				return 0
			}
		})
		res.Prices = append(res.Prices, prices...)
	}
	metrics.UnresolvedIssues.Add(float64(len(res.Unresolved)))
	return res, nil
}

// unpriced returns the keys of requested issues with no merged price.
func unpriced(t *Target, merged Layer) []string {
	priced := make(map[string]bool, len(merged))
	for k := range merged {
		priced[k.Issue] = true
	}
	var out []string
	for _, is := range t.issues {
		if !priced[is.key] {
			out = append(out, is.key)
		}
	}
	return out
}
