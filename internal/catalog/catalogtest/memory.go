// Package catalogtest provides an in-memory catalog.Reader for tests of
// the packages built on the catalog.
package catalogtest

import (
	"context"
	"slices"
	"sync"

	"github.com/repairhub/pricing-engine/internal/catalog"
	"github.com/repairhub/pricing-engine/internal/model"
)

// Memory filters its slices the way the SQL stores filter their tables.
// Errors maps a method name to the error it returns; Block makes a
// method wait for context cancellation.
type Memory struct {
	PlatformSeries []model.PlatformSeries
	CustomSeries   []model.CustomSeries
	Services       []model.OfferedService
	TierPrices     []model.TierPriceRow
	Providers      []model.Provider

	Errors map[string]error
	Block  map[string]bool

	mu    sync.Mutex
	calls map[string]int
}

var _ catalog.Reader = (*Memory)(nil)

// Calls returns how often a method was invoked.
func (m *Memory) Calls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

func (m *Memory) enter(ctx context.Context, method string) error {
	m.mu.Lock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[method]++
	m.mu.Unlock()

	if m.Block[method] {
		<-ctx.Done()
		return ctx.Err()
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.Errors[method]
}

func (m *Memory) ListPlatformSeries(ctx context.Context, brand string, deviceType model.DeviceType) ([]model.PlatformSeries, error) {
	if err := m.enter(ctx, "ListPlatformSeries"); err != nil {
		return nil, err
	}
	var out []model.PlatformSeries
	for _, s := range m.PlatformSeries {
		if model.SameName(s.Brand, brand) && s.DeviceType == deviceType {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *Memory) ListCustomSeries(ctx context.Context, f catalog.CustomSeriesFilter) ([]model.CustomSeries, error) {
	if err := m.enter(ctx, "ListCustomSeries"); err != nil {
		return nil, err
	}
	var out []model.CustomSeries
	for _, s := range m.CustomSeries {
		if s.ProviderID != f.ProviderID {
			continue
		}
		if f.DeviceType != "" && s.DeviceType != f.DeviceType {
			continue
		}
		if f.SourcePlatformSeriesID != "" && s.SourcePlatformSeriesID != f.SourcePlatformSeriesID {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (m *Memory) ListOfferedServices(ctx context.Context, f catalog.ServiceFilter) ([]model.OfferedService, error) {
	if err := m.enter(ctx, "ListOfferedServices"); err != nil {
		return nil, err
	}
	var out []model.OfferedService
	for _, s := range m.Services {
		if len(f.ProviderIDs) > 0 && !slices.Contains(f.ProviderIDs, s.ProviderID) {
			continue
		}
		if !slices.Contains(f.Issues, model.IssueKey(s.Issue)) {
			continue
		}
		var ok bool
		switch f.Scope {
		case model.ScopeSeries:
			ok = s.SeriesID == f.SeriesID && s.Model == "" && s.CustomSeriesID == ""
		case model.ScopeCustomSeries:
			ok = slices.Contains(f.CustomSeriesIDs, s.CustomSeriesID) && s.Model == ""
		case model.ScopeModel:
			ok = model.SameName(s.Model, f.Model) && model.SameName(s.Brand, f.Brand) && s.DeviceType == f.DeviceType
		}
		if ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *Memory) tierRows(f catalog.TierPriceFilter) []model.TierPriceRow {
	var out []model.TierPriceRow
	for _, r := range m.TierPrices {
		if len(f.ProviderIDs) > 0 && !slices.Contains(f.ProviderIDs, r.ProviderID) {
			continue
		}
		if r.DeviceType == f.DeviceType && model.SameName(r.Brand, f.Brand) && slices.Contains(f.Issues, model.IssueKey(r.Issue)) {
			out = append(out, r)
		}
	}
	return out
}

func (m *Memory) ListTierPrices(ctx context.Context, f catalog.TierPriceFilter) ([]model.TierPriceRow, error) {
	if err := m.enter(ctx, "ListTierPrices"); err != nil {
		return nil, err
	}
	return m.tierRows(f), nil
}

func (m *Memory) TierPricedProviders(ctx context.Context, f catalog.TierPriceFilter) ([]string, error) {
	if err := m.enter(ctx, "TierPricedProviders"); err != nil {
		return nil, err
	}
	var ids []string
	for _, r := range m.tierRows(f) {
		ids = append(ids, r.ProviderID)
	}
	slices.Sort(ids)
	return slices.Compact(ids), nil
}

func (m *Memory) DiscoverProviders(ctx context.Context, f catalog.DiscoveryFilter) ([]string, error) {
	if err := m.enter(ctx, "DiscoverProviders"); err != nil {
		return nil, err
	}
	customByID := make(map[string]model.CustomSeries, len(m.CustomSeries))
	for _, c := range m.CustomSeries {
		customByID[c.ID] = c
	}

	var ids []string
	for _, s := range m.Services {
		if s.DeviceType != f.DeviceType || !model.SameName(s.Brand, f.Brand) || !slices.Contains(f.Issues, model.IssueKey(s.Issue)) {
			continue
		}
		match := model.SameName(s.Model, f.Model)
		if f.PlatformSeriesID != "" && s.Model == "" && s.CustomSeriesID == "" && s.SeriesID == f.PlatformSeriesID {
			match = true
		}
		if c, ok := customByID[s.CustomSeriesID]; ok && s.Model == "" {
			if f.PlatformSeriesID != "" && c.SourcePlatformSeriesID == f.PlatformSeriesID {
				match = true
			}
			if c.Contains(f.Brand, f.Model) {
				match = true
			}
		}
		if match {
			ids = append(ids, s.ProviderID)
		}
	}
	slices.Sort(ids)
	return slices.Compact(ids), nil
}

func (m *Memory) GetProviders(ctx context.Context, ids []string) ([]model.Provider, error) {
	if err := m.enter(ctx, "GetProviders"); err != nil {
		return nil, err
	}
	var out []model.Provider
	for _, p := range m.Providers {
		if slices.Contains(ids, p.ID) {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b model.Provider) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		default:
			return 0
		}
	})
	return out, nil
}
