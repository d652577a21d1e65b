package catalog

import (
	"context"
	"encoding/json"
	"slices"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/repairhub/pricing-engine/internal/model"
)

// sqlReader implements Reader over either dialect.
type sqlReader struct {
	q querier
	d dialect
}

func (r *sqlReader) ListPlatformSeries(ctx context.Context, brand string, deviceType model.DeviceType) ([]model.PlatformSeries, error) {
	w := newWhere(r.d).
		add("lower(brand) = ?", model.IssueKey(brand)).
		add("device_type = ?", string(deviceType))

	query := "SELECT id, name, brand, device_type, " + r.d.jsonText("models") + ", " +
		r.d.jsonText("base_prices") + " FROM platform_series" + w.sql() + " ORDER BY id"

	rs, err := r.q.query(ctx, query, w.args...)
	if err != nil {
		return nil, eris.Wrapf(err, "%s: list platform series", r.d.name)
	}
	defer rs.Close()

	var out []model.PlatformSeries
	for rs.Next() {
		var (
			s                     model.PlatformSeries
			dt, modelsJSON, bases string
		)
		if err := rs.Scan(&s.ID, &s.Name, &s.Brand, &dt, &modelsJSON, &bases); err != nil {
			return nil, eris.Wrapf(err, "%s: scan platform series", r.d.name)
		}
		s.DeviceType = model.DeviceType(dt)
		if err := unmarshalJSON(modelsJSON, &s.Models); err != nil {
			r.skipRow("platform series", s.ID, "models", err)
			continue
		}
		if err := unmarshalJSON(bases, &s.BasePrices); err != nil {
			r.skipRow("platform series", s.ID, "base_prices", err)
			continue
		}
		out = append(out, s)
	}
	return out, eris.Wrapf(rs.Err(), "%s: iterate platform series", r.d.name)
}

func (r *sqlReader) ListCustomSeries(ctx context.Context, f CustomSeriesFilter) ([]model.CustomSeries, error) {
	w := newWhere(r.d).add("provider_id = ?", f.ProviderID)
	if f.DeviceType != "" {
		w.add("device_type = ?", string(f.DeviceType))
	}

	query := "SELECT id, provider_id, name, device_type, brand, " + r.d.jsonText("models") +
		", COALESCE(description, ''), COALESCE(source_platform_series_id, '') FROM custom_series" + w.sql() + " ORDER BY id"

	rs, err := r.q.query(ctx, query, w.args...)
	if err != nil {
		return nil, eris.Wrapf(err, "%s: list custom series", r.d.name)
	}
	defer rs.Close()

	var out []model.CustomSeries
	for rs.Next() {
		var (
			s                   model.CustomSeries
			dt, modelsJSON      string
			description, source string
		)
		if err := rs.Scan(&s.ID, &s.ProviderID, &s.Name, &dt, &s.Brand, &modelsJSON, &description, &source); err != nil {
			return nil, eris.Wrapf(err, "%s: scan custom series", r.d.name)
		}
		s.DeviceType = model.DeviceType(dt)
		if !r.decodeCustomSeries(&s, modelsJSON, description, source) {
			continue
		}

		if f.SourcePlatformSeriesID != "" && s.SourcePlatformSeriesID != f.SourcePlatformSeriesID {
			continue
		}
		out = append(out, s)
	}
	return out, eris.Wrapf(rs.Err(), "%s: iterate custom series", r.d.name)
}

func (r *sqlReader) ListOfferedServices(ctx context.Context, f ServiceFilter) ([]model.OfferedService, error) {
	if err := validateServiceFilter(f); err != nil {
		return nil, err
	}

	w := newWhere(r.d)
	if len(f.ProviderIDs) > 0 {
		w.in("provider_id", f.ProviderIDs)
	}
	w.in("lower(trim(issue))", f.Issues)

	switch f.Scope {
	case model.ScopeSeries:
		w.add("series_id = ?", f.SeriesID).
			add("(model IS NULL OR model = '')").
			add("(custom_series_id IS NULL OR custom_series_id = '')")
	case model.ScopeCustomSeries:
		w.in("custom_series_id", f.CustomSeriesIDs).
			add("(model IS NULL OR model = '')")
	case model.ScopeModel:
		w.add("lower(trim(model)) = ?", model.IssueKey(f.Model)).
			add("lower(brand) = ?", model.IssueKey(f.Brand)).
			add("device_type = ?", string(f.DeviceType))
	}

	query := "SELECT id, provider_id, device_type, brand, COALESCE(series_id, ''), COALESCE(custom_series_id, ''), " +
		"COALESCE(model, ''), issue, COALESCE(part_type, ''), " + r.d.money("price") + ", COALESCE(warranty, '') " +
		"FROM offered_services" + w.sql() + " ORDER BY provider_id, id"

	rs, err := r.q.query(ctx, query, w.args...)
	if err != nil {
		return nil, eris.Wrapf(err, "%s: list offered services", r.d.name)
	}
	defer rs.Close()

	var out []model.OfferedService
	for rs.Next() {
		var (
			s           model.OfferedService
			dt, pt, prc string
		)
		if err := rs.Scan(&s.ID, &s.ProviderID, &dt, &s.Brand, &s.SeriesID, &s.CustomSeriesID,
			&s.Model, &s.Issue, &pt, &prc, &s.Warranty); err != nil {
			return nil, eris.Wrapf(err, "%s: scan offered service", r.d.name)
		}
		s.DeviceType = model.DeviceType(dt)
		s.PartType = model.ParsePartType(pt)
		if s.Price, err = decimal.NewFromString(prc); err != nil {
			return nil, eris.Wrapf(err, "%s: offered service %s price", r.d.name, s.ID)
		}
		out = append(out, s)
	}
	return out, eris.Wrapf(rs.Err(), "%s: iterate offered services", r.d.name)
}

func (r *sqlReader) tierWhere(f TierPriceFilter) *where {
	w := newWhere(r.d)
	if len(f.ProviderIDs) > 0 {
		w.in("provider_id", f.ProviderIDs)
	}
	return w.add("device_type = ?", string(f.DeviceType)).
		add("lower(brand) = ?", model.IssueKey(f.Brand)).
		in("lower(trim(issue))", f.Issues)
}

func (r *sqlReader) ListTierPrices(ctx context.Context, f TierPriceFilter) ([]model.TierPriceRow, error) {
	w := r.tierWhere(f)
	query := "SELECT id, provider_id, device_type, brand, issue, " + r.d.money("basic") + ", " +
		r.d.money("standard") + ", " + r.d.money("premium") + " FROM tier_prices" + w.sql() +
		" ORDER BY provider_id, id"

	rs, err := r.q.query(ctx, query, w.args...)
	if err != nil {
		return nil, eris.Wrapf(err, "%s: list tier prices", r.d.name)
	}
	defer rs.Close()

	var out []model.TierPriceRow
	for rs.Next() {
		var (
			row                     model.TierPriceRow
			dt, basic, std, premium string
		)
		if err := rs.Scan(&row.ID, &row.ProviderID, &dt, &row.Brand, &row.Issue, &basic, &std, &premium); err != nil {
			return nil, eris.Wrapf(err, "%s: scan tier price", r.d.name)
		}
		row.DeviceType = model.DeviceType(dt)
		for _, p := range []struct {
			dst *decimal.Decimal
			raw string
		}{{&row.Basic, basic}, {&row.Standard, std}, {&row.Premium, premium}} {
			if *p.dst, err = decimal.NewFromString(p.raw); err != nil {
				return nil, eris.Wrapf(err, "%s: tier price %s", r.d.name, row.ID)
			}
		}
		out = append(out, row)
	}
	return out, eris.Wrapf(rs.Err(), "%s: iterate tier prices", r.d.name)
}

func (r *sqlReader) TierPricedProviders(ctx context.Context, f TierPriceFilter) ([]string, error) {
	w := r.tierWhere(f)
	return r.queryIDs(ctx, "SELECT DISTINCT provider_id FROM tier_prices"+w.sql()+" ORDER BY provider_id", w.args, "tier priced providers")
}

func (r *sqlReader) DiscoverProviders(ctx context.Context, f DiscoveryFilter) ([]string, error) {
	// Rows priced for the model itself or for its platform series.
	direct := "lower(trim(s.model)) = ?"
	args := []any{model.IssueKey(f.Model)}
	if f.PlatformSeriesID != "" {
		direct = "(" + direct + " OR ((s.model IS NULL OR s.model = '') AND " +
			"(s.custom_series_id IS NULL OR s.custom_series_id = '') AND s.series_id = ?))"
		args = append(args, f.PlatformSeriesID)
	}
	w := r.discoveryWhere(f).add(direct, args...)
	ids, err := r.queryIDs(ctx, "SELECT DISTINCT s.provider_id FROM offered_services s"+w.sql(), w.args, "discover providers")
	if err != nil {
		return nil, err
	}

	custom, err := r.discoverCustomSeries(ctx, f)
	if err != nil {
		return nil, err
	}
	ids = append(ids, custom...)
	slices.Sort(ids)
	return slices.Compact(ids), nil
}

// discoverCustomSeries returns providers with a custom series row for the
// issues whose series lists the model or customizes the platform series.
// Membership is decided in Go so legacy markers and brand:model entries
// parse the same way they do when the series are priced.
func (r *sqlReader) discoverCustomSeries(ctx context.Context, f DiscoveryFilter) ([]string, error) {
	w := r.discoveryWhere(f).add("(s.model IS NULL OR s.model = '')")
	query := "SELECT DISTINCT s.provider_id, c.id, c.brand, " + r.d.jsonText("c.models") +
		", COALESCE(c.description, ''), COALESCE(c.source_platform_series_id, '') FROM offered_services s " +
		"JOIN custom_series c ON c.id = s.custom_series_id" + w.sql()

	rs, err := r.q.query(ctx, query, w.args...)
	if err != nil {
		return nil, eris.Wrapf(err, "%s: discover custom series providers", r.d.name)
	}
	defer rs.Close()

	var ids []string
	for rs.Next() {
		var (
			s                   model.CustomSeries
			modelsJSON          string
			description, source string
		)
		if err := rs.Scan(&s.ProviderID, &s.ID, &s.Brand, &modelsJSON, &description, &source); err != nil {
			return nil, eris.Wrapf(err, "%s: scan custom series provider", r.d.name)
		}
		if !r.decodeCustomSeries(&s, modelsJSON, description, source) {
			continue
		}
		customizes := f.PlatformSeriesID != "" && s.SourcePlatformSeriesID == f.PlatformSeriesID
		if customizes || s.Contains(f.Brand, f.Model) {
			ids = append(ids, s.ProviderID)
		}
	}
	return ids, eris.Wrapf(rs.Err(), "%s: iterate custom series providers", r.d.name)
}

func (r *sqlReader) discoveryWhere(f DiscoveryFilter) *where {
	return newWhere(r.d).
		add("s.device_type = ?", string(f.DeviceType)).
		add("lower(s.brand) = ?", model.IssueKey(f.Brand)).
		in("lower(trim(s.issue))", f.Issues)
}

func (r *sqlReader) queryIDs(ctx context.Context, query string, args []any, what string) ([]string, error) {
	rs, err := r.q.query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "%s: %s", r.d.name, what)
	}
	defer rs.Close()

	var ids []string
	for rs.Next() {
		var id string
		if err := rs.Scan(&id); err != nil {
			return nil, eris.Wrapf(err, "%s: scan %s", r.d.name, what)
		}
		ids = append(ids, id)
	}
	return ids, eris.Wrapf(rs.Err(), "%s: iterate %s", r.d.name, what)
}

func (r *sqlReader) GetProviders(ctx context.Context, ids []string) ([]model.Provider, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	w := newWhere(r.d).in("id", ids)
	query := "SELECT id, name, rating, years_experience, approved, verified, onboarding_completed, " +
		r.d.location + ", COALESCE(" + r.d.jsonText("availability") + ", '') FROM providers" + w.sql() + " ORDER BY id"

	rs, err := r.q.query(ctx, query, w.args...)
	if err != nil {
		return nil, eris.Wrapf(err, "%s: get providers", r.d.name)
	}
	defer rs.Close()

	var out []model.Provider
	for rs.Next() {
		var (
			p        model.Provider
			loc      []byte
			schedule string
		)
		if err := rs.Scan(&p.ID, &p.Name, &p.Rating, &p.YearsExperience, &p.Approved, &p.Verified,
			&p.OnboardingCompleted, &loc, &schedule); err != nil {
			return nil, eris.Wrapf(err, "%s: scan provider", r.d.name)
		}
		if p.Location, err = decodeLocation(loc); err != nil {
			r.dropField("provider", p.ID, "location", err)
			p.Location = nil
		}
		if err := unmarshalJSON(schedule, &p.Availability); err != nil {
			r.dropField("provider", p.ID, "availability", err)
			p.Availability = nil
		}
		out = append(out, p)
	}
	return out, eris.Wrapf(rs.Err(), "%s: iterate providers", r.d.name)
}

// decodeCustomSeries fills the parsed fields of s. It reports false when
// the stored models are malformed and the row should be skipped.
func (r *sqlReader) decodeCustomSeries(s *model.CustomSeries, modelsJSON, description, source string) bool {
	var raw []string
	if err := unmarshalJSON(modelsJSON, &raw); err != nil {
		r.skipRow("custom series", s.ID, "models", err)
		return false
	}
	s.Models = model.ParseModelRefs(raw)
	s.SourcePlatformSeriesID = sourcePlatformSeries(source, description, s.ID)
	return true
}

func (r *sqlReader) skipRow(table, id, column string, err error) {
	zap.L().Warn("catalog: skipping row with malformed "+column,
		zap.String("dialect", r.d.name),
		zap.String("table", table),
		zap.String("id", id),
		zap.Error(err),
	)
}

func (r *sqlReader) dropField(table, id, column string, err error) {
	zap.L().Warn("catalog: ignoring malformed "+column,
		zap.String("dialect", r.d.name),
		zap.String("table", table),
		zap.String("id", id),
		zap.Error(err),
	)
}

// unmarshalJSON treats an empty column as an absent value.
func unmarshalJSON(raw string, dst any) error {
	if strings.TrimSpace(raw) == "" || raw == "null" {
		return nil
	}
	return json.Unmarshal([]byte(raw), dst)
}
