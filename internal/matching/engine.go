// Package matching assembles the ranked, priced candidate list for a
// customer query: discovery, directory gates, the geo filter, per-provider
// pricing and totals.
package matching

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/repairhub/pricing-engine/internal/catalog"
	"github.com/repairhub/pricing-engine/internal/classify"
	"github.com/repairhub/pricing-engine/internal/geo"
	"github.com/repairhub/pricing-engine/internal/metrics"
	"github.com/repairhub/pricing-engine/internal/model"
	"github.com/repairhub/pricing-engine/internal/pricing"
)

// ErrInvalidQuery is returned for queries that cannot be answered.
var ErrInvalidQuery = eris.New("matching: invalid query")

// Config tunes the engine.
type Config struct {
	MaxConcurrency  int           `yaml:"max_concurrency" mapstructure:"max_concurrency"`
	QueryTimeout    time.Duration `yaml:"query_timeout" mapstructure:"query_timeout"`
	RadiusKm        float64       `yaml:"radius_km" mapstructure:"radius_km"`
	IncludeTierOnly bool          `yaml:"include_tier_only" mapstructure:"include_tier_only"`
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 8,
		QueryTimeout:   5 * time.Second,
		RadiusKm:       geo.DefaultRadiusKm,
	}
}

// Query is one customer request.
type Query struct {
	Device           model.Device
	Issues           []string
	CustomerLocation *model.Location
	SortKey          geo.SortKey

	// RadiusKm overrides the configured radius when positive.
	RadiusKm float64
}

// Result is the ranked candidate list. Partial is set when the query
// deadline expired before every provider was priced; unpriced providers
// are left out.
type Result struct {
	Candidates       []*model.CandidateProvider `json:"candidates"`
	Tier             model.Tier                 `json:"tier"`
	PlatformSeriesID string                     `json:"platform_series_id,omitempty"`
	Partial          bool                       `json:"partial"`
}

// Engine runs candidate queries. It holds no per-query state and is safe
// for concurrent use.
type Engine struct {
	catalog  catalog.Reader
	resolver *pricing.Resolver
	cfg      Config
}

// NewEngine creates an Engine. Zero config fields take DefaultConfig values.
func NewEngine(cat catalog.Reader, policy *classify.Policy, cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = def.MaxConcurrency
	}
	if cfg.RadiusKm <= 0 {
		cfg.RadiusKm = def.RadiusKm
	}
	return &Engine{catalog: cat, resolver: pricing.NewResolver(cat, policy), cfg: cfg}
}

func validate(q *Query) error {
	d := q.Device
	dt, err := model.ParseDeviceType(string(d.Category))
	if err != nil {
		return eris.Wrap(ErrInvalidQuery, err.Error())
	}
	q.Device.Category = dt
	if strings.TrimSpace(d.Brand) == "" || strings.TrimSpace(d.Model) == "" {
		return eris.Wrap(ErrInvalidQuery, "brand and model are required")
	}
	if len(model.IssueKeys(q.Issues)) == 0 {
		return eris.Wrap(ErrInvalidQuery, "at least one issue is required")
	}
	if q.CustomerLocation != nil && !q.CustomerLocation.Valid() {
		return eris.Wrapf(ErrInvalidQuery, "location %v,%v out of range", q.CustomerLocation.Lat, q.CustomerLocation.Lng)
	}
	if q.RadiusKm < 0 {
		return eris.Wrap(ErrInvalidQuery, "radius must not be negative")
	}
	key, err := geo.ParseSortKey(string(q.SortKey))
	if err != nil {
		return eris.Wrap(ErrInvalidQuery, err.Error())
	}
	q.SortKey = key
	return nil
}

// FindCandidates answers one query. Catalog failures degrade the result
// instead of failing it; errors are ErrInvalidQuery or the caller's own
// context ending.
func (e *Engine) FindCandidates(ctx context.Context, q Query) (*Result, error) {
	if err := validate(&q); err != nil {
		metrics.QueriesTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}
	start := time.Now()
	defer func() {
		metrics.QueryDuration.WithLabelValues(string(q.Device.Category)).Observe(time.Since(start).Seconds())
	}()

	qctx := ctx
	if e.cfg.QueryTimeout > 0 {
		var cancel context.CancelFunc
		qctx, cancel = context.WithTimeout(ctx, e.cfg.QueryTimeout)
		defer cancel()
	}

	res, err := e.run(qctx, q)
	if ctx.Err() != nil {
		return nil, eris.Wrap(ctx.Err(), "matching: find candidates")
	}
	if err != nil {
		// The query deadline expired before any provider was priced.
		res = &Result{Candidates: []*model.CandidateProvider{}, Partial: true}
	}

	outcome := "ok"
	if res.Partial {
		outcome = "partial"
	}
	metrics.QueriesTotal.WithLabelValues(outcome).Inc()
	metrics.CandidatesReturned.Observe(float64(len(res.Candidates)))
	zap.L().Debug("matching: query complete",
		zap.String("brand", q.Device.Brand),
		zap.String("model", q.Device.Model),
		zap.Int("candidates", len(res.Candidates)),
		zap.Bool("partial", res.Partial),
		zap.Duration("elapsed", time.Since(start)),
	)
	return res, nil
}

func (e *Engine) run(ctx context.Context, q Query) (*Result, error) {
	target, err := e.resolver.Prepare(ctx, q.Device, q.Issues)
	if err != nil {
		return nil, err
	}
	res := &Result{Candidates: []*model.CandidateProvider{}, Tier: target.Tier}
	if target.Series != nil {
		res.PlatformSeriesID = target.Series.ID
	}

	ids, err := e.discover(ctx, target)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		metrics.StageErrors.WithLabelValues("discovery").Inc()
		zap.L().Warn("matching: discovery failed", zap.Error(err))
		return res, nil
	}
	if len(ids) == 0 {
		return res, nil
	}

	providers, err := e.catalog.GetProviders(ctx, ids)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		metrics.StageErrors.WithLabelValues("directory").Inc()
		zap.L().Warn("matching: provider directory unavailable", zap.Error(err))
		return res, nil
	}

	radius := e.cfg.RadiusKm
	if q.RadiusKm > 0 {
		radius = q.RadiusKm
	}
	cands := geo.Filter(q.CustomerLocation, gate(ids, providers), radius)

	resolutions := make([]*pricing.Resolution, len(cands))
	var timedOut atomic.Bool
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.MaxConcurrency)
	for i, c := range cands {
		g.Go(func() error {
			r, err := e.resolver.ResolveFor(gctx, target, c.ProviderID)
			if err != nil {
				timedOut.Store(true)
				return nil
			}
			resolutions[i] = r
			return nil
		})
	}
	_ = g.Wait()
	res.Partial = timedOut.Load()

	for i, c := range cands {
		r := resolutions[i]
		if r == nil || !r.Resolved() {
			continue
		}
		price(c, target, r)
		res.Candidates = append(res.Candidates, c)
	}
	geo.Rank(res.Candidates, q.SortKey)
	return res, nil
}

// discover returns provider ids in catalog order, unioned with tier-priced
// providers when enabled.
func (e *Engine) discover(ctx context.Context, t *pricing.Target) ([]string, error) {
	f := catalog.DiscoveryFilter{
		DeviceType: t.Device.Category,
		Brand:      t.Device.Brand,
		Model:      t.Device.Model,
		Issues:     t.IssueKeys(),
	}
	if t.Series != nil {
		f.PlatformSeriesID = t.Series.ID
	}
	ids, err := e.catalog.DiscoverProviders(ctx, f)
	if err != nil {
		return nil, eris.Wrap(err, "matching: discover providers")
	}
	if !e.cfg.IncludeTierOnly {
		return ids, nil
	}

	tierIDs, err := e.catalog.TierPricedProviders(ctx, catalog.TierPriceFilter{
		DeviceType: t.Device.Category,
		Brand:      t.Device.Brand,
		Issues:     t.IssueKeys(),
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		zap.L().Warn("matching: tier-priced discovery failed", zap.Error(err))
		return ids, nil
	}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		seen[id] = true
	}
	for _, id := range tierIDs {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// gate keeps eligible providers in discovery order.
func gate(ids []string, providers []model.Provider) []*model.CandidateProvider {
	byID := make(map[string]model.Provider, len(providers))
	for _, p := range providers {
		byID[p.ID] = p
	}
	out := make([]*model.CandidateProvider, 0, len(ids))
	for _, id := range ids {
		p, ok := byID[id]
		if !ok || !p.Eligible() {
			continue
		}
		out = append(out, &model.CandidateProvider{
			ProviderID:      p.ID,
			Name:            p.Name,
			Rating:          p.Rating,
			YearsExperience: p.YearsExperience,
			Verified:        p.Verified,
			Location:        p.Location,
			Availability:    p.Availability,
		})
	}
	return out
}

// price attaches prices, the per-issue breakdown and totals. Each issue
// counts toward the total at its cheapest part type.
func price(c *model.CandidateProvider, t *pricing.Target, r *pricing.Resolution) {
	c.Prices = r.Prices
	c.NotOffered = r.Unresolved

	keys := t.IssueKeys()
	var total decimal.Decimal
	var starting *decimal.Decimal
	for i, name := range t.IssueNames() {
		key := keys[i]
		b := model.IssueBreakdown{Issue: name}
		var cheapest *decimal.Decimal
		for _, p := range r.Prices {
			if model.IssueKey(p.Issue) != key {
				continue
			}
			b.Prices = append(b.Prices, p)
			if cheapest == nil || p.Price.LessThan(*cheapest) {
				v := p.Price
				cheapest = &v
			}
		}
		b.Offered = cheapest != nil
		c.Breakdown = append(c.Breakdown, b)
		if cheapest == nil {
			continue
		}
		total = total.Add(*cheapest)
		if starting == nil || cheapest.LessThan(*starting) {
			starting = cheapest
		}
	}
	c.TotalEstimate = total
	if starting != nil {
		c.StartingPrice = *starting
	}
}
