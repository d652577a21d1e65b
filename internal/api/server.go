// Package api exposes candidate queries over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/repairhub/pricing-engine/internal/geo"
	"github.com/repairhub/pricing-engine/internal/matching"
	"github.com/repairhub/pricing-engine/internal/model"
)

// Finder answers candidate queries.
type Finder interface {
	FindCandidates(ctx context.Context, q matching.Query) (*matching.Result, error)
}

// Pinger reports store health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configure the router.
type Options struct {
	RateLimit   float64
	Burst       int
	CORSOrigins []string
}

// NewRouter builds the HTTP handler. A nil pinger reports healthy.
func NewRouter(finder Finder, pinger Pinger, opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", healthHandler(pinger))
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		if opts.RateLimit > 0 {
			r.Use(rateLimit(rate.NewLimiter(rate.Limit(opts.RateLimit), max(opts.Burst, 1))))
		}
		r.Get("/candidates", candidatesHandler(finder))
	})
	return r
}

func rateLimit(l *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow() {
				w.Header().Set("Retry-After", "1")
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func healthHandler(pinger Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if pinger != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := pinger.Ping(ctx); err != nil {
				zap.L().Warn("api: health check failed", zap.Error(err))
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func candidatesHandler(finder Finder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := parseQuery(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		res, err := finder.FindCandidates(r.Context(), q)
		switch {
		case errors.Is(err, matching.ErrInvalidQuery):
			writeError(w, http.StatusBadRequest, err.Error())
			return
		case err != nil:
			zap.L().Error("api: candidate query failed", zap.Error(err))
			writeError(w, http.StatusServiceUnavailable, "query could not be completed")
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// parseQuery reads a candidate query from URL parameters. Issues may be
// repeated or comma separated.
func parseQuery(r *http.Request) (matching.Query, error) {
	v := r.URL.Query()
	q := matching.Query{
		Device: model.Device{
			Category:         model.DeviceType(v.Get("category")),
			Brand:            v.Get("brand"),
			Model:            v.Get("model"),
			Segment:          v.Get("segment"),
			PlatformSeriesID: v.Get("platform_series_id"),
		},
		SortKey: geo.SortKey(v.Get("sort")),
	}
	for _, raw := range v["issue"] {
		for _, is := range strings.Split(raw, ",") {
			if is = strings.TrimSpace(is); is != "" {
				q.Issues = append(q.Issues, is)
			}
		}
	}

	if s := v.Get("market_price"); s != "" {
		p, err := decimal.NewFromString(s)
		if err != nil {
			return q, eris.Errorf("api: invalid market_price %q", s)
		}
		q.Device.MarketPrice = &p
	}

	lat, lng := v.Get("lat"), v.Get("lng")
	switch {
	case lat == "" && lng == "":
	case lat == "" || lng == "":
		return q, eris.New("api: lat and lng must be given together")
	default:
		la, err := strconv.ParseFloat(lat, 64)
		if err != nil {
			return q, eris.Errorf("api: invalid lat %q", lat)
		}
		ln, err := strconv.ParseFloat(lng, 64)
		if err != nil {
			return q, eris.Errorf("api: invalid lng %q", lng)
		}
		q.CustomerLocation = &model.Location{Lat: la, Lng: ln}
	}

	if s := v.Get("radius"); s != "" {
		radius, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return q, eris.Errorf("api: invalid radius %q", s)
		}
		q.RadiusKm = radius
	}
	return q, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("api: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
