package main

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/repairhub/pricing-engine/internal/geo"
	"github.com/repairhub/pricing-engine/internal/matching"
	"github.com/repairhub/pricing-engine/internal/model"
)

type candidateOptions struct {
	category    string
	brand       string
	model       string
	issues      []string
	lat, lng    float64
	sort        string
	radius      float64
	marketPrice string
	segment     string
}

var candidatesFlags candidateOptions

var candidatesCmd = &cobra.Command{
	Use:   "candidates",
	Short: "Find priced providers for a device and print them as JSON",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("query"); err != nil {
			return err
		}
		q, err := candidatesQuery(cmd)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		engine, st, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		res, err := engine.FindCandidates(ctx, q)
		if err != nil {
			return eris.Wrap(err, "find candidates")
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	},
}

func candidatesQuery(cmd *cobra.Command) (matching.Query, error) {
	f := candidatesFlags
	q := matching.Query{
		Device: model.Device{
			Category: model.DeviceType(f.category),
			Brand:    f.brand,
			Model:    f.model,
			Segment:  f.segment,
		},
		Issues:   f.issues,
		SortKey:  geo.SortKey(f.sort),
		RadiusKm: f.radius,
	}
	if f.marketPrice != "" {
		p, err := decimal.NewFromString(f.marketPrice)
		if err != nil {
			return q, eris.Errorf("invalid --market-price %q", f.marketPrice)
		}
		q.Device.MarketPrice = &p
	}

	latSet, lngSet := cmd.Flags().Changed("lat"), cmd.Flags().Changed("lng")
	if latSet != lngSet {
		return q, eris.New("--lat and --lng must be given together")
	}
	if latSet {
		q.CustomerLocation = &model.Location{Lat: f.lat, Lng: f.lng}
	}
	return q, nil
}

func init() {
	fl := candidatesCmd.Flags()
	fl.StringVar(&candidatesFlags.category, "category", "", "device category: phone or laptop (required)")
	fl.StringVar(&candidatesFlags.brand, "brand", "", "device brand (required)")
	fl.StringVar(&candidatesFlags.model, "model", "", "device model (required)")
	fl.StringSliceVar(&candidatesFlags.issues, "issue", nil, "issue name, repeatable (required)")
	fl.Float64Var(&candidatesFlags.lat, "lat", 0, "customer latitude")
	fl.Float64Var(&candidatesFlags.lng, "lng", 0, "customer longitude")
	fl.StringVar(&candidatesFlags.sort, "sort", "distance", "sort key: distance or experience")
	fl.Float64Var(&candidatesFlags.radius, "radius", 0, "search radius in km (default from config)")
	fl.StringVar(&candidatesFlags.marketPrice, "market-price", "", "device market price")
	fl.StringVar(&candidatesFlags.segment, "segment", "", "laptop segment: gaming, business or student")
	for _, name := range []string{"category", "brand", "model", "issue"} {
		_ = candidatesCmd.MarkFlagRequired(name)
	}
	rootCmd.AddCommand(candidatesCmd)
}
