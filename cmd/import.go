package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/repairhub/pricing-engine/internal/catalog"
)

var importProviderID string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import catalog data from spreadsheets",
}

var importTiersCmd = &cobra.Command{
	Use:   "tiers <file.xlsx>",
	Short: "Import a provider's tier price sheet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if importProviderID == "" {
			return eris.New("provider id is required (--provider)")
		}
		if err := cfg.Validate("import"); err != nil {
			return err
		}
		ctx := cmd.Context()

		rows, err := catalog.ImportTierSheet(args[0], importProviderID)
		if err != nil {
			return eris.Wrap(err, "read tier sheet")
		}

		st, err := initStore(ctx)
		if err != nil {
			return eris.Wrap(err, "init store")
		}
		defer st.Close() //nolint:errcheck

		n, err := st.UpsertTierPrices(ctx, rows)
		if err != nil {
			return eris.Wrap(err, "upsert tier prices")
		}

		zap.L().Info("import complete",
			zap.String("provider_id", importProviderID),
			zap.Int("rows", len(rows)),
			zap.Int64("affected", n),
			zap.String("file", args[0]),
		)
		return nil
	},
}

func init() {
	importTiersCmd.Flags().StringVar(&importProviderID, "provider", "", "provider id the sheet belongs to (required)")
	_ = importTiersCmd.MarkFlagRequired("provider")
	importCmd.AddCommand(importTiersCmd)
	rootCmd.AddCommand(importCmd)
}
