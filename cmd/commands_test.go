package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/repairhub/pricing-engine/internal/catalog"
	"github.com/repairhub/pricing-engine/internal/config"
	"github.com/repairhub/pricing-engine/internal/matching"
	"github.com/repairhub/pricing-engine/internal/model"
)

func sqliteConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pricing.db")
	m := matching.DefaultConfig()
	m.IncludeTierOnly = true
	cfg = &config.Config{
		Store:    config.StoreConfig{Driver: "sqlite", DatabaseURL: path},
		Matching: m,
	}
	return path
}

func runMigrate(t *testing.T) {
	t.Helper()
	migrateCmd.SetContext(context.Background())
	require.NoError(t, migrateCmd.RunE(migrateCmd, nil))
}

func insertProvider(t *testing.T, path, id string) {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()
	_, err = db.Exec(`INSERT INTO providers (id, name, years_experience, approved, verified, onboarding_completed)
		VALUES (?, ?, 4, 1, 1, 1)`, id, "Provider "+id)
	require.NoError(t, err)
}

func writeTierSheet(t *testing.T, rows [][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Tiers")
	require.NoError(t, err)
	for _, rowData := range rows {
		row := sheet.AddRow()
		for _, cellData := range rowData {
			row.AddCell().SetString(cellData)
		}
	}
	path := filepath.Join(t.TempDir(), "tiers.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func TestMigrateCmd_SQLite(t *testing.T) {
	path := sqliteConfig(t)
	runMigrate(t)
	// Idempotent.
	runMigrate(t)

	st, err := catalog.NewSQLite(path)
	require.NoError(t, err)
	defer st.Close()
	require.NoError(t, st.Ping(context.Background()))
}

func TestMigrateCmd_UnsupportedDriver(t *testing.T) {
	cfg = &config.Config{Store: config.StoreConfig{Driver: "mysql", DatabaseURL: "x"}}
	migrateCmd.SetContext(context.Background())

	err := migrateCmd.RunE(migrateCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver")
}

func TestImportTiersCmd_MissingProvider(t *testing.T) {
	sqliteConfig(t)
	importProviderID = ""

	err := importTiersCmd.RunE(importTiersCmd, []string{"tiers.xlsx"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider id is required")
}

func TestImportTiersThenCandidates(t *testing.T) {
	path := sqliteConfig(t)
	runMigrate(t)
	insertProvider(t, path, "p1")

	sheet := writeTierSheet(t, [][]string{
		{"device_type", "brand", "issue", "basic", "standard", "premium"},
		{"phone", "Apple", "Screen Replacement", "4000", "4000", "4000"},
	})
	importProviderID = "p1"
	t.Cleanup(func() { importProviderID = "" })
	importTiersCmd.SetContext(context.Background())
	require.NoError(t, importTiersCmd.RunE(importTiersCmd, []string{sheet}))

	st, err := catalog.NewSQLite(path)
	require.NoError(t, err)
	rows, err := st.ListTierPrices(context.Background(), catalog.TierPriceFilter{
		DeviceType: model.DeviceTypePhone, Brand: "apple", Issues: []string{"screen replacement"},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.NoError(t, st.Close())

	candidatesFlags.category = "phone"
	candidatesFlags.brand = "Apple"
	candidatesFlags.model = "iPhone 13"
	candidatesFlags.issues = []string{"Screen Replacement"}
	candidatesFlags.sort = "distance"
	t.Cleanup(func() { candidatesFlags = candidateOptions{} })

	var out bytes.Buffer
	candidatesCmd.SetOut(&out)
	candidatesCmd.SetContext(context.Background())
	require.NoError(t, candidatesCmd.RunE(candidatesCmd, nil))

	var res matching.Result
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	require.Len(t, res.Candidates, 1)
	assert.Equal(t, "p1", res.Candidates[0].ProviderID)
	assert.Equal(t, model.PricingTier, res.Candidates[0].Prices[0].PricingType)
	assert.Equal(t, "4000", res.Candidates[0].TotalEstimate.String())
}

func TestCandidatesQuery_LatWithoutLng(t *testing.T) {
	require.NoError(t, candidatesCmd.Flags().Set("lat", "12.9"))
	t.Cleanup(func() {
		candidatesCmd.Flags().Lookup("lat").Changed = false
		candidatesFlags.lat = 0
	})

	_, err := candidatesQuery(candidatesCmd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--lat and --lng")
}

func TestCandidatesQuery_BadMarketPrice(t *testing.T) {
	candidatesFlags.marketPrice = "lots"
	t.Cleanup(func() { candidatesFlags.marketPrice = "" })

	_, err := candidatesQuery(candidatesCmd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --market-price")
}
