package catalog

import (
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/repairhub/pricing-engine/internal/model"
)

func createTierSheet(t *testing.T, rows [][]string) string {
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

func TestImportTierSheet(t *testing.T) {
	path := createTierSheet(t, [][]string{
		{"Brand", "Device_Type", "Issue", "Basic", "Standard", "Premium"},
		{"Apple", "phone", "Screen Replacement", "$80", "1,100.50", "160"},
		{"", "", "", "", "", ""},
		{"Dell", "Laptop", "Battery", "45", "", "90"},
	})

	rows, err := ImportTierSheet(path, "p1")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "p1", rows[0].ProviderID)
	assert.Equal(t, model.DeviceTypePhone, rows[0].DeviceType)
	assert.Equal(t, "Screen Replacement", rows[0].Issue)
	assert.True(t, rows[0].Basic.Equal(decimal.NewFromInt(80)))
	assert.True(t, rows[0].Standard.Equal(decimal.RequireFromString("1100.50")))

	assert.Equal(t, model.DeviceTypeLaptop, rows[1].DeviceType)
	assert.True(t, rows[1].Standard.IsZero())
}

func TestImportTierSheet_Errors(t *testing.T) {
	tests := []struct {
		name string
		rows [][]string
		want string
	}{
		{
			name: "missing column",
			rows: [][]string{{"brand", "device_type", "issue", "basic", "standard"}},
			want: `missing column "premium"`,
		},
		{
			name: "unknown device type",
			rows: [][]string{
				{"brand", "device_type", "issue", "basic", "standard", "premium"},
				{"Apple", "tablet", "Battery", "1", "2", "3"},
			},
			want: "row 2",
		},
		{
			name: "bad price",
			rows: [][]string{
				{"brand", "device_type", "issue", "basic", "standard", "premium"},
				{"Apple", "phone", "Battery", "cheap", "2", "3"},
			},
			want: "column basic",
		},
		{
			name: "negative price",
			rows: [][]string{
				{"brand", "device_type", "issue", "basic", "standard", "premium"},
				{"Apple", "phone", "Battery", "1", "-2", "3"},
			},
			want: "negative price",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ImportTierSheet(createTierSheet(t, tt.rows), "p1")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestImportTierSheet_RequiresProvider(t *testing.T) {
	_, err := ImportTierSheet("unused.xlsx", " ")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider id is required")
}
