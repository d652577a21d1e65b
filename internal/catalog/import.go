package catalog

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx/v2"

	"github.com/repairhub/pricing-engine/internal/model"
)

// tierSheetColumns are the required header cells of a tier sheet, in any order.
var tierSheetColumns = []string{"device_type", "brand", "issue", "basic", "standard", "premium"}

// ImportTierSheet reads the first sheet of an xlsx workbook into tier rows
// for one provider. Blank rows are skipped; a blank price cell reads as 0,
// which the resolver treats as no price.
func ImportTierSheet(path, providerID string) ([]model.TierPriceRow, error) {
	if strings.TrimSpace(providerID) == "" {
		return nil, eris.New("import: provider id is required")
	}
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "import: open workbook")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("import: workbook has no sheets")
	}
	sheet := f.Sheets[0]
	if len(sheet.Rows) == 0 {
		return nil, eris.New("import: sheet is empty")
	}

	cols, err := headerIndex(rowToStrings(sheet.Rows[0]))
	if err != nil {
		return nil, err
	}

	var out []model.TierPriceRow
	for i, row := range sheet.Rows[1:] {
		cells := rowToStrings(row)
		get := func(name string) string {
			if idx := cols[name]; idx < len(cells) {
				return strings.TrimSpace(cells[idx])
			}
			return ""
		}
		if get("issue") == "" && get("brand") == "" {
			continue
		}

		line := i + 2
		dt, err := model.ParseDeviceType(get("device_type"))
		if err != nil {
			return nil, eris.Wrapf(err, "import: row %d", line)
		}
		r := model.TierPriceRow{
			ProviderID: providerID,
			DeviceType: dt,
			Brand:      get("brand"),
			Issue:      get("issue"),
		}
		if r.Brand == "" || r.Issue == "" {
			return nil, eris.Errorf("import: row %d: brand and issue are required", line)
		}
		for _, p := range []struct {
			col string
			dst *decimal.Decimal
		}{{"basic", &r.Basic}, {"standard", &r.Standard}, {"premium", &r.Premium}} {
			if *p.dst, err = parseMoney(get(p.col)); err != nil {
				return nil, eris.Wrapf(err, "import: row %d column %s", line, p.col)
			}
		}
		out = append(out, r)
	}
	return out, nil
}

func headerIndex(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, c := range tierSheetColumns {
		if _, ok := idx[c]; !ok {
			return nil, eris.Errorf("import: missing column %q", c)
		}
	}
	return idx, nil
}

func parseMoney(s string) (decimal.Decimal, error) {
	s = strings.TrimPrefix(strings.ReplaceAll(s, ",", ""), "$")
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, err
	}
	if d.IsNegative() {
		return decimal.Zero, eris.Errorf("negative price %s", s)
	}
	return d, nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}
