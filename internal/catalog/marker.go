package catalog

import (
	"encoding/json"
	"strings"

	"go.uber.org/zap"
)

// legacyMarkerPrefix starts a description written by older management
// screens to flag a platform customization, followed by a JSON object.
const legacyMarkerPrefix = "__platform_series__:"

type legacyMarker struct {
	PlatformSeriesID string `json:"platformSeriesId"`
}

// sourcePlatformSeries returns the typed column when set, otherwise the
// id carried by a legacy description marker. A malformed marker counts
// as absent.
func sourcePlatformSeries(column, description, seriesID string) string {
	if column != "" {
		return column
	}
	rest, ok := strings.CutPrefix(strings.TrimSpace(description), legacyMarkerPrefix)
	if !ok {
		return ""
	}
	var m legacyMarker
	if err := json.Unmarshal([]byte(strings.TrimSpace(rest)), &m); err != nil {
		zap.L().Debug("catalog: ignoring malformed platform marker",
			zap.String("custom_series_id", seriesID),
			zap.Error(err),
		)
		return ""
	}
	return strings.TrimSpace(m.PlatformSeriesID)
}
