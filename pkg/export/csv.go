// Package export renders the point table, with its derived columns, into
// interchange formats. Missing samples stay missing: empty CSV cells, NaN
// doubles in Parquet.
package export

import (
	"encoding/csv"
	"io"
	"math"
	"strconv"

	"github.com/coursescope/server/pkg/domain/analysis"
	"github.com/coursescope/server/pkg/domain/telemetry"
)

var csvHeader = []string{
	"elapsed_s", "distance_m", "speed_mps", "pace_s_per_km",
	"elevation_m", "heart_rate_bpm", "cadence_spm", "power_w",
	"lat", "lon", "grade_pct", "gap_s_per_km", "moving",
}

// WritePointsCSV streams the table as CSV, one row per point. Channels the
// activity never recorded produce empty cells; derived may be nil when the
// analysis has not run.
func WritePointsCSV(w io.Writer, tbl *telemetry.Table, derived *analysis.DerivedSeries) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	row := make([]string, len(csvHeader))
	for i := 0; i < tbl.Len(); i++ {
		row[0] = cell(tbl.Time[i])
		row[1] = cell(tbl.Distance[i])
		row[2] = cell(tbl.Speed[i])
		row[3] = cell(tbl.Pace[i])
		row[4] = channelCell(tbl.Elevation, i)
		row[5] = channelCell(tbl.HeartRate, i)
		row[6] = channelCell(tbl.Cadence, i)
		row[7] = channelCell(tbl.Power, i)
		row[8] = channelCell(tbl.Lat, i)
		row[9] = channelCell(tbl.Lon, i)
		if derived != nil {
			row[10] = channelCell(derived.Grade, i)
			row[11] = channelCell(derived.GAP, i)
			row[12] = strconv.FormatBool(derived.Moving[i])
		} else {
			row[10], row[11], row[12] = "", "", ""
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func cell(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func channelCell(col []float64, i int) string {
	if col == nil {
		return ""
	}
	return cell(col[i])
}
