package export

import (
	"math"

	parquetbuffer "github.com/xitongsys/parquet-go-source/buffer"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/coursescope/server/pkg/domain/analysis"
	"github.com/coursescope/server/pkg/domain/telemetry"
)

type pointParquetRow struct {
	ElapsedS    float64 `parquet:"name=elapsed_s, type=DOUBLE"`
	DistanceM   float64 `parquet:"name=distance_m, type=DOUBLE"`
	SpeedMPS    float64 `parquet:"name=speed_mps, type=DOUBLE"`
	PaceSPerKM  float64 `parquet:"name=pace_s_per_km, type=DOUBLE"`
	ElevationM  float64 `parquet:"name=elevation_m, type=DOUBLE"`
	HRBPM       float64 `parquet:"name=heart_rate_bpm, type=DOUBLE"`
	CadenceSPM  float64 `parquet:"name=cadence_spm, type=DOUBLE"`
	PowerW      float64 `parquet:"name=power_w, type=DOUBLE"`
	Lat         float64 `parquet:"name=lat, type=DOUBLE"`
	Lon         float64 `parquet:"name=lon, type=DOUBLE"`
	GradePct    float64 `parquet:"name=grade_pct, type=DOUBLE"`
	GAPSPerKM   float64 `parquet:"name=gap_s_per_km, type=DOUBLE"`
	Moving      bool    `parquet:"name=moving, type=BOOLEAN"`
}

// MarshalPointsParquet renders the table as a SNAPPY-compressed Parquet
// blob. Missing samples stay NaN; without derived columns every point
// counts as moving and grade/GAP are NaN.
func MarshalPointsParquet(tbl *telemetry.Table, derived *analysis.DerivedSeries) ([]byte, error) {
	fw := parquetbuffer.NewBufferFile()
	pw, err := writer.NewParquetWriter(fw, new(pointParquetRow), 4)
	if err != nil {
		return nil, err
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for i := 0; i < tbl.Len(); i++ {
		row := pointParquetRow{
			ElapsedS:   tbl.Time[i],
			DistanceM:  tbl.Distance[i],
			SpeedMPS:   tbl.Speed[i],
			PaceSPerKM: tbl.Pace[i],
			ElevationM: channelValue(tbl.Elevation, i),
			HRBPM:      channelValue(tbl.HeartRate, i),
			CadenceSPM: channelValue(tbl.Cadence, i),
			PowerW:     channelValue(tbl.Power, i),
			Lat:        channelValue(tbl.Lat, i),
			Lon:        channelValue(tbl.Lon, i),
			GradePct:   math.NaN(),
			GAPSPerKM:  math.NaN(),
			Moving:     true,
		}
		if derived != nil {
			row.GradePct = channelValue(derived.Grade, i)
			row.GAPSPerKM = channelValue(derived.GAP, i)
			row.Moving = derived.Moving[i]
		}
		if err := pw.Write(row); err != nil {
			_ = pw.WriteStop()
			return nil, err
		}
	}

	if err := pw.WriteStop(); err != nil {
		return nil, err
	}
	if err := fw.Close(); err != nil {
		return nil, err
	}
	return append([]byte(nil), fw.Bytes()...), nil
}

func channelValue(col []float64, i int) float64 {
	if col == nil {
		return math.NaN()
	}
	return col[i]
}
