package export

import (
	"bytes"
	"encoding/csv"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	parquetbuffer "github.com/xitongsys/parquet-go-source/buffer"
	"github.com/xitongsys/parquet-go/reader"

	"github.com/coursescope/server/pkg/domain/analysis"
	"github.com/coursescope/server/pkg/domain/telemetry"
)

func sampleTable() (*telemetry.Table, *analysis.DerivedSeries) {
	nan := math.NaN()
	tbl := &telemetry.Table{
		Time:          []float64{0, 1, 2},
		DeltaTime:     []float64{nan, 1, 1},
		Distance:      []float64{0, 3, 6},
		DeltaDistance: []float64{0, 3, 3},
		Speed:         []float64{nan, 3, 3},
		Pace:          []float64{nan, 1000.0 / 3, 1000.0 / 3},
		HeartRate:     []float64{150, nan, 152},
	}
	derived := &analysis.DerivedSeries{
		Grade:  []float64{0, 1.5, nan},
		Moving: []bool{true, true, false},
		GAP:    []float64{nan, 330, 330},
	}
	return tbl, derived
}

func TestWritePointsCSV(t *testing.T) {
	tbl, derived := sampleTable()

	var buf bytes.Buffer
	require.NoError(t, WritePointsCSV(&buf, tbl, derived))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, csvHeader, rows[0])

	// First point: no deltas yet, HR present, GAP undefined.
	assert.Equal(t, "0", rows[1][0])
	assert.Equal(t, "", rows[1][2], "undefined speed is an empty cell")
	assert.Equal(t, "150", rows[1][5])
	assert.Equal(t, "", rows[1][11])
	assert.Equal(t, "true", rows[1][12])

	// Second point: HR gap, speed defined, elevation channel absent.
	assert.Equal(t, "3", rows[2][2])
	assert.Equal(t, "", rows[2][5])
	assert.Equal(t, "", rows[2][4])

	assert.Equal(t, "false", rows[3][12])
}

func TestWritePointsCSV_NoDerived(t *testing.T) {
	tbl, _ := sampleTable()

	var buf bytes.Buffer
	require.NoError(t, WritePointsCSV(&buf, tbl, nil))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, "", rows[1][10])
	assert.Equal(t, "", rows[1][12])
}

func TestMarshalPointsParquet(t *testing.T) {
	tbl, derived := sampleTable()

	blob, err := MarshalPointsParquet(tbl, derived)
	require.NoError(t, err)
	require.NotEmpty(t, blob)

	pf := parquetbuffer.NewBufferFileFromBytes(blob)
	pr, err := reader.NewParquetReader(pf, new(pointParquetRow), 1)
	require.NoError(t, err)
	defer pr.ReadStop()

	require.EqualValues(t, 3, pr.GetNumRows())
	rows := make([]pointParquetRow, 3)
	require.NoError(t, pr.Read(&rows))

	assert.Equal(t, 0.0, rows[0].ElapsedS)
	assert.True(t, math.IsNaN(rows[0].SpeedMPS), "missing speed round-trips as NaN")
	assert.Equal(t, 150.0, rows[0].HRBPM)
	assert.True(t, math.IsNaN(rows[0].ElevationM), "absent channel is NaN")
	assert.Equal(t, 3.0, rows[1].SpeedMPS)
	assert.True(t, rows[1].Moving)
	assert.False(t, rows[2].Moving)
}

func TestMarshalPointsParquet_EmptyTable(t *testing.T) {
	blob, err := MarshalPointsParquet(&telemetry.Table{}, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, blob, "even an empty table yields a valid file with schema")
}
