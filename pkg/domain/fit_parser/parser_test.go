package fit_parser

import (
	"bytes"
	"math"
	"testing"
	"time"

	"github.com/muktihari/fit/encoder"
	"github.com/muktihari/fit/profile/mesgdef"
	"github.com/muktihari/fit/profile/typedef"
	"github.com/muktihari/fit/proto"

	"github.com/coursescope/server/pkg/domain/activity"
)

// ~1 degree of latitude in metres.
const metresPerDegree = 111194.9

type recordOpts struct {
	offsetS   int
	distanceM float64 // NaN to omit the device distance channel
	latDeg    float64 // NaN to omit position
	lonDeg    float64
	altitudeM float64 // NaN to omit
	hr        float64 // NaN to omit
	cadence   float64 // per-foot rpm, NaN to omit
	power     float64 // NaN to omit
}

func encodeFit(t *testing.T, start time.Time, records []recordOpts, session *mesgdef.Session) []byte {
	t.Helper()

	fit := &proto.FIT{}

	fileId := mesgdef.NewFileId(nil).
		SetType(typedef.FileActivity).
		SetManufacturer(typedef.ManufacturerDevelopment).
		SetProduct(1).
		SetTimeCreated(start)
	fit.Messages = append(fit.Messages, fileId.ToMesg(nil))

	for _, r := range records {
		rec := mesgdef.NewRecord(nil).SetTimestamp(start.Add(time.Duration(r.offsetS) * time.Second))
		if !math.IsNaN(r.distanceM) {
			rec.SetDistance(uint32(r.distanceM * 100))
		}
		if !math.IsNaN(r.latDeg) {
			rec.SetPositionLat(int32(r.latDeg * semicircleConst))
			rec.SetPositionLong(int32(r.lonDeg * semicircleConst))
		}
		if !math.IsNaN(r.altitudeM) {
			rec.SetAltitude(uint16((r.altitudeM + 500) * 5))
		}
		if !math.IsNaN(r.hr) {
			rec.SetHeartRate(uint8(r.hr))
		}
		if !math.IsNaN(r.cadence) {
			rec.SetCadence(uint8(r.cadence))
		}
		if !math.IsNaN(r.power) {
			rec.SetPower(uint16(r.power))
		}
		fit.Messages = append(fit.Messages, rec.ToMesg(nil))
	}

	if session != nil {
		fit.Messages = append(fit.Messages, session.ToMesg(nil))
	}

	var buf bytes.Buffer
	if err := encoder.New(&buf).Encode(fit); err != nil {
		t.Fatalf("encoding test FIT file: %v", err)
	}
	return buf.Bytes()
}

// steadyRun emits n seconds at 3 m/s with distance, altitude, HR, cadence
// and power channels populated.
func steadyRun(n int) []recordOpts {
	records := make([]recordOpts, n)
	for i := range records {
		records[i] = recordOpts{
			offsetS:   i,
			distanceM: 3 * float64(i),
			latDeg:    math.NaN(),
			lonDeg:    math.NaN(),
			altitudeM: 120,
			hr:        150,
			cadence:   85,
			power:     240,
		}
	}
	return records
}

func runSession(start time.Time, elapsedS, distanceM float64) *mesgdef.Session {
	return mesgdef.NewSession(nil).
		SetTimestamp(start.Add(time.Duration(elapsedS) * time.Second)).
		SetStartTime(start).
		SetSport(typedef.SportRunning).
		SetSubSport(typedef.SubSportGeneric).
		SetTotalElapsedTime(uint32(elapsedS * 1000)).
		SetTotalDistance(uint32(distanceM * 100))
}

func TestParse_EmptyData(t *testing.T) {
	if _, _, err := Parse(nil); err == nil {
		t.Error("expected an error for empty data")
	}
}

func TestParse_InvalidData(t *testing.T) {
	if _, _, err := Parse([]byte("not a fit file")); err == nil {
		t.Error("expected an error for garbage input")
	}
}

func TestParse_NoRecords(t *testing.T) {
	start := time.Date(2024, 5, 12, 7, 30, 0, 0, time.UTC)
	data := encodeFit(t, start, nil, runSession(start, 60, 180))
	if _, _, err := Parse(data); err == nil {
		t.Error("expected an error for a file without record messages")
	}
}

func TestParse_SteadyRun(t *testing.T) {
	start := time.Date(2024, 5, 12, 7, 30, 0, 0, time.UTC)
	data := encodeFit(t, start, steadyRun(120), runSession(start, 119, 357))

	tbl, meta, err := Parse(data)
	if err != nil {
		t.Fatal(err)
	}
	if err := tbl.Validate(); err != nil {
		t.Fatalf("parsed table must validate: %v", err)
	}

	if tbl.Len() != 120 {
		t.Fatalf("point count = %d, want 120", tbl.Len())
	}
	if got := tbl.Time[119]; got != 119 {
		t.Errorf("last elapsed = %v, want 119", got)
	}
	if got := tbl.Distance[119]; math.Abs(got-357) > 1e-9 {
		t.Errorf("last distance = %v, want 357", got)
	}
	// First point has no deltas to derive speed from.
	if !math.IsNaN(tbl.Speed[0]) || !math.IsNaN(tbl.Pace[0]) {
		t.Error("first point speed/pace should be undefined")
	}
	if got := tbl.Speed[60]; math.Abs(got-3) > 1e-9 {
		t.Errorf("speed = %v, want 3", got)
	}
	if got := tbl.Pace[60]; math.Abs(got-1000.0/3) > 1e-6 {
		t.Errorf("pace = %v, want %v", got, 1000.0/3)
	}
	if got := tbl.Elevation[0]; math.Abs(got-120) > 0.2 {
		t.Errorf("altitude = %v, want ~120", got)
	}
	if got := tbl.HeartRate[0]; got != 150 {
		t.Errorf("heart rate = %v, want 150", got)
	}
	// Per-foot rpm doubles to steps/min.
	if got := tbl.Cadence[0]; got != 170 {
		t.Errorf("cadence = %v, want 170", got)
	}
	if got := tbl.Power[0]; got != 240 {
		t.Errorf("power = %v, want 240", got)
	}

	if meta.Type != activity.TypeRun {
		t.Errorf("type = %q, want run", meta.Type)
	}
	if meta.Source != "fit" {
		t.Errorf("source = %q, want fit", meta.Source)
	}
	if !meta.StartTime.Equal(start) {
		t.Errorf("start time = %v, want %v", meta.StartTime, start)
	}
	if math.Abs(meta.TotalElapsedS-119) > 1e-9 {
		t.Errorf("session elapsed = %v, want 119", meta.TotalElapsedS)
	}
	if math.Abs(meta.TotalDistanceM-357) > 1e-9 {
		t.Errorf("session distance = %v, want 357", meta.TotalDistanceM)
	}
	if meta.Name != "Morning Run" {
		t.Errorf("generated name = %q, want Morning Run", meta.Name)
	}
}

func TestParse_DropsAbsentChannels(t *testing.T) {
	start := time.Date(2024, 5, 12, 7, 30, 0, 0, time.UTC)
	records := make([]recordOpts, 30)
	for i := range records {
		records[i] = recordOpts{
			offsetS:   i,
			distanceM: 3 * float64(i),
			latDeg:    math.NaN(),
			lonDeg:    math.NaN(),
			altitudeM: math.NaN(),
			hr:        math.NaN(),
			cadence:   math.NaN(),
			power:     math.NaN(),
		}
	}
	data := encodeFit(t, start, records, runSession(start, 29, 87))

	tbl, _, err := Parse(data)
	if err != nil {
		t.Fatal(err)
	}
	if tbl.HasHeartRate() || tbl.HasCadence() || tbl.HasPower() || tbl.HasElevation() || tbl.HasPosition() {
		t.Error("channels the device never recorded must be nil")
	}
	if tbl.StrideLength != nil || tbl.GroundContactTime != nil {
		t.Error("running dynamics must be nil when absent")
	}
}

func TestParse_GeoDistanceFallback(t *testing.T) {
	start := time.Date(2024, 5, 12, 7, 30, 0, 0, time.UTC)
	// No device distance; latitude advances ~3 m per second.
	step := 3.0 / metresPerDegree
	records := make([]recordOpts, 60)
	for i := range records {
		records[i] = recordOpts{
			offsetS:   i,
			distanceM: math.NaN(),
			latDeg:    45 + step*float64(i),
			lonDeg:    6,
			altitudeM: math.NaN(),
			hr:        math.NaN(),
			cadence:   math.NaN(),
			power:     math.NaN(),
		}
	}
	data := encodeFit(t, start, records, runSession(start, 59, 0))

	tbl, _, err := Parse(data)
	if err != nil {
		t.Fatal(err)
	}
	if err := tbl.Validate(); err != nil {
		t.Fatalf("parsed table must validate: %v", err)
	}
	total := tbl.Distance[tbl.Len()-1]
	if total < 160 || total > 195 {
		t.Errorf("haversine distance = %v m, want ~177", total)
	}
	if got := tbl.Speed[30]; math.IsNaN(got) || got < 2.5 || got > 3.5 {
		t.Errorf("geo-derived speed = %v, want ~3", got)
	}
}

func TestParse_TrailSubSport(t *testing.T) {
	start := time.Date(2024, 5, 12, 15, 0, 0, 0, time.UTC)
	session := runSession(start, 29, 87).SetSubSport(typedef.SubSportTrail)
	data := encodeFit(t, start, steadyRun(30), session)

	_, meta, err := Parse(data)
	if err != nil {
		t.Fatal(err)
	}
	if meta.Type != activity.TypeTrailRun {
		t.Errorf("type = %q, want trail_run", meta.Type)
	}
	if meta.Name != "Afternoon Trail Run" {
		t.Errorf("name = %q", meta.Name)
	}
}

func TestParse_NoSessionFallsBackToRecords(t *testing.T) {
	start := time.Date(2024, 5, 12, 7, 30, 0, 0, time.UTC)
	data := encodeFit(t, start, steadyRun(60), nil)

	tbl, meta, err := Parse(data)
	if err != nil {
		t.Fatal(err)
	}
	if tbl.Len() != 60 {
		t.Fatalf("point count = %d", tbl.Len())
	}
	if meta.Type != activity.TypeWorkout {
		t.Errorf("type without session = %q, want workout", meta.Type)
	}
	if math.Abs(meta.TotalElapsedS-59) > 1e-9 {
		t.Errorf("elapsed from records = %v, want 59", meta.TotalElapsedS)
	}
	if math.Abs(meta.TotalDistanceM-177) > 1e-9 {
		t.Errorf("distance from records = %v, want 177", meta.TotalDistanceM)
	}
}

func TestMapSport(t *testing.T) {
	tests := []struct {
		name     string
		sport    typedef.Sport
		subSport typedef.SubSport
		want     activity.Type
	}{
		{"run", typedef.SportRunning, typedef.SubSportGeneric, activity.TypeRun},
		{"trail", typedef.SportRunning, typedef.SubSportTrail, activity.TypeTrailRun},
		{"treadmill", typedef.SportRunning, typedef.SubSportTreadmill, activity.TypeVirtualRun},
		{"virtual", typedef.SportRunning, typedef.SubSportVirtualActivity, activity.TypeVirtualRun},
		{"walk", typedef.SportWalking, typedef.SubSportGeneric, activity.TypeWalk},
		{"hike", typedef.SportHiking, typedef.SubSportGeneric, activity.TypeHike},
		{"ride", typedef.SportCycling, typedef.SubSportGeneric, activity.TypeRide},
		{"other", typedef.SportGolf, typedef.SubSportGeneric, activity.TypeWorkout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mapSport(tt.sport, tt.subSport); got != tt.want {
				t.Errorf("mapSport = %q, want %q", got, tt.want)
			}
		})
	}
}
