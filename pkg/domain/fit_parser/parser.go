// Package fit_parser turns raw FIT bytes into the canonical telemetry
// table plus activity metadata.
package fit_parser

import (
	"bytes"
	"fmt"
	"math"
	"time"

	"github.com/muktihari/fit/decoder"
	"github.com/muktihari/fit/profile/mesgdef"
	"github.com/muktihari/fit/profile/typedef"
	"github.com/muktihari/fit/proto"

	"github.com/coursescope/server/pkg/domain/activity"
	"github.com/coursescope/server/pkg/domain/telemetry"
)

// FIT invalid-value sentinels for the record fields we read.
const (
	invalidUint8  = 0xFF
	invalidUint16 = 0xFFFF
	invalidUint32 = 0xFFFFFFFF
	invalidSint32 = 0x7FFFFFFF

	semicircleConst = 11930464.7111 // 2^31 / 180

	// A delta shorter than this is GPS jitter, not a usable speed basis.
	minDistanceForSpeedM = 0.5
)

// sample is one record message with every field already converted to its
// engineering unit, NaN where the device wrote the invalid sentinel.
type sample struct {
	timestamp time.Time
	lat       float64 // degrees
	lon       float64 // degrees
	elevation float64 // m
	distance  float64 // cumulative m, as recorded
	speed     float64 // m/s, as recorded
	heartRate float64 // bpm
	cadence   float64 // steps/min, both feet
	power     float64 // W

	strideLength        float64 // m
	verticalOscillation float64 // cm
	verticalRatio       float64 // %
	groundContactTime   float64 // ms
	gctBalance          float64 // % left
}

type sessionInfo struct {
	startTime        time.Time
	totalElapsedTime float64
	totalDistance    float64
	sport            typedef.Sport
	subSport         typedef.SubSport
	sportProfileName string
}

// Parse decodes a FIT file into a telemetry table and its activity
// metadata. Record messages become table rows; session messages supply the
// sport, the name and the official totals. Files with multiple sessions
// (device auto-pause) merge into one activity.
func Parse(data []byte) (*telemetry.Table, *activity.Metadata, error) {
	if len(data) == 0 {
		return nil, nil, fmt.Errorf("empty FIT data")
	}

	fitDec := decoder.New(bytes.NewReader(data))

	var samples []sample
	var sessions []sessionInfo
	var startTime time.Time

	for fitDec.Next() {
		fitData, err := fitDec.Decode()
		if err != nil {
			return nil, nil, fmt.Errorf("decoding FIT file: %w", err)
		}

		for i := range fitData.Messages {
			msg := &fitData.Messages[i]
			switch msg.Num {
			case typedef.MesgNumFileId:
				fileId := mesgdef.NewFileId(msg)
				if startTime.IsZero() && !fileId.TimeCreated.IsZero() {
					startTime = fileId.TimeCreated.UTC()
				}

			case typedef.MesgNumRecord:
				s, ok := parseSample(msg)
				if !ok {
					continue
				}
				// Devices occasionally emit a record with a timestamp
				// before the previous one; the table contract forbids it.
				if n := len(samples); n > 0 && s.timestamp.Before(samples[n-1].timestamp) {
					continue
				}
				samples = append(samples, s)
				if startTime.IsZero() {
					startTime = s.timestamp
				}

			case typedef.MesgNumSession:
				sessionMsg := mesgdef.NewSession(msg)
				si := sessionInfo{
					startTime:        sessionMsg.StartTime.UTC(),
					sport:            sessionMsg.Sport,
					subSport:         sessionMsg.SubSport,
					sportProfileName: sessionMsg.SportProfileName,
				}
				if sessionMsg.TotalElapsedTime != invalidUint32 {
					si.totalElapsedTime = float64(sessionMsg.TotalElapsedTime) / 1000
				}
				if sessionMsg.TotalDistance != invalidUint32 {
					si.totalDistance = float64(sessionMsg.TotalDistance) / 100
				}
				sessions = append(sessions, si)
			}
		}
	}

	if len(samples) == 0 {
		return nil, nil, fmt.Errorf("no record messages in FIT file")
	}

	tbl := buildTable(samples)
	meta := buildMetadata(sessions, samples, startTime)
	return tbl, meta, nil
}

// parseSample extracts one record message, mapping FIT scale factors and
// invalid sentinels onto engineering units and NaN.
func parseSample(msg *proto.Message) (sample, bool) {
	rec := mesgdef.NewRecord(msg)
	if rec.Timestamp.IsZero() {
		return sample{}, false
	}

	s := sample{
		timestamp:           rec.Timestamp.UTC(),
		lat:                 math.NaN(),
		lon:                 math.NaN(),
		elevation:           math.NaN(),
		distance:            math.NaN(),
		speed:               math.NaN(),
		heartRate:           math.NaN(),
		cadence:             math.NaN(),
		power:               math.NaN(),
		strideLength:        math.NaN(),
		verticalOscillation: math.NaN(),
		verticalRatio:       math.NaN(),
		groundContactTime:   math.NaN(),
		gctBalance:          math.NaN(),
	}

	if rec.PositionLat != invalidSint32 && rec.PositionLong != invalidSint32 {
		s.lat = float64(rec.PositionLat) / semicircleConst
		s.lon = float64(rec.PositionLong) / semicircleConst
	}

	// Altitude scale is 5 with a 500 m offset; prefer the enhanced field.
	if rec.EnhancedAltitude != invalidUint32 {
		s.elevation = float64(rec.EnhancedAltitude)/5 - 500
	} else if rec.Altitude != invalidUint16 {
		s.elevation = float64(rec.Altitude)/5 - 500
	}

	if rec.Distance != invalidUint32 {
		s.distance = float64(rec.Distance) / 100
	}

	// Speed fields are mm/s.
	if rec.EnhancedSpeed != invalidUint32 {
		s.speed = float64(rec.EnhancedSpeed) / 1000
	} else if rec.Speed != invalidUint16 {
		s.speed = float64(rec.Speed) / 1000
	}

	if rec.HeartRate != invalidUint8 {
		s.heartRate = float64(rec.HeartRate)
	}

	// Running cadence is per-foot rpm; double it for steps/min. The
	// fractional field carries 1/128ths of a revolution.
	if rec.Cadence != invalidUint8 {
		cad := float64(rec.Cadence)
		if rec.FractionalCadence != invalidUint8 {
			cad += float64(rec.FractionalCadence) / 128
		}
		s.cadence = cad * 2
	}

	if rec.Power != invalidUint16 {
		s.power = float64(rec.Power)
	}

	// Running dynamics, all scaled uint16 fields: step_length and
	// vertical_oscillation in mm (scale 10), stance_time in ms (scale 10),
	// the ratios in percent (scale 100).
	if rec.StepLength != invalidUint16 {
		s.strideLength = float64(rec.StepLength) / 10 / 1000
	}
	if rec.VerticalOscillation != invalidUint16 {
		s.verticalOscillation = float64(rec.VerticalOscillation) / 10 / 10
	}
	if rec.VerticalRatio != invalidUint16 {
		s.verticalRatio = float64(rec.VerticalRatio) / 100
	}
	if rec.StanceTime != invalidUint16 {
		s.groundContactTime = float64(rec.StanceTime) / 10
	}
	if rec.StanceTimeBalance != invalidUint16 {
		s.gctBalance = float64(rec.StanceTimeBalance) / 100
	}

	return s, true
}

// buildTable derives the cumulative and per-point columns from raw samples.
// Device distance wins while it behaves; where it is missing or runs
// backwards the 3D haversine between fixes takes over. Speed prefers the
// delta-derived value and falls back to the device channel, then passes
// through the plausibility filter that co-derives pace.
func buildTable(samples []sample) *telemetry.Table {
	n := len(samples)
	t := &telemetry.Table{
		Time:                make([]float64, n),
		DeltaTime:           make([]float64, n),
		Distance:            make([]float64, n),
		DeltaDistance:       make([]float64, n),
		Speed:               make([]float64, n),
		Pace:                make([]float64, n),
		Elevation:           make([]float64, n),
		HeartRate:           make([]float64, n),
		Cadence:             make([]float64, n),
		Power:               make([]float64, n),
		Lat:                 make([]float64, n),
		Lon:                 make([]float64, n),
		StrideLength:        make([]float64, n),
		VerticalOscillation: make([]float64, n),
		VerticalRatio:       make([]float64, n),
		GroundContactTime:   make([]float64, n),
		GCTBalance:          make([]float64, n),
	}

	start := samples[0].timestamp
	cumulative := 0.0
	prevDistance := math.NaN()

	for i, s := range samples {
		t.Time[i] = s.timestamp.Sub(start).Seconds()

		dt := math.NaN()
		if i > 0 {
			if d := s.timestamp.Sub(samples[i-1].timestamp).Seconds(); d > 0 {
				dt = d
			}
		}
		t.DeltaTime[i] = dt

		dd := 0.0
		dist := s.distance
		useGeo := math.IsNaN(dist) || (!math.IsNaN(prevDistance) && dist < prevDistance)
		if useGeo {
			if i > 0 {
				prev := samples[i-1]
				dd = telemetry.Distance3DM(prev.lat, prev.lon, prev.elevation, s.lat, s.lon, s.elevation)
			}
			cumulative += dd
			dist = cumulative
		} else {
			if !math.IsNaN(prevDistance) {
				dd = dist - prevDistance
			}
			cumulative = dist
		}
		t.Distance[i] = dist
		t.DeltaDistance[i] = dd
		prevDistance = dist

		speed := math.NaN()
		fromDelta := false
		if !math.IsNaN(dt) && dd > 0 {
			speed = dd / dt
			fromDelta = true
		}
		if math.IsNaN(speed) {
			speed = s.speed
		}
		if fromDelta && dd < minDistanceForSpeedM {
			speed = math.NaN()
		}
		speed = telemetry.ClampSpeed(speed)
		t.Speed[i] = speed
		t.Pace[i] = telemetry.PaceFromSpeed(speed)

		t.Elevation[i] = s.elevation
		t.HeartRate[i] = s.heartRate
		t.Cadence[i] = s.cadence
		t.Power[i] = s.power
		t.Lat[i] = s.lat
		t.Lon[i] = s.lon
		t.StrideLength[i] = s.strideLength
		t.VerticalOscillation[i] = s.verticalOscillation
		t.VerticalRatio[i] = s.verticalRatio
		t.GroundContactTime[i] = s.groundContactTime
		t.GCTBalance[i] = s.gctBalance
	}

	t.DropEmptyChannels()
	return t
}

// buildMetadata merges session summaries into one activity description,
// falling back to record-derived totals when the file has no sessions.
func buildMetadata(sessions []sessionInfo, samples []sample, startTime time.Time) *activity.Metadata {
	meta := &activity.Metadata{
		Type:      activity.TypeWorkout,
		StartTime: startTime,
		Source:    "fit",
	}

	if len(sessions) > 0 {
		first := sessions[0]
		meta.Type = mapSport(first.sport, first.subSport)
		meta.Sport = first.sport.String()
		meta.SubSport = first.subSport.String()
		meta.Name = first.sportProfileName
		for _, si := range sessions {
			meta.TotalElapsedS += si.totalElapsedTime
			meta.TotalDistanceM += si.totalDistance
		}
	}

	if meta.TotalElapsedS == 0 && len(samples) > 1 {
		meta.TotalElapsedS = samples[len(samples)-1].timestamp.Sub(samples[0].timestamp).Seconds()
	}
	if meta.TotalDistanceM == 0 {
		if last := samples[len(samples)-1].distance; !math.IsNaN(last) {
			meta.TotalDistanceM = last
		}
	}

	if meta.Name == "" {
		meta.Name = activity.DefaultName(meta.Type, startTime)
	}
	return meta
}

// mapSport converts the FIT sport vocabulary to our activity types.
func mapSport(sport typedef.Sport, subSport typedef.SubSport) activity.Type {
	switch sport {
	case typedef.SportRunning:
		switch subSport {
		case typedef.SubSportTrail:
			return activity.TypeTrailRun
		case typedef.SubSportVirtualActivity, typedef.SubSportTreadmill:
			return activity.TypeVirtualRun
		default:
			return activity.TypeRun
		}
	case typedef.SportWalking:
		return activity.TypeWalk
	case typedef.SportHiking:
		return activity.TypeHike
	case typedef.SportCycling:
		return activity.TypeRide
	default:
		return activity.TypeWorkout
	}
}
