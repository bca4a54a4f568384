// Package gpx_parser turns GPX bytes into the canonical telemetry table
// plus activity metadata. Distance accumulates from the 3D haversine
// between fixes; hr/cadence/power come from trackpoint extensions
// regardless of which namespace the writing tool used.
package gpx_parser

import (
	"encoding/xml"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/coursescope/server/pkg/domain/activity"
	"github.com/coursescope/server/pkg/domain/telemetry"
)

// A delta shorter than this is GPS jitter, not a usable speed basis.
const minDistanceForSpeedM = 0.5

// rawXML keeps nested extension blocks verbatim so they can be scanned for
// known tags without modelling every vendor schema.
type rawXML []byte

func (r *rawXML) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	type inner struct {
		Content string `xml:",innerxml"`
	}
	var data inner
	if err := d.DecodeElement(&data, &start); err != nil {
		return err
	}
	*r = rawXML(data.Content)
	return nil
}

type trackPoint struct {
	Lat        float64   `xml:"lat,attr"`
	Lon        float64   `xml:"lon,attr"`
	Elevation  *float64  `xml:"ele"`
	Time       time.Time `xml:"time"`
	Extensions rawXML    `xml:"extensions"`
}

type trackSegment struct {
	Points []trackPoint `xml:"trkpt"`
}

type track struct {
	Name     string         `xml:"name"`
	Type     string         `xml:"type"`
	Segments []trackSegment `xml:"trkseg"`
}

type gpxMetadata struct {
	Name string    `xml:"name"`
	Time time.Time `xml:"time"`
}

type gpxFile struct {
	XMLName  xml.Name    `xml:"gpx"`
	Metadata gpxMetadata `xml:"metadata"`
	Tracks   []track     `xml:"trk"`
}

// Tag names that carry each channel, across Garmin/Strava/third-party
// extension schemas. Matched on the local name, namespace ignored.
var (
	hrTags    = map[string]bool{"hr": true, "heart_rate": true, "heartrate": true}
	cadTags   = map[string]bool{"cad": true, "cadence": true}
	powerTags = map[string]bool{"power": true, "watts": true}
)

// Parse decodes a GPX document into a telemetry table and its activity
// metadata. Points without a timestamp are dropped; a file with no timed
// points cannot be analyzed and errors.
func Parse(data []byte) (*telemetry.Table, *activity.Metadata, error) {
	if len(data) == 0 {
		return nil, nil, fmt.Errorf("empty GPX data")
	}

	var doc gpxFile
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("parsing GPX: %w", err)
	}

	tbl, start, err := buildTable(&doc)
	if err != nil {
		return nil, nil, err
	}

	meta := buildMetadata(&doc, tbl, start)
	return tbl, meta, nil
}

type point struct {
	timestamp time.Time
	lat, lon  float64
	elevation float64
	hr        float64
	cadence   float64
	power     float64
}

func collectPoints(doc *gpxFile) []point {
	var points []point
	for _, trk := range doc.Tracks {
		for _, seg := range trk.Segments {
			for _, tp := range seg.Points {
				if tp.Time.IsZero() {
					continue
				}
				if n := len(points); n > 0 && tp.Time.Before(points[n-1].timestamp) {
					continue
				}
				p := point{
					timestamp: tp.Time.UTC(),
					lat:       tp.Lat,
					lon:       tp.Lon,
					elevation: math.NaN(),
					hr:        extensionValue(tp.Extensions, hrTags),
					cadence:   extensionValue(tp.Extensions, cadTags),
					power:     extensionValue(tp.Extensions, powerTags),
				}
				if tp.Elevation != nil {
					p.elevation = *tp.Elevation
				}
				points = append(points, p)
			}
		}
	}
	return points
}

func buildTable(doc *gpxFile) (*telemetry.Table, time.Time, error) {
	points := collectPoints(doc)
	if len(points) == 0 {
		return nil, time.Time{}, fmt.Errorf("no timed track points in GPX file")
	}

	n := len(points)
	t := &telemetry.Table{
		Time:          make([]float64, n),
		DeltaTime:     make([]float64, n),
		Distance:      make([]float64, n),
		DeltaDistance: make([]float64, n),
		Speed:         make([]float64, n),
		Pace:          make([]float64, n),
		Elevation:     make([]float64, n),
		HeartRate:     make([]float64, n),
		Cadence:       make([]float64, n),
		Power:         make([]float64, n),
		Lat:           make([]float64, n),
		Lon:           make([]float64, n),
	}

	start := points[0].timestamp
	cumulative := 0.0
	for i, p := range points {
		t.Time[i] = p.timestamp.Sub(start).Seconds()

		dt := math.NaN()
		dd := 0.0
		if i > 0 {
			prev := points[i-1]
			if d := p.timestamp.Sub(prev.timestamp).Seconds(); d > 0 {
				dt = d
			}
			dd = telemetry.Distance3DM(prev.lat, prev.lon, prev.elevation, p.lat, p.lon, p.elevation)
		}
		cumulative += dd
		t.DeltaTime[i] = dt
		t.Distance[i] = cumulative
		t.DeltaDistance[i] = dd

		speed := math.NaN()
		if !math.IsNaN(dt) && dd >= minDistanceForSpeedM {
			speed = telemetry.ClampSpeed(dd / dt)
		}
		t.Speed[i] = speed
		t.Pace[i] = telemetry.PaceFromSpeed(speed)

		t.Elevation[i] = p.elevation
		t.HeartRate[i] = p.hr
		t.Cadence[i] = p.cadence
		t.Power[i] = p.power
		t.Lat[i] = p.lat
		t.Lon[i] = p.lon
	}

	t.DropEmptyChannels()
	return t, start, nil
}

func buildMetadata(doc *gpxFile, tbl *telemetry.Table, start time.Time) *activity.Metadata {
	meta := &activity.Metadata{
		Type:           activity.TypeRun,
		StartTime:      start,
		Source:         "gpx",
		TotalDistanceM: tbl.TotalDistance(),
		TotalElapsedS:  tbl.TotalTime(),
	}

	if len(doc.Tracks) > 0 {
		trk := doc.Tracks[0]
		meta.Name = trk.Name
		meta.Sport = trk.Type
		if parsed := activity.ParseType(trk.Type); parsed != activity.TypeUnknown {
			meta.Type = parsed
		}
	}
	if meta.Name == "" {
		meta.Name = doc.Metadata.Name
	}
	if meta.Name == "" {
		meta.Name = activity.DefaultName(meta.Type, start)
	}
	return meta
}

// extensionValue scans an extensions block for the first element whose
// local name matches and whose text parses as a number.
func extensionValue(ext rawXML, targets map[string]bool) float64 {
	if len(ext) == 0 {
		return math.NaN()
	}
	dec := xml.NewDecoder(strings.NewReader(string(ext)))
	capture := false
	for {
		tok, err := dec.Token()
		if err != nil {
			return math.NaN()
		}
		switch el := tok.(type) {
		case xml.StartElement:
			capture = targets[strings.ToLower(el.Name.Local)]
		case xml.CharData:
			if capture {
				if v, err := strconv.ParseFloat(strings.TrimSpace(string(el)), 64); err == nil {
					return v
				}
			}
		case xml.EndElement:
			capture = false
		}
	}
}
