package telemetry

import "math"

const earthRadiusM = 6371000.0

// HaversineM returns the great-circle distance in metres between two
// coordinates in decimal degrees.
func HaversineM(lat1, lon1, lat2, lon2 float64) float64 {
	const deg = math.Pi / 180
	dLat := (lat2 - lat1) * deg
	dLon := (lon2 - lon1) * deg
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*deg)*math.Cos(lat2*deg)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusM * math.Asin(math.Sqrt(a))
}

// Distance3DM is HaversineM with the elevation delta folded in when both
// elevations are defined. Undefined coordinates give 0.
func Distance3DM(lat1, lon1, ele1, lat2, lon2, ele2 float64) float64 {
	if math.IsNaN(lat1) || math.IsNaN(lon1) || math.IsNaN(lat2) || math.IsNaN(lon2) {
		return 0
	}
	d2 := HaversineM(lat1, lon1, lat2, lon2)
	if math.IsNaN(ele1) || math.IsNaN(ele2) {
		return d2
	}
	dz := ele2 - ele1
	return math.Sqrt(d2*d2 + dz*dz)
}
