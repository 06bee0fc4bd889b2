package fusion

import (
	"math"

	geohash "github.com/TomiHiltunen/geohash-golang"
)

// earthRadiusM is the mean Earth radius used for great-circle math.
const earthRadiusM = 6371000.0

// HaversineM returns the great-circle distance in meters between two
// WGS84 points.
func HaversineM(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusM * c
}

// ClampLat limits a latitude to the valid [-90, 90] range.
func ClampLat(lat float64) float64 {
	return math.Max(-90, math.Min(90, lat))
}

// WrapLon normalizes a longitude into [-180, 180).
func WrapLon(lon float64) float64 {
	lon = math.Mod(lon+180, 360)
	if lon < 0 {
		lon += 360
	}
	return lon - 180
}

// CellID returns the geohash cell for a point at the given precision
// (number of geohash characters). Geohash cells are hierarchical, so
// the truncated prefix of a full-precision hash is exactly the
// containing coarser cell.
func CellID(lat, lon float64, precision int) string {
	if precision <= 0 {
		precision = DefaultCellPrecision
	}
	cell := geohash.Encode(ClampLat(lat), WrapLon(lon))
	if len(cell) > precision {
		cell = cell[:precision]
	}
	return cell
}
