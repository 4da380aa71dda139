package geo

import (
	"github.com/golang/geo/s2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// EarthRadiusKM is the mean Earth radius used for great-circle distances.
const EarthRadiusKM = 6371.0088

// PlanarDistance is the Euclidean distance between two sites in raw degrees,
// the metric used for station assignment.
func PlanarDistance(a, b Site) float64 {
	return planar.Distance(orb.Point{a.Lon, a.Lat}, orb.Point{b.Lon, b.Lat})
}

// GreatCircleKM returns the great-circle distance between two sites in kilometres.
func GreatCircleKM(a, b Site) float64 {
	pa := s2.LatLngFromDegrees(a.Lat, a.Lon)
	pb := s2.LatLngFromDegrees(b.Lat, b.Lon)
	return pa.Distance(pb).Radians() * EarthRadiusKM
}
