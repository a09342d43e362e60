// Package geo resolves named locations to coordinates, tags coordinates with
// administrative districts, and splits oversized search radii into coverable
// sub-areas.
package geo

import "github.com/paulmach/orb"

// Point is a WGS84 coordinate pair.
type Point struct {
	Lat float64
	Lng float64
}

// countryBound covers Sri Lanka with a small margin for coastal results.
var countryBound = orb.Bound{
	Min: orb.Point{79.5, 5.7},
	Max: orb.Point{82.1, 10.0},
}

// districtBounds are coarse boxes around the major metro areas. Lookup is
// first match, so tighter boxes must come before wider ones.
var districtBounds = []struct {
	name  string
	bound orb.Bound
}{
	{"Colombo", orb.Bound{Min: orb.Point{79.78, 6.75}, Max: orb.Point{80.05, 7.05}}},
	{"Kandy", orb.Bound{Min: orb.Point{80.50, 7.15}, Max: orb.Point{80.75, 7.40}}},
	{"Galle", orb.Bound{Min: orb.Point{80.10, 5.95}, Max: orb.Point{80.35, 6.20}}},
	{"Jaffna", orb.Bound{Min: orb.Point{79.90, 9.55}, Max: orb.Point{80.15, 9.80}}},
	{"Batticaloa", orb.Bound{Min: orb.Point{81.55, 7.60}, Max: orb.Point{81.85, 7.85}}},
	{"Negombo", orb.Bound{Min: orb.Point{79.80, 7.10}, Max: orb.Point{79.95, 7.30}}},
}

// Within reports whether the point falls inside the covered country.
func Within(lat, lng float64) bool {
	return countryBound.Contains(orb.Point{lng, lat})
}

// DistrictAt returns the metro district containing the point, or "" when the
// point is outside every known box.
func DistrictAt(lat, lng float64) string {
	p := orb.Point{lng, lat}
	for _, d := range districtBounds {
		if d.bound.Contains(p) {
			return d.name
		}
	}
	return ""
}
