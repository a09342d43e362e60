package geo

import (
	"math"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
)

// SubdivideThresholdKm is the largest radius walked as a single search; the
// host UI stops surfacing new entries well before a wider area is exhausted.
const SubdivideThresholdKm = 20.0

// Circle is one search area: a center and a radius in kilometers.
type Circle struct {
	Center   Point
	RadiusKm float64
}

// Subdivide splits a search circle into sub-circles of at most maxKm radius.
// A radius at or under the threshold comes back unchanged as a single circle.
// Sub-centers are laid on a grid spaced so neighbouring circles overlap,
// then filtered to the original circle.
func Subdivide(center Point, radiusKm, maxKm float64) []Circle {
	if maxKm <= 0 {
		maxKm = SubdivideThresholdKm
	}
	if radiusKm <= maxKm {
		return []Circle{{Center: center, RadiusKm: radiusKm}}
	}

	// Step under maxKm*sqrt(2) guarantees the square grid cells are covered
	// by their circles.
	stepKm := maxKm * 1.4
	latStep := stepKm / 110.574
	lngStep := stepKm / (111.320 * math.Cos(center.Lat*math.Pi/180.0))
	latSpan := radiusKm / 110.574
	lngSpan := radiusKm / (111.320 * math.Cos(center.Lat*math.Pi/180.0))

	origin := orb.Point{center.Lng, center.Lat}
	var circles []Circle
	for lat := center.Lat - latSpan; lat <= center.Lat+latSpan+latStep/2; lat += latStep {
		for lng := center.Lng - lngSpan; lng <= center.Lng+lngSpan+lngStep/2; lng += lngStep {
			distKm := orbgeo.Distance(origin, orb.Point{lng, lat}) / 1000.0
			if distKm > radiusKm {
				continue
			}
			circles = append(circles, Circle{
				Center:   Point{Lat: lat, Lng: lng},
				RadiusKm: maxKm,
			})
		}
	}
	if len(circles) == 0 {
		circles = []Circle{{Center: center, RadiusKm: maxKm}}
	}
	return circles
}
