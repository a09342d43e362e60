package geo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistrictAt(t *testing.T) {
	assert.Equal(t, "Colombo", DistrictAt(6.9271, 79.8612))
	assert.Equal(t, "Kandy", DistrictAt(7.2906, 80.6337))
	assert.Equal(t, "Galle", DistrictAt(6.0535, 80.2210))
	assert.Equal(t, "Jaffna", DistrictAt(9.6615, 80.0255))
	// Inland point away from every metro box.
	assert.Equal(t, "", DistrictAt(6.5, 81.0))
}

func TestWithin(t *testing.T) {
	assert.True(t, Within(6.9271, 79.8612))
	assert.True(t, Within(9.6615, 80.0255))
	assert.False(t, Within(-33.8688, 151.2093))
	assert.False(t, Within(13.0827, 80.2707)) // Chennai, just across the strait
}

func TestResolveLocationKnownCity(t *testing.T) {
	g := NewGeocoder()
	p, err := g.ResolveLocation(context.Background(), "  Colombo ")
	require.NoError(t, err)
	assert.InDelta(t, 6.9271, p.Lat, 0.0001)
	assert.InDelta(t, 79.8612, p.Lng, 0.0001)
}

func TestResolveLocationGeocoderFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Hikkaduwa", r.URL.Query().Get("q"))
		assert.Equal(t, "lk", r.URL.Query().Get("countrycodes"))
		w.Write([]byte(`[{"lat":"6.1395","lon":"80.1063","display_name":"Hikkaduwa, Sri Lanka"}]`))
	}))
	defer srv.Close()

	g := &Geocoder{client: srv.Client(), baseURL: srv.URL}
	p, err := g.ResolveLocation(context.Background(), "Hikkaduwa")
	require.NoError(t, err)
	assert.InDelta(t, 6.1395, p.Lat, 0.0001)
	assert.InDelta(t, 80.1063, p.Lng, 0.0001)
}

func TestResolveLocationNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	g := &Geocoder{client: srv.Client(), baseURL: srv.URL}
	_, err := g.ResolveLocation(context.Background(), "Atlantis")
	require.Error(t, err)
}

func TestSubdivideSmallRadiusUnchanged(t *testing.T) {
	center := Point{Lat: 6.9271, Lng: 79.8612}
	circles := Subdivide(center, 10, SubdivideThresholdKm)
	require.Len(t, circles, 1)
	assert.Equal(t, center, circles[0].Center)
	assert.Equal(t, 10.0, circles[0].RadiusKm)
}

func TestSubdivideLargeRadius(t *testing.T) {
	center := Point{Lat: 6.9271, Lng: 79.8612}
	circles := Subdivide(center, 50, SubdivideThresholdKm)
	require.Greater(t, len(circles), 1)

	origin := orb.Point{center.Lng, center.Lat}
	for _, c := range circles {
		assert.Equal(t, SubdivideThresholdKm, c.RadiusKm)
		dist := orbgeo.Distance(origin, orb.Point{c.Center.Lng, c.Center.Lat}) / 1000.0
		assert.LessOrEqual(t, dist, 50.0)
	}
}
