package geo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// knownCities short-circuits geocoding for the locations people actually
// search. Keys are lowercase.
var knownCities = map[string]Point{
	"colombo":    {6.9271, 79.8612},
	"kandy":      {7.2906, 80.6337},
	"galle":      {6.0535, 80.2210},
	"jaffna":     {9.6615, 80.0255},
	"batticaloa": {7.7170, 81.7000},
	"negombo":    {7.2008, 79.8737},
	"matara":     {5.9549, 80.5550},
	"kurunegala": {7.4863, 80.3647},
	"anuradhapura": {8.3114, 80.4037},
	"trincomalee":  {8.5874, 81.2152},
}

type nominatimResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Geocoder resolves free-form location names to coordinates. Known cities
// resolve from the local table; everything else goes to the OSM Nominatim
// API, restricted to Sri Lanka.
type Geocoder struct {
	client  *http.Client
	baseURL string
}

func NewGeocoder() *Geocoder {
	return &Geocoder{
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: "https://nominatim.openstreetmap.org",
	}
}

// ResolveLocation maps a location name to a center point.
func (g *Geocoder) ResolveLocation(ctx context.Context, name string) (Point, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if p, ok := knownCities[key]; ok {
		return p, nil
	}

	u := g.baseURL + "/search?" + url.Values{
		"q":            {name},
		"format":       {"json"},
		"limit":        {"1"},
		"countrycodes": {"lk"},
	}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Point{}, eris.Wrap(err, "geo: creating geocoding request")
	}
	req.Header.Set("User-Agent", "biztap/0.1 (business directory extractor)")

	resp, err := g.client.Do(req)
	if err != nil {
		return Point{}, eris.Wrap(err, "geo: geocoding request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Point{}, eris.Errorf("geo: geocoder returned status %d", resp.StatusCode)
	}

	var results []nominatimResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return Point{}, eris.Wrap(err, "geo: decoding geocoding response")
	}
	if len(results) == 0 {
		return Point{}, eris.Errorf("geo: location %q not found", name)
	}

	lat, err1 := strconv.ParseFloat(results[0].Lat, 64)
	lng, err2 := strconv.ParseFloat(results[0].Lon, 64)
	if err1 != nil || err2 != nil {
		return Point{}, eris.New("geo: invalid coordinates from geocoder")
	}
	return Point{Lat: lat, Lng: lng}, nil
}
