package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/biztap/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleSession() *model.Session {
	rating := 4.5
	reviews := 87
	ok := true
	end := time.Date(2026, 8, 30, 10, 5, 0, 0, time.UTC)
	return &model.Session{
		ID:        "s-1",
		Query:     "restaurants",
		Location:  "Colombo",
		RadiusKm:  10,
		Status:    model.StatusCompleted,
		StartTime: time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC),
		EndTime:   &end,
		Results: []model.BusinessRecord{
			{
				Name:         "Ceylon Spice House",
				Category:     "Restaurant",
				Rating:       &rating,
				ReviewsCount: &reviews,
				Website:      "https://spicehouse.lk",
				WebsiteOK:    &ok,
				Address:      "42 Galle Road",
				Location:     &model.Location{Latitude: 6.9271, Longitude: 79.8612, District: "Colombo"},
				ExtractedAt:  time.Date(2026, 8, 30, 10, 1, 0, 0, time.UTC),
				PhoneNumbers: []model.PhoneNumber{
					{Raw: "011 234 5678", International: "+94112345678", Local: "0112345678", Region: "Colombo"},
					{Raw: "077 123 4567", International: "+94771234567", Local: "0771234567", IsMobile: true},
				},
			},
			{
				Name:        "Bare Minimum Kiosk",
				ExtractedAt: time.Date(2026, 8, 30, 10, 2, 0, 0, time.UTC),
			},
		},
		BusinessesFound:   2,
		PhoneNumbersFound: 2,
	}
}

func TestSaveAndGetSession(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SaveSession(sampleSession()))

	got, err := s.GetSession("s-1")
	require.NoError(t, err)

	assert.Equal(t, "restaurants", got.Query)
	assert.Equal(t, model.StatusCompleted, got.Status)
	require.NotNil(t, got.EndTime)
	assert.Equal(t, 2, got.BusinessesFound)
	require.Len(t, got.Results, 2)

	first := got.Results[0]
	assert.Equal(t, "Ceylon Spice House", first.Name)
	require.NotNil(t, first.Rating)
	assert.InDelta(t, 4.5, *first.Rating, 0.001)
	require.NotNil(t, first.WebsiteOK)
	assert.True(t, *first.WebsiteOK)
	require.NotNil(t, first.Location)
	assert.Equal(t, "Colombo", first.Location.District)
	require.Len(t, first.PhoneNumbers, 2)
	assert.Equal(t, "+94112345678", first.PhoneNumbers[0].International)
	assert.True(t, first.PhoneNumbers[1].IsMobile)

	second := got.Results[1]
	assert.Nil(t, second.Rating)
	assert.Nil(t, second.Location)
	assert.Empty(t, second.PhoneNumbers)
}

func TestSaveSessionIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	sess := sampleSession()
	require.NoError(t, s.SaveSession(sess))
	require.NoError(t, s.SaveSession(sess))

	got, err := s.GetSession("s-1")
	require.NoError(t, err)
	assert.Len(t, got.Results, 2)
}

func TestGetSessionMissing(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetSession("nope")
	require.Error(t, err)
}

func TestListSessionsNewestFirst(t *testing.T) {
	s := newTestStore(t)

	older := sampleSession()
	older.ID = "s-old"
	older.StartTime = time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveSession(older))
	require.NoError(t, s.SaveSession(sampleSession()))

	sessions, err := s.ListSessions()
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "s-1", sessions[0].ID)
	assert.Equal(t, "s-old", sessions[1].ID)
	// Summaries do not carry results.
	assert.Empty(t, sessions[0].Results)
}

func TestSavedLocations(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.SaveLocation(SavedLocation{Name: "home-turf", Location: "Colombo", RadiusKm: 10}))
	require.NoError(t, s.SaveLocation(SavedLocation{Name: "south-coast", Location: "Galle", RadiusKm: 25}))
	// Replace keeps one row per name.
	require.NoError(t, s.SaveLocation(SavedLocation{Name: "home-turf", Location: "Colombo", RadiusKm: 15}))

	locs, err := s.ListLocations()
	require.NoError(t, err)
	require.Len(t, locs, 2)
	assert.Equal(t, "home-turf", locs[0].Name)
	assert.Equal(t, 15.0, locs[0].RadiusKm)

	require.NoError(t, s.DeleteLocation("home-turf"))
	require.NoError(t, s.DeleteLocation("never-existed"))
	locs, err = s.ListLocations()
	require.NoError(t, err)
	require.Len(t, locs, 1)
}
