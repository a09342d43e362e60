package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/biztap/internal/model"
)

func exportSession() *model.Session {
	rating := 4.5
	reviews := 1204
	return &model.Session{
		ID:     "s-1",
		Query:  "restaurants",
		Status: model.StatusCompleted,
		Results: []model.BusinessRecord{
			{
				Name:         "Ceylon Spice, House", // embedded comma must survive
				Category:     "Restaurant",
				Rating:       &rating,
				ReviewsCount: &reviews,
				Website:      "https://spicehouse.lk",
				Address:      "42 Galle Road",
				Location:     &model.Location{Latitude: 6.9271, Longitude: 79.8612, District: "Colombo"},
				ExtractedAt:  time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC),
				PhoneNumbers: []model.PhoneNumber{
					{International: "+94112345678", Local: "0112345678", Region: "Colombo"},
					{International: "+94771234567", Local: "0771234567", IsMobile: true},
				},
			},
			{
				Name:        "No Phone Noodles",
				ExtractedAt: time.Date(2026, 8, 30, 10, 1, 0, 0, time.UTC),
			},
		},
	}
}

func TestWriteCSVOneRowPerPhone(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, exportSession()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4) // header + 2 phones + 1 phone-less

	assert.Equal(t, csvHeader, rows[0])

	first := rows[1]
	assert.Equal(t, "Ceylon Spice, House", first[0])
	assert.Equal(t, "+94112345678", first[1])
	assert.Equal(t, "0112345678", first[2])
	assert.Equal(t, "false", first[3])
	assert.Equal(t, "Colombo", first[4])
	assert.Equal(t, "4.5", first[6])
	assert.Equal(t, "1204", first[7])
	assert.Equal(t, "6.927100", first[10])

	second := rows[2]
	assert.Equal(t, "+94771234567", second[1])
	assert.Equal(t, "true", second[3])

	// The phone-less business still exports, with empty phone columns.
	last := rows[3]
	assert.Equal(t, "No Phone Noodles", last[0])
	assert.Equal(t, "", last[1])
	assert.Equal(t, "", last[3])
}

func TestWriteCSVEmptySession(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, &model.Session{ID: "empty"}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1) // header only
}

func TestWriteJSONRoundTrips(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, exportSession()))

	var got model.Session
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "s-1", got.ID)
	assert.Equal(t, model.StatusCompleted, got.Status)
	require.Len(t, got.Results, 2)
	assert.Equal(t, "Ceylon Spice, House", got.Results[0].Name)
	require.Len(t, got.Results[0].PhoneNumbers, 2)
}
