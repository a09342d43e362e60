// Package export writes session results as CSV or JSON.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/rendis/biztap/internal/model"
)

// csvHeader is the stable column order. One row per phone number; a business
// without phones still gets one row with the phone columns empty.
var csvHeader = []string{
	"name", "phone", "phone_local", "is_mobile", "region",
	"category", "rating", "reviews_count", "website", "address",
	"latitude", "longitude",
}

// WriteCSV renders the session's results. Quoting is handled by the csv
// writer, so free-text fields with commas or newlines round-trip.
func WriteCSV(w io.Writer, sess *model.Session) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return eris.Wrap(err, "export: writing header")
	}

	for _, rec := range sess.Results {
		rows := phoneRows(rec)
		for _, row := range rows {
			if err := cw.Write(row); err != nil {
				return eris.Wrapf(err, "export: writing row for %q", rec.Name)
			}
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return eris.Wrap(err, "export: flushing csv")
	}
	return nil
}

func phoneRows(rec model.BusinessRecord) [][]string {
	base := func(p *model.PhoneNumber) []string {
		phone, local, mobile, region := "", "", "", ""
		if p != nil {
			phone = p.International
			local = p.Local
			mobile = strconv.FormatBool(p.IsMobile)
			region = p.Region
		}
		rating := ""
		if rec.Rating != nil {
			rating = fmt.Sprintf("%.1f", *rec.Rating)
		}
		reviews := ""
		if rec.ReviewsCount != nil {
			reviews = strconv.Itoa(*rec.ReviewsCount)
		}
		lat, lng := "", ""
		if rec.Location != nil {
			lat = fmt.Sprintf("%.6f", rec.Location.Latitude)
			lng = fmt.Sprintf("%.6f", rec.Location.Longitude)
		}
		return []string{
			rec.Name, phone, local, mobile, region,
			rec.Category, rating, reviews, rec.Website, rec.Address,
			lat, lng,
		}
	}

	if len(rec.PhoneNumbers) == 0 {
		return [][]string{base(nil)}
	}
	rows := make([][]string, 0, len(rec.PhoneNumbers))
	for i := range rec.PhoneNumbers {
		rows = append(rows, base(&rec.PhoneNumbers[i]))
	}
	return rows
}

// WriteJSON renders the full session envelope, results included.
func WriteJSON(w io.Writer, sess *model.Session) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(sess); err != nil {
		return eris.Wrap(err, "export: encoding json")
	}
	return nil
}
