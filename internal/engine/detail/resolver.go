// Package detail turns one activated feed entry into its extended
// attributes. Every fragment is extracted independently; an absent fragment
// degrades the record, it never blocks the walk.
package detail

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rendis/biztap/internal/engine/browser"
	"github.com/rendis/biztap/internal/model"
	"github.com/rendis/biztap/internal/phone"
)

// Options bound the polling loops. All waits are finite.
type Options struct {
	ReadyAttempts      int
	ReadyDelay         time.Duration
	PhoneScrollRetries int
	PhoneScrollDelay   time.Duration
}

// DefaultOptions mirror the timing the host UI needs in practice.
func DefaultOptions() Options {
	return Options{
		ReadyAttempts:      10,
		ReadyDelay:         500 * time.Millisecond,
		PhoneScrollRetries: 3,
		PhoneScrollDelay:   400 * time.Millisecond,
	}
}

var (
	coordsRe    = regexp.MustCompile(`@(-?\d+\.\d+),(-?\d+\.\d+)`)
	thousandsRe = regexp.MustCompile(`\d{1,3}(?:,\d{3})*|\d+`)
)

// Resolver extracts extended attributes from an entry's detail surface.
type Resolver struct {
	surface browser.Surface
	norm    *phone.Normalizer
	opts    Options
	log     *zap.Logger

	// DistrictFn, when set, tags extracted coordinates with an area name.
	DistrictFn func(lat, lng float64) string
}

func NewResolver(surface browser.Surface, norm *phone.Normalizer, opts Options, log *zap.Logger) *Resolver {
	return &Resolver{surface: surface, norm: norm, opts: opts, log: log}
}

// FromEntry builds the compact-row record used when detail extraction is
// disabled or fails before the panel opens.
func FromEntry(e browser.Entry) model.BusinessRecord {
	return model.BusinessRecord{
		Name:         strings.TrimSpace(e.Name),
		Category:     e.Category,
		Rating:       e.Rating,
		ReviewsCount: e.ReviewsCount,
		ExtractedAt:  time.Now(),
	}
}

// Resolve activates the entry and extracts its detail surface. The returned
// record always carries at least the list-row fields; the error is non-nil
// only for context cancellation. The caller still owns the reverse
// navigation back to the list.
func (r *Resolver) Resolve(ctx context.Context, e browser.Entry) (model.BusinessRecord, error) {
	rec := FromEntry(e)

	if err := r.surface.OpenDetail(ctx, e); err != nil {
		if ctx.Err() != nil {
			return rec, ctx.Err()
		}
		r.log.Warn("could not activate entry", zap.String("name", e.Name), zap.Error(err))
		return rec, nil
	}

	if !r.waitReady(ctx) {
		if ctx.Err() != nil {
			return rec, ctx.Err()
		}
		r.log.Debug("detail surface not found, keeping list-row fields",
			zap.String("name", e.Name),
			zap.Int("attempts", r.opts.ReadyAttempts))
		return rec, nil
	}

	fields, err := r.surface.DetailFields(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return rec, ctx.Err()
		}
		r.log.Warn("detail extraction failed", zap.String("name", e.Name), zap.Error(err))
		return rec, nil
	}

	// Phone fragments can load lazily; scroll the panel and re-read.
	for retry := 0; len(fields.PhoneTexts) == 0 && retry < r.opts.PhoneScrollRetries; retry++ {
		if err := r.surface.ScrollDetail(ctx); err != nil {
			break
		}
		if !sleepCtx(ctx, r.opts.PhoneScrollDelay) {
			return rec, ctx.Err()
		}
		if refreshed, err := r.surface.DetailFields(ctx); err == nil {
			fields = refreshed
		}
	}

	r.populate(&rec, fields)
	return rec, nil
}

func (r *Resolver) waitReady(ctx context.Context) bool {
	for attempt := 0; attempt < r.opts.ReadyAttempts; attempt++ {
		if r.surface.DetailReady(ctx) {
			return true
		}
		if !sleepCtx(ctx, r.opts.ReadyDelay) {
			return false
		}
	}
	return false
}

func (r *Resolver) populate(rec *model.BusinessRecord, f browser.DetailFields) {
	seen := make(map[string]bool)
	for _, text := range f.PhoneTexts {
		candidates := r.norm.ExtractCandidates(text)
		if len(candidates) == 0 {
			candidates = []string{text}
		}
		for _, c := range candidates {
			num, ok := r.norm.Normalize(c)
			if !ok || seen[num.International] {
				continue
			}
			seen[num.International] = true
			rec.PhoneNumbers = append(rec.PhoneNumbers, num)
		}
	}

	if f.Website != "" {
		rec.Website = f.Website
	}
	if f.Address != "" {
		rec.Address = f.Address
	}
	if n, ok := parseReviewsCount(f.ReviewsText); ok {
		rec.ReviewsCount = &n
	}
	if loc, ok := parseCoords(f.ViewURL); ok {
		if r.DistrictFn != nil {
			loc.District = r.DistrictFn(loc.Latitude, loc.Longitude)
		}
		rec.Location = &loc
	}
}

// parseReviewsCount pulls a thousands-separated integer out of surrounding
// text such as "1,204 reviews".
func parseReviewsCount(text string) (int, bool) {
	m := thousandsRe.FindString(text)
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(strings.ReplaceAll(m, ",", ""))
	if err != nil {
		return 0, false
	}
	return n, true
}

// parseCoords extracts the two floating-point groups from the addressable
// location string.
func parseCoords(viewURL string) (model.Location, bool) {
	m := coordsRe.FindStringSubmatch(viewURL)
	if m == nil {
		return model.Location{}, false
	}
	lat, err1 := strconv.ParseFloat(m[1], 64)
	lng, err2 := strconv.ParseFloat(m[2], 64)
	if err1 != nil || err2 != nil {
		return model.Location{}, false
	}
	return model.Location{Latitude: lat, Longitude: lng}, true
}

// sleepCtx waits for d unless the context ends first. Reports whether the
// full delay elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
