// Package browser abstracts the host UI behind a small capability surface
// so that adapting to changed markup means rewriting one adapter, not the
// pipeline.
package browser

import (
	"context"
	"errors"
)

// Structural errors: the host UI is missing a load-bearing element. These
// are fatal to the session; everything else the adapters report is
// recoverable.
var (
	ErrSearchBoxNotFound = errors.New("browser: search box not found")
	ErrFeedNotFound      = errors.New("browser: results feed not found")
	ErrBackUnavailable   = errors.New("browser: back navigation unavailable")
)

// Entry is one rendered row of the results feed. ID is stable across
// re-renders of the virtualized list.
type Entry struct {
	ID           string
	Name         string
	Category     string
	Rating       *float64
	ReviewsCount *int
}

// DetailFields are the raw fragments scraped from an open detail surface.
// Any field may be empty; extraction tolerates individual absences.
type DetailFields struct {
	PhoneTexts  []string
	Website     string
	Address     string
	ReviewsText string
	ViewURL     string // addressable location string, carries @lat,lng
}

// Surface is a live handle to the host UI. Implementations are not safe for
// concurrent use; the pipeline drives them from a single control flow.
type Surface interface {
	// OpenFeed navigates to the host, issues the query, and waits for the
	// results feed. Returns ErrSearchBoxNotFound or ErrFeedNotFound when the
	// UI is structurally absent.
	OpenFeed(ctx context.Context, query string) error

	// ListEntries returns the currently rendered entries. Callers own
	// processed-marking; the same entry may be returned on successive calls.
	ListEntries(ctx context.Context) ([]Entry, error)

	// ScrollFeed issues one scroll-forward step on the feed container.
	ScrollFeed(ctx context.Context) error

	// TotalEstimate reads the results-count header if present.
	TotalEstimate(ctx context.Context) (int, bool)

	// OpenDetail activates an entry's detail surface.
	OpenDetail(ctx context.Context, e Entry) error

	// DetailReady reports whether any of the detail marker elements is
	// visible. The host exposes the same panel through different markup
	// depending on entry type.
	DetailReady(ctx context.Context) bool

	// ScrollDetail scrolls the open detail panel; some fragments load lazily.
	ScrollDetail(ctx context.Context) error

	// DetailFields extracts the raw extended attributes of the open panel.
	DetailFields(ctx context.Context) (DetailFields, error)

	// CloseDetail navigates back to the list view. Returns
	// ErrBackUnavailable when the reverse action is missing; the walk must
	// still attempt to continue.
	CloseDetail(ctx context.Context) error

	Close() error
}
