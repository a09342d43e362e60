// Package browsertest provides a scripted in-memory Surface for pipeline
// tests: a finite list of businesses behind a virtualized window, with
// controllable failure modes.
package browsertest

import (
	"context"
	"errors"

	"github.com/rendis/biztap/internal/engine/browser"
)

// Business scripts one feed entry and its detail surface.
type Business struct {
	ID           string
	Name         string
	Category     string
	Rating       *float64
	ReviewsCount *int

	Detail browser.DetailFields

	// ReadyAfterPolls delays DetailReady by that many polls; negative means
	// the detail surface never appears.
	ReadyAfterPolls int

	// FailOpen makes OpenDetail return an error for this entry.
	FailOpen bool
}

// Surface implements browser.Surface over scripted data.
type Surface struct {
	Businesses []Business

	// Window is how many entries are rendered at once; 0 renders everything.
	Window int
	// ScrollStep advances the window per ScrollFeed; defaults to 2.
	ScrollStep int
	// Total is the header estimate; 0 means the header is absent.
	Total int

	FailFeed   bool // OpenFeed reports the feed container missing
	FailSearch bool // OpenFeed reports the search box missing
	NoBack     bool // CloseDetail reports the reverse action unavailable

	Query        string
	ScrollCount  int
	CloseCalls   int
	Closed       bool
	openedIdx    int
	readyPolls   int
	pos          int
	feedOpened   bool
}

func (s *Surface) OpenFeed(_ context.Context, query string) error {
	if s.FailSearch {
		return browser.ErrSearchBoxNotFound
	}
	if s.FailFeed {
		return browser.ErrFeedNotFound
	}
	s.Query = query
	s.feedOpened = true
	s.openedIdx = -1
	s.pos = 0
	return nil
}

func (s *Surface) ListEntries(_ context.Context) ([]browser.Entry, error) {
	if !s.feedOpened {
		return nil, browser.ErrFeedNotFound
	}
	start, end := s.window()
	entries := make([]browser.Entry, 0, end-start)
	for _, b := range s.Businesses[start:end] {
		entries = append(entries, browser.Entry{
			ID:           b.ID,
			Name:         b.Name,
			Category:     b.Category,
			Rating:       b.Rating,
			ReviewsCount: b.ReviewsCount,
		})
	}
	return entries, nil
}

func (s *Surface) window() (int, int) {
	if s.Window <= 0 {
		return 0, len(s.Businesses)
	}
	start := s.pos
	if start > len(s.Businesses) {
		start = len(s.Businesses)
	}
	end := start + s.Window
	if end > len(s.Businesses) {
		end = len(s.Businesses)
	}
	return start, end
}

func (s *Surface) ScrollFeed(_ context.Context) error {
	s.ScrollCount++
	step := s.ScrollStep
	if step <= 0 {
		step = 2
	}
	if s.Window > 0 && s.pos+s.Window < len(s.Businesses) {
		s.pos += step
		if s.pos+s.Window > len(s.Businesses) {
			s.pos = len(s.Businesses) - s.Window
		}
	}
	return nil
}

func (s *Surface) TotalEstimate(_ context.Context) (int, bool) {
	if s.Total > 0 {
		return s.Total, true
	}
	return 0, false
}

func (s *Surface) OpenDetail(_ context.Context, e browser.Entry) error {
	for i, b := range s.Businesses {
		if b.ID == e.ID {
			if b.FailOpen {
				return errors.New("browsertest: scripted open failure")
			}
			s.openedIdx = i
			s.readyPolls = 0
			return nil
		}
	}
	return errors.New("browsertest: unknown entry")
}

func (s *Surface) DetailReady(_ context.Context) bool {
	if s.openedIdx < 0 {
		return false
	}
	b := s.Businesses[s.openedIdx]
	if b.ReadyAfterPolls < 0 {
		return false
	}
	s.readyPolls++
	return s.readyPolls > b.ReadyAfterPolls
}

func (s *Surface) ScrollDetail(_ context.Context) error { return nil }

func (s *Surface) DetailFields(_ context.Context) (browser.DetailFields, error) {
	if s.openedIdx < 0 {
		return browser.DetailFields{}, errors.New("browsertest: no detail open")
	}
	return s.Businesses[s.openedIdx].Detail, nil
}

func (s *Surface) CloseDetail(_ context.Context) error {
	s.CloseCalls++
	s.openedIdx = -1
	if s.NoBack {
		return browser.ErrBackUnavailable
	}
	return nil
}

func (s *Surface) Close() error {
	s.Closed = true
	return nil
}
