package walker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rendis/biztap/internal/engine/browser"
	"github.com/rendis/biztap/internal/engine/browser/browsertest"
	"github.com/rendis/biztap/internal/engine/detail"
	"github.com/rendis/biztap/internal/model"
	"github.com/rendis/biztap/internal/phone"
)

func testConfig() Config {
	return Config{
		MaxEntries:        10,
		ScrollDelay:       time.Millisecond,
		MaxScrollAttempts: 5,
		ExtractDetails:    true,
	}
}

func fastResolverOpts() detail.Options {
	return detail.Options{
		ReadyAttempts:      3,
		ReadyDelay:         time.Millisecond,
		PhoneScrollRetries: 1,
		PhoneScrollDelay:   time.Millisecond,
	}
}

func newWalker(t *testing.T, s *browsertest.Surface, cfg Config) *Walker {
	t.Helper()
	norm := phone.NewNormalizer(phone.DefaultPlan(), phone.DefaultOptions())
	r := detail.NewResolver(s, norm, fastResolverOpts(), zap.NewNop())
	return New(s, r, cfg, zap.NewNop())
}

func scriptedBusiness(id, name, phoneText string) browsertest.Business {
	return browsertest.Business{
		ID:   id,
		Name: name,
		Detail: browser.DetailFields{
			PhoneTexts: []string{phoneText},
			Address:    "1 Main St",
		},
	}
}

func openFeed(t *testing.T, s *browsertest.Surface) {
	t.Helper()
	require.NoError(t, s.OpenFeed(context.Background(), "restaurants in Colombo"))
}

func TestWalkDeduplicatesByName(t *testing.T) {
	s := &browsertest.Surface{
		Businesses: []browsertest.Business{
			scriptedBusiness("a", "Cafe Nova", "011 234 5678"),
			scriptedBusiness("b", "  cafe nova ", "077 123 4567"),
			scriptedBusiness("c", "Other Place", "091 222 3344"),
		},
	}
	openFeed(t, s)

	w := newWalker(t, s, testConfig())
	require.NoError(t, w.Walk(context.Background()))

	results := w.Results()
	require.Len(t, results, 2)
	assert.Equal(t, "Cafe Nova", results[0].Name)
	assert.Equal(t, "Other Place", results[1].Name)
	// First writer wins: the duplicate's phone was not merged in.
	require.Len(t, results[0].PhoneNumbers, 1)
	assert.Equal(t, "+94112345678", results[0].PhoneNumbers[0].International)
}

func TestWalkStopsAtCap(t *testing.T) {
	var businesses []browsertest.Business
	for _, n := range []string{"A", "B", "C", "D", "E", "F", "G", "H", "I", "J", "K", "L"} {
		businesses = append(businesses, scriptedBusiness(n, "Shop "+n, "077 123 4567"))
	}
	s := &browsertest.Surface{Businesses: businesses, Window: 4, ScrollStep: 2}
	openFeed(t, s)

	cfg := testConfig()
	cfg.MaxEntries = 5
	w := newWalker(t, s, cfg)
	require.NoError(t, w.Walk(context.Background()))
	assert.Len(t, w.Results(), 5)
}

func TestWalkTerminatesOnExhaustedFeed(t *testing.T) {
	// One fewer unique entry than the cap: the walk must still terminate via
	// the unproductive-scroll bound, not loop forever.
	var businesses []browsertest.Business
	for _, n := range []string{"A", "B", "C", "D", "E", "F", "G", "H", "I"} {
		businesses = append(businesses, scriptedBusiness(n, "Shop "+n, "077 123 4567"))
	}
	s := &browsertest.Surface{Businesses: businesses, Window: 3, ScrollStep: 2}
	openFeed(t, s)

	cfg := testConfig()
	cfg.MaxEntries = 10
	cfg.MaxScrollAttempts = 4

	done := make(chan error, 1)
	w := newWalker(t, s, cfg)
	go func() { done <- w.Walk(context.Background()) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("walk did not terminate")
	}
	assert.Len(t, w.Results(), 9)
}

func TestWalkObservesStopBetweenPasses(t *testing.T) {
	var businesses []browsertest.Business
	for _, n := range []string{"A", "B", "C", "D", "E", "F", "G", "H", "I", "J",
		"K", "L", "M", "N", "O", "P", "Q", "R", "S", "T"} {
		businesses = append(businesses, scriptedBusiness(n, "Shop "+n, "077 123 4567"))
	}
	s := &browsertest.Surface{Businesses: businesses, Window: 1, ScrollStep: 1}
	openFeed(t, s)

	cfg := testConfig()
	cfg.MaxEntries = 20

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := newWalker(t, s, cfg)
	w.OnPass = func(p model.Progress) {
		// A stop request lands mid-run; the walk must observe it within one
		// pass, with the in-flight entry finished, never mid-entry.
		if p.Current == 3 {
			cancel()
		}
	}

	err := w.Walk(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Len(t, w.Results(), 3)
}

func TestWalkDegradesWhenDetailUnavailable(t *testing.T) {
	rating := 4.5
	s := &browsertest.Surface{
		Businesses: []browsertest.Business{
			{
				ID:              "a",
				Name:            "Hidden Panel Cafe",
				Rating:          &rating,
				ReadyAfterPolls: -1, // detail surface never appears
			},
			{
				ID:       "b",
				Name:     "Broken Click Bar",
				FailOpen: true,
			},
		},
	}
	openFeed(t, s)

	w := newWalker(t, s, testConfig())
	require.NoError(t, w.Walk(context.Background()))

	results := w.Results()
	require.Len(t, results, 2)
	// List-row fields survive even though the detail extraction went nowhere.
	assert.Equal(t, "Hidden Panel Cafe", results[0].Name)
	require.NotNil(t, results[0].Rating)
	assert.InDelta(t, 4.5, *results[0].Rating, 0.001)
	assert.Empty(t, results[0].PhoneNumbers)
	assert.Equal(t, "Broken Click Bar", results[1].Name)
}

func TestWalkContinuesWithoutBackNavigation(t *testing.T) {
	s := &browsertest.Surface{
		Businesses: []browsertest.Business{
			scriptedBusiness("a", "First", "011 234 5678"),
			scriptedBusiness("b", "Second", "077 123 4567"),
		},
		NoBack: true,
	}
	openFeed(t, s)

	w := newWalker(t, s, testConfig())
	require.NoError(t, w.Walk(context.Background()))
	assert.Len(t, w.Results(), 2)
}

func TestWalkRequirePhoneFilter(t *testing.T) {
	noPhone := browsertest.Business{
		ID:     "a",
		Name:   "Silent Shop",
		Detail: browser.DetailFields{Address: "2 Side St"},
	}
	s := &browsertest.Surface{
		Businesses: []browsertest.Business{
			noPhone,
			scriptedBusiness("b", "Reachable Shop", "077 123 4567"),
		},
	}
	openFeed(t, s)

	cfg := testConfig()
	cfg.RequirePhone = true
	w := newWalker(t, s, cfg)
	require.NoError(t, w.Walk(context.Background()))

	results := w.Results()
	require.Len(t, results, 1)
	assert.Equal(t, "Reachable Shop", results[0].Name)
}

func TestWalkListRowOnlyWhenDetailsDisabled(t *testing.T) {
	s := &browsertest.Surface{
		Businesses: []browsertest.Business{
			scriptedBusiness("a", "Row Only", "077 123 4567"),
		},
	}
	openFeed(t, s)

	cfg := testConfig()
	cfg.ExtractDetails = false
	w := newWalker(t, s, cfg)
	require.NoError(t, w.Walk(context.Background()))

	results := w.Results()
	require.Len(t, results, 1)
	assert.Empty(t, results[0].PhoneNumbers)
	assert.Empty(t, results[0].Address)
	assert.Zero(t, s.CloseCalls)
}

func TestWalkTotalEstimateFallback(t *testing.T) {
	s := &browsertest.Surface{
		Businesses: []browsertest.Business{
			scriptedBusiness("a", "One", "077 123 4567"),
			scriptedBusiness("b", "Two", "011 234 5678"),
		},
	}
	openFeed(t, s)

	var totals []int
	w := newWalker(t, s, testConfig())
	w.OnPass = func(p model.Progress) { totals = append(totals, p.Total) }
	require.NoError(t, w.Walk(context.Background()))

	// No header: estimate is max(2 x visible, 20).
	require.NotEmpty(t, totals)
	assert.Equal(t, 20, totals[0])
}

func TestWalkUsesHeaderTotal(t *testing.T) {
	s := &browsertest.Surface{
		Businesses: []browsertest.Business{
			scriptedBusiness("a", "One", "077 123 4567"),
		},
		Total: 240,
	}
	openFeed(t, s)

	var totals []int
	w := newWalker(t, s, testConfig())
	w.OnPass = func(p model.Progress) { totals = append(totals, p.Total) }
	require.NoError(t, w.Walk(context.Background()))

	require.NotEmpty(t, totals)
	assert.Equal(t, 240, totals[0])
}
