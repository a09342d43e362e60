package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/rendis/biztap/internal/config"
	"github.com/rendis/biztap/internal/engine/browser"
	"github.com/rendis/biztap/internal/engine/geo"
	"github.com/rendis/biztap/internal/engine/probe"
	"github.com/rendis/biztap/internal/engine/session"
	"github.com/rendis/biztap/internal/model"
	"github.com/rendis/biztap/internal/phone"
	"github.com/rendis/biztap/internal/storage"
	"github.com/rendis/biztap/internal/tui"
)

func runExtract(args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	var (
		query, location, savedLoc, dbPath string
		radius                            float64
		withTUI, headed                   bool
	)
	params := model.ExtractParams{
		MaxEntries:        cfg.Extraction.MaxEntries,
		ScrollDelay:       cfg.Extraction.ScrollDelay(),
		MaxScrollAttempts: cfg.Extraction.MaxScrollAttempts,
		ExtractDetails:    cfg.Extraction.ExtractDetails,
		RequirePhone:      cfg.Extraction.RequirePhone,
		VerifyWebsites:    cfg.Extraction.VerifyWebsites,
		Headless:          cfg.Browser.Headless,
	}

	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	fs.StringVar(&query, "query", "", "Search term, e.g. \"restaurants\" (required)")
	fs.StringVar(&location, "location", "", "Named location, e.g. \"Colombo\"")
	fs.StringVar(&savedLoc, "use-location", "", "Use a saved location template by name")
	fs.Float64Var(&radius, "radius", 10, "Search radius in km")
	fs.IntVar(&params.MaxEntries, "max", params.MaxEntries, "Max businesses to extract")
	fs.IntVar(&params.MaxScrollAttempts, "max-scrolls", params.MaxScrollAttempts, "Unproductive scrolls before giving up")
	fs.BoolVar(&params.ExtractDetails, "details", params.ExtractDetails, "Open each entry for full details")
	fs.BoolVar(&params.RequirePhone, "require-phone", params.RequirePhone, "Drop businesses without a valid phone")
	fs.BoolVar(&params.VerifyWebsites, "verify-websites", params.VerifyWebsites, "Probe extracted websites")
	fs.BoolVar(&headed, "headed", false, "Run the browser with a visible window")
	fs.StringVar(&dbPath, "db", "", "Session database path (default: <output.dir>/biztap.db)")
	fs.BoolVar(&withTUI, "tui", false, "Show the live progress view")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: biztap extract [flags]\n\nFlags:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  biztap extract -query restaurants -location Colombo\n")
		fmt.Fprintf(os.Stderr, "  biztap extract -query pharmacies -location Kandy -radius 25 -max 200 -tui\n")
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if query == "" {
		return fmt.Errorf("-query is required")
	}

	if err := config.InitLogger(cfg.Log); err != nil {
		return err
	}
	defer zap.L().Sync()
	log := zap.L()

	if err := os.MkdirAll(cfg.Output.Dir, 0755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}
	if dbPath == "" {
		dbPath = filepath.Join(cfg.Output.Dir, "biztap.db")
	}

	store, err := storage.NewStore(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	if savedLoc != "" {
		locs, err := store.ListLocations()
		if err != nil {
			return err
		}
		found := false
		for _, l := range locs {
			if l.Name == savedLoc {
				location = l.Location
				radius = l.RadiusKm
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("saved location %q not found (see 'biztap locations')", savedLoc)
		}
	}

	params.Query = query
	params.Location = location
	params.RadiusKm = radius
	params.DBPath = dbPath
	if headed {
		params.Headless = false
	}

	norm := phone.NewNormalizer(phone.DefaultPlan(), phone.Options{
		Validate:             cfg.Phone.Validate,
		ConvertInternational: cfg.Phone.ConvertInternational,
		IncludeLocal:         cfg.Phone.IncludeLocalFormat,
		IdentifyType:         cfg.Phone.IdentifyNumberType,
	})

	deps := session.Deps{
		NewSurface: func(_ context.Context, p model.ExtractParams) (browser.Surface, error) {
			return browser.NewPlaywright(browser.PlaywrightOptions{Headless: p.Headless}, log)
		},
		Normalizer: norm,
		Geocoder:   geo.NewGeocoder(),
		Store:      store,
		Log:        log,
	}
	if params.VerifyWebsites {
		deps.Verifier = probe.NewVerifier()
	}
	mgr := session.NewManager(deps)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nStopping gracefully...")
		mgr.Stop()
	}()

	var final *model.Session
	if withTUI {
		final, err = tui.Run(ctx, mgr, params)
		if err != nil {
			return err
		}
	} else {
		final, err = runHeadless(ctx, mgr, params)
		if err != nil {
			return err
		}
	}

	printSummary(final, dbPath)
	if final.Status == model.StatusError {
		return fmt.Errorf("extraction failed: %s", final.Error)
	}
	return nil
}

// runHeadless drives the session with a stderr progress line.
func runHeadless(ctx context.Context, mgr *session.Manager, params model.ExtractParams) (*model.Session, error) {
	var current, total, scrolls atomic.Int64
	startTime := time.Now()

	_, err := mgr.Start(ctx, params, session.RunOptions{
		OnProgress: func(p model.Progress) {
			current.Store(int64(p.Current))
			total.Store(int64(p.Total))
			scrolls.Store(int64(p.ScrollAttempts))
		},
	})
	if err != nil {
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				elapsed := time.Since(startTime).Truncate(time.Second)
				fmt.Fprintf(os.Stderr, "\r[%d/~%d businesses] %d dry scrolls | %s",
					current.Load(), total.Load(), scrolls.Load(), elapsed)
			case <-done:
				return
			}
		}
	}()

	mgr.Wait()
	close(done)
	fmt.Fprintln(os.Stderr)

	final, _ := mgr.Status()
	return &final, nil
}

func printSummary(s *model.Session, dbPath string) {
	duration := ""
	if s.EndTime != nil {
		duration = s.EndTime.Sub(s.StartTime).Truncate(time.Second).String()
	}
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "══════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Extraction %s\n", s.Status)
	fmt.Fprintf(os.Stderr, "══════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Query:      %s\n", s.Query)
	if s.Location != "" {
		fmt.Fprintf(os.Stderr, "  Location:   %s (r=%.1fkm)\n", s.Location, s.RadiusKm)
	}
	fmt.Fprintf(os.Stderr, "  Businesses: %d\n", s.BusinessesFound)
	fmt.Fprintf(os.Stderr, "  Phones:     %d\n", s.PhoneNumbersFound)
	fmt.Fprintf(os.Stderr, "  Duration:   %s\n", duration)
	fmt.Fprintf(os.Stderr, "  Session:    %s\n", s.ID)
	fmt.Fprintf(os.Stderr, "  Database:   %s\n", dbPath)
	fmt.Fprintf(os.Stderr, "══════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "Export with: biztap export -db %s -session %s\n", dbPath, s.ID)
}
