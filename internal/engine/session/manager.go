// Package session runs one extraction end to end: it owns the lifecycle
// state machine, the single-run guard, progress and completion callbacks,
// and persistence of terminal sessions.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/rendis/biztap/internal/engine/browser"
	"github.com/rendis/biztap/internal/engine/detail"
	"github.com/rendis/biztap/internal/engine/geo"
	"github.com/rendis/biztap/internal/engine/probe"
	"github.com/rendis/biztap/internal/engine/walker"
	"github.com/rendis/biztap/internal/model"
	"github.com/rendis/biztap/internal/phone"
	"github.com/rendis/biztap/internal/storage"
)

// ErrAlreadyRunning rejects a start while another session is in progress.
// Starts are rejected, never queued.
var ErrAlreadyRunning = eris.New("session: extraction already in progress")

// SurfaceFactory opens the browsing surface for one session.
type SurfaceFactory func(ctx context.Context, params model.ExtractParams) (browser.Surface, error)

// RunOptions provides optional callbacks for one run.
type RunOptions struct {
	// OnProgress is called at most once per scroll cycle.
	OnProgress func(model.Progress)
	// OnComplete is called exactly once, on the terminal transition, with the
	// frozen session.
	OnComplete func(*model.Session)
}

// Deps wires the manager's collaborators. NewSurface, Normalizer, and Log
// are required; the rest are optional.
type Deps struct {
	NewSurface SurfaceFactory
	Normalizer *phone.Normalizer
	Geocoder   *geo.Geocoder
	Verifier   *probe.Verifier
	Store      *storage.Store
	Log        *zap.Logger
}

// Manager enforces one in-progress session process-wide.
type Manager struct {
	deps Deps

	mu      sync.Mutex
	running bool
	current *model.Session
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewManager(deps Deps) *Manager {
	return &Manager{deps: deps}
}

// Start begins a session in the background and returns its initial snapshot.
// A second start while one is running fails with ErrAlreadyRunning.
func (m *Manager) Start(ctx context.Context, params model.ExtractParams, opts RunOptions) (model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return model.Session{}, ErrAlreadyRunning
	}

	sess := &model.Session{
		ID:        uuid.NewString(),
		Query:     params.Query,
		Location:  params.Location,
		RadiusKm:  params.RadiusKm,
		Status:    model.StatusInProgress,
		StartTime: time.Now(),
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.running = true
	m.current = sess
	m.cancel = cancel
	m.done = make(chan struct{})

	go m.run(runCtx, sess, params, opts)

	return *sess, nil
}

// Stop requests a cooperative stop of the running session. It is a no-op
// when nothing is running, and harmless to call more than once.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running && m.cancel != nil {
		m.cancel()
	}
}

// Status returns a snapshot of the current or most recent session. The bool
// is false before the first start.
func (m *Manager) Status() (model.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return model.Session{}, false
	}
	return *m.current, true
}

// Wait blocks until the running session reaches a terminal state. It returns
// immediately when nothing is running.
func (m *Manager) Wait() {
	m.mu.Lock()
	done := m.done
	m.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (m *Manager) run(ctx context.Context, sess *model.Session, params model.ExtractParams, opts RunOptions) {
	results, runErr := m.extract(ctx, params, opts)
	m.finish(sess, results, runErr, opts)
}

func (m *Manager) extract(ctx context.Context, params model.ExtractParams, opts RunOptions) ([]model.BusinessRecord, error) {
	log := m.deps.Log

	areas, err := m.searchAreas(ctx, params)
	if err != nil {
		return nil, err
	}

	surface, err := m.deps.NewSurface(ctx, params)
	if err != nil {
		return nil, eris.Wrap(err, "session: opening surface")
	}
	defer surface.Close()

	resolver := detail.NewResolver(surface, m.deps.Normalizer, detail.DefaultOptions(), log)
	resolver.DistrictFn = geo.DistrictAt

	w := walker.New(surface, resolver, walker.Config{
		MaxEntries:        params.MaxEntries,
		ScrollDelay:       params.ScrollDelay,
		MaxScrollAttempts: params.MaxScrollAttempts,
		ExtractDetails:    params.ExtractDetails,
		RequirePhone:      params.RequirePhone,
	}, log)
	if opts.OnProgress != nil {
		w.OnPass = opts.OnProgress
	}

	for i, area := range areas {
		if len(w.Results()) >= params.MaxEntries {
			break
		}
		query := buildQuery(params.Query, params.Location, area, len(areas) > 1)
		log.Info("walking search area",
			zap.Int("area", i+1),
			zap.Int("areas", len(areas)),
			zap.String("query", query))

		if err := surface.OpenFeed(ctx, query); err != nil {
			if ctx.Err() != nil {
				return w.Results(), ctx.Err()
			}
			return w.Results(), eris.Wrap(err, "session: opening results feed")
		}
		if err := w.Walk(ctx); err != nil {
			if ctx.Err() != nil {
				return w.Results(), ctx.Err()
			}
			return w.Results(), err
		}
	}

	results := w.Results()
	if params.VerifyWebsites && m.deps.Verifier != nil {
		m.verifyWebsites(ctx, results)
	}
	return results, nil
}

// searchAreas resolves the named location and splits an oversized radius
// into sub-areas. No location means one unscoped area.
func (m *Manager) searchAreas(ctx context.Context, params model.ExtractParams) ([]*geo.Circle, error) {
	if params.Location == "" || params.RadiusKm <= 0 {
		return []*geo.Circle{nil}, nil
	}
	if params.RadiusKm <= geo.SubdivideThresholdKm || m.deps.Geocoder == nil {
		return []*geo.Circle{nil}, nil
	}

	center, err := m.deps.Geocoder.ResolveLocation(ctx, params.Location)
	if err != nil {
		return nil, eris.Wrap(err, "session: resolving location")
	}
	circles := geo.Subdivide(center, params.RadiusKm, geo.SubdivideThresholdKm)
	areas := make([]*geo.Circle, len(circles))
	for i := range circles {
		areas[i] = &circles[i]
	}
	m.deps.Log.Info("radius subdivided",
		zap.Float64("radius_km", params.RadiusKm),
		zap.Int("areas", len(areas)))
	return areas, nil
}

func buildQuery(query, location string, area *geo.Circle, subdivided bool) string {
	if area != nil && subdivided {
		return fmt.Sprintf("%s near %.5f,%.5f", query, area.Center.Lat, area.Center.Lng)
	}
	if location != "" {
		return query + " in " + location
	}
	return query
}

func (m *Manager) verifyWebsites(ctx context.Context, results []model.BusinessRecord) {
	for i := range results {
		if ctx.Err() != nil {
			return
		}
		if results[i].Website == "" {
			continue
		}
		ok, err := m.deps.Verifier.Verify(ctx, results[i].Website)
		if err != nil {
			m.deps.Log.Debug("website probe failed",
				zap.String("name", results[i].Name),
				zap.String("website", results[i].Website),
				zap.Error(err))
		}
		v := ok
		results[i].WebsiteOK = &v
	}
}

// finish performs the terminal transition: freeze results, set the status,
// persist, and fire the completion callback exactly once.
func (m *Manager) finish(sess *model.Session, results []model.BusinessRecord, runErr error, opts RunOptions) {
	m.mu.Lock()

	now := time.Now()
	sess.EndTime = &now
	sess.Results = results
	sess.BusinessesFound = len(results)
	for _, r := range results {
		sess.PhoneNumbersFound += len(r.PhoneNumbers)
	}

	switch {
	case runErr == nil:
		sess.Status = model.StatusCompleted
	case errors.Is(runErr, context.Canceled):
		sess.Status = model.StatusStopped
	default:
		sess.Status = model.StatusError
		sess.Error = runErr.Error()
	}

	m.running = false
	m.cancel = nil
	done := m.done
	frozen := *sess
	m.mu.Unlock()

	m.deps.Log.Info("session finished",
		zap.String("id", frozen.ID),
		zap.String("status", string(frozen.Status)),
		zap.Int("businesses", frozen.BusinessesFound),
		zap.Int("phones", frozen.PhoneNumbersFound))

	if m.deps.Store != nil {
		if err := m.deps.Store.SaveSession(&frozen); err != nil {
			m.deps.Log.Error("persisting session failed", zap.String("id", frozen.ID), zap.Error(err))
		}
	}

	if opts.OnComplete != nil {
		opts.OnComplete(&frozen)
	}
	close(done)
}
