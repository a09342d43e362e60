// Package walker owns the pagination state machine over the virtualized
// results feed: it visits every reachable entry, runs each new one through
// the detail resolver and the deduplicator, and accumulates accepted
// records up to the session cap.
package walker

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/rendis/biztap/internal/engine/browser"
	"github.com/rendis/biztap/internal/engine/detail"
	"github.com/rendis/biztap/internal/model"
)

// Config bounds one walk. Values are fixed for the whole session.
type Config struct {
	MaxEntries        int
	ScrollDelay       time.Duration
	MaxScrollAttempts int
	ExtractDetails    bool
	RequirePhone      bool
}

// Walker drives the scroll loop. One walker lives for one session; calling
// Walk again (for a subdivided search) keeps the dedup set, the accepted
// records, and the cap.
type Walker struct {
	surface  browser.Surface
	resolver *detail.Resolver
	dedup    *Deduplicator
	cfg      Config
	log      *zap.Logger

	accepted []model.BusinessRecord

	// OnPass, when set, is called after each scan pass, at most once per
	// scroll cycle.
	OnPass func(model.Progress)
}

func New(surface browser.Surface, resolver *detail.Resolver, cfg Config, log *zap.Logger) *Walker {
	return &Walker{
		surface:  surface,
		resolver: resolver,
		dedup:    NewDeduplicator(),
		cfg:      cfg,
		log:      log,
	}
}

// Results returns the records accepted so far, in acceptance order.
func (w *Walker) Results() []model.BusinessRecord {
	return w.accepted
}

// Walk scans the currently open feed until the cap is reached, the feed is
// exhausted, or the context ends. A stop request is observed at the top of
// each pass, never mid-entry.
func (w *Walker) Walk(ctx context.Context) error {
	total := w.estimateTotal(ctx)
	processed := make(map[string]bool)
	unproductive := 0

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if len(w.accepted) >= w.cfg.MaxEntries {
			return nil
		}
		if unproductive >= w.cfg.MaxScrollAttempts {
			w.log.Info("feed exhausted", zap.Int("accepted", len(w.accepted)))
			return nil
		}

		entries, err := w.surface.ListEntries(ctx)
		if err != nil {
			return eris.Wrap(err, "walker: list entries")
		}

		acceptedThisPass := 0
		for _, e := range entries {
			if len(w.accepted) >= w.cfg.MaxEntries {
				break
			}
			if processed[e.ID] {
				continue
			}
			processed[e.ID] = true // idempotent, survives re-renders

			rec, err := w.processEntry(ctx, e)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				// One bad entry never aborts the walk.
				w.log.Warn("entry failed, skipping", zap.String("name", e.Name), zap.Error(err))
				continue
			}
			if rec != nil {
				w.accepted = append(w.accepted, *rec)
				acceptedThisPass++
			}
		}

		if acceptedThisPass == 0 {
			unproductive++
		} else {
			unproductive = 0
		}

		if w.OnPass != nil {
			w.OnPass(model.Progress{
				Current:        len(w.accepted),
				Total:          total,
				ScrollAttempts: unproductive,
			})
		}

		if len(w.accepted) >= w.cfg.MaxEntries || unproductive >= w.cfg.MaxScrollAttempts {
			continue // let the loop head decide termination
		}

		if err := w.surface.ScrollFeed(ctx); err != nil {
			w.log.Warn("scroll failed", zap.Error(err))
		}
		if !sleepCtx(ctx, w.cfg.ScrollDelay) {
			return ctx.Err()
		}
	}
}

// processEntry runs the per-entry pipeline. A nil record with nil error
// means the entry was rejected (duplicate or filtered), which is not an
// error.
func (w *Walker) processEntry(ctx context.Context, e browser.Entry) (*model.BusinessRecord, error) {
	var rec model.BusinessRecord
	if w.cfg.ExtractDetails {
		var err error
		rec, err = w.resolver.Resolve(ctx, e)
		if closeErr := w.surface.CloseDetail(ctx); closeErr != nil {
			// The walk continues even when reverse navigation is missing;
			// the next pass re-finds the feed.
			w.log.Warn("back navigation unavailable", zap.String("name", e.Name))
		}
		if err != nil {
			return nil, err
		}
	} else {
		rec = detail.FromEntry(e)
	}

	if rec.Name == "" {
		return nil, nil
	}
	if !w.dedup.Admit(rec.Name) {
		w.log.Debug("duplicate entry discarded", zap.String("name", rec.Name))
		return nil, nil
	}
	if w.cfg.RequirePhone && len(rec.PhoneNumbers) == 0 {
		w.log.Debug("phone-less entry discarded", zap.String("name", rec.Name))
		return nil, nil
	}
	return &rec, nil
}

// estimateTotal reads the results-count header when present, otherwise
// guesses from the visible window. Advisory only; the walk must tolerate it
// being wrong in either direction.
func (w *Walker) estimateTotal(ctx context.Context) int {
	if t, ok := w.surface.TotalEstimate(ctx); ok {
		return t
	}
	visible := 0
	if entries, err := w.surface.ListEntries(ctx); err == nil {
		visible = len(entries)
	}
	est := 2 * visible
	if est < 20 {
		est = 20
	}
	return est
}

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
