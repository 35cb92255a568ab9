// Package link solves the frame-to-frame particle correspondence problem:
// given detected feature positions in two consecutive frames, it finds the
// minimum-cost assignment between them, accounting for particles that
// appear, disappear, or crowd ambiguously close to neighbors.
//
// The bipartite candidate graph is decomposed into independent subnetworks
// solved exactly by branch-and-bound; an adaptive controller shrinks the
// search radius locally where density makes a subnetwork intractable.
// Linking one frame pair is a self-contained computation with no state
// retained between calls, so independent frame pairs may be linked
// concurrently.
package link

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// LinkFramePair links the particles of two consecutive frames. prev and cur
// are consumed read-only. On success every prev particle appears exactly
// once in the result's Links slice (matched or unlinked) and every cur
// particle is matched by at most one link, the rest listed as Appeared.
//
// Failure modes: configuration problems wrap ErrInvalidConfig; an
// intractable subnet surfaces as *OversizeError; a solver aborted by ctx or
// the node budget surfaces as *CancelledError. Failures are atomic: no
// partial result is ever returned.
func LinkFramePair(ctx context.Context, prev, cur []Particle, cfg Config) (*LinkResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := checkDimensions(prev, cur); err != nil {
		return nil, err
	}

	runID := uuid.New()
	log := cfg.logger()

	centers := make([]Point, len(prev))
	ranges := make([]float64, len(prev))
	maxRange := 0.0
	for i := range prev {
		p := &prev[i]
		if cfg.Predictor != nil {
			centers[i] = cfg.Predictor.Predict(*p)
		} else {
			centers[i] = p.center()
		}
		r := cfg.SearchRange
		if cfg.RangeOverride != nil {
			r = cfg.RangeOverride(*p)
			if !(r > 0) {
				return nil, errors.Wrapf(ErrInvalidConfig, "range override for particle %d must be positive, got %g", p.ID, r)
			}
		}
		ranges[i] = r
		if r > maxRange {
			maxRange = r
		}
	}

	dsts := make([]Point, len(cur))
	for i := range cur {
		dsts[i] = cur[i].Pos
	}
	cellSize := maxRange
	if cellSize <= 0 {
		cellSize = cfg.SearchRange
	}
	grid := newGridIndex(dsts, cellSize)

	ac := &adaptiveController{
		cfg:     &cfg,
		log:     log,
		runID:   runID,
		prev:    prev,
		cur:     cur,
		centers: centers,
		ranges:  ranges,
		grid:    grid,
		cands:   buildCandidates(centers, ranges, grid),
	}
	res, err := ac.run(ctx)
	if err != nil {
		return nil, err
	}

	log.Debug("frame pair linked",
		"run_id", runID,
		"prev", len(prev),
		"cur", len(cur),
		"matched", res.Matched(),
		"appeared", len(res.Appeared),
		"total_cost", res.TotalCost)
	return res, nil
}

// checkDimensions verifies that every position (and predicted position)
// shares one dimensionality.
func checkDimensions(prev, cur []Particle) error {
	dims := 0
	check := func(frame string, particles []Particle) error {
		for i := range particles {
			p := &particles[i]
			if len(p.Pos) == 0 {
				return errors.Wrapf(ErrInvalidConfig, "%s particle %d has an empty position", frame, p.ID)
			}
			if dims == 0 {
				dims = len(p.Pos)
			}
			if len(p.Pos) != dims {
				return errors.Wrapf(ErrInvalidConfig, "%s particle %d has %d coordinates, expected %d", frame, p.ID, len(p.Pos), dims)
			}
			if p.Predicted != nil && len(p.Predicted) != dims {
				return errors.Wrapf(ErrInvalidConfig, "%s particle %d predicted position has %d coordinates, expected %d", frame, p.ID, len(p.Predicted), dims)
			}
		}
		return nil
	}
	if err := check("previous-frame", prev); err != nil {
		return err
	}
	return check("current-frame", cur)
}
