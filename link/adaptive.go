package link

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// parallelSubnetThreshold is the minimum number of non-trivial subnets that
// triggers parallel solving. Small frames solve sequentially for locality.
const parallelSubnetThreshold = 4

// adaptiveController runs decomposition and solving for one frame pair.
// When a subnet exceeds the size limit (or a solve trips its cancellation
// budget), it shrinks the effective search radius of that subnet's sources
// only, rebuilds their candidates, re-decomposes and retries. Shrinking
// locally keeps valid matches elsewhere in the frame intact; subnets the
// retry never touches produce the same assignments as a non-adaptive run.
type adaptiveController struct {
	cfg     *Config
	log     *slog.Logger
	runID   uuid.UUID
	prev    []Particle
	cur     []Particle
	centers []Point
	ranges  []float64
	grid    *gridIndex
	cands   *candidateSet
}

func (ac *adaptiveController) run(ctx context.Context) (*LinkResult, error) {
	for attempt := 0; ; attempt++ {
		subnets := decompose(ac.cands, len(ac.prev), len(ac.cur))

		// Size-limit guard: checked before any solver invocation. One
		// oversized subnet fails the whole frame pair, never partially.
		var oversized []*subnet
		for i := range subnets {
			if len(subnets[i].sources) > ac.cfg.MaxSubnetSize {
				oversized = append(oversized, &subnets[i])
			}
		}

		var failed []*subnet
		var failErr error
		if len(oversized) == 0 {
			results, errs := ac.solveAll(ctx, subnets)
			for i := range subnets {
				if errs[i] != nil {
					failed = append(failed, &subnets[i])
					if failErr == nil {
						failErr = errs[i]
					}
				}
			}
			if failed == nil {
				return ac.merge(subnets, results), nil
			}
			if ctx.Err() != nil {
				// The deadline is gone; shrinking cannot help anymore.
				return nil, failErr
			}
		} else {
			failed = oversized
			failErr = ac.oversizeError(oversized[0])
		}

		if !ac.cfg.Adaptive || attempt >= ac.cfg.retryBudget() || !ac.shrink(failed) {
			return nil, failErr
		}
	}
}

// shrink lowers the effective radius of every source in the failed subnets
// by the configured step and rebuilds their candidate lists. Returns false
// when the radius floor blocked every shrink, meaning retrying is pointless.
func (ac *adaptiveController) shrink(failed []*subnet) bool {
	shrunk := false
	for _, sn := range failed {
		for _, src := range sn.sources {
			next := ac.ranges[src] * ac.cfg.AdaptiveStep
			if ac.cfg.AdaptiveStop > 0 && next < ac.cfg.AdaptiveStop {
				continue
			}
			ac.ranges[src] = next
			ac.cands.rebuildSource(src, ac.centers[src], next, ac.grid)
			shrunk = true
		}
		ac.log.Debug("shrinking oversized subnet",
			"run_id", ac.runID,
			"sources", len(sn.sources),
			"dests", len(sn.dests),
			"step", ac.cfg.AdaptiveStep)
	}
	return shrunk
}

// solveAll solves every non-trivial subnet, in parallel when there are
// enough of them. Subnets are independent after decomposition; each result
// lands in a write-once slot keyed by subnet index, so no locking is needed
// beyond the group wait.
func (ac *adaptiveController) solveAll(ctx context.Context, subnets []subnet) ([]*subnetAssignment, []error) {
	results := make([]*subnetAssignment, len(subnets))
	errs := make([]error, len(subnets))

	var jobs []int
	for i := range subnets {
		if !subnets[i].trivial() {
			jobs = append(jobs, i)
		}
	}

	solve := func(ctx context.Context, i int) {
		sn := &subnets[i]
		if ac.cfg.Strategy == StrategyHungarian {
			if asn, ok := solveDense(sn, ac.cands, ac.cfg); ok {
				results[i] = asn
				return
			}
		}
		results[i], errs[i] = solveSubnet(ctx, ac.runID, sn, ac.cands, ac.cfg)
	}

	workers := ac.cfg.workers()
	if workers <= 1 || len(jobs) < parallelSubnetThreshold {
		for _, i := range jobs {
			solve(ctx, i)
		}
		return results, errs
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, i := range jobs {
		i := i
		g.Go(func() error {
			solve(gctx, i)
			return nil
		})
	}
	// Closures report through their slots, never through the group.
	_ = g.Wait()
	return results, errs
}

// oversizeError builds the diagnostic payload for the offending subnet.
func (ac *adaptiveController) oversizeError(sn *subnet) *OversizeError {
	srcIDs := make([]int64, len(sn.sources))
	maxRange := 0.0
	for i, src := range sn.sources {
		srcIDs[i] = ac.prev[src].ID
		if ac.ranges[src] > maxRange {
			maxRange = ac.ranges[src]
		}
	}
	dstIDs := make([]int64, len(sn.dests))
	for i, dst := range sn.dests {
		dstIDs[i] = ac.cur[dst].ID
	}
	return &OversizeError{
		RunID:          ac.runID,
		SourceIDs:      srcIDs,
		DestIDs:        dstIDs,
		Size:           len(sn.sources),
		Limit:          ac.cfg.MaxSubnetSize,
		EffectiveRange: maxRange,
	}
}

// merge folds trivial resolutions and solver assignments into one result.
func (ac *adaptiveController) merge(subnets []subnet, results []*subnetAssignment) *LinkResult {
	matchOf := make([]int, len(ac.prev))
	for i := range matchOf {
		matchOf[i] = -1
	}

	for i := range subnets {
		sn := &subnets[i]
		if sn.trivial() {
			if len(sn.sources) == 1 && len(sn.dests) == 1 {
				src := sn.sources[0]
				cand := ac.cands.bySource[src][0]
				// Direct link unless dropping both endpoints is strictly
				// cheaper, matching what the solver would decide.
				if cand.cost <= ac.cfg.UnlinkedPenalty+ac.cfg.UnclaimedPenalty {
					matchOf[src] = cand.dst
				}
			}
			continue
		}
		asn := results[i]
		for j, src := range asn.sources {
			matchOf[src] = asn.matches[j]
		}
	}

	claimed := make([]bool, len(ac.cur))
	links := make([]Link, len(ac.prev))
	totalCost := 0.0
	for src := range ac.prev {
		dst := matchOf[src]
		if dst < 0 {
			links[src] = Link{PrevID: ac.prev[src].ID}
			totalCost += ac.cfg.UnlinkedPenalty
			continue
		}
		cost := ac.cands.costOf(src, dst)
		links[src] = Link{
			PrevID: ac.prev[src].ID,
			CurID:  ac.cur[dst].ID,
			Linked: true,
			Cost:   cost,
		}
		claimed[dst] = true
		totalCost += cost
	}

	var appeared []int64
	for dst := range ac.cur {
		if !claimed[dst] {
			appeared = append(appeared, ac.cur[dst].ID)
			totalCost += ac.cfg.UnclaimedPenalty
		}
	}

	return &LinkResult{
		RunID:     ac.runID,
		Links:     links,
		Appeared:  appeared,
		TotalCost: totalCost,
	}
}
