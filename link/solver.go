package link

import (
	"context"
	"sort"

	"github.com/google/uuid"
)

// solverCheckInterval is how many expanded nodes pass between cooperative
// context checks.
const solverCheckInterval = 256

// subnetAssignment is the solved fate of one non-trivial subnet.
type subnetAssignment struct {
	sources []int // global source indices, in solver order
	matches []int // global destination index per source, -1 = unlinked
	cost    float64
	nodes   int64
}

// solveSubnet finds the minimum-cost assignment of a non-trivial subnet by
// branch-and-bound over partial injective mappings. The search uses an
// explicit per-depth state arena rather than recursion, so it can be
// cancelled cooperatively via ctx or the configured node budget.
//
// Sources are ordered by ascending candidate count then index; each source
// tries its candidates in ascending cost (then destination index) order and
// finally the unlinked option. A branch is pruned when its admissible lower
// bound (accumulated cost, plus the best remaining per-source option, plus
// penalties for destinations that can no longer be claimed) exceeds the best
// complete solution found so far. Equal-cost solutions are resolved toward
// the lexicographically smallest destination-index sequence, unlinked
// ordering after every real destination, so results are reproducible.
func solveSubnet(ctx context.Context, runID uuid.UUID, sn *subnet, cs *candidateSet, cfg *Config) (*subnetAssignment, error) {
	if err := ctx.Err(); err != nil {
		return nil, &CancelledError{RunID: runID, Cause: err}
	}

	m := len(sn.sources)
	kLocal := len(sn.dests)

	order := make([]int, m)
	copy(order, sn.sources)
	sort.Slice(order, func(i, j int) bool {
		ci, cj := len(cs.bySource[order[i]]), len(cs.bySource[order[j]])
		if ci != cj {
			return ci < cj
		}
		return order[i] < order[j]
	})

	options := make([][]destCost, m)
	for depth, src := range order {
		options[depth] = cs.bySource[src]
	}

	localOf := make(map[int]int, kLocal)
	for i, dst := range sn.dests {
		localOf[dst] = i
	}

	// minRemain[d] is an admissible bound on the cost still to be paid by
	// sources at depth >= d, ignoring destination conflicts.
	minRemain := make([]float64, m+1)
	for d := m - 1; d >= 0; d-- {
		best := cfg.UnlinkedPenalty
		if len(options[d]) > 0 && options[d][0].cost < best {
			best = options[d][0].cost
		}
		minRemain[d] = minRemain[d+1] + best
	}

	// Incumbent: leave everything unmatched. Accumulated with the same
	// arithmetic the search uses so equal-cost paths compare exactly.
	bestChoice := make([]int, m)
	bestCost := 0.0
	for d := 0; d < m; d++ {
		bestChoice[d] = -1
		bestCost += cfg.UnlinkedPenalty
	}
	bestCost += float64(kLocal) * cfg.UnclaimedPenalty

	pos := make([]int, m)
	choice := make([]int, m)
	stepCost := make([]float64, m)
	for d := range pos {
		pos[d] = -1
		choice[d] = -1
	}
	claimed := make([]bool, kLocal)

	var (
		cost    float64
		matched int
		nodes   int64
	)

	undo := func(d int) {
		if choice[d] >= 0 {
			claimed[localOf[choice[d]]] = false
			matched--
		}
		cost -= stepCost[d]
		choice[d] = -1
	}

	depth := 0
	for depth >= 0 {
		nodes++
		if nodes%solverCheckInterval == 0 && ctx.Err() != nil {
			return nil, &CancelledError{RunID: runID, Nodes: nodes, Cause: ctx.Err()}
		}
		if cfg.MaxSolverNodes > 0 && nodes > cfg.MaxSolverNodes {
			return nil, &CancelledError{RunID: runID, Nodes: nodes}
		}

		pos[depth]++
		o := pos[depth]
		cands := options[depth]
		if o > len(cands) {
			// Options exhausted at this depth, backtrack.
			pos[depth] = -1
			depth--
			if depth >= 0 {
				undo(depth)
			}
			continue
		}

		dstGlobal := -1
		step := cfg.UnlinkedPenalty
		if o < len(cands) {
			if claimed[localOf[cands[o].dst]] {
				continue
			}
			dstGlobal = cands[o].dst
			step = cands[o].cost
		}

		newCost := cost + step
		newMatched := matched
		if dstGlobal >= 0 {
			newMatched++
		}
		lb := newCost + minRemain[depth+1]
		if short := kLocal - newMatched - (m - depth - 1); short > 0 {
			lb += float64(short) * cfg.UnclaimedPenalty
		}
		// Keep exploring at equality so ties resolve by the fixed rule.
		if lb > bestCost {
			continue
		}

		choice[depth] = dstGlobal
		stepCost[depth] = step
		if dstGlobal >= 0 {
			claimed[localOf[dstGlobal]] = true
		}
		cost = newCost
		matched = newMatched

		if depth == m-1 {
			total := cost + float64(kLocal-matched)*cfg.UnclaimedPenalty
			if total < bestCost || (total == bestCost && lexLess(choice, bestChoice)) {
				bestCost = total
				copy(bestChoice, choice)
			}
			undo(depth)
			continue
		}
		depth++
	}

	return &subnetAssignment{
		sources: order,
		matches: bestChoice,
		cost:    bestCost,
		nodes:   nodes,
	}, nil
}

// lexLess compares two destination-index sequences, treating unlinked (-1)
// as greater than any real destination.
func lexLess(a, b []int) bool {
	for i := range a {
		if a[i] == b[i] {
			continue
		}
		if a[i] == -1 {
			return false
		}
		if b[i] == -1 {
			return true
		}
		return a[i] < b[i]
	}
	return false
}
