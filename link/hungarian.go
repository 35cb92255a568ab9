package link

import (
	hungarian "github.com/arthurkushman/go-hungarian"
)

// SolverStrategy selects the algorithm used on non-trivial subnets.
type SolverStrategy uint16

const (
	// StrategyBranchBound performs the exact pruned search with the
	// documented deterministic tie-break. Default.
	StrategyBranchBound SolverStrategy = iota
	// StrategyHungarian solves dense subnets (complete candidate graphs
	// where linking every source is provably optimal) with the O(n³)
	// Kuhn-Munkres algorithm, falling back to branch-and-bound elsewhere.
	// Trades the tie-break rule of StrategyBranchBound for speed on large
	// dense subnets; still deterministic for a given input.
	StrategyHungarian
)

// solveDense attempts the Hungarian solve of a subnet. It applies only when
// every source sees every destination, sources do not outnumber
// destinations, and no edge is costlier than leaving both endpoints
// unmatched (so a full matching of the sources is optimal). Returns false
// when the subnet does not qualify.
func solveDense(sn *subnet, cs *candidateSet, cfg *Config) (*subnetAssignment, bool) {
	m := len(sn.sources)
	k := len(sn.dests)
	if m == 0 || m > k {
		return nil, false
	}
	for _, src := range sn.sources {
		if len(cs.bySource[src]) != k {
			return nil, false
		}
	}

	localOf := make(map[int]int, k)
	for i, dst := range sn.dests {
		localOf[dst] = i
	}

	costM := make([][]float64, m)
	maxCost := 0.0
	for i, src := range sn.sources {
		costM[i] = make([]float64, k)
		for _, c := range cs.bySource[src] {
			costM[i][localOf[c.dst]] = c.cost
			if c.cost > maxCost {
				maxCost = c.cost
			}
		}
	}
	if maxCost > cfg.UnlinkedPenalty+cfg.UnclaimedPenalty {
		// Dropping the worst edge could beat a full matching; only the
		// branch-and-bound search weighs that correctly.
		return nil, false
	}

	// SolveMax maximizes, so convert costs to profits and pad the matrix
	// square with zero-profit rows standing in for absent sources.
	ceil := maxCost + 1
	profit := make([][]float64, k)
	for i := 0; i < k; i++ {
		profit[i] = make([]float64, k)
		if i < m {
			for j := 0; j < k; j++ {
				profit[i][j] = ceil - costM[i][j]
			}
		}
	}
	solved := hungarian.SolveMax(profit)

	matches := make([]int, m)
	for i := range matches {
		matches[i] = -1
	}
	for row, inner := range solved {
		if row >= m {
			continue
		}
		for col := range inner {
			if col < k {
				matches[row] = sn.dests[col]
			}
			break
		}
	}

	cost := 0.0
	for i, dst := range matches {
		if dst < 0 {
			// A real source left unassigned means the padded solve did not
			// cover the matrix; defer to branch-and-bound.
			return nil, false
		}
		cost += costM[i][localOf[dst]]
	}
	cost += float64(k-m) * cfg.UnclaimedPenalty

	return &subnetAssignment{
		sources: sn.sources,
		matches: matches,
		cost:    cost,
	}, true
}
