package link

import "sort"

// destCost is one candidate edge from the owning source.
type destCost struct {
	dst  int
	cost float64
}

// candidateSet holds the weighted bipartite candidate graph of one frame
// pair: for every source index, the destinations within its effective
// search radius, sorted by ascending cost then destination index.
type candidateSet struct {
	bySource [][]destCost
}

// buildCandidates generates all candidate edges. centers holds the
// (possibly predicted) search center per source, radii the effective
// search radius per source. Pure function of its inputs: an empty
// destination set simply yields zero candidates everywhere.
func buildCandidates(centers []Point, radii []float64, grid *gridIndex) *candidateSet {
	cs := &candidateSet{bySource: make([][]destCost, len(centers))}
	for i := range centers {
		cs.rebuildSource(i, centers[i], radii[i], grid)
	}
	return cs
}

// costOf returns the cost of an existing candidate edge.
func (cs *candidateSet) costOf(src, dst int) float64 {
	for _, c := range cs.bySource[src] {
		if c.dst == dst {
			return c.cost
		}
	}
	return 0
}

// rebuildSource regenerates the candidate list of a single source, used by
// the adaptive controller after shrinking that source's radius.
func (cs *candidateSet) rebuildSource(i int, center Point, radius float64, grid *gridIndex) {
	hits := grid.within(center, radius)
	list := make([]destCost, 0, len(hits))
	for _, h := range hits {
		list = append(list, destCost{dst: h.idx, cost: h.dist2})
	}
	sort.Slice(list, func(a, b int) bool {
		if list[a].cost != list[b].cost {
			return list[a].cost < list[b].cost
		}
		return list[a].dst < list[b].dst
	})
	cs.bySource[i] = list
}
