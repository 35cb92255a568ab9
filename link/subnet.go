package link

import "sort"

// subnet is a maximal connected component of the bipartite candidate
// graph: sources and destinations reachable from each other through shared
// candidate edges. Subnets partition all particles; isolated particles form
// single-member subnets resolved without the solver.
type subnet struct {
	sources []int // source indices, ascending
	dests   []int // destination indices, ascending
}

// trivial reports whether the subnet bypasses the combinatorial solver:
// a lone source (disappeared), a lone destination (appeared), or exactly
// one source with exactly one candidate destination.
func (s *subnet) trivial() bool {
	return len(s.sources) <= 1 && len(s.dests) <= 1
}

// dsu is a slice-backed disjoint-set with path compression and union by
// rank. Vertices 0..numSources-1 are sources, the rest destinations.
type dsu struct {
	parent []int
	rank   []int
}

func newDSU(n int) *dsu {
	d := &dsu{
		parent: make([]int, n),
		rank:   make([]int, n),
	}
	for i := range d.parent {
		d.parent[i] = i
	}
	return d
}

// find walks to the root, compressing the path iteratively.
func (d *dsu) find(u int) int {
	for d.parent[u] != u {
		d.parent[u] = d.parent[d.parent[u]]
		u = d.parent[u]
	}
	return u
}

func (d *dsu) union(u, v int) {
	ru, rv := d.find(u), d.find(v)
	if ru == rv {
		return
	}
	if d.rank[ru] < d.rank[rv] {
		ru, rv = rv, ru
	}
	d.parent[rv] = ru
	if d.rank[ru] == d.rank[rv] {
		d.rank[ru]++
	}
}

// decompose partitions sources and destinations into connected components.
// The returned subnets are ordered deterministically: components containing
// at least one source first, by smallest source index; destination-only
// components after them, by smallest destination index. Every particle
// appears in exactly one subnet.
func decompose(cs *candidateSet, numSources, numDests int) []subnet {
	d := newDSU(numSources + numDests)
	for src, cands := range cs.bySource {
		for _, c := range cands {
			d.union(src, numSources+c.dst)
		}
	}

	byRoot := make(map[int]*subnet)
	component := func(v int) *subnet {
		root := d.find(v)
		s, ok := byRoot[root]
		if !ok {
			s = &subnet{}
			byRoot[root] = s
		}
		return s
	}
	for src := 0; src < numSources; src++ {
		s := component(src)
		s.sources = append(s.sources, src)
	}
	for dst := 0; dst < numDests; dst++ {
		s := component(numSources + dst)
		s.dests = append(s.dests, dst)
	}

	subnets := make([]subnet, 0, len(byRoot))
	for _, s := range byRoot {
		subnets = append(subnets, *s)
	}
	sort.Slice(subnets, func(i, j int) bool {
		a, b := &subnets[i], &subnets[j]
		switch {
		case len(a.sources) > 0 && len(b.sources) > 0:
			return a.sources[0] < b.sources[0]
		case len(a.sources) > 0:
			return true
		case len(b.sources) > 0:
			return false
		default:
			return a.dests[0] < b.dests[0]
		}
	})
	return subnets
}
