package link

import (
	"reflect"
	"testing"
)

// cands builds a candidateSet from explicit edges. Costs are irrelevant to
// decomposition, so every edge gets cost 1.
func cands(numSources int, edges map[int][]int) *candidateSet {
	cs := &candidateSet{bySource: make([][]destCost, numSources)}
	for src, dsts := range edges {
		for _, dst := range dsts {
			cs.bySource[src] = append(cs.bySource[src], destCost{dst: dst, cost: 1})
		}
	}
	return cs
}

func TestDecomposeTrivialPairs(t *testing.T) {
	// Two well-separated 1-1 pairs and one isolated source, one isolated dest.
	cs := cands(3, map[int][]int{0: {0}, 1: {1}})
	subnets := decompose(cs, 3, 3)

	if len(subnets) != 4 {
		t.Fatalf("expected 4 subnets, got %d", len(subnets))
	}
	for i, sn := range subnets {
		if !sn.trivial() {
			t.Errorf("subnet %d should be trivial: %+v", i, sn)
		}
	}
	// Source-bearing subnets first, ordered by smallest source index.
	if !reflect.DeepEqual(subnets[0].sources, []int{0}) || !reflect.DeepEqual(subnets[0].dests, []int{0}) {
		t.Errorf("unexpected first subnet: %+v", subnets[0])
	}
	if !reflect.DeepEqual(subnets[2].sources, []int{2}) || len(subnets[2].dests) != 0 {
		t.Errorf("isolated source should form its own subnet: %+v", subnets[2])
	}
	if len(subnets[3].sources) != 0 || !reflect.DeepEqual(subnets[3].dests, []int{2}) {
		t.Errorf("isolated dest should come last: %+v", subnets[3])
	}
}

func TestDecomposeSharedDestinationMerges(t *testing.T) {
	// Sources 0 and 1 compete for dest 0; source 1 also reaches dest 1.
	cs := cands(2, map[int][]int{0: {0}, 1: {0, 1}})
	subnets := decompose(cs, 2, 2)

	if len(subnets) != 1 {
		t.Fatalf("expected a single merged subnet, got %d", len(subnets))
	}
	sn := subnets[0]
	if sn.trivial() {
		t.Error("competing subnet must not be trivial")
	}
	if !reflect.DeepEqual(sn.sources, []int{0, 1}) || !reflect.DeepEqual(sn.dests, []int{0, 1}) {
		t.Errorf("unexpected members: %+v", sn)
	}
}

func TestDecomposeTransitiveChain(t *testing.T) {
	// 0-0, 1-0, 1-1, 2-1 chain connects all three sources transitively.
	cs := cands(3, map[int][]int{0: {0}, 1: {0, 1}, 2: {1}})
	subnets := decompose(cs, 3, 2)

	if len(subnets) != 1 {
		t.Fatalf("expected one chained subnet, got %d", len(subnets))
	}
	if !reflect.DeepEqual(subnets[0].sources, []int{0, 1, 2}) {
		t.Errorf("unexpected sources: %v", subnets[0].sources)
	}
}

func TestDecomposeIsStrictPartition(t *testing.T) {
	cs := cands(5, map[int][]int{0: {0, 1}, 2: {1}, 3: {3}})
	subnets := decompose(cs, 5, 4)

	seenSrc := make(map[int]int)
	seenDst := make(map[int]int)
	for _, sn := range subnets {
		for _, s := range sn.sources {
			seenSrc[s]++
		}
		for _, d := range sn.dests {
			seenDst[d]++
		}
	}
	for s := 0; s < 5; s++ {
		if seenSrc[s] != 1 {
			t.Errorf("source %d appears %d times across subnets", s, seenSrc[s])
		}
	}
	for d := 0; d < 4; d++ {
		if seenDst[d] != 1 {
			t.Errorf("dest %d appears %d times across subnets", d, seenDst[d])
		}
	}
}

func TestDecomposeGridShiftSpacedApart(t *testing.T) {
	// A 3x3 grid with 2.0 spacing shifted diagonally by 0.5: with range
	// 0.9 every source sees exactly its own shifted copy, so decomposition
	// must yield nine independent trivial subnets, not one giant one.
	var centers, dsts []Point
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			centers = append(centers, Point{float64(i) * 2, float64(j) * 2})
			dsts = append(dsts, Point{float64(i)*2 + 0.5, float64(j)*2 + 0.5})
		}
	}
	radii := make([]float64, len(centers))
	for i := range radii {
		radii[i] = 0.9
	}
	grid := newGridIndex(dsts, 0.9)
	cs := buildCandidates(centers, radii, grid)
	subnets := decompose(cs, len(centers), len(dsts))

	if len(subnets) != 9 {
		t.Fatalf("expected 9 subnets, got %d", len(subnets))
	}
	for i, sn := range subnets {
		if !sn.trivial() {
			t.Errorf("subnet %d should be trivial: %+v", i, sn)
		}
		if len(sn.sources) != 1 || len(sn.dests) != 1 || sn.sources[0] != sn.dests[0] {
			t.Errorf("subnet %d should pair a source with its own copy: %+v", i, sn)
		}
	}
}

func TestDSUPathCompression(t *testing.T) {
	d := newDSU(6)
	d.union(0, 1)
	d.union(1, 2)
	d.union(3, 4)
	if d.find(0) != d.find(2) {
		t.Error("0 and 2 should share a root")
	}
	if d.find(0) == d.find(3) {
		t.Error("0 and 3 should not share a root")
	}
	if d.find(5) != 5 {
		t.Error("singleton should be its own root")
	}
}
