package link

import (
	"math"
	"sort"
	"strconv"
)

// gridIndex is a regular hash grid over destination coordinates providing
// sub-quadratic radius queries at near-uniform density. Cell size equals the
// largest initial search radius; queries must never use a larger radius, so
// scanning the 3^d neighborhood of the center cell is always sufficient.
// Adaptive retries only shrink radii, preserving that invariant.
type gridIndex struct {
	cellSize float64
	dims     int
	cells    map[string][]int
	points   []Point
}

// gridHit is one point returned by a radius query.
type gridHit struct {
	idx   int
	dist2 float64
}

// newGridIndex builds the index over the given points. cellSize must be
// positive when points is non-empty.
func newGridIndex(points []Point, cellSize float64) *gridIndex {
	g := &gridIndex{
		cellSize: cellSize,
		cells:    make(map[string][]int, len(points)),
		points:   points,
	}
	if len(points) > 0 {
		g.dims = len(points[0])
	}
	cell := make([]int64, g.dims)
	for i, p := range points {
		g.cellOf(p, cell)
		k := cellKey(cell)
		g.cells[k] = append(g.cells[k], i)
	}
	return g
}

// cellOf writes the cell coordinates of p into out.
func (g *gridIndex) cellOf(p Point, out []int64) {
	for d := 0; d < g.dims; d++ {
		out[d] = int64(math.Floor(p[d] / g.cellSize))
	}
}

// cellKey encodes cell coordinates as a map key.
func cellKey(cell []int64) string {
	buf := make([]byte, 0, 8*len(cell))
	for _, c := range cell {
		buf = strconv.AppendInt(buf, c, 10)
		buf = append(buf, ':')
	}
	return string(buf)
}

// within returns all points no farther than radius from center, with their
// squared distances, sorted by point index. radius must not exceed the cell
// size the index was built with.
func (g *gridIndex) within(center Point, radius float64) []gridHit {
	if len(g.points) == 0 {
		return nil
	}
	r2 := radius * radius
	base := make([]int64, g.dims)
	g.cellOf(center, base)

	var hits []gridHit
	// Odometer over the {-1,0,1}^dims neighborhood.
	offset := make([]int64, g.dims)
	for d := range offset {
		offset[d] = -1
	}
	cell := make([]int64, g.dims)
	for {
		for d := 0; d < g.dims; d++ {
			cell[d] = base[d] + offset[d]
		}
		for _, idx := range g.cells[cellKey(cell)] {
			d2 := SquaredDistance(center, g.points[idx])
			if d2 <= r2 {
				hits = append(hits, gridHit{idx: idx, dist2: d2})
			}
		}
		// Advance the odometer; done once every digit wrapped.
		d := 0
		for ; d < g.dims; d++ {
			offset[d]++
			if offset[d] <= 1 {
				break
			}
			offset[d] = -1
		}
		if d == g.dims {
			break
		}
	}
	// Hits arrive grouped by cell; sort by index so candidate lists do not
	// depend on cell geometry.
	sort.Slice(hits, func(i, j int) bool { return hits[i].idx < hits[j].idx })
	return hits
}
