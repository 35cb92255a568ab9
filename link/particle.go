package link

import "github.com/google/uuid"

// Particle is a single detected feature in one frame. Particles are
// constructed by the external detection layer and consumed read-only;
// the linker never mutates them.
type Particle struct {
	// ID is the caller-supplied identifier, unique within its frame.
	ID int64
	// Pos is the detected position.
	Pos Point
	// Predicted is an optional externally supplied estimate of the
	// particle's next position. When set, the candidate search for this
	// particle is centered on it instead of Pos. A Predictor configured
	// on the linker takes precedence over this hint.
	Predicted Point
}

// center returns the point the candidate search should be centered on.
func (p *Particle) center() Point {
	if p.Predicted != nil {
		return p.Predicted
	}
	return p.Pos
}

// Link is the resolved fate of one previous-frame particle.
type Link struct {
	// PrevID is the previous-frame particle identifier.
	PrevID int64
	// CurID is the matched current-frame particle identifier.
	// Only meaningful when Linked is true.
	CurID int64
	// Linked reports whether the particle was matched at all.
	// False means the particle disappeared (left unlinked).
	Linked bool
	// Cost is the squared displacement of the chosen match, 0 when unlinked.
	Cost float64
}

// LinkResult is the outcome of linking one frame pair. Every
// previous-frame particle appears exactly once in Links (in input order)
// and every current-frame particle is either matched by exactly one link
// or listed in Appeared.
type LinkResult struct {
	// RunID correlates this result with log records and retry diagnostics.
	RunID uuid.UUID
	// Links holds one entry per previous-frame particle, in input order.
	Links []Link
	// Appeared lists current-frame particles with no match, in input order.
	Appeared []int64
	// TotalCost is the sum of matched edge costs plus the unlinked penalty
	// per disappeared particle and the unclaimed penalty per appeared one.
	TotalCost float64
}

// Matched returns the number of linked pairs in the result.
func (r *LinkResult) Matched() int {
	n := 0
	for i := range r.Links {
		if r.Links[i].Linked {
			n++
		}
	}
	return n
}
