package link

import (
	kalman_filter "github.com/LdDl/kalman-filter"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// Predictor supplies a predicted next position per previous-frame particle,
// shifting the effective candidate search center. The linking core consumes
// predictors only through this interface; the implementations below are
// conveniences for callers without their own motion model.
type Predictor interface {
	Predict(p Particle) Point
}

// KalmanPredictor keeps a 2D Kalman filter per particle identifier and
// predicts the next position from the filtered state. Particles whose
// identifier has not been observed, or whose coordinates are not 2D, are
// predicted at their detected position.
//
// Feed each linked frame through Observe before linking the next pair so
// the filters track measurement history.
type KalmanPredictor struct {
	dt      float64
	filters map[int64]*kalman_filter.Kalman2D
}

// NewKalmanPredictor creates a predictor with the given time step between
// frames (e.g. 1/fps).
func NewKalmanPredictor(dt float64) *KalmanPredictor {
	return &KalmanPredictor{
		dt:      dt,
		filters: make(map[int64]*kalman_filter.Kalman2D),
	}
}

// Observe feeds one frame of particles into the per-particle filters,
// creating filters for unseen identifiers.
func (kp *KalmanPredictor) Observe(particles []Particle) error {
	for i := range particles {
		p := &particles[i]
		if len(p.Pos) != 2 {
			continue
		}
		if kf, ok := kp.filters[p.ID]; ok {
			kf.Predict()
			if err := kf.Update(p.Pos[0], p.Pos[1]); err != nil {
				return errors.Wrapf(err, "can't update filter for particle %d", p.ID)
			}
			continue
		}

		/* Kalman filter props */
		ux := 1.0
		uy := 1.0
		stdDevA := 2.0
		stdDevMx := 0.1
		stdDevMy := 0.1
		kp.filters[p.ID] = kalman_filter.NewKalman2D(kp.dt, ux, uy, stdDevA, stdDevMx, stdDevMy,
			kalman_filter.WithState2D(p.Pos[0], p.Pos[1]))
	}
	return nil
}

// Predict returns the filter's one-step-ahead position for the particle.
func (kp *KalmanPredictor) Predict(p Particle) Point {
	kf, ok := kp.filters[p.ID]
	if !ok || len(p.Pos) != 2 {
		return p.Pos
	}
	kf.Predict()
	stateX, stateY := kf.GetState()
	return Point{stateX, stateY}
}

var _ Predictor = (*KalmanPredictor)(nil)

// VelocityPredictor extrapolates each particle one frame ahead with its
// last observed displacement. Works in any dimensionality.
type VelocityPredictor struct {
	last map[int64]Point
}

// NewVelocityPredictor creates an empty velocity predictor.
func NewVelocityPredictor() *VelocityPredictor {
	return &VelocityPredictor{last: make(map[int64]Point)}
}

// Observe records one frame of positions.
func (vp *VelocityPredictor) Observe(particles []Particle) {
	for i := range particles {
		vp.last[particles[i].ID] = particles[i].Pos.Clone()
	}
}

// Predict returns pos + (pos - previous pos), or the detected position for
// identifiers without history.
func (vp *VelocityPredictor) Predict(p Particle) Point {
	prev, ok := vp.last[p.ID]
	if !ok || len(prev) != len(p.Pos) {
		return p.Pos
	}
	pred := make(Point, len(p.Pos))
	floats.AddScaledTo(pred, p.Pos, -1, prev)
	floats.Add(pred, p.Pos)
	return pred
}

var _ Predictor = (*VelocityPredictor)(nil)
