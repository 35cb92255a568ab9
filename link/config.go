package link

import (
	"io"
	"log/slog"
	"math"
	"runtime"

	"github.com/pkg/errors"
)

// Constants for linker configuration
const (
	// DefaultMaxSubnetSize is a conservative ceiling on subnet source count.
	// Branch-and-bound cost is worst-case factorial in the unpruned case, so
	// the default keeps solve time within interactive bounds.
	DefaultMaxSubnetSize = 30
	// DefaultAdaptiveStep is the per-retry multiplicative radius shrink.
	DefaultAdaptiveStep = 0.95
	// DefaultMaxAdaptiveRetries bounds the shrink-and-retry loop.
	DefaultMaxAdaptiveRetries = 32
	// maxWorkers caps subnet-solving goroutines regardless of CPU count.
	maxWorkers = 8
)

// Config holds all parameters of one frame-pair link. It is a plain value
// passed into every invocation: concurrent links with different limits need
// no shared state.
type Config struct {
	// SearchRange is the candidate radius: a current-frame particle is a
	// candidate for a previous-frame particle only if it lies within this
	// distance of the (possibly predicted) position. Must be positive.
	SearchRange float64

	// RangeOverride optionally supplies a per-particle search radius for
	// previous-frame particles, taking precedence over SearchRange.
	// Returned values must be positive.
	RangeOverride func(p Particle) float64

	// MaxSubnetSize is the hard ceiling on a subnet's source count passed
	// to the solver. Must be positive.
	MaxSubnetSize int

	// Adaptive enables local search-radius shrinking for oversized subnets
	// instead of failing the whole frame pair.
	Adaptive bool
	// AdaptiveStep is the multiplicative shrink factor per retry,
	// in (0, 1). Validated only when Adaptive is set.
	AdaptiveStep float64
	// AdaptiveStop is the minimum radius the controller may shrink to
	// before giving up. Zero disables the floor (the retry count still
	// bounds the loop).
	AdaptiveStop float64
	// MaxAdaptiveRetries bounds the shrink-and-retry loop.
	// Zero selects DefaultMaxAdaptiveRetries.
	MaxAdaptiveRetries int

	// UnlinkedPenalty is the cost of leaving a previous-frame particle
	// unmatched; UnclaimedPenalty the cost of an unmatched current-frame
	// particle. Both must be finite and non-negative. They are independent
	// of SearchRange: the adaptive controller shrinks radii locally, and
	// deriving penalties from the effective radius would change the
	// link-versus-drop economics mid-retry. DefaultConfig seeds both to
	// SearchRange squared, the cost of a just-out-of-range match.
	UnlinkedPenalty  float64
	UnclaimedPenalty float64

	// Strategy selects the subnetwork solver. StrategyBranchBound is the
	// default and honors the documented tie-break rule; StrategyHungarian
	// uses an O(n³) assignment solve for dense subnets where it applies
	// and falls back to branch-and-bound elsewhere.
	Strategy SolverStrategy

	// MaxSolverNodes is the per-subnet node budget of the branch-and-bound
	// search. Zero means unlimited. Exceeding it surfaces as a
	// CancelledError, which the adaptive controller treats like oversize.
	MaxSolverNodes int64

	// Workers bounds concurrent subnet solving. Zero selects
	// min(GOMAXPROCS, 8); one forces sequential solving.
	Workers int

	// Predictor optionally supplies a predicted position per
	// previous-frame particle, recentering its candidate search.
	Predictor Predictor

	// Logger receives structured debug records. Nil discards them.
	Logger *slog.Logger
}

// DefaultConfig returns a configuration for the given search range with
// conservative defaults and penalties equal to the squared range.
func DefaultConfig(searchRange float64) Config {
	return Config{
		SearchRange:        searchRange,
		MaxSubnetSize:      DefaultMaxSubnetSize,
		AdaptiveStep:       DefaultAdaptiveStep,
		MaxAdaptiveRetries: DefaultMaxAdaptiveRetries,
		UnlinkedPenalty:    searchRange * searchRange,
		UnclaimedPenalty:   searchRange * searchRange,
	}
}

// Validate checks the configuration eagerly, before any computation.
// Every failure wraps ErrInvalidConfig.
func (c *Config) Validate() error {
	if !(c.SearchRange > 0) || math.IsInf(c.SearchRange, 0) {
		return errors.Wrapf(ErrInvalidConfig, "search range must be positive and finite, got %g", c.SearchRange)
	}
	if c.MaxSubnetSize <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "max subnet size must be positive, got %d", c.MaxSubnetSize)
	}
	if c.UnlinkedPenalty < 0 || math.IsInf(c.UnlinkedPenalty, 0) || math.IsNaN(c.UnlinkedPenalty) {
		return errors.Wrapf(ErrInvalidConfig, "unlinked penalty must be finite and non-negative, got %g", c.UnlinkedPenalty)
	}
	if c.UnclaimedPenalty < 0 || math.IsInf(c.UnclaimedPenalty, 0) || math.IsNaN(c.UnclaimedPenalty) {
		return errors.Wrapf(ErrInvalidConfig, "unclaimed penalty must be finite and non-negative, got %g", c.UnclaimedPenalty)
	}
	if c.Adaptive {
		if !(c.AdaptiveStep > 0 && c.AdaptiveStep < 1) {
			return errors.Wrapf(ErrInvalidConfig, "adaptive step must be in (0,1), got %g", c.AdaptiveStep)
		}
		if c.AdaptiveStop < 0 || math.IsNaN(c.AdaptiveStop) {
			return errors.Wrapf(ErrInvalidConfig, "adaptive stop must be non-negative, got %g", c.AdaptiveStop)
		}
	}
	if c.MaxAdaptiveRetries < 0 {
		return errors.Wrapf(ErrInvalidConfig, "max adaptive retries must be non-negative, got %d", c.MaxAdaptiveRetries)
	}
	if c.MaxSolverNodes < 0 {
		return errors.Wrapf(ErrInvalidConfig, "solver node budget must be non-negative, got %d", c.MaxSolverNodes)
	}
	if c.Workers < 0 {
		return errors.Wrapf(ErrInvalidConfig, "workers must be non-negative, got %d", c.Workers)
	}
	return nil
}

// logger returns the configured logger or a discarding one.
func (c *Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// retryBudget returns the effective retry bound.
func (c *Config) retryBudget() int {
	if c.MaxAdaptiveRetries > 0 {
		return c.MaxAdaptiveRetries
	}
	return DefaultMaxAdaptiveRetries
}

// workers returns the effective worker count.
func (c *Config) workers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	n := runtime.GOMAXPROCS(0)
	if n > maxWorkers {
		n = maxWorkers
	}
	if n < 1 {
		n = 1
	}
	return n
}
