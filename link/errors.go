package link

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ErrInvalidConfig is wrapped by every configuration validation failure.
// Detected eagerly, before any computation.
var ErrInvalidConfig = errors.New("invalid configuration")

// OversizeError reports a subnet whose source count exceeds the configured
// maximum after adaptive shrinking (if enabled) was exhausted. The whole
// frame-pair link fails atomically; no partial result is produced.
type OversizeError struct {
	// RunID identifies the link invocation that failed.
	RunID uuid.UUID
	// SourceIDs and DestIDs are the member particle identifiers of the
	// offending subnet.
	SourceIDs []int64
	DestIDs   []int64
	// Size is the subnet's source count.
	Size int
	// Limit is the configured maximum subnet size.
	Limit int
	// EffectiveRange is the largest effective search radius still active
	// among the subnet's sources when the link gave up.
	EffectiveRange float64
}

func (e *OversizeError) Error() string {
	return fmt.Sprintf("subnet of %d sources and %d destinations exceeds size limit %d (effective range %g, run %s)",
		e.Size, len(e.DestIDs), e.Limit, e.EffectiveRange, e.RunID)
}

// CancelledError reports a solver aborted by its cooperative cancellation
// budget. The adaptive controller treats it like an oversize condition
// (shrink and retry); it reaches the caller only when retries are
// unavailable or exhausted, or when the context itself is done.
type CancelledError struct {
	// RunID identifies the link invocation that failed.
	RunID uuid.UUID
	// Nodes is the number of search nodes expanded before the abort.
	Nodes int64
	// Cause is the context error when the abort came from ctx, nil when it
	// came from the node-count budget.
	Cause error
}

func (e *CancelledError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("subnet solve cancelled after %d nodes (run %s): %v", e.Nodes, e.RunID, e.Cause)
	}
	return fmt.Sprintf("subnet solve exceeded node budget after %d nodes (run %s)", e.Nodes, e.RunID)
}

// Unwrap exposes the context error, if any.
func (e *CancelledError) Unwrap() error {
	return e.Cause
}
