// SPDX-License-Identifier: EPL-2.0

package simulation

import (
	"sync"
)

// Engine is the external ray-tracing solver the scheduler drives. One
// logical engine instance is not safe to read and write concurrently: the
// Commit and structural-mutation operations require exclusivity, and the
// implementation must guarantee that read-mode pass computation (RunDirect
// concurrent with RunReflections/RunPathing) is safe — if it cannot, run
// the scheduler with SerializePasses.
//
// Pass methods compute using the inputs most recently set; outputs stay
// readable until the next run of the same pass.
type Engine interface {
	// SetSharedInputs installs listener-derived inputs for the given
	// passes.
	SetSharedInputs(flags Flags, inputs SharedInputs)
	// RunDirect computes the cheap direct pass for every source that
	// participates in it.
	RunDirect() error
	// RunReflections computes the expensive multi-bounce pass.
	RunReflections() error
	// RunPathing computes the probe-graph pathing pass.
	RunPathing() error

	// Commit publishes queued structural changes (sources, probe batches,
	// scene edits) to the simulation. Requires exclusivity.
	Commit() error

	AddSource(id SourceID, settings SourceSettings) error
	RemoveSource(id SourceID)
	SetSourceInputs(id SourceID, flags Flags, inputs SourceInputs)
	// SourceOutputs reads the most recent results for the given passes.
	// ok is false when the source is unknown to the engine.
	SourceOutputs(id SourceID, flags Flags) (outputs SourceOutputs, ok bool)

	AddProbeBatch(name string, batch ProbeBatch) error
	RemoveProbeBatch(name string)

	// Close releases the engine instance. Safe only when no pass is in
	// flight.
	Close() error
}

// ProbeBatch is a baked set of pathing probes the engine searches during
// the pathing pass.
type ProbeBatch struct {
	Positions []Vec3
	Spacing   float32
}

// Handle is the shared, lock-protected engine handle. One Handle exists per
// audio-stream lifetime; the scheduler and the background worker share a
// pointer to it.
//
// The locking protocol (see the package documentation) is:
//   - the scheduler's per-tick direct pass runs under the read lock;
//   - the worker's expensive pass runs under the read lock too, relying on
//     the Engine concurrency contract (or under the write lock when
//     serialized);
//   - Commit and structural mutation take the write lock, and only when the
//     worker is provably idle — contention there is a protocol defect.
type Handle struct {
	mu     sync.RWMutex
	engine Engine
}

// NewHandle wraps an engine in its shared lock.
func NewHandle(engine Engine) *Handle {
	return &Handle{engine: engine}
}

// Read runs fn holding the read lock.
func (h *Handle) Read(fn func(Engine) error) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return fn(h.engine)
}

// TryRead runs fn holding the read lock, or reports failure without
// blocking if the write lock is held. Under the protocol the scheduler's
// direct pass can only lose this race when passes are serialized.
func (h *Handle) TryRead(fn func(Engine) error) (bool, error) {
	if !h.mu.TryRLock() {
		return false, nil
	}
	defer h.mu.RUnlock()
	return true, fn(h.engine)
}

// Write runs fn holding the write lock.
func (h *Handle) Write(fn func(Engine) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return fn(h.engine)
}

// TryWrite runs fn holding the write lock, or returns
// ErrEngineBusy without blocking if any lock is held. Callers use this
// where the protocol guarantees idleness, so ErrEngineBusy is a logic
// defect, not a retryable condition.
func (h *Handle) TryWrite(fn func(Engine) error) error {
	if !h.mu.TryLock() {
		return ErrEngineBusy
	}
	defer h.mu.Unlock()
	return fn(h.engine)
}
