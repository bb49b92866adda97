// SPDX-License-Identifier: EPL-2.0

package simulation

import "errors"

var (
	// ErrEngineBusy is returned when a write-mode engine operation finds
	// the lock contended even though the protocol guarantees the worker is
	// idle. It indicates a programming defect, not a transient condition.
	ErrEngineBusy = errors.New("engine busy during an operation that requires it idle")

	// ErrWorkerStopped is returned by Tick after the background worker has
	// exited. Reflections and pathing can no longer be simulated; the
	// stream must be rebuilt.
	ErrWorkerStopped = errors.New("simulation worker stopped")

	// ErrCommitWhileBusy is returned when a scene commit is attempted
	// while the expensive pass is in flight.
	ErrCommitWhileBusy = errors.New("scene commit while simulation in flight")

	// ErrSourceExists is returned when adding a source whose id is already
	// tracked.
	ErrSourceExists = errors.New("source id already tracked")

	// ErrUnknownSource is returned for operations on an untracked source.
	ErrUnknownSource = errors.New("unknown source id")
)
