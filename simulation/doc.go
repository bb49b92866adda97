// SPDX-License-Identifier: EPL-2.0

/*
Package simulation drives an external spatial-audio solver at two rates: a
cheap direct pass computed synchronously every control tick, and an
expensive reflections/pathing pass computed on a background worker and
throttled to a configurable interval.

# Scheduler

Scheduler is the entry point. The host calls Tick once per control-thread
tick with the elapsed time; each tick

 1. commits queued scene edits and deferred source/probe changes, but only
    when the worker is idle;
 2. derives shared inputs from the listener pose and runs the direct pass,
    publishing per-source outputs to the caches;
 3. accumulates dt toward the throttle interval and, once elapsed and the
    worker idle, publishes the previous expensive results, swaps in fresh
    inputs and wakes the worker. An elapsed interval with a busy worker
    defers the dispatch rather than dropping it.

# Locking

The engine sits behind a Handle (an RWMutex). The direct pass and the
worker's expensive pass both hold the read lock and rely on the Engine
contract that concurrent pass computation is safe; Commit and structural
mutation hold the write lock and are attempted only when the worker is
provably idle, so that lock is acquired with TryLock and contention is
reported as ErrEngineBusy, a protocol defect. Engines that cannot run
passes concurrently set Config.SerializePasses, which moves the worker to
the write lock; ticks that overlap it then skip their direct update
instead.

# Caches

Each source owns a SourceCache of three independently published cells, one
per pass. The render stage reads them lock-free from the audio callback;
an empty cell means the pass has not produced results yet and the source
renders unspatialized or silent. Writes are last-write-wins, always the
complete output of a finished pass.

# Scene mutation

Scene edits go through the SceneGate: geometry changes queue at any time,
but the commit that makes them visible to the solver is legal only while
the worker is idle and otherwise fails with ErrCommitWhileBusy. The
scheduler retries the commit at the top of every idle tick, so callers
normally just edit and let the tick pick the changes up.
*/
package simulation
