// SPDX-License-Identifier: EPL-2.0

package simulation

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultInterval is the throttle period between expensive pass dispatches
// when Config.Interval is zero.
const DefaultInterval = 500 * time.Millisecond

// Config parameterizes a Scheduler.
type Config struct {
	Quality Quality

	// Interval is the throttle period between expensive-pass dispatches.
	// Zero selects DefaultInterval; negative disables reflections and
	// pathing simulation entirely (no worker is started).
	Interval time.Duration

	// Direct selects the direct-pass effects computed for every source.
	Direct DirectParams

	// Pathing configures the probe-graph search for pathing sources.
	Pathing PathingParams

	// SerializePasses makes the worker hold the write lock during the
	// expensive pass, fully serializing it against the per-tick direct
	// pass. Required for engines that cannot guarantee read-mode pass
	// safety concurrent with another in-flight pass; costs direct-pass
	// latency, since ticks overlapping the expensive pass skip their
	// direct update.
	SerializePasses bool

	Logger *slog.Logger
}

type trackedSource struct {
	id       SourceID
	settings SourceSettings
	pose     CoordinateSystem
	cache    *SourceCache
	// applied flips once the engine has accepted the source; the direct
	// pass only touches applied sources.
	applied bool
}

type pendingProbe struct {
	name   string
	batch  ProbeBatch
	remove bool
}

// Scheduler is the dual-rate simulation driver. Once per tick, on the
// control thread, Tick recomputes pose-derived inputs, runs the cheap
// direct pass synchronously and publishes its outputs, and — when the
// throttle elapses and the worker is idle — hands the expensive
// reflections/pathing pass to the background worker.
//
// Tick, Close and the mutation methods may be called from different
// goroutines, but Tick and Close must not race each other: they belong to
// the control thread that owns the scheduler.
type Scheduler struct {
	cfg    Config
	handle *Handle
	gate   *SceneGate
	logger *slog.Logger

	// complete is the pending-completion flag shared with the worker:
	// false while an expensive pass is in flight, true once its results
	// are ready and new work may be dispatched. Only the worker sets it
	// true.
	complete atomic.Bool
	worker   *worker

	mu            sync.Mutex
	sources       map[SourceID]*trackedSource
	pendingRemove []SourceID
	pendingProbes []pendingProbe
	listenerPose  CoordinateSystem

	// timer accumulates tick deltas toward the next throttled dispatch.
	// It is not reset when dispatch is deferred by a busy worker, so a
	// deferred dispatch fires as soon as the worker frees up.
	timer time.Duration
}

// NewScheduler wraps an engine and its scene, creates the listener's
// reflections-only source, and starts the background worker (which
// immediately primes one expensive pass). Construction failure is fatal to
// the stream instance; it is not retried.
func NewScheduler(engine Engine, scene Scene, cfg Config) (*Scheduler, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Interval == 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Quality.FrameSize <= 0 {
		cfg.Quality = DefaultQuality()
	}

	s := &Scheduler{
		cfg:          cfg,
		handle:       NewHandle(engine),
		logger:       cfg.Logger,
		sources:      make(map[SourceID]*trackedSource),
		listenerPose: DefaultCoordinateSystem(),
	}
	s.gate = NewSceneGate(scene, &s.complete)

	listener := &trackedSource{
		id:       ListenerID,
		settings: SourceSettings{Flags: FlagReflections},
		pose:     DefaultCoordinateSystem(),
		cache:    &SourceCache{},
	}
	err := s.handle.Write(func(e Engine) error {
		if err := e.AddSource(ListenerID, listener.settings); err != nil {
			return fmt.Errorf("listener source: %w", err)
		}
		return e.Commit()
	})
	if err != nil {
		return nil, fmt.Errorf("scheduler setup: %w", err)
	}
	listener.applied = true
	s.sources[ListenerID] = listener

	if cfg.Interval > 0 {
		s.worker = startWorker(s.handle, &s.complete, cfg.SerializePasses, s.logger)
	} else {
		// No expensive simulation: the flag stays true so scene commits
		// are never blocked.
		s.complete.Store(true)
	}

	return s, nil
}

// Scene returns the mutation gate for the scheduler's scene.
func (s *Scheduler) Scene() *SceneGate { return s.gate }

// Idle reports whether no expensive pass is in flight.
func (s *Scheduler) Idle() bool { return s.complete.Load() }

// AddSource registers a source for simulation. The engine-side creation is
// deferred to the next tick on which the worker is idle; until then the
// source's cache reads report no outputs and the render stage plays it
// unspatialized or silent.
func (s *Scheduler) AddSource(id SourceID, settings SourceSettings) (*SourceCache, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sources[id]; exists {
		return nil, fmt.Errorf("source %d: %w", id, ErrSourceExists)
	}
	src := &trackedSource{
		id:       id,
		settings: settings,
		pose:     DefaultCoordinateSystem(),
		cache:    &SourceCache{},
	}
	s.sources[id] = src
	return src.cache, nil
}

// RemoveSource unregisters a source. Engine-side removal is deferred until
// the worker is idle; the cache is cleared immediately so the render stage
// falls back to silence rather than applying stale outputs.
func (s *Scheduler) RemoveSource(id SourceID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	src, exists := s.sources[id]
	if !exists || id == ListenerID {
		return fmt.Errorf("source %d: %w", id, ErrUnknownSource)
	}
	src.cache.clear()
	delete(s.sources, id)
	if src.applied {
		s.pendingRemove = append(s.pendingRemove, id)
	}
	return nil
}

// AddProbeBatch queues a baked probe batch for the pathing pass.
func (s *Scheduler) AddProbeBatch(name string, batch ProbeBatch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingProbes = append(s.pendingProbes, pendingProbe{name: name, batch: batch})
}

// RemoveProbeBatch queues removal of a probe batch.
func (s *Scheduler) RemoveProbeBatch(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingProbes = append(s.pendingProbes, pendingProbe{name: name, remove: true})
}

// SetListenerPose installs the listener pose for the next tick.
func (s *Scheduler) SetListenerPose(pose CoordinateSystem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listenerPose = pose
	s.sources[ListenerID].pose = pose
}

// SetSourcePose installs a source pose for the next tick.
func (s *Scheduler) SetSourcePose(id SourceID, pose CoordinateSystem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	src, exists := s.sources[id]
	if !exists {
		return fmt.Errorf("source %d: %w", id, ErrUnknownSource)
	}
	src.pose = pose
	return nil
}

// Cache returns the output cache for a tracked source. The render stage
// fetches this pointer once per source and reads it from the audio
// callback; it must not look sources up per callback.
func (s *Scheduler) Cache(id SourceID) (*SourceCache, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	src, exists := s.sources[id]
	if !exists {
		return nil, false
	}
	return src.cache, true
}

// ReverbCache returns the listener source's cache, whose reflections
// outputs drive the listener-centric reverb effect.
func (s *Scheduler) ReverbCache() *SourceCache {
	cache, _ := s.Cache(ListenerID)
	return cache
}

// Tick advances the scheduler by one control-thread tick of length dt.
//
// Per-object failures (a source the engine rejected, a probe batch that
// failed to bake in) are aggregated into the returned error while
// processing continues for the others. A nil return does not mean an
// expensive pass ran — most ticks only run the direct pass.
//
// ErrWorkerStopped is fatal: the worker is gone and reflections will never
// update again; the caller must rebuild the stream.
func (s *Scheduler) Tick(dt time.Duration) error {
	if s.worker != nil && s.worker.stopped() {
		return errors.Join(ErrWorkerStopped, s.worker.err)
	}

	var errs []error

	// Queued scene edits and structural engine changes are committed only
	// while the worker is provably idle, so an in-flight pass never
	// observes a half-edited scene.
	if s.complete.Load() {
		if err := s.gate.Commit(); err != nil {
			errs = append(errs, err)
		}
		if err := s.applyStructural(); err != nil {
			errs = append(errs, err)
		}
	}

	s.mu.Lock()
	shared := s.cfg.Quality.SharedInputs(s.listenerPose)
	s.mu.Unlock()

	if err := s.directPass(shared); err != nil {
		errs = append(errs, err)
	}

	if s.cfg.Interval < 0 {
		return errors.Join(errs...)
	}

	s.timer += dt
	if s.timer < s.cfg.Interval {
		return errors.Join(errs...)
	}
	if !s.complete.Load() {
		// Elapsed, but the previous pass is still running. Dispatch is
		// deferred, not dropped: the timer keeps its value and the next
		// idle tick dispatches.
		return errors.Join(errs...)
	}

	if err := s.dispatchExpensive(shared); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// applyStructural pushes deferred source/probe changes into the engine.
// Caller has observed the completion flag true, so the write lock must be
// free; finding it contended is a protocol defect surfaced loudly.
func (s *Scheduler) applyStructural() error {
	s.mu.Lock()
	removals := s.pendingRemove
	probes := s.pendingProbes
	var adds []*trackedSource
	for _, src := range s.sources {
		if !src.applied {
			adds = append(adds, src)
		}
	}
	s.pendingRemove = nil
	s.pendingProbes = nil
	s.mu.Unlock()

	if len(removals) == 0 && len(probes) == 0 && len(adds) == 0 {
		return nil
	}

	var perObject []error
	var rejected []*trackedSource
	err := s.handle.TryWrite(func(e Engine) error {
		for _, id := range removals {
			e.RemoveSource(id)
		}
		for _, src := range adds {
			if err := e.AddSource(src.id, src.settings); err != nil {
				// Skip the offending source, keep going for the others.
				perObject = append(perObject, fmt.Errorf("add source %d: %w", src.id, err))
				rejected = append(rejected, src)
				continue
			}
			src.applied = true
		}
		for _, p := range probes {
			if p.remove {
				e.RemoveProbeBatch(p.name)
				continue
			}
			if err := e.AddProbeBatch(p.name, p.batch); err != nil {
				perObject = append(perObject, fmt.Errorf("add probe batch %q: %w", p.name, err))
			}
		}
		return e.Commit()
	})
	if errors.Is(err, ErrEngineBusy) {
		s.logger.Error("engine busy during structural commit despite idle worker")
		return fmt.Errorf("structural commit: %w", err)
	}
	if err != nil {
		perObject = append(perObject, fmt.Errorf("structural commit: %w", err))
	}

	// Sources the engine rejected stay unapplied; drop exactly those so
	// they are not retried forever. Sources registered while the apply ran
	// (the scheduler mutex is released around the engine work) are still
	// pending and get their turn on the next idle tick.
	if len(rejected) > 0 {
		s.mu.Lock()
		for _, src := range rejected {
			if s.sources[src.id] == src {
				delete(s.sources, src.id)
			}
		}
		s.mu.Unlock()
	}

	return errors.Join(perObject...)
}

// directPass runs the cheap synchronous pass under the read lock and
// publishes per-source outputs to the caches.
func (s *Scheduler) directPass(shared SharedInputs) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var perObject []error
	ok, err := s.handle.TryRead(func(e Engine) error {
		e.SetSharedInputs(FlagDirect, shared)
		for _, src := range s.sources {
			if !src.applied || !src.settings.Flags.Has(FlagDirect) {
				continue
			}
			e.SetSourceInputs(src.id, FlagDirect, s.inputsFor(src))
		}

		if err := e.RunDirect(); err != nil {
			return fmt.Errorf("direct pass: %w", err)
		}

		for _, src := range s.sources {
			if !src.applied || !src.settings.Flags.Has(FlagDirect) {
				continue
			}
			out, found := e.SourceOutputs(src.id, FlagDirect)
			if !found {
				perObject = append(perObject, fmt.Errorf("direct outputs for source %d: %w", src.id, ErrUnknownSource))
				continue
			}
			src.cache.publishDirect(out.Direct)
		}
		return nil
	})
	if !ok {
		if s.cfg.SerializePasses {
			// Expected overlap with a serialized expensive pass; the
			// caches keep last tick's outputs.
			return nil
		}
		// The worker computes under the read lock, so a held write lock
		// here means the locking protocol is broken.
		s.logger.Error("direct pass found engine write-locked")
		return fmt.Errorf("direct pass: %w", ErrEngineBusy)
	}
	if err != nil {
		perObject = append(perObject, err)
	}
	return errors.Join(perObject...)
}

// dispatchExpensive publishes the previous expensive pass's outputs, swaps
// in fresh inputs, clears the completion flag and wakes the worker.
// Caller has verified the throttle elapsed and the worker is idle.
func (s *Scheduler) dispatchExpensive(shared SharedInputs) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ok, err := s.handle.TryRead(func(e Engine) error {
		// Publish the most recent completed outputs first, so the render
		// stage always sees results of a finished pass, never a torn one.
		for _, src := range s.sources {
			flags := src.settings.Flags & FlagsExpensive
			if !src.applied || flags == 0 {
				continue
			}
			if out, found := e.SourceOutputs(src.id, flags); found {
				src.cache.publishExpensive(flags, out)
			}
		}

		e.SetSharedInputs(FlagsExpensive, shared)
		for _, src := range s.sources {
			flags := src.settings.Flags & FlagsExpensive
			if !src.applied || flags == 0 {
				continue
			}
			e.SetSourceInputs(src.id, flags, s.inputsFor(src))
		}
		return nil
	})
	if !ok {
		s.logger.Error("dispatch found engine locked despite idle worker")
		return fmt.Errorf("expensive dispatch: %w", ErrEngineBusy)
	}
	if err != nil {
		return err
	}

	s.complete.Store(false)
	s.timer = 0

	if s.worker.stopped() {
		return errors.Join(ErrWorkerStopped, s.worker.err)
	}
	select {
	case s.worker.wake <- struct{}{}:
	default:
		// A wake is already queued; the worker will pick it up.
	}
	return nil
}

// inputsFor derives a source's simulation inputs from its current pose.
// Caller holds s.mu.
func (s *Scheduler) inputsFor(src *trackedSource) SourceInputs {
	in := SourceInputs{
		Source:  src.pose,
		Direct:  s.cfg.Direct,
		Pathing: s.cfg.Pathing,
	}
	if in.Pathing.Order == 0 {
		in.Pathing.Order = s.cfg.Quality.Order
	}
	return in
}

// Close stops the background worker and clears every cache so affected
// sources fall back to silence. The engine itself is owned by the caller
// (it outlives scheduler rebuilds) and is not closed here.
func (s *Scheduler) Close() {
	if s.worker != nil && !s.worker.stopped() {
		s.worker.stop()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, src := range s.sources {
		src.cache.clear()
	}
}
