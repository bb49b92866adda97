// SPDX-License-Identifier: EPL-2.0

package audspace

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ik5/audspace/simulation"
)

// StreamState is the lifecycle phase of a Stream.
type StreamState int32

const (
	// StateIdle means no engine is live: before the first build, after
	// Close, or after a failed rebuild.
	StateIdle StreamState = iota
	// StateDraining means a rebuild was requested and the stream is
	// waiting for the render side to stop pulling audio.
	StateDraining
	// StateRebuilding means the old engine is torn down and the new one is
	// being constructed.
	StateRebuilding
	// StateRunning means the scheduler is live and Tick must be called.
	StateRunning
)

func (s StreamState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDraining:
		return "draining"
	case StateRebuilding:
		return "rebuilding"
	case StateRunning:
		return "running"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// ErrStreamNotRunning is returned by operations that need a live engine.
var ErrStreamNotRunning = errors.New("stream not running")

// EngineFactory builds a solver instance and its scene for the given
// quality preset and sample rate. Called once per stream build or rebuild.
type EngineFactory func(quality simulation.Quality, sampleRate int) (simulation.Engine, simulation.Scene, error)

// StreamConfig parameterizes a Stream. Changing SampleRate or Quality
// after construction forces a stop-the-world rebuild.
type StreamConfig struct {
	SampleRate int
	Quality    simulation.Quality

	// Interval, Direct, Pathing and SerializePasses pass through to the
	// scheduler; see simulation.Config.
	Interval        time.Duration
	Direct          simulation.DirectParams
	Pathing         simulation.PathingParams
	SerializePasses bool

	Logger *slog.Logger
}

// Stream owns one engine/scheduler pair for the lifetime of an output
// stream configuration. Sample-rate and quality changes cannot be applied
// to a live solver, so Stream tears the pair down and rebuilds it,
// carrying registered sources and probe batches over to the new instance.
//
// Tick, rebuilds and Close belong to the control thread; source and pose
// mutation may come from other goroutines.
type Stream struct {
	factory EngineFactory
	logger  *slog.Logger

	state atomic.Int32

	mu     sync.Mutex
	cfg    StreamConfig
	engine simulation.Engine
	sched  *simulation.Scheduler

	// Carried across rebuilds.
	sources  map[simulation.SourceID]simulation.SourceSettings
	probes   map[string]simulation.ProbeBatch
	poses    map[simulation.SourceID]simulation.CoordinateSystem
	listener simulation.CoordinateSystem
}

// NewStream builds the engine and scheduler and enters StateRunning.
// Construction failure is fatal, not retried.
func NewStream(factory EngineFactory, cfg StreamConfig) (*Stream, error) {
	if factory == nil {
		return nil, errors.New("nil engine factory")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 48000
	}
	if cfg.Quality.FrameSize <= 0 {
		cfg.Quality = simulation.DefaultQuality()
	}

	s := &Stream{
		factory:  factory,
		logger:   cfg.Logger,
		cfg:      cfg,
		sources:  make(map[simulation.SourceID]simulation.SourceSettings),
		probes:   make(map[string]simulation.ProbeBatch),
		poses:    make(map[simulation.SourceID]simulation.CoordinateSystem),
		listener: simulation.DefaultCoordinateSystem(),
	}
	if err := s.build(); err != nil {
		return nil, err
	}
	return s, nil
}

// State returns the current lifecycle phase.
func (s *Stream) State() StreamState {
	return StreamState(s.state.Load())
}

// SampleRate returns the active output sample rate.
func (s *Stream) SampleRate() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.SampleRate
}

// Quality returns the active quality preset.
func (s *Stream) Quality() simulation.Quality {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Quality
}

// Scheduler exposes the live scheduler, or nil outside StateRunning. The
// pointer is invalidated by a rebuild; control-thread code should re-fetch
// it each tick rather than caching it.
func (s *Stream) Scheduler() *simulation.Scheduler {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.State() != StateRunning {
		return nil
	}
	return s.sched
}

// build constructs engine and scheduler from the current config and
// replays carried sources, poses and probe batches. Caller must hold no
// locks; build manages s.mu itself.
func (s *Stream) build() error {
	s.state.Store(int32(StateRebuilding))

	s.mu.Lock()
	defer s.mu.Unlock()

	engine, scene, err := s.factory(s.cfg.Quality, s.cfg.SampleRate)
	if err != nil {
		s.state.Store(int32(StateIdle))
		return fmt.Errorf("engine factory: %w", err)
	}

	sched, err := simulation.NewScheduler(engine, scene, simulation.Config{
		Quality:         s.cfg.Quality,
		Interval:        s.cfg.Interval,
		Direct:          s.cfg.Direct,
		Pathing:         s.cfg.Pathing,
		SerializePasses: s.cfg.SerializePasses,
		Logger:          s.logger,
	})
	if err != nil {
		engine.Close()
		s.state.Store(int32(StateIdle))
		return fmt.Errorf("scheduler: %w", err)
	}

	for id, settings := range s.sources {
		if _, err := sched.AddSource(id, settings); err != nil {
			// Carried sources were valid in the previous instance.
			s.logger.Error("carry source over rebuild",
				slog.Uint64("source", uint64(id)), slog.Any("error", err))
		}
		if pose, ok := s.poses[id]; ok {
			sched.SetSourcePose(id, pose)
		}
	}
	for name, batch := range s.probes {
		sched.AddProbeBatch(name, batch)
	}
	sched.SetListenerPose(s.listener)

	s.engine = engine
	s.sched = sched
	s.state.Store(int32(StateRunning))
	return nil
}

// teardown stops the scheduler and closes the engine. Caller must hold no
// locks.
func (s *Stream) teardown() {
	s.mu.Lock()
	sched, engine := s.sched, s.engine
	s.sched, s.engine = nil, nil
	s.mu.Unlock()

	if sched != nil {
		sched.Close()
	}
	if engine != nil {
		if err := engine.Close(); err != nil {
			s.logger.Error("engine close", slog.Any("error", err))
		}
	}
}

// rebuild drains, tears down and rebuilds the engine/scheduler pair.
// Failure leaves the stream in StateIdle with no live engine.
func (s *Stream) rebuild() error {
	if s.State() != StateRunning {
		return ErrStreamNotRunning
	}

	// Caches clear during teardown, so render callbacks that race the
	// rebuild fall back to silence rather than touching dead outputs.
	s.state.Store(int32(StateDraining))
	s.teardown()
	return s.build()
}

// SetSampleRate rebuilds the stream at a new output sample rate. A no-op
// when the rate already matches.
func (s *Stream) SetSampleRate(rate int) error {
	if rate <= 0 {
		return fmt.Errorf("sample rate %d out of range", rate)
	}

	s.mu.Lock()
	same := s.cfg.SampleRate == rate
	s.cfg.SampleRate = rate
	s.mu.Unlock()
	if same {
		return nil
	}
	return s.rebuild()
}

// SetQuality rebuilds the stream with a new quality preset. A no-op when
// the preset already matches.
func (s *Stream) SetQuality(q simulation.Quality) error {
	s.mu.Lock()
	same := s.cfg.Quality == q
	s.cfg.Quality = q
	s.mu.Unlock()
	if same {
		return nil
	}
	return s.rebuild()
}

// AddSource registers a source with the live scheduler and records it for
// carry-over on rebuild.
func (s *Stream) AddSource(id simulation.SourceID, settings simulation.SourceSettings) (*simulation.SourceCache, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State() != StateRunning {
		return nil, ErrStreamNotRunning
	}
	cache, err := s.sched.AddSource(id, settings)
	if err != nil {
		return nil, err
	}
	s.sources[id] = settings
	return cache, nil
}

// RemoveSource unregisters a source.
func (s *Stream) RemoveSource(id simulation.SourceID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State() != StateRunning {
		return ErrStreamNotRunning
	}
	if err := s.sched.RemoveSource(id); err != nil {
		return err
	}
	delete(s.sources, id)
	delete(s.poses, id)
	return nil
}

// AddProbeBatch registers a baked probe batch, carried over rebuilds.
func (s *Stream) AddProbeBatch(name string, batch simulation.ProbeBatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State() != StateRunning {
		return ErrStreamNotRunning
	}
	s.sched.AddProbeBatch(name, batch)
	s.probes[name] = batch
	return nil
}

// RemoveProbeBatch unregisters a probe batch.
func (s *Stream) RemoveProbeBatch(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State() != StateRunning {
		return ErrStreamNotRunning
	}
	s.sched.RemoveProbeBatch(name)
	delete(s.probes, name)
	return nil
}

// SetListenerPose forwards the listener pose and keeps it for rebuilds.
func (s *Stream) SetListenerPose(pose simulation.CoordinateSystem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State() != StateRunning {
		return ErrStreamNotRunning
	}
	s.listener = pose
	s.sched.SetListenerPose(pose)
	return nil
}

// SetSourcePose forwards a source pose and keeps it for rebuilds.
func (s *Stream) SetSourcePose(id simulation.SourceID, pose simulation.CoordinateSystem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State() != StateRunning {
		return ErrStreamNotRunning
	}
	if err := s.sched.SetSourcePose(id, pose); err != nil {
		return err
	}
	s.poses[id] = pose
	return nil
}

// Tick advances the live scheduler. A worker failure is escalated here:
// the stream tears itself down to StateIdle and returns the error, and the
// host decides whether to rebuild with NewStream semantics via Rebuild.
func (s *Stream) Tick(dt time.Duration) error {
	s.mu.Lock()
	sched := s.sched
	s.mu.Unlock()

	if s.State() != StateRunning || sched == nil {
		return ErrStreamNotRunning
	}
	err := sched.Tick(dt)
	if errors.Is(err, simulation.ErrWorkerStopped) {
		s.state.Store(int32(StateDraining))
		s.teardown()
		s.state.Store(int32(StateIdle))
		return err
	}
	return err
}

// Rebuild rebuilds from StateIdle after a fatal worker failure, reusing
// the current config and carried sources.
func (s *Stream) Rebuild() error {
	if s.State() != StateIdle {
		return fmt.Errorf("rebuild from %v: stream must be idle", s.State())
	}
	return s.build()
}

// Close tears the stream down. Safe to call once, from the control thread.
func (s *Stream) Close() {
	if s.State() == StateIdle {
		return
	}
	s.state.Store(int32(StateDraining))
	s.teardown()
	s.state.Store(int32(StateIdle))
}
