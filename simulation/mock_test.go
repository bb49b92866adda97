// SPDX-License-Identifier: EPL-2.0

package simulation

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// mockEngine records every call the scheduler and worker make, counts pass
// runs and checks that expensive passes never overlap each other.
type mockEngine struct {
	mu      sync.Mutex
	sources map[SourceID]SourceSettings
	inputs  map[SourceID]SourceInputs
	shared  map[Flags]SharedInputs
	probes  map[string]ProbeBatch

	directRuns atomic.Int32
	reflRuns   atomic.Int32
	pathRuns   atomic.Int32
	commits    atomic.Int32

	// expensiveInFlight must never exceed 1; overlapped flips if it does.
	expensiveInFlight atomic.Int32
	overlapped        atomic.Bool

	// reflGate, when non-nil, blocks RunReflections until the channel is
	// closed, simulating a slow background pass; reflDelay slows it down
	// instead. reflStarted counts entries, letting a test wait until a
	// gated pass actually holds the engine lock.
	reflGate    chan struct{}
	reflDelay   time.Duration
	reflErr     error
	reflStarted atomic.Int32

	addErr map[SourceID]error

	// addHook, when non-nil, runs at the top of AddSource. Lets a test
	// mutate the scheduler while a structural apply is mid-flight.
	addHook func(id SourceID)
}

func newMockEngine() *mockEngine {
	return &mockEngine{
		sources: make(map[SourceID]SourceSettings),
		inputs:  make(map[SourceID]SourceInputs),
		shared:  make(map[Flags]SharedInputs),
		probes:  make(map[string]ProbeBatch),
		addErr:  make(map[SourceID]error),
	}
}

func (m *mockEngine) SetSharedInputs(flags Flags, inputs SharedInputs) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shared[flags] = inputs
}

func (m *mockEngine) RunDirect() error {
	m.directRuns.Add(1)
	return nil
}

func (m *mockEngine) RunReflections() error {
	m.reflStarted.Add(1)
	if m.expensiveInFlight.Add(1) > 1 {
		m.overlapped.Store(true)
	}
	defer m.expensiveInFlight.Add(-1)

	if m.reflGate != nil {
		<-m.reflGate
	}
	if m.reflDelay > 0 {
		time.Sleep(m.reflDelay)
	}
	m.reflRuns.Add(1)
	return m.reflErr
}

func (m *mockEngine) RunPathing() error {
	if m.expensiveInFlight.Add(1) > 1 {
		m.overlapped.Store(true)
	}
	defer m.expensiveInFlight.Add(-1)

	m.pathRuns.Add(1)
	return nil
}

func (m *mockEngine) Commit() error {
	m.commits.Add(1)
	return nil
}

func (m *mockEngine) AddSource(id SourceID, settings SourceSettings) error {
	if m.addHook != nil {
		m.addHook(id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.addErr[id]; err != nil {
		return err
	}
	m.sources[id] = settings
	return nil
}

func (m *mockEngine) RemoveSource(id SourceID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sources, id)
	delete(m.inputs, id)
}

func (m *mockEngine) SetSourceInputs(id SourceID, flags Flags, inputs SourceInputs) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inputs[id] = inputs
}

func (m *mockEngine) SourceOutputs(id SourceID, flags Flags) (SourceOutputs, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sources[id]; !ok {
		return SourceOutputs{}, false
	}
	out := SourceOutputs{Flags: flags}
	if flags.Has(FlagDirect) {
		// Encode which source this is so tests can tell outputs apart.
		out.Direct = DirectOutputs{DistanceAttenuation: float32(id) + 0.5}
	}
	if flags.Has(FlagReflections) {
		out.Reflections = ReflectionsOutputs{
			NumChannels:         4,
			ImpulseResponseSize: 1024,
		}
	}
	if flags.Has(FlagPathing) {
		out.Pathing = PathingOutputs{Gain: 1, Valid: true}
	}
	return out, true
}

func (m *mockEngine) AddProbeBatch(name string, batch ProbeBatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.probes[name] = batch
	return nil
}

func (m *mockEngine) RemoveProbeBatch(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.probes, name)
}

func (m *mockEngine) Close() error { return nil }

func (m *mockEngine) probeNames() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.probes))
	for name := range m.probes {
		names = append(names, name)
	}
	return names
}

// mockScene counts edits and commits.
type mockScene struct {
	mu        sync.Mutex
	nextID    MeshID
	meshes    map[MeshID]bool
	commits   int
	commitErr error
}

func newMockScene() *mockScene {
	return &mockScene{meshes: make(map[MeshID]bool)}
}

func (s *mockScene) AddStaticMesh(mesh StaticMesh) (MeshID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.meshes[s.nextID] = true
	return s.nextID, nil
}

func (s *mockScene) AddInstancedMesh(mesh InstancedMesh) (MeshID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.meshes[s.nextID] = true
	return s.nextID, nil
}

func (s *mockScene) RemoveStaticMesh(id MeshID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.meshes, id)
}

func (s *mockScene) RemoveInstancedMesh(id MeshID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.meshes, id)
}

func (s *mockScene) UpdateInstancedMeshTransform(id MeshID, transform Transform) {}

func (s *mockScene) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commits++
	return s.commitErr
}

func (s *mockScene) commitCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commits
}

// waitIdle spins until the scheduler reports the worker idle, for tests
// that need the primed first pass (or a dispatched one) to finish.
func waitIdle(s *Scheduler) {
	for !s.Idle() {
		runtime.Gosched()
	}
}
