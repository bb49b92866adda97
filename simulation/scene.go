// SPDX-License-Identifier: EPL-2.0

package simulation

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Scene is the external geometric/acoustic environment the engine traces.
// Mesh mutations may be called at any time; Commit, which makes them
// visible to tracing, requires the same exclusivity as engine writes since
// the engine references the scene during passes.
type Scene interface {
	AddStaticMesh(mesh StaticMesh) (MeshID, error)
	AddInstancedMesh(mesh InstancedMesh) (MeshID, error)
	RemoveStaticMesh(id MeshID)
	RemoveInstancedMesh(id MeshID)
	UpdateInstancedMeshTransform(id MeshID, transform Transform)
	Commit() error
}

// MeshID identifies a mesh within a Scene.
type MeshID uint32

// Transform is a world-space rigid transform for instanced meshes, row
// major.
type Transform [4][4]float32

// StaticMesh is immovable acoustic geometry with per-triangle materials.
type StaticMesh struct {
	Vertices        []Vec3
	Triangles       [][3]int32
	MaterialIndices []int32
	Materials       []Material
}

// InstancedMesh places a sub-scene in the root scene under a transform,
// letting geometry move without re-uploading it.
type InstancedMesh struct {
	Sub       Scene
	Transform Transform
}

// Material is the acoustic absorption/scattering/transmission description
// of a surface, three frequency bands each for absorption and transmission.
type Material struct {
	Absorption   [3]float32
	Scattering   float32
	Transmission [3]float32
}

// SceneGate enforces the mutation-safety invariant between scene edits and
// the background pass: edits queue at any time, but the single commit that
// makes them visible to the simulation happens only while the worker is
// provably idle. Only the scheduler commits, at the top of a tick, so the
// worker can never observe a half-edited scene mid-computation.
type SceneGate struct {
	scene Scene
	idle  *atomic.Bool

	mu    sync.Mutex
	dirty bool
}

// NewSceneGate wraps a scene. idle is the scheduler's pending-completion
// flag; it is true exactly when no expensive pass is in flight.
func NewSceneGate(scene Scene, idle *atomic.Bool) *SceneGate {
	return &SceneGate{scene: scene, idle: idle}
}

// Dirty reports whether edits are queued but not yet committed.
func (g *SceneGate) Dirty() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.dirty
}

func (g *SceneGate) markDirty() {
	g.mu.Lock()
	g.dirty = true
	g.mu.Unlock()
}

// AddStaticMesh queues static geometry. Visible to the simulation after the
// next commit.
func (g *SceneGate) AddStaticMesh(mesh StaticMesh) (MeshID, error) {
	id, err := g.scene.AddStaticMesh(mesh)
	if err != nil {
		return 0, fmt.Errorf("%w", err)
	}
	g.markDirty()
	return id, nil
}

// AddInstancedMesh queues movable geometry.
func (g *SceneGate) AddInstancedMesh(mesh InstancedMesh) (MeshID, error) {
	id, err := g.scene.AddInstancedMesh(mesh)
	if err != nil {
		return 0, fmt.Errorf("%w", err)
	}
	g.markDirty()
	return id, nil
}

// RemoveStaticMesh queues removal of static geometry.
func (g *SceneGate) RemoveStaticMesh(id MeshID) {
	g.scene.RemoveStaticMesh(id)
	g.markDirty()
}

// RemoveInstancedMesh queues removal of movable geometry.
func (g *SceneGate) RemoveInstancedMesh(id MeshID) {
	g.scene.RemoveInstancedMesh(id)
	g.markDirty()
}

// UpdateInstancedMeshTransform queues a transform change for movable
// geometry.
func (g *SceneGate) UpdateInstancedMeshTransform(id MeshID, transform Transform) {
	g.scene.UpdateInstancedMeshTransform(id, transform)
	g.markDirty()
}

// Commit publishes queued edits to the simulation. Legal only while the
// worker is idle; external callers normally never call this — the
// scheduler commits at the top of each tick.
func (g *SceneGate) Commit() error {
	if !g.idle.Load() {
		return ErrCommitWhileBusy
	}

	g.mu.Lock()
	dirty := g.dirty
	g.dirty = false
	g.mu.Unlock()

	if !dirty {
		return nil
	}
	if err := g.scene.Commit(); err != nil {
		return fmt.Errorf("scene commit: %w", err)
	}
	return nil
}
