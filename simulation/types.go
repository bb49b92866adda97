// SPDX-License-Identifier: EPL-2.0

package simulation

import "time"

// Flags is the set of simulation passes a source participates in.
type Flags uint8

const (
	// FlagDirect marks participation in the cheap per-tick direct pass
	// (occlusion, attenuation, directivity along the straight line from
	// source to listener).
	FlagDirect Flags = 1 << iota
	// FlagReflections marks participation in the expensive multi-bounce
	// reflections pass.
	FlagReflections
	// FlagPathing marks participation in the probe-graph pathing pass.
	FlagPathing
)

// FlagsAll is every pass.
const FlagsAll = FlagDirect | FlagReflections | FlagPathing

// FlagsExpensive is the passes computed by the background worker.
const FlagsExpensive = FlagReflections | FlagPathing

// Has reports whether every pass in other is present in f.
func (f Flags) Has(other Flags) bool { return f&other == other }

// Without returns f with the passes in other removed.
func (f Flags) Without(other Flags) Flags { return f &^ other }

// Vec3 is a position or direction in world space.
type Vec3 struct {
	X, Y, Z float32
}

// CoordinateSystem is a position plus orientation: the pose the host
// transform system supplies once per tick for the listener and each source.
// Ahead, Up and Right are unit vectors.
type CoordinateSystem struct {
	Origin Vec3
	Ahead  Vec3
	Up     Vec3
	Right  Vec3
}

// DefaultCoordinateSystem returns an identity pose at the origin, facing
// negative Z with Y up (right-handed).
func DefaultCoordinateSystem() CoordinateSystem {
	return CoordinateSystem{
		Ahead: Vec3{Z: -1},
		Up:    Vec3{Y: 1},
		Right: Vec3{X: 1},
	}
}

// SourceID identifies one sound source within an engine instance.
type SourceID uint32

// ListenerID is the reserved source identity of the listener's own
// reflections-only source, which drives the listener-centric reverb.
const ListenerID SourceID = 0

// SourceSettings fixes the passes a source participates in for its
// lifetime.
type SourceSettings struct {
	Flags Flags
}

// DirectParams selects the direct-pass effects computed for a source.
type DirectParams struct {
	DistanceAttenuation bool
	AirAbsorption       bool
	Directivity         bool
	Occlusion           bool
	// TransmissionRays > 0 additionally traces transmission through
	// occluders with the given ray count.
	TransmissionRays int
}

// PathingParams configures the probe-graph search for a source.
type PathingParams struct {
	VisibilityRadius    float32
	VisibilityThreshold float32
	VisibilityRange     float32
	Order               int
	FindAlternatePaths  bool
}

// SourceInputs is the per-source simulation input for one or more passes.
type SourceInputs struct {
	Source  CoordinateSystem
	Direct  DirectParams
	Pathing PathingParams
}

// SharedInputs is the listener-derived input shared by every source in a
// pass.
type SharedInputs struct {
	Listener   CoordinateSystem
	NumRays    int
	NumBounces int
	Duration   time.Duration
	Order      int
	// IrradianceMinDistance clamps how close a reflecting surface may be
	// when its energy contribution is computed.
	IrradianceMinDistance float32
}

// DirectOutputs is the result of the direct pass for one source, per
// frequency band where banded.
type DirectOutputs struct {
	DistanceAttenuation float32
	AirAbsorption       [3]float32
	Directivity         float32
	Occlusion           float32
	Transmission        [3]float32
}

// ReflectionsOutputs is the result of the reflections pass for one source:
// the parameters the render stage's reflection effect applies. The energy
// field is owned by the engine; the slice must be treated as read-only.
type ReflectionsOutputs struct {
	NumChannels         int
	ImpulseResponseSize int
	Energy              []float32
}

// PathingOutputs is the result of the probe-graph pathing pass for one
// source.
type PathingOutputs struct {
	EQ    [3]float32
	Gain  float32
	Valid bool
}

// SourceOutputs bundles whichever pass outputs were requested; Flags tells
// which fields are meaningful.
type SourceOutputs struct {
	Flags       Flags
	Direct      DirectOutputs
	Reflections ReflectionsOutputs
	Pathing     PathingOutputs
}

// Quality groups the settings whose change forces a stop-the-world rebuild
// of the engine and worker.
type Quality struct {
	// FrameSize is the fixed samples-per-channel unit every simulation
	// effect consumes and produces.
	FrameSize int
	// Order is the ambisonic order of reflections and pathing output.
	Order int

	NumRays    int
	NumBounces int
	Duration   time.Duration
}

// DefaultQuality mirrors a mid-range realtime preset.
func DefaultQuality() Quality {
	return Quality{
		FrameSize:  256,
		Order:      1,
		NumRays:    4096,
		NumBounces: 16,
		Duration:   2 * time.Second,
	}
}

// SharedInputs derives the per-tick shared simulation input from the
// listener pose.
func (q Quality) SharedInputs(listener CoordinateSystem) SharedInputs {
	return SharedInputs{
		Listener:              listener,
		NumRays:               q.NumRays,
		NumBounces:            q.NumBounces,
		Duration:              q.Duration,
		Order:                 q.Order,
		IrradianceMinDistance: 1,
	}
}
