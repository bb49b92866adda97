// SPDX-License-Identifier: EPL-2.0

package simulation

import "sync/atomic"

// SourceCache holds the latest published simulation outputs for one source.
// The scheduler writes on the control thread; the render stage's effect
// apply reads from the audio callback. Handoff is last-write-wins: a read
// one tick stale is defined behavior. Reads never block and never allocate,
// so they are safe inside the hard-realtime callback.
//
// Direct outputs update every tick; reflections and pathing outputs update
// only when a background pass completes, so they live in separate cells.
type SourceCache struct {
	direct      atomic.Pointer[DirectOutputs]
	reflections atomic.Pointer[ReflectionsOutputs]
	pathing     atomic.Pointer[PathingOutputs]
}

// Direct returns the most recent direct-pass outputs. ok is false before
// the first publish; the caller renders silence in that case rather than
// applying stale or garbage parameters.
func (c *SourceCache) Direct() (DirectOutputs, bool) {
	p := c.direct.Load()
	if p == nil {
		return DirectOutputs{}, false
	}
	return *p, true
}

// Reflections returns the outputs of the most recently completed
// reflections pass.
func (c *SourceCache) Reflections() (ReflectionsOutputs, bool) {
	p := c.reflections.Load()
	if p == nil {
		return ReflectionsOutputs{}, false
	}
	return *p, true
}

// Pathing returns the outputs of the most recently completed pathing pass.
func (c *SourceCache) Pathing() (PathingOutputs, bool) {
	p := c.pathing.Load()
	if p == nil {
		return PathingOutputs{}, false
	}
	return *p, true
}

func (c *SourceCache) publishDirect(out DirectOutputs) {
	c.direct.Store(&out)
}

func (c *SourceCache) publishExpensive(flags Flags, out SourceOutputs) {
	if flags.Has(FlagReflections) {
		r := out.Reflections
		c.reflections.Store(&r)
	}
	if flags.Has(FlagPathing) {
		p := out.Pathing
		c.pathing.Store(&p)
	}
}

// clear drops all published outputs so affected sources fall back to
// silence instead of applying outputs from a torn-down engine.
func (c *SourceCache) clear() {
	c.direct.Store(nil)
	c.reflections.Store(nil)
	c.pathing.Store(nil)
}
