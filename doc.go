// SPDX-License-Identifier: EPL-2.0

// Package audspace is the per-source simulation core of a spatial audio
// pipeline: it drives an external acoustic solver at two rates, re-blocks
// arbitrarily sized audio callbacks into the solver's fixed frame size,
// and hands simulation results to the render stage through lock-free
// caches.
//
// # Stream lifecycle
//
// Stream owns one engine/scheduler pair per output configuration. Changing
// the sample rate or the quality preset rebuilds the pair, carrying
// registered sources and probe batches over:
//
//	stream, err := audspace.NewStream(factory, audspace.StreamConfig{
//		SampleRate: 48000,
//	})
//	if err != nil {
//		// fatal: no solver available
//	}
//	defer stream.Close()
//
//	cache, _ := stream.AddSource(1, simulation.SourceSettings{
//		Flags: simulation.FlagDirect | simulation.FlagReflections,
//	})
//
//	// Once per control tick:
//	stream.SetListenerPose(pose)
//	err = stream.Tick(dt)
//
// The render stage reads cache.Direct(), cache.Reflections() and
// cache.Pathing() from the audio callback; see the simulation package.
//
// # Fixed-frame re-blocking
//
// Solver effects consume and produce fixed frames while audio callbacks
// arrive in arbitrary block sizes. audio.Accumulator sits between them,
// buffering enough slack that a frame-per-callback mismatch never starves
// the output; see the audio package.
//
// # Emitter content
//
// Emitter sample content is decoded by the formats subpackages (WAV, MP3,
// Ogg Vorbis, AIFF) and conditioned by NewEmitterFeed into the mono,
// stream-rate form the spatializer consumes:
//
//	f, _ := os.Open("footsteps.ogg")
//	src, _ := (vorbis.Decoder{}).Decode(f)
//	feed := audspace.NewEmitterFeed(src, stream.SampleRate(),
//		audspace.FeedOptions{Loop: true})
//
// # Threading model
//
// Three execution contexts touch this package: the control thread (Tick,
// scene edits, source registration), the background simulation worker
// (owned by the scheduler, never visible to callers), and the audio
// callback (cache reads and Accumulator.Process only — everything on that
// path is lock-free and allocation-free in steady state).
package audspace
