// SPDX-License-Identifier: EPL-2.0

// Package audio provides the low-level audio primitives of audspace.
//
// This package contains the building blocks the spatial simulation's render
// path is made of:
//   - Source interface for emitter content input
//   - Accumulator for re-blocking callback buffers into fixed frames
//   - Resampler for sample rate conversion
//   - MonoMixer for channel mixing
//   - Looper for repeating finite emitter content
//   - Format registry for decoder registration
//
// # Source Interface
//
// The Source interface is the foundation of audio processing:
//
//	type Source interface {
//	    SampleRate() int
//	    Channels() int
//	    ReadSamples(dst []float32) (int, error)
//	    BufSize() int
//	    Close() error
//	}
//
// All decoders and processors implement this interface, allowing them to be
// chained together: a typical emitter feed is decoder -> Resampler ->
// MonoMixer, optionally wrapped in a Looper.
//
// # Fixed Frame Accumulation
//
// Simulation effects require exactly one fixed frame (e.g. 256 samples per
// channel) for every input and output of every call, while the audio engine
// delivers variable-size blocks. The Accumulator converts between the two:
//
//	acc, _ := audio.NewAccumulator(256, 512, 2, 2, nil)
//	status := acc.Process(inputs, outputs, func(in, out [][]float32) {
//	    // in and out are exactly 256 samples per channel
//	})
//
// After an initial priming period the Accumulator never allocates, making it
// safe inside a hard-realtime audio callback. See Accumulator for the
// draining and slack rules.
//
// # Resampling
//
// The Resampler changes the sample rate of audio using cubic interpolation:
//
//	resampler := audio.NewResampler(source, 48000)
//	buf := make([]float32, 4096)
//	n, err := resampler.ReadSamples(buf)
//
// Resampling works for both upsampling and downsampling with high quality.
// Retarget switches the output rate in place when the stream restarts.
//
// # Channel Mixing
//
// The MonoMixer converts multi-channel audio to mono by averaging:
//
//	mono := audio.NewMonoMixer(source)
//
// Spatial encoding operates on mono feeds, so every emitter pipeline ends
// with one of these.
//
// # Sample Format
//
// Audio samples are represented as float32 in the range [-1.0, 1.0]:
//   - 0.0 represents silence
//   - 1.0 represents maximum positive amplitude
//   - -1.0 represents maximum negative amplitude
//
// # Performance Considerations
//
// The audio processing types are optimized for performance:
//   - Minimal allocations (zero after warmup on the realtime path)
//   - Efficient buffer management
//   - Buffer reuse instead of per-call allocation
//
// # Error Handling
//
// Sources return io.EOF when no more data is available. Other errors
// indicate problems with the source or processing. The Accumulator never
// returns errors from Process; realtime defects are logged instead, since
// the audio callback cannot stop to handle them.
package audio
