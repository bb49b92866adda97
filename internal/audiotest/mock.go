// SPDX-License-Identifier: EPL-2.0

// Package audiotest generates deterministic emitter content for tests.
package audiotest

import (
	"io"
	"math"
)

// MockSource produces a fixed number of frames from a per-sample generator
// function. It satisfies the audio.Source interface without importing it.
type MockSource struct {
	rate     int
	channels int
	frames   int
	pos      int
	gen      func(frame, ch int) float32
}

// NewMockSource builds a source emitting the given number of frames per
// channel, with sample values taken from gen.
func NewMockSource(rate, channels, frames int, gen func(frame, ch int) float32) *MockSource {
	return &MockSource{rate: rate, channels: channels, frames: frames, gen: gen}
}

// NewSilentSource emits zeros.
func NewSilentSource(rate, channels, frames int) *MockSource {
	return NewConstantSource(rate, channels, frames, 0)
}

// NewConstantSource emits the same value in every sample.
func NewConstantSource(rate, channels, frames int, value float32) *MockSource {
	return NewMockSource(rate, channels, frames, func(int, int) float32 { return value })
}

// NewSineSource emits a sine tone at the given frequency on every channel.
func NewSineSource(rate, channels, frames int, frequency float64) *MockSource {
	step := 2 * math.Pi * frequency / float64(rate)
	return NewMockSource(rate, channels, frames, func(frame, _ int) float32 {
		return float32(math.Sin(step * float64(frame)))
	})
}

func (m *MockSource) SampleRate() int { return m.rate }
func (m *MockSource) Channels() int   { return m.channels }
func (m *MockSource) BufSize() int    { return 4096 }
func (m *MockSource) Close() error    { return nil }

// Reset rewinds to the first frame so a benchmark loop can re-drain the
// same content.
func (m *MockSource) Reset() { m.pos = 0 }

// ReadSamples fills dst with interleaved samples, never splitting a frame.
func (m *MockSource) ReadSamples(dst []float32) (int, error) {
	if m.pos >= m.frames {
		return 0, io.EOF
	}

	want := len(dst) / m.channels
	if rest := m.frames - m.pos; want > rest {
		want = rest
	}
	for frame := 0; frame < want; frame++ {
		for ch := 0; ch < m.channels; ch++ {
			dst[frame*m.channels+ch] = m.gen(m.pos+frame, ch)
		}
	}
	m.pos += want

	n := want * m.channels
	if m.pos >= m.frames {
		return n, io.EOF
	}
	return n, nil
}
