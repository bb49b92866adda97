// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"io"
	"slices"
	"sync"
)

// Source is a stream of interleaved float32 PCM in [-1, 1]. Everything the
// pipeline moves around - decoded emitter content, resamplers, mixers,
// loopers - implements it, so conditioning stages stack by wrapping one
// Source in another.
type Source interface {
	// SampleRate of the stream in Hz.
	SampleRate() int
	// Channels in each frame (1 = mono, 2 = stereo).
	Channels() int
	// ReadSamples fills dst with interleaved samples and reports how many
	// float32 values were written, not frames. A final short read may
	// return n > 0 together with io.EOF; n == 0 with io.EOF means the
	// stream is finished.
	ReadSamples(dst []float32) (n int, err error)
	// BufSize suggests a read buffer length for this source.
	BufSize() int
	// Close releases whatever the source holds open.
	Close() error
}

// Decoder turns a container format into a Source.
type Decoder interface {
	Decode(r io.Reader) (Source, error)
}

// Registry maps format keys, normally file extensions like "wav" or "ogg",
// to their decoders. Safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]Decoder
}

func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Decoder)}
}

// Register adds a decoder under the given key, replacing any previous one.
func (r *Registry) Register(format string, d Decoder) {
	r.mu.Lock()
	r.byName[format] = d
	r.mu.Unlock()
}

func (r *Registry) Get(format string) (Decoder, bool) {
	r.mu.RLock()
	d, ok := r.byName[format]
	r.mu.RUnlock()
	return d, ok
}

// Formats lists the registered keys in sorted order.
func (r *Registry) Formats() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	r.mu.RUnlock()

	slices.Sort(names)
	return names
}
