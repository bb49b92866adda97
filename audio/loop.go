// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"
	"io"
)

// Looper repeats a finite Source endlessly by buffering its samples on the
// first pass and replaying them afterwards. Spatial emitters usually loop
// their content (footsteps, machinery hum, ambience), while decoders report
// io.EOF at the end of their data; Looper bridges the two.
//
// The whole source is held in memory after the first pass, so Looper is
// meant for the short clips emitters play, not for music streaming.
type Looper struct {
	src      Source
	samples  []float32
	pos      int
	buffered bool
}

func NewLooper(src Source) *Looper {
	return &Looper{
		src:     src,
		samples: make([]float32, 0, src.BufSize()),
	}
}

func (l *Looper) SampleRate() int { return l.src.SampleRate() }
func (l *Looper) Channels() int   { return l.src.Channels() }
func (l *Looper) BufSize() int    { return l.src.BufSize() }

func (l *Looper) Close() error {
	err := l.src.Close()
	if err != nil {
		return fmt.Errorf("%w", err)
	}
	return nil
}

// Reset rewinds playback to the start of the buffered content.
func (l *Looper) Reset() {
	l.pos = 0
}

// buffer drains the underlying source completely.
func (l *Looper) buffer() error {
	tmp := make([]float32, l.src.BufSize())
	for {
		n, err := l.src.ReadSamples(tmp)
		if n > 0 {
			l.samples = append(l.samples, tmp[:n]...)
		}
		if err == io.EOF {
			l.buffered = true
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w", err)
		}
	}
}

// ReadSamples always fills dst completely, wrapping around at the end of
// the content. A source with no samples at all yields io.EOF.
func (l *Looper) ReadSamples(dst []float32) (int, error) {
	if len(dst)%l.src.Channels() != 0 {
		return 0, ErrInvalidDstSize
	}

	if !l.buffered {
		if err := l.buffer(); err != nil {
			return 0, err
		}
	}
	if len(l.samples) == 0 {
		return 0, io.EOF
	}

	written := 0
	for written < len(dst) {
		n := copy(dst[written:], l.samples[l.pos:])
		written += n
		l.pos += n
		if l.pos >= len(l.samples) {
			l.pos = 0
		}
	}

	return written, nil
}
