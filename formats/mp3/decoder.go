// SPDX-License-Identifier: EPL-2.0

package mp3

import (
	"encoding/binary"
	"fmt"
	"io"

	gomp3 "github.com/hajimehoshi/go-mp3"
	"github.com/ik5/audspace/audio"
)

// pcmReader is the part of gomp3.Decoder the source needs, narrowed so
// tests can substitute a canned stream.
type pcmReader interface {
	Read([]byte) (int, error)
	SampleRate() int
}

// source adapts go-mp3's 16-bit little-endian PCM byte stream to the
// float32 Source interface. go-mp3 always emits interleaved stereo.
type source struct {
	dec  pcmReader
	rate int
	buf  []byte
}

func (s *source) SampleRate() int { return s.rate }
func (s *source) Channels() int   { return 2 }
func (s *source) BufSize() int    { return cap(s.buf) / 2 }
func (s *source) Close() error    { return nil }

func (s *source) ReadSamples(dst []float32) (int, error) {
	need := len(dst) * 2
	if cap(s.buf) < need {
		s.buf = make([]byte, need)
	}

	n, err := s.dec.Read(s.buf[:need])
	if n == 0 {
		return 0, err
	}

	samples := n / 2
	for i := 0; i < samples; i++ {
		v := int16(binary.LittleEndian.Uint16(s.buf[2*i:]))
		dst[i] = float32(v) / 32768
	}

	return samples, err
}

// Decoder decodes MP3 emitter content via go-mp3.
type Decoder struct{}

func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("%w", err)
	}

	return &source{
		dec:  dec,
		rate: dec.SampleRate(),
		buf:  make([]byte, 8192),
	}, nil
}
