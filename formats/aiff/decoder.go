// SPDX-License-Identifier: EPL-2.0

package aiff

import (
	"bytes"
	"fmt"
	"io"

	"github.com/go-audio/aiff"
	goaudio "github.com/go-audio/audio"
	"github.com/ik5/audspace/audio"
)

// pcmDecoder is the part of aiff.Decoder the source needs, narrowed so
// tests can substitute a canned stream.
type pcmDecoder interface {
	Format() *goaudio.Format
	PCMBuffer(buf *goaudio.IntBuffer) (int, error)
}

// source adapts go-audio's int PCM buffers to the float32 Source
// interface. Only 16-bit content reaches here, so the scale is fixed.
type source struct {
	dec      pcmDecoder
	rate     int
	channels int
	intBuf   *goaudio.IntBuffer
}

func (s *source) SampleRate() int { return s.rate }
func (s *source) Channels() int   { return s.channels }
func (s *source) Close() error    { return nil }

func (s *source) BufSize() int {
	if s.intBuf != nil {
		return cap(s.intBuf.Data)
	}
	return 4096
}

func (s *source) ReadSamples(dst []float32) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}

	if s.intBuf == nil || cap(s.intBuf.Data) < len(dst) {
		s.intBuf = &goaudio.IntBuffer{
			Data:   make([]int, len(dst)),
			Format: s.dec.Format(),
		}
	}
	s.intBuf.Data = s.intBuf.Data[:len(dst)]

	n, err := s.dec.PCMBuffer(s.intBuf)
	if n == 0 {
		if err != nil {
			return 0, fmt.Errorf("%w", err)
		}
		return 0, io.EOF
	}

	const scale = 1.0 / 32768
	for i := 0; i < n; i++ {
		dst[i] = float32(s.intBuf.Data[i]) * scale
	}

	if n < len(dst) && err == nil {
		// Short read: the sound data chunk is exhausted.
		return n, io.EOF
	}
	return n, err
}

// Decoder decodes 16-bit PCM AIFF emitter content via go-audio/aiff.
type Decoder struct{}

// Decode validates the container and prepares a streaming source. go-audio
// needs to seek, so non-seekable readers are buffered in memory first.
func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	rs, ok := r.(io.ReadSeeker)
	if !ok {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("buffering aiff stream: %w", err)
		}
		rs = bytes.NewReader(data)
	}

	dec := aiff.NewDecoder(rs)
	if !dec.IsValidFile() {
		return nil, ErrNotAiffFile
	}
	dec.ReadInfo()

	if dec.NumChans == 0 || dec.SampleRate == 0 {
		return nil, ErrUnsupportedAiffChunks
	}
	if dec.BitDepth != 16 {
		return nil, ErrOnlyPCM16bitSupported
	}
	format := dec.Format()
	if format == nil {
		return nil, ErrUnsupportedAiffLayout
	}

	return &source{
		dec:      dec,
		rate:     format.SampleRate,
		channels: format.NumChannels,
	}, nil
}
