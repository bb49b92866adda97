// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"bytes"
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	gowav "github.com/go-audio/wav"

	"github.com/ik5/audspace/audio"
)

// source wraps go-audio's wav.Decoder to implement audio.Source.
type source struct {
	dec    *gowav.Decoder
	scale  float32
	intBuf *goaudio.IntBuffer
}

func (s *source) SampleRate() int { return int(s.dec.SampleRate) }
func (s *source) Channels() int   { return int(s.dec.NumChans) }
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

	for i := 0; i < n; i++ {
		dst[i] = float32(s.intBuf.Data[i]) * s.scale
	}

	if err != nil {
		return n, fmt.Errorf("%w", err)
	}
	if n < len(dst) {
		return n, io.EOF
	}
	return n, nil
}

type Decoder struct{}

// Decode opens PCM WAV content. go-audio needs seekable input; a plain
// reader is buffered into memory first, like the aiff decoder does.
func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	rs, ok := r.(io.ReadSeeker)
	if !ok {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("reading wav data: %w", err)
		}
		rs = bytes.NewReader(data)
	}

	dec := gowav.NewDecoder(rs)
	if !dec.IsValidFile() {
		return nil, ErrNotWavFile
	}
	dec.ReadInfo()

	if dec.WavAudioFormat != 1 {
		return nil, ErrUnsupportedWavFormat
	}

	var scale float32
	switch dec.BitDepth {
	case 16:
		scale = 1.0 / 32768.0
	case 24:
		scale = 1.0 / 8388608.0
	case 32:
		scale = 1.0 / 2147483648.0
	default:
		return nil, ErrUnsupportedBitDepth
	}

	if dec.Format() == nil {
		return nil, ErrUnsupportedWavLayout
	}

	return &source{dec: dec, scale: scale}, nil
}
