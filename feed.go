// SPDX-License-Identifier: EPL-2.0

package audspace

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ik5/audspace/audio"
	"github.com/ik5/audspace/formats/aiff"
	"github.com/ik5/audspace/formats/mp3"
	"github.com/ik5/audspace/formats/vorbis"
	"github.com/ik5/audspace/formats/wav"
)

// NewDecoderRegistry returns a registry with every built-in emitter
// content decoder registered under its usual file extensions.
func NewDecoderRegistry() *audio.Registry {
	reg := audio.NewRegistry()
	reg.Register("wav", wav.Decoder{})
	reg.Register("mp3", mp3.Decoder{})
	reg.Register("ogg", vorbis.Decoder{})
	reg.Register("oga", vorbis.Decoder{})
	reg.Register("aif", aiff.Decoder{})
	reg.Register("aiff", aiff.Decoder{})
	return reg
}

// DecodeFile opens emitter content, picking the decoder by file extension.
// The file stays open for the life of the returned source; closing the
// source closes it.
func DecodeFile(path string) (audio.Source, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	dec, ok := NewDecoderRegistry().Get(ext)
	if !ok {
		return nil, fmt.Errorf("no decoder for %q content", ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w", err)
	}
	src, err := dec.Decode(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &fileSource{Source: src, f: f}, nil
}

// fileSource ties the backing file's lifetime to the decoded source.
type fileSource struct {
	audio.Source
	f *os.File
}

func (s *fileSource) Close() error {
	err := s.Source.Close()
	if cerr := s.f.Close(); err == nil {
		err = cerr
	}
	return err
}

// FeedOptions controls how decoded emitter content is conditioned before it
// reaches the spatializer.
type FeedOptions struct {
	// Loop repeats the content forever instead of ending with io.EOF.
	Loop bool
}

// NewEmitterFeed conditions a decoded source into the form the spatializer
// consumes: mono samples at the stream's sample rate. Decoders hand back
// whatever the file contains; this applies resampling and downmix stages
// only where the content actually needs them.
//
// Closing the returned source closes the whole chain down to src.
func NewEmitterFeed(src audio.Source, sampleRate int, opts FeedOptions) audio.Source {
	out := src
	if opts.Loop {
		out = audio.NewLooper(out)
	}
	if out.SampleRate() != sampleRate {
		out = audio.NewResampler(out, sampleRate)
	}
	if out.Channels() > 1 {
		out = audio.NewMonoMixer(out)
	}
	return out
}

// ReadAll drains a source into a single slice. Intended for loading short
// emitter content (footsteps, impacts) fully into memory up front; long
// streams should be read incrementally instead.
func ReadAll(src audio.Source) ([]float32, error) {
	buf := make([]float32, src.BufSize())
	var samples []float32

	for {
		n, err := src.ReadSamples(buf)
		samples = append(samples, buf[:n]...)
		if err == io.EOF {
			return samples, nil
		}
		if err != nil {
			return samples, fmt.Errorf("read samples: %w", err)
		}
		if n == 0 {
			return samples, nil
		}
	}
}
