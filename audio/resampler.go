// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"
	"io"

	"github.com/ik5/audspace/utils"
)

// Resampler converts an emitter feed to the output stream's sample rate
// with Catmull-Rom interpolation over a four-frame window. Emitter content
// is authored at arbitrary rates while the simulation runs at the stream's
// rate, so every feed passes through one of these. Channel count and
// interleaving are preserved. A one-pole low-pass smooths the input when
// downsampling, taking the edge off aliasing.
type Resampler struct {
	src      Source
	srcRate  float64
	dstRate  float64
	step     float64 // source frames consumed per output frame
	channels int

	// window[1] and window[2] bracket the interpolation point; slots 0
	// and 3 supply the outer spline samples.
	window [4][]float32
	have   [4]bool
	frac   float64 // fractional position between window[1] and window[2]

	readBuf []float32
	eof     bool

	lowpass     bool
	lowpassMix  float32
	lowpassPrev []float32
}

func NewResampler(src Source, dstRate int) *Resampler {
	r := &Resampler{
		src:         src,
		srcRate:     float64(src.SampleRate()),
		dstRate:     float64(dstRate),
		channels:    src.Channels(),
		readBuf:     make([]float32, 4096),
		lowpassPrev: make([]float32, src.Channels()),
	}
	for i := range r.window {
		r.window[i] = make([]float32, r.channels)
	}
	r.retune()

	return r
}

// retune derives the conversion step and filter setup from the rates.
func (r *Resampler) retune() {
	r.step = r.srcRate / r.dstRate
	r.lowpass = r.step > 1
	if r.lowpass {
		r.lowpassMix = 0.5
	}
}

func (r *Resampler) SampleRate() int { return int(r.dstRate) }
func (r *Resampler) Channels() int   { return r.channels }
func (r *Resampler) BufSize() int    { return r.src.BufSize() }

// Retarget switches the output sample rate in place. Used when the audio
// stream restarts at a new rate and live emitter feeds are carried over
// instead of being rebuilt. Interpolation state is kept; at worst the next
// few output samples are interpolated across the rate boundary.
func (r *Resampler) Retarget(dstRate int) {
	r.dstRate = float64(dstRate)
	r.retune()
}

func (r *Resampler) Close() error {
	if err := r.src.Close(); err != nil {
		return fmt.Errorf("%w", err)
	}
	return nil
}

// prime fills the window with the first source frames. A source shorter
// than the window gets its last frame duplicated into the empty slots.
func (r *Resampler) prime() error {
	for i := 0; i < 4; i++ {
		n, err := r.src.ReadSamples(r.readBuf[:r.channels])
		if n > 0 {
			copy(r.window[i], r.readBuf[:n])
			r.have[i] = true
			// Seed the filter from the first frame so there is no
			// warm-up transient.
			if i == 0 && r.lowpass {
				copy(r.lowpassPrev, r.readBuf[:n])
			}
		}
		if err == io.EOF {
			r.eof = true
			if i == 0 {
				return io.EOF
			}
			for j := i; j < 4; j++ {
				copy(r.window[j], r.window[i-1])
				r.have[j] = true
			}
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w", err)
		}
	}
	return nil
}

// advance shifts the window by one source frame and reads a new outer
// frame into the vacated slot.
func (r *Resampler) advance() error {
	if r.eof {
		return io.EOF
	}

	copy(r.window[0], r.window[1])
	copy(r.window[1], r.window[2])
	copy(r.window[2], r.window[3])
	r.have[0], r.have[1], r.have[2] = r.have[1], r.have[2], r.have[3]

	n, err := r.src.ReadSamples(r.readBuf[:r.channels])
	if n > 0 {
		copy(r.window[3], r.readBuf[:n])
		r.have[3] = true
		if r.lowpass {
			for c := 0; c < r.channels; c++ {
				v := r.lowpassMix*r.window[3][c] + (1-r.lowpassMix)*r.lowpassPrev[c]
				r.window[3][c] = v
				r.lowpassPrev[c] = v
			}
		}
	} else {
		r.have[3] = false
	}

	switch {
	case err == io.EOF:
		r.eof = true
		if !r.have[3] {
			return io.EOF
		}
	case err != nil:
		return fmt.Errorf("%w", err)
	}
	return nil
}

// ReadSamples produces interleaved samples at the target rate. len(dst)
// must be a whole number of frames.
func (r *Resampler) ReadSamples(dst []float32) (int, error) {
	if len(dst)%r.channels != 0 {
		return 0, ErrInvalidDstSize
	}

	if !r.have[1] {
		if err := r.prime(); err != nil {
			return 0, err
		}
	}

	want := len(dst) / r.channels
	written := 0
	for written < want {
		for r.frac >= 1 {
			r.frac--
			if err := r.advance(); err != nil {
				if err == io.EOF && written > 0 {
					return written * r.channels, io.EOF
				}
				return 0, err
			}
		}

		// The bracketing pair must exist; otherwise the stream is done.
		if !r.have[1] || !r.have[2] {
			if written == 0 {
				return 0, io.EOF
			}
			return written * r.channels, io.EOF
		}

		x := float32(r.frac)
		for c := 0; c < r.channels; c++ {
			y1 := r.window[1][c]
			y2 := r.window[2][c]
			y0, y3 := y1, y2
			if r.have[0] {
				y0 = r.window[0][c]
			}
			if r.have[3] {
				y3 = r.window[3][c]
			}
			dst[written*r.channels+c] = utils.CubicInterpolate(y0, y1, y2, y3, x)
		}

		written++
		r.frac += r.step
	}

	return written * r.channels, nil
}
