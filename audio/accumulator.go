// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"log/slog"
)

// Status reports what a call to Accumulator.Process did to the output block.
type Status int

const (
	// StatusCleared means the output block was zeroed, either because not
	// enough samples have accumulated yet to start draining, or because an
	// underrun forced silence instead of garbage.
	StatusCleared Status = iota
	// StatusModified means the output block holds drained samples.
	StatusModified
)

// FixedFunc performs DSP on exactly one fixed frame.
// inputs and outputs hold one slice per channel, each frameSize samples long.
type FixedFunc func(inputs, outputs [][]float32)

// Accumulator re-blocks variable-size audio callback buffers into the fixed
// frame a simulation effect requires for both its input and its output.
//
// Incoming samples are copied into per-channel fixed buffers; each time a
// buffer fills, the supplied FixedFunc runs once against pre-sized scratch
// slices and its output is appended to a per-channel queue. Draining is
// suppressed until 1.5x the engine's maximum block size has accumulated,
// which builds enough slack to survive a non-integer ratio between the
// callback block size and the frame size without an audible gap.
//
// All buffers are sized at construction (or Resize) time. Steady-state calls
// to Process perform no allocation; the Accumulator is safe for use inside a
// hard-realtime audio callback. It is owned by exactly one goroutine and is
// not safe for concurrent use.
type Accumulator struct {
	frameSize int
	maxBlock  int
	inCh      int
	outCh     int

	// in holds one fixed frame per input channel; fill counts the valid
	// samples accumulated so far in each.
	in   [][]float32
	fill int

	// fixedOut is the scratch output FixedFunc writes into.
	fixedOut [][]float32

	// out queues produced samples per output channel. queued counts valid
	// samples; capacity is fixed at outCap.
	out    [][]float32
	queued int
	outCap int

	started bool
	logger  *slog.Logger
}

// NewAccumulator builds an Accumulator for the given fixed frame size, the
// engine's maximum per-callback block size, and channel counts.
func NewAccumulator(frameSize, maxBlockFrames, inChannels, outChannels int, logger *slog.Logger) (*Accumulator, error) {
	if frameSize <= 0 {
		return nil, ErrInvalidFrameSize
	}
	if maxBlockFrames <= 0 {
		return nil, ErrInvalidBlockSize
	}
	if inChannels <= 0 || outChannels <= 0 {
		return nil, ErrInvalidChannelCount
	}
	if logger == nil {
		logger = slog.Default()
	}

	a := &Accumulator{
		frameSize: frameSize,
		maxBlock:  maxBlockFrames,
		inCh:      inChannels,
		outCh:     outChannels,
		logger:    logger,
	}
	a.alloc()

	return a, nil
}

// alloc sizes every buffer for the current parameters.
func (a *Accumulator) alloc() {
	// A full extra frame on top of twice the maximum block absorbs the
	// worst-case phase between unsynchronized input and output block sizes.
	a.outCap = 2*a.maxBlock + 2*a.frameSize

	a.in = make([][]float32, a.inCh)
	for ch := range a.in {
		a.in[ch] = make([]float32, a.frameSize)
	}

	a.fixedOut = make([][]float32, a.outCh)
	a.out = make([][]float32, a.outCh)
	for ch := range a.out {
		a.fixedOut[ch] = make([]float32, a.frameSize)
		a.out[ch] = make([]float32, a.outCap)
	}
}

// FrameSize returns the fixed samples-per-channel unit.
func (a *Accumulator) FrameSize() int { return a.frameSize }

// MaxBlockFrames returns the maximum per-callback block size the Accumulator
// was sized for.
func (a *Accumulator) MaxBlockFrames() int { return a.maxBlock }

// Pending returns the number of queued output samples per channel.
func (a *Accumulator) Pending() int { return a.queued }

// InputsClear reports whether no samples are held in the fixed input buffers.
func (a *Accumulator) InputsClear() bool { return a.fill == 0 }

// startThreshold is the queued sample count below which draining is held off.
func (a *Accumulator) startThreshold() int { return a.maxBlock + a.maxBlock/2 }

// Clear drops all accumulated input and queued output and re-arms the
// start-draining gate. Used when the effect chain desynchronizes and silence
// is the only safe output.
func (a *Accumulator) Clear() {
	a.fill = 0
	a.queued = 0
	a.started = false
}

// Resize rebuilds the buffers for a new frame size or maximum block size,
// preserving queued output samples (and accumulated input samples, clipped
// to the new frame size). Only valid outside Process; typically called when
// the audio stream restarts with new parameters.
func (a *Accumulator) Resize(frameSize, maxBlockFrames int) error {
	if frameSize <= 0 {
		return ErrInvalidFrameSize
	}
	if maxBlockFrames <= 0 {
		return ErrInvalidBlockSize
	}
	if frameSize == a.frameSize && maxBlockFrames == a.maxBlock {
		return nil
	}

	oldIn, oldFill := a.in, a.fill
	oldOut, oldQueued := a.out, a.queued

	a.frameSize = frameSize
	a.maxBlock = maxBlockFrames
	a.alloc()

	if oldFill > frameSize {
		a.logger.Error("accumulator resize clipped accumulated input",
			slog.Int("had", oldFill),
			slog.Int("kept", frameSize))
		oldFill = frameSize
	}
	a.fill = oldFill
	for ch := range a.in {
		copy(a.in[ch][:oldFill], oldIn[ch][:oldFill])
	}

	if oldQueued > a.outCap {
		a.logger.Error("accumulator resize clipped queued output",
			slog.Int("had", oldQueued),
			slog.Int("kept", a.outCap))
		oldQueued = a.outCap
	}
	a.queued = oldQueued
	for ch := range a.out {
		copy(a.out[ch][:oldQueued], oldOut[ch][:oldQueued])
	}

	return nil
}

// Process feeds one audio callback's worth of samples through the fixed
// frame adapter.
//
// inputs holds one slice per input channel, each len() == the available
// input frames for this callback; outputs likewise with len() == the
// requested output frames. fn is invoked zero or more times, once per
// completed fixed frame. The returned Status tells the caller whether the
// output block was filled or cleared.
//
// Process performs no allocation.
func (a *Accumulator) Process(inputs, outputs [][]float32, fn FixedFunc) Status {
	a.checkCapacities()

	avail := 0
	if len(inputs) > 0 {
		avail = len(inputs[0])
	}

	consumed := 0
	for consumed < avail {
		n := a.frameSize - a.fill
		if rest := avail - consumed; n > rest {
			n = rest
		}
		for ch := 0; ch < a.inCh && ch < len(inputs); ch++ {
			copy(a.in[ch][a.fill:a.fill+n], inputs[ch][consumed:consumed+n])
		}
		a.fill += n
		consumed += n

		if a.fill == a.frameSize {
			fn(a.in, a.fixedOut)
			a.enqueue()
			a.fill = 0
		}
	}

	requested := 0
	if len(outputs) > 0 {
		requested = len(outputs[0])
	}

	if !a.started {
		if a.queued < a.startThreshold() {
			clearBlock(outputs)
			return StatusCleared
		}
		a.started = true
	}

	return a.drain(outputs, requested)
}

// enqueue appends one produced frame to the output queue.
func (a *Accumulator) enqueue() {
	if a.queued+a.frameSize > a.outCap {
		// The drain side has fallen too far behind. Dropping the frame keeps
		// the realtime guarantee; the condition itself is a protocol defect.
		a.logger.Error("accumulator output queue overflow, dropping frame",
			slog.Int("queued", a.queued),
			slog.Int("capacity", a.outCap))
		return
	}
	for ch := range a.out {
		copy(a.out[ch][a.queued:a.queued+a.frameSize], a.fixedOut[ch])
	}
	a.queued += a.frameSize
}

// drain copies exactly requested samples per channel out of the queue,
// zero-filling on underrun.
func (a *Accumulator) drain(outputs [][]float32, requested int) Status {
	n := requested
	if n > a.queued {
		// Cannot happen while the 1.5x start slack invariant holds.
		a.logger.Error("accumulator underrun, zero-filling deficit",
			slog.Int("queued", a.queued),
			slog.Int("requested", requested))
		n = a.queued
	}

	// Every queue channel shifts by the same amount, even when the caller
	// supplied fewer output slices than outCh; otherwise the unshifted
	// channels fall out of sync with queued.
	for ch := 0; ch < a.outCh; ch++ {
		if ch < len(outputs) {
			copy(outputs[ch][:n], a.out[ch][:n])
			zero(outputs[ch][n:requested])
		}
		// Shift the remainder down within the same backing array.
		copy(a.out[ch], a.out[ch][n:a.queued])
	}
	a.queued -= n

	return StatusModified
}

// checkCapacities verifies no buffer capacity changed since construction.
// A change here means a caller mutated state it does not own; that is a
// violated realtime guarantee and must not pass silently.
func (a *Accumulator) checkCapacities() {
	for ch := range a.in {
		if len(a.in[ch]) != a.frameSize {
			a.logger.Error("accumulator input buffer capacity changed in steady state",
				slog.Int("channel", ch),
				slog.Int("len", len(a.in[ch])),
				slog.Int("want", a.frameSize))
		}
	}
	for ch := range a.out {
		if cap(a.out[ch]) != a.outCap {
			a.logger.Error("accumulator output buffer capacity changed in steady state",
				slog.Int("channel", ch),
				slog.Int("cap", cap(a.out[ch])),
				slog.Int("want", a.outCap))
		}
	}
}

func clearBlock(outputs [][]float32) {
	for ch := range outputs {
		zero(outputs[ch])
	}
}

func zero(dst []float32) {
	for i := range dst {
		dst[i] = 0
	}
}
