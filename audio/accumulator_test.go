// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"testing"
)

// gainFn returns a FixedFunc that copies inputs to outputs scaled by g.
func gainFn(g float32) FixedFunc {
	return func(inputs, outputs [][]float32) {
		for ch := range outputs {
			in := inputs[ch%len(inputs)]
			for i := range outputs[ch] {
				outputs[ch][i] = in[i] * g
			}
		}
	}
}

// rampInput builds per-channel input blocks holding a deterministic ramp so
// reassembly can be checked sample for sample. next is the first sample index
// to emit.
func rampInput(channels, frames, next int) [][]float32 {
	blocks := make([][]float32, channels)
	for ch := range blocks {
		blocks[ch] = make([]float32, frames)
		for i := range blocks[ch] {
			blocks[ch][i] = float32(next+i) + float32(ch)*0.25
		}
	}
	return blocks
}

func outBlocks(channels, frames int) [][]float32 {
	blocks := make([][]float32, channels)
	for ch := range blocks {
		blocks[ch] = make([]float32, frames)
	}
	return blocks
}

func TestAccumulator_InvalidParams(t *testing.T) {
	t.Parallel()

	if _, err := NewAccumulator(0, 512, 2, 2, nil); err != ErrInvalidFrameSize {
		t.Errorf("NewAccumulator(frameSize=0) error = %v, want ErrInvalidFrameSize", err)
	}

	if _, err := NewAccumulator(256, 0, 2, 2, nil); err != ErrInvalidBlockSize {
		t.Errorf("NewAccumulator(maxBlock=0) error = %v, want ErrInvalidBlockSize", err)
	}

	if _, err := NewAccumulator(256, 512, 0, 2, nil); err != ErrInvalidChannelCount {
		t.Errorf("NewAccumulator(inChannels=0) error = %v, want ErrInvalidChannelCount", err)
	}
}

func TestAccumulator_HoldsOutputUntilSlackBuilt(t *testing.T) {
	t.Parallel()

	const frameSize = 64
	const maxBlock = 128

	acc, err := NewAccumulator(frameSize, maxBlock, 1, 1, nil)
	if err != nil {
		t.Fatalf("NewAccumulator() error = %v", err)
	}

	// Threshold is 1.5x max block = 192 samples. Feed blocks of 64 and
	// expect cleared status until at least 192 samples are queued.
	next := 0
	for tick := 0; tick < 10; tick++ {
		in := rampInput(1, 64, next)
		next += 64
		out := outBlocks(1, 64)
		out[0][0] = 42 // must be overwritten or zeroed either way

		// Each 64-sample input completes exactly one frame, so the gate
		// sees the previous queue level plus one frame.
		atGate := acc.Pending() + 64

		status := acc.Process(in, out, gainFn(1))

		if atGate < 192 {
			if status != StatusCleared {
				t.Fatalf("tick %d: status = %v with %d queued, want StatusCleared below threshold",
					tick, status, atGate)
			}
			if out[0][0] != 0 {
				t.Fatalf("tick %d: cleared output not zeroed, got %v", tick, out[0][0])
			}
		} else {
			if status != StatusModified {
				t.Fatalf("tick %d: status = %v with %d queued, want StatusModified", tick, status, atGate)
			}
			return
		}
	}

	t.Fatal("accumulator never started draining")
}

// TestAccumulator_Reassembly feeds awkward block-size sequences and checks
// the drained output matches pushing the same samples through the DSP
// function in frame-sized chunks directly.
func TestAccumulator_Reassembly(t *testing.T) {
	t.Parallel()

	const frameSize = 64
	const maxBlock = 96
	const gain = 0.5
	const channels = 2

	// Block sizes smaller, larger and non-multiples of the frame size.
	blockSizes := []int{1, 63, 96, 7, 64, 65, 2, 96, 31, 96, 96, 5, 90, 96, 96, 96}

	acc, err := NewAccumulator(frameSize, maxBlock, channels, channels, nil)
	if err != nil {
		t.Fatalf("NewAccumulator() error = %v", err)
	}

	// Reference: the same ramp, scaled, delayed by the accumulator's
	// start-up latency. The drained stream must be a prefix-for-prefix
	// match once draining starts.
	var drained [][]float32 = make([][]float32, channels)
	fed := 0

	for _, size := range blockSizes {
		in := rampInput(channels, size, fed)
		fed += size
		out := outBlocks(channels, size)

		status := acc.Process(in, out, gainFn(gain))
		if status == StatusModified {
			for ch := range drained {
				drained[ch] = append(drained[ch], out[ch]...)
			}
		}
	}

	if len(drained[0]) == 0 {
		t.Fatal("accumulator never produced output")
	}

	// Each drained sample i must equal gain * ramp(i) for its channel.
	for ch := range drained {
		for i, got := range drained[ch] {
			want := (float32(i) + float32(ch)*0.25) * gain
			if got != want {
				t.Fatalf("channel %d sample %d = %v, want %v", ch, i, got, want)
			}
		}
	}
}

func TestAccumulator_DrainsExactlyRequested(t *testing.T) {
	t.Parallel()

	const frameSize = 32
	const maxBlock = 48

	acc, err := NewAccumulator(frameSize, maxBlock, 1, 1, nil)
	if err != nil {
		t.Fatalf("NewAccumulator() error = %v", err)
	}

	// Prime past the threshold (1.5 * 48 = 72 queued samples).
	next := 0
	for acc.Pending() < 72 {
		in := rampInput(1, 48, next)
		next += 48
		acc.Process(in, outBlocks(1, 0), gainFn(1))
	}

	// Now request odd drain sizes with matching input so the queue level
	// stays healthy. Each drained block must continue the ramp exactly
	// where the previous one stopped.
	drainedSoFar := 0
	for _, req := range []int{1, 47, 13, 48, 30} {
		in := rampInput(1, req, next)
		next += req
		out := outBlocks(1, req)

		status := acc.Process(in, out, gainFn(1))
		if status != StatusModified {
			t.Fatalf("Process() status = %v, want StatusModified", status)
		}

		for i, got := range out[0] {
			if want := float32(drainedSoFar + i); got != want {
				t.Fatalf("drained sample %d = %v, want %v", drainedSoFar+i, got, want)
			}
		}
		drainedSoFar += req
	}
}

func TestAccumulator_ShortOutputKeepsChannelsInSync(t *testing.T) {
	t.Parallel()

	const frameSize = 32
	const maxBlock = 48

	acc, err := NewAccumulator(frameSize, maxBlock, 2, 2, nil)
	if err != nil {
		t.Fatalf("NewAccumulator() error = %v", err)
	}

	next := 0
	for acc.Pending() < 72 {
		in := rampInput(2, 48, next)
		next += 48
		acc.Process(in, outBlocks(2, 0), gainFn(1))
	}

	// Drain with one output slice fewer than the accumulator's channel
	// count. The missing channel's queue must advance all the same.
	in := rampInput(2, 48, next)
	next += 48
	short := outBlocks(1, 48)
	if status := acc.Process(in, short, gainFn(1)); status != StatusModified {
		t.Fatalf("Process() status = %v, want StatusModified", status)
	}
	for i, got := range short[0] {
		if want := float32(i); got != want {
			t.Fatalf("short drain sample %d = %v, want %v", i, got, want)
		}
	}

	// A full drain afterwards must produce both channels in lockstep,
	// continuing where the short drain stopped.
	in = rampInput(2, 48, next)
	out := outBlocks(2, 48)
	if status := acc.Process(in, out, gainFn(1)); status != StatusModified {
		t.Fatalf("Process() status = %v, want StatusModified", status)
	}
	for ch := range out {
		for i, got := range out[ch] {
			want := float32(48+i) + float32(ch)*0.25
			if got != want {
				t.Fatalf("channel %d sample %d = %v, want %v", ch, i, got, want)
			}
		}
	}
}

func TestAccumulator_NoAllocationInSteadyState(t *testing.T) {
	const frameSize = 64
	const maxBlock = 96

	acc, err := NewAccumulator(frameSize, maxBlock, 2, 2, nil)
	if err != nil {
		t.Fatalf("NewAccumulator() error = %v", err)
	}

	in := rampInput(2, 96, 0)
	out := outBlocks(2, 96)
	fn := gainFn(1)

	// Prime.
	for i := 0; i < 8; i++ {
		acc.Process(in, out, fn)
	}

	allocs := testing.AllocsPerRun(100, func() {
		acc.Process(in, out, fn)
	})

	if allocs != 0 {
		t.Errorf("Process() allocations per run = %v, want 0", allocs)
	}
}

func TestAccumulator_UnderrunFallsBackToSilence(t *testing.T) {
	t.Parallel()

	const frameSize = 32
	const maxBlock = 32

	acc, err := NewAccumulator(frameSize, maxBlock, 1, 1, nil)
	if err != nil {
		t.Fatalf("NewAccumulator() error = %v", err)
	}

	// Prime past threshold (48), then drain with no further input until
	// the queue is exhausted.
	next := 0
	for acc.Pending() < 48 {
		in := rampInput(1, 32, next)
		next += 32
		acc.Process(in, outBlocks(1, 0), gainFn(1))
	}

	for i := 0; i < 4; i++ {
		queuedBefore := acc.Pending()
		out := outBlocks(1, 32)
		out[0][31] = 7
		status := acc.Process(nil, out, gainFn(1))
		if status != StatusModified {
			t.Fatalf("drain %d: status = %v, want StatusModified", i, status)
		}
		if queuedBefore < 32 && out[0][31] != 0 {
			t.Fatalf("drain %d: underrun tail not zero-filled, got %v", i, out[0][31])
		}
	}
}

func TestAccumulator_ResizePreservesQueued(t *testing.T) {
	t.Parallel()

	acc, err := NewAccumulator(64, 64, 1, 1, nil)
	if err != nil {
		t.Fatalf("NewAccumulator() error = %v", err)
	}

	in := rampInput(1, 64, 0)
	acc.Process(in, outBlocks(1, 0), gainFn(1))
	in = rampInput(1, 64, 64)
	acc.Process(in, outBlocks(1, 0), gainFn(1))

	queued := acc.Pending()
	if queued != 128 {
		t.Fatalf("Pending() = %d, want 128", queued)
	}

	if err := acc.Resize(32, 128); err != nil {
		t.Fatalf("Resize() error = %v", err)
	}

	if acc.Pending() != queued {
		t.Errorf("Pending() after Resize = %d, want %d", acc.Pending(), queued)
	}
	if acc.FrameSize() != 32 {
		t.Errorf("FrameSize() after Resize = %d, want 32", acc.FrameSize())
	}
	if acc.MaxBlockFrames() != 128 {
		t.Errorf("MaxBlockFrames() after Resize = %d, want 128", acc.MaxBlockFrames())
	}

	// Queued samples must survive intact: top the queue up at the new
	// parameters, then verify the first drained samples are still the
	// original ramp.
	next := 128
	for acc.Pending() < 192 {
		in := rampInput(1, 32, next)
		next += 32
		acc.Process(in, outBlocks(1, 0), gainFn(1))
	}

	out := outBlocks(1, 16)
	status := acc.Process(nil, out, gainFn(1))
	if status != StatusModified {
		t.Fatalf("Process() after Resize status = %v, want StatusModified", status)
	}
	for i, got := range out[0] {
		if want := float32(i); got != want {
			t.Fatalf("sample %d after Resize = %v, want %v", i, got, want)
		}
	}
}

func TestAccumulator_ClearReArmsGate(t *testing.T) {
	t.Parallel()

	acc, err := NewAccumulator(32, 32, 1, 1, nil)
	if err != nil {
		t.Fatalf("NewAccumulator() error = %v", err)
	}

	next := 0
	for acc.Pending() < 48 {
		in := rampInput(1, 32, next)
		next += 32
		acc.Process(in, outBlocks(1, 0), gainFn(1))
	}

	out := outBlocks(1, 16)
	if status := acc.Process(nil, out, gainFn(1)); status != StatusModified {
		t.Fatalf("Process() status = %v, want StatusModified", status)
	}

	acc.Clear()

	if acc.Pending() != 0 {
		t.Errorf("Pending() after Clear = %d, want 0", acc.Pending())
	}
	if !acc.InputsClear() {
		t.Error("InputsClear() after Clear = false, want true")
	}

	// Gate must be closed again.
	in := rampInput(1, 32, 0)
	if status := acc.Process(in, out, gainFn(1)); status != StatusCleared {
		t.Errorf("Process() after Clear status = %v, want StatusCleared", status)
	}
}
