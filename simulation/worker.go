// SPDX-License-Identifier: EPL-2.0

package simulation

import (
	"fmt"
	"log/slog"
	"sync/atomic"
)

// worker is the single long-lived background task computing the expensive
// reflections and pathing passes. Its loop is run-then-wait: one pass is
// computed immediately on start so first outputs exist before the first
// throttled dispatch, then the worker parks on the wake channel.
//
// The worker is the only writer that sets the pending-completion flag to
// true. It exits when the wake channel closes (stream teardown or rebuild)
// or when a pass fails; in the failure case the error is kept for the
// scheduler to surface.
type worker struct {
	handle   *Handle
	complete *atomic.Bool

	// wake carries dispatch signals. Buffered so the scheduler's send
	// never blocks the control tick; closed to request shutdown.
	wake chan struct{}
	// done closes when the loop has exited; err is valid after that.
	done chan struct{}
	err  error

	serialize bool
	logger    *slog.Logger
}

func startWorker(handle *Handle, complete *atomic.Bool, serialize bool, logger *slog.Logger) *worker {
	w := &worker{
		handle:    handle,
		complete:  complete,
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
		serialize: serialize,
		logger:    logger,
	}
	go w.run()
	return w
}

func (w *worker) run() {
	defer close(w.done)

	for {
		if err := w.pass(); err != nil {
			w.err = err
			w.logger.Error("background simulation pass failed, worker exiting",
				slog.Any("error", err))
			return
		}
		w.complete.Store(true)

		if _, ok := <-w.wake; !ok {
			return
		}
	}
}

// pass computes reflections then pathing. By default it holds the read
// lock, overlapping with the scheduler's direct pass per the Engine
// concurrency contract; serialized mode takes the write lock instead,
// excluding every other engine operation for the duration.
func (w *worker) pass() error {
	run := func(e Engine) error {
		if err := e.RunReflections(); err != nil {
			return fmt.Errorf("reflections pass: %w", err)
		}
		if err := e.RunPathing(); err != nil {
			return fmt.Errorf("pathing pass: %w", err)
		}
		return nil
	}

	if w.serialize {
		return w.handle.Write(run)
	}
	return w.handle.Read(run)
}

// stopped reports whether the loop has exited, without blocking.
func (w *worker) stopped() bool {
	select {
	case <-w.done:
		return true
	default:
		return false
	}
}

// stop requests shutdown and waits for the loop to exit. Must be called at
// most once.
func (w *worker) stop() {
	close(w.wake)
	<-w.done
}
