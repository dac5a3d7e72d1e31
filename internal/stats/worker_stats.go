package stats

import (
	"time"

	"go.uber.org/atomic"
)

// WorkerStats owns a pair of Buffers and coordinates the swap protocol
// between the single worker goroutine that writes Active and the single
// reporter goroutine that reads Inactive once a swap has been acknowledged.
//
// Only one swap may be outstanding at a time; RequestSwap before a prior
// swap is acknowledged is a caller bug the atomic CAS guard below turns
// into a no-op rather than a corrupted double-swap.
type WorkerStats struct {
	bufs [2]*Buffer

	// activeIdx is 0 or 1 and names the slot the worker currently writes to.
	activeIdx atomic.Int32

	swapRequested atomic.Bool
	ackCh         chan struct{}
}

// New returns a WorkerStats with both buffers fresh and slot 0 active.
func New() *WorkerStats {
	return &WorkerStats{
		bufs:  [2]*Buffer{NewBuffer(), NewBuffer()},
		ackCh: make(chan struct{}, 1),
	}
}

// Active returns the buffer the worker should currently write to. The
// returned pointer must not be retained across a call to AckSwapIfRequested.
func (w *WorkerStats) Active() *Buffer {
	return w.bufs[w.activeIdx.Load()]
}

// RequestSwap is called by the reporter. It drains any stale ack, then
// marks a swap as requested. Only one swap may be outstanding: calling this
// again before the prior request was acknowledged is a no-op.
func (w *WorkerStats) RequestSwap() {
	select {
	case <-w.ackCh:
	default:
	}
	w.swapRequested.CAS(false, true)
}

// AckSwapIfRequested is called by the owning worker at one of the
// documented safe points. If a swap is pending, it flips the active index,
// resets the newly active buffer, clears the request, and signals the ack.
// It never blocks.
func (w *WorkerStats) AckSwapIfRequested() {
	if !w.swapRequested.CAS(true, false) {
		return
	}
	next := w.activeIdx.Load() ^ 1
	w.bufs[next].Reset()
	w.activeIdx.Store(next)

	select {
	case w.ackCh <- struct{}{}:
	default:
	}
}

// WaitForSwapAck is called by the reporter after RequestSwap. It blocks
// until the worker acknowledges or timeout elapses, returning false on
// timeout.
func (w *WorkerStats) WaitForSwapAck(timeout time.Duration) bool {
	if timeout <= 0 {
		select {
		case <-w.ackCh:
			return true
		default:
			return false
		}
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-w.ackCh:
		return true
	case <-timer.C:
		return false
	}
}

// InactiveBuffer returns the buffer that was active before the most recent
// acknowledged swap. Its contents are only well-defined for the reporter to
// read after WaitForSwapAck has returned true for the corresponding
// request.
func (w *WorkerStats) InactiveBuffer() *Buffer {
	return w.bufs[w.activeIdx.Load()^1]
}
