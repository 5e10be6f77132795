package monitor

import "sync/atomic"

const DefaultQueueCapacity = 64

// Frame is one fixed-size batch of mono samples. Frames are never mutated
// after the capture callback creates them; the queue and the capture buffer
// share the same backing slice.
type Frame struct {
	Index   uint64
	Samples []int16
}

// FrameQueue hands frames from the capture callback to the display loop.
// Neither side ever blocks: a push into a full queue drops the frame, and a
// drain takes only what is queued at the moment it is called.
type FrameQueue struct {
	ch      chan Frame
	dropped atomic.Uint64
}

func NewFrameQueue(capacity int) *FrameQueue {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	return &FrameQueue{ch: make(chan Frame, capacity)}
}

// Push enqueues f and reports whether it fit.
func (q *FrameQueue) Push(f Frame) bool {
	select {
	case q.ch <- f:
		return true
	default:
		q.dropped.Add(1)
		return false
	}
}

// Drain empties the queue and returns the newest frame with the number of
// frames removed. n is zero when nothing was queued.
func (q *FrameQueue) Drain() (latest Frame, n int) {
	pending := len(q.ch)
	for i := 0; i < pending; i++ {
		select {
		case f := <-q.ch:
			latest = f
			n++
		default:
			return latest, n
		}
	}
	return latest, n
}

func (q *FrameQueue) Len() int { return len(q.ch) }

func (q *FrameQueue) Cap() int { return cap(q.ch) }

// Dropped counts frames rejected because the queue was full.
func (q *FrameQueue) Dropped() uint64 { return q.dropped.Load() }
