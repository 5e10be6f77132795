package monitor

import "time"

const RefreshInterval = 50 * time.Millisecond

// WaveformSink renders one frame.
type WaveformSink interface {
	ShowFrame(f Frame)
}

type WaveformSinkFunc func(Frame)

func (fn WaveformSinkFunc) ShowFrame(f Frame) { fn(f) }

// Refresher is the display side of the frame queue. The display wants the
// latest waveform, not every frame, so a tick keeps only the newest of
// whatever accumulated since the previous one.
type Refresher struct {
	queue   *FrameQueue
	sink    WaveformSink
	skipped uint64
}

func NewRefresher(queue *FrameQueue, sink WaveformSink) *Refresher {
	return &Refresher{queue: queue, sink: sink}
}

// Tick drains the queue without blocking and reports whether a frame was
// forwarded.
func (r *Refresher) Tick() bool {
	latest, n := r.queue.Drain()
	if n == 0 {
		return false
	}
	r.skipped += uint64(n - 1)
	r.sink.ShowFrame(latest)
	return true
}

// Skipped counts frames drained but not displayed.
func (r *Refresher) Skipped() uint64 { return r.skipped }
