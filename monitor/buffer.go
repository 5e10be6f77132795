package monitor

import "time"

// CaptureBuffer accumulates the frames of one monitoring session in arrival
// order. Only the capture callback appends; it is read after the device has
// stopped.
type CaptureBuffer struct {
	frames  []Frame
	samples int
}

func (b *CaptureBuffer) Append(f Frame) {
	b.frames = append(b.frames, f)
	b.samples += len(f.Samples)
}

func (b *CaptureBuffer) Len() int { return len(b.frames) }

func (b *CaptureBuffer) Samples() int { return b.samples }

// Concat returns all samples as one contiguous slice, or nil when empty.
func (b *CaptureBuffer) Concat() []int16 {
	if b.samples == 0 {
		return nil
	}
	out := make([]int16, 0, b.samples)
	for _, f := range b.frames {
		out = append(out, f.Samples...)
	}
	return out
}

func (b *CaptureBuffer) Reset() {
	b.frames = nil
	b.samples = 0
}

// CapturedAudio is the result of one monitoring session.
type CapturedAudio struct {
	Samples    []int16
	SampleRate uint32
	Frames     int
}

// NoAudio is returned when a session captured nothing.
var NoAudio = CapturedAudio{}

func (c CapturedAudio) Empty() bool { return len(c.Samples) == 0 }

func (c CapturedAudio) Duration() time.Duration {
	if c.SampleRate == 0 {
		return 0
	}
	return time.Duration(len(c.Samples)) * time.Second / time.Duration(c.SampleRate)
}
