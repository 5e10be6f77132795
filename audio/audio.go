package audio

// DataCallback receives exactly one frame of CaptureConfig.FrameSize mono
// samples per call. It runs on the backend's capture thread and must not
// block. The slice is owned by the callee.
type DataCallback func(samples []int16)

type CaptureConfig struct {
	SampleRate uint32
	Channels   uint32
	FrameSize  uint32
}

type DeviceInfo struct {
	ID   string // opaque platform-specific identifier
	Name string
}

type Context interface {
	Devices() ([]DeviceInfo, error)
	NewCapture(device *DeviceInfo, config CaptureConfig) (CaptureDevice, error)
	Close()
}

// CaptureDevice is one input stream. Stop returns only once the callback
// will no longer be invoked.
type CaptureDevice interface {
	Start() error
	Stop()
	Close()
	SetCallback(cb DataCallback)
	ClearCallback()
	DeviceName() string
}

// framer cuts the driver's variable-sized chunks into fixed-size frames.
// Only the capture thread touches it.
type framer struct {
	size    int
	pending []int16
}

func newFramer(size uint32) *framer {
	if size == 0 {
		size = 1
	}
	return &framer{size: int(size), pending: make([]int16, 0, size)}
}

func (f *framer) push(samples []int16, emit func([]int16)) {
	for len(samples) > 0 {
		n := min(f.size-len(f.pending), len(samples))
		f.pending = append(f.pending, samples[:n]...)
		samples = samples[n:]
		if len(f.pending) == f.size {
			frame := make([]int16, f.size)
			copy(frame, f.pending)
			f.pending = f.pending[:0]
			emit(frame)
		}
	}
}

func (f *framer) reset() {
	f.pending = f.pending[:0]
}
