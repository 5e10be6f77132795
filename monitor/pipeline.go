package monitor

import (
	"fmt"

	"vx2/audio"
)

const (
	DefaultSampleRate = 44100
	DefaultFrameSize  = 1024
)

type Config struct {
	SampleRate uint32
	FrameSize  uint32
	Channels   uint32 // only mono is supported; zero means mono
	Device     *audio.DeviceInfo
}

func (c Config) validate() (Config, error) {
	if c.Channels == 0 {
		c.Channels = 1
	}
	switch {
	case c.SampleRate == 0:
		return c, fmt.Errorf("%w: zero sample rate", ErrInvalidConfig)
	case c.FrameSize == 0:
		return c, fmt.Errorf("%w: zero frame size", ErrInvalidConfig)
	case c.Channels != 1:
		return c, fmt.Errorf("%w: %d channels", ErrUnsupported, c.Channels)
	}
	return c, nil
}

// Pipeline runs one audio input stream at a time. Each frame delivered by
// the device goes to the display queue and to the session's capture buffer.
//
// Start, Stop and the accessors belong to a single controlling goroutine.
// The capture callback runs on the backend's thread and shares only the
// queue with it.
type Pipeline struct {
	ctx   audio.Context
	queue *FrameQueue

	// OnImplicitStop receives the capture ended by calling Start while a
	// session is already running.
	OnImplicitStop func(CapturedAudio)

	dev     audio.CaptureDevice
	buf     *CaptureBuffer
	cfg     Config
	running bool
}

func NewPipeline(ctx audio.Context, queue *FrameQueue) *Pipeline {
	if queue == nil {
		queue = NewFrameQueue(DefaultQueueCapacity)
	}
	return &Pipeline{ctx: ctx, queue: queue}
}

func (p *Pipeline) Start(cfg Config) error {
	if p.running {
		captured := p.Stop()
		if p.OnImplicitStop != nil {
			p.OnImplicitStop(captured)
		}
	}

	cfg, err := cfg.validate()
	if err != nil {
		return &AudioDeviceError{Op: "configure", Err: err}
	}

	// Frames left over from an earlier session are never shown.
	p.queue.Drain()

	dev, err := p.ctx.NewCapture(cfg.Device, audio.CaptureConfig{
		SampleRate: cfg.SampleRate,
		Channels:   cfg.Channels,
		FrameSize:  cfg.FrameSize,
	})
	if err != nil {
		return &AudioDeviceError{Op: "open", Err: err}
	}

	buf := &CaptureBuffer{}
	var index uint64
	queue := p.queue
	dev.SetCallback(func(samples []int16) {
		f := Frame{Index: index, Samples: samples}
		index++
		queue.Push(f)
		buf.Append(f)
	})

	if err := dev.Start(); err != nil {
		dev.ClearCallback()
		dev.Close()
		return &AudioDeviceError{Op: "start", Err: err}
	}

	p.dev = dev
	p.buf = buf
	p.cfg = cfg
	p.running = true
	return nil
}

// Stop ends the session and returns everything captured, or NoAudio.
// The buffer is read only after the device confirms it has stopped.
func (p *Pipeline) Stop() CapturedAudio {
	if !p.running {
		return NoAudio
	}
	p.running = false

	p.dev.Stop()
	p.dev.ClearCallback()
	p.dev.Close()
	p.dev = nil

	buf := p.buf
	p.buf = nil
	samples := buf.Concat()
	frames := buf.Len()
	buf.Reset()

	if len(samples) == 0 {
		return NoAudio
	}
	return CapturedAudio{
		Samples:    samples,
		SampleRate: p.cfg.SampleRate,
		Frames:     frames,
	}
}

func (p *Pipeline) Running() bool { return p.running }

func (p *Pipeline) Queue() *FrameQueue { return p.queue }

// Dropped counts frames the display queue refused since the pipeline was
// created.
func (p *Pipeline) Dropped() uint64 { return p.queue.Dropped() }

// Config returns the configuration of the current or last session.
func (p *Pipeline) Config() Config { return p.cfg }

func (p *Pipeline) DeviceName() string {
	if p.dev == nil {
		return ""
	}
	return p.dev.DeviceName()
}
