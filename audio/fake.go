package audio

import (
	"errors"
	"fmt"
	"math"
	"os"
	"sync"
	"time"

	"github.com/go-audio/wav"
)

// FakeContext plays a fixed PCM clip in a loop instead of opening hardware.
// With realtime set, frames arrive on a goroutine at the configured sample
// rate; otherwise nothing arrives until Feed is called.
type FakeContext struct {
	pcm      []int16
	realtime bool

	// StartErr, when set, is returned by every capture's Start.
	StartErr error

	mu       sync.Mutex
	captures []*FakeCapture
}

func NewFakeContext(pcm []int16, realtime bool) *FakeContext {
	if len(pcm) == 0 {
		pcm = make([]int16, 1)
	}
	return &FakeContext{pcm: pcm, realtime: realtime}
}

// LoadWAV reads a 16-bit mono WAV file.
func LoadWAV(path string) ([]int16, uint32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, 0, fmt.Errorf("%s: not a valid WAV file", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("decoding %s: %w", path, err)
	}
	if dec.BitDepth != 16 || dec.NumChans != 1 {
		return nil, 0, fmt.Errorf("%s: want 16-bit mono, got %d-bit %d channel(s)", path, dec.BitDepth, dec.NumChans)
	}
	pcm := make([]int16, len(buf.Data))
	for i, s := range buf.Data {
		pcm[i] = int16(s)
	}
	return pcm, dec.SampleRate, nil
}

// Tone generates n samples of a sine wave at half scale.
func Tone(sampleRate uint32, freq float64, n int) []int16 {
	pcm := make([]int16, n)
	for i := range pcm {
		t := float64(i) / float64(sampleRate)
		pcm[i] = int16(math.Sin(2*math.Pi*freq*t) * 16383)
	}
	return pcm
}

func (f *FakeContext) Devices() ([]DeviceInfo, error) {
	return []DeviceInfo{{ID: "fake", Name: "fake"}}, nil
}

func (f *FakeContext) Close() {}

func (f *FakeContext) NewCapture(_ *DeviceInfo, config CaptureConfig) (CaptureDevice, error) {
	if config.FrameSize == 0 {
		return nil, errors.New("fake capture: zero frame size")
	}
	c := &FakeCapture{
		pcm:      f.pcm,
		realtime: f.realtime,
		config:   config,
		startErr: f.StartErr,
	}
	f.mu.Lock()
	f.captures = append(f.captures, c)
	f.mu.Unlock()
	return c, nil
}

// Last returns the most recently created capture, or nil.
func (f *FakeContext) Last() *FakeCapture {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.captures) == 0 {
		return nil
	}
	return f.captures[len(f.captures)-1]
}

type FakeCapture struct {
	pcm      []int16
	realtime bool
	config   CaptureConfig
	startErr error

	mu       sync.Mutex
	cb       DataCallback
	pos      int
	running  bool
	closed   bool
	stopCh   chan struct{}
	feedDone chan struct{}
}

func (f *FakeCapture) SetCallback(cb DataCallback) {
	f.mu.Lock()
	f.cb = cb
	f.mu.Unlock()
}

func (f *FakeCapture) ClearCallback() {
	f.mu.Lock()
	f.cb = nil
	f.mu.Unlock()
}

func (f *FakeCapture) DeviceName() string { return "fake" }

func (f *FakeCapture) Running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

func (f *FakeCapture) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// nextFrame cuts the next frame from the looping clip. Caller holds mu.
func (f *FakeCapture) nextFrame() []int16 {
	frame := make([]int16, f.config.FrameSize)
	for i := range frame {
		frame[i] = f.pcm[f.pos]
		f.pos = (f.pos + 1) % len(f.pcm)
	}
	return frame
}

// Feed delivers n frames synchronously, as if the driver had produced them.
// It does nothing while the capture is stopped.
func (f *FakeCapture) Feed(n int) {
	for i := 0; i < n; i++ {
		f.mu.Lock()
		if !f.running || f.cb == nil {
			f.mu.Unlock()
			return
		}
		cb := f.cb
		frame := f.nextFrame()
		f.mu.Unlock()
		cb(frame)
	}
}

func (f *FakeCapture) Start() error {
	if f.startErr != nil {
		return f.startErr
	}
	f.mu.Lock()
	f.running = true
	f.stopCh = make(chan struct{})
	f.feedDone = make(chan struct{})
	stopCh, feedDone := f.stopCh, f.feedDone
	f.mu.Unlock()

	if !f.realtime {
		close(feedDone)
		return nil
	}

	interval := time.Second / 100
	if f.config.SampleRate > 0 {
		interval = time.Duration(f.config.FrameSize) * time.Second / time.Duration(f.config.SampleRate)
	}
	go func() {
		defer close(feedDone)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stopCh:
				return
			case <-ticker.C:
				f.Feed(1)
			}
		}
	}()
	return nil
}

func (f *FakeCapture) Stop() {
	f.mu.Lock()
	if !f.running {
		f.mu.Unlock()
		return
	}
	f.running = false
	stopCh, feedDone := f.stopCh, f.feedDone
	f.mu.Unlock()

	close(stopCh)
	<-feedDone
}

func (f *FakeCapture) Close() {
	f.Stop()
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}
