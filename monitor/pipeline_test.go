package monitor

import (
	"errors"
	"testing"

	"vx2/audio"
)

func ramp(n int) []int16 {
	pcm := make([]int16, n)
	for i := range pcm {
		pcm[i] = int16(i)
	}
	return pcm
}

func newTestPipeline(t *testing.T) (*Pipeline, *audio.FakeContext) {
	t.Helper()
	ctx := audio.NewFakeContext(ramp(30000), false)
	return NewPipeline(ctx, NewFrameQueue(DefaultQueueCapacity)), ctx
}

func TestStartFeedStop(t *testing.T) {
	p, ctx := newTestPipeline(t)
	if err := p.Start(Config{SampleRate: 44100, FrameSize: 1024}); err != nil {
		t.Fatal(err)
	}
	if !p.Running() {
		t.Fatal("not running after Start")
	}
	ctx.Last().Feed(10)

	got := p.Stop()
	if got.Empty() {
		t.Fatal("expected audio")
	}
	if len(got.Samples) != 10240 {
		t.Errorf("samples = %d, want 10240", len(got.Samples))
	}
	if got.SampleRate != 44100 {
		t.Errorf("rate = %d, want 44100", got.SampleRate)
	}
	if got.Frames != 10 {
		t.Errorf("frames = %d, want 10", got.Frames)
	}
	if p.Running() {
		t.Error("still running after Stop")
	}
	if !ctx.Last().Closed() {
		t.Error("device not closed")
	}
}

func TestStopPreservesArrivalOrder(t *testing.T) {
	p, ctx := newTestPipeline(t)
	p.Start(Config{SampleRate: 8000, FrameSize: 100})
	ctx.Last().Feed(7)
	got := p.Stop()

	if len(got.Samples) != 700 {
		t.Fatalf("samples = %d, want 700", len(got.Samples))
	}
	for i, s := range got.Samples {
		if s != int16(i) {
			t.Fatalf("sample %d = %d, out of order", i, s)
		}
	}
}

func TestStopWithoutFrames(t *testing.T) {
	p, _ := newTestPipeline(t)
	p.Start(Config{SampleRate: 44100, FrameSize: 1024})
	if got := p.Stop(); !got.Empty() {
		t.Errorf("expected empty sentinel, got %d samples", len(got.Samples))
	}
}

func TestStopWhenNotStarted(t *testing.T) {
	p, _ := newTestPipeline(t)
	if got := p.Stop(); !got.Empty() {
		t.Error("stop before start returned audio")
	}
	if got := p.Stop(); !got.Empty() {
		t.Error("second stop returned audio")
	}
}

func TestStartWhileRunningStopsFirst(t *testing.T) {
	p, ctx := newTestPipeline(t)
	var flushed []CapturedAudio
	p.OnImplicitStop = func(c CapturedAudio) { flushed = append(flushed, c) }

	p.Start(Config{SampleRate: 44100, FrameSize: 256})
	first := ctx.Last()
	first.Feed(3)

	if err := p.Start(Config{SampleRate: 44100, FrameSize: 256}); err != nil {
		t.Fatal(err)
	}
	if len(flushed) != 1 || len(flushed[0].Samples) != 768 {
		t.Fatalf("implicit stop flushed %v", flushed)
	}
	if !first.Closed() {
		t.Error("first device not closed by implicit stop")
	}

	ctx.Last().Feed(1)
	if got := p.Stop(); len(got.Samples) != 256 {
		t.Errorf("second session samples = %d, want 256 (buffer not cleared)", len(got.Samples))
	}
}

func TestCallbackFeedsQueueAndBuffer(t *testing.T) {
	p, ctx := newTestPipeline(t)
	p.Start(Config{SampleRate: 8000, FrameSize: 10})
	ctx.Last().Feed(3)

	if p.Queue().Len() != 3 {
		t.Errorf("queue len = %d, want 3", p.Queue().Len())
	}
	latest, n := p.Queue().Drain()
	if n != 3 || latest.Index != 2 {
		t.Errorf("drain = (%d, index %d), want (3, index 2)", n, latest.Index)
	}
	if got := p.Stop(); got.Frames != 3 {
		t.Errorf("frames = %d, want 3", got.Frames)
	}
}

func TestFullQueueDropsInsteadOfBlocking(t *testing.T) {
	ctx := audio.NewFakeContext(ramp(100), false)
	p := NewPipeline(ctx, NewFrameQueue(2))
	p.Start(Config{SampleRate: 8000, FrameSize: 10})
	ctx.Last().Feed(5)

	if p.Queue().Dropped() != 3 {
		t.Errorf("dropped = %d, want 3", p.Queue().Dropped())
	}
	if got := p.Stop(); got.Frames != 5 {
		t.Errorf("capture buffer frames = %d, want all 5", got.Frames)
	}
}

func TestStartClearsStaleQueue(t *testing.T) {
	p, ctx := newTestPipeline(t)
	p.Start(Config{SampleRate: 8000, FrameSize: 10})
	ctx.Last().Feed(4)
	p.Stop()

	p.Start(Config{SampleRate: 8000, FrameSize: 10})
	defer p.Stop()
	if p.Queue().Len() != 0 {
		t.Errorf("queue kept %d frames across sessions", p.Queue().Len())
	}
}

func TestStartDeviceError(t *testing.T) {
	p, ctx := newTestPipeline(t)
	ctx.StartErr = errors.New("device busy")

	err := p.Start(Config{SampleRate: 44100, FrameSize: 1024})
	var ade *AudioDeviceError
	if !errors.As(err, &ade) {
		t.Fatalf("expected AudioDeviceError, got %v", err)
	}
	if ade.Op != "start" {
		t.Errorf("op = %q", ade.Op)
	}
	if p.Running() {
		t.Error("running after failed start")
	}
	if !ctx.Last().Closed() {
		t.Error("device not released after failed start")
	}
}

func TestStartInvalidConfig(t *testing.T) {
	p, _ := newTestPipeline(t)
	tests := []struct {
		name string
		cfg  Config
		want error
	}{
		{"zero rate", Config{FrameSize: 1024}, ErrInvalidConfig},
		{"zero frame", Config{SampleRate: 44100}, ErrInvalidConfig},
		{"stereo", Config{SampleRate: 44100, FrameSize: 1024, Channels: 2}, ErrUnsupported},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := p.Start(tt.cfg)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
			if p.Running() {
				t.Error("running after invalid config")
			}
		})
	}
}

func TestRealtimeCaptureStopsCleanly(t *testing.T) {
	ctx := audio.NewFakeContext(ramp(1000), true)
	p := NewPipeline(ctx, nil)
	if err := p.Start(Config{SampleRate: 48000, FrameSize: 48}); err != nil {
		t.Fatal(err)
	}
	refresher := NewRefresher(p.Queue(), WaveformSinkFunc(func(Frame) {}))
	for i := 0; i < 5; i++ {
		refresher.Tick()
	}
	got := p.Stop()
	if got.Frames > 0 && len(got.Samples) != got.Frames*48 {
		t.Errorf("samples = %d for %d frames", len(got.Samples), got.Frames)
	}
}
