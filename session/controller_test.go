package session

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"vx2/audio"
	"vx2/monitor"
	"vx2/ptt"
)

type recorder struct {
	statuses []Status
	frames   []monitor.Frame
}

func (r *recorder) Status(s Status)           { r.statuses = append(r.statuses, s) }
func (r *recorder) ShowFrame(f monitor.Frame) { r.frames = append(r.frames, f) }

func (r *recorder) last() Status {
	if len(r.statuses) == 0 {
		return Status{}
	}
	return r.statuses[len(r.statuses)-1]
}

type countingCues struct{ key, unkey, errs int }

func (c *countingCues) Key()   { c.key++ }
func (c *countingCues) Unkey() { c.unkey++ }
func (c *countingCues) Error() { c.errs++ }

type write struct {
	samples []int16
	rate    uint32
	dest    string
}

type harness struct {
	ctl    *Controller
	opener *ptt.FakeOpener
	audio  *audio.FakeContext
	disp   *recorder
	cues   *countingCues
	writes []write
	err    error
}

func newHarness(t *testing.T, endpoints ...string) *harness {
	t.Helper()
	pcm := make([]int16, 4096)
	for i := range pcm {
		pcm[i] = int16(i)
	}
	h := &harness{
		opener: ptt.NewFakeOpener(endpoints...),
		audio:  audio.NewFakeContext(pcm, false),
		disp:   &recorder{},
		cues:   &countingCues{},
	}
	h.ctl = New(Config{
		Keyer:    ptt.NewKeyer(h.opener.Open, ptt.LineRTS),
		Registry: h.opener,
		Pipeline: monitor.NewPipeline(h.audio, nil),
		Capture:  monitor.Config{SampleRate: 44100, FrameSize: 1024},
		Dest:     "received_audio.wav",
		Sink: func(samples []int16, rate uint32, dest string) error {
			h.writes = append(h.writes, write{samples, rate, dest})
			return h.err
		},
		Display: h.disp,
		Cues:    h.cues,
	})
	return h
}

func TestEmptyRegistryShowsPlaceholder(t *testing.T) {
	h := newHarness(t)
	ports := h.ctl.Ports()
	if len(ports) != 1 || ports[0] != ptt.NoPortsFound {
		t.Fatalf("ports = %v", ports)
	}
	if err := h.ctl.Connect(ports[0]); err == nil {
		t.Error("connect to placeholder succeeded")
	}
	if h.ctl.Connected() || h.ctl.PTTEnabled() {
		t.Error("connected via placeholder")
	}
}

func TestConnectAndToggle(t *testing.T) {
	h := newHarness(t, "COM_TEST")
	if err := h.ctl.Connect("COM_TEST"); err != nil {
		t.Fatal(err)
	}
	if got := h.disp.last(); got.Text != "Connected to COM_TEST" || got.Tone != ToneOk {
		t.Errorf("status = %+v", got)
	}
	if !h.ctl.PTTEnabled() {
		t.Error("PTT not enabled after connect")
	}

	want := []ptt.KeyState{ptt.Keyed, ptt.Unkeyed, ptt.Keyed}
	texts := []string{"Transmitting...", "Idle", "Transmitting..."}
	for i, w := range want {
		got, err := h.ctl.TogglePTT()
		if err != nil {
			t.Fatal(err)
		}
		if got != w {
			t.Errorf("toggle %d = %v, want %v", i, got, w)
		}
		if h.disp.last().Text != texts[i] {
			t.Errorf("toggle %d status = %q", i, h.disp.last().Text)
		}
	}
	if !h.opener.Last().RTS() {
		t.Error("RTS not asserted")
	}
	if h.cues.key != 2 || h.cues.unkey != 1 {
		t.Errorf("cues = %+v", *h.cues)
	}
}

func TestToggleWhileDisconnected(t *testing.T) {
	h := newHarness(t, "COM_TEST")
	got, err := h.ctl.TogglePTT()
	if err != nil || got != ptt.Unkeyed {
		t.Errorf("toggle = (%v, %v)", got, err)
	}
	if len(h.disp.statuses) != 0 {
		t.Errorf("toggle without port changed status: %v", h.disp.statuses)
	}
}

func TestConnectFailure(t *testing.T) {
	h := newHarness(t, "COM_TEST")
	err := h.ctl.Connect("COM_GONE")
	var ce *ptt.ConnectionError
	if !errors.As(err, &ce) || ce.Kind != ptt.KindNotFound {
		t.Fatalf("err = %v", err)
	}
	if h.disp.last().Tone != ToneError {
		t.Errorf("status = %+v", h.disp.last())
	}
	if h.ctl.Connected() {
		t.Error("connected after failure")
	}
	if h.cues.errs != 1 {
		t.Errorf("error cues = %d", h.cues.errs)
	}
}

func TestDisconnectUnkeys(t *testing.T) {
	h := newHarness(t, "COM_TEST")
	h.ctl.Connect("COM_TEST")
	h.ctl.TogglePTT()
	port := h.opener.Last()

	if err := h.ctl.Disconnect(); err != nil {
		t.Fatal(err)
	}
	if h.ctl.Keyed() || h.ctl.Connected() {
		t.Error("still keyed or connected")
	}
	if port.RTS() || !port.Closed() {
		t.Error("line left high or port open")
	}
	if h.disp.last().Text != "Disconnected" {
		t.Errorf("status = %q", h.disp.last().Text)
	}
	if err := h.ctl.Disconnect(); err != nil {
		t.Errorf("second disconnect: %v", err)
	}
}

func TestDisconnectErrorReported(t *testing.T) {
	h := newHarness(t, "COM_TEST")
	h.ctl.Connect("COM_TEST")
	h.opener.Last().CloseErr = errors.New("io failure")

	err := h.ctl.Disconnect()
	var de *ptt.DisconnectionError
	if !errors.As(err, &de) {
		t.Fatalf("err = %v", err)
	}
	if got := h.disp.last(); got.Tone != ToneError || got.Text != "Error disconnecting: closing: io failure" {
		t.Errorf("status = %+v", got)
	}
	if h.ctl.Connected() {
		t.Error("handle kept after failed disconnect")
	}
}

func TestKeyPTTOnlyTogglesOnChange(t *testing.T) {
	h := newHarness(t, "COM_TEST")
	h.ctl.Connect("COM_TEST")

	h.ctl.KeyPTT(true)
	h.ctl.KeyPTT(true)
	if !h.ctl.Keyed() {
		t.Fatal("not keyed")
	}
	h.ctl.KeyPTT(false)
	h.ctl.KeyPTT(false)
	if got := h.opener.Last().Writes(); len(got) != 3 {
		t.Errorf("writes = %v, want [false true false]", got)
	}
}

func TestMonitorCapturesAndSaves(t *testing.T) {
	h := newHarness(t)
	on, err := h.ctl.ToggleMonitor()
	if err != nil || !on {
		t.Fatalf("start = (%v, %v)", on, err)
	}
	if h.disp.last().Text != "Audio monitor started" {
		t.Errorf("status = %q", h.disp.last().Text)
	}
	h.audio.Last().Feed(10)

	if !h.ctl.Refresh() {
		t.Error("refresh while monitoring reported stopped")
	}
	if len(h.disp.frames) != 1 || h.disp.frames[0].Index != 9 {
		t.Errorf("shown frames = %d", len(h.disp.frames))
	}

	on, err = h.ctl.ToggleMonitor()
	if err != nil || on {
		t.Fatalf("stop = (%v, %v)", on, err)
	}
	if len(h.writes) != 1 {
		t.Fatalf("writes = %d", len(h.writes))
	}
	w := h.writes[0]
	if len(w.samples) != 10240 || w.rate != 44100 || w.dest != "received_audio.wav" {
		t.Errorf("write = %d samples @ %d to %s", len(w.samples), w.rate, w.dest)
	}
	if got := h.disp.last(); got.Text != "Audio saved to received_audio.wav" || got.Tone != ToneInfo {
		t.Errorf("status = %+v", got)
	}
	if h.ctl.Refresh() {
		t.Error("refresh after stop asked to continue")
	}
}

func TestMonitorStopWithoutFramesWritesNothing(t *testing.T) {
	h := newHarness(t)
	h.ctl.ToggleMonitor()
	h.ctl.ToggleMonitor()
	if len(h.writes) != 0 {
		t.Errorf("empty capture written: %d", len(h.writes))
	}
}

func TestMonitorDeviceError(t *testing.T) {
	h := newHarness(t)
	h.audio.StartErr = errors.New("no input device")

	on, err := h.ctl.ToggleMonitor()
	if on || err == nil {
		t.Fatalf("start = (%v, %v)", on, err)
	}
	if got := h.disp.last(); got.Text != "Audio device error: no input device" {
		t.Errorf("status = %q", got.Text)
	}
	if h.ctl.Monitoring() {
		t.Error("monitoring after device error")
	}
}

func TestSaveFailureKeepsSerialState(t *testing.T) {
	h := newHarness(t, "COM_TEST")
	h.ctl.Connect("COM_TEST")
	h.ctl.TogglePTT()
	h.err = errors.New("disk full")

	h.ctl.ToggleMonitor()
	h.audio.Last().Feed(2)
	if _, err := h.ctl.ToggleMonitor(); err == nil {
		t.Fatal("expected save error")
	}
	if got := h.disp.last(); got.Tone != ToneError {
		t.Errorf("status = %+v", got)
	}
	if !h.ctl.Connected() || !h.ctl.Keyed() {
		t.Error("save failure touched serial state")
	}
}

func TestShutdownWhileMonitoringAndKeyed(t *testing.T) {
	h := newHarness(t, "COM_TEST")
	h.ctl.Connect("COM_TEST")
	h.ctl.TogglePTT()
	h.ctl.ToggleMonitor()
	h.audio.Last().Feed(3)
	port := h.opener.Last()

	h.ctl.Shutdown()

	if len(h.writes) != 1 || len(h.writes[0].samples) != 3072 {
		t.Errorf("pending capture not flushed: %v", len(h.writes))
	}
	if port.RTS() {
		t.Error("line left keyed")
	}
	if !port.Closed() {
		t.Error("port left open")
	}
	if h.ctl.Monitoring() || h.ctl.Connected() {
		t.Error("resources still held")
	}
	if !h.audio.Last().Closed() {
		t.Error("capture device not closed")
	}

	h.ctl.Shutdown()
	if len(h.writes) != 1 {
		t.Error("second shutdown wrote again")
	}
}

func TestShutdownSwallowsErrors(t *testing.T) {
	h := newHarness(t, "COM_TEST")
	h.ctl.Connect("COM_TEST")
	h.opener.Last().CloseErr = errors.New("close failed")
	h.err = errors.New("disk full")
	h.ctl.ToggleMonitor()
	h.audio.Last().Feed(1)

	h.ctl.Shutdown()

	if h.ctl.Connected() || h.ctl.Monitoring() {
		t.Error("shutdown did not complete")
	}
}

func TestShutdownIdle(t *testing.T) {
	h := newHarness(t)
	h.ctl.Shutdown()
	if len(h.writes) != 0 || len(h.disp.statuses) != 0 {
		t.Error("idle shutdown had side effects")
	}
}

func TestWithRealSink(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "capture.wav")
	ctx := audio.NewFakeContext(audio.Tone(8000, 440, 800), false)
	ctl := New(Config{
		Keyer:    ptt.NewKeyer(ptt.NewFakeOpener().Open, ptt.LineRTS),
		Registry: ptt.NewFakeOpener(),
		Pipeline: monitor.NewPipeline(ctx, nil),
		Capture:  monitor.Config{SampleRate: 8000, FrameSize: 160},
		Dest:     dest,
	})
	ctl.ToggleMonitor()
	ctx.Last().Feed(5)
	if _, err := ctl.ToggleMonitor(); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(dest)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() != 44+5*160*2 {
		t.Errorf("size = %d", info.Size())
	}
	if ctl.Saved() != 1 {
		t.Errorf("saved = %d", ctl.Saved())
	}
}
