// Package session coordinates the serial keyer and the audio monitor behind
// the operations the panel exposes.
package session

import (
	"errors"
	"fmt"

	"vx2/log"
	"vx2/monitor"
	"vx2/ptt"
	"vx2/sink"
)

type Tone int

const (
	ToneInfo Tone = iota
	ToneOk
	ToneError
)

type Status struct {
	Text string
	Tone Tone
}

// Display is the panel surface: a status line and a waveform.
type Display interface {
	Status(s Status)
	monitor.WaveformSink
}

// Cues are audible feedback for keying changes and failures.
type Cues interface {
	Key()
	Unkey()
	Error()
}

type SinkFunc func(samples []int16, sampleRate uint32, dest string) error

type Config struct {
	Keyer    *ptt.Keyer
	Registry ptt.Registry
	Pipeline *monitor.Pipeline
	Capture  monitor.Config
	Dest     string
	Sink     SinkFunc
	Display  Display
	Cues     Cues
}

// Controller owns the session. Every method must be called from the one
// goroutine driving the UI.
type Controller struct {
	keyer     *ptt.Keyer
	registry  ptt.Registry
	pipeline  *monitor.Pipeline
	refresher *monitor.Refresher
	capture   monitor.Config
	dest      string
	sink      SinkFunc
	display   Display
	cues      Cues

	saved  int
	closed bool
}

func New(cfg Config) *Controller {
	c := &Controller{
		keyer:    cfg.Keyer,
		registry: cfg.Registry,
		pipeline: cfg.Pipeline,
		capture:  cfg.Capture,
		dest:     cfg.Dest,
		sink:     cfg.Sink,
		display:  cfg.Display,
		cues:     cfg.Cues,
	}
	if c.dest == "" {
		c.dest = sink.DefaultDest
	}
	if c.sink == nil {
		c.sink = sink.Write
	}
	if c.display == nil {
		c.display = nopDisplay{}
	}
	if c.cues == nil {
		c.cues = nopCues{}
	}
	c.refresher = monitor.NewRefresher(c.pipeline.Queue(), c.display)
	c.pipeline.OnImplicitStop = func(captured monitor.CapturedAudio) {
		c.flush(captured)
	}
	return c
}

func (c *Controller) status(text string, tone Tone) {
	c.display.Status(Status{Text: text, Tone: tone})
}

// Ports lists the endpoints to offer, or the "No Ports Found" placeholder.
func (c *Controller) Ports() []string {
	choices, err := ptt.Choices(c.registry)
	if err != nil {
		log.Warnf("port enumeration failed: %v", err)
	}
	return choices
}

func (c *Controller) Describe(endpoint string) string {
	return ptt.Describe(c.registry, endpoint)
}

func (c *Controller) Connect(endpoint string) error {
	if !ptt.Selectable(endpoint) {
		err := &ptt.ConnectionError{Endpoint: endpoint, Kind: ptt.KindNotFound, Err: errors.New("no port selected")}
		c.status(fmt.Sprintf("Connection failed: %v", err.Err), ToneError)
		return err
	}
	if err := c.keyer.Connect(endpoint); err != nil {
		log.SerialEvent("connect", endpoint, err)
		c.status(fmt.Sprintf("Connection failed: %s", connectCause(err)), ToneError)
		c.cues.Error()
		return err
	}
	log.SerialEvent("connect", endpoint, nil)
	c.status("Connected to "+endpoint, ToneOk)
	return nil
}

func connectCause(err error) string {
	var ce *ptt.ConnectionError
	if errors.As(err, &ce) && ce.Err != nil {
		return ce.Err.Error()
	}
	return err.Error()
}

func (c *Controller) Disconnect() error {
	if !c.keyer.Connected() {
		return nil
	}
	endpoint := c.keyer.Endpoint()
	wasKeyed := c.keyer.State() == ptt.Keyed
	err := c.keyer.Disconnect()
	if wasKeyed {
		log.PTTEvent(endpoint, false)
		c.cues.Unkey()
	}
	log.SerialEvent("disconnect", endpoint, err)
	if err != nil {
		c.status(fmt.Sprintf("Error disconnecting: %v", errors.Unwrap(err)), ToneError)
		return err
	}
	c.status("Disconnected", ToneError)
	return nil
}

func (c *Controller) TogglePTT() (ptt.KeyState, error) {
	if !c.keyer.Connected() {
		return ptt.Unkeyed, nil
	}
	state, err := c.keyer.TogglePTT()
	if err != nil {
		log.Errorf("ptt write on %s: %v", c.keyer.Endpoint(), err)
		c.status(fmt.Sprintf("PTT failed: %v", err), ToneError)
		c.cues.Error()
		return state, err
	}
	log.PTTEvent(c.keyer.Endpoint(), state == ptt.Keyed)
	if state == ptt.Keyed {
		c.status("Transmitting...", ToneInfo)
		c.cues.Key()
	} else {
		c.status("Idle", ToneOk)
		c.cues.Unkey()
	}
	return state, nil
}

// KeyPTT drives the line to the requested level, toggling only when it
// differs from the current one.
func (c *Controller) KeyPTT(on bool) (ptt.KeyState, error) {
	current := c.keyer.State()
	if (current == ptt.Keyed) == on {
		return current, nil
	}
	return c.TogglePTT()
}

// ToggleMonitor starts monitoring when idle and stops and saves the capture
// when running. It reports whether monitoring is now on; the caller keeps
// calling Refresh only while it is.
func (c *Controller) ToggleMonitor() (bool, error) {
	if c.pipeline.Running() {
		return false, c.stopMonitor()
	}
	if err := c.pipeline.Start(c.capture); err != nil {
		log.Errorf("monitor start: %v", err)
		c.status(fmt.Sprintf("Audio device error: %v", errors.Unwrap(err)), ToneError)
		c.cues.Error()
		return false, err
	}
	cfg := c.pipeline.Config()
	log.MonitorEvent("monitor_start", log.MonitorStats{
		Device:     c.pipeline.DeviceName(),
		SampleRate: cfg.SampleRate,
	})
	c.status("Audio monitor started", ToneOk)
	return true, nil
}

func (c *Controller) stopMonitor() error {
	captured := c.pipeline.Stop()
	return c.flush(captured)
}

// flush hands a finished capture to the sink. An empty capture writes
// nothing.
func (c *Controller) flush(captured monitor.CapturedAudio) error {
	log.MonitorEvent("monitor_stop", log.MonitorStats{
		SampleRate: captured.SampleRate,
		Frames:     captured.Frames,
		Samples:    len(captured.Samples),
		Dropped:    c.pipeline.Dropped(),
		Skipped:    c.refresher.Skipped(),
		DurationS:  captured.Duration().Seconds(),
	})
	if captured.Empty() {
		c.status("Audio monitor stopped", ToneInfo)
		return nil
	}
	if err := c.sink(captured.Samples, captured.SampleRate, c.dest); err != nil {
		log.Errorf("save capture: %v", err)
		c.status(fmt.Sprintf("Save failed: %v", err), ToneError)
		c.cues.Error()
		return err
	}
	c.saved++
	log.CaptureSaved(c.dest, len(captured.Samples), captured.SampleRate)
	c.status("Audio saved to "+c.dest, ToneInfo)
	return nil
}

// Refresh pushes the newest queued frame to the display. It reports whether
// monitoring is still running, which is the signal to schedule the next one.
func (c *Controller) Refresh() bool {
	if !c.pipeline.Running() {
		return false
	}
	c.refresher.Tick()
	return true
}

// Shutdown stops monitoring (saving what was captured), unkeys and closes
// the port. Failures are logged and never stop the sequence.
func (c *Controller) Shutdown() {
	if c.closed {
		return
	}
	c.closed = true

	if c.pipeline.Running() {
		if err := c.stopMonitor(); err != nil {
			log.Warnf("shutdown: %v", err)
		}
	}
	if c.keyer.Connected() {
		if err := c.Disconnect(); err != nil {
			log.Warnf("shutdown: %v", err)
		}
	}
	log.SessionEnd(c.saved)
}

func (c *Controller) Connected() bool { return c.keyer.Connected() }

// PTTEnabled reports whether keying is allowed, which is whenever a port is
// open.
func (c *Controller) PTTEnabled() bool { return c.keyer.Connected() }

func (c *Controller) Keyed() bool { return c.keyer.State() == ptt.Keyed }

func (c *Controller) Monitoring() bool { return c.pipeline.Running() }

func (c *Controller) Endpoint() string { return c.keyer.Endpoint() }

func (c *Controller) Line() ptt.Line { return c.keyer.Line() }

func (c *Controller) Dest() string { return c.dest }

// Saved counts captures written this session.
func (c *Controller) Saved() int { return c.saved }

func (c *Controller) Pipeline() *monitor.Pipeline { return c.pipeline }

type nopDisplay struct{}

func (nopDisplay) Status(Status)           {}
func (nopDisplay) ShowFrame(monitor.Frame) {}

type nopCues struct{}

func (nopCues) Key()   {}
func (nopCues) Unkey() {}
func (nopCues) Error() {}
