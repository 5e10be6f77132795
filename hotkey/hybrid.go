package hotkey

import (
	"sync"
	"sync/atomic"
	"time"
)

type Mode string

const (
	ModeMomentary Mode = "momentary"
	ModeLatched   Mode = "latched"
)

// Event asks for the PTT line to go to Keyed.
type Event struct {
	Keyed bool
	Mode  Mode
}

// Hybrid turns one key combination into PTT requests. A press keys at once.
// Holding past longPress makes it momentary: release unkeys. A shorter tap
// latches the line until the next press and release.
type Hybrid struct {
	events  chan Event
	latched atomic.Bool
	stop    chan struct{}
	once    sync.Once
}

func NewHybrid(hk Hotkey, longPress time.Duration) *Hybrid {
	h := &Hybrid{
		events: make(chan Event, 4),
		stop:   make(chan struct{}),
	}
	go h.run(hk, longPress)
	return h
}

func (h *Hybrid) Events() <-chan Event { return h.events }

// Latched reports whether the last tap left the line keyed.
func (h *Hybrid) Latched() bool { return h.latched.Load() }

func (h *Hybrid) Close() {
	h.once.Do(func() { close(h.stop) })
}

type hybridState int

const (
	stIdle hybridState = iota
	stLatched
)

func (h *Hybrid) wait(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	case <-h.stop:
		return false
	}
}

func (h *Hybrid) emit(ev Event) bool {
	select {
	case h.events <- ev:
		return true
	case <-h.stop:
		return false
	}
}

func (h *Hybrid) run(hk Hotkey, longPress time.Duration) {
	state := stIdle
	for {
		switch state {
		case stIdle:
			if !h.wait(hk.Keydown()) {
				return
			}
			// Key now; hold duration only decides how we unkey.
			if !h.emit(Event{Keyed: true, Mode: ModeMomentary}) {
				return
			}
			timer := time.NewTimer(longPress)
			select {
			case <-timer.C:
				if !h.wait(hk.Keyup()) {
					return
				}
				if !h.emit(Event{Keyed: false, Mode: ModeMomentary}) {
					return
				}
			case <-hk.Keyup():
				timer.Stop()
				h.latched.Store(true)
				state = stLatched
			case <-h.stop:
				timer.Stop()
				return
			}
		case stLatched:
			if !h.wait(hk.Keydown()) || !h.wait(hk.Keyup()) {
				return
			}
			h.latched.Store(false)
			if !h.emit(Event{Keyed: false, Mode: ModeLatched}) {
				return
			}
			state = stIdle
		}
	}
}
