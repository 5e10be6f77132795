package ptt

import (
	"errors"
	"fmt"
	"sync"
)

// KeyState is the level of the PTT line.
type KeyState bool

const (
	Unkeyed KeyState = false
	Keyed   KeyState = true
)

func (s KeyState) String() string {
	if s == Keyed {
		return "keyed"
	}
	return "unkeyed"
}

// Keyer owns the single serial connection used to key the radio.
//
//	Disconnected --Connect--> Connected(Unkeyed) <--TogglePTT--> Connected(Keyed)
//	Connected --Disconnect--> Disconnected (line forced low first)
type Keyer struct {
	open Opener
	line Line

	mu       sync.Mutex
	port     Port
	endpoint string
	state    KeyState
}

func NewKeyer(open Opener, line Line) *Keyer {
	return &Keyer{open: open, line: line}
}

func (k *Keyer) Line() Line { return k.line }

func (k *Keyer) Connect(endpoint string) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.port != nil {
		return &ConnectionError{Endpoint: endpoint, Kind: KindAlreadyConnected,
			Err: fmt.Errorf("%w (%s)", ErrAlreadyConnected, k.endpoint)}
	}

	p, err := k.open(endpoint)
	if err != nil {
		return &ConnectionError{Endpoint: endpoint, Kind: classify(err), Err: err}
	}
	if err := k.line.set(p, false); err != nil {
		p.Close()
		return &ConnectionError{Endpoint: endpoint, Kind: KindOther,
			Err: fmt.Errorf("clearing %s: %w", k.line, err)}
	}

	k.port = p
	k.endpoint = endpoint
	k.state = Unkeyed
	return nil
}

func (k *Keyer) Disconnect() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.port == nil {
		return nil
	}

	var errs []error
	if err := k.line.set(k.port, false); err != nil {
		errs = append(errs, fmt.Errorf("clearing %s: %w", k.line, err))
	}
	if err := k.port.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing: %w", err))
	}

	endpoint := k.endpoint
	k.port = nil
	k.endpoint = ""
	k.state = Unkeyed

	if len(errs) > 0 {
		return &DisconnectionError{Endpoint: endpoint, Err: errors.Join(errs...)}
	}
	return nil
}

// TogglePTT inverts the line level and returns the new level. Without an
// open connection it does nothing and reports Unkeyed.
func (k *Keyer) TogglePTT() (KeyState, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.port == nil {
		return Unkeyed, nil
	}
	next := !k.state
	if err := k.line.set(k.port, bool(next)); err != nil {
		return k.state, fmt.Errorf("setting %s: %w", k.line, err)
	}
	k.state = next
	return next, nil
}

func (k *Keyer) Connected() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.port != nil
}

func (k *Keyer) Endpoint() string {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.endpoint
}

func (k *Keyer) State() KeyState {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.state
}
