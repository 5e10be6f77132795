package ptt

import (
	"fmt"
	"io/fs"
	"slices"
	"sync"
)

// FakePort records control line writes instead of touching hardware.
type FakePort struct {
	mu       sync.Mutex
	rts, dtr bool
	closed   bool
	writes   []bool

	// SetErr and CloseErr, when set, are returned by the matching calls.
	SetErr   error
	CloseErr error
}

func (p *FakePort) SetRTS(on bool) error { return p.set(&p.rts, on) }
func (p *FakePort) SetDTR(on bool) error { return p.set(&p.dtr, on) }

func (p *FakePort) set(line *bool, on bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return fmt.Errorf("port closed")
	}
	if p.SetErr != nil {
		return p.SetErr
	}
	*line = on
	p.writes = append(p.writes, on)
	return nil
}

func (p *FakePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return p.CloseErr
}

func (p *FakePort) RTS() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rts
}

func (p *FakePort) DTR() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dtr
}

func (p *FakePort) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Writes returns every level written to either line, in order.
func (p *FakePort) Writes() []bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.writes)
}

// FakeOpener hands out FakePorts for a fixed endpoint list. It doubles as a
// Registry for the same list.
type FakeOpener struct {
	mu        sync.Mutex
	endpoints []string
	opened    []*FakePort

	// Fail maps endpoints to the error Open returns for them.
	Fail map[string]error
}

func NewFakeOpener(endpoints ...string) *FakeOpener {
	return &FakeOpener{endpoints: endpoints, Fail: map[string]error{}}
}

func (f *FakeOpener) Open(endpoint string) (Port, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.Fail[endpoint]; ok {
		return nil, err
	}
	if !slices.Contains(f.endpoints, endpoint) {
		return nil, fmt.Errorf("open %s: %w", endpoint, fs.ErrNotExist)
	}
	p := &FakePort{}
	f.opened = append(f.opened, p)
	return p, nil
}

func (f *FakeOpener) Endpoints() ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.endpoints), nil
}

func (f *FakeOpener) SetEndpoints(endpoints ...string) {
	f.mu.Lock()
	f.endpoints = endpoints
	f.mu.Unlock()
}

// Last returns the most recently opened port, or nil.
func (f *FakeOpener) Last() *FakePort {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.opened) == 0 {
		return nil
	}
	return f.opened[len(f.opened)-1]
}
