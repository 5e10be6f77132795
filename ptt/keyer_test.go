package ptt

import (
	"errors"
	"slices"
	"testing"
)

func connected(t *testing.T, line Line) (*Keyer, *FakePort) {
	t.Helper()
	fo := NewFakeOpener("COM_TEST")
	k := NewKeyer(fo.Open, line)
	if err := k.Connect("COM_TEST"); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	return k, fo.Last()
}

func TestToggleSequence(t *testing.T) {
	k, port := connected(t, LineRTS)

	want := []KeyState{Keyed, Unkeyed, Keyed}
	for i, w := range want {
		got, err := k.TogglePTT()
		if err != nil {
			t.Fatalf("toggle %d: %v", i, err)
		}
		if got != w {
			t.Errorf("toggle %d = %v, want %v", i, got, w)
		}
		if port.RTS() != bool(w) {
			t.Errorf("toggle %d: RTS = %v, want %v", i, port.RTS(), w)
		}
	}
	if !slices.Equal(port.Writes(), []bool{false, true, false, true}) {
		t.Errorf("writes = %v", port.Writes())
	}
}

func TestToggleWithoutConnection(t *testing.T) {
	k := NewKeyer(NewFakeOpener().Open, LineRTS)
	for i := 0; i < 3; i++ {
		got, err := k.TogglePTT()
		if err != nil {
			t.Fatalf("toggle: %v", err)
		}
		if got != Unkeyed || k.State() != Unkeyed {
			t.Fatalf("toggle without connection changed state to %v", got)
		}
	}
}

func TestToggleAfterDisconnectIsNoop(t *testing.T) {
	k, port := connected(t, LineRTS)
	k.TogglePTT()
	if err := k.Disconnect(); err != nil {
		t.Fatal(err)
	}
	n := len(port.Writes())
	if got, _ := k.TogglePTT(); got != Unkeyed {
		t.Errorf("toggle after disconnect = %v", got)
	}
	if len(port.Writes()) != n {
		t.Error("toggle after disconnect wrote to the port")
	}
}

func TestDisconnectForcesUnkeyed(t *testing.T) {
	k, port := connected(t, LineRTS)
	k.TogglePTT()
	if k.State() != Keyed {
		t.Fatal("expected keyed")
	}
	if err := k.Disconnect(); err != nil {
		t.Fatal(err)
	}
	if k.State() != Unkeyed {
		t.Errorf("state after disconnect = %v", k.State())
	}
	if port.RTS() {
		t.Error("RTS still high after disconnect")
	}
	if !port.Closed() {
		t.Error("port not closed")
	}
	if k.Connected() || k.Endpoint() != "" {
		t.Error("keyer still reports a connection")
	}
}

func TestUnkeyedAfterAnyDisconnect(t *testing.T) {
	fo := NewFakeOpener("A", "B")
	k := NewKeyer(fo.Open, LineRTS)

	ops := []func(){
		func() { k.Connect("A") },
		func() { k.TogglePTT() },
		func() { k.Disconnect() },
		func() { k.Disconnect() },
		func() { k.Connect("B") },
		func() { k.TogglePTT() },
		func() { k.TogglePTT() },
		func() { k.TogglePTT() },
		func() { k.Connect("A") },
		func() { k.Disconnect() },
		func() { k.Connect("missing") },
		func() { k.Disconnect() },
	}
	for i, op := range ops {
		op()
		if !k.Connected() && k.State() != Unkeyed {
			t.Fatalf("op %d: disconnected but %v", i, k.State())
		}
	}
	for _, p := range fo.opened {
		if p.RTS() {
			t.Error("a closed port was left keyed")
		}
	}
}

func TestDisconnectIdempotent(t *testing.T) {
	k := NewKeyer(NewFakeOpener().Open, LineRTS)
	if err := k.Disconnect(); err != nil {
		t.Errorf("disconnect while disconnected: %v", err)
	}
	if err := k.Disconnect(); err != nil {
		t.Errorf("second disconnect: %v", err)
	}
}

func TestConnectFailureLeavesStateUntouched(t *testing.T) {
	fo := NewFakeOpener("COM1")
	k := NewKeyer(fo.Open, LineRTS)

	err := k.Connect("COM9")
	var ce *ConnectionError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConnectionError, got %v", err)
	}
	if ce.Kind != KindNotFound {
		t.Errorf("kind = %v, want not found", ce.Kind)
	}
	if k.Connected() || k.Endpoint() != "" {
		t.Error("failed connect changed state")
	}
}

func TestConnectWhileConnected(t *testing.T) {
	k, port := connected(t, LineRTS)
	k.TogglePTT()

	err := k.Connect("COM_TEST")
	var ce *ConnectionError
	if !errors.As(err, &ce) || ce.Kind != KindAlreadyConnected {
		t.Fatalf("expected already-connected error, got %v", err)
	}
	if !errors.Is(err, ErrAlreadyConnected) {
		t.Error("error does not wrap ErrAlreadyConnected")
	}
	if k.State() != Keyed || port.Closed() {
		t.Error("second connect disturbed the open connection")
	}
}

func TestConnectClearsLineFailure(t *testing.T) {
	fo := NewFakeOpener("COM1")
	k := NewKeyer(func(ep string) (Port, error) {
		p, err := fo.Open(ep)
		if err != nil {
			return nil, err
		}
		p.(*FakePort).SetErr = errors.New("ioctl failed")
		return p, nil
	}, LineRTS)

	if err := k.Connect("COM1"); err == nil {
		t.Fatal("expected error")
	}
	if !fo.Last().Closed() {
		t.Error("port not closed after failed line init")
	}
	if k.Connected() {
		t.Error("keyer connected after failed line init")
	}
}

func TestDisconnectErrorStillReleases(t *testing.T) {
	k, port := connected(t, LineRTS)
	port.CloseErr = errors.New("device gone")

	err := k.Disconnect()
	var de *DisconnectionError
	if !errors.As(err, &de) {
		t.Fatalf("expected DisconnectionError, got %v", err)
	}
	if de.Endpoint != "COM_TEST" {
		t.Errorf("endpoint = %q", de.Endpoint)
	}
	if k.Connected() || k.State() != Unkeyed {
		t.Error("handle not released after close error")
	}
}

func TestToggleWriteFailureKeepsState(t *testing.T) {
	k, port := connected(t, LineRTS)
	port.SetErr = errors.New("write failed")

	got, err := k.TogglePTT()
	if err == nil {
		t.Fatal("expected error")
	}
	if got != Unkeyed || k.State() != Unkeyed {
		t.Errorf("state changed on failed write: %v", got)
	}
}

func TestDTRLine(t *testing.T) {
	k, port := connected(t, LineDTR)
	k.TogglePTT()
	if !port.DTR() || port.RTS() {
		t.Errorf("DTR=%v RTS=%v, want DTR keyed only", port.DTR(), port.RTS())
	}
	k.Disconnect()
	if port.DTR() {
		t.Error("DTR still high after disconnect")
	}
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		in      string
		want    Line
		wantErr bool
	}{
		{"", LineRTS, false},
		{"rts", LineRTS, false},
		{"DTR", LineDTR, false},
		{" dtr ", LineDTR, false},
		{"cts", LineRTS, true},
	}
	for _, tt := range tests {
		got, err := ParseLine(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLine(%q) err = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLine(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
