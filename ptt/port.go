package ptt

import (
	"fmt"
	"strings"

	"go.bug.st/serial"
)

const DefaultBaud = 9600

// Port is the part of an open serial handle the keyer drives.
// serial.Port satisfies it.
type Port interface {
	SetRTS(rts bool) error
	SetDTR(dtr bool) error
	Close() error
}

// Opener opens an endpoint. Errors are classified into ConnectionError kinds
// by the keyer.
type Opener func(endpoint string) (Port, error)

// Line selects the modem control signal that keys the transmitter.
type Line int

const (
	LineRTS Line = iota
	LineDTR
)

func ParseLine(s string) (Line, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "rts":
		return LineRTS, nil
	case "dtr":
		return LineDTR, nil
	}
	return LineRTS, fmt.Errorf("unknown ptt line %q (use rts or dtr)", s)
}

func (l Line) String() string {
	if l == LineDTR {
		return "DTR"
	}
	return "RTS"
}

func (l Line) set(p Port, on bool) error {
	if l == LineDTR {
		return p.SetDTR(on)
	}
	return p.SetRTS(on)
}

// SerialOpener opens real serial ports. The PTT line is held low from the
// moment the port opens so the radio never keys during connect.
func SerialOpener(baud int, line Line) Opener {
	if baud <= 0 {
		baud = DefaultBaud
	}
	return func(endpoint string) (Port, error) {
		mode := &serial.Mode{
			BaudRate: baud,
			InitialStatusBits: &serial.ModemOutputBits{
				RTS: false,
				DTR: line != LineDTR,
			},
		}
		p, err := serial.Open(endpoint, mode)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
}
