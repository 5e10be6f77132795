package ptt

import (
	"errors"
	"fmt"
	"io/fs"

	"go.bug.st/serial"
)

// ErrorKind classifies why a connect failed.
type ErrorKind int

const (
	KindOther ErrorKind = iota
	KindNotFound
	KindBusy
	KindPermissionDenied
	KindAlreadyConnected
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindBusy:
		return "busy"
	case KindPermissionDenied:
		return "permission denied"
	case KindAlreadyConnected:
		return "already connected"
	}
	return "error"
}

var ErrAlreadyConnected = errors.New("a port is already connected")

// ConnectionError is returned by Keyer.Connect. Keyer state is unchanged.
type ConnectionError struct {
	Endpoint string
	Kind     ErrorKind
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Endpoint, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// DisconnectionError is returned by Keyer.Disconnect. The handle has been
// released and the level is unkeyed even when this is returned.
type DisconnectionError struct {
	Endpoint string
	Err      error
}

func (e *DisconnectionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Endpoint, e.Err)
}

func (e *DisconnectionError) Unwrap() error { return e.Err }

func classify(err error) ErrorKind {
	if errors.Is(err, ErrAlreadyConnected) {
		return KindAlreadyConnected
	}
	var pe *serial.PortError
	if errors.As(err, &pe) {
		switch pe.Code() {
		case serial.PortNotFound, serial.InvalidSerialPort:
			return KindNotFound
		case serial.PortBusy:
			return KindBusy
		case serial.PermissionDenied:
			return KindPermissionDenied
		}
	}
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return KindNotFound
	case errors.Is(err, fs.ErrPermission):
		return KindPermissionDenied
	}
	return KindOther
}
