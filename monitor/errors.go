package monitor

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidConfig = errors.New("invalid capture configuration")
	ErrUnsupported   = errors.New("unsupported capture format")
)

// AudioDeviceError reports a failure opening or starting the input stream.
// Monitoring is off whenever one is returned.
type AudioDeviceError struct {
	Op  string
	Err error
}

func (e *AudioDeviceError) Error() string {
	return fmt.Sprintf("audio %s: %v", e.Op, e.Err)
}

func (e *AudioDeviceError) Unwrap() error { return e.Err }
