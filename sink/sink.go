// Package sink writes a captured buffer to disk.
package sink

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"vx2/encoder"
)

const DefaultDest = "received_audio.wav"

var ErrEmptyCapture = errors.New("nothing captured")

// IOError reports a failed write to Dest. The destination is left as it was
// before the write started.
type IOError struct {
	Dest string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("writing %s: %v", e.Dest, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// Write encodes samples as mono 16-bit audio at sampleRate. The container
// follows the extension of dest (.flac, otherwise WAV). The data goes to a
// temporary file next to dest which is renamed over it on success.
func Write(samples []int16, sampleRate uint32, dest string) error {
	if len(samples) == 0 {
		return ErrEmptyCapture
	}
	if err := write(samples, sampleRate, dest); err != nil {
		return &IOError{Dest: dest, Err: err}
	}
	return nil
}

func write(samples []int16, sampleRate uint32, dest string) (err error) {
	dir := filepath.Dir(dest)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dest)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()
	// CreateTemp opens with 0600; the saved file is a normal document.
	if err = tmp.Chmod(0o644); err != nil {
		return err
	}

	enc, err := encoder.New(encoder.FormatFor(dest), tmp, sampleRate)
	if err != nil {
		return err
	}
	if err = encoder.EncodeAll(enc, samples); err != nil {
		return err
	}
	if err = enc.Close(); err != nil {
		return fmt.Errorf("finalizing: %w", err)
	}
	// The FLAC encoder closes the file itself.
	if cerr := tmp.Close(); cerr != nil && !errors.Is(cerr, os.ErrClosed) {
		err = cerr
		return err
	}
	if err = os.Rename(tmpName, dest); err != nil {
		return err
	}
	return nil
}
