package encoder

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

const (
	Channels      = 1
	BitsPerSample = 16
	BlockSize     = 4096
)

// Encoder writes mono 16-bit PCM into a container. Close finalizes the
// header and must be called once all blocks are written.
type Encoder interface {
	EncodeBlock(block []int16) error
	Close() error
	TotalFrames() uint64
}

type Format int

const (
	FormatWAV Format = iota
	FormatFLAC
)

func (f Format) String() string {
	if f == FormatFLAC {
		return "flac"
	}
	return "wav"
}

// FormatFor picks the container from a file extension. Anything that is not
// .flac is written as WAV.
func FormatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".flac") {
		return FormatFLAC
	}
	return FormatWAV
}

func New(f Format, w io.WriteSeeker, sampleRate uint32) (Encoder, error) {
	if sampleRate == 0 {
		return nil, fmt.Errorf("encoder: zero sample rate")
	}
	switch f {
	case FormatFLAC:
		return NewFlac(w, sampleRate)
	default:
		return NewWAV(w, sampleRate), nil
	}
}

// EncodeAll feeds samples to enc in BlockSize chunks.
func EncodeAll(enc Encoder, samples []int16) error {
	for i := 0; i < len(samples); i += BlockSize {
		end := min(i+BlockSize, len(samples))
		if err := enc.EncodeBlock(samples[i:end]); err != nil {
			return err
		}
	}
	return nil
}
