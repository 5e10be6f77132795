package encoder

import (
	"fmt"
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const wavFormatPCM = 1

type WAVEncoder struct {
	enc         *wav.Encoder
	format      *audio.Format
	totalFrames uint64
}

func NewWAV(w io.WriteSeeker, sampleRate uint32) *WAVEncoder {
	return &WAVEncoder{
		enc: wav.NewEncoder(w, int(sampleRate), BitsPerSample, Channels, wavFormatPCM),
		format: &audio.Format{
			SampleRate:  int(sampleRate),
			NumChannels: Channels,
		},
	}
}

func (e *WAVEncoder) EncodeBlock(block []int16) error {
	if len(block) == 0 {
		return nil
	}
	data := make([]int, len(block))
	for i, s := range block {
		data[i] = int(s)
	}
	buf := &audio.IntBuffer{Data: data, Format: e.format, SourceBitDepth: BitsPerSample}
	if err := e.enc.Write(buf); err != nil {
		return fmt.Errorf("writing wav samples: %w", err)
	}
	e.totalFrames += uint64(len(block))
	return nil
}

// Close patches the RIFF and data chunk sizes.
func (e *WAVEncoder) Close() error {
	return e.enc.Close()
}

func (e *WAVEncoder) TotalFrames() uint64 {
	return e.totalFrames
}
