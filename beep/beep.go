// Package beep plays short cue tones when the PTT line changes or an
// operation fails.
package beep

import "math"

var disabled bool

func Disable() { disabled = true }

type Cue int

const (
	CueKey Cue = iota
	CueUnkey
	CueError
)

const (
	sampleRate = 44100

	// Key: high pitch, short
	keyFreq   = 1200
	keyVolume = 0.5
	keyDecay  = 60
	keyDur    = 0.05

	// Unkey: medium pitch, slightly longer
	unkeyFreq   = 900
	unkeyVolume = 0.5
	unkeyDecay  = 40
	unkeyDur    = 0.08

	// Error: low pitch double-beep
	errorFreq   = 350
	errorVolume = 0.6
	errorDecay  = 30
)

// Samples returns the mono 16-bit waveform for a cue at 44.1 kHz.
func Samples(c Cue) []int16 {
	switch c {
	case CueKey:
		return tick(keyFreq, keyDur, keyVolume, keyDecay)
	case CueUnkey:
		return tick(unkeyFreq, unkeyDur, unkeyVolume, unkeyDecay)
	default:
		return doubleBeep(errorFreq, 0.08, 0.05, errorVolume, errorDecay)
	}
}

func tick(freq, duration, volume, decay float64) []int16 {
	n := int(sampleRate * duration)
	samples := make([]int16, n)
	for i := range samples {
		t := float64(i) / sampleRate
		envelope := math.Exp(-t * decay)
		samples[i] = int16(math.Sin(2*math.Pi*freq*t) * 32767 * volume * envelope)
	}
	return samples
}

func doubleBeep(freq, beepDur, gapDur, volume, decay float64) []int16 {
	beep := tick(freq, beepDur, volume, decay)
	gap := make([]int16, int(sampleRate*gapDur))
	result := make([]int16, 0, len(beep)*2+len(gap))
	result = append(result, beep...)
	result = append(result, gap...)
	result = append(result, beep...)
	return result
}

func PlayKey()   { play(CueKey) }
func PlayUnkey() { play(CueUnkey) }
func PlayError() { play(CueError) }

// Cues plays the matching tone for each keying event.
type Cues struct{}

func (Cues) Key()   { PlayKey() }
func (Cues) Unkey() { PlayUnkey() }
func (Cues) Error() { PlayError() }
