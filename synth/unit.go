// Package synth renders single notes into mono audio. Each instrument is a
// Unit; the Registry maps the instrument ids stored in tracks to Units.
package synth

import (
	"math"

	"github.com/viterin/vek/vek32"
	"github.com/wizzlekids/tunebox"
)

type (
	// Unit renders one note. Render never fails: a non-positive or NaN
	// duration gives an empty buffer and a non-positive or NaN frequency a
	// silent one. Implementations must be safe for concurrent use.
	Unit interface {
		Render(frequency, duration, velocity float64) tunebox.AudioBuffer
	}

	// Waveform is the shape of a basic oscillator.
	Waveform int
)

const (
	Sine Waveform = iota
	Triangle
	Square
	Sawtooth
)

// Sample returns the value of the waveform at phase in [0,1).
func (w Waveform) Sample(phase float64) float64 {
	switch w {
	case Triangle:
		switch {
		case phase < 0.25:
			return 4 * phase
		case phase < 0.75:
			return 2 - 4*phase
		default:
			return 4*phase - 4
		}
	case Square:
		if phase < 0.5 {
			return 1
		}
		return -1
	case Sawtooth:
		if phase < 0.5 {
			return 2 * phase
		}
		return 2*phase - 2
	default:
		return math.Sin(2 * math.Pi * phase)
	}
}

func (w Waveform) String() string {
	switch w {
	case Triangle:
		return "triangle"
	case Square:
		return "square"
	case Sawtooth:
		return "sawtooth"
	default:
		return "sine"
	}
}

// oscillate adds gain times the waveform at frequency into buf.
func oscillate(buf []float32, w Waveform, frequency, gain float64, sampleRate int) {
	step := frequency / float64(sampleRate)
	phase := 0.0
	for i := range buf {
		buf[i] += float32(gain * w.Sample(phase))
		phase += step
		phase -= math.Floor(phase)
	}
}

// noteBuffer allocates the buffer of a note, reporting whether anything
// should be rendered into it.
func noteBuffer(frequency, duration float64, sampleRate int) (tunebox.AudioBuffer, bool) {
	n := tunebox.SamplesIn(duration, sampleRate)
	if n == 0 {
		return tunebox.AudioBuffer{}, false
	}
	buf := make(tunebox.AudioBuffer, n)
	return buf, frequency > 0 && !math.IsInf(frequency, 0)
}

// Gain is the master gain of a track: 0 when muted, otherwise the volume
// clamped to [0,1].
func Gain(volume float64, muted bool) float32 {
	if muted {
		return 0
	}
	return float32(tunebox.ClampVolume(volume))
}

// ApplyGain scales buf in place.
func ApplyGain(buf tunebox.AudioBuffer, gain float32) {
	if len(buf) == 0 || gain == 1 {
		return
	}
	vek32.MulNumber_Inplace(buf, gain)
}
