package synth

import (
	"github.com/wizzlekids/tunebox"
)

type (
	// Tonal is a single oscillator shaped by ToneEnvelope.
	Tonal struct {
		SampleRate int
		Waveform   Waveform
	}

	// Partial is one oscillator of a Layered unit, at Ratio times the note
	// frequency.
	Partial struct {
		Waveform Waveform
		Ratio    float64
		Gain     float64
	}

	// Layered sums several partials under one PianoEnvelope.
	Layered struct {
		SampleRate int
		Partials   []Partial
	}
)

// NewTonal returns a tonal unit with the given waveform.
func NewTonal(sampleRate int, w Waveform) *Tonal {
	return &Tonal{SampleRate: sampleRate, Waveform: w}
}

// NewPiano returns a layered unit with a triangle fundamental and a quieter
// sine an octave above.
func NewPiano(sampleRate int) *Layered {
	return &Layered{
		SampleRate: sampleRate,
		Partials: []Partial{
			{Waveform: Triangle, Ratio: 1, Gain: 1},
			{Waveform: Sine, Ratio: 2, Gain: 0.3},
		},
	}
}

func (u *Tonal) Render(frequency, duration, velocity float64) tunebox.AudioBuffer {
	buf, ok := noteBuffer(frequency, duration, u.SampleRate)
	if !ok {
		return buf
	}
	oscillate(buf, u.Waveform, frequency, 1, u.SampleRate)
	ToneEnvelope(duration, tunebox.ClampVelocity(velocity)).Apply(buf, u.SampleRate)
	return buf
}

func (u *Layered) Render(frequency, duration, velocity float64) tunebox.AudioBuffer {
	buf, ok := noteBuffer(frequency, duration, u.SampleRate)
	if !ok {
		return buf
	}
	nyquist := float64(u.SampleRate) / 2
	for _, p := range u.Partials {
		if f := frequency * p.Ratio; f < nyquist {
			oscillate(buf, p.Waveform, f, p.Gain, u.SampleRate)
		}
	}
	PianoEnvelope(duration, tunebox.ClampVelocity(velocity)).Apply(buf, u.SampleRate)
	return buf
}
