package synth

import (
	"math"

	"github.com/viterin/vek/vek32"
)

type (
	// Ramp tells how an envelope reaches a breakpoint from the previous one.
	Ramp int

	// Breakpoint is a target value of an envelope at a time in seconds from
	// the start of the note.
	Breakpoint struct {
		Time  float64
		Value float64
		Ramp  Ramp
	}

	// Envelope is a gain curve starting at 0 at time 0. Breakpoints are kept
	// in time order; after the last one the value is held.
	Envelope []Breakpoint
)

const (
	// Step holds the previous value and jumps at the breakpoint time.
	Step Ramp = iota
	Linear
	// Exponential ramps geometrically. It needs a positive start and target
	// value; otherwise the previous value is held.
	Exponential
)

// At returns the value of the envelope at time t.
func (e Envelope) At(t float64) float64 {
	prevT, prevV := 0.0, 0.0
	for _, b := range e {
		if t < b.Time {
			span := b.Time - prevT
			if span <= 0 {
				return prevV
			}
			f := (t - prevT) / span
			switch b.Ramp {
			case Linear:
				return prevV + (b.Value-prevV)*f
			case Exponential:
				if prevV > 0 && b.Value > 0 {
					return prevV * math.Pow(b.Value/prevV, f)
				}
			}
			return prevV
		}
		prevT, prevV = b.Time, b.Value
	}
	return prevV
}

// Within returns a copy of the envelope with every breakpoint moved inside
// [0, duration] and the times made non-decreasing, so a note shorter than
// its attack still gets a well-formed curve.
func (e Envelope) Within(duration float64) Envelope {
	ret := make(Envelope, len(e))
	prev := 0.0
	for i, b := range e {
		b.Time = max(prev, min(b.Time, duration))
		prev = b.Time
		ret[i] = b
	}
	return ret
}

// Apply multiplies buf sample by sample with the envelope.
func (e Envelope) Apply(buf []float32, sampleRate int) {
	if len(buf) == 0 {
		return
	}
	gain := make([]float32, len(buf))
	dt := 1 / float64(sampleRate)
	for i := range gain {
		gain[i] = float32(e.At(float64(i) * dt))
	}
	vek32.Mul_Inplace(buf, gain)
}

// ToneEnvelope is the envelope of the generic tonal voice: a 10 ms attack to
// 0.3 of the velocity, a decay to 0.1 at 100 ms held until 100 ms before the
// end, then a release to silence at the end of the note.
func ToneEnvelope(duration, velocity float64) Envelope {
	return Envelope{
		{Time: 0.01, Value: velocity * 0.3, Ramp: Linear},
		{Time: 0.1, Value: velocity * 0.1, Ramp: Exponential},
		{Time: duration - 0.1, Value: velocity * 0.1, Ramp: Step},
		{Time: duration, Value: 0.001, Ramp: Exponential},
	}.Within(duration)
}

// PianoEnvelope has a 20 ms attack to 0.8 of the velocity, a decay to 0.2 at
// 200 ms and a long tail to silence at the end of the note.
func PianoEnvelope(duration, velocity float64) Envelope {
	return Envelope{
		{Time: 0.02, Value: velocity * 0.8, Ramp: Linear},
		{Time: 0.2, Value: velocity * 0.2, Ramp: Exponential},
		{Time: duration, Value: 0.001, Ramp: Exponential},
	}.Within(duration)
}

// HitEnvelope reaches full velocity in 1 ms and dies out after length
// seconds.
func HitEnvelope(length, velocity float64) Envelope {
	return Envelope{
		{Time: 0.001, Value: velocity, Ramp: Linear},
		{Time: length, Value: 0.001, Ramp: Exponential},
	}.Within(length)
}
