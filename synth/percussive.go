package synth

import (
	"math"

	"github.com/wizzlekids/tunebox"
)

// Percussive is a burst of filtered white noise. The note frequency only
// moves the cutoff of the low-pass filter; the length of the hit is fixed.
// The noise is seeded from the frequency, so equal notes render equal
// buffers.
type Percussive struct {
	SampleRate  int
	Length      float64 // seconds
	CutoffRatio float64 // cutoff = frequency * CutoffRatio
	Q           float64
}

// NewDrums returns the percussive unit used for drum tracks: 100 ms of noise
// low-passed at ten times the note frequency.
func NewDrums(sampleRate int) *Percussive {
	return &Percussive{SampleRate: sampleRate, Length: 0.1, CutoffRatio: 10, Q: math.Sqrt2 / 2}
}

// Render ignores duration beyond rejecting empty notes; drum hits always
// last Length seconds.
func (u *Percussive) Render(frequency, duration, velocity float64) tunebox.AudioBuffer {
	if !(duration > 0) {
		return tunebox.AudioBuffer{}
	}
	buf, ok := noteBuffer(frequency, u.Length, u.SampleRate)
	if !ok {
		return buf
	}
	rng := newNoise(frequency)
	for i := range buf {
		buf[i] = rng.next()
	}
	cutoff := min(frequency*u.CutoffRatio, float64(u.SampleRate)*0.45)
	newLowpass(cutoff, u.Q, u.SampleRate).process(buf)
	HitEnvelope(u.Length, tunebox.ClampVelocity(velocity)).Apply(buf, u.SampleRate)
	return buf
}

type noise struct{ state uint64 }

func newNoise(frequency float64) *noise {
	return &noise{state: math.Float64bits(frequency) ^ 0x9E3779B97F4A7C15}
}

// next returns a uniform sample in [-1,1).
func (n *noise) next() float32 {
	n.state = n.state*6364136223846793005 + 1442695040888963407
	return float32(float64(n.state>>11)/(1<<53)*2 - 1)
}

// biquad is a second order IIR filter in direct form I, coefficients
// normalized by a0.
type biquad struct {
	b0, b1, b2, a1, a2 float64
	x1, x2, y1, y2     float64
}

// newLowpass returns the low-pass of the Audio EQ Cookbook by R.
// Bristow-Johnson.
func newLowpass(cutoff, q float64, sampleRate int) *biquad {
	if !(q > 0) {
		q = math.Sqrt2 / 2
	}
	w0 := 2 * math.Pi * cutoff / float64(sampleRate)
	cos, sin := math.Cos(w0), math.Sin(w0)
	alpha := sin / (2 * q)
	a0 := 1 + alpha
	return &biquad{
		b0: (1 - cos) / 2 / a0,
		b1: (1 - cos) / a0,
		b2: (1 - cos) / 2 / a0,
		a1: -2 * cos / a0,
		a2: (1 - alpha) / a0,
	}
}

func (f *biquad) process(buf []float32) {
	for i, v := range buf {
		x := float64(v)
		y := f.b0*x + f.b1*f.x1 + f.b2*f.x2 - f.a1*f.y1 - f.a2*f.y2
		f.x2, f.x1 = f.x1, x
		f.y2, f.y1 = f.y1, y
		buf[i] = float32(y)
	}
}
