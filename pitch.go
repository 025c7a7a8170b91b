package tunebox

import (
	"fmt"
	"math"
	"strings"
)

// Pitch is one of the twelve pitch classes of the equal-tempered scale.
type Pitch int

const (
	C Pitch = iota
	CSharp
	D
	DSharp
	E
	F
	FSharp
	G
	GSharp
	A
	ASharp
	B
)

// NumPitches is the number of pitch classes in an octave.
const NumPitches = 12

// ReferenceFrequency is the frequency of A4 in Hz.
const ReferenceFrequency = 440.0

var pitchNames = [NumPitches]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

var flatNames = map[string]Pitch{
	"DB": CSharp, "EB": DSharp, "GB": FSharp, "AB": GSharp, "BB": ASharp,
}

// Normalize wraps the pitch into the range C..B.
func (p Pitch) Normalize() Pitch {
	return Pitch((int(p)%NumPitches + NumPitches) % NumPitches)
}

func (p Pitch) String() string {
	return pitchNames[p.Normalize()]
}

// SemitoneOffset returns the distance in semitones from A in the same
// octave: C is -9, A is 0 and B is +2.
func (p Pitch) SemitoneOffset() int {
	return int(p.Normalize()) - int(A)
}

// MarshalText encodes the pitch by name, so composition files read "C#"
// instead of 1.
func (p Pitch) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Pitch) UnmarshalText(text []byte) error {
	v, err := ParsePitch(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// ParsePitch parses a pitch class name such as "C", "c#", "F#" or "Bb".
func ParsePitch(s string) (Pitch, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for i, n := range pitchNames {
		if n == name {
			return Pitch(i), nil
		}
	}
	if p, ok := flatNames[name]; ok {
		return p, nil
	}
	return 0, fmt.Errorf("unknown pitch %q", s)
}

// FrequencyOf returns the equal-tempered frequency of the pitch in the given
// octave, with A4 = 440 Hz. The semitone distance is summed as an integer
// before the division so whole octaves of A come out exact.
func FrequencyOf(p Pitch, octave int) float64 {
	semitones := NumPitches*(octave-4) + p.SemitoneOffset()
	return ReferenceFrequency * math.Pow(2, float64(semitones)/NumPitches)
}

// MIDIKey returns the MIDI note number of the pitch in the given octave (C4
// = 60), clamped to 0..127.
func MIDIKey(p Pitch, octave int) uint8 {
	key := (octave+1)*NumPitches + int(p.Normalize())
	return uint8(min(max(key, 0), 127))
}

// FromMIDIKey is the inverse of MIDIKey.
func FromMIDIKey(key uint8) (Pitch, int) {
	return Pitch(int(key) % NumPitches), int(key)/NumPitches - 1
}
