package oto_test

import (
	"encoding/binary"
	"slices"
	"testing"
	"time"

	"github.com/wizzlekids/tunebox"
	"github.com/wizzlekids/tunebox/oto"
	"github.com/wizzlekids/tunebox/tracker"
)

const sampleRate = 1000

// constUnit renders a buffer of 0.5 for the length of the note.
type constUnit struct{}

func (constUnit) Render(frequency, duration, velocity float64) tunebox.AudioBuffer {
	buf := make(tunebox.AudioBuffer, tunebox.SamplesIn(duration, sampleRate))
	for i := range buf {
		buf[i] = 0.5
	}
	return buf
}

func read(t *testing.T, m *oto.Mixer, frames int) []int16 {
	t.Helper()
	p := make([]byte, frames*2)
	n, err := m.Read(p)
	if err != nil || n != len(p) {
		t.Fatalf("Read = %v, %v", n, err)
	}
	ret := make([]int16, frames)
	for i := range ret {
		ret[i] = int16(binary.LittleEndian.Uint16(p[2*i:]))
	}
	return ret
}

func TestMixerOnset(t *testing.T) {
	m := oto.NewMixer(sampleRate)
	m.Schedule(tracker.Dispatch{NoteID: "a", Unit: constUnit{}, Duration: 0.01, Gain: 1, Delay: 5 * time.Millisecond})
	m.Wait()
	out := read(t, m, 20)
	for i, v := range out {
		expected := int16(0)
		if i >= 5 && i < 15 {
			expected = 16383 // 0.5 * 32767, truncated
		}
		if v != expected {
			t.Fatalf("sample %v = %v, expected %v", i, v, expected)
		}
	}
	if m.Voices() != 0 {
		t.Fatalf("finished voice was not removed")
	}
}

func TestMixerSumsAndClips(t *testing.T) {
	m := oto.NewMixer(sampleRate)
	for _, id := range []string{"a", "b", "c"} {
		m.Schedule(tracker.Dispatch{NoteID: id, Unit: constUnit{}, Duration: 0.004, Gain: 1})
	}
	m.Wait()
	out := read(t, m, 4)
	for i, v := range out {
		if v != 32767 {
			t.Fatalf("sample %v = %v, expected clipping", i, v)
		}
	}
}

func TestMixerGainAndVolume(t *testing.T) {
	m := oto.NewMixer(sampleRate)
	m.SetVolume(0.5)
	m.Schedule(tracker.Dispatch{NoteID: "a", Unit: constUnit{}, Duration: 0.002, Gain: 0.5})
	m.Wait()
	out := read(t, m, 2)
	if expected := int16(4095); out[0] != expected {
		t.Fatalf("sample = %v, expected %v", out[0], expected)
	}
}

func TestMixerCancelPending(t *testing.T) {
	m := oto.NewMixer(sampleRate)
	m.Schedule(tracker.Dispatch{NoteID: "now", Unit: constUnit{}, Duration: 0.01, Gain: 1})
	m.Schedule(tracker.Dispatch{NoteID: "later", Unit: constUnit{}, Duration: 0.01, Gain: 1, Delay: 50 * time.Millisecond})
	m.Wait()
	read(t, m, 2)
	ids := m.CancelPending()
	if !slices.Equal(ids, []string{"later"}) {
		t.Fatalf("CancelPending = %v, expected [later]", ids)
	}
	if m.Voices() != 1 {
		t.Fatalf("sounding voice was cancelled")
	}
}

func TestMixerWriteAudio(t *testing.T) {
	m := oto.NewMixer(sampleRate)
	read(t, m, 3)
	if err := m.WriteAudio(tunebox.AudioBuffer{1, -1}); err != nil {
		t.Fatalf("WriteAudio failed: %v", err)
	}
	out := read(t, m, 3)
	if !slices.Equal(out, []int16{32767, -32767, 0}) {
		t.Fatalf("output = %v", out)
	}
	if m.Position() != 6*time.Millisecond {
		t.Fatalf("Position = %v", m.Position())
	}
}

func TestFloatBufferTo16BitLE(t *testing.T) {
	b := oto.FloatBufferTo16BitLE([]float32{0, 2, -2}, nil)
	if len(b) != 6 {
		t.Fatalf("length = %v", len(b))
	}
	if v := int16(binary.LittleEndian.Uint16(b[2:])); v != 32767 {
		t.Errorf("clipped high = %v", v)
	}
	if v := int16(binary.LittleEndian.Uint16(b[4:])); v != -32767 {
		t.Errorf("clipped low = %v", v)
	}
}
