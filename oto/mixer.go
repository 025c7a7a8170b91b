package oto

import (
	"sync"
	"time"

	"github.com/viterin/vek/vek32"
	"github.com/wizzlekids/tunebox"
	"github.com/wizzlekids/tunebox/synth"
	"github.com/wizzlekids/tunebox/tracker"
)

type (
	// Mixer sums scheduled voices into one mono 16-bit stream. It is an
	// io.Reader for the audio device and a tracker.Backend for the
	// transport. Voices are rendered on their own goroutines; a voice whose
	// rendering finishes after its onset has passed loses the samples that
	// were already played.
	Mixer struct {
		mu         sync.Mutex
		sampleRate int
		pos        int64 // frames read so far
		voices     []*voice
		volume     float32
		tmp        []float32
		rendering  sync.WaitGroup
	}

	voice struct {
		id    string
		start int64
		buf   tunebox.AudioBuffer
		ready bool
	}
)

func NewMixer(sampleRate int) *Mixer {
	return &Mixer{sampleRate: sampleRate, volume: 1}
}

// SetVolume sets the master volume, clamped to [0,1].
func (m *Mixer) SetVolume(v float64) {
	m.mu.Lock()
	m.volume = float32(tunebox.ClampVolume(v))
	m.mu.Unlock()
}

// Schedule implements tracker.Backend. The onset is fixed in samples when
// the dispatch arrives; rendering happens in the background.
func (m *Mixer) Schedule(d tracker.Dispatch) {
	m.mu.Lock()
	v := &voice{id: d.NoteID, start: m.pos + int64(tunebox.SamplesIn(d.Delay.Seconds(), m.sampleRate))}
	m.voices = append(m.voices, v)
	m.mu.Unlock()
	m.rendering.Add(1)
	go func() {
		defer m.rendering.Done()
		buf := d.Unit.Render(d.Frequency, d.Duration, d.Velocity)
		synth.ApplyGain(buf, d.Gain)
		m.mu.Lock()
		v.buf = buf
		v.ready = true
		m.mu.Unlock()
	}()
}

// CancelPending implements tracker.Backend: it drops the voices whose onset
// has not been reached and returns their note ids.
func (m *Mixer) CancelPending() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	kept := m.voices[:0]
	for _, v := range m.voices {
		if v.start >= m.pos {
			ids = append(ids, v.id)
			continue
		}
		kept = append(kept, v)
	}
	clear(m.voices[len(kept):])
	m.voices = kept
	return ids
}

// WriteAudio implements tunebox.AudioSink: the buffer starts sounding at the
// current position.
func (m *Mixer) WriteAudio(buffer tunebox.AudioBuffer) error {
	m.mu.Lock()
	m.voices = append(m.voices, &voice{start: m.pos, buf: buffer, ready: true})
	m.mu.Unlock()
	return nil
}

func (m *Mixer) Close() error {
	m.mu.Lock()
	m.voices = nil
	m.mu.Unlock()
	return nil
}

// Wait blocks until every scheduled voice has been rendered.
func (m *Mixer) Wait() {
	m.rendering.Wait()
}

// Voices returns the number of voices scheduled or sounding.
func (m *Mixer) Voices() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.voices)
}

// Position returns the amount of audio read so far.
func (m *Mixer) Position() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return tunebox.DurationOf(int(m.pos), m.sampleRate)
}

// Read implements io.Reader.
func (m *Mixer) Read(p []byte) (int, error) {
	frames := len(p) / 2
	m.mu.Lock()
	if cap(m.tmp) < frames {
		m.tmp = make([]float32, frames)
	}
	out := m.tmp[:frames]
	clear(out)
	end := m.pos + int64(frames)
	kept := m.voices[:0]
	for _, v := range m.voices {
		if !v.ready {
			kept = append(kept, v)
			continue
		}
		vend := v.start + int64(len(v.buf))
		if a, b := max(v.start, m.pos), min(vend, end); a < b {
			vek32.Add_Inplace(out[a-m.pos:b-m.pos], v.buf[a-v.start:b-v.start])
		}
		if vend > end {
			kept = append(kept, v)
		}
	}
	clear(m.voices[len(kept):])
	m.voices = kept
	if m.volume != 1 {
		vek32.MulNumber_Inplace(out, m.volume)
	}
	m.pos = end
	m.mu.Unlock()
	FloatBufferTo16BitLE(out, p[:0])
	return frames * 2, nil
}
