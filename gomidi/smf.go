// Package gomidi converts compositions to and from Standard MIDI Files.
package gomidi

import (
	"cmp"
	"fmt"
	"io"
	"math"
	"slices"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/wizzlekids/tunebox"
)

type (
	// Imported is the content of a MIDI file in the form the editor takes it:
	// notes in seconds at the tempo of the file.
	Imported struct {
		BPM    int
		Tracks []ImportedTrack
	}

	ImportedTrack struct {
		Channel uint8
		Notes   []tunebox.NoteSpec
	}

	event struct {
		tick uint32
		on   bool
		key  uint8
		vel  uint8
	}
)

const (
	// Resolution is the number of ticks per quarter note in exported files.
	Resolution = 960
	// DrumChannel is MIDI channel 10, zero based.
	DrumChannel = 9
)

// Export writes the composition as a type 1 MIDI file: a tempo track and
// one track per composition track. Drum tracks go to channel 10, the others
// get channels in track order. Muted tracks are exported too.
func Export(w io.Writer, c *tunebox.Composition) error {
	s := smf.New()
	s.TimeFormat = smf.MetricTicks(Resolution)
	var tempo smf.Track
	tempo.Add(0, smf.MetaMeter(4, 4))
	tempo.Add(0, smf.MetaTempo(float64(c.BPM)))
	tempo.Close(0)
	if err := s.Add(tempo); err != nil {
		return fmt.Errorf("error adding tempo track: %w", err)
	}
	next := uint8(0)
	for _, t := range c.Tracks {
		ch := uint8(DrumChannel)
		if t.Instrument != tunebox.DefaultDrumInstrument {
			if next == DrumChannel {
				next++
			}
			ch = next % 16
			next++
		}
		if err := s.Add(exportTrack(t, ch)); err != nil {
			return fmt.Errorf("error adding track %q: %w", t.Name, err)
		}
	}
	if _, err := s.WriteTo(w); err != nil {
		return fmt.Errorf("error writing MIDI file: %w", err)
	}
	return nil
}

func exportTrack(t tunebox.Track, ch uint8) smf.Track {
	events := make([]event, 0, 2*len(t.Notes))
	for _, n := range t.Notes {
		start := toTicks(n.Beat)
		end := max(toTicks(n.Beat+n.Length), start+1)
		key := tunebox.MIDIKey(n.Pitch, n.Octave)
		vel := uint8(max(1, math.Round(tunebox.ClampVelocity(n.Velocity)*127)))
		events = append(events, event{tick: start, on: true, key: key, vel: vel}, event{tick: end, key: key})
	}
	// note offs first, so a note ending where the next one starts is not cut
	slices.SortStableFunc(events, func(a, b event) int {
		if c := cmp.Compare(a.tick, b.tick); c != 0 {
			return c
		}
		if a.on == b.on {
			return 0
		}
		if a.on {
			return 1
		}
		return -1
	})
	var tr smf.Track
	tr.Add(0, smf.MetaTrackSequenceName(t.Name))
	tr.Add(0, smf.MetaInstrument(t.Instrument))
	prev := uint32(0)
	for _, e := range events {
		if e.on {
			tr.Add(e.tick-prev, midi.NoteOn(ch, e.key, e.vel))
		} else {
			tr.Add(e.tick-prev, midi.NoteOff(ch, e.key))
		}
		prev = e.tick
	}
	tr.Close(0)
	return tr
}

func toTicks(beat float64) uint32 {
	return uint32(math.Round(beat * Resolution))
}

// Import reads a MIDI file. A MIDI track with notes on several channels
// becomes one imported track per channel, in the order the channels first
// complete a note. Notes still sounding at the end of a track are dropped;
// tracks without notes are skipped. The tempo is the first tempo
// of the file, 120 bpm if it has none.
func Import(r io.Reader) (Imported, error) {
	s, err := smf.ReadFrom(r)
	if err != nil {
		return Imported{}, fmt.Errorf("error reading MIDI file: %w", err)
	}
	mt, ok := s.TimeFormat.(smf.MetricTicks)
	if !ok || mt == 0 {
		return Imported{}, fmt.Errorf("unsupported MIDI time format %v", s.TimeFormat)
	}
	ret := Imported{BPM: tunebox.DefaultBPM}
	if changes := s.TempoChanges(); len(changes) > 0 {
		ret.BPM = tunebox.ClampBPM(int(math.Round(changes[0].BPM)))
	}
	secondsPerTick := tunebox.SecondsPerBeat(ret.BPM) / float64(mt)
	for _, tr := range s.Tracks {
		type started struct {
			tick uint32
			vel  uint8
		}
		open := map[[2]uint8]started{}
		var channels [16]*ImportedTrack
		var order []uint8
		tick := uint32(0)
		for _, ev := range tr {
			tick += ev.Delta
			msg := midi.Message(ev.Message)
			var ch, key, vel uint8
			switch {
			case msg.GetNoteStart(&ch, &key, &vel):
				open[[2]uint8{ch, key}] = started{tick: tick, vel: vel}
			case msg.GetNoteEnd(&ch, &key):
				st, ok := open[[2]uint8{ch, key}]
				if !ok || tick <= st.tick {
					continue
				}
				delete(open, [2]uint8{ch, key})
				p, octave := tunebox.FromMIDIKey(key)
				it := channels[ch&0x0f]
				if it == nil {
					it = &ImportedTrack{Channel: ch}
					channels[ch&0x0f] = it
					order = append(order, ch)
				}
				it.Notes = append(it.Notes, tunebox.NoteSpec{
					Pitch:     p,
					Octave:    octave,
					StartTime: float64(st.tick) * secondsPerTick,
					Duration:  float64(tick-st.tick) * secondsPerTick,
					Velocity:  float64(st.vel) / 127,
				})
			}
		}
		for _, ch := range order {
			ret.Tracks = append(ret.Tracks, *channels[ch&0x0f])
		}
	}
	return ret, nil
}

// Drums reports whether the track was played on the drum channel.
func (t ImportedTrack) Drums() bool {
	return t.Channel == DrumChannel
}
