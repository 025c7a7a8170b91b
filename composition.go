package tunebox

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type (
	// Composition is the aggregate root: a title, a tempo and an ordered list
	// of tracks. The order of Tracks is the display order. A composition
	// always has at least one track.
	Composition struct {
		Title        string
		BPM          int
		Tracks       []Track
		CreatedAt    time.Time
		LastModified time.Time
	}

	// Track is a named lane with one instrument assignment. Every note in
	// Notes has its Track field set to the ID of this track; the order of
	// the notes carries no meaning.
	Track struct {
		ID         string
		Name       string
		Instrument string
		Volume     float64
		Muted      bool   `yaml:",omitempty"`
		Color      string `yaml:",omitempty"`
		Notes      []Note `yaml:",omitempty"`
	}

	// Note is a single sound event. Its position and length are stored in
	// beats; seconds are derived from the tempo of the composition, so a
	// tempo change never leaves stale times behind.
	Note struct {
		ID       string
		Pitch    Pitch
		Octave   int
		Beat     float64 // start, in beats from the start of the composition
		Length   float64 // duration in beats, always > 0
		Velocity float64
		Track    string
	}

	// NoteSpec describes a note in seconds at the current tempo, the way
	// external collaborators (suggestion engines, MIDI import) hand them in.
	NoteSpec struct {
		Pitch     Pitch
		Octave    int
		StartTime float64
		Duration  float64
		Velocity  float64
	}
)

const (
	// MaxTracks is the largest number of tracks a composition may hold.
	MaxTracks = 8
	MinBPM    = 1
	MaxBPM    = 999

	DefaultBPM            = 120
	DefaultTrackVolume    = 0.8
	DefaultDrumsVolume    = 0.7
	DefaultInstrument     = "piano"
	DefaultDrumInstrument = "drums"
)

// Palette is the list of colors given to new tracks, cycling by track count.
var Palette = []string{"#3B82F6", "#EF4444", "#F59E0B", "#8B5CF6", "#10B981", "#EC4899", "#6366F1", "#F97316"}

// NewComposition returns a composition with the two default tracks, a tonal
// "Piano" and a percussive "Drums", and no notes.
func NewComposition(title string, bpm int) *Composition {
	now := time.Now()
	return &Composition{
		Title: title,
		BPM:   ClampBPM(bpm),
		Tracks: []Track{
			{ID: NewID(), Name: InstrumentTitle(DefaultInstrument), Instrument: DefaultInstrument, Volume: DefaultTrackVolume, Color: Palette[0]},
			{ID: NewID(), Name: InstrumentTitle(DefaultDrumInstrument), Instrument: DefaultDrumInstrument, Volume: DefaultDrumsVolume, Color: Palette[1]},
		},
		CreatedAt:    now,
		LastModified: now,
	}
}

// NewID returns a new opaque identifier for a note or a track.
func NewID() string {
	return uuid.NewString()
}

// ClampBPM clamps a tempo into [MinBPM, MaxBPM].
func ClampBPM(bpm int) int {
	return min(max(bpm, MinBPM), MaxBPM)
}

// SecondsPerBeat returns the length of one beat in seconds at the given
// tempo.
func SecondsPerBeat(bpm int) float64 {
	return 60 / float64(ClampBPM(bpm))
}

// StartTime returns the start of the note in seconds at the given tempo.
func (n Note) StartTime(bpm int) float64 { return n.Beat * SecondsPerBeat(bpm) }

// Duration returns the length of the note in seconds at the given tempo.
func (n Note) Duration(bpm int) float64 { return n.Length * SecondsPerBeat(bpm) }

// EndTime returns the end of the note in seconds at the given tempo.
func (n Note) EndTime(bpm int) float64 { return (n.Beat + n.Length) * SecondsPerBeat(bpm) }

// Frequency returns the equal-tempered frequency of the note.
func (n Note) Frequency() float64 { return FrequencyOf(n.Pitch, n.Octave) }

// Valid reports whether the note could be stored: a positive length, a
// non-negative start and finite numbers.
func (n Note) Valid() bool {
	return n.Length > 0 && n.Beat >= 0 && !math.IsInf(n.Beat+n.Length, 0) && !math.IsNaN(n.Beat+n.Length)
}

// ClampVelocity clamps v into (0,1]; zero or negative velocities become the
// smallest audible value instead of silencing the note.
func ClampVelocity(v float64) float64 {
	if math.IsNaN(v) || v <= 0 {
		return 0.01
	}
	return min(v, 1)
}

// ClampVolume clamps v into [0,1].
func ClampVolume(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return min(max(v, 0), 1)
}

// EffectiveGain returns the gain applied to the instrument of the track: 0
// when muted, otherwise the track volume.
func (t *Track) EffectiveGain() float64 {
	if t.Muted {
		return 0
	}
	return ClampVolume(t.Volume)
}

// NoteAt returns the index of the note with the given pitch and octave whose
// start is within tolerance beats of beat, or -1 if there is none.
func (t *Track) NoteAt(p Pitch, octave int, beat, tolerance float64) int {
	for i, n := range t.Notes {
		if n.Pitch == p && n.Octave == octave && math.Abs(n.Beat-beat) < tolerance {
			return i
		}
	}
	return -1
}

// Copy makes a deep copy of a Track.
func (t *Track) Copy() Track {
	ret := *t
	ret.Notes = slices.Clone(t.Notes)
	return ret
}

// Copy makes a deep copy of a Composition.
func (c *Composition) Copy() Composition {
	tracks := make([]Track, len(c.Tracks))
	for i := range c.Tracks {
		tracks[i] = c.Tracks[i].Copy()
	}
	ret := *c
	ret.Tracks = tracks
	return ret
}

// Track returns the track with the given id, or nil.
func (c *Composition) Track(id string) *Track {
	if i := c.trackIndex(id); i >= 0 {
		return &c.Tracks[i]
	}
	return nil
}

func (c *Composition) trackIndex(id string) int {
	return slices.IndexFunc(c.Tracks, func(t Track) bool { return t.ID == id })
}

// AddTrack appends a new empty track playing the given instrument. The name
// is derived from the track count, e.g. "Track 3".
func (c *Composition) AddTrack(instrument string) (*Track, error) {
	if len(c.Tracks) >= MaxTracks {
		return nil, ErrTooManyTracks
	}
	if instrument == "" {
		instrument = DefaultInstrument
	}
	t := Track{
		ID:         NewID(),
		Name:       fmt.Sprintf("Track %d", len(c.Tracks)+1),
		Instrument: instrument,
		Volume:     DefaultTrackVolume,
		Color:      Palette[len(c.Tracks)%len(Palette)],
	}
	c.addTrack(t)
	return &c.Tracks[len(c.Tracks)-1], nil
}

func (c *Composition) addTrack(t Track) {
	Invariant(c.trackIndex(t.ID) < 0, "track id %q already exists", t.ID)
	c.Tracks = append(c.Tracks, t)
	c.touch()
}

// RemoveTrack removes the track and all its notes. Removing the last
// remaining track fails with ErrLastTrack and leaves the composition as is.
func (c *Composition) RemoveTrack(id string) error {
	i := c.trackIndex(id)
	if i < 0 {
		return fmt.Errorf("remove track %q: %w", id, ErrTrackNotFound)
	}
	if len(c.Tracks) <= 1 {
		return ErrLastTrack
	}
	c.Tracks = slices.Delete(c.Tracks, i, i+1)
	c.touch()
	return nil
}

// UpdateTrack applies f to the track with the given id. The volume is
// clamped afterwards.
func (c *Composition) UpdateTrack(id string, f func(t *Track)) error {
	t := c.Track(id)
	if t == nil {
		return fmt.Errorf("update track %q: %w", id, ErrTrackNotFound)
	}
	f(t)
	t.Volume = ClampVolume(t.Volume)
	c.touch()
	return nil
}

// SetBPM changes the tempo. Note positions are beat based, so nothing else
// needs rewriting.
func (c *Composition) SetBPM(bpm int) {
	c.BPM = ClampBPM(bpm)
	c.touch()
}

// SetTitle changes the title.
func (c *Composition) SetTitle(title string) {
	c.Title = title
	c.touch()
}

// InsertNote adds the note to the track named by n.Track. A missing track or
// an invalid note is a programming error and panics.
func (c *Composition) InsertNote(n Note) {
	i := c.trackIndex(n.Track)
	Invariant(i >= 0, "note %q references unknown track %q", n.ID, n.Track)
	Invariant(n.Valid(), "note %q has invalid position %v or length %v", n.ID, n.Beat, n.Length)
	_, _, exists := c.FindNote(n.ID)
	Invariant(!exists, "note id %q already exists", n.ID)
	n.Velocity = ClampVelocity(n.Velocity)
	c.Tracks[i].Notes = append(c.Tracks[i].Notes, n)
	c.touch()
}

// RemoveNote removes the note with the given id from its track.
func (c *Composition) RemoveNote(id string) (Note, bool) {
	ti, ni, ok := c.FindNote(id)
	if !ok {
		return Note{}, false
	}
	n := c.Tracks[ti].Notes[ni]
	c.Tracks[ti].Notes = slices.Delete(c.Tracks[ti].Notes, ni, ni+1)
	c.touch()
	return n, true
}

// FindNote returns the track and note indices of the note with the given id.
func (c *Composition) FindNote(id string) (trackIndex, noteIndex int, ok bool) {
	for ti := range c.Tracks {
		for ni := range c.Tracks[ti].Notes {
			if c.Tracks[ti].Notes[ni].ID == id {
				return ti, ni, true
			}
		}
	}
	return -1, -1, false
}

// NoteCount returns the number of notes over all tracks.
func (c *Composition) NoteCount() (ret int) {
	for _, t := range c.Tracks {
		ret += len(t.Notes)
	}
	return
}

// MaxEndTime returns the latest note end in seconds over all tracks, or 0 if
// the composition has no notes.
func (c *Composition) MaxEndTime() float64 {
	ret := 0.0
	for _, t := range c.Tracks {
		for _, n := range t.Notes {
			ret = max(ret, n.EndTime(c.BPM))
		}
	}
	return ret
}

// Validate checks the structural invariants: at least one track, unique
// track and note ids, every note pointing back to its own track with a
// positive length.
func (c *Composition) Validate() error {
	if len(c.Tracks) == 0 {
		return fmt.Errorf("composition has no tracks: %w", ErrLastTrack)
	}
	trackIDs := make(map[string]bool, len(c.Tracks))
	noteIDs := make(map[string]bool)
	for _, t := range c.Tracks {
		if t.ID == "" || trackIDs[t.ID] {
			return fmt.Errorf("duplicate or empty track id %q", t.ID)
		}
		trackIDs[t.ID] = true
		for _, n := range t.Notes {
			if n.Track != t.ID {
				return fmt.Errorf("note %q is stored in track %q but references %q", n.ID, t.ID, n.Track)
			}
			if n.ID == "" || noteIDs[n.ID] {
				return fmt.Errorf("duplicate or empty note id %q", n.ID)
			}
			noteIDs[n.ID] = true
			if !n.Valid() {
				return fmt.Errorf("note %q: %w", n.ID, ErrInvalidNote)
			}
		}
	}
	return nil
}

// CheckSpacing reports notes of the same track, pitch and octave whose
// starts are closer than tolerance beats.
func (c *Composition) CheckSpacing(tolerance float64) error {
	for _, t := range c.Tracks {
		notes := slices.Clone(t.Notes)
		slices.SortFunc(notes, func(a, b Note) int {
			if a.Octave != b.Octave {
				return a.Octave - b.Octave
			}
			if a.Pitch != b.Pitch {
				return int(a.Pitch - b.Pitch)
			}
			return cmp.Compare(a.Beat, b.Beat)
		})
		for i := 1; i < len(notes); i++ {
			a, b := notes[i-1], notes[i]
			if a.Pitch == b.Pitch && a.Octave == b.Octave && b.Beat-a.Beat < tolerance {
				return fmt.Errorf("notes %q and %q on track %q: %w", a.ID, b.ID, t.Name, ErrDuplicateNote)
			}
		}
	}
	return nil
}

// InstrumentTitle turns an instrument id into a display name, e.g.
// "synthesizer" becomes "Synthesizer".
func InstrumentTitle(instrument string) string {
	return cases.Title(language.English).String(instrument)
}

func (c *Composition) touch() {
	c.LastModified = time.Now()
}
