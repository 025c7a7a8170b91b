package tracker

import (
	"fmt"
	"math"
	"slices"
	"sync"

	"github.com/wizzlekids/tunebox"
)

type (
	// Gate serializes access to a composition. Transport is the Gate of the
	// running application; Offline serves tools that have no playback.
	Gate interface {
		Edit(f func(*tunebox.Composition) error) error
		View(f func(*tunebox.Composition))
	}

	// Editor applies user edits to the composition: toggling notes on the
	// grid, selecting and deleting notes, batch inserts, track settings and
	// undo. Every change goes through the Gate, so nothing is edited while
	// the transport plays.
	Editor struct {
		gate Gate
		cfg  Config

		mu        sync.Mutex
		active    string
		selection []string
		history   History
	}

	// NoteChange reports what PlaceOrToggle did.
	NoteChange struct {
		Kind ChangeKind
		Note tunebox.Note
	}

	ChangeKind int

	// BatchResult reports the outcome of ApplyExternalNoteBatch.
	BatchResult struct {
		Added      []string // ids of the inserted notes
		Rejected   int      // invalid specs
		Duplicates int      // specs matching an existing note
	}

	// Offline is a Gate without playback: edits are always allowed.
	Offline struct {
		mu   sync.Mutex
		Comp *tunebox.Composition
	}
)

const (
	NoteUnchanged ChangeKind = iota
	NoteAdded
	NoteRemoved
)

func (k ChangeKind) String() string {
	switch k {
	case NoteAdded:
		return "added"
	case NoteRemoved:
		return "removed"
	}
	return "unchanged"
}

func (o *Offline) Edit(f func(*tunebox.Composition) error) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return f(o.Comp)
}

func (o *Offline) View(f func(*tunebox.Composition)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	f(o.Comp)
}

// NewEditor returns an editor with the first track of the composition
// active.
func NewEditor(gate Gate, cfg Config) *Editor {
	e := &Editor{gate: gate, cfg: cfg.Normalize()}
	gate.View(func(c *tunebox.Composition) {
		if len(c.Tracks) > 0 {
			e.active = c.Tracks[0].ID
		}
	})
	return e
}

// edit runs f through the gate with the editor state locked.
func (e *Editor) edit(f func(c *tunebox.Composition) error) error {
	return e.gate.Edit(func(c *tunebox.Composition) error {
		e.mu.Lock()
		defer e.mu.Unlock()
		return f(c)
	})
}

// SelectTrack makes the track the target of grid edits. The selection is
// cleared.
func (e *Editor) SelectTrack(id string) error {
	var err error
	e.gate.View(func(c *tunebox.Composition) {
		e.mu.Lock()
		defer e.mu.Unlock()
		if c.Track(id) == nil {
			err = fmt.Errorf("select track %q: %w", id, tunebox.ErrTrackNotFound)
			return
		}
		if e.active != id {
			e.selection = nil
		}
		e.active = id
	})
	return err
}

// ActiveTrack returns the id of the active track, or "" if there is none.
func (e *Editor) ActiveTrack() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

// PlaceOrToggle toggles a note on the active track at grid point (x, y).
func (e *Editor) PlaceOrToggle(x, y float64) (NoteChange, error) {
	id := e.ActiveTrack()
	if id == "" {
		return NoteChange{}, tunebox.ErrNoTrackSelected
	}
	return e.PlaceOrToggleOn(id, x, y)
}

// PlaceOrToggleOn toggles a note on the given track at grid point (x, y).
// If the track has a note of the same pitch starting within the snap
// tolerance of the cell, that note is removed; otherwise a note one
// subdivision long is added. Points outside the pitch rows change nothing.
func (e *Editor) PlaceOrToggleOn(trackID string, x, y float64) (NoteChange, error) {
	var change NoteChange
	err := e.edit(func(c *tunebox.Composition) error {
		track := c.Track(trackID)
		if track == nil {
			return fmt.Errorf("place note on track %q: %w", trackID, tunebox.ErrTrackNotFound)
		}
		m := e.cfg.Mapper(c.BPM)
		cell, ok := m.Cell(x, y)
		if !ok {
			return nil
		}
		if i := track.NoteAt(cell.Pitch, cell.Octave, cell.Beat, e.cfg.ToggleBeats(c.BPM)); i >= 0 {
			e.history.Save(c)
			n, _ := c.RemoveNote(track.Notes[i].ID)
			e.deselect(n.ID)
			change = NoteChange{Kind: NoteRemoved, Note: n}
			return nil
		}
		n := tunebox.Note{
			ID:       tunebox.NewID(),
			Pitch:    cell.Pitch,
			Octave:   cell.Octave,
			Beat:     cell.Beat,
			Length:   m.SubdivisionBeats(),
			Velocity: e.cfg.DefaultVelocity,
			Track:    trackID,
		}
		tunebox.Invariant(n.Length > 0, "editor produced note length %v", n.Length)
		e.history.Save(c)
		c.InsertNote(n)
		change = NoteChange{Kind: NoteAdded, Note: n}
		return nil
	})
	return change, err
}

// Select selects a note of the active track. A plain select replaces the
// selection; an additive one toggles the note in it. Notes of other tracks
// are not selectable.
func (e *Editor) Select(noteID string, additive bool) bool {
	ok := false
	e.gate.View(func(c *tunebox.Composition) {
		e.mu.Lock()
		defer e.mu.Unlock()
		ti, _, found := c.FindNote(noteID)
		if !found || c.Tracks[ti].ID != e.active {
			return
		}
		ok = true
		if !additive {
			e.selection = []string{noteID}
			return
		}
		if i := slices.Index(e.selection, noteID); i >= 0 {
			e.selection = slices.Delete(e.selection, i, i+1)
			return
		}
		e.selection = append(e.selection, noteID)
	})
	return ok
}

func (e *Editor) Selection() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.selection)
}

func (e *Editor) IsSelected(noteID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Contains(e.selection, noteID)
}

func (e *Editor) ClearSelection() {
	e.mu.Lock()
	e.selection = nil
	e.mu.Unlock()
}

func (e *Editor) deselect(id string) {
	if i := slices.Index(e.selection, id); i >= 0 {
		e.selection = slices.Delete(e.selection, i, i+1)
	}
}

// DeleteSelected deletes the selected notes.
func (e *Editor) DeleteSelected() (int, error) {
	return e.DeleteNotes(e.Selection())
}

// DeleteNotes removes the notes from their tracks and clears the selection.
// Unknown ids are ignored; the number of removed notes is returned.
func (e *Editor) DeleteNotes(ids []string) (int, error) {
	removed := 0
	err := e.edit(func(c *tunebox.Composition) error {
		saved := false
		for _, id := range ids {
			if _, _, ok := c.FindNote(id); !ok {
				continue
			}
			if !saved {
				e.history.Save(c)
				saved = true
			}
			c.RemoveNote(id)
			removed++
		}
		e.selection = nil
		return nil
	})
	return removed, err
}

// ApplyExternalNoteBatch inserts notes given in seconds at the current
// tempo, e.g. from a suggestion engine or a MIDI file. Specs with a
// non-positive duration or a negative start are rejected, specs matching an
// existing note of the track are skipped as duplicates, the rest are added.
// A zero velocity means the default velocity.
func (e *Editor) ApplyExternalNoteBatch(trackID string, specs []tunebox.NoteSpec) (BatchResult, error) {
	var res BatchResult
	err := e.edit(func(c *tunebox.Composition) error {
		track := c.Track(trackID)
		if track == nil {
			return fmt.Errorf("apply note batch to track %q: %w", trackID, tunebox.ErrTrackNotFound)
		}
		spb := tunebox.SecondsPerBeat(c.BPM)
		tolerance := e.cfg.SnapBeats(c.BPM)
		saved := false
		for _, s := range specs {
			if !validSpec(s) {
				res.Rejected++
				continue
			}
			p := s.Pitch.Normalize()
			beat := s.StartTime / spb
			if track.NoteAt(p, s.Octave, beat, tolerance) >= 0 {
				res.Duplicates++
				continue
			}
			velocity := s.Velocity
			if velocity == 0 {
				velocity = e.cfg.DefaultVelocity
			}
			if !saved {
				e.history.Save(c)
				saved = true
			}
			n := tunebox.Note{
				ID:       tunebox.NewID(),
				Pitch:    p,
				Octave:   s.Octave,
				Beat:     beat,
				Length:   s.Duration / spb,
				Velocity: velocity,
				Track:    trackID,
			}
			c.InsertNote(n)
			res.Added = append(res.Added, n.ID)
		}
		return nil
	})
	return res, err
}

func validSpec(s tunebox.NoteSpec) bool {
	finite := func(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
	return finite(s.StartTime) && finite(s.Duration) && s.Duration > 0 && s.StartTime >= 0
}

// AddTrack appends a track and makes it active. It returns the new track id.
func (e *Editor) AddTrack(instrument string) (string, error) {
	var id string
	err := e.edit(func(c *tunebox.Composition) error {
		if len(c.Tracks) >= tunebox.MaxTracks {
			return tunebox.ErrTooManyTracks
		}
		e.history.Save(c)
		t, err := c.AddTrack(instrument)
		if err != nil {
			return err
		}
		id = t.ID
		e.active = id
		e.selection = nil
		return nil
	})
	return id, err
}

// RemoveTrack removes a track with its notes. If it was active, the first
// remaining track becomes active.
func (e *Editor) RemoveTrack(id string) error {
	return e.edit(func(c *tunebox.Composition) error {
		if c.Track(id) == nil {
			return fmt.Errorf("remove track %q: %w", id, tunebox.ErrTrackNotFound)
		}
		if len(c.Tracks) <= 1 {
			return tunebox.ErrLastTrack
		}
		e.history.Save(c)
		if err := c.RemoveTrack(id); err != nil {
			return err
		}
		if e.active == id {
			e.active = c.Tracks[0].ID
			e.selection = nil
		}
		return nil
	})
}

// SetBPM changes the tempo. Notes keep their beat positions.
func (e *Editor) SetBPM(bpm int) error {
	return e.edit(func(c *tunebox.Composition) error {
		if tunebox.ClampBPM(bpm) == c.BPM {
			return nil
		}
		e.history.Save(c)
		c.SetBPM(bpm)
		return nil
	})
}

func (e *Editor) SetTitle(title string) error {
	return e.edit(func(c *tunebox.Composition) error {
		e.history.Save(c)
		c.SetTitle(title)
		return nil
	})
}

func (e *Editor) SetTrackVolume(id string, volume float64) error {
	return e.editTrack(id, func(t *tunebox.Track) { t.Volume = tunebox.ClampVolume(volume) })
}

func (e *Editor) SetTrackMuted(id string, muted bool) error {
	return e.editTrack(id, func(t *tunebox.Track) { t.Muted = muted })
}

func (e *Editor) SetTrackInstrument(id, instrument string) error {
	return e.editTrack(id, func(t *tunebox.Track) { t.Instrument = instrument })
}

func (e *Editor) RenameTrack(id, name string) error {
	return e.editTrack(id, func(t *tunebox.Track) { t.Name = name })
}

func (e *Editor) editTrack(id string, f func(t *tunebox.Track)) error {
	return e.edit(func(c *tunebox.Composition) error {
		if c.Track(id) == nil {
			return fmt.Errorf("edit track %q: %w", id, tunebox.ErrTrackNotFound)
		}
		e.history.Save(c)
		return c.UpdateTrack(id, f)
	})
}

// Undo reverts the last change. It reports false if there was nothing to
// undo.
func (e *Editor) Undo() (bool, error) {
	ok := false
	err := e.edit(func(c *tunebox.Composition) error {
		ok = e.history.Undo(c)
		e.fixActive(c)
		return nil
	})
	return ok, err
}

func (e *Editor) Redo() (bool, error) {
	ok := false
	err := e.edit(func(c *tunebox.Composition) error {
		ok = e.history.Redo(c)
		e.fixActive(c)
		return nil
	})
	return ok, err
}

// fixActive keeps the active track and the selection pointing at existing
// objects after the composition was replaced wholesale.
func (e *Editor) fixActive(c *tunebox.Composition) {
	if c.Track(e.active) == nil && len(c.Tracks) > 0 {
		e.active = c.Tracks[0].ID
	}
	e.selection = slices.DeleteFunc(e.selection, func(id string) bool {
		ti, _, ok := c.FindNote(id)
		return !ok || c.Tracks[ti].ID != e.active
	})
}
