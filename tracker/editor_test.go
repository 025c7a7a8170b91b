package tracker_test

import (
	"errors"
	"math"
	"testing"

	"github.com/wizzlekids/tunebox"
	"github.com/wizzlekids/tunebox/grid"
	"github.com/wizzlekids/tunebox/tracker"
)

// cellPoint returns a point inside the grid cell of the given pitch and
// column with the default layout.
func cellPoint(t *testing.T, p tunebox.Pitch, octave, col int) (float64, float64) {
	t.Helper()
	row, ok := grid.Default(120).PitchToRow(p, octave)
	if !ok {
		t.Fatalf("%v%v is not on the grid", p, octave)
	}
	return float64(col)*grid.DefaultCellWidth + 13, float64(row)*grid.DefaultCellHeight + 7
}

func newEditor(c *tunebox.Composition) *tracker.Editor {
	return tracker.NewEditor(&tracker.Offline{Comp: c}, tracker.DefaultConfig())
}

func TestToggleIdempotence(t *testing.T) {
	c := tunebox.NewComposition("", 120)
	e := newEditor(c)
	x, y := cellPoint(t, tunebox.E, 4, 6)
	ch, err := e.PlaceOrToggle(x, y)
	if err != nil {
		t.Fatalf("PlaceOrToggle failed: %v", err)
	}
	if ch.Kind != tracker.NoteAdded {
		t.Fatalf("first toggle = %v, expected added", ch.Kind)
	}
	n := ch.Note
	if n.Pitch != tunebox.E || n.Octave != 4 || n.Beat != 1.5 || n.Length != 0.25 || n.Velocity != 0.8 {
		t.Fatalf("unexpected note %+v", n)
	}
	if n.Track != c.Tracks[0].ID {
		t.Fatalf("note placed on track %v, expected the active track", n.Track)
	}
	// a click elsewhere in the same cell removes the note again
	ch, err = e.PlaceOrToggle(x+20, y+10)
	if err != nil || ch.Kind != tracker.NoteRemoved || ch.Note.ID != n.ID {
		t.Fatalf("second toggle = %+v, %v", ch, err)
	}
	if c.NoteCount() != 0 {
		t.Fatalf("composition has %v notes after toggling twice", c.NoteCount())
	}
}

func TestToggleAdjacentCells(t *testing.T) {
	for _, bpm := range []int{60, 120, 240, 600} {
		c := tunebox.NewComposition("", bpm)
		e := newEditor(c)
		for col := range 8 {
			x, y := cellPoint(t, tunebox.A, 3, col)
			if ch, _ := e.PlaceOrToggle(x, y); ch.Kind != tracker.NoteAdded {
				t.Fatalf("bpm %v column %v: %v, expected added", bpm, col, ch.Kind)
			}
		}
		if c.NoteCount() != 8 {
			t.Fatalf("bpm %v: %v notes, expected 8", bpm, c.NoteCount())
		}
	}
}

func TestToggleOutsideGrid(t *testing.T) {
	c := tunebox.NewComposition("", 120)
	e := newEditor(c)
	ch, err := e.PlaceOrToggle(10, 1e6)
	if err != nil || ch.Kind != tracker.NoteUnchanged {
		t.Fatalf("click below the grid = %+v, %v", ch, err)
	}
	if c.NoteCount() != 0 {
		t.Fatal("click outside the grid added a note")
	}
}

func TestNoTrackSelected(t *testing.T) {
	e := newEditor(&tunebox.Composition{BPM: 120})
	if _, err := e.PlaceOrToggle(0, 0); !errors.Is(err, tunebox.ErrNoTrackSelected) {
		t.Fatalf("expected ErrNoTrackSelected, got %v", err)
	}
}

func TestEditorRejectedWhilePlaying(t *testing.T) {
	c := tunebox.NewComposition("", 120)
	tr, _, _ := newTransport(t, c)
	e := tracker.NewEditor(tr, tracker.DefaultConfig())
	tr.Play()
	x, y := cellPoint(t, tunebox.C, 4, 0)
	if _, err := e.PlaceOrToggle(x, y); !errors.Is(err, tracker.ErrTransportRunning) {
		t.Fatalf("expected ErrTransportRunning, got %v", err)
	}
	if _, err := e.ApplyExternalNoteBatch(c.Tracks[0].ID, []tunebox.NoteSpec{{Pitch: tunebox.C, Octave: 4, Duration: 1}}); !errors.Is(err, tracker.ErrTransportRunning) {
		t.Fatalf("expected ErrTransportRunning from the batch, got %v", err)
	}
	tr.Pause()
	if ch, err := e.PlaceOrToggle(x, y); err != nil || ch.Kind != tracker.NoteAdded {
		t.Fatalf("edit while paused = %+v, %v", ch, err)
	}
	if comp := tr.Composition(); comp.NoteCount() != 1 {
		t.Fatalf("expected 1 note, got %v", comp.NoteCount())
	}
}

func TestApplyExternalNoteBatch(t *testing.T) {
	c := tunebox.NewComposition("", 120)
	e := newEditor(c)
	id := c.Tracks[0].ID
	specs := []tunebox.NoteSpec{
		{Pitch: tunebox.C, Octave: 4, StartTime: 0, Duration: 0.5, Velocity: 0.9},
		{Pitch: tunebox.E, Octave: 4, StartTime: 0.5, Duration: 0.5},
		{Pitch: tunebox.C, Octave: 4, StartTime: 0.02, Duration: 0.5},  // duplicate within tolerance
		{Pitch: tunebox.G, Octave: 4, StartTime: 1, Duration: 0},       // no duration
		{Pitch: tunebox.G, Octave: 4, StartTime: -1, Duration: 1},      // before the start
		{Pitch: tunebox.G, Octave: 4, StartTime: math.NaN(), Duration: 1},
		{Pitch: tunebox.G, Octave: 4, StartTime: 1, Duration: 0.25, Velocity: 7},
	}
	res, err := e.ApplyExternalNoteBatch(id, specs)
	if err != nil {
		t.Fatalf("ApplyExternalNoteBatch failed: %v", err)
	}
	if len(res.Added) != 3 || res.Rejected != 3 || res.Duplicates != 1 {
		t.Fatalf("result = %+v", res)
	}
	for _, n := range c.Tracks[0].Notes {
		if !(n.Velocity > 0 && n.Velocity <= 1) {
			t.Errorf("note velocity %v", n.Velocity)
		}
		if n.Pitch == tunebox.E && (n.Beat != 1 || n.Length != 1 || n.Velocity != 0.8) {
			t.Errorf("E note = %+v", n)
		}
	}
	// applying the same batch again only finds duplicates
	res, err = e.ApplyExternalNoteBatch(id, specs)
	if err != nil || len(res.Added) != 0 || res.Duplicates != 4 {
		t.Fatalf("second batch = %+v, %v", res, err)
	}
	if _, err := e.ApplyExternalNoteBatch("nope", specs); !errors.Is(err, tunebox.ErrTrackNotFound) {
		t.Fatalf("expected ErrTrackNotFound, got %v", err)
	}
}

func TestBatchDuplicatesUseSnapTolerance(t *testing.T) {
	// 0.08 s is less than the snap tolerance but more than half a
	// subdivision at 120 bpm, so only a grid toggle would tell them apart
	c := tunebox.NewComposition("", 120)
	e := newEditor(c)
	res, err := e.ApplyExternalNoteBatch(c.Tracks[0].ID, []tunebox.NoteSpec{
		{Pitch: tunebox.C, Octave: 4, StartTime: 0, Duration: 0.5},
		{Pitch: tunebox.C, Octave: 4, StartTime: 0.08, Duration: 0.5},
		{Pitch: tunebox.C, Octave: 4, StartTime: 0.1, Duration: 0.5},
	})
	if err != nil {
		t.Fatalf("ApplyExternalNoteBatch failed: %v", err)
	}
	if len(res.Added) != 2 || res.Duplicates != 1 {
		t.Fatalf("result = %+v, expected 2 added and 1 duplicate", res)
	}
}

func TestSelection(t *testing.T) {
	c := tunebox.NewComposition("", 120)
	e := newEditor(c)
	piano, drums := c.Tracks[0].ID, c.Tracks[1].ID
	res, _ := e.ApplyExternalNoteBatch(piano, []tunebox.NoteSpec{
		{Pitch: tunebox.C, Octave: 4, StartTime: 0, Duration: 0.5},
		{Pitch: tunebox.D, Octave: 4, StartTime: 0, Duration: 0.5},
		{Pitch: tunebox.E, Octave: 4, StartTime: 0, Duration: 0.5},
	})
	other, _ := e.ApplyExternalNoteBatch(drums, []tunebox.NoteSpec{{Pitch: tunebox.C, Octave: 2, Duration: 0.1}})
	a, b, d := res.Added[0], res.Added[1], res.Added[2]
	if !e.Select(a, false) || !e.Select(b, true) {
		t.Fatal("could not select notes of the active track")
	}
	if e.Select(other.Added[0], true) {
		t.Fatal("selected a note of another track")
	}
	if sel := e.Selection(); len(sel) != 2 || !e.IsSelected(a) || !e.IsSelected(b) {
		t.Fatalf("selection = %v", sel)
	}
	e.Select(a, true)
	if e.IsSelected(a) {
		t.Fatal("additive select did not toggle")
	}
	e.Select(d, false)
	if sel := e.Selection(); len(sel) != 1 || sel[0] != d {
		t.Fatalf("plain select did not replace the selection: %v", sel)
	}
	n, err := e.DeleteSelected()
	if err != nil || n != 1 {
		t.Fatalf("DeleteSelected = %v, %v", n, err)
	}
	if len(e.Selection()) != 0 {
		t.Fatal("selection not cleared after delete")
	}
	if c.NoteCount() != 3 {
		t.Fatalf("%v notes left, expected 3", c.NoteCount())
	}
	if err := e.SelectTrack(drums); err != nil {
		t.Fatalf("SelectTrack failed: %v", err)
	}
	if !e.Select(other.Added[0], false) {
		t.Fatal("could not select a note after switching tracks")
	}
}

func TestDeleteNotes(t *testing.T) {
	c := tunebox.NewComposition("", 120)
	e := newEditor(c)
	a, _ := e.ApplyExternalNoteBatch(c.Tracks[0].ID, []tunebox.NoteSpec{{Pitch: tunebox.C, Octave: 4, Duration: 1}})
	b, _ := e.ApplyExternalNoteBatch(c.Tracks[1].ID, []tunebox.NoteSpec{{Pitch: tunebox.C, Octave: 2, Duration: 1}})
	n, err := e.DeleteNotes([]string{a.Added[0], b.Added[0], "missing"})
	if err != nil || n != 2 {
		t.Fatalf("DeleteNotes = %v, %v", n, err)
	}
	if c.NoteCount() != 0 {
		t.Fatal("notes left after delete")
	}
}

func TestEditorTracks(t *testing.T) {
	c := tunebox.NewComposition("", 120)
	e := newEditor(c)
	id, err := e.AddTrack("violin")
	if err != nil {
		t.Fatalf("AddTrack failed: %v", err)
	}
	if e.ActiveTrack() != id {
		t.Fatal("new track is not active")
	}
	if err := e.RemoveTrack(id); err != nil {
		t.Fatalf("RemoveTrack failed: %v", err)
	}
	if e.ActiveTrack() != c.Tracks[0].ID {
		t.Fatal("active track not reset after removal")
	}
	if err := e.RemoveTrack(c.Tracks[1].ID); err != nil {
		t.Fatalf("RemoveTrack failed: %v", err)
	}
	if err := e.RemoveTrack(c.Tracks[0].ID); !errors.Is(err, tunebox.ErrLastTrack) {
		t.Fatalf("expected ErrLastTrack, got %v", err)
	}
	if len(c.Tracks) != 1 {
		t.Fatal("last track removed")
	}
	first := c.Tracks[0].ID
	if err := e.SetTrackVolume(first, 2); err != nil || c.Tracks[0].Volume != 1 {
		t.Fatalf("SetTrackVolume: %v, volume %v", err, c.Tracks[0].Volume)
	}
	if err := e.SetTrackMuted(first, true); err != nil || !c.Tracks[0].Muted {
		t.Fatalf("SetTrackMuted: %v", err)
	}
	if err := e.SetTrackInstrument(first, "trumpet"); err != nil || c.Tracks[0].Instrument != "trumpet" {
		t.Fatalf("SetTrackInstrument: %v", err)
	}
	if err := e.RenameTrack(first, "Lead"); err != nil || c.Tracks[0].Name != "Lead" {
		t.Fatalf("RenameTrack: %v", err)
	}
	if err := e.RenameTrack("nope", "x"); !errors.Is(err, tunebox.ErrTrackNotFound) {
		t.Fatalf("expected ErrTrackNotFound, got %v", err)
	}
	for len(c.Tracks) < tunebox.MaxTracks {
		if _, err := e.AddTrack(""); err != nil {
			t.Fatalf("AddTrack failed: %v", err)
		}
	}
	if _, err := e.AddTrack(""); !errors.Is(err, tunebox.ErrTooManyTracks) {
		t.Fatalf("expected ErrTooManyTracks, got %v", err)
	}
}

func TestSetBPMKeepsBeats(t *testing.T) {
	c := tunebox.NewComposition("", 120)
	e := newEditor(c)
	res, _ := e.ApplyExternalNoteBatch(c.Tracks[0].ID, []tunebox.NoteSpec{{Pitch: tunebox.C, Octave: 4, StartTime: 1, Duration: 0.5}})
	if err := e.SetBPM(60); err != nil {
		t.Fatalf("SetBPM failed: %v", err)
	}
	_, n, _ := findNote(c, res.Added[0])
	if n.StartTime(c.BPM) != 2 || n.Duration(c.BPM) != 1 {
		t.Fatalf("note at %v for %v after tempo change", n.StartTime(c.BPM), n.Duration(c.BPM))
	}
}

func TestUndoRedo(t *testing.T) {
	c := tunebox.NewComposition("", 120)
	e := newEditor(c)
	x, y := cellPoint(t, tunebox.C, 4, 0)
	e.PlaceOrToggle(x, y)
	e.SetTitle("Song")
	if ok, _ := e.Undo(); !ok || c.Title != "" || c.NoteCount() != 1 {
		t.Fatalf("after first undo: title %q, %v notes", c.Title, c.NoteCount())
	}
	if ok, _ := e.Undo(); !ok || c.NoteCount() != 0 {
		t.Fatalf("after second undo: %v notes", c.NoteCount())
	}
	if ok, _ := e.Undo(); ok {
		t.Fatal("undo past the start of the history")
	}
	if ok, _ := e.Redo(); !ok || c.NoteCount() != 1 {
		t.Fatalf("after redo: %v notes", c.NoteCount())
	}
	e.SetTitle("Other")
	if ok, _ := e.Redo(); ok {
		t.Fatal("redo after a new change")
	}
}

func TestUndoRestoresActiveTrack(t *testing.T) {
	c := tunebox.NewComposition("", 120)
	e := newEditor(c)
	id, _ := e.AddTrack("guitar")
	if ok, _ := e.Undo(); !ok {
		t.Fatal("undo failed")
	}
	if c.Track(id) != nil {
		t.Fatal("track still present after undo")
	}
	if e.ActiveTrack() != c.Tracks[0].ID {
		t.Fatal("active track points at a removed track")
	}
}
