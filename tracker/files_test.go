package tracker_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/wizzlekids/tunebox"
	"github.com/wizzlekids/tunebox/tracker"
)

func sampleComposition() *tunebox.Composition {
	c := tunebox.NewComposition("Rainy Day", 96)
	c.CreatedAt = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c.LastModified = c.CreatedAt
	c.InsertNote(tunebox.Note{ID: "n1", Pitch: tunebox.FSharp, Octave: 4, Beat: 0.5, Length: 0.25, Velocity: 0.8, Track: c.Tracks[0].ID})
	c.InsertNote(tunebox.Note{ID: "n2", Pitch: tunebox.C, Octave: 2, Beat: 1, Length: 0.25, Velocity: 0.6, Track: c.Tracks[1].ID})
	c.Tracks[1].Muted = true
	return c
}

func TestCompositionFileRoundTrip(t *testing.T) {
	for _, format := range []tracker.Format{tracker.YAML, tracker.JSON} {
		c := sampleComposition()
		var buf bytes.Buffer
		if err := tracker.WriteComposition(&buf, c, format); err != nil {
			t.Fatalf("WriteComposition failed: %v", err)
		}
		if format == tracker.YAML && !strings.Contains(buf.String(), "F#") {
			t.Errorf("pitch not stored by name:\n%v", buf.String())
		}
		got, err := tracker.ReadComposition(&buf)
		if err != nil {
			t.Fatalf("ReadComposition failed: %v", err)
		}
		if got.Title != c.Title || got.BPM != c.BPM || len(got.Tracks) != 2 {
			t.Fatalf("read back %+v", got)
		}
		if !got.CreatedAt.Equal(c.CreatedAt) {
			t.Errorf("created at %v, expected %v", got.CreatedAt, c.CreatedAt)
		}
		for i := range c.Tracks {
			want, have := c.Tracks[i], got.Tracks[i]
			if want.ID != have.ID || want.Name != have.Name || want.Muted != have.Muted || len(want.Notes) != len(have.Notes) {
				t.Fatalf("track %v: %+v, expected %+v", i, have, want)
			}
			for j := range want.Notes {
				if want.Notes[j] != have.Notes[j] {
					t.Errorf("note %+v, expected %+v", have.Notes[j], want.Notes[j])
				}
			}
		}
	}
}

func TestReadCompositionInvalid(t *testing.T) {
	for _, s := range []string{
		"this: [is not",
		"title: empty\nbpm: 120\n",
		"title: x\ntracks:\n  - id: a\n    notes:\n      - id: n\n        track: b\n        length: 1\n",
	} {
		if _, err := tracker.ReadComposition(strings.NewReader(s)); err == nil {
			t.Errorf("ReadComposition(%q) should fail", s)
		}
	}
}

func TestReadCompositionDuplicates(t *testing.T) {
	for _, tc := range []struct {
		beat float64
		ok   bool
	}{
		{0.05, false}, // within the snap tolerance
		{0.25, true},  // the neighbouring grid cell
	} {
		c := tunebox.NewComposition("", 120)
		id := c.Tracks[0].ID
		c.InsertNote(tunebox.Note{ID: "a", Pitch: tunebox.C, Octave: 4, Beat: 0, Length: 0.25, Velocity: 1, Track: id})
		c.InsertNote(tunebox.Note{ID: "b", Pitch: tunebox.C, Octave: 4, Beat: tc.beat, Length: 0.25, Velocity: 1, Track: id})
		var buf bytes.Buffer
		if err := tracker.WriteComposition(&buf, c, tracker.YAML); err != nil {
			t.Fatalf("WriteComposition failed: %v", err)
		}
		_, err := tracker.ReadComposition(&buf)
		if tc.ok && err != nil {
			t.Errorf("beat %v: unexpected error %v", tc.beat, err)
		}
		if !tc.ok && !errors.Is(err, tunebox.ErrDuplicateNote) {
			t.Errorf("beat %v: expected ErrDuplicateNote, got %v", tc.beat, err)
		}
	}
}

func TestSaveLoadComposition(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"song.yml", "song.json"} {
		path := filepath.Join(dir, name)
		c := sampleComposition()
		if err := tracker.SaveComposition(path, c); err != nil {
			t.Fatalf("SaveComposition failed: %v", err)
		}
		b, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("could not read back %v: %v", path, err)
		}
		if isJSON := bytes.HasPrefix(b, []byte("{")); isJSON != (tracker.FormatOf(path) == tracker.JSON) {
			t.Errorf("%v written in the wrong format", name)
		}
		got, err := tracker.LoadComposition(path)
		if err != nil {
			t.Fatalf("LoadComposition failed: %v", err)
		}
		if got.NoteCount() != 2 {
			t.Errorf("%v: %v notes", name, got.NoteCount())
		}
	}
}
