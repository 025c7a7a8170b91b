package tracker

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/wizzlekids/tunebox"
)

// Format is the encoding of a composition file.
type Format int

const (
	YAML Format = iota
	JSON
)

// FormatOf returns the format for a file name: JSON for .json, YAML for
// anything else.
func FormatOf(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return JSON
	}
	return YAML
}

// ReadComposition decodes a composition file, trying JSON first and then
// YAML, and validates it. Notes of the same pitch closer than the grid
// toggle tolerance of the default config are rejected as duplicates.
func ReadComposition(r io.Reader) (*tunebox.Composition, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("could not read composition: %w", err)
	}
	var c tunebox.Composition
	if errJSON := json.Unmarshal(b, &c); errJSON != nil {
		c = tunebox.Composition{}
		if errYaml := yaml.Unmarshal(b, &c); errYaml != nil {
			return nil, fmt.Errorf("error unmarshaling a composition file: %v / %v", errYaml, errJSON)
		}
	}
	c.BPM = tunebox.ClampBPM(c.BPM)
	for i := range c.Tracks {
		c.Tracks[i].Volume = tunebox.ClampVolume(c.Tracks[i].Volume)
		for j := range c.Tracks[i].Notes {
			n := &c.Tracks[i].Notes[j]
			n.Velocity = tunebox.ClampVelocity(n.Velocity)
			n.Pitch = n.Pitch.Normalize()
		}
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid composition file: %w", err)
	}
	if err := c.CheckSpacing(DefaultConfig().ToggleBeats(c.BPM)); err != nil {
		return nil, fmt.Errorf("invalid composition file: %w", err)
	}
	return &c, nil
}

// WriteComposition encodes a composition in the given format.
func WriteComposition(w io.Writer, c *tunebox.Composition, format Format) error {
	var contents []byte
	var err error
	if format == JSON {
		contents, err = json.MarshalIndent(c, "", "  ")
	} else {
		contents, err = yaml.Marshal(c)
	}
	if err != nil {
		return fmt.Errorf("error marshaling a composition file: %w", err)
	}
	if _, err := w.Write(contents); err != nil {
		return fmt.Errorf("error writing composition: %w", err)
	}
	return nil
}

// LoadComposition reads a composition file from disk.
func LoadComposition(path string) (*tunebox.Composition, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open composition: %w", err)
	}
	defer f.Close()
	return ReadComposition(f)
}

// SaveComposition writes a composition file, choosing the format from the
// extension of path.
func SaveComposition(path string, c *tunebox.Composition) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("could not create composition file: %w", err)
	}
	if err := WriteComposition(f, c, FormatOf(path)); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("could not close composition file: %w", err)
	}
	return nil
}
