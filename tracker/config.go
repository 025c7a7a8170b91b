package tracker

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wizzlekids/tunebox"
	"github.com/wizzlekids/tunebox/grid"
)

// Config holds the tunables of the transport and the editor. Zero or
// nonsensical values are replaced by defaults in Normalize.
type Config struct {
	SampleRate   int           `yaml:"sample_rate"`
	PollInterval time.Duration `yaml:"poll_interval"`
	LookAhead    time.Duration `yaml:"look_ahead"`
	EndPadding   time.Duration `yaml:"end_padding"`

	SnapTolerance   float64 `yaml:"snap_tolerance"` // seconds
	DefaultVelocity float64 `yaml:"default_velocity"`

	SubdivisionsPerBeat int     `yaml:"subdivisions_per_beat"`
	BeatsPerMeasure     int     `yaml:"beats_per_measure"`
	Measures            int     `yaml:"measures"`
	LowOctave           int     `yaml:"low_octave"`
	HighOctave          int     `yaml:"high_octave"`
	CellWidth           float64 `yaml:"cell_width"`
	CellHeight          float64 `yaml:"cell_height"`
}

func DefaultConfig() Config {
	return Config{
		SampleRate:          tunebox.DefaultSampleRate,
		PollInterval:        50 * time.Millisecond,
		LookAhead:           100 * time.Millisecond,
		EndPadding:          time.Second,
		SnapTolerance:       0.1,
		DefaultVelocity:     0.8,
		SubdivisionsPerBeat: grid.DefaultSubdivisionsPerBeat,
		BeatsPerMeasure:     grid.DefaultBeatsPerMeasure,
		Measures:            grid.DefaultMeasures,
		LowOctave:           grid.DefaultLowOctave,
		HighOctave:          grid.DefaultHighOctave,
		CellWidth:           grid.DefaultCellWidth,
		CellHeight:          grid.DefaultCellHeight,
	}
}

// LoadConfig reads a yaml config file. Fields missing from the file keep
// their default values.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("could not read config: %w", err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("could not parse config %v: %w", path, err)
	}
	return cfg.Normalize(), nil
}

// Normalize returns a copy with every out of range value replaced by its
// default.
func (c Config) Normalize() Config {
	d := DefaultConfig()
	if c.SampleRate <= 0 {
		c.SampleRate = d.SampleRate
	}
	if c.PollInterval <= 0 {
		c.PollInterval = d.PollInterval
	}
	if c.LookAhead <= 0 {
		c.LookAhead = d.LookAhead
	}
	if c.EndPadding <= 0 {
		c.EndPadding = d.EndPadding
	}
	if !(c.SnapTolerance > 0) {
		c.SnapTolerance = d.SnapTolerance
	}
	if !(c.DefaultVelocity > 0) || c.DefaultVelocity > 1 {
		c.DefaultVelocity = d.DefaultVelocity
	}
	if c.SubdivisionsPerBeat <= 0 {
		c.SubdivisionsPerBeat = d.SubdivisionsPerBeat
	}
	if c.BeatsPerMeasure <= 0 {
		c.BeatsPerMeasure = d.BeatsPerMeasure
	}
	if c.Measures <= 0 {
		c.Measures = d.Measures
	}
	if c.HighOctave < c.LowOctave || c.LowOctave < -1 || c.HighOctave > 9 {
		c.LowOctave, c.HighOctave = d.LowOctave, d.HighOctave
	}
	if !(c.CellWidth > 0) {
		c.CellWidth = d.CellWidth
	}
	if !(c.CellHeight > 0) {
		c.CellHeight = d.CellHeight
	}
	return c
}

// SnapBeats returns SnapTolerance in beats at the given tempo. Notes of the
// same pitch starting closer than this are duplicates.
func (c Config) SnapBeats(bpm int) float64 {
	return c.SnapTolerance / tunebox.SecondsPerBeat(bpm)
}

// ToggleBeats is the tolerance of grid toggles in beats: SnapBeats, capped
// at half a subdivision so neighbouring cells never match each other at
// fast tempos.
func (c Config) ToggleBeats(bpm int) float64 {
	return min(c.SnapBeats(bpm), c.Mapper(bpm).SubdivisionBeats()/2)
}

// Mapper returns the grid mapper for the given tempo.
func (c Config) Mapper(bpm int) grid.Mapper {
	return grid.Mapper{
		BPM:                 bpm,
		CellWidth:           c.CellWidth,
		CellHeight:          c.CellHeight,
		SubdivisionsPerBeat: c.SubdivisionsPerBeat,
		BeatsPerMeasure:     c.BeatsPerMeasure,
		LowOctave:           c.LowOctave,
		HighOctave:          c.HighOctave,
	}
}
