// Package grid maps between musical time and the coordinates of the piano
// roll: columns are subdivisions of a beat, rows are pitches with the highest
// pitch on top.
package grid

import (
	"math"

	"github.com/wizzlekids/tunebox"
)

type (
	// Mapper converts between seconds, beats and grid coordinates at a fixed
	// tempo. It is a plain value; copy it freely.
	Mapper struct {
		BPM                 int
		CellWidth           float64
		CellHeight          float64
		SubdivisionsPerBeat int
		BeatsPerMeasure     int
		LowOctave           int
		HighOctave          int
	}

	// Position is the measure/beat/subdivision triple of a column, all zero
	// based.
	Position struct {
		Measure     int
		Beat        int
		Subdivision int
	}

	// Cell is a resolved grid cell.
	Cell struct {
		Column int
		Row    int
		Beat   float64
		Pitch  tunebox.Pitch
		Octave int
	}
)

const (
	DefaultCellWidth           = 40
	DefaultCellHeight          = 20
	MinCellWidth               = 20
	DefaultSubdivisionsPerBeat = 4
	DefaultBeatsPerMeasure     = 4
	DefaultMeasures            = 16
	DefaultLowOctave           = 2
	DefaultHighOctave          = 6
)

// Default returns the mapper of the standard piano roll: sixteenth-note
// columns 40 px wide, 20 px rows spanning octaves 2 to 6.
func Default(bpm int) Mapper {
	return Mapper{
		BPM:                 bpm,
		CellWidth:           DefaultCellWidth,
		CellHeight:          DefaultCellHeight,
		SubdivisionsPerBeat: DefaultSubdivisionsPerBeat,
		BeatsPerMeasure:     DefaultBeatsPerMeasure,
		LowOctave:           DefaultLowOctave,
		HighOctave:          DefaultHighOctave,
	}
}

// Zoom returns a copy of the mapper with the cell width scaled from the
// default width, never narrower than MinCellWidth.
func (m Mapper) Zoom(zoom float64) Mapper {
	if !(zoom > 0) {
		zoom = 1
	}
	m.CellWidth = max(MinCellWidth, DefaultCellWidth*zoom)
	return m
}

// WithBPM returns a copy of the mapper at another tempo.
func (m Mapper) WithBPM(bpm int) Mapper {
	m.BPM = bpm
	return m
}

func (m Mapper) bpm() float64 {
	return float64(tunebox.ClampBPM(m.BPM))
}

func (m Mapper) cellWidth() float64 {
	if m.CellWidth > 0 {
		return m.CellWidth
	}
	return DefaultCellWidth
}

func (m Mapper) cellHeight() float64 {
	if m.CellHeight > 0 {
		return m.CellHeight
	}
	return DefaultCellHeight
}

func (m Mapper) subdivisions() int {
	if m.SubdivisionsPerBeat > 0 {
		return m.SubdivisionsPerBeat
	}
	return DefaultSubdivisionsPerBeat
}

func (m Mapper) beatsPerMeasure() int {
	if m.BeatsPerMeasure > 0 {
		return m.BeatsPerMeasure
	}
	return DefaultBeatsPerMeasure
}

// TimeToGridOffset converts seconds to a horizontal offset in pixels.
func (m Mapper) TimeToGridOffset(t float64) float64 {
	return t / 60 * m.bpm() * float64(m.subdivisions()) * m.cellWidth()
}

// GridOffsetToTime converts a horizontal offset in pixels to seconds.
func (m Mapper) GridOffsetToTime(x float64) float64 {
	return x / m.cellWidth() / float64(m.subdivisions()) * (60 / m.bpm())
}

func (m Mapper) BeatToGridOffset(beat float64) float64 {
	return beat * float64(m.subdivisions()) * m.cellWidth()
}

func (m Mapper) GridOffsetToBeat(x float64) float64 {
	return x / m.cellWidth() / float64(m.subdivisions())
}

func (m Mapper) BeatToTime(beat float64) float64 {
	return beat * 60 / m.bpm()
}

func (m Mapper) TimeToBeat(t float64) float64 {
	return t / 60 * m.bpm()
}

// SubdivisionBeats is the length of one column in beats.
func (m Mapper) SubdivisionBeats() float64 {
	return 1 / float64(m.subdivisions())
}

// Column returns the column under x, or -1 when x lies left of the grid.
func (m Mapper) Column(x float64) int {
	if x < 0 || math.IsNaN(x) {
		return -1
	}
	return int(math.Floor(x / m.cellWidth()))
}

// ColumnBeat returns the beat at the left edge of a column.
func (m Mapper) ColumnBeat(col int) float64 {
	return float64(col) / float64(m.subdivisions())
}

// Position splits a column into measure, beat and subdivision.
func (m Mapper) Position(col int) Position {
	sub := m.subdivisions()
	perMeasure := sub * m.beatsPerMeasure()
	return Position{
		Measure:     col / perMeasure,
		Beat:        col % perMeasure / sub,
		Subdivision: col % sub,
	}
}

// Columns returns the number of columns that the given number of measures
// spans.
func (m Mapper) Columns(measures int) int {
	return max(measures, 0) * m.beatsPerMeasure() * m.subdivisions()
}

// Rows returns the number of pitch rows, twelve per octave.
func (m Mapper) Rows() int {
	if m.HighOctave < m.LowOctave {
		return 0
	}
	return (m.HighOctave - m.LowOctave + 1) * tunebox.NumPitches
}

// Row returns the row under y, or -1 when y lies above the grid.
func (m Mapper) Row(y float64) int {
	if y < 0 || math.IsNaN(y) {
		return -1
	}
	return int(math.Floor(y / m.cellHeight()))
}

// RowToPitch returns the pitch and octave of a row. Row 0 is B of the
// highest octave.
func (m Mapper) RowToPitch(row int) (tunebox.Pitch, int, bool) {
	rows := m.Rows()
	if row < 0 || row >= rows {
		return 0, 0, false
	}
	idx := rows - 1 - row
	return tunebox.Pitch(idx % tunebox.NumPitches), m.LowOctave + idx/tunebox.NumPitches, true
}

// PitchToRow is the inverse of RowToPitch.
func (m Mapper) PitchToRow(p tunebox.Pitch, octave int) (int, bool) {
	if octave < m.LowOctave || octave > m.HighOctave {
		return 0, false
	}
	idx := (octave-m.LowOctave)*tunebox.NumPitches + int(p.Normalize())
	return m.Rows() - 1 - idx, true
}

// Cell resolves a point of the grid. ok is false when the point lies
// outside the pitch rows or left of the first column.
func (m Mapper) Cell(x, y float64) (c Cell, ok bool) {
	col := m.Column(x)
	row := m.Row(y)
	if col < 0 {
		return Cell{}, false
	}
	p, octave, ok := m.RowToPitch(row)
	if !ok {
		return Cell{}, false
	}
	return Cell{Column: col, Row: row, Beat: m.ColumnBeat(col), Pitch: p, Octave: octave}, true
}
