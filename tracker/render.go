package tracker

import (
	"fmt"

	"github.com/viterin/vek/vek32"
	"github.com/wizzlekids/tunebox"
	"github.com/wizzlekids/tunebox/synth"
)

// Render mixes the whole composition offline into one buffer. Every note of
// an unmuted track starts at the sample of its start time, exactly where
// the transport would dispatch it. Tracks whose instrument is not in the
// registry are skipped and reported through skipped.
func Render(c *tunebox.Composition, registry *synth.Registry, sampleRate int) (buffer tunebox.AudioBuffer, skipped []string, err error) {
	if err := c.Validate(); err != nil {
		return nil, nil, fmt.Errorf("cannot render: %w", err)
	}
	if sampleRate <= 0 {
		return nil, nil, fmt.Errorf("cannot render at sample rate %v", sampleRate)
	}
	buffer = make(tunebox.AudioBuffer, tunebox.SamplesIn(c.MaxEndTime(), sampleRate))
	for i := range c.Tracks {
		t := &c.Tracks[i]
		if t.Muted {
			continue
		}
		unit, ok := registry.Lookup(t.Instrument)
		if !ok {
			skipped = append(skipped, t.Instrument)
			continue
		}
		gain := synth.Gain(t.Volume, t.Muted)
		for _, n := range t.Notes {
			voice := unit.Render(n.Frequency(), n.Duration(c.BPM), n.Velocity)
			synth.ApplyGain(voice, gain)
			start := tunebox.SamplesIn(n.StartTime(c.BPM), sampleRate)
			if end := start + len(voice); end > len(buffer) {
				buffer = append(buffer, make(tunebox.AudioBuffer, end-len(buffer))...)
			}
			if len(voice) > 0 {
				vek32.Add_Inplace(buffer[start:start+len(voice)], voice)
			}
		}
	}
	return buffer, skipped, nil
}
