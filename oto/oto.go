// Package oto plays the transport's dispatches on the default audio device.
package oto

import (
	"fmt"

	"github.com/ebitengine/oto/v3"
	"github.com/wizzlekids/tunebox"
)

// Context owns the audio device and the player streaming its Mixer.
type Context struct {
	ctx    *oto.Context
	player *oto.Player
	mixer  *Mixer
}

// bufferDuration is the device buffer in seconds; it bounds the latency
// between a dispatch and its onset.
const bufferDuration = 0.01

// NewContext opens the default device for mono 16-bit audio and starts
// streaming a new Mixer to it.
func NewContext(sampleRate int) (*Context, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 1,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return nil, fmt.Errorf("cannot create oto context: %w", err)
	}
	<-ready
	m := NewMixer(sampleRate)
	p := ctx.NewPlayer(m)
	p.SetBufferSize(tunebox.SamplesIn(bufferDuration, sampleRate) * 2)
	p.Play()
	return &Context{ctx: ctx, player: p, mixer: m}, nil
}

// Mixer returns the mixer to hand to the transport as its backend.
func (c *Context) Mixer() *Mixer {
	return c.mixer
}

// Output implements tunebox.AudioContext.
func (c *Context) Output() tunebox.AudioSink {
	return c.mixer
}

func (c *Context) Close() error {
	if err := c.player.Close(); err != nil {
		return fmt.Errorf("cannot close oto player: %w", err)
	}
	if err := c.ctx.Suspend(); err != nil {
		return fmt.Errorf("cannot suspend oto context: %w", err)
	}
	return nil
}
