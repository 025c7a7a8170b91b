package commands

import (
	"fmt"
	"os"
	"os/signal"
	"sync"

	"github.com/spf13/cobra"

	"github.com/wizzlekids/tunebox"
	"github.com/wizzlekids/tunebox/oto"
	"github.com/wizzlekids/tunebox/synth"
	"github.com/wizzlekids/tunebox/tracker"
)

var (
	playFrom   float64
	playVolume float64
)

var playCmd = &cobra.Command{
	Use:   "play <file>",
	Short: "Play a composition on the default audio device",
	Long:  `Play a composition until its last note has rung out, or until interrupted.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := tracker.LoadComposition(args[0])
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		return withTransport(c, func(t *tracker.Transport) error {
			ended := make(chan struct{})
			var once sync.Once
			t.OnPlaybackEnd(func() { once.Do(func() { close(ended) }) })
			if playFrom > 0 {
				t.Seek(playFrom)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "playing %v (%.1f s)\n", args[0], c.MaxEndTime())
			t.Play()
			select {
			case <-ended:
			case <-ctx.Done():
				t.Stop()
			}
			return nil
		})
	},
}

// withTransport opens the audio device and runs f with a transport playing
// c on it.
func withTransport(c *tunebox.Composition, f func(t *tracker.Transport) error) error {
	audio, err := oto.NewContext(globalConfig.SampleRate)
	if err != nil {
		return fmt.Errorf("could not acquire audio context: %w", err)
	}
	defer audio.Close()
	audio.Mixer().SetVolume(playVolume)
	registry := synth.DefaultRegistry(globalConfig.SampleRate)
	t := tracker.NewTransport(c, registry, audio.Mixer(), tracker.WithConfig(globalConfig), tracker.WithLogger(logger))
	defer t.Close()
	return f(t)
}

func init() {
	playCmd.Flags().Float64Var(&playFrom, "from", 0, "start position in seconds")
	playCmd.Flags().Float64Var(&playVolume, "volume", 1, "master volume between 0 and 1")
	rootCmd.AddCommand(playCmd)
}
