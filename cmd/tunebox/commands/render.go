package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wizzlekids/tunebox"
	"github.com/wizzlekids/tunebox/synth"
	"github.com/wizzlekids/tunebox/tracker"
)

var (
	renderOutput string
	renderRaw    bool
	renderPCM    bool
	renderRate   int
)

var renderCmd = &cobra.Command{
	Use:   "render <file>",
	Short: "Render a composition to .wav or .raw",
	Long: `Render every unmuted track of a composition offline. The output is mono
float32 unless --pcm is given. Tracks whose instrument is not available are
skipped with a warning.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := tracker.LoadComposition(args[0])
		if err != nil {
			return err
		}
		sampleRate := globalConfig.SampleRate
		buffer, skipped, err := tracker.Render(c, synth.DefaultRegistry(sampleRate), sampleRate)
		if err != nil {
			return fmt.Errorf("could not render %v: %w", args[0], err)
		}
		for _, instrument := range skipped {
			logger.Warn("instrument not available, track skipped", "instrument", instrument)
		}
		rate := sampleRate
		if renderRate > 0 && renderRate != sampleRate {
			if buffer, err = tunebox.Resample(buffer, sampleRate, renderRate); err != nil {
				return err
			}
			rate = renderRate
		}
		ext, contents := ".wav", []byte(nil)
		if renderRaw {
			ext = ".raw"
			contents, err = tunebox.Raw(buffer, renderPCM)
		} else {
			contents, err = tunebox.Wav(buffer, rate, renderPCM)
		}
		if err != nil {
			return fmt.Errorf("could not encode audio: %w", err)
		}
		out := outputPath(renderOutput, args[0], ext)
		if err := writeFile(out, contents); err != nil {
			return err
		}
		logger.Debug("rendered", "file", out, "samples", len(buffer), "sample_rate", rate)
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %v (%.2f s)\n", out, float64(len(buffer))/float64(rate))
		return nil
	},
}

func init() {
	renderCmd.Flags().StringVarP(&renderOutput, "output", "o", "", "output file; defaults to the input file with a .wav or .raw extension")
	renderCmd.Flags().BoolVarP(&renderRaw, "raw", "r", false, "write a headerless .raw file instead of .wav")
	renderCmd.Flags().BoolVar(&renderPCM, "pcm", false, "convert audio to 16-bit signed PCM")
	renderCmd.Flags().IntVar(&renderRate, "rate", 0, "resample the output to this sample rate")
	rootCmd.AddCommand(renderCmd)
}
