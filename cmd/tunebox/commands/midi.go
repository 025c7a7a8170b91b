package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wizzlekids/tunebox"
	"github.com/wizzlekids/tunebox/gomidi"
	"github.com/wizzlekids/tunebox/tracker"
)

var midiCmd = &cobra.Command{
	Use:   "midi",
	Short: "Export to or import from Standard MIDI Files",
}

var midiExportCmd = &cobra.Command{
	Use:   "export <file> [out.mid]",
	Short: "Write a composition as a MIDI file",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := tracker.LoadComposition(args[0])
		if err != nil {
			return err
		}
		out := outputPath(optionalArg(args, 1), args[0], ".mid")
		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("could not create %v: %w", out, err)
		}
		defer f.Close()
		if err := gomidi.Export(f, c); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %v\n", out)
		return f.Close()
	},
}

var midiImportCmd = &cobra.Command{
	Use:   "import <file.mid> [out.yml]",
	Short: "Create a composition from a MIDI file",
	Long: `Create a composition from the notes of a MIDI file. Notes on channel 10
go to the drums track, the first other track goes to the piano track and
the rest get piano tracks of their own, up to the track limit.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("could not open %v: %w", args[0], err)
		}
		defer f.Close()
		imp, err := gomidi.Import(f)
		if err != nil {
			return err
		}
		title := strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
		c := tunebox.NewComposition(title, imp.BPM)
		added, err := importTracks(c, imp)
		if err != nil {
			return err
		}
		out := outputPath(optionalArg(args, 1), args[0], ".yml")
		if err := tracker.SaveComposition(out, c); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %v (%d notes, %d tracks)\n", out, added, len(c.Tracks))
		return nil
	},
}

// importTracks adds the imported notes to c through an editor, which drops
// invalid and duplicate notes. It returns the number of notes added.
func importTracks(c *tunebox.Composition, imp gomidi.Imported) (int, error) {
	e := tracker.NewEditor(&tracker.Offline{Comp: c}, globalConfig)
	piano, drums := c.Tracks[0].ID, c.Tracks[1].ID
	pianoUsed := false
	added := 0
	for i, it := range imp.Tracks {
		target := drums
		switch {
		case it.Drums():
		case !pianoUsed:
			target, pianoUsed = piano, true
		default:
			id, err := e.AddTrack(tunebox.DefaultInstrument)
			if errors.Is(err, tunebox.ErrTooManyTracks) {
				logger.Warn("too many tracks, skipping the rest", "track", i)
				return added, nil
			}
			if err != nil {
				return added, err
			}
			target = id
		}
		res, err := e.ApplyExternalNoteBatch(target, it.Notes)
		if err != nil {
			return added, err
		}
		if res.Rejected > 0 || res.Duplicates > 0 {
			logger.Warn("notes dropped", "track", i, "rejected", res.Rejected, "duplicates", res.Duplicates)
		}
		added += len(res.Added)
	}
	return added, nil
}

func optionalArg(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}

func init() {
	midiCmd.AddCommand(midiExportCmd, midiImportCmd)
	rootCmd.AddCommand(midiCmd)
}
