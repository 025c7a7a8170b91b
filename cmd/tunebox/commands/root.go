package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wizzlekids/tunebox/tracker"
)

var (
	// Global flags
	verbose    bool
	configPath string

	globalConfig tracker.Config
	logger       = slog.Default()
)

var rootCmd = &cobra.Command{
	Use:   "tunebox",
	Short: "A music sequencer for kids",
	Long: `tunebox - create, play and share small compositions.

Compositions are stored as .yml or .json files. Playback and rendering use
the built-in instruments: piano, guitar, violin, trumpet, synthesizer and
drums.

Examples:
  # Create a composition and look at it
  tunebox new song.yml --title "My Song" --bpm 100
  tunebox inspect song.yml

  # Play it, or render it to a wave file
  tunebox play song.yml
  tunebox render song.yml -o song.wav

  # Convert from and to MIDI
  tunebox midi import melody.mid song.yml
  tunebox midi export song.yml song.mid`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "yaml file with transport and editor settings")
}

func setup(cmd *cobra.Command, args []string) error {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	if configPath == "" {
		globalConfig = tracker.DefaultConfig()
		return nil
	}
	cfg, err := tracker.LoadConfig(configPath)
	if err != nil {
		return err
	}
	globalConfig = cfg
	logger.Debug("config loaded", "path", configPath, "sample_rate", cfg.SampleRate)
	return nil
}

// outputPath returns path, or the input path with its extension replaced
// by ext when path is empty.
func outputPath(path, input, ext string) string {
	if path != "" {
		return path
	}
	return strings.TrimSuffix(input, filepath.Ext(input)) + ext
}

func writeFile(path string, contents []byte) error {
	if err := os.WriteFile(path, contents, 0o644); err != nil {
		return fmt.Errorf("could not write file %v: %w", path, err)
	}
	return nil
}
