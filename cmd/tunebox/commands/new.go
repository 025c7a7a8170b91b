package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wizzlekids/tunebox"
	"github.com/wizzlekids/tunebox/tracker"
)

var (
	newTitle string
	newBPM   int
)

var newCmd = &cobra.Command{
	Use:   "new <file>",
	Short: "Create an empty composition",
	Long: `Create a composition with a piano and a drums track and no notes.
The format follows the extension: .json for JSON, anything else for YAML.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := tunebox.NewComposition(newTitle, newBPM)
		if err := tracker.SaveComposition(args[0], c); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created %v (%v bpm)\n", args[0], c.BPM)
		return nil
	},
}

func init() {
	newCmd.Flags().StringVarP(&newTitle, "title", "t", "", "title of the composition")
	newCmd.Flags().IntVarP(&newBPM, "bpm", "b", tunebox.DefaultBPM, "tempo in beats per minute")
	rootCmd.AddCommand(newCmd)
}
