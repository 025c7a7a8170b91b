package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wizzlekids/tunebox/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		b := version.Get()
		fmt.Fprintln(cmd.OutOrStdout(), b.String())
		if verbose && b.Revision != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "  revision: %s\n  modified: %v\n", b.Revision, b.Modified)
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
