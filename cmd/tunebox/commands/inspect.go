package commands

import (
	"fmt"
	"text/template"
	"time"

	"github.com/Masterminds/sprig"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/wizzlekids/tunebox"
	"github.com/wizzlekids/tunebox/tracker"
)

const inspectTemplate = `{{ .Header }}
  bpm       {{ .BPM }}
  length    {{ printf "%.2f" .Length }} s
  modified  {{ date "2006-01-02 15:04" .Modified }}
  tracks    {{ len .Tracks }}
{{ range $i, $t := .Tracks }}
  {{ add1 $i }}. {{ $t.Name | trunc 16 | printf "%-16s" }} {{ instrument $t.Instrument | printf "%-12s" }} {{ len $t.Notes | printf "%3d" }} notes  vol {{ printf "%.2f" $t.Volume }}{{ if $t.Muted }}  {{ $.Muted }}{{ end }}
{{- end }}
`

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#3B82F6"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6e7681"))
)

var inspectTmpl = template.Must(template.New("inspect").
	Funcs(sprig.TxtFuncMap()).
	Funcs(template.FuncMap{"instrument": tunebox.InstrumentTitle}).
	Parse(inspectTemplate))

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Print a summary of a composition",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := tracker.LoadComposition(args[0])
		if err != nil {
			return err
		}
		title := c.Title
		if title == "" {
			title = "Untitled"
		}
		data := struct {
			Header   string
			Muted    string
			BPM      int
			Length   float64
			Modified time.Time
			Tracks   []tunebox.Track
		}{
			Header:   titleStyle.Render(title),
			Muted:    mutedStyle.Render("muted"),
			BPM:      c.BPM,
			Length:   c.MaxEndTime(),
			Modified: c.LastModified,
			Tracks:   c.Tracks,
		}
		if err := inspectTmpl.Execute(cmd.OutOrStdout(), data); err != nil {
			return fmt.Errorf("could not print %v: %w", args[0], err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}
