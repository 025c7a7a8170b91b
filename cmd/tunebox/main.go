// Command tunebox creates, plays, renders and converts tunebox compositions.
//
// Usage:
//
//	tunebox [flags] <command> [args]
//
// Commands:
//
//	new      - Create an empty composition
//	inspect  - Print a summary of a composition
//	play     - Play a composition on the default audio device
//	render   - Render a composition to .wav or .raw
//	midi     - Export to or import from Standard MIDI Files
//	serve    - Control playback over a websocket
//	version  - Show version information
package main

import (
	"fmt"
	"os"

	"github.com/wizzlekids/tunebox/cmd/tunebox/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
