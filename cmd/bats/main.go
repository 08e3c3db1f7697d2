// bats is a command line groovebox: tracks of plugin chains played live from
// MIDI input, controlled from a console.
//
// Usage:
//
//	bats run                          # play, and read commands from stdin
//	bats plugins                      # list the plugins
//	bats render -o out.wav -s 4       # bounce the configured tracks offline
//	bats version
//
// The defaults can be overridden in config.yml in the bats directory of the
// user config dir.
package main

import (
	"fmt"
	"os"

	"github.com/vsariola/bats/cmd/bats/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
