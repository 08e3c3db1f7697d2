package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vsariola/bats/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(c *cobra.Command, args []string) {
		fmt.Fprintln(c.OutOrStdout(), version.String())
	},
}
