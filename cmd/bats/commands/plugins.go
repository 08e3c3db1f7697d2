package commands

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/ossrs/go-oryx-lib/errors"
	"github.com/spf13/cobra"
	"github.com/vsariola/bats/cmd"
)

var pluginsCmd = &cobra.Command{
	Use:   "plugins",
	Short: "List the available plugins",
	Args:  cobra.NoArgs,
	RunE: func(c *cobra.Command, args []string) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return err
		}
		registry, err := cmd.NewRegistry(cfg)
		if err != nil {
			return err
		}
		defer registry.Close()

		w := tabwriter.NewWriter(c.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tKIND\tCLASSES\tPARAMS")
		for _, d := range registry.Plugins() {
			kind := "effect"
			if d.Instrument {
				kind = "instrument"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n", d.ID, d.Name, kind, strings.Join(d.Classes, ","), len(d.Params))
		}
		if err := w.Flush(); err != nil {
			return errors.Wrapf(err, "write plugin list")
		}
		return nil
	},
}
