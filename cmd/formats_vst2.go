//go:build vst2

package cmd

import (
	"github.com/vsariola/bats"
	"github.com/vsariola/bats/config"
	"github.com/vsariola/bats/plugin/vst2"
)

func init() {
	Formats = append(Formats, func(c *config.Config) bats.Format {
		if len(c.VST2Paths) == 0 {
			return nil
		}
		return vst2.NewFormat(c.VST2Paths...)
	})
}
