// Package cmd has the parts of the command line tool that depend on build
// tags, and the offline renderer.
package cmd

import (
	"github.com/vsariola/bats"
	"github.com/vsariola/bats/config"
	"github.com/vsariola/bats/plugin"
	"github.com/vsariola/bats/plugin/builtin"
	"github.com/vsariola/bats/plugin/sample"
)

// Formats construct the plugin formats compiled in. Formats that need cgo or
// SDKs add themselves in files with build tags.
var Formats = []func(c *config.Config) bats.Format{
	func(c *config.Config) bats.Format { return builtin.Format{} },
	func(c *config.Config) bats.Format {
		if c.SampleDir == "" {
			return nil
		}
		return sample.NewFormat(c.SampleDir)
	},
}

func NewRegistry(c *config.Config) (*plugin.Registry, error) {
	formats := make([]bats.Format, 0, len(Formats))
	for _, f := range Formats {
		formats = append(formats, f(c))
	}
	return plugin.NewRegistry(formats...)
}
