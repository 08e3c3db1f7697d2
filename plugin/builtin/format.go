// Package builtin implements the plugins that ship with bats, under the
// namespace "bats".
package builtin

import (
	"github.com/ossrs/go-oryx-lib/errors"
	"github.com/vsariola/bats"
)

type (
	// Format is the bats.Format of the built-in plugins.
	Format struct{}

	entry struct {
		descriptor bats.PluginDescriptor
		new        func(sampleRate int) bats.Unit
	}
)

const Namespace = "bats"

var entries = []entry{
	{
		descriptor: bats.PluginDescriptor{
			ID: bats.NewPluginID(Namespace, "toof"), Name: "toof", Classes: []string{"instrument", "synth"},
			Instrument: true, Ports: bats.Ports{AudioOut: 2, MIDIIn: true}, Params: toofParams,
		},
		new: func(sampleRate int) bats.Unit { return NewToof(sampleRate) },
	},
	{
		descriptor: bats.PluginDescriptor{
			ID: bats.NewPluginID(Namespace, "moog"), Name: "moog filter", Classes: []string{"filter", "lowpass"},
			Ports: bats.Ports{AudioIn: 2, AudioOut: 2, MIDIIn: true}, Params: moogParams,
		},
		new: func(sampleRate int) bats.Unit { return NewMoog(sampleRate) },
	},
	{
		descriptor: bats.PluginDescriptor{
			ID: bats.NewPluginID(Namespace, "gain"), Name: "gain", Classes: []string{"utility"},
			Ports: bats.Ports{AudioIn: 2, AudioOut: 2}, Params: gainParams,
		},
		new: func(sampleRate int) bats.Unit { return NewGain() },
	},
	{
		descriptor: bats.PluginDescriptor{
			ID: bats.NewPluginID(Namespace, "empty"), Name: "empty", Classes: []string{"instrument"},
			Instrument: true, Ports: bats.Ports{AudioOut: 2, MIDIIn: true},
		},
		new: func(sampleRate int) bats.Unit { return Empty{} },
	},
}

func (Format) Namespace() string { return Namespace }

func (Format) Plugins() []bats.PluginDescriptor {
	ret := make([]bats.PluginDescriptor, len(entries))
	for i, e := range entries {
		ret[i] = e.descriptor
	}
	return ret
}

func (Format) Instantiate(id bats.PluginID, sampleRate, bufferSize int) (bats.Unit, error) {
	if sampleRate <= 0 {
		return nil, errors.Errorf("invalid sample rate %d", sampleRate)
	}
	for _, e := range entries {
		if e.descriptor.ID == id {
			return e.new(sampleRate), nil
		}
	}
	return nil, errors.Errorf("unknown built-in plugin %v", id)
}
