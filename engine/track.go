package engine

import (
	"github.com/ossrs/go-oryx-lib/errors"
	"github.com/vsariola/bats"
)

type (
	// Track is an ordered chain of plugin instances with a volume and an
	// enabled flag. Tracks are built off the audio thread with NewTrack and
	// from then on owned by the Graph.
	Track struct {
		ID        bats.TrackID
		Volume    float32
		Enabled   bool
		Degraded  bool // sticky: some instance of the track has faulted
		Faults    int
		Instances []*Instance
	}

	// Instance wraps one plugin unit in the graph. The descriptor id of an
	// instance never changes.
	Instance struct {
		ID         bats.InstanceID
		Descriptor bats.PluginID
		Unit       bats.Unit
		Faults     int

		ports     bats.Ports
		track     bats.TrackID
		ins, outs [][]float32
		self      [1]*Instance // backs Result.Released for a single instance
	}

	// stereo is a planar scratch bus.
	stereo struct {
		l, r []float32
	}
)

const (
	// MaxVolume is the upper bound of track volumes; volumes are clamped to
	// [0, MaxVolume].
	MaxVolume = 2

	chainCapacity = 32
)

var errUnitPanicked = errors.New("plugin unit panicked")

// NewTrack returns an enabled track with unit volume and the given chain. The
// chain storage is preallocated so that instantiating plugins on the audio
// thread does not allocate.
func NewTrack(id bats.TrackID, instances ...*Instance) *Track {
	t := &Track{
		ID:        id,
		Volume:    1,
		Enabled:   true,
		Instances: make([]*Instance, 0, max(chainCapacity, len(instances))),
	}
	t.Instances = append(t.Instances, instances...)
	for _, inst := range instances {
		inst.track = id
	}
	return t
}

// NewInstance wraps unit. unit may be nil, in which case applying the
// instance to a graph fails with bats.ErrPluginInstantiationFailed.
func NewInstance(id bats.InstanceID, descriptor bats.PluginID, unit bats.Unit) *Instance {
	inst := &Instance{
		ID:         id,
		Descriptor: descriptor,
		Unit:       unit,
		ins:        make([][]float32, 0, 2),
		outs:       make([][]float32, 0, 2),
	}
	if unit != nil {
		inst.ports = unit.Ports()
	}
	inst.self[0] = inst
	return inst
}

// SupportedPorts reports whether the engine can route a unit with the given
// layout: up to two audio inputs and one or two audio outputs.
func SupportedPorts(p bats.Ports) bool {
	return p.AudioIn >= 0 && p.AudioIn <= 2 && (p.AudioOut == 1 || p.AudioOut == 2)
}

func (i *Instance) valid() bool {
	return i != nil && i.Unit != nil && SupportedPorts(i.ports)
}

func (i *Instance) Ports() bats.Ports {
	return i.ports
}

// Close closes the unit. Never call it on the audio thread.
func (i *Instance) Close() error {
	if i.Unit == nil {
		return nil
	}
	if err := i.Unit.Close(); err != nil {
		return errors.Wrapf(err, "close instance %d (%v)", i.ID, i.Descriptor)
	}
	return nil
}

func (i *Instance) info() bats.PluginInstanceInfo {
	return bats.PluginInstanceInfo{ID: i.ID, Track: i.track, Descriptor: i.Descriptor, Faults: i.Faults}
}

// process runs the unit from bus in to bus out over n frames. A mono output
// is copied to both channels of out. A panicking unit is reported as a fault
// like a unit returning an error.
func (i *Instance) process(in, out *stereo, n int, events []bats.MIDIEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errUnitPanicked
		}
	}()
	i.ins = i.ins[:0]
	switch i.ports.AudioIn {
	case 1:
		i.ins = append(i.ins, in.l[:n])
	case 2:
		i.ins = append(i.ins, in.l[:n], in.r[:n])
	}
	i.outs = append(i.outs[:0], out.l[:n])
	if i.ports.AudioOut == 2 {
		i.outs = append(i.outs, out.r[:n])
	}
	if !i.ports.MIDIIn {
		events = nil
	}
	err = i.Unit.Process(i.ins, i.outs, events)
	if i.ports.AudioOut == 1 {
		copy(out.r[:n], out.l[:n])
	}
	return err
}

func (t *Track) info() bats.TrackInfo {
	ids := make([]bats.InstanceID, len(t.Instances))
	for i, inst := range t.Instances {
		ids[i] = inst.ID
	}
	return bats.TrackInfo{
		ID:              t.ID,
		Volume:          t.Volume,
		Enabled:         t.Enabled,
		Degraded:        t.Degraded,
		Faults:          t.Faults,
		PluginInstances: ids,
	}
}

func (t *Track) instance(id bats.InstanceID) (int, *Instance) {
	for i, inst := range t.Instances {
		if inst.ID == id {
			return i, inst
		}
	}
	return -1, nil
}

func clampVolume(v float32) float32 {
	if v != v || v < 0 { // NaN or negative
		return 0
	}
	if v > MaxVolume {
		return MaxVolume
	}
	return v
}

func (s *stereo) clear(n int) {
	clear(s.l[:n])
	clear(s.r[:n])
}

func (s *stereo) grow(n int) {
	if len(s.l) < n {
		s.l = make([]float32, n)
		s.r = make([]float32, n)
	}
}
