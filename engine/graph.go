package engine

import (
	"slices"

	"github.com/ossrs/go-oryx-lib/errors"
	"github.com/vsariola/bats"
)

type (
	// Graph is the authoritative engine state: the tracks, in creation order,
	// and the transport. It is owned by the audio thread; nothing else may
	// touch it once the engine runs.
	Graph struct {
		sampleRate int
		bufferSize int
		tracks     []*Track
		transport  Transport
		changed    bool // structure or flags changed since the last view
	}

	// view is the published, immutable copy of the structural part of the
	// graph.
	view struct {
		tracks          []bats.TrackInfo
		instances       []bats.PluginInstanceInfo
		bpm             float64
		metronomeVolume float32
	}
)

const tracksCapacity = 64

// ErrInvariant is returned by Graph when its internal state is found to be
// inconsistent. The engine treats it as fatal.
var ErrInvariant = errors.New("engine graph invariant violated")

// ErrUnknownCommand is returned for a command of an unknown kind.
var ErrUnknownCommand = errors.New("unknown command kind")

func NewGraph(sampleRate, bufferSize int) *Graph {
	return &Graph{
		sampleRate: sampleRate,
		bufferSize: bufferSize,
		tracks:     make([]*Track, 0, tracksCapacity),
		transport:  NewTransport(sampleRate, DefaultBPM),
		changed:    true,
	}
}

// Apply applies cmd and reports the outcome. Failed commands leave the graph
// unmodified. A Result with Err == ErrInvariant means the graph is no longer
// trustworthy.
func (g *Graph) Apply(cmd Command) Result {
	r := Result{Seq: cmd.seq, Kind: cmd.Kind, Track: cmd.Track, Instance: cmd.Instance}
	switch cmd.Kind {
	case KindMakeTrack:
		r.Err = g.MakeTrack(cmd.NewTrack)
		switch {
		case r.Err == nil:
			r.Undo = DeleteTrack(cmd.Track)
		case cmd.NewTrack != nil:
			r.Released = cmd.NewTrack.Instances
		}
	case KindDeleteTrack:
		r.Released, r.Err = g.DeleteTrack(cmd.Track)
	case KindInstantiatePlugin:
		r.Err = g.InstantiatePlugin(cmd.Track, cmd.NewInstance)
		switch {
		case r.Err == nil:
			r.Undo = DeletePluginInstance(cmd.Track, cmd.Instance)
		case cmd.NewInstance != nil:
			r.Released = cmd.NewInstance.self[:]
		}
	case KindDeletePluginInstance:
		var inst *Instance
		inst, r.Err = g.DeletePluginInstance(cmd.Track, cmd.Instance)
		if inst != nil {
			r.Released = inst.self[:]
		}
	case KindSetVolume:
		var old float32
		old, r.Err = g.SetVolume(cmd.Track, cmd.Volume)
		if r.Err == nil {
			r.Undo = SetVolume(cmd.Track, old)
		}
	case KindSetEnabled:
		var old bool
		old, r.Err = g.SetEnabled(cmd.Track, cmd.Enabled)
		if r.Err == nil {
			r.Undo = SetEnabled(cmd.Track, old)
		}
	case KindSetParam:
		var old float32
		old, r.Err = g.SetParam(cmd.Track, cmd.Instance, cmd.Param, cmd.Value)
		if r.Err == nil {
			r.Undo = SetParam(cmd.Track, cmd.Instance, cmd.Param, old)
		}
	case KindSetBPM:
		r.Undo = SetBPM(g.transport.BPM())
		g.transport.SetBPM(cmd.BPM)
		g.changed = true
	case KindSetMetronomeVolume:
		r.Undo = SetMetronomeVolume(g.transport.Volume())
		g.transport.SetVolume(cmd.Volume)
		g.changed = true
	default:
		r.Err = ErrUnknownCommand
	}
	return r
}

// MakeTrack inserts t at the end of the track list. It can only fail if the
// id of t is already in use, which means the id allocator was bypassed.
func (g *Graph) MakeTrack(t *Track) error {
	if t == nil {
		return ErrInvariant
	}
	if _, old := g.track(t.ID); old != nil {
		return ErrInvariant
	}
	for _, inst := range t.Instances {
		if !inst.valid() {
			return bats.ErrPluginInstantiationFailed
		}
		if g.hasInstance(inst.ID) {
			return ErrInvariant
		}
		if inst.track != t.ID {
			inst.track = t.ID
		}
	}
	if v := clampVolume(t.Volume); v != t.Volume {
		t.Volume = v
	}
	g.tracks = append(g.tracks, t)
	g.changed = true
	return nil
}

// DeleteTrack removes the track and returns its detached instances, which
// the caller must close off the audio thread.
func (g *Graph) DeleteTrack(id bats.TrackID) ([]*Instance, error) {
	i, t := g.track(id)
	if t == nil {
		return nil, bats.ErrUnknownTrack
	}
	g.tracks = slices.Delete(g.tracks, i, i+1)
	g.changed = true
	return t.Instances, nil
}

// InstantiatePlugin appends inst to the end of the chain of the track.
func (g *Graph) InstantiatePlugin(track bats.TrackID, inst *Instance) error {
	_, t := g.track(track)
	if t == nil {
		return bats.ErrUnknownTrack
	}
	if !inst.valid() {
		return bats.ErrPluginInstantiationFailed
	}
	if g.hasInstance(inst.ID) {
		return ErrInvariant
	}
	inst.track = track
	t.Instances = append(t.Instances, inst)
	g.changed = true
	return nil
}

// DeletePluginInstance removes the instance from the chain of the track and
// returns it detached.
func (g *Graph) DeletePluginInstance(track bats.TrackID, id bats.InstanceID) (*Instance, error) {
	_, t := g.track(track)
	if t == nil {
		return nil, bats.ErrUnknownTrack
	}
	i, inst := t.instance(id)
	if inst == nil {
		return nil, bats.ErrUnknownPluginInstance
	}
	t.Instances = slices.Delete(t.Instances, i, i+1)
	g.changed = true
	return inst, nil
}

func (g *Graph) SetVolume(track bats.TrackID, volume float32) (old float32, err error) {
	_, t := g.track(track)
	if t == nil {
		return 0, bats.ErrUnknownTrack
	}
	old, t.Volume = t.Volume, clampVolume(volume)
	g.changed = true
	return old, nil
}

func (g *Graph) SetEnabled(track bats.TrackID, enabled bool) (old bool, err error) {
	_, t := g.track(track)
	if t == nil {
		return false, bats.ErrUnknownTrack
	}
	old, t.Enabled = t.Enabled, enabled
	g.changed = true
	return old, nil
}

func (g *Graph) SetParam(track bats.TrackID, id bats.InstanceID, param int, value float32) (old float32, err error) {
	_, t := g.track(track)
	if t == nil {
		return 0, bats.ErrUnknownTrack
	}
	_, inst := t.instance(id)
	if inst == nil {
		return 0, bats.ErrUnknownPluginInstance
	}
	p, ok := inst.Unit.(bats.Parametrized)
	if !ok || !hasParam(p, param) {
		return 0, bats.ErrUnknownParam
	}
	old = p.Param(param)
	p.SetParam(param, value)
	return old, nil
}

// Tracks returns the live tracks in creation order. The slice is owned by
// the graph.
func (g *Graph) Tracks() []*Track {
	return g.tracks
}

func (g *Graph) Track(id bats.TrackID) (*Track, bool) {
	_, t := g.track(id)
	return t, t != nil
}

func (g *Graph) Transport() *Transport {
	return &g.transport
}

// Verify checks the links between tracks and instances.
func (g *Graph) Verify() error {
	for _, t := range g.tracks {
		if t == nil {
			return ErrInvariant
		}
		for _, inst := range t.Instances {
			if inst == nil || inst.Unit == nil || inst.track != t.ID {
				return ErrInvariant
			}
		}
	}
	return nil
}

func (g *Graph) track(id bats.TrackID) (int, *Track) {
	for i, t := range g.tracks {
		if t.ID == id {
			return i, t
		}
	}
	return -1, nil
}

func (g *Graph) hasInstance(id bats.InstanceID) bool {
	for _, t := range g.tracks {
		if _, inst := t.instance(id); inst != nil {
			return true
		}
	}
	return false
}

func hasParam(p bats.Parametrized, id int) bool {
	for _, info := range p.Params() {
		if info.ID == id {
			return true
		}
	}
	return false
}

// view builds the immutable published copy of the graph. It allocates, so it
// is only done after the graph has changed.
func (g *Graph) view() *view {
	v := &view{
		tracks:          make([]bats.TrackInfo, len(g.tracks)),
		bpm:             g.transport.BPM(),
		metronomeVolume: g.transport.Volume(),
	}
	for i, t := range g.tracks {
		v.tracks[i] = t.info()
		for _, inst := range t.Instances {
			v.instances = append(v.instances, inst.info())
		}
	}
	return v
}
