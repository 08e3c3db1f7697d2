package control

import (
	"slices"

	"github.com/vsariola/bats"
	"github.com/vsariola/bats/engine"
)

type (
	// shadow is the optimistic model of the graph kept by the facade: the
	// state the graph will have once every command sent so far has been
	// applied. It lets the facade answer "unknown track" and similar without
	// waiting for the audio thread. It is rebuilt from the snapshot whenever
	// the engine rejects a command the shadow had accepted.
	shadow struct {
		tracks []shadowTrack
	}

	shadowTrack struct {
		id        bats.TrackID
		volume    float32
		enabled   bool
		instances []shadowInstance
	}

	shadowInstance struct {
		id     bats.InstanceID
		plugin bats.PluginID
		params []bats.ParamInfo
		values map[int]float32
	}
)

func newShadowInstance(inst *engine.Instance) shadowInstance {
	s := shadowInstance{id: inst.ID, plugin: inst.Descriptor}
	if p, ok := inst.Unit.(bats.Parametrized); ok {
		s.params = p.Params()
		s.values = make(map[int]float32, len(s.params))
		for _, info := range s.params {
			s.values[info.ID] = p.Param(info.ID)
		}
	}
	return s
}

func (s *shadow) track(id bats.TrackID) *shadowTrack {
	for i := range s.tracks {
		if s.tracks[i].id == id {
			return &s.tracks[i]
		}
	}
	return nil
}

func (t *shadowTrack) instance(id bats.InstanceID) *shadowInstance {
	for i := range t.instances {
		if t.instances[i].id == id {
			return &t.instances[i]
		}
	}
	return nil
}

func (s *shadow) instance(id bats.InstanceID) (*shadowTrack, *shadowInstance) {
	for i := range s.tracks {
		if inst := s.tracks[i].instance(id); inst != nil {
			return &s.tracks[i], inst
		}
	}
	return nil, nil
}

func (i *shadowInstance) hasParam(id int) bool {
	for _, p := range i.params {
		if p.ID == id {
			return true
		}
	}
	return false
}

// check reports the error the graph would return for cmd.
func (s *shadow) check(cmd engine.Command) error {
	switch cmd.Kind {
	case engine.KindMakeTrack, engine.KindSetBPM, engine.KindSetMetronomeVolume:
		return nil
	}
	t := s.track(cmd.Track)
	if t == nil {
		return bats.ErrUnknownTrack
	}
	switch cmd.Kind {
	case engine.KindDeletePluginInstance:
		if t.instance(cmd.Instance) == nil {
			return bats.ErrUnknownPluginInstance
		}
	case engine.KindSetParam:
		inst := t.instance(cmd.Instance)
		if inst == nil {
			return bats.ErrUnknownPluginInstance
		}
		if !inst.hasParam(cmd.Param) {
			return bats.ErrUnknownParam
		}
	}
	return nil
}

// apply mirrors the effect of a command the graph accepts.
func (s *shadow) apply(cmd engine.Command, created []shadowInstance) {
	switch cmd.Kind {
	case engine.KindMakeTrack:
		s.tracks = append(s.tracks, shadowTrack{
			id:        cmd.Track,
			volume:    cmd.Volume,
			enabled:   cmd.Enabled,
			instances: created,
		})
	case engine.KindDeleteTrack:
		s.tracks = slices.DeleteFunc(s.tracks, func(t shadowTrack) bool { return t.id == cmd.Track })
	case engine.KindInstantiatePlugin:
		if t := s.track(cmd.Track); t != nil {
			t.instances = append(t.instances, created...)
		}
	case engine.KindDeletePluginInstance:
		if t := s.track(cmd.Track); t != nil {
			t.instances = slices.DeleteFunc(t.instances, func(i shadowInstance) bool { return i.id == cmd.Instance })
		}
	case engine.KindSetVolume:
		if t := s.track(cmd.Track); t != nil {
			t.volume = clampVolume(cmd.Volume)
		}
	case engine.KindSetEnabled:
		if t := s.track(cmd.Track); t != nil {
			t.enabled = cmd.Enabled
		}
	case engine.KindSetParam:
		if t := s.track(cmd.Track); t != nil {
			if inst := t.instance(cmd.Instance); inst != nil && inst.values != nil {
				inst.values[cmd.Param] = cmd.Value
			}
		}
	}
}

// rebuild replaces the structure with the one of snap, keeping what the
// snapshot does not carry for the instances that survive.
func (s *shadow) rebuild(snap engine.Snapshot) {
	old := s.tracks
	s.tracks = make([]shadowTrack, 0, len(snap.Tracks))
	for _, info := range snap.Tracks {
		t := shadowTrack{id: info.ID, volume: info.Volume, enabled: info.Enabled}
		for _, id := range info.PluginInstances {
			inst := shadowInstance{id: id}
			if pi, ok := snap.Instance(id); ok {
				inst.plugin = pi.Descriptor
			}
			for i := range old {
				if prev := old[i].instance(id); prev != nil {
					inst.params, inst.values = prev.params, prev.values
					break
				}
			}
			t.instances = append(t.instances, inst)
		}
		s.tracks = append(s.tracks, t)
	}
}

func clampVolume(v float32) float32 {
	if v != v { // NaN
		return 0
	}
	return min(max(v, 0), engine.MaxVolume)
}
