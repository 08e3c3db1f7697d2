package control

import (
	"bytes"
	"os"

	"github.com/ossrs/go-oryx-lib/errors"
	"github.com/vsariola/bats"
	"gopkg.in/yaml.v3"
)

type (
	// Session is the saved form of an engine graph: the tracks in order, with
	// their plugin chains and parameter values, and the transport settings.
	// Ids are not saved; loading allocates new ones.
	Session struct {
		BPM             float64        `yaml:",omitempty"`
		MetronomeVolume float32        `yaml:"metronomevolume,omitempty"`
		Tracks          []SessionTrack `yaml:",omitempty"`
	}

	SessionTrack struct {
		Volume  float32
		Enabled bool
		Plugins []SessionPlugin `yaml:",omitempty"`
	}

	SessionPlugin struct {
		ID     bats.PluginID
		Params map[int]float32 `yaml:",omitempty"`
	}
)

// Session captures the current graph. Structure comes from the latest
// snapshot; parameter values are the ones set through this facade, or the
// values the plugin had when it was instantiated.
func (c *Control) Session() Session {
	snap := c.store.Load()
	c.mutex.Lock()
	defer c.mutex.Unlock()
	s := Session{BPM: snap.Settings.BPM, MetronomeVolume: snap.Settings.MetronomeVolume}
	for _, t := range snap.Tracks {
		st := SessionTrack{Volume: t.Volume, Enabled: t.Enabled}
		for _, id := range t.PluginInstances {
			info, ok := snap.Instance(id)
			if !ok {
				continue
			}
			p := SessionPlugin{ID: info.Descriptor}
			if _, inst := c.shadow.instance(id); inst != nil && len(inst.values) > 0 {
				p.Params = make(map[int]float32, len(inst.values))
				for k, v := range inst.values {
					p.Params[k] = v
				}
			}
			st.Plugins = append(st.Plugins, p)
		}
		s.Tracks = append(s.Tracks, st)
	}
	return s
}

// Load appends the tracks of s to the graph and applies its transport
// settings. It stops at the first error; the tracks made so far are kept.
func (c *Control) Load(s Session) error {
	if s.BPM > 0 {
		if err := c.SetBPM(s.BPM); err != nil {
			return err
		}
	}
	if err := c.SetMetronomeVolume(s.MetronomeVolume); err != nil {
		return err
	}
	for i, st := range s.Tracks {
		ids := make([]bats.PluginID, len(st.Plugins))
		for j, p := range st.Plugins {
			ids[j] = p.ID
		}
		track, err := c.MakeTrack(WithPlugins(ids...), WithVolume(st.Volume), WithEnabled(st.Enabled))
		if err != nil {
			return errors.Wrapf(err, "track %d", i)
		}
		c.mutex.Lock()
		var instances []bats.InstanceID
		if t := c.shadow.track(track); t != nil {
			for _, inst := range t.instances {
				instances = append(instances, inst.id)
			}
		}
		c.mutex.Unlock()
		for j, p := range st.Plugins {
			if j >= len(instances) {
				break
			}
			for param, v := range p.Params {
				if err := c.SetParam(track, instances[j], param, v); err != nil {
					return errors.Wrapf(err, "track %d plugin %v param %d", i, p.ID, param)
				}
			}
		}
	}
	return nil
}

func ReadSession(path string) (Session, error) {
	var s Session
	b, err := os.ReadFile(path)
	if err != nil {
		return s, errors.Wrapf(err, "read session %v", path)
	}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return s, errors.Wrapf(err, "parse session %v", path)
	}
	return s, nil
}

func WriteSession(path string, s Session) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return errors.Wrapf(err, "encode session")
	}
	if err := enc.Close(); err != nil {
		return errors.Wrapf(err, "encode session")
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return errors.Wrapf(err, "write session %v", path)
	}
	return nil
}
