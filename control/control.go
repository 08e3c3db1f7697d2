// Package control is the facade through which non real-time callers (the
// console, the CLI, session files) mutate and query the engine.
package control

import (
	"context"
	"sync"
	"time"

	"github.com/ossrs/go-oryx-lib/errors"
	"github.com/ossrs/go-oryx-lib/logger"
	"github.com/vsariola/bats"
	"github.com/vsariola/bats/engine"
)

type (
	// Catalog lists and constructs plugins; a *plugin.Registry is one.
	Catalog interface {
		Plugins() []bats.PluginDescriptor
		Instantiate(id bats.PluginID, sampleRate, bufferSize int) (bats.Unit, error)
	}

	// Control is the control facade of one engine. Mutations build what they
	// need on the calling goroutine, validate against an optimistic model of
	// the graph, send a command to the audio thread and return without
	// waiting for it. Queries read the latest engine snapshot.
	//
	// The results of the commands are consumed by Run, which must be running
	// for Sync, Await, Undo and the release of deleted plugins to work.
	// Control is safe for concurrent use.
	Control struct {
		broker     *engine.Broker
		store      *engine.SnapshotStore
		catalog    Catalog
		sampleRate int
		bufferSize int

		mutex     sync.Mutex
		shadow    shadow
		dirty     bool
		faulted   bool
		pushed    uint64 // seq of the latest command sent
		completed uint64 // seq of the latest result received
		pruned    uint64 // results below this seq have been forgotten
		results   map[uint64]engine.Result
		undoSeqs  map[uint64]struct{}
		history   []engine.Command
		changed   chan struct{}

		closeRun chan struct{}
		finished chan struct{}
		started  bool
		stopped  bool
	}

	// TrackOption configures a track made with MakeTrack.
	TrackOption func(*trackOptions)

	trackOptions struct {
		plugins []bats.PluginID
		volume  float32
		enabled bool
	}
)

const (
	maxUndo          = 64
	maxRecentResults = 256

	droppedPollInterval = 50 * time.Millisecond
)

var (
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrResultLost    = errors.New("command result lost")
	ErrClosed        = errors.New("control closed")
)

// New returns a facade for e. catalog resolves the plugin ids passed to
// MakeTrack and InstantiatePlugin.
func New(e *engine.Engine, catalog Catalog) *Control {
	settings := e.Store().Load().Settings
	return &Control{
		broker:     e.Broker(),
		store:      e.Store(),
		catalog:    catalog,
		sampleRate: settings.SampleRate,
		bufferSize: settings.BufferSize,
		results:    map[uint64]engine.Result{},
		undoSeqs:   map[uint64]struct{}{},
		changed:    make(chan struct{}),
		closeRun:   make(chan struct{}, 1),
		finished:   make(chan struct{}),
	}
}

func WithPlugins(ids ...bats.PluginID) TrackOption {
	return func(o *trackOptions) { o.plugins = append(o.plugins, ids...) }
}

func WithVolume(v float32) TrackOption {
	return func(o *trackOptions) { o.volume = v }
}

func WithEnabled(b bool) TrackOption {
	return func(o *trackOptions) { o.enabled = b }
}

// Plugins returns the catalog of instantiable plugins.
func (c *Control) Plugins() []bats.PluginDescriptor {
	if c.catalog == nil {
		return nil
	}
	return c.catalog.Plugins()
}

// MakeTrack allocates the next track id and creates the track, with the
// plugins of WithPlugins as its initial chain. It fails only if the plugins
// cannot be instantiated, the command channel is full or the engine has
// faulted.
func (c *Control) MakeTrack(opts ...TrackOption) (bats.TrackID, error) {
	o := trackOptions{volume: 1, enabled: true}
	for _, opt := range opts {
		opt(&o)
	}
	instances := make([]*engine.Instance, 0, len(o.plugins))
	created := make([]shadowInstance, 0, len(o.plugins))
	for _, p := range o.plugins {
		inst, err := c.newInstance(p)
		if err != nil {
			closeAll(instances)
			return 0, err
		}
		instances = append(instances, inst)
		created = append(created, newShadowInstance(inst))
	}
	id := c.broker.IDs.NextTrack()
	t := engine.NewTrack(id, instances...)
	t.Volume = clampVolume(o.volume)
	t.Enabled = o.enabled
	if err := c.send(engine.MakeTrack(t), created, false); err != nil {
		closeAll(instances)
		return 0, err
	}
	return id, nil
}

func (c *Control) DeleteTrack(id bats.TrackID) error {
	return c.send(engine.DeleteTrack(id), nil, false)
}

// InstantiatePlugin constructs a unit of the plugin and appends it to the
// chain of the track.
func (c *Control) InstantiatePlugin(track bats.TrackID, plugin bats.PluginID) (bats.InstanceID, error) {
	if err := c.check(engine.Command{Kind: engine.KindInstantiatePlugin, Track: track}); err != nil {
		return 0, err
	}
	inst, err := c.newInstance(plugin)
	if err != nil {
		return 0, err
	}
	id := inst.ID
	if err := c.send(engine.InstantiatePlugin(track, inst), []shadowInstance{newShadowInstance(inst)}, false); err != nil {
		inst.Close()
		return 0, err
	}
	return id, nil
}

func (c *Control) DeletePluginInstance(track bats.TrackID, instance bats.InstanceID) error {
	return c.send(engine.DeletePluginInstance(track, instance), nil, false)
}

func (c *Control) SetVolume(track bats.TrackID, volume float32) error {
	return c.send(engine.SetVolume(track, volume), nil, false)
}

func (c *Control) SetEnabled(track bats.TrackID, enabled bool) error {
	return c.send(engine.SetEnabled(track, enabled), nil, false)
}

func (c *Control) SetParam(track bats.TrackID, instance bats.InstanceID, param int, value float32) error {
	return c.send(engine.SetParam(track, instance, param, value), nil, false)
}

func (c *Control) SetBPM(bpm float64) error {
	return c.send(engine.SetBPM(bpm), nil, false)
}

func (c *Control) SetMetronomeVolume(volume float32) error {
	return c.send(engine.SetMetronomeVolume(volume), nil, false)
}

// Undo reverts the latest confirmed change, by sending its compensating
// command. Changes whose results have not arrived yet cannot be undone.
func (c *Control) Undo() error {
	c.mutex.Lock()
	if len(c.history) == 0 {
		c.mutex.Unlock()
		return ErrNothingToUndo
	}
	cmd := c.history[len(c.history)-1]
	c.history = c.history[:len(c.history)-1]
	c.mutex.Unlock()
	err := c.send(cmd, nil, true)
	if errors.Cause(err) == bats.ErrChannelFull {
		c.mutex.Lock()
		c.history = append(c.history, cmd)
		c.mutex.Unlock()
	}
	return err
}

// CanUndo reports whether there is a confirmed change to undo.
func (c *Control) CanUndo() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return len(c.history) > 0
}

func (c *Control) Tracks() []bats.TrackInfo {
	return c.store.Load().Tracks
}

func (c *Control) Track(id bats.TrackID) (bats.TrackInfo, bool) {
	return c.store.Load().Track(id)
}

func (c *Control) PluginInstance(id bats.InstanceID) (bats.PluginInstanceInfo, bool) {
	return c.store.Load().Instance(id)
}

func (c *Control) Settings() bats.Settings {
	return c.store.Load().Settings
}

// Snapshot returns the latest engine snapshot.
func (c *Control) Snapshot() engine.Snapshot {
	return c.store.Load()
}

// Last returns the sequence number of the latest command sent.
func (c *Control) Last() uint64 {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.pushed
}

func (c *Control) newInstance(plugin bats.PluginID) (*engine.Instance, error) {
	if c.catalog == nil {
		return nil, errors.Wrapf(bats.ErrPluginInstantiationFailed, "no plugin catalog for %v", plugin)
	}
	unit, err := c.catalog.Instantiate(plugin, c.sampleRate, c.bufferSize)
	if err != nil {
		if errors.Cause(err) == bats.ErrPluginInstantiationFailed {
			return nil, err
		}
		return nil, errors.Wrapf(bats.ErrPluginInstantiationFailed, "%v: %v", plugin, err)
	}
	if unit == nil || !engine.SupportedPorts(unit.Ports()) {
		if unit != nil {
			unit.Close()
		}
		return nil, errors.Wrapf(bats.ErrPluginInstantiationFailed, "%v: unsupported ports", plugin)
	}
	return engine.NewInstance(c.broker.IDs.NextInstance(), plugin, unit), nil
}

func (c *Control) check(cmd engine.Command) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.isFaulted() {
		return bats.ErrEngineFaulted
	}
	return c.shadow.check(cmd)
}

// send validates cmd against the shadow, pushes it and mirrors it in the
// shadow. The lock keeps the shadow in the order of the sequence numbers.
func (c *Control) send(cmd engine.Command, created []shadowInstance, undo bool) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.isFaulted() {
		return bats.ErrEngineFaulted
	}
	if err := c.shadow.check(cmd); err != nil {
		return err
	}
	seq, err := c.broker.ToEngine.Push(cmd)
	if err != nil {
		return err
	}
	c.pushed = seq
	if undo {
		c.undoSeqs[seq] = struct{}{}
	}
	c.shadow.apply(cmd, created)
	return nil
}

func (c *Control) isFaulted() bool {
	return c.faulted || c.store.State() == engine.Faulted
}

func closeAll(instances []*engine.Instance) {
	for _, inst := range instances {
		if err := inst.Close(); err != nil {
			logger.Wf(context.Background(), "close %v failed: %v", inst.Descriptor, err)
		}
	}
}
