package engine

import (
	"math"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/vsariola/bats"
)

type (
	// Snapshot is a consistent, point in time copy of the engine visible
	// state. Its slices are shared between readers and must not be modified.
	Snapshot struct {
		Sequence  uint64 // number of buffers processed
		Time      time.Time
		State     State
		Settings  bats.Settings
		Load      Load
		Peak      [2]float32 // master peak of the last buffer
		Tracks    []bats.TrackInfo
		Instances []bats.PluginInstanceInfo
	}

	// SnapshotStore holds the latest Snapshot. It is written only by the
	// audio thread and read by anyone.
	//
	// Writes follow a sequence counter protocol: the writer makes the counter
	// odd, stores every field, and makes it even again. A reader that saw the
	// same even counter before and after reading all fields has a consistent
	// copy; otherwise it retries. All fields are atomics, so the writer never
	// waits for readers and never allocates; only the structural view is
	// replaced by pointer, when the graph changes.
	SnapshotStore struct {
		static bats.Settings

		seq      atomic.Uint64
		view     atomic.Pointer[view]
		sequence atomic.Uint64
		nanos    atomic.Int64
		state    atomic.Int32
		smoothed atomic.Uint64
		last     atomic.Uint64
		peakLoad atomic.Uint64
		overrun  atomic.Bool
		overruns atomic.Uint64
		peakL    atomic.Uint32
		peakR    atomic.Uint32
		dropped  atomic.Uint64
		lastLost atomic.Uint64
	}

	publication struct {
		view     *view // nil: unchanged
		sequence uint64
		time     time.Time
		state    State
		load     Load
		peak     [2]float32
	}
)

// NewSnapshotStore returns a store holding an empty, idle snapshot. static
// carries the fields of the settings that never change during a session.
func NewSnapshotStore(static bats.Settings) *SnapshotStore {
	s := &SnapshotStore{static: static}
	s.view.Store(&view{bpm: DefaultBPM})
	return s
}

func (s *SnapshotStore) publish(p *publication) {
	s.seq.Add(1)
	if p.view != nil {
		s.view.Store(p.view)
	}
	s.sequence.Store(p.sequence)
	s.nanos.Store(p.time.UnixNano())
	s.state.Store(int32(p.state))
	s.smoothed.Store(math.Float64bits(p.load.Smoothed))
	s.last.Store(math.Float64bits(p.load.Last))
	s.peakLoad.Store(math.Float64bits(p.load.Peak))
	s.overrun.Store(p.load.Overrun)
	s.overruns.Store(p.load.Overruns)
	s.peakL.Store(math.Float32bits(p.peak[0]))
	s.peakR.Store(math.Float32bits(p.peak[1]))
	s.seq.Add(1)
}

func (s *SnapshotStore) addDropped(n, lastSeq uint64) {
	if lastSeq > s.lastLost.Load() {
		s.lastLost.Store(lastSeq)
	}
	s.dropped.Add(n)
}

// LastDropped returns the highest sequence number whose result could not be
// sent because the result channel was full, or 0. It is stored after the
// results sent before it, so a reader that sees it and then empties the
// result channel has received every result up to it that was not dropped.
func (s *SnapshotStore) LastDropped() uint64 {
	return s.lastLost.Load()
}

// Load returns the latest snapshot.
func (s *SnapshotStore) Load() Snapshot {
	for {
		before := s.seq.Load()
		if before&1 == 1 {
			runtime.Gosched()
			continue
		}
		v := s.view.Load()
		snap := Snapshot{
			Sequence: s.sequence.Load(),
			State:    State(s.state.Load()),
			Load: Load{
				Smoothed: math.Float64frombits(s.smoothed.Load()),
				Last:     math.Float64frombits(s.last.Load()),
				Peak:     math.Float64frombits(s.peakLoad.Load()),
				Overrun:  s.overrun.Load(),
				Overruns: s.overruns.Load(),
			},
			Peak: [2]float32{
				math.Float32frombits(s.peakL.Load()),
				math.Float32frombits(s.peakR.Load()),
			},
			Tracks:    v.tracks,
			Instances: v.instances,
		}
		nanos := s.nanos.Load()
		if s.seq.Load() != before {
			continue
		}
		if nanos != 0 {
			snap.Time = time.Unix(0, nanos)
		}
		snap.Settings = s.static
		snap.Settings.CPULoad = snap.Load.CPULoad()
		snap.Settings.BPM = v.bpm
		snap.Settings.MetronomeVolume = v.metronomeVolume
		snap.Settings.State = snap.State.String()
		snap.Settings.Overruns = snap.Load.Overruns
		snap.Settings.DroppedResults = s.dropped.Load()
		return snap
	}
}

// State returns the engine state of the latest snapshot.
func (s *SnapshotStore) State() State {
	return State(s.state.Load())
}

// Track finds a track of the snapshot by id.
func (s Snapshot) Track(id bats.TrackID) (bats.TrackInfo, bool) {
	for _, t := range s.Tracks {
		if t.ID == id {
			return t, true
		}
	}
	return bats.TrackInfo{}, false
}

// Instance finds a plugin instance of the snapshot by id.
func (s Snapshot) Instance(id bats.InstanceID) (bats.PluginInstanceInfo, bool) {
	for _, inst := range s.Instances {
		if inst.ID == id {
			return inst, true
		}
	}
	return bats.PluginInstanceInfo{}, false
}
