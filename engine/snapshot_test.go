package engine_test

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/vsariola/bats"
	"github.com/vsariola/bats/engine"
)

func TestSnapshotConsistentUnderConcurrentReaders(t *testing.T) {
	e, b := newTestEngine(engine.Options{ClientName: "test", Session: "s"})
	var stop atomic.Bool
	var wg sync.WaitGroup
	errs := make(chan string, 8)
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var last uint64
			for !stop.Load() {
				snap := e.Store().Load()
				if snap.Sequence < last {
					errs <- "sequence went backwards"
					return
				}
				last = snap.Sequence
				// every track carries exactly one instance
				if len(snap.Instances) != len(snap.Tracks) {
					errs <- "instances do not match tracks"
					return
				}
				for _, tr := range snap.Tracks {
					if len(tr.PluginInstances) != 1 {
						errs <- "track without its instance"
						return
					}
				}
				if snap.Settings.ClientName != "test" || snap.Settings.SampleRate != 1000 {
					errs <- "static settings lost"
					return
				}
			}
		}()
	}
	var ids engine.IDs
	var live []bats.TrackID
	for i := 0; i < 2000; i++ {
		if len(live) < 5 {
			id := ids.NextTrack()
			inst := engine.NewInstance(ids.NextInstance(), "test:const", &constUnit{value: 0.1})
			push(b, engine.MakeTrack(engine.NewTrack(id, inst)))
			live = append(live, id)
		} else {
			push(b, engine.DeleteTrack(live[0]))
			live = live[1:]
		}
		process(e, 4)
		results(b)
	}
	stop.Store(true)
	wg.Wait()
	close(errs)
	for msg := range errs {
		t.Error(msg)
	}
	snap := e.Store().Load()
	if snap.Sequence != 2000 {
		t.Errorf("sequence = %d, want 2000", snap.Sequence)
	}
	if len(snap.Tracks) != len(live) {
		t.Errorf("snapshot has %d tracks, want %d", len(snap.Tracks), len(live))
	}
}

func TestSnapshotSettings(t *testing.T) {
	e, b := newTestEngine(engine.Options{BPM: 90})
	push(b, engine.SetMetronomeVolume(0.3), engine.SetBPM(5))
	process(e, 4)
	s := e.Store().Load().Settings
	if s.BPM != engine.MinBPM {
		t.Errorf("bpm = %v, want it clamped to %v", s.BPM, engine.MinBPM)
	}
	if s.MetronomeVolume != 0.3 {
		t.Errorf("metronome volume = %v, want 0.3", s.MetronomeVolume)
	}
	if s.SampleRate != 1000 || s.BufferSize != 4 || s.State != "running" {
		t.Errorf("settings = %+v", s)
	}
	if s.CPULoad < 0 || s.CPULoad > 1 {
		t.Errorf("CPULoad = %v out of range", s.CPULoad)
	}
}
