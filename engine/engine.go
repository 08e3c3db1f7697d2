package engine

import (
	"time"

	"github.com/viterin/vek/vek32"
	"github.com/vsariola/bats"
)

type (
	// Engine is the real-time audio callback. Process is called by the audio
	// backend once per buffer, always from the same goroutine (the audio
	// thread). It applies a bounded number of queued commands to the Graph,
	// renders the graph into the buffer, measures the load and publishes a
	// Snapshot. It never blocks, never logs and does not allocate unless the
	// graph changed.
	Engine struct {
		graph  *Graph
		broker *Broker
		store  *SnapshotStore
		state  State

		drained []Command
		results []Result
		events  []bats.MIDIEvent
		scratch [2]stereo
		mix     stereo
		tmp     []float32

		load       loadMeter
		guard      bool
		sampleRate int
		sequence   uint64
		now        func() time.Time
	}

	// Options configure an Engine. Zero fields get their defaults.
	Options struct {
		ClientName           string
		Session              string
		SampleRate           int
		BufferSize           int
		MaxCommandsPerBuffer int
		LoadTimeConstant     time.Duration
		// OverrunGuard makes the callback skip the remaining tracks once the
		// buffer period has elapsed.
		OverrunGuard    bool
		BPM             float64
		MetronomeVolume float32
		// Clock replaces time.Now, for tests.
		Clock func() time.Time
	}

	// ProcessContext gives the MIDI events of the current buffer. NextEvent
	// returns the next pending event; frame is the current frame of the
	// buffer. FinishBlock is called with the length of the buffer once it has
	// been processed.
	ProcessContext interface {
		NextEvent(frame int) (event bats.MIDIEvent, ok bool)
		FinishBlock(frame int)
	}

	NullProcessContext struct{}

	State int32
)

const (
	Idle State = iota
	Running
	Faulted
)

const (
	DefaultSampleRate           = 44100
	DefaultBufferSize           = 512
	DefaultMaxCommandsPerBuffer = 64
	maxEventsPerBuffer          = 256
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Faulted:
		return "faulted"
	}
	return "unknown"
}

func DefaultOptions() Options {
	return Options{
		ClientName:           "bats",
		SampleRate:           DefaultSampleRate,
		BufferSize:           DefaultBufferSize,
		MaxCommandsPerBuffer: DefaultMaxCommandsPerBuffer,
		LoadTimeConstant:     DefaultLoadTimeConstant,
		OverrunGuard:         true,
		BPM:                  DefaultBPM,
	}
}

func New(broker *Broker, o Options) *Engine {
	d := DefaultOptions()
	if o.SampleRate <= 0 {
		o.SampleRate = d.SampleRate
	}
	if o.BufferSize <= 0 {
		o.BufferSize = d.BufferSize
	}
	if o.MaxCommandsPerBuffer <= 0 {
		o.MaxCommandsPerBuffer = d.MaxCommandsPerBuffer
	}
	if o.LoadTimeConstant <= 0 {
		o.LoadTimeConstant = d.LoadTimeConstant
	}
	if o.BPM <= 0 {
		o.BPM = d.BPM
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	e := &Engine{
		graph:  NewGraph(o.SampleRate, o.BufferSize),
		broker: broker,
		store: NewSnapshotStore(bats.Settings{
			ClientName: o.ClientName,
			Session:    o.Session,
			SampleRate: o.SampleRate,
			BufferSize: o.BufferSize,
		}),
		drained:    make([]Command, o.MaxCommandsPerBuffer),
		results:    make([]Result, 0, o.MaxCommandsPerBuffer+1),
		events:     make([]bats.MIDIEvent, 0, maxEventsPerBuffer),
		load:       loadMeter{tau: o.LoadTimeConstant},
		guard:      o.OverrunGuard,
		sampleRate: o.SampleRate,
		now:        o.Clock,
	}
	e.graph.transport.SetBPM(o.BPM)
	e.graph.transport.SetVolume(o.MetronomeVolume)
	e.grow(o.BufferSize)
	e.store.publish(&publication{view: e.graph.view(), state: Idle})
	e.graph.changed = false
	return e
}

func (e *Engine) Store() *SnapshotStore {
	return e.store
}

func (e *Engine) Broker() *Broker {
	return e.broker
}

// Graph exposes the graph for inspection in tests. It must not be touched
// while the audio thread runs.
func (e *Engine) Graph() *Graph {
	return e.graph
}

// Process renders one buffer. buffer is always filled completely: with
// silence if the engine is faulted, and partly with silence if the period
// ran out while rendering.
func (e *Engine) Process(buffer bats.AudioBuffer, context ProcessContext) {
	start := e.now()
	frames := len(buffer)
	e.grow(frames)
	if e.state != Faulted {
		e.state = Running
	}
	e.applyCommands()
	e.collectEvents(context, frames)
	var overrun bool
	var peak [2]float32
	if e.state == Faulted {
		buffer.Clear()
	} else {
		overrun = e.render(buffer, start, e.period(frames))
		peak = e.peak(frames)
	}
	e.load.update(e.now().Sub(start), e.period(frames), overrun)
	e.sequence++
	p := publication{
		sequence: e.sequence,
		time:     start,
		state:    e.state,
		load:     e.load.load,
		peak:     peak,
	}
	if e.graph.changed {
		p.view = e.graph.view()
		e.graph.changed = false
	}
	e.store.publish(&p)
	e.sendResults()
}

func (e *Engine) period(frames int) time.Duration {
	return time.Duration(frames) * time.Second / time.Duration(e.sampleRate)
}

// applyCommands drains at most MaxCommandsPerBuffer commands. A faulted
// engine keeps draining and rejects every command, handing the prepared
// instances back.
func (e *Engine) applyCommands() {
	n := e.broker.ToEngine.DrainInto(e.drained)
	structural := false
	for i := 0; i < n; i++ {
		cmd := e.drained[i]
		e.drained[i] = Command{}
		if e.state == Faulted {
			e.results = append(e.results, rejected(cmd))
			continue
		}
		r := e.graph.Apply(cmd)
		if r.Err == ErrInvariant {
			r.Err = bats.ErrEngineFaulted
			e.results = append(e.results, r)
			e.fault()
			continue
		}
		switch cmd.Kind {
		case KindMakeTrack, KindDeleteTrack, KindInstantiatePlugin, KindDeletePluginInstance:
			structural = true
		}
		e.results = append(e.results, r)
	}
	if structural && e.state != Faulted && e.graph.Verify() != nil {
		e.fault()
	}
}

// rejected is the result of a command drained after the engine faulted. The
// prepared instances it carries are handed back to be closed.
func rejected(cmd Command) Result {
	r := Result{Seq: cmd.seq, Kind: cmd.Kind, Track: cmd.Track, Instance: cmd.Instance, Err: bats.ErrEngineFaulted}
	switch {
	case cmd.NewTrack != nil:
		r.Released = cmd.NewTrack.Instances
	case cmd.NewInstance != nil:
		r.Released = cmd.NewInstance.self[:]
	}
	return r
}

func (e *Engine) fault() {
	if e.state == Faulted {
		return
	}
	e.state = Faulted
	// the results slice has room for one more than the drained commands
	e.results = append(e.results, Result{Kind: KindFault, Err: bats.ErrEngineFaulted})
}

func (e *Engine) sendResults() {
	dropped, lastSeq := uint64(0), uint64(0)
	for i := range e.results {
		if !TrySend(e.broker.ToControl, e.results[i]) {
			dropped++
			lastSeq = max(lastSeq, e.results[i].Seq)
		}
		e.results[i] = Result{}
	}
	e.results = e.results[:0]
	if dropped > 0 {
		e.store.addDropped(dropped, lastSeq)
	}
}

// collectEvents gathers the events of this buffer from the context. An event
// past the end of the buffer is left for the context to return again during
// the next buffer.
func (e *Engine) collectEvents(context ProcessContext, frames int) {
	e.events = e.events[:0]
	if context == nil {
		return
	}
	ev, ok := context.NextEvent(0)
	for ok && ev.Frame < frames {
		if ev.Frame < 0 {
			ev.Frame = 0
		}
		if len(e.events) < cap(e.events) {
			e.events = append(e.events, ev)
		}
		ev, ok = context.NextEvent(ev.Frame)
	}
	context.FinishBlock(frames)
}

func (e *Engine) render(buffer bats.AudioBuffer, start time.Time, period time.Duration) (overrun bool) {
	n := len(buffer)
	e.mix.clear(n)
	deadline := start.Add(period)
	for _, t := range e.graph.tracks {
		if !t.Enabled {
			continue
		}
		if e.guard && e.now().After(deadline) {
			overrun = true
			break
		}
		e.processTrack(t, n)
	}
	e.graph.transport.process(e.mix.l[:n], e.mix.r[:n])
	for i := range buffer {
		buffer[i] = [2]float32{e.mix.l[i], e.mix.r[i]}
	}
	return overrun
}

// processTrack runs the chain of the track, ping-ponging between the two
// scratch buses, and adds the scaled output of the chain to the mix.
func (e *Engine) processTrack(t *Track, n int) {
	in, out := &e.scratch[0], &e.scratch[1]
	in.clear(n)
	for _, inst := range t.Instances {
		out.clear(n)
		if err := inst.process(in, out, n, e.events); err != nil {
			out.clear(n)
			inst.Faults++
			t.Faults++
			t.Degraded = true
			e.graph.changed = true
		}
		in, out = out, in
	}
	l, r := in.l[:n], in.r[:n]
	if t.Volume != 1 {
		vek32.MulNumber_Inplace(l, t.Volume)
		vek32.MulNumber_Inplace(r, t.Volume)
	}
	vek32.Add_Inplace(e.mix.l[:n], l)
	vek32.Add_Inplace(e.mix.r[:n], r)
}

func (e *Engine) peak(n int) (peak [2]float32) {
	if n == 0 {
		return
	}
	peak[0] = vek32.Max(vek32.Abs_Into(e.tmp[:n], e.mix.l[:n]))
	peak[1] = vek32.Max(vek32.Abs_Into(e.tmp[:n], e.mix.r[:n]))
	return
}

func (e *Engine) grow(frames int) {
	e.scratch[0].grow(frames)
	e.scratch[1].grow(frames)
	e.mix.grow(frames)
	if len(e.tmp) < frames {
		e.tmp = make([]float32, frames)
	}
}

func (NullProcessContext) NextEvent(frame int) (event bats.MIDIEvent, ok bool) {
	return bats.MIDIEvent{}, false
}

func (NullProcessContext) FinishBlock(frame int) {}
