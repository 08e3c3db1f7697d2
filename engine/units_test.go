package engine_test

import (
	"errors"
	"time"

	"github.com/vsariola/bats"
	"github.com/vsariola/bats/engine"
)

// constUnit is an instrument that outputs a constant.
type constUnit struct {
	value  float32
	events []bats.MIDIEvent
	closed bool
}

func (u *constUnit) Ports() bats.Ports { return bats.Ports{AudioOut: 2, MIDIIn: true} }

func (u *constUnit) Process(in, out [][]float32, events []bats.MIDIEvent) error {
	u.events = append(u.events[:0], events...)
	for _, ch := range out {
		for i := range ch {
			ch[i] = u.value
		}
	}
	return nil
}

func (u *constUnit) Close() error { u.closed = true; return nil }

// scaleUnit is a stereo effect multiplying its input.
type scaleUnit struct {
	factor float32
}

func (u *scaleUnit) Ports() bats.Ports { return bats.Ports{AudioIn: 2, AudioOut: 2} }

func (u *scaleUnit) Process(in, out [][]float32, events []bats.MIDIEvent) error {
	for c := range out {
		for i := range out[c] {
			out[c][i] = in[c][i] * u.factor
		}
	}
	return nil
}

func (u *scaleUnit) Close() error { return nil }

func (u *scaleUnit) Params() []bats.ParamInfo {
	return []bats.ParamInfo{{ID: 1, Name: "factor", Default: 1, Min: 0, Max: 4}}
}

func (u *scaleUnit) Param(id int) float32 { return u.factor }

func (u *scaleUnit) SetParam(id int, value float32) { u.factor = value }

// addUnit is a mono effect adding a constant to its input.
type addUnit struct {
	value float32
}

func (u *addUnit) Ports() bats.Ports { return bats.Ports{AudioIn: 1, AudioOut: 1} }

func (u *addUnit) Process(in, out [][]float32, events []bats.MIDIEvent) error {
	for i := range out[0] {
		out[0][i] = in[0][i] + u.value
	}
	return nil
}

func (u *addUnit) Close() error { return nil }

type failingUnit struct {
	constUnit
	panics bool
}

func (u *failingUnit) Process(in, out [][]float32, events []bats.MIDIEvent) error {
	u.constUnit.Process(in, out, events)
	if u.panics {
		panic("boom")
	}
	return errors.New("internal fault")
}

type slowUnit struct {
	constUnit
	delay time.Duration
}

func (u *slowUnit) Process(in, out [][]float32, events []bats.MIDIEvent) error {
	time.Sleep(u.delay)
	return u.constUnit.Process(in, out, events)
}

// wideUnit has a port layout the engine cannot route.
type wideUnit struct {
	constUnit
}

func (u *wideUnit) Ports() bats.Ports { return bats.Ports{AudioIn: 8, AudioOut: 8} }

type eventList struct {
	events []bats.MIDIEvent
	index  int
}

func (c *eventList) NextEvent(frame int) (bats.MIDIEvent, bool) {
	if c.index >= len(c.events) {
		return bats.MIDIEvent{}, false
	}
	ev := c.events[c.index]
	c.index++
	return ev, true
}

func (c *eventList) FinishBlock(frame int) {
	rest := c.events[c.index:]
	if c.index > 0 && c.events[c.index-1].Frame >= frame {
		rest = c.events[c.index-1:]
	}
	c.events = nil
	for _, ev := range rest {
		ev.Frame -= frame
		c.events = append(c.events, ev)
	}
	c.index = 0
}

func newTestEngine(o engine.Options) (*engine.Engine, *engine.Broker) {
	broker := engine.NewBroker(16)
	if o.SampleRate == 0 {
		o.SampleRate = 1000
	}
	if o.BufferSize == 0 {
		o.BufferSize = 4
	}
	if o.LoadTimeConstant == 0 {
		o.LoadTimeConstant = time.Millisecond
	}
	return engine.New(broker, o), broker
}

func push(broker *engine.Broker, cmds ...engine.Command) {
	for _, c := range cmds {
		if _, err := broker.ToEngine.Push(c); err != nil {
			panic(err)
		}
	}
}

func results(broker *engine.Broker) []engine.Result {
	var ret []engine.Result
	for {
		select {
		case r := <-broker.ToControl:
			ret = append(ret, r)
		default:
			return ret
		}
	}
}
