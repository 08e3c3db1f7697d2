package cmd

import (
	"github.com/vsariola/bats"
	"github.com/vsariola/bats/engine"
)

// Notes is a process context that plays a fixed list of events. The frames
// of the events count from the start of the rendering and must be sorted.
type Notes struct {
	Events []bats.MIDIEvent
	offset int
	next   int
}

func (n *Notes) NextEvent(frame int) (event bats.MIDIEvent, ok bool) {
	if n.next >= len(n.Events) {
		return bats.MIDIEvent{}, false
	}
	event = n.Events[n.next]
	n.next++
	event.Frame -= n.offset
	return event, true
}

func (n *Notes) FinishBlock(frame int) {
	n.offset += frame
	for n.next > 0 && n.Events[n.next-1].Frame >= n.offset {
		n.next--
	}
}

// Render runs the engine offline for the given number of frames, in buffers
// of bufferSize frames, and returns the output.
func Render(e *engine.Engine, context engine.ProcessContext, frames, bufferSize int) bats.AudioBuffer {
	out := make(bats.AudioBuffer, frames)
	for i := 0; i < frames; i += bufferSize {
		e.Process(out[i:min(i+bufferSize, frames)], context)
	}
	return out
}
