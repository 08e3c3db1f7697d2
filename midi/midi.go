// Package midi connects MIDI inputs to the engine. Events are timestamped as
// they arrive and delivered to the audio thread through a Queue, which is the
// engine.ProcessContext of a live engine.
package midi

import (
	"strings"

	"github.com/vsariola/bats"
	"github.com/vsariola/bats/engine"
)

type (
	Context interface {
		engine.ProcessContext
		Inputs(yield func(input InputDevice) bool)
		Close()
		Support() Support
	}

	InputDevice interface {
		Open() error
		Close() error
		IsOpen() bool
		String() string
	}

	Support int

	// NullContext is a Context without any inputs, for builds without MIDI
	// support.
	NullContext struct {
		engine.NullProcessContext
	}

	// Queue hands timestamped MIDI messages from the driver to the audio
	// thread. Push may be called from any goroutine; NextEvent and
	// FinishBlock only from the audio thread.
	//
	// The frames of the events are the arrival times converted to samples
	// relative to an internal clock, which follows the audio thread: it
	// advances by the length of each block and is nudged towards the
	// timestamps of the events, so that the delay from arrival to playback
	// stays roughly constant.
	Queue struct {
		events        chan timestamped
		buf           []timestamped
		index         int
		startFrame    int
		startFrameSet bool
		sampleRate    int
	}

	timestamped struct {
		frame int
		data  [3]byte
	}
)

const (
	SupportNotCompiled Support = iota
	SupportNoDriver
	SupportAvailable
)

const queueCapacity = 1024

func (m NullContext) Inputs(yield func(input InputDevice) bool) {}
func (m NullContext) Close()                                     {}
func (m NullContext) Support() Support                           { return SupportNotCompiled }

// FindInputByPrefix returns the first input whose name starts with prefix.
func FindInputByPrefix(context Context, prefix string) (input InputDevice, ok bool) {
	for i := range context.Inputs {
		if strings.HasPrefix(i.String(), prefix) {
			return i, true
		}
	}
	return nil, false
}

func NewQueue(sampleRate int) *Queue {
	return &Queue{
		events:     make(chan timestamped, queueCapacity),
		buf:        make([]timestamped, 0, queueCapacity),
		sampleRate: sampleRate,
	}
}

// Push queues a message received at timestampms milliseconds. Messages other
// than notes and control changes are ignored, as are messages that arrive
// when the queue is full.
func (q *Queue) Push(timestampms int32, msg []byte) {
	if len(msg) == 0 || len(msg) > 3 {
		return
	}
	if status := msg[0]; (status < 0x80 || status > 0xBF) && status != 0xFF {
		return
	}
	e := timestamped{frame: int(int64(timestampms) * int64(q.sampleRate) / 1000)}
	copy(e.data[:], msg)
	select {
	case q.events <- e:
	default:
	}
}

func (q *Queue) NextEvent(frame int) (event bats.MIDIEvent, ok bool) {
F:
	for len(q.buf) < cap(q.buf) {
		select {
		case e := <-q.events:
			q.buf = append(q.buf, e)
			if !q.startFrameSet {
				q.startFrame = e.frame
				q.startFrameSet = true
			}
		default:
			break F
		}
	}
	if q.index > 0 && q.index <= len(q.buf) {
		// delta is positive when the consumed event is played late; move the
		// clock towards it
		delta := frame + q.startFrame - q.buf[q.index-1].frame
		q.startFrame -= delta / 5
	}
	if q.index < len(q.buf) {
		e := q.buf[q.index]
		q.index++
		return bats.MIDIEvent{Frame: e.frame - q.startFrame, Data: e.data}, true
	}
	q.index = len(q.buf) + 1
	return bats.MIDIEvent{}, false
}

// FinishBlock keeps the last returned event, which was past the end of the
// block, and advances the clock by frame.
func (q *Queue) FinishBlock(frame int) {
	q.startFrame += frame
	if q.index > 0 {
		n := copy(q.buf, q.buf[min(q.index-1, len(q.buf)):])
		q.buf = q.buf[:n]
		if len(q.buf) > 0 {
			// the pending events are in the future: delta is negative
			delta := q.startFrame - q.buf[0].frame
			q.startFrame -= delta / 5
		}
	}
	q.index = 0
}
