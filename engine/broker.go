package engine

import (
	"sync/atomic"
	"time"

	"github.com/vsariola/bats"
)

type (
	// Broker connects the control side with the audio thread. Commands go to
	// the engine through the lock-free ToEngine queue; per command Results
	// come back through the buffered ToControl channel. The engine only ever
	// sends to ToControl with TrySend, so a slow or missing reader can never
	// stall the audio thread; results that do not fit are counted as dropped.
	//
	// IDs is the id allocator shared by everyone creating tracks and
	// instances, so that ids are unique even with many producers.
	Broker struct {
		ToEngine  *CommandChannel
		ToControl chan Result
		IDs       IDs
	}

	// IDs allocates track and instance ids. Ids start from zero and are never
	// reused.
	IDs struct {
		track    atomic.Int64
		instance atomic.Int64
	}
)

const (
	DefaultCommandCapacity = 1024
	resultCapacity         = 1024
)

func NewBroker(commandCapacity int) *Broker {
	if commandCapacity <= 0 {
		commandCapacity = DefaultCommandCapacity
	}
	return &Broker{
		ToEngine:  NewCommandChannel(commandCapacity),
		ToControl: make(chan Result, resultCapacity),
	}
}

func (i *IDs) NextTrack() bats.TrackID {
	return bats.TrackID(i.track.Add(1) - 1)
}

func (i *IDs) NextInstance() bats.InstanceID {
	return bats.InstanceID(i.instance.Add(1) - 1)
}

// TrySend is a helper function to send a value to a channel if it is not full.
// It is guaranteed to be non-blocking. Return true if the value was sent, false
// otherwise.
func TrySend[T any](c chan<- T, v T) bool {
	select {
	case c <- v:
	default:
		return false
	}
	return true
}

// TimeoutReceive is a helper function to block until a value is received from a
// channel, or timing out after t. ok will be false if the timeout occurred or
// if the channel is closed.
func TimeoutReceive[T any](c <-chan T, t time.Duration) (v T, ok bool) {
	select {
	case v, ok = <-c:
		return v, ok
	case <-time.After(t):
		return v, false
	}
}
