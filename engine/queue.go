package engine

import (
	"sync/atomic"

	"github.com/vsariola/bats"
)

type (
	// CommandChannel is a bounded queue of Commands from any number of
	// producer goroutines to the single audio thread consumer.
	//
	// It is a ring of cells, each guarded by its own sequence number (Dmitry
	// Vyukov's bounded queue). Producers claim a cell with a CAS on the
	// enqueue position and publish it by storing the cell sequence; the
	// consumer never waits: a cell that is claimed but not yet published just
	// looks empty until the next drain. Pushing and draining do not allocate.
	CommandChannel struct {
		mask  uint64
		cells []cell
		_     [64]byte
		head  atomic.Uint64 // next enqueue position
		_     [64]byte
		tail  atomic.Uint64 // next dequeue position, written only by the consumer
	}

	cell struct {
		seq atomic.Uint64
		cmd Command
	}
)

// NewCommandChannel returns a channel holding at least capacity commands; the
// capacity is rounded up to a power of two.
func NewCommandChannel(capacity int) *CommandChannel {
	size := uint64(2)
	for size < uint64(capacity) {
		size <<= 1
	}
	q := &CommandChannel{mask: size - 1, cells: make([]cell, size)}
	for i := range q.cells {
		q.cells[i].seq.Store(uint64(i))
	}
	return q
}

// Push enqueues cmd. It never blocks: when the channel is full it fails with
// bats.ErrChannelFull. The returned sequence number orders all successful
// pushes and is reported back in the Result of the command.
func (q *CommandChannel) Push(cmd Command) (seq uint64, err error) {
	pos := q.head.Load()
	for {
		c := &q.cells[pos&q.mask]
		diff := int64(c.seq.Load()) - int64(pos)
		switch {
		case diff == 0:
			if q.head.CompareAndSwap(pos, pos+1) {
				cmd.seq = pos + 1
				c.cmd = cmd
				c.seq.Store(pos + 1)
				return pos + 1, nil
			}
			pos = q.head.Load()
		case diff < 0:
			return 0, bats.ErrChannelFull
		default:
			pos = q.head.Load()
		}
	}
}

// DrainInto moves at most len(dst) commands, oldest first, into dst and
// returns how many were moved. Only the audio thread may call it.
func (q *CommandChannel) DrainInto(dst []Command) int {
	n := 0
	for n < len(dst) {
		pos := q.tail.Load()
		c := &q.cells[pos&q.mask]
		if int64(c.seq.Load())-int64(pos+1) < 0 {
			break
		}
		dst[n] = c.cmd
		c.cmd = Command{}
		c.seq.Store(pos + q.mask + 1)
		q.tail.Store(pos + 1)
		n++
	}
	return n
}

// Len is the number of queued commands. It is only a hint while producers
// are active.
func (q *CommandChannel) Len() int {
	n := int64(q.head.Load()) - int64(q.tail.Load())
	if n < 0 {
		return 0
	}
	return int(n)
}

func (q *CommandChannel) Cap() int {
	return len(q.cells)
}
