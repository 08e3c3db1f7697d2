package control

import (
	"context"
	"time"

	"github.com/ossrs/go-oryx-lib/errors"
	"github.com/ossrs/go-oryx-lib/logger"
	"github.com/vsariola/bats"
	"github.com/vsariola/bats/engine"
)

// Run consumes the results sent back by the engine until ctx is done or Close
// is called. It closes the plugin instances the engine released, records the
// undo history and wakes up the callers of Sync and Await. Run must be
// called exactly once.
func (c *Control) Run(ctx context.Context) {
	c.mutex.Lock()
	c.started = true
	c.mutex.Unlock()
	defer func() {
		c.drain(ctx)
		c.mutex.Lock()
		c.stopped = true
		c.notify()
		c.mutex.Unlock()
		close(c.finished)
	}()
	ticker := time.NewTicker(droppedPollInterval)
	defer ticker.Stop()
	for {
		select {
		case r := <-c.broker.ToControl:
			c.handle(ctx, r)
			c.recoverDropped(ctx)
		case <-ticker.C:
			c.recoverDropped(ctx)
		case <-c.closeRun:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Close stops Run and waits for it to finish.
func (c *Control) Close() {
	c.mutex.Lock()
	started := c.started
	c.mutex.Unlock()
	if !started {
		return
	}
	engine.TrySend(c.closeRun, struct{}{})
	<-c.finished
}

func (c *Control) drain(ctx context.Context) {
	for {
		select {
		case r := <-c.broker.ToControl:
			c.handle(ctx, r)
		default:
			return
		}
	}
}

func (c *Control) handle(ctx context.Context, r engine.Result) {
	for _, inst := range r.Released {
		if err := inst.Close(); err != nil {
			logger.Wf(ctx, "close instance %d of %v failed: %v", inst.ID, inst.Descriptor, err)
		}
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if r.Kind == engine.KindFault {
		c.faulted = true
		logger.Ef(ctx, "engine faulted, commands are rejected until restart")
		c.notify()
		return
	}
	_, undo := c.undoSeqs[r.Seq]
	delete(c.undoSeqs, r.Seq)
	switch {
	case r.Err != nil:
		logger.Wf(ctx, "%v (seq %d) failed: %v", r.Kind, r.Seq, r.Err)
		c.dirty = true
	case !undo && r.Undo.Kind != engine.KindNone:
		c.history = append(c.history, r.Undo)
		if len(c.history) > maxUndo {
			c.history = c.history[len(c.history)-maxUndo:]
		}
	}
	if r.Seq > c.completed {
		c.completed = r.Seq
	}
	r.Released = nil
	r.Undo = engine.Command{}
	c.results[r.Seq] = r
	for ; c.pruned+maxRecentResults < r.Seq; c.pruned++ {
		delete(c.results, c.pruned)
	}
	c.settle()
	c.notify()
}

// recoverDropped marks the commands whose results the engine dropped as
// completed, so that Await reports them lost instead of waiting forever.
func (c *Control) recoverDropped(ctx context.Context) {
	last := c.store.LastDropped()
	c.mutex.Lock()
	done := last <= c.completed
	c.mutex.Unlock()
	if done {
		return
	}
	// every result sent before last was dropped is in the channel by now
	c.drain(ctx)
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if last <= c.completed {
		return
	}
	logger.Wf(ctx, "results up to seq %d were dropped, the instances they released leak", last)
	c.completed = last
	for seq := range c.undoSeqs {
		if seq <= last {
			delete(c.undoSeqs, seq)
		}
	}
	c.dirty = true
	c.settle()
	c.notify()
}

// settle rebuilds a dirty shadow once every command sent has a result. The
// caller holds the mutex.
func (c *Control) settle() {
	if c.dirty && c.completed >= c.pushed {
		c.shadow.rebuild(c.store.Load())
		c.dirty = false
	}
}

// notify wakes up everyone waiting on changed. The caller holds the mutex.
func (c *Control) notify() {
	close(c.changed)
	c.changed = make(chan struct{})
}

// Await waits until the engine has applied the command with sequence number
// seq. The returned error is the one the engine reported for the command, or
// the reason its result is unavailable.
func (c *Control) Await(ctx context.Context, seq uint64) (engine.Result, error) {
	for {
		c.mutex.Lock()
		if c.completed >= seq || c.faulted {
			r, ok := c.results[seq]
			faulted := c.faulted
			c.mutex.Unlock()
			switch {
			case ok:
				return r, r.Err
			case faulted:
				return engine.Result{Seq: seq, Err: bats.ErrEngineFaulted}, bats.ErrEngineFaulted
			}
			return engine.Result{Seq: seq}, errors.Wrapf(ErrResultLost, "seq %d", seq)
		}
		if c.stopped {
			c.mutex.Unlock()
			return engine.Result{Seq: seq}, ErrClosed
		}
		changed := c.changed
		c.mutex.Unlock()
		select {
		case <-changed:
		case <-ctx.Done():
			return engine.Result{Seq: seq}, ctx.Err()
		}
	}
}

// Sync waits until every command sent so far has been applied, and returns
// the error of the latest one.
func (c *Control) Sync(ctx context.Context) error {
	seq := c.Last()
	if seq == 0 {
		return nil
	}
	_, err := c.Await(ctx, seq)
	return err
}
