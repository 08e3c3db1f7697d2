package oto

import (
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/ossrs/go-oryx-lib/errors"
	"github.com/vsariola/bats"
)

type (
	OtoContext struct {
		context    *oto.Context
		sampleRate int
		bufferSize int
	}

	// OtoPlayer plays what a render function produces until closed.
	OtoPlayer struct {
		player *oto.Player
		once   sync.Once
		closed chan struct{}
		err    error
	}
)

// NewContext opens the default audio device for stereo float output. The
// device is driven in buffers of bufferSize frames.
func NewContext(sampleRate, bufferSize int) (*OtoContext, error) {
	context, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 2,
		Format:       oto.FormatFloat32LE,
		BufferSize:   time.Duration(bufferSize) * time.Second / time.Duration(sampleRate),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "cannot create oto context")
	}
	<-ready
	return &OtoContext{context: context, sampleRate: sampleRate, bufferSize: bufferSize}, nil
}

// Play starts pulling buffers from render on the audio thread of oto.
func (c *OtoContext) Play(render func(buf bats.AudioBuffer) error) bats.CloserWaiter {
	p := &OtoPlayer{closed: make(chan struct{})}
	p.player = c.context.NewPlayer(NewReader(render, c.bufferSize))
	p.player.SetBufferSize(c.bufferSize * bytesPerFrame)
	p.player.Play()
	return p
}

// Close suspends the device; oto contexts cannot be reopened in the same
// process.
func (c *OtoContext) Close() error {
	if err := c.context.Suspend(); err != nil {
		return errors.Wrapf(err, "cannot suspend oto context")
	}
	return nil
}

func (p *OtoPlayer) Close() error {
	p.once.Do(func() {
		if err := p.player.Err(); err != nil {
			p.err = errors.Wrapf(err, "oto player failed")
		}
		if err := p.player.Close(); err != nil && p.err == nil {
			p.err = errors.Wrapf(err, "cannot close oto player")
		}
		close(p.closed)
	})
	return p.err
}

func (p *OtoPlayer) Wait() {
	<-p.closed
}
