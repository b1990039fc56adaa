package icy

import (
	"context"
	"sync"
	"time"

	"github.com/markst/RxRadioPlayer/internal/backend"
)

// engine drains the attached item's chunk buffer at the stream bitrate while
// playing. There is no audio device in a headless process; draining stands in
// for playout and keeps the buffer dynamics honest.
type engine struct {
	mu      sync.Mutex
	it      *item
	playing bool
	cancel  context.CancelFunc
}

func newEngine() *engine {
	return &engine{}
}

func (e *engine) AttachItem(i backend.Item) {
	it, ok := i.(*item)
	if !ok {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopDrainLocked()
	e.it = it
	if e.playing {
		e.startDrainLocked()
	}
}

func (e *engine) DetachItem() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopDrainLocked()
	e.it = nil
	e.playing = false
}

func (e *engine) Play() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.playing {
		return
	}
	e.playing = true
	if e.it != nil {
		e.startDrainLocked()
	}
}

func (e *engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.playing = false
	e.stopDrainLocked()
}

func (e *engine) Rate() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.playing && e.it != nil {
		return 1.0
	}
	return 0.0
}

func (e *engine) startDrainLocked() {
	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	go drain(ctx, e.it)
}

func (e *engine) stopDrainLocked() {
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
}

func drain(ctx context.Context, it *item) {
	pace := it.chunkDuration()
	for {
		if _, ok := it.take(ctx); !ok {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(pace):
		}
	}
}
