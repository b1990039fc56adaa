// Package stream provides hot observable values with replay-one semantics.
//
// A Value holds the latest published element and fans it out to any number
// of subscribers. New subscribers immediately receive the current element
// before any subsequent ones, so consumers never have to poll.
package stream

import (
	"sync"

	"github.com/google/uuid"
)

// subscriberBufferSize bounds each subscriber channel. Slow subscribers
// drop intermediate elements rather than blocking the publisher.
const subscriberBufferSize = 16

// Value is a continuously-valued observable stream.
type Value[T any] struct {
	mu      sync.RWMutex
	current T
	subs    map[string]chan T
	closed  bool
}

// New creates a Value seeded with an initial element.
func New[T any](initial T) *Value[T] {
	return &Value[T]{
		current: initial,
		subs:    make(map[string]chan T),
	}
}

// Get returns the latest published element.
func (v *Value[T]) Get() T {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.current
}

// Set publishes a new element to all subscribers and stores it for replay.
// Sends never block; a full subscriber buffer drops the element for that
// subscriber only.
func (v *Value[T]) Set(val T) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return
	}

	v.current = val
	for _, ch := range v.subs {
		select {
		case ch <- val:
		default:
		}
	}
}

// Subscribe registers a new subscriber. The returned channel first yields
// the current element, then every subsequent Set. The cancel function
// removes the subscription and closes the channel; it is safe to call more
// than once.
func (v *Value[T]) Subscribe() (<-chan T, func()) {
	v.mu.Lock()
	defer v.mu.Unlock()

	ch := make(chan T, subscriberBufferSize)
	if v.closed {
		close(ch)
		return ch, func() {}
	}

	// Replay the latest element before anything else.
	ch <- v.current

	id := uuid.New().String()
	v.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			v.mu.Lock()
			defer v.mu.Unlock()
			if _, ok := v.subs[id]; ok {
				delete(v.subs, id)
				close(ch)
			}
		})
	}
	return ch, cancel
}

// Close terminates the stream. All subscriber channels are closed and
// further Set calls are ignored.
func (v *Value[T]) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return
	}
	v.closed = true
	for id, ch := range v.subs {
		delete(v.subs, id)
		close(ch)
	}
}
