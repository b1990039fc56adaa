// Package fake provides a scriptable in-memory media backend. Tests and dry
// runs drive item signals and route changes by hand instead of touching the
// network.
package fake

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/markst/RxRadioPlayer/internal/backend"
	"github.com/markst/RxRadioPlayer/internal/domain/route"
)

// Backend is an in-memory backend.MediaBackend.
type Backend struct {
	mu         sync.Mutex
	loads      []*pendingLoad
	items      []*Item
	engine     *Engine
	routes     *Routes
	newItemErr error
}

type pendingLoad struct {
	url string
	ch  chan backend.LoadResult
}

// New creates a fake backend with a speaker-only default route.
func New() *Backend {
	return &Backend{
		engine: &Engine{},
		routes: &Routes{
			current: route.Description{
				Outputs: []route.Output{{Type: route.PortBuiltInSpeaker, Name: "Speaker"}},
			},
			changes: make(chan route.Change),
		},
	}
}

// LoadAsset records a pending load; the test resolves it via ResolveLoad.
func (b *Backend) LoadAsset(ctx context.Context, url string) <-chan backend.LoadResult {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan backend.LoadResult, 1)
	b.loads = append(b.loads, &pendingLoad{url: url, ch: ch})
	return ch
}

// ResolveLoad completes the oldest pending load. Returns false when none is
// pending.
func (b *Backend) ResolveLoad(res backend.LoadResult) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.loads) == 0 {
		return false
	}
	pl := b.loads[0]
	b.loads = b.loads[1:]
	pl.ch <- res
	return true
}

// PendingLoads returns the number of unresolved loads.
func (b *Backend) PendingLoads() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.loads)
}

// FailNewItem makes subsequent NewItem calls return err.
func (b *Backend) FailNewItem(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.newItemErr = err
}

// NewItem constructs a scriptable item.
func (b *Backend) NewItem(url string) (backend.Item, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.newItemErr != nil {
		return nil, errors.Wrap(b.newItemErr, "new item")
	}
	it := newItem(url)
	b.items = append(b.items, it)
	return it, nil
}

// LastItem returns the most recently constructed item, nil if none.
func (b *Backend) LastItem() *Item {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.items) == 0 {
		return nil
	}
	return b.items[len(b.items)-1]
}

// ItemCount returns the number of items constructed so far.
func (b *Backend) ItemCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

// NewEngine returns the single fake engine.
func (b *Backend) NewEngine() backend.Engine {
	return b.engine
}

// Engine returns the fake engine for assertions.
func (b *Backend) Engine() *Engine {
	return b.engine
}

// Routes returns the scriptable route provider.
func (b *Backend) Routes() backend.RouteProvider {
	return b.routes
}

// RouteControl returns the route provider for scripting.
func (b *Backend) RouteControl() *Routes {
	return b.routes
}

// Close implements backend.MediaBackend.
func (b *Backend) Close() {}

// Item is a scriptable backend item.
type Item struct {
	URL string

	status      chan backend.ItemStatus
	bufferEmpty chan bool
	likely      chan bool
	metadata    chan backend.TagBatch

	releaseOnce sync.Once
	released    chan struct{}
}

func newItem(url string) *Item {
	return &Item{
		URL:         url,
		status:      make(chan backend.ItemStatus),
		bufferEmpty: make(chan bool),
		likely:      make(chan bool),
		metadata:    make(chan backend.TagBatch),
		released:    make(chan struct{}),
	}
}

// Status implements backend.Item.
func (it *Item) Status() <-chan backend.ItemStatus { return it.status }

// BufferEmpty implements backend.Item.
func (it *Item) BufferEmpty() <-chan bool { return it.bufferEmpty }

// LikelyToKeepUp implements backend.Item.
func (it *Item) LikelyToKeepUp() <-chan bool { return it.likely }

// TimedMetadata implements backend.Item.
func (it *Item) TimedMetadata() <-chan backend.TagBatch { return it.metadata }

// Release implements backend.Item.
func (it *Item) Release() {
	it.releaseOnce.Do(func() {
		close(it.released)
		close(it.status)
		close(it.bufferEmpty)
		close(it.likely)
		close(it.metadata)
	})
}

// Released reports whether the item has been released.
func (it *Item) Released() bool {
	select {
	case <-it.released:
		return true
	default:
		return false
	}
}

// EmitStatus delivers a status signal, dropping it if the item is released.
func (it *Item) EmitStatus(s backend.ItemStatus) {
	select {
	case it.status <- s:
	case <-it.released:
	}
}

// EmitBufferEmpty delivers a buffer-empty signal.
func (it *Item) EmitBufferEmpty(empty bool) {
	select {
	case it.bufferEmpty <- empty:
	case <-it.released:
	}
}

// EmitLikelyToKeepUp delivers a buffering-health signal.
func (it *Item) EmitLikelyToKeepUp(likely bool) {
	select {
	case it.likely <- likely:
	case <-it.released:
	}
}

// EmitMetadata delivers a timed-metadata batch.
func (it *Item) EmitMetadata(batch backend.TagBatch) {
	select {
	case it.metadata <- batch:
	case <-it.released:
	}
}

// Engine is a fake transport recording every command.
type Engine struct {
	mu       sync.Mutex
	attached backend.Item
	playing  bool

	playCalls   int
	pauseCalls  int
	attachCalls int
	detachCalls int
}

// AttachItem implements backend.Engine.
func (e *Engine) AttachItem(it backend.Item) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.attached = it
	e.attachCalls++
}

// DetachItem implements backend.Engine.
func (e *Engine) DetachItem() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.attached = nil
	e.playing = false
	e.detachCalls++
}

// Play implements backend.Engine.
func (e *Engine) Play() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.playing = true
	e.playCalls++
}

// Pause implements backend.Engine.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.playing = false
	e.pauseCalls++
}

// Rate implements backend.Engine.
func (e *Engine) Rate() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.playing && e.attached != nil {
		return 1.0
	}
	return 0
}

// Attached returns the currently attached item, nil if detached.
func (e *Engine) Attached() backend.Item {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.attached
}

// PlayCalls returns how many times Play was invoked.
func (e *Engine) PlayCalls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.playCalls
}

// PauseCalls returns how many times Pause was invoked.
func (e *Engine) PauseCalls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pauseCalls
}

// AttachCalls returns how many times AttachItem was invoked.
func (e *Engine) AttachCalls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.attachCalls
}

// DetachCalls returns how many times DetachItem was invoked.
func (e *Engine) DetachCalls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.detachCalls
}

// Routes is a scriptable route provider.
type Routes struct {
	mu      sync.Mutex
	current route.Description
	changes chan route.Change
}

// CurrentRoute implements backend.RouteProvider.
func (r *Routes) CurrentRoute() route.Description {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// RouteChanges implements backend.RouteProvider.
func (r *Routes) RouteChanges() <-chan route.Change {
	return r.changes
}

// SetCurrent replaces the current route description.
func (r *Routes) SetCurrent(d route.Description) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current = d
}

// PushChange delivers a route-change event to the monitor.
func (r *Routes) PushChange(c route.Change) {
	r.changes <- c
}
