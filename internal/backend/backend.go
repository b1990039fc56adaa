// Package backend defines the media backend contract the state machine
// drives. A backend prepares network assets, plays items through an engine
// and reports item-level signals over channels.
package backend

import (
	"context"

	"github.com/markst/RxRadioPlayer/internal/domain/route"
)

// ItemStatus is the readiness status reported by an engine item.
type ItemStatus int

const (
	StatusUnknown     ItemStatus = iota // Not yet determined
	StatusReadyToPlay                   // Item can be played
	StatusFailed                        // Item playback failed
)

// String returns the string representation of the item status.
func (s ItemStatus) String() string {
	switch s {
	case StatusReadyToPlay:
		return "ready_to_play"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// LoadResult is delivered once per LoadAsset call.
type LoadResult struct {
	Playable bool  // Whether the resource can be played
	Err      error // Network or resolution failure
}

// TagBatch is one batch of raw in-stream tag entries.
type TagBatch []map[string]any

// Item is one prepared, playable unit of media. All signal channels are
// closed when the item is released.
type Item interface {
	// Status reports readiness transitions.
	Status() <-chan ItemStatus
	// BufferEmpty reports whether the playback buffer ran dry.
	BufferEmpty() <-chan bool
	// LikelyToKeepUp reports the buffering-health signal.
	LikelyToKeepUp() <-chan bool
	// TimedMetadata delivers decoded in-stream tag batches.
	TimedMetadata() <-chan TagBatch
	// Release tears the item down and closes all signal channels.
	Release()
}

// Engine is the reusable transport. It outlives individual items; items are
// attached and detached as the stream URL changes.
type Engine interface {
	AttachItem(Item)
	DetachItem()
	Play()
	Pause()
	// Rate returns the current transport rate, zero when suspended or no
	// item is attached.
	Rate() float64
}

// RouteProvider exposes the current audio output route and change events.
type RouteProvider interface {
	CurrentRoute() route.Description
	RouteChanges() <-chan route.Change
}

// MediaBackend is the platform audio engine collaborator.
type MediaBackend interface {
	// LoadAsset resolves the resource asynchronously. Exactly one result is
	// delivered on the returned channel; cancellation of ctx abandons the
	// load.
	LoadAsset(ctx context.Context, url string) <-chan LoadResult
	// NewItem constructs a playable item for a resolved resource.
	NewItem(url string) (Item, error)
	// NewEngine constructs the transport engine.
	NewEngine() Engine
	// Routes returns the output-route provider.
	Routes() RouteProvider
	// Close releases backend resources.
	Close()
}
