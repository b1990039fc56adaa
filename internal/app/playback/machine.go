package playback

import (
	"context"
	"sync"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/markst/RxRadioPlayer/internal/app/stream"
	"github.com/markst/RxRadioPlayer/internal/backend"
	"github.com/markst/RxRadioPlayer/internal/domain/metadata"
)

// Machine owns the current item lifecycle, maps backend signals to player
// and playback states, and keeps playback stable under unreliable streams.
//
// All state is guarded by one mutex. Backend callbacks arrive on arbitrary
// goroutines and re-enter through the mutex before touching anything
// shared; a generation check then drops callbacks from superseded items.
type Machine struct {
	mu sync.Mutex

	backend backend.MediaBackend
	engine  backend.Engine

	url      string
	autoPlay bool

	current       *PlayerItem
	observeCancel context.CancelFunc
	attached      bool

	// Buffer health of the current item, reset on replacement.
	bufferEmpty    bool
	likelyToKeepUp bool
	stalled        bool

	// Token of the in-flight asset load; completions carrying a different
	// token were superseded by a later URL assignment.
	loadGeneration string

	playerState   *stream.Value[PlayerState]
	playbackState *stream.Value[PlaybackState]
	isPlaying     *stream.Value[bool]
	meta          *stream.Value[*metadata.Metadata]
	rate          *stream.Value[float64]

	ctx    context.Context
	cancel context.CancelFunc
}

// NewMachine creates a state machine on top of the given backend.
func NewMachine(b backend.MediaBackend, autoPlay bool) *Machine {
	ctx, cancel := context.WithCancel(context.Background())
	return &Machine{
		backend:       b,
		autoPlay:      autoPlay,
		playerState:   stream.New(PlayerStateURLNotSet),
		playbackState: stream.New(PlaybackStopped),
		isPlaying:     stream.New(false),
		meta:          stream.New[*metadata.Metadata](nil),
		rate:          stream.New(float64(0)),
		ctx:           ctx,
		cancel:        cancel,
	}
}

// PlayerStates returns the asset-readiness stream.
func (m *Machine) PlayerStates() *stream.Value[PlayerState] { return m.playerState }

// PlaybackStates returns the transport-state stream.
func (m *Machine) PlaybackStates() *stream.Value[PlaybackState] { return m.playbackState }

// IsPlaying returns the derived is-playing stream.
func (m *Machine) IsPlaying() *stream.Value[bool] { return m.isPlaying }

// Metadata returns the in-stream metadata stream; nil means no metadata.
func (m *Machine) Metadata() *stream.Value[*metadata.Metadata] { return m.meta }

// Rate returns the transport-rate stream; zero means no active item.
func (m *Machine) Rate() *stream.Value[float64] { return m.rate }

// URL returns the current stream URL, empty when not set.
func (m *Machine) URL() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.url
}

// AutoPlay reports whether new items start playing automatically.
func (m *Machine) AutoPlay() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.autoPlay
}

// SetAutoPlay sets the auto-play flag. It only affects future item
// transitions.
func (m *Machine) SetAutoPlay(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.autoPlay = v
}

// SetURL resets the whole pipeline for a new stream URL. An empty URL
// clears the player. Assigning any URL, including the current one,
// deterministically tears down the previous item and reloads.
func (m *Machine) SetURL(url string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.url = url
	m.teardownItemLocked()
	m.loadGeneration = ""

	if url == "" {
		m.playerState.Set(PlayerStateURLNotSet)
		m.setPlaybackLocked(PlaybackStopped)
		return
	}

	// Loading is emitted synchronously, before the load can complete.
	m.playerState.Set(PlayerStateLoading)

	gen := uuid.New().String()
	m.loadGeneration = gen
	ch := m.backend.LoadAsset(m.ctx, url)
	go m.awaitLoad(gen, url, ch)
}

// awaitLoad waits for an asset-load completion off the caller's goroutine,
// then re-enters the machine to inspect the result.
func (m *Machine) awaitLoad(gen, url string, ch <-chan backend.LoadResult) {
	var res backend.LoadResult
	select {
	case <-m.ctx.Done():
		return
	case res = <-ch:
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.loadGeneration != gen {
		zlog.Debug().Msgf("playback: ignoring superseded asset load: url=%s", url)
		return
	}
	m.loadGeneration = ""

	if res.Err != nil || !res.Playable {
		if res.Err != nil {
			zlog.Warn().Msgf("playback: asset load failed: url=%s err=%v", url, res.Err)
		} else {
			zlog.Warn().Msgf("playback: asset is not playable: url=%s", url)
		}
		m.playerState.Set(PlayerStateError)
		return
	}

	it, err := m.backend.NewItem(url)
	if err != nil {
		zlog.Warn().Msgf("playback: item construction failed: url=%s err=%v", url, err)
		m.playerState.Set(PlayerStateError)
		return
	}

	m.setItemLocked(newPlayerItem(url, it))
}

// setItem swaps the current item. Exposed within the package for tests.
func (m *Machine) setItem(pi *PlayerItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setItemLocked(pi)
}

func (m *Machine) setItemLocked(pi *PlayerItem) {
	// Identity-equal replacement is a no-op: no re-subscription, no
	// metadata clear, no auto-play re-trigger.
	if m.current != nil && pi != nil && m.current.item == pi.item {
		return
	}

	m.teardownItemLocked()
	if pi == nil {
		return
	}

	if m.engine == nil {
		m.engine = m.backend.NewEngine()
	}

	m.current = pi
	m.engine.AttachItem(pi.item)
	m.attached = true
	m.bufferEmpty = false
	m.likelyToKeepUp = false
	m.stalled = false

	// Re-armed: the asset resolved, item-level readiness is still pending.
	m.playerState.Set(PlayerStateLoading)

	obsCtx, obsCancel := context.WithCancel(m.ctx)
	m.observeCancel = obsCancel
	go m.observeItem(obsCtx, pi)

	zlog.Debug().Msgf("playback: item replaced: url=%s generation=%s", pi.url, pi.generation)

	if m.autoPlay {
		m.playLocked()
	}
}

func (m *Machine) teardownItemLocked() {
	if m.observeCancel != nil {
		m.observeCancel()
		m.observeCancel = nil
	}
	if m.current != nil {
		if m.engine != nil && m.attached {
			m.engine.DetachItem()
		}
		m.current.item.Release()
		m.current = nil
	}
	m.attached = false
	m.bufferEmpty = false
	m.likelyToKeepUp = false
	m.stalled = false
	if m.meta.Get() != nil {
		m.meta.Set(nil)
	}
	m.updateRateLocked()
}

// observeItem consumes the per-item backend signals until the item is
// superseded or the machine closes.
func (m *Machine) observeItem(ctx context.Context, pi *PlayerItem) {
	it := pi.item
	for {
		select {
		case <-ctx.Done():
			return
		case s, ok := <-it.Status():
			if !ok {
				return
			}
			m.onStatus(pi, s)
		case empty, ok := <-it.BufferEmpty():
			if !ok {
				return
			}
			m.onBufferEmpty(pi, empty)
		case likely, ok := <-it.LikelyToKeepUp():
			if !ok {
				return
			}
			m.onLikelyToKeepUp(pi, likely)
		case batch, ok := <-it.TimedMetadata():
			if !ok {
				return
			}
			m.onTimedMetadata(pi, batch)
		}
	}
}

// staleLocked reports whether a callback captured for pi belongs to a
// superseded item.
func (m *Machine) staleLocked(pi *PlayerItem) bool {
	return m.current == nil || m.current.generation != pi.generation
}

func (m *Machine) onStatus(pi *PlayerItem, s backend.ItemStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.staleLocked(pi) {
		return
	}

	switch s {
	case backend.StatusReadyToPlay:
		m.playerState.Set(PlayerStateReadyToPlay)
	case backend.StatusFailed:
		zlog.Warn().Msgf("playback: item failed: url=%s", pi.url)
		m.playerState.Set(PlayerStateError)
	default:
		// Remaining statuses carry no transition.
	}
}

func (m *Machine) onBufferEmpty(pi *PlayerItem, empty bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.staleLocked(pi) {
		return
	}

	m.bufferEmpty = empty
	if empty {
		m.playerState.Set(PlayerStateLoading)
	}
	m.checkStallLocked()
}

func (m *Machine) onLikelyToKeepUp(pi *PlayerItem, likely bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.staleLocked(pi) {
		return
	}

	m.likelyToKeepUp = likely
	if likely {
		m.playerState.Set(PlayerStateLoadingFinished)
	} else {
		m.playerState.Set(PlayerStateLoading)
	}
	m.checkStallLocked()
}

// checkStallLocked fires the automatic recovery on the rising edge of the
// stall condition, and only while the transport intent is "playing".
func (m *Machine) checkStallLocked() {
	stalled := m.bufferEmpty && !m.likelyToKeepUp
	wasStalled := m.stalled
	m.stalled = stalled

	if !stalled || wasStalled {
		return
	}
	if !m.playbackState.Get().IsPlaying() {
		return
	}

	zlog.Info().Msgf("playback: stall detected, restarting transport: url=%s", m.url)
	m.stopLocked()
	m.playLocked()
}

func (m *Machine) onTimedMetadata(pi *PlayerItem, batch backend.TagBatch) {
	if len(batch) == 0 {
		return
	}

	md, err := metadata.FromTag(batch[0])
	if err != nil {
		// Entries that fail conversion are simply not emitted.
		zlog.Debug().Msgf("playback: dropping undecodable tag entry: %v", err)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.staleLocked(pi) {
		return
	}
	m.meta.Set(md)
}

// Play starts the transport. Calling play before any URL resolved is an
// intentional no-op.
func (m *Machine) Play() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playLocked()
}

func (m *Machine) playLocked() {
	if m.engine == nil {
		return
	}
	if m.current != nil && !m.attached {
		m.engine.AttachItem(m.current.item)
		m.attached = true
	}
	m.engine.Play()
	m.setPlaybackLocked(PlaybackPlaying)
	m.updateRateLocked()
}

// Pause suspends the transport; a no-op without an engine.
func (m *Machine) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pauseLocked()
}

func (m *Machine) pauseLocked() {
	if m.engine == nil {
		return
	}
	m.engine.Pause()
	m.setPlaybackLocked(PlaybackPaused)
	m.updateRateLocked()
}

// Stop detaches the current item from the engine and clears metadata. The
// engine itself is kept for reuse; a subsequent Play reattaches the item.
func (m *Machine) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
}

func (m *Machine) stopLocked() {
	if m.engine == nil {
		return
	}
	if m.attached {
		m.engine.DetachItem()
		m.attached = false
	}
	if m.meta.Get() != nil {
		m.meta.Set(nil)
	}
	m.setPlaybackLocked(PlaybackStopped)
	m.updateRateLocked()
}

// Toggle pauses when playing, plays otherwise.
func (m *Machine) Toggle() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.playbackState.Get().IsPlaying() {
		m.pauseLocked()
	} else {
		m.playLocked()
	}
}

func (m *Machine) setPlaybackLocked(s PlaybackState) {
	m.playbackState.Set(s)
	m.isPlaying.Set(s.IsPlaying())
}

func (m *Machine) updateRateLocked() {
	if m.engine == nil || m.current == nil {
		m.rate.Set(0)
		return
	}
	m.rate.Set(m.engine.Rate())
}

// Close tears down the current item, cancels observers and closes all
// streams. The machine cannot be reused afterwards.
func (m *Machine) Close() {
	m.mu.Lock()
	m.cancel()
	m.teardownItemLocked()
	m.mu.Unlock()

	m.playerState.Close()
	m.playbackState.Close()
	m.isPlaying.Close()
	m.meta.Close()
	m.rate.Close()
}
