// Package radio provides the public radio player facade.
package radio

import (
	"sync"

	zlog "github.com/rs/zerolog/log"

	"github.com/markst/RxRadioPlayer/internal/app/monitor"
	"github.com/markst/RxRadioPlayer/internal/app/playback"
	"github.com/markst/RxRadioPlayer/internal/app/stream"
	"github.com/markst/RxRadioPlayer/internal/backend"
	"github.com/markst/RxRadioPlayer/internal/domain/metadata"
)

// Config configures a Player.
type Config struct {
	URL      string // Initial stream URL, empty means not set
	AutoPlay bool   // Start playback automatically once an item is ready
}

// Player is the public radio player. It owns the playback state machine and
// the route monitor, and exposes their observable streams.
type Player struct {
	backend backend.MediaBackend
	machine *playback.Machine
	monitor *monitor.RouteMonitor

	closeOnce sync.Once
}

// New creates a player on top of the given backend.
func New(b backend.MediaBackend, cfg Config) *Player {
	m := playback.NewMachine(b, cfg.AutoPlay)
	p := &Player{
		backend: b,
		machine: m,
		monitor: monitor.New(b.Routes(), m),
	}
	if cfg.URL != "" {
		m.SetURL(cfg.URL)
	}
	return p
}

// RadioURL returns the current stream URL, empty when not set.
func (p *Player) RadioURL() string { return p.machine.URL() }

// SetRadioURL assigns the stream URL and resets the whole pipeline, even
// when the value is unchanged. An empty URL clears the player.
func (p *Player) SetRadioURL(url string) {
	zlog.Info().Msgf("radio: url assigned: url=%s", url)
	p.machine.SetURL(url)
}

// IsAutoPlay reports whether new items start playing automatically.
func (p *Player) IsAutoPlay() bool { return p.machine.AutoPlay() }

// SetAutoPlay sets the auto-play flag for future item transitions.
func (p *Player) SetAutoPlay(v bool) { p.machine.SetAutoPlay(v) }

// PlayerStates returns the asset-readiness stream.
func (p *Player) PlayerStates() *stream.Value[playback.PlayerState] {
	return p.machine.PlayerStates()
}

// PlaybackStates returns the transport-state stream.
func (p *Player) PlaybackStates() *stream.Value[playback.PlaybackState] {
	return p.machine.PlaybackStates()
}

// IsPlaying returns the derived is-playing stream.
func (p *Player) IsPlaying() *stream.Value[bool] { return p.machine.IsPlaying() }

// Metadata returns the in-stream metadata stream; nil means no metadata.
func (p *Player) Metadata() *stream.Value[*metadata.Metadata] {
	return p.machine.Metadata()
}

// Rate returns the transport-rate stream; zero means no active item.
func (p *Player) Rate() *stream.Value[float64] { return p.machine.Rate() }

// HeadphonesConnected returns the headphone-connectivity stream.
func (p *Player) HeadphonesConnected() *stream.Value[bool] {
	return p.monitor.HeadphonesConnected()
}

// Play starts playback; a no-op before any URL resolved.
func (p *Player) Play() { p.machine.Play() }

// Pause suspends playback; a no-op before any URL resolved.
func (p *Player) Pause() { p.machine.Pause() }

// Stop stops playback and clears metadata.
func (p *Player) Stop() { p.machine.Stop() }

// Toggle pauses when playing, plays otherwise.
func (p *Player) Toggle() { p.machine.Toggle() }

// Close stops playback and releases the backend and every subscription.
// Safe to call more than once.
func (p *Player) Close() {
	p.closeOnce.Do(func() {
		zlog.Debug().Msg("radio: closing player")
		p.machine.Stop()
		p.monitor.Close()
		p.machine.Close()
		p.backend.Close()
	})
}
