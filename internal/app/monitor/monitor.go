// Package monitor observes audio output route changes and derives the
// headphone-connectivity signal.
package monitor

import (
	"context"

	zlog "github.com/rs/zerolog/log"

	"github.com/markst/RxRadioPlayer/internal/app/stream"
	"github.com/markst/RxRadioPlayer/internal/backend"
	"github.com/markst/RxRadioPlayer/internal/domain/route"
)

// Transport is the subset of the state machine the monitor drives.
type Transport interface {
	Pause()
}

// RouteMonitor translates route-change notifications into the
// headphones-connected stream and pauses playback when headphones go away.
type RouteMonitor struct {
	provider  backend.RouteProvider
	transport Transport

	headphones *stream.Value[bool]

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a monitor, scans the current route once and starts watching
// for changes.
func New(provider backend.RouteProvider, transport Transport) *RouteMonitor {
	ctx, cancel := context.WithCancel(context.Background())
	m := &RouteMonitor{
		provider:   provider,
		transport:  transport,
		headphones: stream.New(provider.CurrentRoute().HasHeadphones()),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	go m.watch()
	return m
}

// HeadphonesConnected returns the headphone-connectivity stream.
func (m *RouteMonitor) HeadphonesConnected() *stream.Value[bool] {
	return m.headphones
}

func (m *RouteMonitor) watch() {
	defer close(m.done)

	changes := m.provider.RouteChanges()
	for {
		select {
		case <-m.ctx.Done():
			return
		case change, ok := <-changes:
			if !ok {
				return
			}
			m.handleChange(change)
		}
	}
}

func (m *RouteMonitor) handleChange(change route.Change) {
	switch change.Reason {
	case route.ReasonNewDeviceAvailable:
		connected := m.provider.CurrentRoute().HasHeadphones()
		zlog.Debug().Msgf("route: new device available: headphones=%t", connected)
		m.headphones.Set(connected)

	case route.ReasonOldDeviceUnavailable:
		connected := change.Previous.HasHeadphones()
		zlog.Debug().Msgf("route: old device unavailable: headphones=%t", connected)
		m.headphones.Set(connected)
		if !connected {
			// Losing the headphone route must not leak audio through the
			// speaker.
			zlog.Info().Msg("route: headphones disconnected, pausing playback")
			m.transport.Pause()
		}

	default:
		// Remaining reasons carry no connectivity change.
	}
}

// Close stops watching for route changes. The headphones stream is closed
// once the watcher has exited.
func (m *RouteMonitor) Close() {
	m.cancel()
	<-m.done
	m.headphones.Close()
}
