package monitor

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markst/RxRadioPlayer/internal/backend/fake"
	"github.com/markst/RxRadioPlayer/internal/domain/route"
)

type recordingTransport struct {
	mu         sync.Mutex
	pauseCalls int
}

func (r *recordingTransport) Pause() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pauseCalls++
}

func (r *recordingTransport) PauseCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pauseCalls
}

func headphonesRoute() route.Description {
	return route.Description{
		Outputs: []route.Output{{Type: route.PortHeadphones, Name: "Headphones"}},
	}
}

func speakerRoute() route.Description {
	return route.Description{
		Outputs: []route.Output{{Type: route.PortBuiltInSpeaker, Name: "Speaker"}},
	}
}

func TestRouteMonitor_InitialScan(t *testing.T) {
	tests := []struct {
		name          string
		current       route.Description
		wantConnected bool
	}{
		{
			name:          "headphones plugged in at construction",
			current:       headphonesRoute(),
			wantConnected: true,
		},
		{
			name:          "speaker only",
			current:       speakerRoute(),
			wantConnected: false,
		},
		{
			name: "mixed outputs with headphones",
			current: route.Description{
				Outputs: []route.Output{
					{Type: route.PortBuiltInSpeaker, Name: "Speaker"},
					{Type: route.PortHeadphones, Name: "Headphones"},
				},
			},
			wantConnected: true,
		},
		{
			name:          "no outputs",
			current:       route.Description{},
			wantConnected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := fake.New()
			b.RouteControl().SetCurrent(tt.current)

			m := New(b.Routes(), &recordingTransport{})
			defer m.Close()

			assert.Equal(t, tt.wantConnected, m.HeadphonesConnected().Get())
		})
	}
}

func TestRouteMonitor_NewDeviceRescansCurrentRoute(t *testing.T) {
	b := fake.New()
	b.RouteControl().SetCurrent(speakerRoute())

	transport := &recordingTransport{}
	m := New(b.Routes(), transport)
	defer m.Close()

	require.False(t, m.HeadphonesConnected().Get())

	b.RouteControl().SetCurrent(headphonesRoute())
	b.RouteControl().PushChange(route.Change{
		Reason:   route.ReasonNewDeviceAvailable,
		Previous: speakerRoute(),
	})

	require.Eventually(t, func() bool {
		return m.HeadphonesConnected().Get()
	}, time.Second, 5*time.Millisecond)
	assert.Zero(t, transport.PauseCalls(), "plugging in must not pause")
}

func TestRouteMonitor_OldDeviceUnavailablePausesWithoutHeadphones(t *testing.T) {
	b := fake.New()
	b.RouteControl().SetCurrent(headphonesRoute())

	transport := &recordingTransport{}
	m := New(b.Routes(), transport)
	defer m.Close()

	require.True(t, m.HeadphonesConnected().Get())

	// Device went away and the previous-route scan finds no headphones.
	b.RouteControl().SetCurrent(speakerRoute())
	b.RouteControl().PushChange(route.Change{
		Reason:   route.ReasonOldDeviceUnavailable,
		Previous: speakerRoute(),
	})

	require.Eventually(t, func() bool {
		return transport.PauseCalls() == 1
	}, time.Second, 5*time.Millisecond)
	assert.False(t, m.HeadphonesConnected().Get())
}

func TestRouteMonitor_OldDeviceUnavailableKeepsPlayingWithHeadphones(t *testing.T) {
	b := fake.New()
	b.RouteControl().SetCurrent(headphonesRoute())

	transport := &recordingTransport{}
	m := New(b.Routes(), transport)
	defer m.Close()

	// Some other device disappeared; headphones remain in the scanned set.
	b.RouteControl().PushChange(route.Change{
		Reason:   route.ReasonOldDeviceUnavailable,
		Previous: headphonesRoute(),
	})

	require.Eventually(t, func() bool {
		return m.HeadphonesConnected().Get()
	}, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, transport.PauseCalls())
}

func TestRouteMonitor_IgnoresOtherReasons(t *testing.T) {
	b := fake.New()
	b.RouteControl().SetCurrent(speakerRoute())

	transport := &recordingTransport{}
	m := New(b.Routes(), transport)
	defer m.Close()

	// A category-change style event: connectivity unchanged, no pause.
	b.RouteControl().SetCurrent(headphonesRoute())
	b.RouteControl().PushChange(route.Change{Reason: route.ReasonUnknown})

	time.Sleep(20 * time.Millisecond)
	assert.False(t, m.HeadphonesConnected().Get())
	assert.Zero(t, transport.PauseCalls())
}
