// Package route provides audio output route value types.
package route

// PortType identifies the kind of audio output port.
type PortType string

const (
	PortHeadphones     PortType = "headphones"
	PortBuiltInSpeaker PortType = "builtin_speaker"
	PortBluetoothA2DP  PortType = "bluetooth_a2dp"
	PortAirPlay        PortType = "airplay"
	PortLineOut        PortType = "line_out"
)

// Output describes a single output port of a route.
type Output struct {
	Type PortType // Port kind
	Name string   // Human-readable port name
}

// Description is the full output configuration of an audio route.
type Description struct {
	Outputs []Output
}

// HasHeadphones reports whether any output port is a headphone port.
func (d Description) HasHeadphones() bool {
	for _, out := range d.Outputs {
		if out.Type == PortHeadphones {
			return true
		}
	}
	return false
}

// ChangeReason describes why a route change was raised.
type ChangeReason int

const (
	ReasonUnknown              ChangeReason = iota // Any reason not modeled below
	ReasonNewDeviceAvailable                       // An output device was plugged in
	ReasonOldDeviceUnavailable                     // An output device was removed
)

// String returns the string representation of the change reason.
func (r ChangeReason) String() string {
	switch r {
	case ReasonNewDeviceAvailable:
		return "new_device_available"
	case ReasonOldDeviceUnavailable:
		return "old_device_unavailable"
	default:
		return "unknown"
	}
}

// Change is a single route-change notification.
type Change struct {
	Reason   ChangeReason
	Previous Description // Route in effect before the change
}
