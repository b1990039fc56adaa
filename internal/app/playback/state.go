// Package playback provides the radio playback state machine.
package playback

// PlayerState represents readiness of the current asset, independent of
// whether playback is active.
type PlayerState int

const (
	PlayerStateURLNotSet       PlayerState = iota // No stream URL assigned
	PlayerStateLoading                            // Asset or buffer is loading
	PlayerStateReadyToPlay                        // Item reported ready
	PlayerStateLoadingFinished                    // Buffer healthy, playback likely to keep up
	PlayerStateError                              // Asset load or item playback failed
)

// String returns the string representation of the player state.
func (s PlayerState) String() string {
	switch s {
	case PlayerStateURLNotSet:
		return "url_not_set"
	case PlayerStateLoading:
		return "loading"
	case PlayerStateReadyToPlay:
		return "ready_to_play"
	case PlayerStateLoadingFinished:
		return "loading_finished"
	case PlayerStateError:
		return "error"
	default:
		return "unknown"
	}
}

// PlaybackState represents the user-intent transport state, independent of
// asset readiness.
type PlaybackState int

const (
	PlaybackStopped PlaybackState = iota // Transport detached, nothing playing
	PlaybackPlaying                      // Transport running
	PlaybackPaused                       // Transport attached but suspended
)

// String returns the string representation of the playback state.
func (s PlaybackState) String() string {
	switch s {
	case PlaybackStopped:
		return "stopped"
	case PlaybackPlaying:
		return "playing"
	case PlaybackPaused:
		return "paused"
	default:
		return "unknown"
	}
}

// IsPlaying reports whether the transport intent is "playing". It is always
// derived from the playback state, never stored separately.
func (s PlaybackState) IsPlaying() bool {
	return s == PlaybackPlaying
}
