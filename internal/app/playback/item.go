package playback

import (
	"github.com/google/uuid"

	"github.com/markst/RxRadioPlayer/internal/backend"
)

// PlayerItem represents one prepared, playable instance of the radio
// stream. Items are superseded, never mutated. The generation token lets
// late backend callbacks detect that they belong to a superseded item.
type PlayerItem struct {
	generation string
	url        string
	item       backend.Item
}

func newPlayerItem(url string, it backend.Item) *PlayerItem {
	return &PlayerItem{
		generation: uuid.New().String(),
		url:        url,
		item:       it,
	}
}

// URL returns the stream URL the item was prepared for.
func (p *PlayerItem) URL() string { return p.url }

// Generation returns the item's generation token.
func (p *PlayerItem) Generation() string { return p.generation }
