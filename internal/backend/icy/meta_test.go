package icy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseMetaBlock(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		wantTags map[string]any
	}{
		{
			name:     "title only",
			payload:  "StreamTitle='Boards of Canada - Dayvan Cowboy';",
			wantTags: map[string]any{"StreamTitle": "Boards of Canada - Dayvan Cowboy"},
		},
		{
			name:    "title and url",
			payload: "StreamTitle='Test Song';StreamUrl='http://station.example';",
			wantTags: map[string]any{
				"StreamTitle": "Test Song",
				"StreamUrl":   "http://station.example",
			},
		},
		{
			name:     "empty title",
			payload:  "StreamTitle='';",
			wantTags: map[string]any{"StreamTitle": ""},
		},
		{
			name:     "nul padding stripped",
			payload:  "StreamTitle='Padded';\x00\x00\x00\x00\x00\x00",
			wantTags: map[string]any{"StreamTitle": "Padded"},
		},
		{
			name:     "missing terminator",
			payload:  "StreamTitle='No Terminator'",
			wantTags: map[string]any{"StreamTitle": "No Terminator"},
		},
		{
			name:     "garbage",
			payload:  "not metadata at all",
			wantTags: nil,
		},
		{
			name:     "empty payload",
			payload:  "",
			wantTags: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, tags := parseMetaBlock([]byte(tt.payload))
			assert.Equal(t, tt.wantTags, tags)
			assert.NotContains(t, raw, "\x00", "raw text must be unpadded")
		})
	}
}
