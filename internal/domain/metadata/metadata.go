// Package metadata provides the in-stream metadata value type.
package metadata

import (
	"github.com/cockroachdb/errors"
	"github.com/mitchellh/mapstructure"
)

// Metadata represents one decoded in-stream tag block.
type Metadata struct {
	Title  string         // Display title, usually "Artist - Track"
	Fields map[string]any // Raw tag fields as delivered by the backend
}

// tagShape is the subset of raw fields we decode strictly. Anything beyond
// the title travels in Fields untouched.
type tagShape struct {
	Title string `mapstructure:"StreamTitle"`
}

// FromTag converts a raw tag entry into Metadata. Entries whose title field
// is missing or not a string do not convert; callers drop them silently.
func FromTag(raw map[string]any) (*Metadata, error) {
	if len(raw) == 0 {
		return nil, errors.New("empty tag entry")
	}

	var shape tagShape
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &shape,
		ErrorUnused: false,
	})
	if err != nil {
		return nil, errors.Wrap(err, "build tag decoder")
	}
	if err := dec.Decode(raw); err != nil {
		return nil, errors.Wrap(err, "decode tag entry")
	}
	if shape.Title == "" {
		return nil, errors.New("tag entry has no title")
	}

	fields := make(map[string]any, len(raw))
	for k, v := range raw {
		fields[k] = v
	}

	return &Metadata{
		Title:  shape.Title,
		Fields: fields,
	}, nil
}
