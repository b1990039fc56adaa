// Package icy implements the media backend contract over SHOUTcast/Icecast
// HTTP streams. It speaks the ICY protocol: interleaved metadata blocks are
// decoded into tag batches and the audio payload feeds a chunk buffer whose
// fill level drives the buffering signals.
package icy

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/markst/RxRadioPlayer/internal/backend"
	"github.com/markst/RxRadioPlayer/internal/domain/route"
)

// Config tunes the streaming backend.
type Config struct {
	ConnectTimeout time.Duration // Probe and connect deadline
	BufferChunks   int           // Chunk buffer capacity
	LowWaterChunks int           // Fill level considered healthy
	ChunkBytes     int           // Audio bytes per chunk
}

func (c Config) withDefaults() Config {
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	if c.BufferChunks <= 0 {
		c.BufferChunks = 64
	}
	if c.LowWaterChunks <= 0 {
		c.LowWaterChunks = 8
	}
	if c.ChunkBytes <= 0 {
		c.ChunkBytes = 4096
	}
	return c
}

// Backend streams internet radio over HTTP.
type Backend struct {
	cfg    Config
	client *http.Client
	routes *staticRoutes
}

// New creates a streaming backend.
func New(cfg Config) *Backend {
	return &Backend{
		cfg: cfg.withDefaults(),
		client: &http.Client{
			Transport: &http.Transport{
				DisableCompression: true,
			},
			// No total timeout, responses stream indefinitely.
		},
		routes: newStaticRoutes(),
	}
}

// LoadAsset probes the stream URL with a short-lived request and reports
// whether the resource looks playable.
func (b *Backend) LoadAsset(ctx context.Context, url string) <-chan backend.LoadResult {
	out := make(chan backend.LoadResult, 1)
	go func() {
		probeCtx, cancel := context.WithTimeout(ctx, b.cfg.ConnectTimeout)
		defer cancel()

		req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, url, nil)
		if err != nil {
			out <- backend.LoadResult{Err: errors.Wrap(err, "failed to build probe request")}
			return
		}
		req.Header.Set("Icy-MetaData", "1")

		resp, err := b.client.Do(req)
		if err != nil {
			out <- backend.LoadResult{Err: errors.Wrap(err, "stream probe failed")}
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			out <- backend.LoadResult{Err: errors.Newf("stream probe returned status %d", resp.StatusCode)}
			return
		}

		playable := playableResponse(resp.Header)
		zlog.Debug().Msgf("icy: probe done: url=%s playable=%t content_type=%s",
			url, playable, resp.Header.Get("Content-Type"))
		out <- backend.LoadResult{Playable: playable}
	}()
	return out
}

// playableResponse reports whether the response headers describe an audio
// stream. ICY servers identify themselves with icy-* headers even when the
// content type is missing.
func playableResponse(h http.Header) bool {
	ct := strings.ToLower(h.Get("Content-Type"))
	if strings.HasPrefix(ct, "audio/") || ct == "application/ogg" {
		return true
	}
	for name := range h {
		if strings.HasPrefix(strings.ToLower(name), "icy-") {
			return true
		}
	}
	return false
}

// NewItem constructs a streaming item. The connection is established
// asynchronously; failures surface on the item status channel.
func (b *Backend) NewItem(url string) (backend.Item, error) {
	return newItem(b.client, b.cfg, url)
}

// NewEngine constructs the chunk-draining transport.
func (b *Backend) NewEngine() backend.Engine {
	return newEngine()
}

// Routes returns the output-route provider. A headless streaming process has
// a single fixed output and never observes route changes.
func (b *Backend) Routes() backend.RouteProvider {
	return b.routes
}

// Close releases pooled connections.
func (b *Backend) Close() {
	b.client.CloseIdleConnections()
}

type staticRoutes struct {
	changes chan route.Change
}

func newStaticRoutes() *staticRoutes {
	return &staticRoutes{changes: make(chan route.Change)}
}

func (r *staticRoutes) CurrentRoute() route.Description {
	return route.Description{
		Outputs: []route.Output{{Type: route.PortBuiltInSpeaker, Name: "Built-in Output"}},
	}
}

func (r *staticRoutes) RouteChanges() <-chan route.Change {
	return r.changes
}
