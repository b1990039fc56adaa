package icy

import (
	"bufio"
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/markst/RxRadioPlayer/internal/backend"
)

const defaultBitrateKbps = 128

// item is one live connection to an ICY stream. A reader goroutine fills the
// chunk buffer and decodes interleaved metadata; the engine drains chunks at
// the stream bitrate. Buffer fill transitions drive the buffering signals.
type item struct {
	cfg    Config
	client *http.Client
	url    string

	status   chan backend.ItemStatus
	empty    chan bool
	keepUp   chan bool
	meta     chan backend.TagBatch
	chunks   chan []byte
	released chan struct{}

	ctx    context.Context
	cancel context.CancelFunc

	releaseOnce sync.Once

	mu          sync.Mutex
	closed      bool
	lastEmpty   bool
	lastKeepUp  bool
	lastRawMeta string
	bitrate     int
}

func newItem(client *http.Client, cfg Config, rawURL string) (*item, error) {
	if _, err := url.ParseRequestURI(rawURL); err != nil {
		return nil, errors.Wrap(err, "invalid stream url")
	}

	ctx, cancel := context.WithCancel(context.Background())
	it := &item{
		cfg:      cfg,
		client:   client,
		url:      rawURL,
		status:   make(chan backend.ItemStatus, 16),
		empty:    make(chan bool, 16),
		keepUp:   make(chan bool, 16),
		meta:     make(chan backend.TagBatch, 16),
		chunks:   make(chan []byte, cfg.BufferChunks),
		released: make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
		// The buffer starts dry.
		lastEmpty:  true,
		lastKeepUp: false,
		bitrate:    defaultBitrateKbps,
	}
	go it.run()
	return it, nil
}

func (it *item) Status() <-chan backend.ItemStatus { return it.status }

func (it *item) BufferEmpty() <-chan bool { return it.empty }

func (it *item) LikelyToKeepUp() <-chan bool { return it.keepUp }

func (it *item) TimedMetadata() <-chan backend.TagBatch { return it.meta }

// Release aborts the connection and closes all signal channels.
func (it *item) Release() {
	it.releaseOnce.Do(func() {
		it.cancel()
		it.mu.Lock()
		it.closed = true
		close(it.status)
		close(it.empty)
		close(it.keepUp)
		close(it.meta)
		it.mu.Unlock()
		close(it.released)
	})
}

// run connects to the stream and pumps audio chunks and metadata until the
// connection drops or the item is released.
func (it *item) run() {
	req, err := http.NewRequestWithContext(it.ctx, http.MethodGet, it.url, nil)
	if err != nil {
		it.fail(errors.Wrap(err, "failed to build stream request"))
		return
	}
	req.Header.Set("Icy-MetaData", "1")

	resp, err := it.client.Do(req)
	if err != nil {
		it.fail(errors.Wrap(err, "stream connect failed"))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		it.fail(errors.Newf("stream returned status %d", resp.StatusCode))
		return
	}

	metaint := headerInt(resp.Header, "icy-metaint")
	if br := headerInt(resp.Header, "icy-br"); br > 0 {
		it.mu.Lock()
		it.bitrate = br
		it.mu.Unlock()
	}
	zlog.Debug().Msgf("icy: connected: url=%s metaint=%d bitrate=%d",
		it.url, metaint, it.bitrateKbps())

	it.sendStatus(backend.StatusReadyToPlay)

	r := bufio.NewReaderSize(resp.Body, 32*1024)
	remaining := metaint
	for {
		n := it.cfg.ChunkBytes
		if metaint > 0 && remaining < n {
			n = remaining
		}
		buf := make([]byte, n)
		if _, err := io.ReadFull(r, buf); err != nil {
			if it.ctx.Err() != nil {
				return
			}
			it.fail(errors.Wrap(err, "stream read failed"))
			return
		}
		if !it.push(buf) {
			return
		}

		if metaint > 0 {
			remaining -= n
			if remaining == 0 {
				if err := it.readMetaBlock(r); err != nil {
					if it.ctx.Err() != nil {
						return
					}
					it.fail(errors.Wrap(err, "metadata read failed"))
					return
				}
				remaining = metaint
			}
		}
	}
}

// readMetaBlock consumes one interleaved metadata block. The length byte
// counts 16-byte units; zero means no update.
func (it *item) readMetaBlock(r *bufio.Reader) error {
	lenByte, err := r.ReadByte()
	if err != nil {
		return err
	}
	size := int(lenByte) * 16
	if size == 0 {
		return nil
	}
	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return err
	}
	it.handleMeta(payload)
	return nil
}

func (it *item) handleMeta(payload []byte) {
	raw, tags := parseMetaBlock(payload)
	if len(tags) == 0 {
		return
	}

	it.mu.Lock()
	if raw == it.lastRawMeta || it.closed {
		it.mu.Unlock()
		return
	}
	it.lastRawMeta = raw
	select {
	case it.meta <- backend.TagBatch{tags}:
	default:
	}
	it.mu.Unlock()
}

// push hands one audio chunk to the buffer, blocking until the engine drains
// or the item is released.
func (it *item) push(chunk []byte) bool {
	select {
	case <-it.released:
		return false
	case it.chunks <- chunk:
		it.water()
		return true
	}
}

// take pops one audio chunk for the engine.
func (it *item) take(ctx context.Context) ([]byte, bool) {
	select {
	case <-ctx.Done():
		return nil, false
	case <-it.released:
		return nil, false
	case chunk := <-it.chunks:
		it.water()
		return chunk, true
	}
}

// water re-derives the buffering signals from the current fill level and
// emits only transitions.
func (it *item) water() {
	fill := len(it.chunks)
	empty := fill == 0
	keepUp := fill >= it.cfg.LowWaterChunks

	it.mu.Lock()
	defer it.mu.Unlock()
	if it.closed {
		return
	}
	if empty != it.lastEmpty {
		it.lastEmpty = empty
		select {
		case it.empty <- empty:
		default:
		}
	}
	if keepUp != it.lastKeepUp {
		it.lastKeepUp = keepUp
		select {
		case it.keepUp <- keepUp:
		default:
		}
	}
}

func (it *item) sendStatus(s backend.ItemStatus) {
	it.mu.Lock()
	defer it.mu.Unlock()
	if it.closed {
		return
	}
	select {
	case it.status <- s:
	default:
	}
}

func (it *item) fail(err error) {
	zlog.Warn().Err(err).Msgf("icy: stream item failed: url=%s", it.url)
	it.sendStatus(backend.StatusFailed)
}

func (it *item) bitrateKbps() int {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.bitrate
}

// chunkDuration is the wall-clock playout time of one full chunk at the
// stream bitrate.
func (it *item) chunkDuration() time.Duration {
	br := it.bitrateKbps()
	if br <= 0 {
		br = defaultBitrateKbps
	}
	bytesPerSecond := br * 1000 / 8
	return time.Duration(it.cfg.ChunkBytes) * time.Second / time.Duration(bytesPerSecond)
}

func headerInt(h http.Header, name string) int {
	v, err := strconv.Atoi(h.Get(name))
	if err != nil {
		return 0
	}
	return v
}
