package icy

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markst/RxRadioPlayer/internal/backend"
)

const waitTimeout = 2 * time.Second

// icyBlock frames metadata text as a length byte plus NUL-padded payload.
func icyBlock(text string) []byte {
	if text == "" {
		return []byte{0x00}
	}
	units := (len(text) + 15) / 16
	buf := make([]byte, 1+units*16)
	buf[0] = byte(units)
	copy(buf[1:], text)
	return buf
}

func TestLoadAsset(t *testing.T) {
	tests := []struct {
		name         string
		handler      http.HandlerFunc
		wantErr      bool
		wantPlayable bool
	}{
		{
			name: "audio content type",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "audio/mpeg")
			},
			wantPlayable: true,
		},
		{
			name: "icy headers without content type",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("icy-name", "Test FM")
			},
			wantPlayable: true,
		},
		{
			name: "html page",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/html")
			},
			wantPlayable: false,
		},
		{
			name: "not found",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			b := New(Config{})
			defer b.Close()

			res := <-b.LoadAsset(context.Background(), srv.URL)
			if tt.wantErr {
				assert.Error(t, res.Err)
				return
			}
			require.NoError(t, res.Err)
			assert.Equal(t, tt.wantPlayable, res.Playable)
		})
	}
}

func TestLoadAsset_ProbeRequestsMetadata(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.Header.Get("Icy-MetaData"))
		w.Header().Set("Content-Type", "audio/aac")
	}))
	defer srv.Close()

	b := New(Config{})
	defer b.Close()

	res := <-b.LoadAsset(context.Background(), srv.URL)
	require.NoError(t, res.Err)
	assert.True(t, res.Playable)
}

func TestItem_StreamsAudioAndMetadata(t *testing.T) {
	audio := bytes.Repeat([]byte{0xAA}, 16)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Header().Set("icy-metaint", "16")
		w.Header().Set("icy-br", "128")
		w.WriteHeader(http.StatusOK)
		w.Write(audio)
		w.Write(icyBlock("StreamTitle='Test Song';"))
		w.Write(audio)
		w.Write(icyBlock("")) // no update
		w.Write(audio)
		// Same title again, must be suppressed.
		w.Write(icyBlock("StreamTitle='Test Song';"))
		w.Write(audio)
	}))
	defer srv.Close()

	b := New(Config{ChunkBytes: 8, BufferChunks: 32, LowWaterChunks: 2})
	it, err := b.NewItem(srv.URL)
	require.NoError(t, err)
	defer it.Release()

	select {
	case s := <-it.Status():
		assert.Equal(t, backend.StatusReadyToPlay, s)
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for ready status")
	}

	select {
	case batch := <-it.TimedMetadata():
		require.Len(t, batch, 1)
		assert.Equal(t, "Test Song", batch[0]["StreamTitle"])
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for metadata")
	}

	// The repeated title must not produce a second batch.
	select {
	case batch := <-it.TimedMetadata():
		t.Fatalf("unexpected extra metadata batch: %v", batch)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestItem_BufferSignalsFollowFillLevel(t *testing.T) {
	audio := bytes.Repeat([]byte{0xAA}, 64)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		w.WriteHeader(http.StatusOK)
		w.Write(audio)
	}))
	defer srv.Close()

	b := New(Config{ChunkBytes: 8, BufferChunks: 32, LowWaterChunks: 2})
	raw, err := b.NewItem(srv.URL)
	require.NoError(t, err)
	defer raw.Release()

	select {
	case empty := <-raw.BufferEmpty():
		assert.False(t, empty, "first chunk must clear the dry-buffer signal")
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for buffer signal")
	}

	select {
	case keepUp := <-raw.LikelyToKeepUp():
		assert.True(t, keepUp, "fill above low water reports healthy")
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for keep-up signal")
	}
}

func TestItem_ReportsFailureOnBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	b := New(Config{})
	it, err := b.NewItem(srv.URL)
	require.NoError(t, err)
	defer it.Release()

	select {
	case s := <-it.Status():
		assert.Equal(t, backend.StatusFailed, s)
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for failed status")
	}
}

func TestNewItem_RejectsMalformedURL(t *testing.T) {
	b := New(Config{})
	_, err := b.NewItem("://not-a-url")
	assert.Error(t, err)
}

func TestEngine_RateFollowsTransport(t *testing.T) {
	audio := bytes.Repeat([]byte{0xAA}, 256)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		w.WriteHeader(http.StatusOK)
		w.Write(audio)
	}))
	defer srv.Close()

	b := New(Config{ChunkBytes: 8, BufferChunks: 64, LowWaterChunks: 2})
	it, err := b.NewItem(srv.URL)
	require.NoError(t, err)
	defer it.Release()

	e := b.NewEngine()
	assert.Zero(t, e.Rate(), "no item attached")

	e.AttachItem(it)
	assert.Zero(t, e.Rate(), "attached but not playing")

	e.Play()
	assert.Equal(t, 1.0, e.Rate())

	e.Pause()
	assert.Zero(t, e.Rate())

	e.Play()
	e.DetachItem()
	assert.Zero(t, e.Rate(), "detach suspends the transport")
}

func TestStaticRoutes(t *testing.T) {
	b := New(Config{})
	r := b.Routes()

	assert.False(t, r.CurrentRoute().HasHeadphones())

	select {
	case change := <-r.RouteChanges():
		t.Fatalf("unexpected route change: %v", change)
	default:
	}
}
