package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
		errMsg  string
	}{
		{
			name: "valid config",
			config: Config{
				Station: StationConfig{URL: "http://ice1.somafm.com/groovesalad-128-aac"},
				Player:  PlayerConfig{Backend: "icy"},
				ICY:     ICYConfig{ConnectTimeoutMs: 10000, BufferChunks: 64, LowWaterChunks: 8, ChunkBytes: 4096},
				Log:     LogConfig{Level: "info", Output: "stdout"},
			},
			wantErr: false,
		},
		{
			name: "empty station url allowed",
			config: Config{
				Player: PlayerConfig{Backend: "fake"},
				ICY:    ICYConfig{ConnectTimeoutMs: 10000, BufferChunks: 64, LowWaterChunks: 8, ChunkBytes: 4096},
				Log:    LogConfig{Level: "info", Output: "stdout"},
			},
			wantErr: false,
		},
		{
			name: "malformed station url",
			config: Config{
				Station: StationConfig{URL: "not a url"},
				Player:  PlayerConfig{Backend: "icy"},
				ICY:     ICYConfig{ConnectTimeoutMs: 10000, BufferChunks: 64, LowWaterChunks: 8, ChunkBytes: 4096},
				Log:     LogConfig{Level: "info", Output: "stdout"},
			},
			wantErr: true,
			errMsg:  "URL",
		},
		{
			name: "unknown backend",
			config: Config{
				Player: PlayerConfig{Backend: "avfoundation"},
				ICY:    ICYConfig{ConnectTimeoutMs: 10000, BufferChunks: 64, LowWaterChunks: 8, ChunkBytes: 4096},
				Log:    LogConfig{Level: "info", Output: "stdout"},
			},
			wantErr: true,
			errMsg:  "Backend",
		},
		{
			name: "unknown log level",
			config: Config{
				Player: PlayerConfig{Backend: "icy"},
				ICY:    ICYConfig{ConnectTimeoutMs: 10000, BufferChunks: 64, LowWaterChunks: 8, ChunkBytes: 4096},
				Log:    LogConfig{Level: "verbose", Output: "stdout"},
			},
			wantErr: true,
			errMsg:  "Level",
		},
		{
			name: "low water above buffer size",
			config: Config{
				Player: PlayerConfig{Backend: "icy"},
				ICY:    ICYConfig{ConnectTimeoutMs: 10000, BufferChunks: 16, LowWaterChunks: 16, ChunkBytes: 4096},
				Log:    LogConfig{Level: "info", Output: "stdout"},
			},
			wantErr: true,
			errMsg:  "low_water_chunks",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()

			if tt.wantErr {
				require.Error(t, err, "expected validation to fail")
				assert.Contains(t, err.Error(), tt.errMsg,
					"error message should mention the problematic field")
			} else {
				assert.NoError(t, err, "expected validation to pass")
			}
		})
	}
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("station:\n  url: http://stream.example/radio.aac\n")
	require.NoError(t, os.WriteFile(path, content, 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://stream.example/radio.aac", cfg.Station.URL)
	assert.Equal(t, "icy", cfg.Player.Backend)
	assert.False(t, cfg.Player.AutoPlay)
	assert.Equal(t, 64, cfg.ICY.BufferChunks)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("station:\n  url: http://stream.example/file.aac\n")
	require.NoError(t, os.WriteFile(path, content, 0644))

	t.Setenv("RADIO_STATION_URL", "http://stream.example/env.aac")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://stream.example/env.aac", cfg.Station.URL)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
