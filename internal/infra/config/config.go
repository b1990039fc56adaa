// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Station StationConfig `yaml:"station"`
	Player  PlayerConfig  `yaml:"player"`
	ICY     ICYConfig     `yaml:"icy"`
	Log     LogConfig     `yaml:"log"`
}

// StationConfig identifies the radio station to play.
type StationConfig struct {
	URL  string `yaml:"url" validate:"omitempty,url"`
	Name string `yaml:"name"`
}

// PlayerConfig represents player behavior configuration.
type PlayerConfig struct {
	AutoPlay bool   `yaml:"auto_play"`
	Backend  string `yaml:"backend" default:"icy" validate:"oneof=icy fake"`
}

// ICYConfig tunes the ICY streaming backend.
type ICYConfig struct {
	ConnectTimeoutMs int `yaml:"connect_timeout_ms" default:"10000" validate:"gte=0,lte=60000"`
	BufferChunks     int `yaml:"buffer_chunks" default:"64" validate:"gte=4"`
	LowWaterChunks   int `yaml:"low_water_chunks" default:"8" validate:"gte=1"`
	ChunkBytes       int `yaml:"chunk_bytes" default:"4096" validate:"gte=512"`
}

// ConnectTimeout returns the configured connect timeout as a duration.
func (c ICYConfig) ConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeoutMs) * time.Millisecond
}

// LogConfig represents logging configuration.
type LogConfig struct {
	Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
	Output string `yaml:"output" default:"stdout"`
	File   string `yaml:"file"`
}

// Load loads configuration from a YAML file. Environment variables take
// precedence over file values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	cfg.overrideFromEnv()

	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("RADIO_STATION_URL"); v != "" {
		c.Station.URL = v
	}
	if v := os.Getenv("RADIO_STATION_NAME"); v != "" {
		c.Station.Name = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}

	if c.ICY.LowWaterChunks >= c.ICY.BufferChunks {
		return errors.Newf("low_water_chunks (%d) must be below buffer_chunks (%d)",
			c.ICY.LowWaterChunks, c.ICY.BufferChunks)
	}

	return nil
}
