// Package main provides the radio player entry point.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"

	"github.com/markst/RxRadioPlayer/internal/app/radio"
	"github.com/markst/RxRadioPlayer/internal/backend"
	"github.com/markst/RxRadioPlayer/internal/backend/fake"
	"github.com/markst/RxRadioPlayer/internal/backend/icy"
	"github.com/markst/RxRadioPlayer/internal/infra/config"
	"github.com/markst/RxRadioPlayer/internal/infra/logger"
)

var (
	app        = kingpin.New("radioplayer", "Internet radio player")
	configPath = app.Flag("config", "Path to config file").Default("config/radioplayer.yaml").String()
	streamURL  = app.Flag("url", "Stream URL (overrides config)").String()
	autoPlay   = app.Flag("autoplay", "Start playback once the stream is ready").Bool()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	kingpin.MustParse(app.Parse(os.Args[1:]))

	loggerConfig := logger.Config{
		Output: "stdout",
		Level:  "info",
	}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
		loggerConfig.File = *logfile
	}
	if err := logger.Init(loggerConfig); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}
	if *streamURL != "" {
		cfg.Station.URL = *streamURL
	}
	if *autoPlay {
		cfg.Player.AutoPlay = true
	}

	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Player error: %v", err)
		os.Exit(1)
	}
}

// run executes the main player logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config) error {
	b, err := newBackend(cfg)
	if err != nil {
		return err
	}

	player := radio.New(b, radio.Config{
		URL:      cfg.Station.URL,
		AutoPlay: cfg.Player.AutoPlay,
	})
	defer player.Close()

	stop := watchStreams(player)
	defer stop()

	if cfg.Station.Name != "" {
		zlog.Info().Msgf("Tuned to %s", cfg.Station.Name)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	zlog.Info().Msg("Received shutdown signal...")
	return nil
}

// newBackend builds the configured media backend.
func newBackend(cfg *config.Config) (backend.MediaBackend, error) {
	switch cfg.Player.Backend {
	case "icy":
		return icy.New(icy.Config{
			ConnectTimeout: cfg.ICY.ConnectTimeout(),
			BufferChunks:   cfg.ICY.BufferChunks,
			LowWaterChunks: cfg.ICY.LowWaterChunks,
			ChunkBytes:     cfg.ICY.ChunkBytes,
		}), nil
	case "fake":
		return fake.New(), nil
	default:
		return nil, errors.Newf("unknown backend %q", cfg.Player.Backend)
	}
}

// watchStreams logs every emission of the player's observable streams.
func watchStreams(p *radio.Player) (stop func()) {
	playerStates, cancelPlayer := p.PlayerStates().Subscribe()
	playbackStates, cancelPlayback := p.PlaybackStates().Subscribe()
	meta, cancelMeta := p.Metadata().Subscribe()
	rates, cancelRate := p.Rate().Subscribe()
	headphones, cancelHeadphones := p.HeadphonesConnected().Subscribe()

	go func() {
		for s := range playerStates {
			zlog.Info().Msgf("Player state: %s", s)
		}
	}()
	go func() {
		for s := range playbackStates {
			zlog.Info().Msgf("Playback state: %s", s)
		}
	}()
	go func() {
		for m := range meta {
			if m == nil {
				continue
			}
			zlog.Info().Msgf("Now playing: %s", m.Title)
		}
	}()
	go func() {
		for r := range rates {
			zlog.Debug().Msgf("Transport rate: %.1f", r)
		}
	}()
	go func() {
		for connected := range headphones {
			zlog.Debug().Msgf("Headphones connected: %t", connected)
		}
	}()

	return func() {
		cancelPlayer()
		cancelPlayback()
		cancelMeta()
		cancelRate()
		cancelHeadphones()
	}
}
