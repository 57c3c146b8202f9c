// Package config provides configuration and CLI argument parsing for the player command.
package config

import (
	"flag"
	"fmt"
	"os"
)

// Config holds all configuration for the audiomix player CLI.
// Populated from CLI flags or defaults.
type Config struct {
	// WAV files to decode and mix onto the output stream, in order.
	WavPaths []string

	// Channels is the desired output channel count for the Mixer.
	Channels int

	// AudioBufferMs is the device buffer size in milliseconds
	// (0 = device default).
	AudioBufferMs uint32

	// MixLiveInput, when set, adds a live microphone Source to the
	// mix alongside the decoded WAV files.
	MixLiveInput bool

	// Verbose is set by the -verbose flag. The player does not read it,
	// so it does not change what is logged.
	Verbose bool
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Channels:      2,
		AudioBufferMs: 0,
		MixLiveInput:  false,
		Verbose:       false,
	}
}

// ParseFlags parses command-line flags and returns a Config.
// Positional arguments (after the flags) are treated as WAV file paths.
func ParseFlags() (*Config, error) {
	cfg := DefaultConfig()

	flag.IntVar(&cfg.Channels, "channels", cfg.Channels, "Output channel count for the mixer")
	audioBufferMs := flag.Uint("audio-buffer-ms", uint(cfg.AudioBufferMs), "Audio buffer size in ms (0 = device default)")
	flag.BoolVar(&cfg.MixLiveInput, "mix-live-input", cfg.MixLiveInput, "Mix in a live microphone source alongside the WAV files")
	flag.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "Verbose logging flag (accepted; the player's logging is the same either way)")

	flag.Parse()

	cfg.AudioBufferMs = uint32(*audioBufferMs)
	cfg.WavPaths = flag.Args()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Channels < 1 {
		return fmt.Errorf("channels must be >= 1, got %d", c.Channels)
	}

	if len(c.WavPaths) == 0 && !c.MixLiveInput {
		return fmt.Errorf("no WAV files given and -mix-live-input not set; nothing to play")
	}

	for _, path := range c.WavPaths {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return fmt.Errorf("WAV file not found: %s", path)
		}
	}

	return nil
}
