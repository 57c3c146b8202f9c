// player loads a list of WAV files, mixes them against an optional live
// microphone feed, and plays the result through the default output
// device until interrupted.
package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/agalue/audiomix/internal/audio"
	"github.com/agalue/audiomix/internal/config"
)

func main() {
	cfg, err := config.ParseFlags()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	log.Println("🔊 audiomix player starting...")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	stream, err := audio.Open(cfg.Channels, cfg.AudioBufferMs)
	if err != nil {
		log.Fatalf("Failed to open output stream: %v", err)
	}
	defer stream.Close()

	for _, path := range cfg.WavPaths {
		src, err := openWavSource(path, stream.SampleRate())
		if err != nil {
			log.Printf("⚠️  Skipping %s: %v", path, err)
			continue
		}
		stream.AddSource(src)
		log.Printf("🎵 Queued %s", path)
	}

	if cfg.MixLiveInput {
		live, err := audio.OpenLiveSource(cfg.Channels, 48000)
		if err != nil {
			log.Fatalf("Failed to open live input: %v", err)
		}
		defer live.Close()
		stream.AddSource(live)
		log.Println("🎙️ Mixing in live input")
	}

	log.Println("▶️  Playing... (Ctrl+C to quit)")
	<-sigChan
	log.Println("🛑 Shutting down...")
}

// openWavSource decodes path and, if its sample rate differs from
// deviceRate, wraps it in a Resampler so the Mixer always receives
// frames at the device's native rate.
func openWavSource(path string, deviceRate int) (audio.Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	dec, err := audio.NewWavDecoder(data)
	if err != nil {
		return nil, err
	}

	if dec.SampleRate() == deviceRate {
		return dec, nil
	}
	return audio.NewResampler(dec, dec.SampleRate(), deviceRate), nil
}
