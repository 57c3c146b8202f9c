package audio

import (
	"encoding/binary"
	"log"
	"math"

	"github.com/gen2brain/malgo"
)

// OutputStream binds a Mixer to a real playback device. The malgo data
// callback locks the Mixer directly and pulls straight into the
// device's output buffer; there is no intermediate ring buffer, so the
// callback's latency is exactly the Mixer's WriteSamples cost.
//
// Construction-time failures are returned as *Error. Once running,
// per-callback problems (there should be none in steady state, since
// Mixer.WriteSamples always fills its buffer) are only ever logged,
// never propagated, matching the teacher's playback.go precedent of
// keeping the audio thread free of error-return plumbing.
type OutputStream struct {
	ctx        *malgo.AllocatedContext
	device     *malgo.Device
	mixer      *Mixer
	sampleRate int
}

// Open starts a playback device with the given channel count and
// requests a period size of bufferMs milliseconds (0 uses malgo's
// default). It returns DeviceNotUsable if the device cannot be
// negotiated to 32-bit float samples.
func Open(channels int, bufferMs uint32) (*OutputStream, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, newBackendErrorKind(NoOutputDevice, err)
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatF32
	deviceConfig.Playback.Channels = uint32(channels)
	deviceConfig.PeriodSizeInMilliseconds = bufferMs

	// Query the rate the device actually negotiates to, the way the
	// teacher's capture.go does: open a throwaway device with no
	// callbacks, read SampleRate() back, then tear it down before
	// opening the real one with the data callback attached.
	tempDevice, err := malgo.InitDevice(ctx.Context, deviceConfig, malgo.DeviceCallbacks{})
	if err != nil {
		_ = ctx.Uninit()
		ctx.Free()
		return nil, newError(DeviceNotUsable)
	}
	sampleRate := tempDevice.SampleRate()
	tempDevice.Uninit()

	mixer := NewMixer(channels)
	var scratch []float32

	onSendFrames := func(output, _ []byte, frameCount uint32) {
		want := int(frameCount) * channels
		if cap(scratch) < want {
			scratch = make([]float32, want)
		}
		buf := scratch[:want]

		n := mixer.WriteSamples(buf)
		if n != len(buf) {
			log.Printf("⚠️  audio: mixer underfilled playback buffer: got %d of %d samples", n, len(buf))
		}

		for i, sample := range buf {
			binary.LittleEndian.PutUint32(output[i*4:], math.Float32bits(sample))
		}
	}

	// deviceConfig.Playback.Format is pinned to malgo.FormatF32 above;
	// a device that cannot serve 32-bit float samples fails here rather
	// than silently negotiating down to an integer format (spec's
	// DeviceNotUsable case).
	device, err := malgo.InitDevice(ctx.Context, deviceConfig, malgo.DeviceCallbacks{Data: onSendFrames})
	if err != nil {
		_ = ctx.Uninit()
		ctx.Free()
		return nil, newError(DeviceNotUsable)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		_ = ctx.Uninit()
		ctx.Free()
		return nil, newBackendError(err)
	}

	log.Printf("🔊 audio: playback device started: %d ch, %d Hz, buffer %d ms", channels, sampleRate, bufferMs)

	return &OutputStream{ctx: ctx, device: device, mixer: mixer, sampleRate: int(sampleRate)}, nil
}

// SampleRate returns the native sample rate the playback device was
// opened at.
func (s *OutputStream) SampleRate() int {
	return s.sampleRate
}

// AddSource attaches a new Source to be mixed into this stream's
// output. Safe to call while the device is running.
func (s *OutputStream) AddSource(src Source) {
	s.mixer.AddSource(src)
}

// Close stops the device and releases the context. Safe to call once.
func (s *OutputStream) Close() error {
	if s.device != nil {
		s.device.Stop()
		s.device.Uninit()
		s.device = nil
	}
	if s.ctx != nil {
		if err := s.ctx.Uninit(); err != nil {
			s.ctx.Free()
			s.ctx = nil
			return newBackendError(err)
		}
		s.ctx.Free()
		s.ctx = nil
	}
	return nil
}

func newBackendErrorKind(kind ErrorKind, payload error) *Error {
	return &Error{Kind: kind, Payload: payload}
}
