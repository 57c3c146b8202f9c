package audio

import (
	"encoding/binary"
	"log"
	"math"
	"sync/atomic"

	"github.com/gen2brain/malgo"
)

// liveRingSize is the number of samples the capture ring buffer can
// hold, sized the way the teacher's capture.go ring is: generously
// larger than one callback period so a slow consumer doesn't force
// the audio thread to drop frames under ordinary scheduling jitter.
const liveRingSize = 65536

// liveRing is a lock-free single-producer single-consumer ring buffer,
// adapted from the teacher's capture.go ringBuffer: here the producer
// is the malgo capture callback and the consumer is WriteSamples.
type liveRing struct {
	samples [liveRingSize]float32
	head    atomic.Uint64
	tail    atomic.Uint64
}

func (r *liveRing) push(samples []float32) int {
	head := r.head.Load()
	tail := r.tail.Load()

	available := liveRingSize - int(head-tail)
	toWrite := len(samples)
	if toWrite > available {
		toWrite = available
	}
	for i := 0; i < toWrite; i++ {
		r.samples[(head+uint64(i))%liveRingSize] = samples[i]
	}
	r.head.Add(uint64(toWrite))
	return toWrite
}

func (r *liveRing) pop(buf []float32) int {
	head := r.head.Load()
	tail := r.tail.Load()

	available := int(head - tail)
	toRead := len(buf)
	if toRead > available {
		toRead = available
	}
	for i := 0; i < toRead; i++ {
		buf[i] = r.samples[(tail+uint64(i))%liveRingSize]
	}
	r.tail.Add(uint64(toRead))
	return toRead
}

// LiveSource is a Source that reads from a capture device. Unlike a
// file-backed Source, it never reports exhaustion on a transient
// underrun: a slow consumer simply gets zero-padded frames for the gap,
// the way a live microphone feed has no natural end. It exhausts
// permanently only once Close has been called and the ring has
// drained, so a Mixer can still flush whatever was already captured.
type LiveSource struct {
	ctx      *malgo.AllocatedContext
	device   *malgo.Device
	ring     *liveRing
	channels int
	closed   atomic.Bool
}

// OpenLiveSource starts a capture device at sampleRate Hz with the
// given channel count and returns a Source that yields its samples.
func OpenLiveSource(channels, sampleRate int) (*LiveSource, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, newError(NoOutputDevice)
	}

	l := &LiveSource{ctx: ctx, ring: &liveRing{}, channels: channels}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = uint32(channels)
	deviceConfig.SampleRate = uint32(sampleRate)

	onRecvFrames := func(_, input []byte, frameCount uint32) {
		if l.closed.Load() {
			return
		}
		n := int(frameCount) * channels
		samples := make([]float32, n)
		for i := range samples {
			samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(input[i*4:]))
		}
		if dropped := n - l.ring.push(samples); dropped > 0 {
			log.Printf("⚠️  audio: live capture ring full, dropped %d samples", dropped)
		}
	}

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, malgo.DeviceCallbacks{Data: onRecvFrames})
	if err != nil {
		_ = ctx.Uninit()
		ctx.Free()
		return nil, newError(DeviceNotUsable)
	}
	l.device = device

	if err := device.Start(); err != nil {
		device.Uninit()
		_ = ctx.Uninit()
		ctx.Free()
		return nil, newBackendError(err)
	}

	log.Printf("🔊 audio: capture device started: %d ch, %d Hz", channels, sampleRate)
	return l, nil
}

// ChannelCount implements Source.
func (l *LiveSource) ChannelCount() int {
	return l.channels
}

// WriteSamples implements Source. It zero-pads on underrun rather than
// reporting exhaustion, unless Close has been called and the ring is
// now empty, in which case it reports exhaustion permanently.
func (l *LiveSource) WriteSamples(buf []float32) int {
	n := l.ring.pop(buf)
	for i := n; i < len(buf); i++ {
		buf[i] = 0
	}
	if l.closed.Load() && n == 0 {
		return 0
	}
	return len(buf)
}

// Close stops the capture device. After the ring drains, WriteSamples
// reports permanent exhaustion.
func (l *LiveSource) Close() {
	l.closed.Store(true)
	if l.device != nil {
		l.device.Stop()
		l.device.Uninit()
		l.device = nil
	}
	if l.ctx != nil {
		_ = l.ctx.Uninit()
		l.ctx.Free()
		l.ctx = nil
	}
}
