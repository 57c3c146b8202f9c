package audio

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/dsp/fourier"
)

// constSource yields a fixed DC value forever on every channel.
type constSource struct {
	channels int
	value    float32
}

func (s *constSource) ChannelCount() int { return s.channels }

func (s *constSource) WriteSamples(buf []float32) int {
	for i := range buf {
		buf[i] = s.value
	}
	return len(buf)
}

// impulseSource yields 1.0 at frame 0 and 0.0 forever after, never
// exhausting.
type impulseSource struct {
	channels int
	frame    int
}

func (s *impulseSource) ChannelCount() int { return s.channels }

func (s *impulseSource) WriteSamples(buf []float32) int {
	frames := len(buf) / s.channels
	for f := 0; f < frames; f++ {
		var v float32
		if s.frame == 0 {
			v = 1.0
		}
		for c := 0; c < s.channels; c++ {
			buf[f*s.channels+c] = v
		}
		s.frame++
	}
	return len(buf)
}

func TestResamplerChannelInvariance(t *testing.T) {
	src := &sineSource{channels: 3, freq: 440, sampleRate: 22050, maxFrames: -1}
	r := NewResampler(src, 22050, 44100)
	assert.Equal(t, 3, r.ChannelCount())
}

func TestResamplerIdentityPassband(t *testing.T) {
	const sampleRate = 44100
	const freq = 1000.0

	src := &sineSource{channels: 1, freq: freq, sampleRate: sampleRate, maxFrames: -1}
	r := NewResampler(src, sampleRate, sampleRate)
	require.Equal(t, 1, r.from)
	require.Equal(t, 1, r.to)

	const n = 400
	buf := make([]float32, n)
	got := r.WriteSamples(buf)
	require.Equal(t, n, got)

	// leftOffset = (filterSize/2)*to is chosen precisely to cancel the
	// FIR kernel's group delay in the 1:1 case, so output[f] should
	// track the input tone at the same frame index, once the kernel's
	// edge taps are clear of the buffer boundaries.
	for f := filterSize; f < n-filterSize; f++ {
		want := sineValue(freq, sampleRate, f)
		assert.InDelta(t, want, buf[f], 5e-3)
	}
}

func TestResamplerImpulseResponseMatchesKaiserTable(t *testing.T) {
	const inRate = 22050
	const outRate = 44100

	src := &impulseSource{channels: 1}
	r := NewResampler(src, inRate, outRate)
	require.Equal(t, 1, r.from)
	require.Equal(t, 2, r.to)

	const n = 100
	buf := make([]float32, n)
	got := r.WriteSamples(buf)
	require.Equal(t, n, got)

	for f := 0; f < n; f++ {
		start := r.leftOffset + r.from*f
		kaiserIndex := start % r.to
		inputFrame := start / r.to
		sampleIndex := inputFrame // channels == 1, channel 0, no refill has occurred yet

		var want float32
		if sampleIndex >= 0 && sampleIndex < filterSize {
			kidx := kaiserIndex + sampleIndex*r.to
			if kidx < len(r.kaiser) {
				want = float32(r.kaiser[kidx])
			}
		}
		assert.InDeltaf(t, want, buf[f], 1e-6, "frame %d", f)
	}
}

func TestResamplerDCConstant(t *testing.T) {
	const inRate = 48000
	const outRate = 44100

	src := &constSource{channels: 1, value: 0.5}
	r := NewResampler(src, inRate, outRate)

	const n = 2000
	buf := make([]float32, n)
	got := r.WriteSamples(buf)
	require.Equal(t, n, got)

	for f := filterSize; f < n; f++ {
		assert.InDelta(t, 0.5, buf[f], 1e-2)
	}
}

func TestResamplerPullLengthContract(t *testing.T) {
	const sampleRate = 44100
	src := &sineSource{channels: 1, freq: 440, sampleRate: sampleRate, maxFrames: 500}
	r := NewResampler(src, sampleRate, sampleRate)

	buf := make([]float32, 64)
	var underfilled bool
	for i := 0; i < 20; i++ {
		n := r.WriteSamples(buf)
		require.LessOrEqual(t, n, len(buf))
		if underfilled {
			assert.Equal(t, 0, n, "resampler must report 0 on every pull after its first underfill")
		}
		if n < len(buf) {
			underfilled = true
		}
	}
	assert.True(t, underfilled, "a finite source must eventually underfill the resampler")
}

func peakMagnitude(samples []float64) float64 {
	fft := fourier.NewFFT(len(samples))
	coeffs := fft.Coefficients(nil, samples)
	peak := 0.0
	for i, c := range coeffs {
		if i == 0 {
			continue // skip DC
		}
		mag := math.Hypot(real(c), imag(c))
		if mag > peak {
			peak = mag
		}
	}
	return peak
}

func resampleTone(t *testing.T, freq float64, inRate, outRate, n int) []float64 {
	t.Helper()
	src := &sineSource{channels: 1, freq: freq, sampleRate: inRate, maxFrames: -1}
	r := NewResampler(src, inRate, outRate)

	const transient = 512
	discard := make([]float32, transient)
	require.Equal(t, transient, r.WriteSamples(discard))

	buf := make([]float32, n)
	require.Equal(t, n, r.WriteSamples(buf))

	out := make([]float64, n)
	for i, v := range buf {
		out[i] = float64(v)
	}
	return out
}

func TestResamplerEnergyBound(t *testing.T) {
	const inRate = 88200
	const outRate = 44100
	const n = 8192

	// 372 cycles per n-sample window at outRate (about 2002.6 Hz): the
	// tone sits exactly on an FFT bin, so its peak is not lowered by
	// spectral leakage and n/2 is the right reference for a unit tone.
	passFreq := 372 * float64(outRate) / n
	passband := resampleTone(t, passFreq, inRate, outRate, n)
	stopband := resampleTone(t, 30000, inRate, outRate, n)

	passPeak := peakMagnitude(passband)
	stopPeak := peakMagnitude(stopband)

	unitTonePeak := float64(n) / 2
	lowerDb := unitTonePeak * math.Pow(10, -1.0/20)
	upperDb := unitTonePeak * math.Pow(10, 1.0/20)
	assert.GreaterOrEqual(t, passPeak, lowerDb, "passband tone attenuated by more than 1 dB")
	assert.LessOrEqual(t, passPeak, upperDb, "passband tone boosted by more than 1 dB")

	stopboundMax := unitTonePeak * math.Pow(10, -60.0/20)
	assert.LessOrEqual(t, stopPeak, stopboundMax, "stopband tone not attenuated by at least 60 dB")
}
