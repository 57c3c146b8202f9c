// Package audio provides a real-time-safe mixer, a polyphase resampler, a
// WAV decoder and a device-backed output stream built on top of malgo.
package audio

// Source is something that can be pulled from to fill an interleaved
// float32 buffer. Implementations include the Mixer itself, the
// Resampler, the WAV decoder and LiveSource.
//
// Buffers passed to WriteSamples must have a length that is a multiple
// of ChannelCount; violating this is a programmer error, not something
// a Source is required to detect.
type Source interface {
	// WriteSamples writes the next set of interleaved samples into buf,
	// starting at buf[0], and returns how many samples were written.
	//
	// A return value less than len(buf) signals terminal exhaustion:
	// every subsequent call must return 0. A Source may underfill
	// exactly once.
	WriteSamples(buf []float32) int

	// ChannelCount returns the number of interleaved channels this
	// Source produces. It never changes over the Source's lifetime.
	ChannelCount() int
}
