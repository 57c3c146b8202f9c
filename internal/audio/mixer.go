package audio

import "sync"

// initSourceCapacity is the initial capacity reserved for a Mixer's
// child source list, so that adding the first few sources doesn't
// immediately force a reallocation.
const initSourceCapacity = 16

// activeSource is a child Source currently attached to a Mixer. It owns
// the Source and nothing else: channel adaptation is reconstructed from
// source.ChannelCount() on every pull, so there is no per-child state to
// keep in sync.
type activeSource struct {
	source Source
}

// Mixer is a simple additive mixer. It mixes any number of input
// Sources into one output Source, converting each child's channel count
// to the Mixer's output channel count where that conversion is trivial
// (same channel count, or mono broadcast to N channels).
//
// A Mixer is designed to be attached to an OutputStream and live for the
// entire lifetime of the stream; AddSource may be called from any
// goroutine while the device callback is concurrently pulling samples.
type Mixer struct {
	channels int

	mu      sync.Mutex
	sources []*activeSource
	scratch []float32
}

// NewMixer constructs a Mixer with the given output channel count.
func NewMixer(channels int) *Mixer {
	if channels < 1 {
		channels = 1
	}
	return &Mixer{
		channels: channels,
		sources:  make([]*activeSource, 0, initSourceCapacity),
	}
}

// AddSource appends a new child Source to be mixed into this Mixer's
// output. The Mixer plays from it until it is exhausted, then drops it.
// Safe to call concurrently with WriteSamples.
func (m *Mixer) AddSource(source Source) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sources = append(m.sources, &activeSource{source: source})
}

// WriteSamples implements Source. It always fills buf entirely: silence
// is a valid mix when there are no (or no longer any) live children.
func (m *Mixer) WriteSamples(buf []float32) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range buf {
		buf[i] = 0
	}

	outChannels := m.channels
	live := 0
	for _, child := range m.sources {
		if m.mixChild(child, buf, outChannels) {
			m.sources[live] = child
			live++
		}
	}
	m.sources = m.sources[:live]

	return len(buf)
}

// mixChild pulls one buffer's worth of samples from child and
// accumulates them into out, adapted to outChannels. It returns false
// once the child has underfilled and should be pruned.
func (m *Mixer) mixChild(child *activeSource, out []float32, outChannels int) bool {
	inChannels := child.source.ChannelCount()

	frames := len(out) / outChannels
	want := frames * inChannels
	if cap(m.scratch) < want {
		m.scratch = make([]float32, want)
	}
	scratch := m.scratch[:want]

	got := child.source.WriteSamples(scratch)

	switch {
	case inChannels == outChannels:
		for i := 0; i < got; i++ {
			out[i] += scratch[i]
		}
	case inChannels == 1:
		gotFrames := got
		for f := 0; f < gotFrames; f++ {
			sample := scratch[f]
			base := f * outChannels
			for c := 0; c < outChannels; c++ {
				out[base+c] += sample
			}
		}
	default:
		// Unsupported M->N downmix: deterministic silence for this
		// child on this call (spec Open Question, resolved in
		// DESIGN.md/SPEC_FULL.md).
	}

	return got == want
}

// ChannelCount implements Source.
func (m *Mixer) ChannelCount() int {
	return m.channels
}
