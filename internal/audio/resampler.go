package audio

// filterSize is the fixed even order of the polyphase sinc kernel
// (spec.md §3: "FILTER_SIZE is a fixed even constant, nominally 60").
const filterSize = 60

// Resampler wraps a child Source of rate srcRate and presents a Source
// at rate dstRate, using a polyphase FIR built from a Kaiser-windowed
// sinc kernel. It preserves the child's channel count exactly.
//
// The child is read into two equal-sized sliding windows, filterA
// (older) and filterB (newer); refilling discards filterA, swaps the
// two, and reads a fresh window into the (now-stale) buffer, giving an
// O(1) pointer swap instead of a memmove on every refill.
type Resampler struct {
	source Source

	from, to   int
	channels   int
	leftOffset int
	kaiser     []float64

	filterA, filterB []float32
	bufferSize       int // samples per buffer = filterSize * channels

	inputOffset uint64 // input samples already discarded before filterA[0]
	outputCount uint64 // output samples already produced

	lastSample    uint64 // sample_index at which the child ran out, once known
	hasLastSample bool
}

// NewResampler constructs a Resampler around source, converting from
// srcRate Hz to dstRate Hz. Both rates must be positive.
func NewResampler(source Source, srcRate, dstRate int) *Resampler {
	if srcRate <= 0 || dstRate <= 0 {
		panic("audio: NewResampler requires positive sample rates")
	}

	g := gcd(srcRate, dstRate)
	from := srcRate / g
	to := dstRate / g

	channels := source.ChannelCount()
	leftOffset := (filterSize / 2) * to
	kaiser := buildKaiserTable(filterSize, from, to)

	bufferSize := filterSize * channels
	r := &Resampler{
		source:     source,
		from:       from,
		to:         to,
		channels:   channels,
		leftOffset: leftOffset,
		kaiser:     kaiser,
		filterA:    make([]float32, bufferSize),
		filterB:    make([]float32, bufferSize),
		bufferSize: bufferSize,
	}

	lenA := source.WriteSamples(r.filterA)
	if lenA != bufferSize {
		r.lastSample = uint64(lenA)
		r.hasLastSample = true
	} else {
		lenB := source.WriteSamples(r.filterB)
		if lenB != bufferSize {
			r.lastSample = uint64(bufferSize + lenB)
			r.hasLastSample = true
		}
	}

	return r
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// ChannelCount implements Source.
func (r *Resampler) ChannelCount() int {
	return r.channels
}

// WriteSamples implements Source.
func (r *Resampler) WriteSamples(buf []float32) int {
	for i := range buf {
		channel := int(r.outputCount) % r.channels
		frame := r.outputCount / uint64(r.channels)

		start := uint64(r.leftOffset) + uint64(r.from)*frame
		kaiserIndex := start % uint64(r.to)
		inputFrame := start / uint64(r.to)

		sampleIndex := inputFrame*uint64(r.channels) + uint64(channel) - r.inputOffset

		for sampleIndex >= uint64(2*r.bufferSize) && !r.hasLastSample {
			k := r.source.WriteSamples(r.filterA)
			if k != r.bufferSize {
				r.lastSample = uint64(r.bufferSize + k)
				r.hasLastSample = true
			}
			r.filterA, r.filterB = r.filterB, r.filterA
			sampleIndex -= uint64(r.bufferSize)
			r.inputOffset += uint64(r.bufferSize)
		}

		if r.hasLastSample && sampleIndex >= r.lastSample {
			return i
		}

		buf[i] = r.convolve(sampleIndex, kaiserIndex)
		r.outputCount++
	}

	return len(buf)
}

// convolve walks backwards from sampleIndex across the conceptual
// [filterA || filterB] window, stepping by the channel count, while
// stepping through the kaiser table starting at kaiserIndex with
// stride `to`. Accumulation happens in double precision; only the
// final store is cast to float32.
func (r *Resampler) convolve(sampleIndex, kaiserIndex uint64) float32 {
	var acc float64
	channels := uint64(r.channels)
	to := uint64(r.to)
	bufferSize := uint64(r.bufferSize)

	for t := uint64(0); t < filterSize; t++ {
		step := t * channels
		if step > sampleIndex {
			break
		}
		pos := sampleIndex - step
		kidx := kaiserIndex + t*to
		if kidx >= uint64(len(r.kaiser)) {
			break
		}

		var sample float32
		if pos < bufferSize {
			sample = r.filterA[pos]
		} else {
			sample = r.filterB[pos-bufferSize]
		}
		acc += float64(sample) * r.kaiser[kidx]
	}

	return float32(acc)
}
