package audio

import (
	"encoding/binary"
	"math"
)

// WavErrorKind identifies why a WAV byte blob could not be decoded
// (spec.md §4.4/§7). It is deliberately distinct from the top-level
// Error taxonomy: WAV decoding is a construction-time, data-shape
// concern, not a device-boundary one.
type WavErrorKind int

const (
	// InvalidFile means the blob does not look like a RIFF/WAVE file at all.
	InvalidFile WavErrorKind = iota
	// MalformedData means the data chunk claims more bytes than the blob has.
	MalformedData
	// UnknownFormat means the fmt chunk names an encoding this decoder doesn't support.
	UnknownFormat
)

func (k WavErrorKind) String() string {
	switch k {
	case InvalidFile:
		return "invalid WAV file"
	case MalformedData:
		return "malformed WAV data"
	case UnknownFormat:
		return "unknown WAV format"
	default:
		return "unknown WAV error"
	}
}

// WavError is returned by NewWavDecoder.
type WavError struct {
	Kind WavErrorKind
}

func (e *WavError) Error() string {
	return "audio: " + e.Kind.String()
}

type wavSampleGetter func(data []byte, offset int) (float32, bool)

// WavDecoder decodes a RIFF/WAVE byte blob into a Source, translated
// from original_source/src/source/wav.rs into Go. It supports PCM
// u8/i16/i24/i32 and IEEE float32 (spec.md §4.4).
type WavDecoder struct {
	data       []byte
	channels   int
	sampleRate int
	blockAlign int
	bytesPer   int
	dataStart  int
	dataEnd    int
	getSample  wavSampleGetter

	frame int // next frame to read
}

// NewWavDecoder parses a RIFF/WAVE byte blob and returns a Source that
// yields its samples as interleaved float32 frames.
func NewWavDecoder(file []byte) (*WavDecoder, error) {
	if len(file) < 36 ||
		string(file[0:4]) != "RIFF" ||
		string(file[8:12]) != "WAVE" {
		return nil, &WavError{Kind: InvalidFile}
	}

	audioFormat := int16(binary.LittleEndian.Uint16(file[20:22]))
	channels := binary.LittleEndian.Uint16(file[22:24])
	sampleRate := binary.LittleEndian.Uint32(file[24:28])
	blockAlign := binary.LittleEndian.Uint16(file[32:34])
	bitsPerSample := binary.LittleEndian.Uint16(file[34:36])

	dataStart := 36
	var dataLen int
	for {
		if len(file) < dataStart+8 {
			return nil, &WavError{Kind: InvalidFile}
		}
		isData := string(file[dataStart:dataStart+4]) == "data"
		chunkLen := int(binary.LittleEndian.Uint32(file[dataStart+4 : dataStart+8]))
		dataStart += 8
		if isData {
			dataLen = chunkLen
			break
		}
		dataStart += chunkLen
	}

	expectedLen := dataLen + dataStart
	if expectedLen > len(file) {
		return nil, &WavError{Kind: MalformedData}
	}
	file = file[:expectedLen]

	var bytesPer int
	var getSample wavSampleGetter
	switch {
	case audioFormat == 1 && bitsPerSample == 8:
		bytesPer, getSample = 1, getSampleU8
	case audioFormat == 1 && bitsPerSample == 16:
		bytesPer, getSample = 2, getSampleI16
	case audioFormat == 1 && bitsPerSample == 24:
		bytesPer, getSample = 3, getSampleI24
	case audioFormat == 1 && bitsPerSample == 32:
		bytesPer, getSample = 4, getSampleI32
	case audioFormat == 3 && bitsPerSample == 32:
		bytesPer, getSample = 4, getSampleF32
	default:
		return nil, &WavError{Kind: UnknownFormat}
	}

	return &WavDecoder{
		data:       file,
		channels:   int(channels),
		sampleRate: int(sampleRate),
		blockAlign: int(blockAlign),
		bytesPer:   bytesPer,
		dataStart:  dataStart,
		dataEnd:    dataStart + dataLen,
		getSample:  getSample,
	}, nil
}

// SampleRate returns the file's sample rate in Hz.
func (w *WavDecoder) SampleRate() int {
	return w.sampleRate
}

// ChannelCount implements Source.
func (w *WavDecoder) ChannelCount() int {
	return w.channels
}

// WriteSamples implements Source.
func (w *WavDecoder) WriteSamples(buf []float32) int {
	data := w.data[w.dataStart:w.dataEnd]
	channels := w.channels
	frames := len(buf) / channels

	for f := 0; f < frames; f++ {
		base := (w.frame + f) * w.blockAlign
		for c := 0; c < channels; c++ {
			sample, ok := w.getSample(data, base+c*w.bytesPer)
			if !ok {
				w.frame += f
				return f * channels
			}
			buf[f*channels+c] = sample
		}
	}

	w.frame += frames
	return frames * channels
}

func getSampleU8(data []byte, offset int) (float32, bool) {
	if offset < 0 || offset >= len(data) {
		return 0, false
	}
	sample := int16(data[offset]) - 0x80
	return float32(sample) / float32(127), true
}

func getSampleI16(data []byte, offset int) (float32, bool) {
	if offset < 0 || offset+2 > len(data) {
		return 0, false
	}
	sample := int16(binary.LittleEndian.Uint16(data[offset : offset+2]))
	return float32(sample) / float32(32767), true
}

func getSampleI24(data []byte, offset int) (float32, bool) {
	if offset < 0 || offset+3 > len(data) {
		return 0, false
	}
	raw := uint32(data[offset]) | uint32(data[offset+1])<<8 | uint32(data[offset+2])<<16
	if raw&0x800000 != 0 {
		raw |= 0xFF000000
	}
	sample := int32(raw)
	return float32(sample) / float32(8388608), true
}

func getSampleI32(data []byte, offset int) (float32, bool) {
	if offset < 0 || offset+4 > len(data) {
		return 0, false
	}
	sample := int32(binary.LittleEndian.Uint32(data[offset : offset+4]))
	return float32(float64(sample) / float64(2147483647)), true
}

func getSampleF32(data []byte, offset int) (float32, bool) {
	if offset < 0 || offset+4 > len(data) {
		return 0, false
	}
	bits := binary.LittleEndian.Uint32(data[offset : offset+4])
	return math.Float32frombits(bits), true
}
