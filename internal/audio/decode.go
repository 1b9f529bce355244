package audio

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"

	"xtts-desktop/internal/domain"
)

// Format is the container used for decoding and export.
type Format string

const (
	FormatWAV Format = "wav"
	FormatMP3 Format = "mp3"
)

// Ext returns the file extension including the dot.
func (f Format) Ext() string {
	return "." + string(f)
}

// FormatFor classifies a MIME type: anything mentioning mp3/mpeg is MP3, the rest WAV.
func FormatFor(contentType string) Format {
	ct := strings.ToLower(contentType)
	if strings.Contains(ct, "mp3") || strings.Contains(ct, "mpeg") {
		return FormatMP3
	}
	return FormatWAV
}

// ParseFormat maps a settings value to a Format; empty means "derive".
func ParseFormat(raw string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return "", nil
	case "wav":
		return FormatWAV, nil
	case "mp3":
		return FormatMP3, nil
	default:
		return "", fmt.Errorf("unsupported audio format: %s", raw)
	}
}

// rawPCM is decoded audio before normalization.
type rawPCM struct {
	sampleRate int
	channels   int
	samples    []int16
}

// Decode parses server audio and normalizes it to the shared layout.
func Decode(data []byte, contentType string) (*Buffer, error) {
	if len(data) == 0 {
		return nil, domain.NewError(domain.KindIO, "decode audio", fmt.Errorf("empty audio payload"))
	}

	var (
		pcm rawPCM
		err error
	)
	switch FormatFor(contentType) {
	case FormatMP3:
		pcm, err = decodeMP3(data)
	default:
		pcm, err = decodeWAV(data)
	}
	if err != nil {
		return nil, domain.NewError(domain.KindIO, "decode audio", err)
	}

	return normalize(pcm), nil
}

// decodeWAV reads integer PCM WAV data of 8, 16, 24, or 32 bits.
func decodeWAV(data []byte) (rawPCM, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return rawPCM{}, fmt.Errorf("not a valid WAV file")
	}
	if dec.WavAudioFormat == 3 {
		return rawPCM{}, fmt.Errorf("floating point WAV is not supported")
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return rawPCM{}, fmt.Errorf("read WAV samples: %w", err)
	}
	if buf.Format == nil || buf.Format.NumChannels == 0 || buf.Format.SampleRate == 0 {
		return rawPCM{}, fmt.Errorf("WAV header has no channel or rate information")
	}

	depth := int(dec.BitDepth)
	samples := make([]int16, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = toInt16(v, depth)
	}

	return rawPCM{
		sampleRate: buf.Format.SampleRate,
		channels:   buf.Format.NumChannels,
		samples:    samples,
	}, nil
}

// decodeMP3 decodes to 16-bit stereo, the only output layout of go-mp3.
func decodeMP3(data []byte) (rawPCM, error) {
	dec, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return rawPCM{}, fmt.Errorf("open MP3 stream: %w", err)
	}

	raw, err := io.ReadAll(dec)
	if err != nil {
		return rawPCM{}, fmt.Errorf("read MP3 frames: %w", err)
	}

	samples := make([]int16, len(raw)/2)
	for i := range samples {
		samples[i] = int16(uint16(raw[2*i]) | uint16(raw[2*i+1])<<8)
	}

	return rawPCM{
		sampleRate: dec.SampleRate(),
		channels:   2,
		samples:    samples,
	}, nil
}

// toInt16 scales a sample of the given bit depth to 16 bits. 8-bit WAV is unsigned.
func toInt16(v, depth int) int16 {
	switch depth {
	case 8:
		return int16((v - 128) << 8)
	case 24:
		return int16(v >> 8)
	case 32:
		return int16(v >> 16)
	default:
		return int16(v)
	}
}

// normalize maps channels to stereo and resamples to SampleRate.
func normalize(pcm rawPCM) *Buffer {
	stereo := toStereo(pcm.samples, pcm.channels)
	return &Buffer{
		SampleRate: SampleRate,
		Channels:   Channels,
		Samples:    resample(stereo, pcm.sampleRate, SampleRate),
	}
}

// toStereo duplicates mono and keeps the first two channels of wider layouts.
func toStereo(samples []int16, channels int) []int16 {
	if channels == 2 {
		return samples
	}
	frames := len(samples) / channels
	out := make([]int16, frames*2)
	for i := 0; i < frames; i++ {
		left := samples[i*channels]
		right := left
		if channels > 1 {
			right = samples[i*channels+1]
		}
		out[2*i] = left
		out[2*i+1] = right
	}
	return out
}

// resample converts interleaved stereo between rates with linear interpolation.
func resample(samples []int16, from, to int) []int16 {
	if from == to || from <= 0 || len(samples) == 0 {
		return samples
	}

	inFrames := len(samples) / 2
	outFrames := int(int64(inFrames) * int64(to) / int64(from))
	out := make([]int16, outFrames*2)
	step := float64(from) / float64(to)

	for i := 0; i < outFrames; i++ {
		pos := float64(i) * step
		i0 := int(pos)
		if i0 >= inFrames {
			i0 = inFrames - 1
		}
		i1 := i0 + 1
		if i1 >= inFrames {
			i1 = inFrames - 1
		}
		frac := pos - float64(i0)
		for ch := 0; ch < 2; ch++ {
			a := float64(samples[i0*2+ch])
			b := float64(samples[i1*2+ch])
			out[i*2+ch] = int16(a + (b-a)*frac)
		}
	}
	return out
}
