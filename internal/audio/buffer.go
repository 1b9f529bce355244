package audio

import (
	"encoding/binary"
	"fmt"
	"time"

	goaudio "github.com/go-audio/audio"
)

// Normalized layout shared by every buffer handed to playback, merge, or export.
const (
	SampleRate = 44100
	Channels   = 2
	BitDepth   = 16
)

// Buffer holds interleaved 16-bit PCM in the normalized layout.
type Buffer struct {
	SampleRate int
	Channels   int
	Samples    []int16
}

// NewBuffer returns an empty normalized buffer, used as the merge accumulator.
func NewBuffer() *Buffer {
	return &Buffer{SampleRate: SampleRate, Channels: Channels}
}

// Frames returns the number of sample frames.
func (b *Buffer) Frames() int {
	if b == nil || b.Channels == 0 {
		return 0
	}
	return len(b.Samples) / b.Channels
}

// Duration returns the playback length.
func (b *Buffer) Duration() time.Duration {
	if b == nil || b.SampleRate == 0 {
		return 0
	}
	return time.Duration(b.Frames()) * time.Second / time.Duration(b.SampleRate)
}

// Empty reports whether the buffer holds no samples.
func (b *Buffer) Empty() bool {
	return b == nil || len(b.Samples) == 0
}

// Append concatenates other onto b; both must share the same layout.
func (b *Buffer) Append(other *Buffer) error {
	if other.Empty() {
		return nil
	}
	if b.SampleRate != other.SampleRate || b.Channels != other.Channels {
		return fmt.Errorf(
			"append: layout mismatch %d Hz/%d ch vs %d Hz/%d ch",
			b.SampleRate, b.Channels, other.SampleRate, other.Channels,
		)
	}
	b.Samples = append(b.Samples, other.Samples...)
	return nil
}

// PCM returns little-endian raw bytes.
func (b *Buffer) PCM() []byte {
	out := make([]byte, len(b.Samples)*2)
	for i, s := range b.Samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

// intBuffer converts to the go-audio representation used by the WAV encoder.
func (b *Buffer) intBuffer() *goaudio.IntBuffer {
	data := make([]int, len(b.Samples))
	for i, s := range b.Samples {
		data[i] = int(s)
	}
	return &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: b.Channels,
			SampleRate:  b.SampleRate,
		},
		Data:           data,
		SourceBitDepth: BitDepth,
	}
}
