package audio

import (
	"context"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"

	"xtts-desktop/internal/domain"
)

// Player plays a normalized buffer and blocks until playback completes.
type Player interface {
	Play(ctx context.Context, buf *Buffer) error
}

// PortAudioPlayer writes PCM to the default output device.
type PortAudioPlayer struct {
	mu              sync.Mutex
	playing         bool
	framesPerBuffer int
}

// NewPortAudioPlayer creates a player using the default output device.
func NewPortAudioPlayer() *PortAudioPlayer {
	return &PortAudioPlayer{framesPerBuffer: 1024}
}

// IsPlaying returns whether audio is currently playing.
func (p *PortAudioPlayer) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

// Play streams buf to the speakers. Cancelling ctx stops after the current block.
func (p *PortAudioPlayer) Play(ctx context.Context, buf *Buffer) error {
	if buf.Empty() {
		return nil
	}

	p.mu.Lock()
	if p.playing {
		p.mu.Unlock()
		return domain.NewError(domain.KindPlayback, "audio is already playing", nil)
	}
	p.playing = true
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.playing = false
		p.mu.Unlock()
	}()

	if err := p.stream(ctx, buf); err != nil {
		return domain.NewError(domain.KindPlayback, "playback failed", err)
	}
	return nil
}

// stream opens a blocking PortAudio output stream and writes interleaved float32 blocks.
func (p *PortAudioPlayer) stream(ctx context.Context, buf *Buffer) error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("initialize PortAudio: %w", err)
	}
	defer portaudio.Terminate()

	block := make([]float32, p.framesPerBuffer*buf.Channels)
	stream, err := portaudio.OpenDefaultStream(0, buf.Channels, float64(buf.SampleRate), p.framesPerBuffer, &block)
	if err != nil {
		return fmt.Errorf("open output stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("start output stream: %w", err)
	}
	defer stream.Stop()

	for pos := 0; pos < len(buf.Samples); pos += len(block) {
		if err := ctx.Err(); err != nil {
			return err
		}
		for i := range block {
			if pos+i < len(buf.Samples) {
				block[i] = float32(buf.Samples[pos+i]) / 32768.0
			} else {
				block[i] = 0
			}
		}
		if err := stream.Write(); err != nil {
			return fmt.Errorf("write to output stream: %w", err)
		}
	}

	return nil
}
