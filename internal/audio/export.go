package audio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"

	"xtts-desktop/internal/domain"
)

// Exporter writes normalized buffers to disk. MP3 encoding is delegated to ffmpeg.
type Exporter struct {
	ffmpegPath string
	runner     commandRunner
	mkdirTemp  func(dir, pattern string) (string, error)
	removeAll  func(path string) error
	stat       func(name string) (os.FileInfo, error)
	onLog      func(log CommandLog)
}

// NewExporter constructs the production exporter with OS dependencies.
func NewExporter() *Exporter {
	return &Exporter{
		ffmpegPath: "ffmpeg",
		runner:     &execRunner{},
		mkdirTemp:  os.MkdirTemp,
		removeAll:  os.RemoveAll,
		stat:       os.Stat,
	}
}

// OnCommand registers a callback receiving every ffmpeg invocation log.
func (e *Exporter) OnCommand(cb func(log CommandLog)) {
	e.onLog = cb
}

// Export encodes buf into path using the given container format.
func (e *Exporter) Export(ctx context.Context, buf *Buffer, path string, format Format) error {
	if buf == nil {
		return domain.NewError(domain.KindIO, "export audio", fmt.Errorf("no audio to export"))
	}
	if strings.TrimSpace(path) == "" {
		return domain.NewError(domain.KindInvalidInput, "export path is required", nil)
	}

	switch format {
	case FormatMP3:
		return e.exportMP3(ctx, buf, path)
	case FormatWAV, "":
		if err := WriteWAV(path, buf); err != nil {
			return domain.NewError(domain.KindIO, fmt.Sprintf("could not save %s", path), err)
		}
		return nil
	default:
		return domain.NewError(domain.KindInvalidInput, fmt.Sprintf("unsupported export format: %s", format), nil)
	}
}

// exportMP3 writes a temporary WAV and encodes it with ffmpeg/libmp3lame.
func (e *Exporter) exportMP3(ctx context.Context, buf *Buffer, path string) error {
	tempDir, err := e.mkdirTemp("", "xtts-export-*")
	if err != nil {
		return domain.NewError(domain.KindIO, "create temporary export workspace", err)
	}
	defer func() { _ = e.removeAll(tempDir) }()

	wavPath := filepath.Join(tempDir, "export.wav")
	if err := WriteWAV(wavPath, buf); err != nil {
		return domain.NewError(domain.KindIO, "write temporary WAV", err)
	}

	args := buildFFmpegArgs(wavPath, path)
	res, runErr := e.runner.Run(ctx, e.ffmpegPath, args...)
	log := CommandLog{
		Command:  e.ffmpegPath,
		Args:     args,
		ExitCode: res.ExitCode,
		Stdout:   res.Stdout,
		Stderr:   res.Stderr,
	}
	if e.onLog != nil {
		e.onLog(log)
	}
	if runErr != nil {
		return domain.NewError(
			domain.KindIO,
			fmt.Sprintf("ffmpeg MP3 encoding failed (exit=%d): %s", log.ExitCode, tail(log.Stderr, 300)),
			runErr,
		)
	}

	if _, err := e.stat(path); err != nil {
		return domain.NewError(domain.KindIO, "ffmpeg completed but MP3 file is missing", err)
	}
	return nil
}

// WriteWAV encodes buf as 16-bit PCM WAV at path.
func WriteWAV(path string, buf *Buffer) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	enc := wav.NewEncoder(f, buf.SampleRate, BitDepth, buf.Channels, 1)
	if err := enc.Write(buf.intBuffer()); err != nil {
		return fmt.Errorf("encode WAV: %w", err)
	}
	return enc.Close()
}

// buildFFmpegArgs builds encoder args for a VBR MP3 export.
func buildFFmpegArgs(inputPath, outPath string) []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-i", inputPath,
		"-codec:a", "libmp3lame",
		"-q:a", "2",
		outPath,
	}
}

// tail returns at most n trailing bytes of s, trimmed.
func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}

// NewExporterForTests constructs an exporter with injectable dependencies.
func NewExporterForTests(ffmpegPath string, runner commandRunner) *Exporter {
	return &Exporter{
		ffmpegPath: ffmpegPath,
		runner:     runner,
		mkdirTemp:  os.MkdirTemp,
		removeAll:  os.RemoveAll,
		stat:       os.Stat,
	}
}
