package batch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"xtts-desktop/internal/audio"
	"xtts-desktop/internal/domain"
	"xtts-desktop/internal/segment"
)

// fakeSynth returns canned audio per chunk text.
type fakeSynth struct {
	mu    sync.Mutex
	calls []string
	fn    func(ctx context.Context, n int, text string) (domain.Audio, error)
}

// Synthesize records the call and delegates to injected behavior.
func (f *fakeSynth) Synthesize(ctx context.Context, text string) (domain.Audio, error) {
	f.mu.Lock()
	f.calls = append(f.calls, text)
	n := len(f.calls)
	f.mu.Unlock()
	return f.fn(ctx, n, text)
}

// fakeExporter writes a marker file instead of encoding.
type fakeExporter struct {
	mu      sync.Mutex
	exports map[string]int
	fail    func(path string) error
}

// Export records the frame count written to each path.
func (f *fakeExporter) Export(ctx context.Context, buf *audio.Buffer, path string, format audio.Format) error {
	if f.fail != nil {
		if err := f.fail(path); err != nil {
			return err
		}
	}
	if !strings.HasSuffix(path, format.Ext()) {
		return errors.New("extension does not match format")
	}
	f.mu.Lock()
	if f.exports == nil {
		f.exports = map[string]int{}
	}
	f.exports[path] = buf.Frames()
	f.mu.Unlock()
	return os.WriteFile(path, []byte(format), 0o644)
}

// TestRunOneFailingChunkCompletes verifies per-chunk best effort.
func TestRunOneFailingChunkCompletes(t *testing.T) {
	in, out := writeInput(t, "One. Two. Three.")
	wavData := wavBytes(t, 4)
	synth := &fakeSynth{fn: func(ctx context.Context, n int, text string) (domain.Audio, error) {
		if text == "Two." {
			return domain.Audio{}, domain.NewError(domain.KindServer, "boom", nil)
		}
		return domain.Audio{Data: wavData, ContentType: "audio/wav"}, nil
	}}
	exporter := &fakeExporter{}
	var chunkErrs []ChunkError

	res, err := New(synth, exporter, nil).Run(context.Background(), Request{
		InputPath:    in,
		OutputDir:    out,
		Mode:         segment.BySentence,
		OnChunkError: func(e ChunkError) { chunkErrs = append(chunkErrs, e) },
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Status != domain.JobStatusCompleted {
		t.Fatalf("status = %s", res.Status)
	}
	if res.Total != 3 || res.Succeeded != 2 || len(res.PartPaths) != 2 {
		t.Fatalf("result = %+v", res)
	}
	if len(chunkErrs) != 1 || chunkErrs[0].Index != 2 || !errors.Is(chunkErrs[0], domain.ErrServer) {
		t.Fatalf("chunk errors = %+v", chunkErrs)
	}

	for _, name := range []string{"part_0001.wav", "part_0003.wav"} {
		if _, err := os.Stat(filepath.Join(out, PartsDirName, name)); err != nil {
			t.Fatalf("missing %s: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(out, PartsDirName, "part_0002.wav")); !os.IsNotExist(err) {
		t.Fatalf("part for failing chunk exists: %v", err)
	}

	merged := filepath.Join(out, "input.wav")
	if res.MergedPath != merged {
		t.Fatalf("merged = %q, want %q", res.MergedPath, merged)
	}
	if exporter.exports[merged] != 8 {
		t.Fatalf("merged frames = %d, want 8", exporter.exports[merged])
	}
}

// TestRunCancelAfterChunks verifies cancellation at chunk boundaries.
func TestRunCancelAfterChunks(t *testing.T) {
	in, out := writeInput(t, "a\nb\nc\nd\ne")
	wavData := wavBytes(t, 2)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	synth := &fakeSynth{fn: func(callCtx context.Context, n int, text string) (domain.Audio, error) {
		if n == 2 {
			cancel()
			if callCtx.Err() != nil {
				t.Errorf("in-flight chunk context was cancelled")
			}
		}
		return domain.Audio{Data: wavData, ContentType: "audio/wav"}, nil
	}}
	exporter := &fakeExporter{}

	res, err := New(synth, exporter, nil).Run(ctx, Request{InputPath: in, OutputDir: out, Mode: segment.ByLine, Cleanup: true})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Status != domain.JobStatusCancelled {
		t.Fatalf("status = %s", res.Status)
	}
	if res.Succeeded != 2 || len(synth.calls) != 2 {
		t.Fatalf("succeeded = %d calls = %d", res.Succeeded, len(synth.calls))
	}
	if res.MergedPath != "" {
		t.Fatalf("merged path = %q", res.MergedPath)
	}
	if _, err := os.Stat(filepath.Join(out, "input.wav")); !os.IsNotExist(err) {
		t.Fatalf("merged file exists: %v", err)
	}
	entries, err := os.ReadDir(filepath.Join(out, PartsDirName))
	if err != nil {
		t.Fatalf("parts dir removed on cancel: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("parts = %d, want 2", len(entries))
	}
}

// TestRunCleanup verifies scratch directory handling with cleanup on and off.
func TestRunCleanup(t *testing.T) {
	wavData := wavBytes(t, 2)
	for _, cleanup := range []bool{true, false} {
		in, out := writeInput(t, "x. y.")
		synth := &fakeSynth{fn: func(ctx context.Context, n int, text string) (domain.Audio, error) {
			return domain.Audio{Data: wavData, ContentType: "audio/wav"}, nil
		}}

		res, err := New(synth, &fakeExporter{}, nil).Run(context.Background(), Request{
			InputPath: in, OutputDir: out, Mode: segment.BySentence, Cleanup: cleanup,
		})
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}

		_, statErr := os.Stat(filepath.Join(out, PartsDirName))
		if cleanup && (!res.CleanedUp || !os.IsNotExist(statErr)) {
			t.Fatalf("cleanup=true: cleaned=%v stat=%v", res.CleanedUp, statErr)
		}
		if !cleanup && (res.CleanedUp || statErr != nil) {
			t.Fatalf("cleanup=false: cleaned=%v stat=%v", res.CleanedUp, statErr)
		}
		if !cleanup {
			entries, err := os.ReadDir(filepath.Join(out, PartsDirName))
			if err != nil {
				t.Fatalf("read parts dir: %v", err)
			}
			names := make([]string, 0, len(entries))
			for _, entry := range entries {
				names = append(names, entry.Name())
			}
			if len(names) != 2 || names[0] != "part_0001.wav" || names[1] != "part_0002.wav" {
				t.Fatalf("parts = %v, want [part_0001.wav part_0002.wav]", names)
			}
		}
		if _, err := os.Stat(res.MergedPath); err != nil {
			t.Fatalf("merged missing: %v", err)
		}
	}
}

// TestRunUsesRequestedFormat verifies an explicit format overrides the response type.
func TestRunUsesRequestedFormat(t *testing.T) {
	in, out := writeInput(t, "a\nb")
	wavData := wavBytes(t, 2)
	synth := &fakeSynth{fn: func(ctx context.Context, n int, text string) (domain.Audio, error) {
		if n == 1 {
			return domain.Audio{}, domain.NewError(domain.KindConnection, "down", nil)
		}
		return domain.Audio{Data: wavData, ContentType: "audio/wav"}, nil
	}}

	res, err := New(synth, &fakeExporter{}, nil).Run(context.Background(), Request{
		InputPath: in, OutputDir: out, Mode: segment.ByLine, Format: audio.FormatMP3,
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Format != audio.FormatMP3 || filepath.Ext(res.MergedPath) != ".mp3" {
		t.Fatalf("format = %s merged = %s", res.Format, res.MergedPath)
	}
	if filepath.Base(res.PartPaths[0]) != "part_0002.mp3" {
		t.Fatalf("part = %s", res.PartPaths[0])
	}
}

// TestRunNoSuccessSkipsMerge verifies no merged file when every chunk fails.
func TestRunNoSuccessSkipsMerge(t *testing.T) {
	in, out := writeInput(t, "a\nb")
	synth := &fakeSynth{fn: func(ctx context.Context, n int, text string) (domain.Audio, error) {
		return domain.Audio{}, domain.NewError(domain.KindConnection, "down", nil)
	}}

	res, err := New(synth, &fakeExporter{}, nil).Run(context.Background(), Request{InputPath: in, OutputDir: out, Mode: segment.ByLine})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Status != domain.JobStatusCompleted || res.MergedPath != "" || len(res.Failures) != 2 {
		t.Fatalf("result = %+v", res)
	}
}

// TestRunMergeFailureFails verifies that a merged export error fails the job.
func TestRunMergeFailureFails(t *testing.T) {
	in, out := writeInput(t, "a")
	wavData := wavBytes(t, 2)
	synth := &fakeSynth{fn: func(ctx context.Context, n int, text string) (domain.Audio, error) {
		return domain.Audio{Data: wavData, ContentType: "audio/wav"}, nil
	}}
	exporter := &fakeExporter{fail: func(path string) error {
		if filepath.Dir(path) == out {
			return domain.NewError(domain.KindIO, "disk full", nil)
		}
		return nil
	}}

	res, err := New(synth, exporter, nil).Run(context.Background(), Request{InputPath: in, OutputDir: out, Mode: segment.ByLine})
	if !errors.Is(err, domain.ErrIO) {
		t.Fatalf("error = %v, want io error", err)
	}
	if res.Status != domain.JobStatusFailed {
		t.Fatalf("status = %s", res.Status)
	}
}

// TestValidateRejectsMissingPaths verifies invalid input handling.
func TestValidateRejectsMissingPaths(t *testing.T) {
	in, out := writeInput(t, "a")
	o := New(&fakeSynth{}, &fakeExporter{}, nil)

	cases := []Request{
		{InputPath: "", OutputDir: out},
		{InputPath: filepath.Join(out, "missing.txt"), OutputDir: out},
		{InputPath: out, OutputDir: out},
		{InputPath: in, OutputDir: ""},
		{InputPath: in, OutputDir: filepath.Join(out, "nope")},
	}
	for i, req := range cases {
		if err := o.Validate(req); !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("case %d: error = %v, want invalid input", i, err)
		}
	}
	if err := o.Validate(Request{InputPath: in, OutputDir: out}); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}
}

// TestMergedFileName verifies output naming.
func TestMergedFileName(t *testing.T) {
	if got := mergedFileName("/tmp/book.chapter1.txt", audio.FormatWAV); got != "book.chapter1.wav" {
		t.Fatalf("got %q", got)
	}
	if got := partFileName(12, audio.FormatMP3); got != "part_0012.mp3" {
		t.Fatalf("got %q", got)
	}
}

// writeInput creates input.txt and an output directory.
func writeInput(t *testing.T, text string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	in := filepath.Join(dir, "input.txt")
	if err := os.WriteFile(in, []byte(text), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	out := filepath.Join(dir, "out")
	if err := os.Mkdir(out, 0o755); err != nil {
		t.Fatalf("mkdir out: %v", err)
	}
	return in, out
}

// wavBytes builds a normalized WAV payload with the given frame count.
func wavBytes(t *testing.T, frames int) []byte {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chunk.wav")
	buf := &audio.Buffer{SampleRate: audio.SampleRate, Channels: audio.Channels, Samples: make([]int16, frames*audio.Channels)}
	for i := range buf.Samples {
		buf.Samples[i] = int16(i * 10)
	}
	if err := audio.WriteWAV(path, buf); err != nil {
		t.Fatalf("write wav: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read wav: %v", err)
	}
	return data
}
