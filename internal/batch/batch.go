package batch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"xtts-desktop/internal/audio"
	"xtts-desktop/internal/domain"
	"xtts-desktop/internal/segment"
)

// PartsDirName is the scratch directory created inside the output directory.
const PartsDirName = "parts"

// Stage names reported through Request.OnStage.
const (
	StageSegmenting   = "segmenting"
	StageSynthesizing = "synthesizing"
	StageMerging      = "merging"
	StageCleanup      = "cleanup"
)

// Synthesizer turns one chunk of text into server audio using the current selection.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (domain.Audio, error)
}

// Exporter writes a normalized buffer to disk.
type Exporter interface {
	Export(ctx context.Context, buf *audio.Buffer, path string, format audio.Format) error
}

// Request describes one batch run and its callbacks.
type Request struct {
	InputPath    string
	OutputDir    string
	Mode         segment.Mode
	Cleanup      bool
	Format       audio.Format
	OnStage      func(stage string)
	OnProgress   func(p Progress)
	OnChunkError func(e ChunkError)
}

// Progress is emitted before each chunk is synthesized.
type Progress struct {
	Index int    `json:"index"`
	Total int    `json:"total"`
	Text  string `json:"text"`
}

// ChunkError records one skipped chunk.
type ChunkError struct {
	Index   int    `json:"index"`
	Text    string `json:"text"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error formats the chunk failure for logs and UI.
func (e ChunkError) Error() string {
	return fmt.Sprintf("chunk %d: %s", e.Index, e.Message)
}

// Unwrap exposes underlying error for errors.Is / errors.As.
func (e ChunkError) Unwrap() error {
	return e.Err
}

// Result summarizes a finished, cancelled, or failed run.
type Result struct {
	Status     domain.JobStatus `json:"status"`
	Total      int              `json:"total"`
	Succeeded  int              `json:"succeeded"`
	Failures   []ChunkError     `json:"failures,omitempty"`
	PartPaths  []string         `json:"partPaths,omitempty"`
	MergedPath string           `json:"mergedPath,omitempty"`
	ScratchDir string           `json:"scratchDir"`
	CleanedUp  bool             `json:"cleanedUp"`
	Format     audio.Format     `json:"format,omitempty"`
	Duration   time.Duration    `json:"duration"`
}

// Orchestrator runs chunks through synthesis, writes parts, and exports the merged track.
type Orchestrator struct {
	synth     Synthesizer
	exporter  Exporter
	logger    *slog.Logger
	stat      func(name string) (os.FileInfo, error)
	mkdirAll  func(path string, perm os.FileMode) error
	removeAll func(path string) error
}

// New constructs an orchestrator with OS dependencies.
func New(synth Synthesizer, exporter Exporter, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		synth:     synth,
		exporter:  exporter,
		logger:    logger.With(slog.String("component", "batch")),
		stat:      os.Stat,
		mkdirAll:  os.MkdirAll,
		removeAll: os.RemoveAll,
	}
}

// Validate checks the input file and output directory before a job is started.
func (o *Orchestrator) Validate(req Request) error {
	if strings.TrimSpace(req.InputPath) == "" {
		return domain.NewError(domain.KindInvalidInput, "Please select an input text file.", nil)
	}
	info, err := o.stat(req.InputPath)
	if err != nil || info.IsDir() {
		return domain.NewError(domain.KindInvalidInput, fmt.Sprintf("Input file not found: %s", req.InputPath), err)
	}

	if strings.TrimSpace(req.OutputDir) == "" {
		return domain.NewError(domain.KindInvalidInput, "Please select an output directory.", nil)
	}
	info, err = o.stat(req.OutputDir)
	if err != nil || !info.IsDir() {
		return domain.NewError(domain.KindInvalidInput, fmt.Sprintf("Output directory not found: %s", req.OutputDir), err)
	}
	return nil
}

// Run processes every chunk in order. Cancellation is observed between chunks only:
// the chunk in flight when ctx is cancelled still completes and is kept.
// Per-chunk failures are reported and skipped; only setup and merge failures fail the run.
func (o *Orchestrator) Run(ctx context.Context, req Request) (Result, error) {
	started := time.Now()
	if err := o.Validate(req); err != nil {
		return Result{Status: domain.JobStatusFailed}, err
	}

	scratch := filepath.Join(req.OutputDir, PartsDirName)
	result := Result{Status: domain.JobStatusRunning, ScratchDir: scratch, Format: req.Format}
	finish := func(status domain.JobStatus) Result {
		result.Status = status
		result.Duration = time.Since(started)
		return result
	}

	emitStage(req.OnStage, StageSegmenting)
	chunks, err := segment.File(req.InputPath, req.Mode)
	if err != nil {
		return finish(domain.JobStatusFailed), err
	}
	result.Total = len(chunks)

	if err := o.mkdirAll(scratch, 0o755); err != nil {
		return finish(domain.JobStatusFailed), domain.NewError(
			domain.KindIO, fmt.Sprintf("cannot create parts directory: %s", scratch), err)
	}

	o.logger.Info("batch started", slog.String("input", req.InputPath),
		slog.Int("chunks", len(chunks)), slog.String("mode", string(req.Mode)))

	emitStage(req.OnStage, StageSynthesizing)
	merged := audio.NewBuffer()
	for _, chunk := range chunks {
		if ctx.Err() != nil {
			o.logger.Info("batch cancelled", slog.Int("processed", chunk.Index-1), slog.Int("total", len(chunks)))
			return finish(domain.JobStatusCancelled), nil
		}

		emitProgress(req.OnProgress, Progress{Index: chunk.Index, Total: len(chunks), Text: chunk.Text})
		partPath, buf, err := o.processChunk(context.WithoutCancel(ctx), scratch, chunk, &result.Format)
		if err != nil {
			chunkErr := ChunkError{Index: chunk.Index, Text: chunk.Text, Message: err.Error(), Err: err}
			o.logger.Warn("chunk failed", slog.Int("index", chunk.Index), slog.Any("error", err))
			result.Failures = append(result.Failures, chunkErr)
			emitChunkError(req.OnChunkError, chunkErr)
			continue
		}

		if err := merged.Append(buf); err != nil {
			chunkErr := ChunkError{Index: chunk.Index, Text: chunk.Text, Message: err.Error(), Err: err}
			result.Failures = append(result.Failures, chunkErr)
			emitChunkError(req.OnChunkError, chunkErr)
			continue
		}
		result.PartPaths = append(result.PartPaths, partPath)
		result.Succeeded++
	}

	if result.Succeeded > 0 {
		emitStage(req.OnStage, StageMerging)
		mergedPath := filepath.Join(req.OutputDir, mergedFileName(req.InputPath, result.Format))
		if err := o.exporter.Export(context.WithoutCancel(ctx), merged, mergedPath, result.Format); err != nil {
			return finish(domain.JobStatusFailed), fmt.Errorf("export merged audio: %w", err)
		}
		result.MergedPath = mergedPath
	}

	if req.Cleanup {
		emitStage(req.OnStage, StageCleanup)
		if err := o.removeAll(scratch); err != nil {
			o.logger.Warn("cleanup failed", slog.String("dir", scratch), slog.Any("error", err))
		} else {
			result.CleanedUp = true
		}
	}

	o.logger.Info("batch completed", slog.Int("succeeded", result.Succeeded),
		slog.Int("failed", len(result.Failures)), slog.String("merged", result.MergedPath))
	return finish(domain.JobStatusCompleted), nil
}

// processChunk synthesizes, decodes, and writes one part file. The batch format is fixed
// by the first successful chunk when the request leaves it empty.
func (o *Orchestrator) processChunk(ctx context.Context, scratch string, chunk segment.Chunk, format *audio.Format) (string, *audio.Buffer, error) {
	payload, err := o.synth.Synthesize(ctx, chunk.Text)
	if err != nil {
		return "", nil, err
	}
	if payload.IsEmpty() {
		return "", nil, domain.NewError(domain.KindServer, "server returned no audio", nil)
	}

	buf, err := audio.Decode(payload.Data, payload.ContentType)
	if err != nil {
		return "", nil, err
	}

	partFormat := *format
	if partFormat == "" {
		partFormat = audio.FormatFor(payload.ContentType)
	}
	partPath := filepath.Join(scratch, partFileName(chunk.Index, partFormat))
	if err := o.exporter.Export(ctx, buf, partPath, partFormat); err != nil {
		return "", nil, err
	}

	*format = partFormat
	return partPath, buf, nil
}

// partFileName builds the zero-padded part name for a 1-based chunk index.
func partFileName(index int, format audio.Format) string {
	return fmt.Sprintf("part_%04d%s", index, format.Ext())
}

// mergedFileName builds the merged output name from the input file name.
func mergedFileName(inputPath string, format audio.Format) string {
	base := filepath.Base(inputPath)
	name := strings.TrimSpace(strings.TrimSuffix(base, filepath.Ext(base)))
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "merged"
	}
	return name + format.Ext()
}

// emitStage forwards stage updates when callback is configured.
func emitStage(cb func(stage string), stage string) {
	if cb != nil {
		cb(stage)
	}
}

func emitProgress(cb func(p Progress), p Progress) {
	if cb != nil {
		cb(p)
	}
}

func emitChunkError(cb func(e ChunkError), e ChunkError) {
	if cb != nil {
		cb(e)
	}
}
