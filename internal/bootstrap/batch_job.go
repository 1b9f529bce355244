package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"xtts-desktop/internal/audio"
	"xtts-desktop/internal/batch"
	"xtts-desktop/internal/domain"
	"xtts-desktop/internal/jobs"
	"xtts-desktop/internal/segment"
)

// actionBatch tags batch notifications.
const actionBatch = "batch"

// StartBatch validates the input, creates a job, and runs it asynchronously.
func (a *App) StartBatch(inputPath string) (domain.Job, error) {
	settings, err := a.effectiveSettings()
	if err != nil {
		return domain.Job{}, err
	}

	req, err := batchRequest(inputPath, settings)
	if err != nil {
		a.reportError(actionBatch, "", err)
		return domain.Job{}, err
	}
	if err := a.Batch.Validate(req); err != nil {
		a.reportError(actionBatch, "", err)
		return domain.Job{}, err
	}

	jobID := uuid.NewString()
	if err := a.Jobs.Start(jobID, req.InputPath); err != nil {
		return domain.Job{}, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	a.mu.Lock()
	a.activeJobID = jobID
	a.cancel = cancel
	a.Settings = settings
	a.mu.Unlock()

	a.logger.Info("batch job started", slog.String("job_id", jobID), slog.String("input", req.InputPath))
	a.publishStatus(jobID, domain.JobStatusRunning, "Batch started")

	go a.runBatchJob(ctx, jobID, req)
	return a.Jobs.Current(), nil
}

// CancelBatch asks the running batch to stop after its current chunk.
func (a *App) CancelBatch() error {
	a.mu.Lock()
	cancel := a.cancel
	activeJobID := a.activeJobID
	a.mu.Unlock()

	if cancel == nil {
		return jobs.ErrNoRunningJob
	}

	cancel()
	if err := a.Jobs.Cancel(); err != nil && !errors.Is(err, jobs.ErrNoRunningJob) {
		return err
	}

	if activeJobID != "" {
		a.publishStatus(activeJobID, domain.JobStatusRunning, "Cancellation requested; finishing current chunk")
	}
	return nil
}

// CurrentJob returns current job metadata and status.
func (a *App) CurrentJob() domain.Job {
	return a.Jobs.Current()
}

// JobEvents returns all events with sequence greater than sinceSeq.
func (a *App) JobEvents(sinceSeq int64) []jobs.Event {
	return a.events.Since(sinceSeq)
}

// runBatchJob executes the orchestrator and maps outcomes to job events.
func (a *App) runBatchJob(ctx context.Context, jobID string, req batch.Request) {
	defer a.clearActiveJob(jobID)

	failed := 0
	req.OnStage = func(stage string) {
		a.send(jobs.Event{
			JobID:   jobID,
			Type:    jobs.EventTypeStatus,
			Status:  domain.JobStatusRunning,
			Stage:   stage,
			Message: "Batch stage: " + stage,
		})
	}
	req.OnProgress = func(p batch.Progress) {
		a.Jobs.Progress(p.Index-1, failed, p.Total)
		a.send(jobs.Event{
			JobID:   jobID,
			Type:    jobs.EventTypeProgress,
			Index:   p.Index,
			Total:   p.Total,
			Message: fmt.Sprintf("Processing chunk %d of %d", p.Index, p.Total),
		})
	}
	req.OnChunkError = func(e batch.ChunkError) {
		failed++
		kind := domain.ErrorKind("")
		var domainErr *domain.Error
		if errors.As(e.Err, &domainErr) {
			kind = domainErr.Kind
		}
		a.send(jobs.Event{
			JobID:   jobID,
			Type:    jobs.EventTypeChunkError,
			Kind:    kind,
			Index:   e.Index,
			Message: e.Error(),
		})
	}

	result, err := a.Batch.Run(ctx, req)
	a.Jobs.Progress(result.Succeeded+len(result.Failures), len(result.Failures), result.Total)

	if err != nil {
		_ = a.Jobs.Transition(domain.JobStatusFailed)
		a.publishStatus(jobID, domain.JobStatusFailed, "Batch failed")
		a.reportError(actionBatch, jobID, err)
		return
	}

	switch result.Status {
	case domain.JobStatusCancelled:
		_ = a.Jobs.Transition(domain.JobStatusCancelled)
		a.publishStatus(jobID, domain.JobStatusCancelled, "Batch cancelled")
		a.notice(actionBatch, "Cancelled", fmt.Sprintf(
			"Batch cancelled after %d of %d chunks.\nPart files were kept in:\n%s",
			result.Succeeded+len(result.Failures), result.Total, result.ScratchDir,
		), withJob(jobID))
	default:
		_ = a.Jobs.Transition(domain.JobStatusCompleted)
		a.publishStatus(jobID, domain.JobStatusCompleted, "Batch completed")
		a.send(jobs.Event{
			JobID:   jobID,
			Type:    jobs.EventTypeResult,
			Status:  domain.JobStatusCompleted,
			Message: "Merged audio exported",
			Path:    result.MergedPath,
			Size:    fileSize(result.MergedPath),
		})
		a.notice(actionBatch, "Batch Complete", completionMessage(result), withJob(jobID))
	}
}

// clearActiveJob clears cancellation handles for completed job IDs.
func (a *App) clearActiveJob(jobID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.activeJobID == jobID {
		a.activeJobID = ""
		a.cancel = nil
	}
}

// batchRequest maps persisted settings onto an orchestrator request.
func batchRequest(inputPath string, settings domain.Settings) (batch.Request, error) {
	mode, err := segment.ParseMode(settings.SplitMode)
	if err != nil {
		return batch.Request{}, domain.NewError(domain.KindInvalidInput, err.Error(), nil)
	}
	format, err := audio.ParseFormat(settings.BatchFormat)
	if err != nil {
		return batch.Request{}, domain.NewError(domain.KindInvalidInput, err.Error(), nil)
	}
	return batch.Request{
		InputPath: inputPath,
		OutputDir: settings.OutputDir,
		Mode:      mode,
		Cleanup:   settings.CleanupParts,
		Format:    format,
	}, nil
}

// completionMessage summarizes a completed batch for the notification.
func completionMessage(result batch.Result) string {
	if result.MergedPath == "" {
		return fmt.Sprintf("No chunks were synthesized (%d failed). Nothing was merged.", len(result.Failures))
	}
	msg := fmt.Sprintf("Synthesized %d of %d chunks.\nMerged audio saved to:\n%s", result.Succeeded, result.Total, result.MergedPath)
	if len(result.Failures) > 0 {
		msg += fmt.Sprintf("\n%d chunks failed and were skipped.", len(result.Failures))
	}
	return msg
}

func withJob(jobID string) func(*jobs.Event) {
	return func(e *jobs.Event) { e.JobID = jobID }
}
