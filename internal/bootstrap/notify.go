package bootstrap

import (
	"errors"
	"log/slog"
	"strings"

	"xtts-desktop/internal/audio"
	"xtts-desktop/internal/domain"
	"xtts-desktop/internal/jobs"

	wailsruntime "github.com/wailsapp/wails/v2/pkg/runtime"
)

// send hands an event to the dispatcher loop. Without a dispatcher the event
// is published inline.
func (a *App) send(event jobs.Event) {
	if a.dispatcher != nil {
		a.dispatcher.Send(event)
		return
	}
	a.deliver(a.events.Publish(event))
}

// deliver runs on the dispatcher loop: it pushes the event to the webview and
// raises a modal for notifications.
func (a *App) deliver(event jobs.Event) {
	a.mu.Lock()
	ctx := a.runtimeCtx
	a.mu.Unlock()
	if ctx != nil {
		wailsruntime.EventsEmit(ctx, eventName, event)
	}
	if event.Title != "" && a.notify != nil {
		a.notify(event)
	}
}

// publishStatus sends a normalized job status event.
func (a *App) publishStatus(jobID string, status domain.JobStatus, message string) {
	a.send(jobs.Event{
		JobID:   jobID,
		Type:    jobs.EventTypeStatus,
		Status:  status,
		Message: message,
	})
}

// notice logs and shows an informational notification.
func (a *App) notice(action, title, message string, extra ...func(*jobs.Event)) {
	a.logger.Info(message, slog.String("action", action), slog.String("title", title))
	event := jobs.Event{
		Action:  action,
		Type:    jobs.EventTypeNotice,
		Title:   title,
		Message: message,
	}
	for _, fn := range extra {
		fn(&event)
	}
	a.send(event)
}

// reportError logs err and shows it as a modal titled by its kind.
func (a *App) reportError(action, jobID string, err error) {
	title := "Error"
	kind := domain.ErrorKind("")
	var domainErr *domain.Error
	if errors.As(err, &domainErr) {
		kind = domainErr.Kind
		title = kind.Title()
	}

	a.logger.Error(title, slog.String("action", action), slog.String("job_id", jobID), slog.Any("error", err))
	a.send(jobs.Event{
		JobID:   jobID,
		Action:  action,
		Type:    jobs.EventTypeError,
		Kind:    kind,
		Title:   title,
		Message: err.Error(),
	})
}

// showMessageDialog displays a native modal without blocking the dispatcher loop.
func (a *App) showMessageDialog(event jobs.Event) {
	ctx, err := a.runtimeContext()
	if err != nil {
		return
	}

	dialogType := wailsruntime.InfoDialog
	switch {
	case event.Type == jobs.EventTypeError:
		dialogType = wailsruntime.ErrorDialog
	case strings.EqualFold(event.Title, "Warning"):
		dialogType = wailsruntime.WarningDialog
	}

	go func() {
		_, _ = wailsruntime.MessageDialog(ctx, wailsruntime.MessageDialogOptions{
			Type:    dialogType,
			Title:   event.Title,
			Message: event.Message,
		})
	}()
}

// askSavePath opens the native save dialog with the extension of format.
func (a *App) askSavePath(format audio.Format) (string, error) {
	ctx, err := a.runtimeContext()
	if err != nil {
		return "", err
	}

	ext := format.Ext()
	path, err := wailsruntime.SaveFileDialog(ctx, wailsruntime.SaveDialogOptions{
		Title:           "Save Audio File",
		DefaultFilename: "speech" + ext,
		Filters: []wailsruntime.FileFilter{
			{
				DisplayName: strings.ToUpper(string(format)) + " files",
				Pattern:     "*" + ext,
			},
		},
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(path), nil
}
