package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"xtts-desktop/internal/audio"
	"xtts-desktop/internal/config"
	"xtts-desktop/internal/domain"
	"xtts-desktop/internal/jobs"
	"xtts-desktop/internal/session"
)

// emptyTextMessage is shown when read or save is triggered without text.
const emptyTextMessage = "Please enter some text."

// ReadAloud synthesizes text and plays it on a worker goroutine.
func (a *App) ReadAloud(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		a.notice(jobs.ActionRead, "Warning", emptyTextMessage)
		return nil
	}

	return a.launch(jobs.ActionRead, func(ctx context.Context) error {
		payload, err := a.Session.Synthesize(ctx, text)
		if err != nil {
			return err
		}
		if err := a.play(ctx, payload); err != nil {
			return err
		}
		a.send(jobs.Event{Action: jobs.ActionRead, Type: jobs.EventTypeResult, Message: "Playback finished"})
		return nil
	})
}

// SaveAudio synthesizes text, asks for a destination, and writes the file in
// the format the server returned.
func (a *App) SaveAudio(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		a.notice(jobs.ActionSave, "Warning", emptyTextMessage)
		return nil
	}

	return a.launch(jobs.ActionSave, func(ctx context.Context) error {
		payload, err := a.Session.Synthesize(ctx, text)
		if err != nil {
			return err
		}
		if payload.IsEmpty() {
			return nil
		}

		format := audio.FormatFor(payload.ContentType)
		path, err := a.saveDialog(format)
		if err != nil {
			return domain.NewError(domain.KindIO, "Could not open save dialog", err)
		}
		if path == "" {
			a.logger.Info("save cancelled by user")
			return nil
		}
		if filepath.Ext(path) == "" {
			path += format.Ext()
		}

		buf, err := audio.Decode(payload.Data, payload.ContentType)
		if err != nil {
			return err
		}
		if err := a.Exporter.Export(ctx, buf, path, format); err != nil {
			return domain.NewError(domain.KindIO, "Could not save file", err)
		}

		size := fileSize(path)
		a.notice(jobs.ActionSave, "Saved", fmt.Sprintf("Audio saved to:\n%s", path), func(e *jobs.Event) {
			e.Path = path
			e.Size = size
		})
		return nil
	})
}

// PreviewVoice plays a short sample in the selected voice.
func (a *App) PreviewVoice() error {
	a.mu.Lock()
	sample := a.Settings.PreviewText
	a.mu.Unlock()

	return a.launch(jobs.ActionPreview, func(ctx context.Context) error {
		payload, err := a.Session.Preview(ctx, sample)
		if err != nil {
			return err
		}
		if payload.IsEmpty() {
			return domain.NewError(domain.KindServer, "Failed to generate preview audio.", nil)
		}
		return a.play(ctx, payload)
	})
}

// RefreshCatalog reloads voices and languages from the server.
func (a *App) RefreshCatalog() error {
	return a.launch(jobs.ActionRefresh, func(ctx context.Context) error {
		snap, err := a.Session.Refresh(ctx)
		if err != nil {
			return err
		}
		a.persistSelection(snap)
		a.send(jobs.Event{
			Action:  jobs.ActionRefresh,
			Type:    jobs.EventTypeSession,
			Message: fmt.Sprintf("Loaded %d voices and %d languages", len(snap.Voices), len(snap.Languages)),
		})
		return nil
	})
}

// GetSession returns the current server, catalogs, and selections.
func (a *App) GetSession() session.Snapshot {
	return a.Session.Snapshot()
}

// SelectVoice selects a voice by display name and remembers it.
func (a *App) SelectVoice(name string) (session.Snapshot, error) {
	snap, err := a.Session.SelectVoice(name)
	if err != nil {
		return snap, err
	}
	a.logger.Info("voice selected", slog.String("voice", name))
	a.persistSelection(snap)
	return snap, nil
}

// SelectLanguage selects a language by display name and remembers it.
func (a *App) SelectLanguage(name string) (session.Snapshot, error) {
	snap, err := a.Session.SelectLanguage(name)
	if err != nil {
		return snap, err
	}
	a.logger.Info("language selected", slog.String("language", name))
	a.persistSelection(snap)
	return snap, nil
}

// SetServerURL points the session at a new server, persists it, and refreshes catalogs.
func (a *App) SetServerURL(url string) (session.Snapshot, error) {
	snap, err := a.Session.SetServerURL(url)
	if err != nil {
		return snap, err
	}
	a.persist(func(settings *domain.Settings) {
		settings.ServerURL = snap.ServerURL
	})
	if err := a.RefreshCatalog(); err != nil {
		a.logger.Info("refresh already running", slog.String("url", snap.ServerURL))
	}
	return snap, nil
}

// launch runs fn on its own goroutine unless the same action is already running.
// Errors are reported as notifications.
func (a *App) launch(action string, fn func(ctx context.Context) error) error {
	release, err := a.flight.Acquire(action)
	if err != nil {
		return fmt.Errorf("%s: %w", action, err)
	}

	go func() {
		defer release()
		if err := fn(context.Background()); err != nil {
			a.reportError(action, "", err)
		}
	}()
	return nil
}

// play decodes server audio and blocks until playback ends.
func (a *App) play(ctx context.Context, payload domain.Audio) error {
	if payload.IsEmpty() {
		return nil
	}
	buf, err := audio.Decode(payload.Data, payload.ContentType)
	if err != nil {
		return domain.NewError(domain.KindPlayback, "Playback failed", err)
	}
	a.logger.Info("playing audio", slog.String("content_type", payload.ContentType),
		slog.Duration("duration", buf.Duration()), slog.String("size", humanize.Bytes(uint64(len(payload.Data)))))
	return a.Player.Play(ctx, buf)
}

// persistSelection stores the voice and language so the next launch restores them.
func (a *App) persistSelection(snap session.Snapshot) {
	a.persist(func(settings *domain.Settings) {
		settings.Voice = snap.Voice
		settings.Language = snap.Language
	})
}

// persist applies fn to the stored settings and saves them. Environment
// overrides are applied to the cached copy only and never written back.
func (a *App) persist(fn func(settings *domain.Settings)) {
	if a.Store == nil {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	settings, err := a.Store.Load()
	if err != nil {
		a.logger.Warn("load settings", slog.Any("error", err))
		return
	}
	fn(&settings)
	if err := a.Store.Save(settings); err != nil {
		a.logger.Warn("save settings", slog.Any("error", err))
		return
	}
	a.Settings = config.ApplyEnv(settings)
}

// fileSize returns a human readable size, or an empty string when unknown.
func fileSize(path string) string {
	info, err := os.Stat(path)
	if err != nil {
		return ""
	}
	return humanize.Bytes(uint64(info.Size()))
}
