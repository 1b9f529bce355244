package bootstrap

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	goruntime "runtime"
	"strings"
	"sync"
	"time"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"

	"xtts-desktop/internal/audio"
	"xtts-desktop/internal/batch"
	"xtts-desktop/internal/config"
	"xtts-desktop/internal/diagnostics"
	"xtts-desktop/internal/domain"
	"xtts-desktop/internal/jobs"
	"xtts-desktop/internal/session"
	"xtts-desktop/internal/xtts"

	wailsruntime "github.com/wailsapp/wails/v2/pkg/runtime"
)

// eventName is the Wails runtime event carrying every jobs.Event.
const eventName = "app:event"

// diagnosticsTimeout bounds the server check so startup cannot hang on a dead host.
const diagnosticsTimeout = 5 * time.Second

var textDialogFilter = []wailsruntime.FileFilter{
	{
		DisplayName: "Text files",
		Pattern:     "*.txt",
	},
	{
		DisplayName: "All files",
		Pattern:     "*",
	},
}

// batchRunner isolates the batch orchestrator behind an interface.
type batchRunner interface {
	Validate(req batch.Request) error
	Run(ctx context.Context, req batch.Request) (batch.Result, error)
}

// App wires configuration, session, audio, batch jobs, and UI runtime callbacks.
type App struct {
	Settings    domain.Settings
	Store       config.Store
	Session     *session.Session
	Jobs        *jobs.Manager
	Batch       batchRunner
	Player      audio.Player
	Exporter    batch.Exporter
	Diagnostics domain.DiagnosticReport
	assets      fs.FS
	checker     *diagnostics.Checker
	logger      *slog.Logger

	flight     *jobs.Flight
	events     *jobs.EventBus
	dispatcher *jobs.Dispatcher

	// notify shows a modal for events carrying a Title.
	notify func(event jobs.Event)
	// saveDialog asks for a destination path; empty means the user cancelled.
	saveDialog func(format audio.Format) (string, error)

	mu          sync.Mutex
	activeJobID string
	cancel      context.CancelFunc
	runtimeCtx  context.Context
}

// New builds the application with persisted settings and startup diagnostics.
func New(logger *slog.Logger) (*App, error) {
	return NewWithAssets(nil, logger)
}

// NewWithAssets builds the application and optionally configures embedded frontend assets.
func NewWithAssets(assets fs.FS, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	store := config.NewYAMLStore(config.DefaultPath())
	settings, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	settings = config.ApplyEnv(settings)

	client := xtts.NewClient(time.Duration(settings.RequestTimeoutSeconds)*time.Second, logger)
	sess := session.New(client, settings.ServerURL, settings.Voice, settings.Language, logger)
	exporter := audio.NewExporter()
	checker := diagnostics.NewChecker(languagePing(client))

	app := &App{
		Settings: settings,
		Store:    store,
		Session:  sess,
		Jobs:     jobs.NewManager(),
		Batch:    batch.New(sess, exporter, logger),
		Player:   audio.NewPortAudioPlayer(),
		Exporter: exporter,
		assets:   assets,
		checker:  checker,
		logger:   logger.With(slog.String("component", "app")),
		flight:   jobs.NewFlight(),
		events:   jobs.NewEventBus(1000),
	}
	app.notify = app.showMessageDialog
	app.saveDialog = app.askSavePath
	app.dispatcher = jobs.NewDispatcher(app.events, app.deliver, 256)
	go app.dispatcher.Run(context.Background())

	exporter.OnCommand(func(log audio.CommandLog) {
		app.send(jobs.Event{
			Type:     jobs.EventTypeLog,
			Message:  "Encoder finished",
			Command:  log.Command,
			Args:     log.Args,
			ExitCode: log.ExitCode,
			Stderr:   log.Stderr,
		})
	})

	app.Diagnostics = app.runDiagnostics(settings)
	return app, nil
}

// Run starts the Wails desktop application and binds backend methods.
func (a *App) Run() error {
	assetOptions := &assetserver.Options{}
	if a.assets != nil {
		assetOptions.Assets = a.assets
	} else {
		assetOptions.Handler = http.FileServer(http.Dir("./frontend"))
	}

	return wails.Run(&options.App{
		Title:       "XTTS Desktop",
		Width:       980,
		Height:      720,
		AssetServer: assetOptions,
		OnStartup:   a.Startup,
		OnShutdown:  a.Shutdown,
		Bind:        []interface{}{a},
	})
}

// Startup stores Wails runtime context and loads the voice and language catalogs.
func (a *App) Startup(ctx context.Context) {
	a.mu.Lock()
	a.runtimeCtx = ctx
	a.mu.Unlock()

	if err := a.RefreshCatalog(); err != nil {
		a.logger.Warn("initial catalog refresh skipped", slog.Any("error", err))
	}
}

// Shutdown stops a running batch and flushes pending events.
func (a *App) Shutdown(ctx context.Context) {
	a.mu.Lock()
	cancel := a.cancel
	a.runtimeCtx = nil
	a.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if a.dispatcher != nil {
		a.dispatcher.Close()
	}
}

// GetDiagnostics returns the latest cached diagnostics report.
func (a *App) GetDiagnostics() domain.DiagnosticReport {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.Diagnostics
}

// GetSettings returns the persisted settings with XTTS_* overrides applied.
func (a *App) GetSettings() (domain.Settings, error) {
	settings, err := a.effectiveSettings()
	if err != nil {
		return domain.Settings{}, err
	}

	a.mu.Lock()
	a.Settings = settings
	a.mu.Unlock()

	return settings, nil
}

// SaveSettings normalizes and persists settings, applies the effective values
// (XTTS_* overrides still win) to the session, then refreshes diagnostics. A
// changed effective server URL triggers a catalog refresh.
func (a *App) SaveSettings(settings domain.Settings) (domain.Settings, error) {
	normalized := config.Normalize(settings)
	if err := a.Store.Save(normalized); err != nil {
		return domain.Settings{}, fmt.Errorf("save settings: %w", err)
	}
	effective := config.ApplyEnv(normalized)

	serverChanged := a.Session.Snapshot().ServerURL != effective.ServerURL
	if serverChanged {
		if _, err := a.Session.SetServerURL(effective.ServerURL); err != nil {
			return effective, err
		}
	}
	if effective.Voice != "" {
		_, _ = a.Session.SelectVoice(effective.Voice)
	}
	if effective.Language != "" {
		_, _ = a.Session.SelectLanguage(effective.Language)
	}

	report := a.runDiagnostics(effective)
	a.mu.Lock()
	a.Settings = effective
	a.Diagnostics = report
	a.mu.Unlock()

	if serverChanged {
		_ = a.RefreshCatalog()
	}
	return effective, nil
}

// PickTextFile opens a native file dialog for batch input selection.
func (a *App) PickTextFile() (string, error) {
	ctx, err := a.runtimeContext()
	if err != nil {
		return "", err
	}

	path, err := wailsruntime.OpenFileDialog(ctx, wailsruntime.OpenDialogOptions{
		Title:   "Select text file",
		Filters: textDialogFilter,
	})
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(path), nil
}

// PickOutputDirectory opens a native directory picker for batch exports.
func (a *App) PickOutputDirectory() (string, error) {
	ctx, err := a.runtimeContext()
	if err != nil {
		return "", err
	}

	path, err := wailsruntime.OpenDirectoryDialog(ctx, wailsruntime.OpenDialogOptions{
		Title: "Select output directory",
	})
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(path), nil
}

// OpenOutputFolder opens the given path (or configured output dir) in file manager.
func (a *App) OpenOutputFolder(path string) error {
	target := strings.TrimSpace(path)
	if target == "" {
		a.mu.Lock()
		target = a.Settings.OutputDir
		a.mu.Unlock()
	}
	if target == "" {
		return fmt.Errorf("output path is empty")
	}

	info, err := os.Stat(target)
	if err != nil {
		return fmt.Errorf("resolve output path: %w", err)
	}

	openPath := target
	if !info.IsDir() {
		openPath = filepath.Dir(target)
	}

	return openInFileManager(openPath)
}

// RefreshDiagnostics reloads settings and reruns dependency checks.
func (a *App) RefreshDiagnostics() (domain.DiagnosticReport, error) {
	settings, err := a.effectiveSettings()
	if err != nil {
		return domain.DiagnosticReport{}, err
	}
	return a.refreshDiagnosticsFromSettings(settings), nil
}

// effectiveSettings loads persisted settings and applies XTTS_* overrides.
func (a *App) effectiveSettings() (domain.Settings, error) {
	settings, err := a.Store.Load()
	if err != nil {
		return domain.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	return config.ApplyEnv(settings), nil
}

// refreshDiagnosticsFromSettings reruns checks and caches the report.
func (a *App) refreshDiagnosticsFromSettings(settings domain.Settings) domain.DiagnosticReport {
	report := a.runDiagnostics(settings)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.Settings = settings
	a.Diagnostics = report
	return report
}

// runDiagnostics executes the checker with a bounded server check.
func (a *App) runDiagnostics(settings domain.Settings) domain.DiagnosticReport {
	if a.checker == nil {
		return domain.DiagnosticReport{}
	}
	ctx, cancel := context.WithTimeout(context.Background(), diagnosticsTimeout)
	defer cancel()
	return a.checker.Run(ctx, settings)
}

// runtimeContext returns current Wails runtime context for dialog APIs.
func (a *App) runtimeContext() (context.Context, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.runtimeCtx == nil {
		return nil, fmt.Errorf("runtime context is not initialized")
	}
	return a.runtimeCtx, nil
}

// languagePing adapts the client's language endpoint as a reachability check.
func languagePing(client *xtts.Client) diagnostics.PingFunc {
	return func(ctx context.Context, baseURL string) (int, error) {
		langs, err := client.Languages(ctx, baseURL)
		if err != nil {
			return 0, err
		}
		return len(langs), nil
	}
}

// openInFileManager launches the platform file explorer for the provided path.
func openInFileManager(path string) error {
	var cmd *exec.Cmd
	switch goruntime.GOOS {
	case "darwin":
		cmd = exec.Command("open", path)
	case "windows":
		cmd = exec.Command("explorer", filepath.Clean(path))
	default:
		cmd = exec.Command("xdg-open", path)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launch file manager: %w", err)
	}
	return nil
}
