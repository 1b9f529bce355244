package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	goruntime "runtime"
	"strings"
	"time"

	"xtts-desktop/internal/config"
	"xtts-desktop/internal/diagnostics"
	"xtts-desktop/internal/domain"
)

const installCommandTimeout = 45 * time.Minute

type installOption struct {
	manager  string
	commands [][]string
}

// InstallOrFixDiagnostic applies an OS-specific remediation for one failed diagnostic item.
func (a *App) InstallOrFixDiagnostic(itemID string) (domain.DiagnosticReport, error) {
	if a.Store == nil {
		return domain.DiagnosticReport{}, fmt.Errorf("settings store is not configured")
	}

	id := strings.TrimSpace(itemID)
	if id == "" {
		return domain.DiagnosticReport{}, fmt.Errorf("diagnostic item id is required")
	}

	settings, err := a.Store.Load()
	if err != nil {
		return domain.DiagnosticReport{}, fmt.Errorf("load settings: %w", err)
	}
	settings = config.Normalize(settings)

	settingsChanged := false
	var fixErr error

	switch id {
	case diagnostics.IDFFmpeg:
		fixErr = newInstaller().ensureFFmpeg()
	case diagnostics.IDOutputDir:
		var fixed domain.Settings
		fixed, settingsChanged, fixErr = installOrFixOutputDir(config.ApplyEnv(settings))
		settings.OutputDir = fixed.OutputDir
	case diagnostics.IDServer:
		return a.GetDiagnostics(), fmt.Errorf("start xtts-api-server manually or change the server URL")
	default:
		return domain.DiagnosticReport{}, fmt.Errorf("unsupported diagnostic item id: %s", id)
	}

	if settingsChanged {
		if saveErr := a.Store.Save(settings); saveErr != nil {
			report := a.refreshDiagnosticsFromSettings(config.ApplyEnv(settings))
			return report, fmt.Errorf("save settings after fix: %w", saveErr)
		}
	}

	report := a.refreshDiagnosticsFromSettings(config.ApplyEnv(settings))
	if fixErr != nil {
		a.logger.Warn("diagnostic fix failed", slog.String("item", id), slog.Any("error", fixErr))
		return report, fixErr
	}
	a.logger.Info("diagnostic fixed", slog.String("item", id))
	return report, nil
}

// maxInstallOutput caps how much package-manager output is kept in an error.
const maxInstallOutput = 500

// installer drives OS package managers. lookPath and run are replaced in tests.
type installer struct {
	goos     string
	timeout  time.Duration
	lookPath func(name string) (string, error)
	run      func(ctx context.Context, argv []string) ([]byte, error)
}

func newInstaller() installer {
	return installer{
		goos:     goruntime.GOOS,
		timeout:  installCommandTimeout,
		lookPath: exec.LookPath,
		run: func(ctx context.Context, argv []string) ([]byte, error) {
			return exec.CommandContext(ctx, argv[0], argv[1:]...).CombinedOutput()
		},
	}
}

func (in installer) has(name string) bool {
	_, err := in.lookPath(name)
	return err == nil
}

// ensureFFmpeg installs ffmpeg with the first package manager that succeeds
// and checks that the binary is reachable afterwards.
func (in installer) ensureFFmpeg() error {
	if in.has("ffmpeg") {
		return nil
	}
	if err := in.install(ffmpegInstallOptions(in.goos)); err != nil {
		return fmt.Errorf("install ffmpeg: %w", err)
	}
	if !in.has("ffmpeg") {
		return errors.New("ffmpeg installed but still not on PATH")
	}
	return nil
}

// ffmpegInstallOptions lists package-manager commands in preference order.
func ffmpegInstallOptions(goos string) []installOption {
	switch goos {
	case "windows":
		return []installOption{
			{manager: "winget", commands: [][]string{{"winget", "install", "--id", "Gyan.FFmpeg", "--exact", "--accept-source-agreements", "--accept-package-agreements"}}},
			{manager: "choco", commands: [][]string{{"choco", "install", "ffmpeg", "-y"}}},
			{manager: "scoop", commands: [][]string{{"scoop", "install", "ffmpeg"}}},
		}
	case "darwin":
		return []installOption{
			{manager: "brew", commands: [][]string{{"brew", "install", "ffmpeg"}}},
		}
	default:
		return []installOption{
			{manager: "apt-get", commands: [][]string{{"apt-get", "update"}, {"apt-get", "install", "-y", "ffmpeg"}}},
			{manager: "dnf", commands: [][]string{{"dnf", "install", "-y", "ffmpeg"}}},
			{manager: "pacman", commands: [][]string{{"pacman", "-Sy", "--noconfirm", "ffmpeg"}}},
			{manager: "zypper", commands: [][]string{{"zypper", "install", "-y", "ffmpeg"}}},
			{manager: "brew", commands: [][]string{{"brew", "install", "ffmpeg"}}},
		}
	}
}

// install walks options in order, skipping managers that are not installed.
// Failures from every attempted manager are joined into one error.
func (in installer) install(options []installOption) error {
	var failures []error
	for _, option := range options {
		if !in.has(option.manager) {
			continue
		}
		err := in.runAll(option.commands)
		if err == nil {
			return nil
		}
		failures = append(failures, fmt.Errorf("%s: %w", option.manager, err))
	}
	if len(failures) == 0 {
		return fmt.Errorf("no supported package manager found for %s", in.goos)
	}
	return errors.Join(failures...)
}

func (in installer) runAll(commands [][]string) error {
	for _, argv := range commands {
		if err := in.runElevated(argv); err != nil {
			return err
		}
	}
	return nil
}

// runElevated tries argv as is, then through pkexec and sudo -n for Linux
// system package managers.
func (in installer) runElevated(argv []string) error {
	if len(argv) == 0 {
		return errors.New("empty command")
	}
	var failures []error
	for _, attempt := range in.attempts(argv) {
		err := in.runOnce(attempt)
		if err == nil {
			return nil
		}
		failures = append(failures, err)
	}
	return errors.Join(failures...)
}

func (in installer) attempts(argv []string) [][]string {
	out := [][]string{argv}
	if in.goos != "linux" || !requiresElevation(argv[0]) {
		return out
	}
	if in.has("pkexec") {
		out = append(out, append([]string{"pkexec"}, argv...))
	}
	if in.has("sudo") {
		out = append(out, append([]string{"sudo", "-n"}, argv...))
	}
	return out
}

func (in installer) runOnce(argv []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), in.timeout)
	defer cancel()

	line := strings.Join(argv, " ")
	output, err := in.run(ctx, argv)
	switch {
	case err == nil:
		return nil
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%s timed out after %s", line, in.timeout)
	}

	detail := strings.TrimSpace(string(output))
	if detail == "" {
		return fmt.Errorf("%s failed: %w", line, err)
	}
	if len(detail) > maxInstallOutput {
		detail = detail[:maxInstallOutput] + "..."
	}
	return fmt.Errorf("%s failed: %w (%s)", line, err, detail)
}

func requiresElevation(manager string) bool {
	switch manager {
	case "apt-get", "dnf", "pacman", "zypper":
		return true
	default:
		return false
	}
}

func installOrFixOutputDir(settings domain.Settings) (domain.Settings, bool, error) {
	outputDir := strings.TrimSpace(settings.OutputDir)
	changed := false
	if outputDir == "" {
		outputDir = config.DefaultSettings().OutputDir
		settings.OutputDir = outputDir
		changed = true
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return settings, changed, fmt.Errorf("create output directory %s: %w", outputDir, err)
	}

	return settings, changed, nil
}
