package diagnostics

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"xtts-desktop/internal/domain"
)

// Check IDs surfaced in the report.
const (
	IDServer    = "server"
	IDFFmpeg    = "tool_ffmpeg"
	IDOutputDir = "output_dir"
)

// PingFunc contacts the XTTS server at baseURL and returns how many languages it lists.
type PingFunc func(ctx context.Context, baseURL string) (int, error)

// Checker validates the server, external tools, and required filesystem paths.
type Checker struct {
	ping       PingFunc
	lookPath   func(string) (string, error)
	mkdirAll   func(string, os.FileMode) error
	createTemp func(string, string) (*os.File, error)
	remove     func(string) error
}

// NewChecker builds a checker using real OS dependencies.
func NewChecker(ping PingFunc) *Checker {
	return &Checker{
		ping:       ping,
		lookPath:   exec.LookPath,
		mkdirAll:   os.MkdirAll,
		createTemp: os.CreateTemp,
		remove:     os.Remove,
	}
}

// Run executes all startup checks and returns a combined report.
func (c *Checker) Run(ctx context.Context, settings domain.Settings) domain.DiagnosticReport {
	items := []domain.DiagnosticItem{
		c.checkServer(ctx, settings.ServerURL),
		c.checkTool("ffmpeg"),
		c.checkOutputDir(settings.OutputDir),
	}

	hasFailures := false
	for _, item := range items {
		if item.Status == domain.DiagnosticStatusFail {
			hasFailures = true
			break
		}
	}

	return domain.DiagnosticReport{
		GeneratedAt: time.Now().UTC(),
		HasFailures: hasFailures,
		Items:       items,
	}
}

// checkServer verifies the XTTS API answers GET /languages.
func (c *Checker) checkServer(ctx context.Context, serverURL string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   IDServer,
		Name: "XTTS server",
	}

	url := domain.NormalizeServerURL(serverURL)
	if url == "" {
		item.Status = domain.DiagnosticStatusFail
		item.Message = "Server URL is empty."
		item.Hint = "Set the address of a running xtts-api-server, e.g. http://localhost:8020."
		return item
	}

	count, err := c.ping(ctx, url)
	if err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Cannot reach %s: %v", url, err)
		if errors.Is(err, domain.ErrServer) {
			item.Hint = "The server answered with an error. Check the server logs."
		} else {
			item.Hint = "Start xtts-api-server or correct the server URL in settings."
		}
		return item
	}

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Connected to %s (%d languages)", url, count)
	return item
}

// checkTool verifies a required CLI executable is on PATH.
func (c *Checker) checkTool(name string) domain.DiagnosticItem {
	path, err := c.lookPath(name)
	if err != nil {
		return domain.DiagnosticItem{
			ID:      "tool_" + name,
			Name:    name,
			Status:  domain.DiagnosticStatusFail,
			Message: fmt.Sprintf("Tool not found in PATH: %s", name),
			Hint:    "Install it to save MP3 files. WAV playback and export work without it.",
			Fixable: true,
		}
	}

	return domain.DiagnosticItem{
		ID:      "tool_" + name,
		Name:    name,
		Status:  domain.DiagnosticStatusPass,
		Message: fmt.Sprintf("Found at %s", path),
	}
}

// checkOutputDir validates output directory existence and write access.
func (c *Checker) checkOutputDir(outputDir string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:      IDOutputDir,
		Name:    "Output directory",
		Fixable: true,
	}

	if strings.TrimSpace(outputDir) == "" {
		item.Status = domain.DiagnosticStatusFail
		item.Message = "Output directory is empty."
		item.Hint = "Set an output directory where audio files can be written."
		return item
	}

	if err := c.mkdirAll(outputDir, 0o755); err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Cannot create output directory: %s", outputDir)
		item.Hint = "Choose a writable location or adjust filesystem permissions."
		return item
	}

	tmpFile, err := c.createTemp(outputDir, ".write-check-*")
	if err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Output directory is not writable: %s", outputDir)
		item.Hint = "Choose a writable directory for audio export."
		return item
	}

	tmpPath := tmpFile.Name()
	_ = tmpFile.Close()
	_ = c.remove(tmpPath)

	item.Status = domain.DiagnosticStatusPass
	item.Fixable = false
	item.Message = fmt.Sprintf("Writable directory: %s", outputDir)
	return item
}

// NewCheckerForTests creates checker with injectable dependencies.
func NewCheckerForTests(
	ping PingFunc,
	lookPath func(string) (string, error),
	mkdirAll func(string, os.FileMode) error,
	createTemp func(string, string) (*os.File, error),
	remove func(string) error,
) *Checker {
	return &Checker{
		ping:       ping,
		lookPath:   lookPath,
		mkdirAll:   mkdirAll,
		createTemp: createTemp,
		remove:     remove,
	}
}
