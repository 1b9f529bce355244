package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"xtts-desktop/internal/config"
	"xtts-desktop/internal/domain"
	"xtts-desktop/internal/session"
	"xtts-desktop/internal/xtts"
)

// version is overridden at build time with -ldflags "-X xtts-desktop/cmd/xttsctl/cmd.version=...".
var version = "dev"

var (
	cfgFile   string
	envFile   string
	serverURL string
	voice     string
	language  string
	verbose   bool
)

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "xttsctl",
		Short: "Command line client for an XTTS speech server",
		Long: `xttsctl talks to a running xtts-api-server using the same settings as the
desktop app (~/.xtts-desktop/settings.yaml, XTTS_* environment variables).

Examples:
  xttsctl voices
  xttsctl say "Hello there."
  xttsctl save -o hello.wav "Hello there."
  xttsctl batch book.txt --split line`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "settings file (default: ~/.xtts-desktop/settings.yaml)")
	flags.StringVar(&envFile, "env-file", ".env", "dotenv file with XTTS_* overrides")
	flags.StringVar(&serverURL, "server", "", "server base URL (overrides settings)")
	flags.StringVar(&voice, "voice", "", "voice display name (overrides settings)")
	flags.StringVar(&language, "language", "", "language display name (overrides settings)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose logging")

	root.AddCommand(
		newVoicesCmd(),
		newLanguagesCmd(),
		newSayCmd(),
		newSaveCmd(),
		newPreviewCmd(),
		newBatchCmd(),
		newDoctorCmd(),
		newVersionCmd(),
	)
	return root
}

// Execute runs the root command and prints the error once.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		printError(rootCmd.ErrOrStderr(), err)
		return err
	}
	return nil
}

func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %v\n", err)
}

// env bundles what a subcommand needs to talk to the server.
type env struct {
	settings domain.Settings
	client   *xtts.Client
	session  *session.Session
	logger   *slog.Logger
}

// newEnv loads settings, applies flag overrides, and builds a session.
func newEnv(cmd *cobra.Command) (*env, error) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	path := cfgFile
	if path == "" {
		path = config.DefaultPath()
	}
	settings, err := config.NewYAMLStore(path).Load()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	settings = config.ApplyEnv(settings, envFile)

	if serverURL != "" {
		settings.ServerURL = serverURL
	}
	if voice != "" {
		settings.Voice = voice
	}
	if language != "" {
		settings.Language = language
	}

	client := xtts.NewClient(time.Duration(settings.RequestTimeoutSeconds)*time.Second, logger)
	sess := session.New(client, settings.ServerURL, settings.Voice, settings.Language, logger)
	return &env{settings: settings, client: client, session: sess, logger: logger}, nil
}

// connect refreshes catalogs and checks that explicitly requested names exist.
func (e *env) connect(ctx context.Context) (session.Snapshot, error) {
	snap, err := e.session.Refresh(ctx)
	if err != nil {
		return snap, err
	}
	if voice != "" {
		if snap, err = e.session.SelectVoice(voice); err != nil {
			return snap, err
		}
	}
	if language != "" {
		if snap, err = e.session.SelectLanguage(language); err != nil {
			return snap, err
		}
	}
	return snap, nil
}

// interruptible cancels the command context on Ctrl-C or SIGTERM.
func interruptible(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}
