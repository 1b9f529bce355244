package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"xtts-desktop/internal/audio"
	"xtts-desktop/internal/domain"
)

func newSayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "say <text>",
		Short: "Synthesize text and play it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := textArg(args)
			if err != nil {
				return err
			}
			e, err := newEnv(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := interruptible(cmd)
			defer cancel()

			if _, err := e.connect(ctx); err != nil {
				return err
			}
			payload, err := e.session.Synthesize(ctx, text)
			if err != nil {
				return err
			}
			return play(ctx, payload)
		},
	}
}

func newSaveCmd() *cobra.Command {
	var output string
	var format string

	c := &cobra.Command{
		Use:   "save <text>",
		Short: "Synthesize text into an audio file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := textArg(args)
			if err != nil {
				return err
			}
			want, err := audio.ParseFormat(format)
			if err != nil {
				return domain.NewError(domain.KindInvalidInput, err.Error(), nil)
			}
			e, err := newEnv(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := interruptible(cmd)
			defer cancel()

			if _, err := e.connect(ctx); err != nil {
				return err
			}
			payload, err := e.session.Synthesize(ctx, text)
			if err != nil {
				return err
			}
			if payload.IsEmpty() {
				return domain.NewError(domain.KindServer, "server returned no audio", nil)
			}

			if want == "" {
				want = audio.FormatFor(payload.ContentType)
			}
			path := output
			if filepath.Ext(path) == "" {
				path += want.Ext()
			}

			buf, err := audio.Decode(payload.Data, payload.ContentType)
			if err != nil {
				return err
			}
			if err := audio.NewExporter().Export(ctx, buf, path, want); err != nil {
				return domain.NewError(domain.KindIO, "Could not save file", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%s, %s)\n", path, fileSize(path), buf.Duration().Round(10*time.Millisecond))
			return nil
		},
	}

	c.Flags().StringVarP(&output, "output", "o", "speech", "destination file; the format extension is added when missing")
	c.Flags().StringVar(&format, "format", "", "wav or mp3 (default: the server's format)")
	return c
}

func newPreviewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "preview",
		Short: "Play a short sample in the selected voice",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := interruptible(cmd)
			defer cancel()

			if _, err := e.connect(ctx); err != nil {
				return err
			}
			payload, err := e.session.Preview(ctx, e.settings.PreviewText)
			if err != nil {
				return err
			}
			if payload.IsEmpty() {
				return domain.NewError(domain.KindServer, "Failed to generate preview audio.", nil)
			}
			return play(ctx, payload)
		},
	}
}

var readAllStdin = func() ([]byte, error) { return io.ReadAll(os.Stdin) }

// textArg joins positional words; "-" reads the text from stdin.
func textArg(args []string) (string, error) {
	var text string
	if len(args) == 1 && args[0] == "-" {
		data, err := readAllStdin()
		if err != nil {
			return "", domain.NewError(domain.KindIO, "Could not read stdin", err)
		}
		text = string(data)
	} else {
		text = strings.Join(args, " ")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", domain.NewError(domain.KindInvalidInput, "Please enter some text.", nil)
	}
	return text, nil
}

func play(ctx context.Context, payload domain.Audio) error {
	if payload.IsEmpty() {
		return nil
	}
	buf, err := audio.Decode(payload.Data, payload.ContentType)
	if err != nil {
		return domain.NewError(domain.KindPlayback, "Playback failed", err)
	}
	return audio.NewPortAudioPlayer().Play(ctx, buf)
}

func fileSize(path string) string {
	info, err := os.Stat(path)
	if err != nil {
		return "unknown size"
	}
	return humanize.Bytes(uint64(info.Size()))
}
