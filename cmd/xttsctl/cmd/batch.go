package cmd

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"xtts-desktop/internal/audio"
	"xtts-desktop/internal/batch"
	"xtts-desktop/internal/domain"
	"xtts-desktop/internal/segment"
)

func newBatchCmd() *cobra.Command {
	var (
		outputDir string
		split     string
		format    string
		cleanup   bool
	)

	c := &cobra.Command{
		Use:   "batch <file.txt>",
		Short: "Synthesize a text file chunk by chunk and merge the result",
		Long: `Splits a UTF-8 text file into sentences or lines, synthesizes each chunk,
writes numbered part files and one merged file named after the input.
Ctrl-C stops after the chunk in flight; part files are kept.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv(cmd)
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("output-dir") {
				e.settings.OutputDir = outputDir
			}
			if cmd.Flags().Changed("split") {
				e.settings.SplitMode = split
			}
			if cmd.Flags().Changed("format") {
				e.settings.BatchFormat = format
			}
			if cmd.Flags().Changed("cleanup") {
				e.settings.CleanupParts = cleanup
			}

			mode, err := segment.ParseMode(e.settings.SplitMode)
			if err != nil {
				return domain.NewError(domain.KindInvalidInput, err.Error(), nil)
			}
			batchFormat, err := audio.ParseFormat(e.settings.BatchFormat)
			if err != nil {
				return domain.NewError(domain.KindInvalidInput, err.Error(), nil)
			}

			out := cmd.OutOrStdout()
			runID := uuid.NewString()
			logger := e.logger.With(slog.String("run_id", runID))
			orchestrator := batch.New(e.session, audio.NewExporter(), logger)

			req := batch.Request{
				InputPath: args[0],
				OutputDir: e.settings.OutputDir,
				Mode:      mode,
				Cleanup:   e.settings.CleanupParts,
				Format:    batchFormat,
				OnStage: func(stage string) {
					logger.Debug("batch stage", slog.String("stage", stage))
				},
				OnProgress: func(p batch.Progress) {
					fmt.Fprintf(out, "[%d/%d] %s\n", p.Index, p.Total, preview(p.Text, 60))
				},
				OnChunkError: func(ce batch.ChunkError) {
					fmt.Fprintf(cmd.ErrOrStderr(), "  chunk %d failed: %s\n", ce.Index, ce.Message)
				},
			}
			if err := orchestrator.Validate(req); err != nil {
				return err
			}

			ctx, cancel := interruptible(cmd)
			defer cancel()

			if _, err := e.connect(ctx); err != nil {
				return err
			}

			result, err := orchestrator.Run(ctx, req)
			if err != nil {
				return err
			}

			switch result.Status {
			case domain.JobStatusCancelled:
				fmt.Fprintf(out, "Cancelled after %d of %d chunks. Parts kept in %s\n",
					result.Succeeded+len(result.Failures), result.Total, result.ScratchDir)
			default:
				if result.MergedPath == "" {
					return fmt.Errorf("no chunks were synthesized (%d failed)", len(result.Failures))
				}
				fmt.Fprintf(out, "Merged %d of %d chunks into %s (%s) in %s\n",
					result.Succeeded, result.Total, result.MergedPath, fileSize(result.MergedPath),
					result.Duration.Round(time.Millisecond))
				if len(result.Failures) > 0 {
					fmt.Fprintf(out, "%d chunks failed and were skipped.\n", len(result.Failures))
				}
			}
			return nil
		},
	}

	c.Flags().StringVar(&outputDir, "output-dir", "", "directory for part files and the merged file")
	c.Flags().StringVar(&split, "split", "", "sentence or line")
	c.Flags().StringVar(&format, "format", "", "wav or mp3 (default: the server's format)")
	c.Flags().BoolVar(&cleanup, "cleanup", false, "delete part files after merging")
	return c
}

// preview shortens text for one progress line.
func preview(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit-3]) + "..."
}
