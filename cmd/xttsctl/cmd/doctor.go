package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"xtts-desktop/internal/diagnostics"
	"xtts-desktop/internal/domain"
)

func newDoctorCmd() *cobra.Command {
	var timeout time.Duration

	c := &cobra.Command{
		Use:   "doctor",
		Short: "Check the server, ffmpeg, and the output directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			checker := diagnostics.NewChecker(func(ctx context.Context, baseURL string) (int, error) {
				langs, err := e.client.Languages(ctx, baseURL)
				return len(langs), err
			})
			report := checker.Run(ctx, e.settings)

			out := cmd.OutOrStdout()
			for _, item := range report.Items {
				mark := "ok  "
				if item.Status == domain.DiagnosticStatusFail {
					mark = "FAIL"
				}
				fmt.Fprintf(out, "[%s] %-18s %s\n", mark, item.Name, item.Message)
				if item.Status == domain.DiagnosticStatusFail && item.Hint != "" {
					fmt.Fprintf(out, "       hint: %s\n", item.Hint)
				}
			}
			if report.HasFailures {
				return errors.New("some checks failed")
			}
			return nil
		},
	}

	c.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "server check timeout")
	return c
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "xttsctl %s\n", version)
		},
	}
}
