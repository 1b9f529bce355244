package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newVoicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "voices",
		Short: "List the server's voices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv(cmd)
			if err != nil {
				return err
			}
			snap, err := e.session.Refresh(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(snap.Voices) == 0 {
				fmt.Fprintln(out, "No voices available.")
				return nil
			}
			for _, v := range snap.Voices {
				marker := " "
				if v.Name == snap.Voice {
					marker = "*"
				}
				fmt.Fprintf(out, "%s %-24s %s\n", marker, v.Name, v.VoiceID)
			}
			return nil
		},
	}
}

func newLanguagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: "List the server's languages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv(cmd)
			if err != nil {
				return err
			}
			snap, err := e.session.Refresh(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, lang := range snap.Languages {
				marker := " "
				if lang.Name == snap.Language {
					marker = "*"
				}
				fmt.Fprintf(out, "%s %-24s %s\n", marker, lang.Name, lang.Code)
			}
			return nil
		},
	}
}
