package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	bwlog "github.com/nao1215/boardwatch/internal/log"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for boardwatch.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "boardwatch",
		Short: "Extract posts from a streamed message board page",
		Long: `boardwatch fetches a message board page, extracts each post (a header,
usually the date, and a body) from between fixed HTML markers, decodes
HTML entities and keeps a history of the posts it has seen.

Pages are read in small fragments, so a board of any size is processed in
constant memory. Boards behind Tor can be reached with --tor or --proxy.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON")

	cmd.AddCommand(NewFetchCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// getBoolFlag reads a flag from the command or, failing that, from the
// root's persistent flags.
func getBoolFlag(cmd *cobra.Command, name string) bool {
	v, err := cmd.Flags().GetBool(name)
	if err != nil {
		v, err = cmd.Root().PersistentFlags().GetBool(name)
		if err != nil {
			return false
		}
	}
	return v
}

// setupLogger returns a logger that masks credentials before writing.
func setupLogger(w io.Writer, verbose, jsonOutput bool) *slog.Logger {
	if jsonOutput {
		return bwlog.NewSecureJSONLogger(w, verbose)
	}
	return bwlog.NewSecureLogger(w, verbose)
}
