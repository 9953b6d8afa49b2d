package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	applog "github.com/nao1215/notecrawl/internal/log"
)

// NewRootCmd creates the root command for notecrawl.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notecrawl",
		Short: "Bounded, resumable media collector for note search results",
		Long: `notecrawl searches a note platform for a set of keywords, fetches the
detail of every new note and stores its media until a target number of
files exists on disk.

Runs are resumable: the media already on disk counts toward the target and
processed notes are journaled, so a later run picks up where the last one
stopped.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON lines")

	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewCountCmd())
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

// getBoolFlag retrieves a bool flag from the command or the root's
// persistent flags.
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

// setupLogger creates the secure structured logger selected by the global
// flags. Logs go to stderr so stdout carries only reports.
func setupLogger(cmd *cobra.Command) *slog.Logger {
	return applog.New(cmd.ErrOrStderr(), applog.Options{
		Verbose: getBoolFlag(cmd, "verbose"),
		JSON:    getBoolFlag(cmd, "log-json"),
	})
}
