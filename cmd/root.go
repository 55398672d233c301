// Package cmd holds the pmd command tree.
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/premid/pmd/cli"
	"github.com/premid/pmd/pkg/profiling"
	"github.com/spf13/cobra"
)

// NewRootCmd assembles the pmd command tree.
func NewRootCmd() *cobra.Command {
	root := cli.NewStandardCommand("pmd", "Develop PreMiD presences")
	root.Long = `Compile, watch and check PreMiD presences.

Examples:
  pmd dev YouTube
  pmd dev --tui YouTube Netflix
  pmd host start
  pmd open YouTube
  pmd validate
  pmd bump --level minor YouTube`
	root.SilenceUsage = true
	root.SilenceErrors = true

	profiler := profiling.NewCobraProfiler()
	profiler.AddFlags(root)
	root.PersistentPreRunE = profiler.PreRun
	root.PersistentPostRun = profiler.PostRun

	root.AddCommand(
		NewDevCmd(),
		NewHostCmd(),
		NewOpenCmd(),
		NewCloseCmd(),
		NewStopCmd(),
		NewListCmd(),
		NewAttachCmd(),
		NewValidateCmd(),
		NewBumpCmd(),
		NewConfigCmd(),
		cli.NewVersionCommand("pmd"),
	)
	cli.ApplyStyledHelpRecursive(root)
	return root
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
