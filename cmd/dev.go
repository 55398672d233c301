package cmd

import (
	"fmt"
	"io"

	"github.com/premid/pmd/cli"
	"github.com/premid/pmd/internal/host"
	"github.com/premid/pmd/logging"
	"github.com/premid/pmd/pkg/compiler"
	"github.com/premid/pmd/pkg/presence"
	"github.com/premid/pmd/pkg/sink"
	"github.com/premid/pmd/tui/dashboard"
	"github.com/spf13/cobra"
)

// NewDevCmd compiles presences in the foreground.
func NewDevCmd() *cobra.Command {
	var useTUI bool

	cmd := &cobra.Command{Use: "dev <name>...", Short: "Compile and watch presences"}
	cmd.Long = `Compile a presence and recompile it whenever its sources change.

Dependencies are installed first when package.json is valid and node_modules
is missing. With --tui several presences run at once, one tab each.

Examples:
  pmd dev YouTube
  pmd dev --tui YouTube Netflix Twitch`
	cmd.Args = cobra.MinimumNArgs(1)
	cmd.Flags().BoolVar(&useTUI, "tui", false, "Show a tabbed dashboard")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := cli.LoadConfig(cmd)
		if err != nil {
			return err
		}
		ctx, cancel := signalContext(cmd.Context())
		defer cancel()

		if useTUI {
			// Log lines would tear the alternate screen.
			restore := logging.SetGlobalOutput(io.Discard)
			defer logging.SetGlobalOutput(restore)

			return dashboard.Run(ctx, host.NewRegistry(cfg, compiler.Deps{}), args)
		}

		if len(args) > 1 {
			return fmt.Errorf("dev compiles one presence at a time; use --tui for %d", len(args))
		}
		target, err := presence.Resolver{Root: cfg.Root, OutDir: cfg.Build.OutDir}.Resolve(args[0])
		if err != nil {
			return err
		}

		cli.GetLogger(cmd).WithField("presence", target.Name()).Debug("Starting compiler")
		return compiler.New(target, cfg, sink.NewConsole(), compiler.Deps{}).Run(ctx)
	}
	return cmd
}
