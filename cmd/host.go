package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/premid/pmd/cli"
	"github.com/premid/pmd/errors"
	internalhost "github.com/premid/pmd/internal/host"
	"github.com/premid/pmd/internal/host/pidfile"
	"github.com/premid/pmd/logging"
	"github.com/premid/pmd/pkg/compiler"
	"github.com/premid/pmd/pkg/host"
	"github.com/premid/pmd/pkg/paths"
	"github.com/premid/pmd/pkg/process"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewHostCmd returns the host daemon command with subcommands.
func NewHostCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "host", Short: "Manage the multi-instance host"}
	cmd.Long = `The host keeps one compiler per presence running and serves them to
editors and the open, close, stop, ls and attach commands over a unix socket.`

	cmd.AddCommand(newHostStartCmd())
	cmd.AddCommand(newHostStopCmd())
	cmd.AddCommand(newHostStatusCmd())
	return cmd
}

func newHostStartCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "start", Short: "Start the host in the foreground"}
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := cli.LoadConfig(cmd)
		if err != nil {
			return err
		}
		if err := paths.EnsureDirs(); err != nil {
			return errors.Wrap(err, errors.ErrCodePermissionDenied, "failed to create state directories")
		}

		ctx, cancel := signalContext(cmd.Context())
		defer cancel()

		logger := logging.NewLogger("host")
		socket := internalhost.SocketPath(cfg)
		logger.WithFields(logrus.Fields{
			"pid":    os.Getpid(),
			"socket": socket,
			"root":   cfg.Root,
		}).Info("Starting host")

		return internalhost.Run(ctx, internalhost.Options{
			Config: cfg,
			Deps:   compiler.Deps{},
			Socket: socket,
			Logger: logger,
		})
	}
	return cmd
}

func newHostStopCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "stop", Short: "Stop the running host"}
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		pretty := logging.NewPrettyLogger().WithWriter(cmd.OutOrStdout())

		running, pid, err := pidfile.IsRunning(paths.PidFilePath())
		if err != nil {
			return fmt.Errorf("error checking status: %w", err)
		}
		if !running {
			pretty.InfoPretty("Host is not running")
			return nil
		}

		if err := process.Terminate(pid); err != nil {
			return fmt.Errorf("failed to stop host %d: %w", pid, err)
		}
		pretty.Success(fmt.Sprintf("Sent SIGTERM to host %d", pid))
		return nil
	}
	return cmd
}

func newHostStatusCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "status", Short: "Check host status"}
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := cli.LoadConfig(cmd)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		client := host.NewClient(internalhost.SocketPath(cfg))
		status, err := client.Status(cmd.Context())
		if err != nil {
			if cli.GetOptions(cmd).JSONOutput {
				fmt.Fprintln(out, `{"running": false}`)
				return nil
			}
			fmt.Fprintln(out, "Host is not running")
			return nil
		}

		if cli.GetOptions(cmd).JSONOutput {
			data, err := json.MarshalIndent(status, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(data))
			return nil
		}

		fmt.Fprintf(out, "Host is running (PID: %d)\n", status.PID)
		fmt.Fprintf(out, "  Socket:    %s\n", client.SocketPath())
		fmt.Fprintf(out, "  Root:      %s\n", status.Root)
		fmt.Fprintf(out, "  Uptime:    %s\n", time.Since(status.StartedAt).Round(time.Second))
		fmt.Fprintf(out, "  Instances: %d\n", status.Instances)
		return nil
	}
	return cmd
}
