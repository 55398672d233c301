package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/premid/pmd/cli"
	"github.com/premid/pmd/errors"
	internalhost "github.com/premid/pmd/internal/host"
	"github.com/premid/pmd/pkg/host"
	"github.com/premid/pmd/pkg/registry"
	"github.com/spf13/cobra"
)

// AlreadyModifiedMessage is printed when open finds a running instance.
const AlreadyModifiedMessage = "This presence is already being modified."

func connect(cmd *cobra.Command) (*host.Client, error) {
	cfg, err := cli.LoadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return host.Connect(internalhost.SocketPath(cfg))
}

// findInstance matches name against the running instances by presence
// name, ignoring case, or by key.
func findInstance(ctx context.Context, client *host.Client, name string) (registry.Info, error) {
	infos, err := client.List(ctx)
	if err != nil {
		return registry.Info{}, err
	}
	for _, info := range infos {
		if strings.EqualFold(info.Name, name) || info.Key == name {
			return info, nil
		}
	}
	return registry.Info{}, errors.InstanceNotFound(name)
}

func printJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(w, string(data))
	return nil
}

// NewOpenCmd starts compiling a presence on the host.
func NewOpenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "open <name>",
		Short: "Start compiling a presence on the host",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := connect(cmd)
			if err != nil {
				return err
			}
			info, existed, err := client.Open(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if cli.GetOptions(cmd).JSONOutput {
				return printJSON(out, host.OpenResponse{Instance: info, Existed: existed})
			}
			if existed {
				fmt.Fprintln(out, AlreadyModifiedMessage)
			}
			fmt.Fprintln(out, info.Key)
			return nil
		},
	}
}

// NewCloseCmd stops an instance by closing it in the registry.
func NewCloseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "close <name>",
		Short: "Stop compiling a presence on the host",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := connect(cmd)
			if err != nil {
				return err
			}
			info, err := findInstance(cmd.Context(), client, args[0])
			if err != nil {
				return err
			}
			if err := client.Close(cmd.Context(), registry.Key(info.Key)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Closed %s\n", info.Name)
			return nil
		},
	}
}

// NewStopCmd runs the teardown command of an instance.
func NewStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop <name>",
		Short: "Run the teardown command of a presence instance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := connect(cmd)
			if err != nil {
				return err
			}
			info, err := findInstance(cmd.Context(), client, args[0])
			if err != nil {
				return err
			}
			if err := client.Execute(cmd.Context(), info.Command); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stopped %s\n", info.Name)
			return nil
		},
	}
}

// NewListCmd lists the instances running on the host.
func NewListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List presences compiling on the host",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := connect(cmd)
			if err != nil {
				return err
			}
			infos, err := client.List(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if cli.GetOptions(cmd).JSONOutput {
				return printJSON(out, infos)
			}
			if len(infos) == 0 {
				fmt.Fprintln(out, "No presences are being compiled")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tKEY\tUPTIME")
			for _, info := range infos {
				fmt.Fprintf(w, "%s\t%s\t%s\n", info.Name, info.Key, time.Since(info.StartedAt).Round(time.Second))
			}
			return w.Flush()
		},
	}
}

// NewAttachCmd streams the output of an instance to stdout.
func NewAttachCmd() *cobra.Command {
	var closeOnExit bool

	cmd := &cobra.Command{
		Use:   "attach <name>",
		Short: "Stream the compiler output of a presence",
		Long: `Stream the output of a presence compiling on the host until the
instance stops or the command is interrupted.

Examples:
  pmd attach YouTube
  pmd attach --close YouTube`,
		Args: cobra.ExactArgs(1),
	}
	cmd.Flags().BoolVar(&closeOnExit, "close", false, "Close the instance when interrupted")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		client, err := connect(cmd)
		if err != nil {
			return err
		}
		ctx, cancel := signalContext(cmd.Context())
		defer cancel()

		info, err := findInstance(ctx, client, args[0])
		if err != nil {
			return err
		}
		stream, err := client.Attach(ctx, registry.Key(info.Key))
		if err != nil {
			return err
		}
		defer stream.Close()

		out := cmd.OutOrStdout()
		for {
			select {
			case chunk, ok := <-stream.Chunks():
				if !ok {
					return nil
				}
				fmt.Fprint(out, chunk)
			case <-ctx.Done():
				if closeOnExit {
					return stream.CloseTerminal()
				}
				return nil
			}
		}
	}
	return cmd
}
