package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/premid/pmd/pkg/paths"
	"github.com/spf13/cobra"
)

// PathsOutput represents the XDG-compliant paths used by pmd.
type PathsOutput struct {
	ConfigDir    string `json:"config_dir"`
	StateDir     string `json:"state_dir"`
	CacheDir     string `json:"cache_dir"`
	RuntimeDir   string `json:"runtime_dir"`
	Socket       string `json:"socket"`
	PidFile      string `json:"pid_file"`
	GlobalConfig string `json:"global_config"`
}

func NewPathsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "paths",
		Short: "Print the XDG-compliant paths used by pmd",
		Long: `Print the XDG-compliant paths used by pmd as JSON.

- config_dir: Configuration files (config.yml)
- state_dir: Runtime state (logs, pid file)
- cache_dir: Temporary/regenerable data
- socket: Unix socket of the host
Setting PMD_HOME moves every directory below it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := PathsOutput{
				ConfigDir:    paths.ConfigDir(),
				StateDir:     paths.StateDir(),
				CacheDir:     paths.CacheDir(),
				RuntimeDir:   paths.RuntimeDir(),
				Socket:       paths.SocketPath(),
				PidFile:      paths.PidFilePath(),
				GlobalConfig: paths.GlobalConfigPath(),
			}

			jsonData, err := json.MarshalIndent(output, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal paths to JSON: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(jsonData))
			return nil
		},
	}

	return cmd
}
