package cmd

import (
	"github.com/premid/pmd/cli"
	"github.com/premid/pmd/errors"
	"github.com/premid/pmd/logging"
	"github.com/premid/pmd/pkg/bump"
	"github.com/spf13/cobra"
)

// NewBumpCmd raises metadata versions.
func NewBumpCmd() *cobra.Command {
	var (
		level string
		all   bool
	)

	cmd := &cobra.Command{
		Use:   "bump [name]...",
		Short: "Bump presence metadata versions",
		Long: `Raise the version field of metadata.json. Only the version value is
rewritten, the rest of the file is kept as is.

Examples:
  pmd bump YouTube
  pmd bump --level minor YouTube Netflix
  pmd bump --all`,
	}
	cmd.Flags().StringVarP(&level, "level", "l", string(bump.Patch), "Version part to raise: patch, minor, major")
	cmd.Flags().BoolVar(&all, "all", false, "Bump every presence in the repository")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		lvl, err := bump.ParseLevel(level)
		if err != nil {
			return err
		}
		if len(args) == 0 && !all {
			return errors.New(errors.ErrCodeInvalidInput, "name a presence to bump or pass --all")
		}
		if len(args) > 0 && all {
			return errors.New(errors.ErrCodeInvalidInput, "--all cannot be combined with presence names")
		}

		cfg, err := cli.LoadConfig(cmd)
		if err != nil {
			return err
		}
		targets, err := resolveTargets(cfg, args)
		if err != nil {
			return err
		}

		pretty := logging.NewPrettyLogger().WithWriter(cmd.OutOrStdout())
		if cli.GetOptions(cmd).JSONOutput {
			pretty = logging.NewPrettyLogger().WithWriter(cmd.ErrOrStderr())
		}
		results, err := bumpTargets(targets, lvl, pretty)
		if cli.GetOptions(cmd).JSONOutput {
			if jerr := printJSON(cmd.OutOrStdout(), results); jerr != nil {
				return jerr
			}
		}
		return err
	}
	return cmd
}
