package cmd

import (
	"fmt"

	"github.com/premid/pmd/cli"
	"github.com/premid/pmd/errors"
	"github.com/premid/pmd/logging"
	"github.com/premid/pmd/schema"
	"github.com/spf13/cobra"
)

// NewValidateCmd checks metadata files against the metadata schema.
func NewValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [name]...",
		Short: "Validate presence metadata",
		Long: `Validate metadata.json of the named presences, or of every presence in
the repository, against the metadata schema. The embedded schema is used
unless metadata.schema_url is configured.

Examples:
  pmd validate
  pmd validate YouTube Netflix`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}
			v, err := schema.NewValidatorFromURL(cfg.Metadata.SchemaURL)
			if err != nil {
				return errors.Wrap(err, errors.ErrCodeMetadataInvalid, "failed to load metadata schema")
			}
			targets, err := resolveTargets(cfg, args)
			if err != nil {
				return err
			}

			cli.GetLogger(cmd).WithField("schema", v.Source()).Debug("Validating metadata")
			pretty := logging.NewPrettyLogger().WithWriter(cmd.OutOrStdout())
			failed := validateTargets(v, targets, pretty)
			if failed > 0 {
				return errors.New(errors.ErrCodeMetadataInvalid,
					fmt.Sprintf("%d of %d presences have invalid metadata", failed, len(targets)))
			}
			pretty.InfoPretty(fmt.Sprintf("%d presences valid", len(targets)))
			return nil
		},
	}
}
