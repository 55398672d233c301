package cmd

import (
	"fmt"
	"os"

	"github.com/premid/pmd/config"
	"github.com/premid/pmd/errors"
	"github.com/premid/pmd/logging"
	"github.com/premid/pmd/pkg/bump"
	"github.com/premid/pmd/pkg/presence"
	"github.com/premid/pmd/pkg/profiling"
	"github.com/premid/pmd/schema"
)

// resolveTargets resolves names, or every presence when names is empty.
func resolveTargets(cfg *config.Config, names []string) ([]presence.Target, error) {
	resolver := presence.Resolver{Root: cfg.Root, OutDir: cfg.Build.OutDir}
	if len(names) == 0 {
		return resolver.All()
	}
	targets := make([]presence.Target, 0, len(names))
	for _, name := range names {
		t, err := resolver.Resolve(name)
		if err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}
	return targets, nil
}

// validateTargets checks each metadata file and reports one line per
// presence. It returns the number of invalid presences.
func validateTargets(v *schema.Validator, targets []presence.Target, pretty *logging.PrettyLogger) int {
	failed := 0
	for _, t := range targets {
		span := profiling.Start("validate")
		data, err := os.ReadFile(t.MetadataPath())
		if err == nil {
			err = v.ValidateJSON(data)
		}
		span.Stop()
		if err != nil {
			failed++
			pretty.ErrorPretty(t.Name(), err)
			continue
		}
		pretty.Success(t.Name())
	}
	return failed
}

// bumpTargets raises the metadata version of each presence.
func bumpTargets(targets []presence.Target, level bump.Level, pretty *logging.PrettyLogger) ([]bump.Result, error) {
	results := make([]bump.Result, 0, len(targets))
	var failed int
	for _, t := range targets {
		res, err := bump.File(t.MetadataPath(), level)
		if err != nil {
			failed++
			pretty.ErrorPretty(t.Name(), err)
			continue
		}
		results = append(results, res)
		pretty.Success(fmt.Sprintf("%s %s -> %s", t.Name(), res.From, res.To))
	}
	if failed > 0 {
		return results, errors.New(errors.ErrCodeMetadataInvalid,
			fmt.Sprintf("%d of %d presences could not be bumped", failed, len(targets)))
	}
	return results, nil
}
