package commands

import (
	"log/slog"

	"github.com/chaintracker/chain-tracker/internal/analysis"
	"github.com/chaintracker/chain-tracker/internal/constants"
	"github.com/chaintracker/chain-tracker/internal/puller"
	"github.com/chaintracker/chain-tracker/internal/registry"
	"github.com/chaintracker/chain-tracker/internal/runner"
	"github.com/chaintracker/chain-tracker/internal/validator"
	"github.com/spf13/cobra"
)

type pullFlags struct {
	validateFirst bool
	withPackage   bool
	only          []string
}

func (a *App) installPull() error {
	cmd := &cobra.Command{
		Use:   "pull",
		Short: "Pull every active source and save today's snapshots",
		Long: "Pull every active source of the registry sequentially, append the outcome to the pull log and save one snapshot per source " +
			"in today's data folder. Failures are reported per source and the run goes on.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.pullRun(cmd)
		},
	}

	cmd.Flags().BoolVar(&a.pull.validateFirst, "validate-first", false, "run the validator first and abort the run on failure")
	cmd.Flags().BoolVar(&a.pull.withPackage, "package", false, "generate the daily package once the sources are pulled")
	cmd.Flags().StringSliceVar(&a.pull.only, "only", nil, "comma separated source ids to pull, instead of every active source")
	cmd.Flags().StringVar(&a.config.FREDAPIKey, "fred-api-key", "", "FRED API key, read from "+fredAPIKeyEnv+" when unset")
	cmd.Flags().DurationVar(&a.config.PullTimeout, "pull-timeout", constants.DefaultPullTimeout, "timeout of every HTTP request to a source")

	a.cmd.AddCommand(cmd)
	return a.bindFlags(cmd, "fred-api-key", "pull-timeout")
}

func (a *App) pullRun(cmd *cobra.Command) error {
	l := slog.Default()

	rm := registry.NewManager(a.config.ConfigDir, registry.WithLogger(l))
	if err := rm.Load(); err != nil {
		l.Warn("Could not load registries", "err", err)
	}

	cfg := puller.Config{FREDAPIKey: a.config.FREDAPIKey, Timeout: a.config.PullTimeout}
	pullers, err := runner.Select(runner.Pullers(rm.Sources(), cfg, l), a.pull.only)
	if err != nil {
		return err
	}

	st, pl := a.store(), a.pullLog()
	opts := []runner.Options{runner.WithOutput(cmd.OutOrStdout()), runner.WithLogger(l)}
	if a.pull.validateFirst {
		opts = append(opts, runner.WithValidator(validator.New(a.config.ConfigDir, st, pl, puller.Modules())))
	}
	if a.pull.withPackage {
		opts = append(opts, runner.WithPackager(analysis.New(st, analysis.WithLogger(l))))
	}

	_, err = runner.New(pullers, st, pl, opts...).Run(cmd.Context())
	return err
}
