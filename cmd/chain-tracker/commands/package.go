package commands

import (
	"log/slog"

	"github.com/chaintracker/chain-tracker/internal/analysis"
	"github.com/chaintracker/chain-tracker/internal/fileutils"
	"github.com/spf13/cobra"
)

type packageFlags struct {
	date string
}

func (a *App) installPackage() error {
	cmd := &cobra.Command{
		Use:   "package",
		Short: "Generate the chain analysis and the daily brief of a day",
		Long:  "Generate chain_analysis.json and daily_brief.md in the data folder of a day, today in UTC by default, and print the outcome as JSON.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := analysis.New(a.store(), analysis.WithLogger(slog.Default())).Generate(a.pkg.date)
			if err != nil {
				return err
			}

			data, err := fileutils.MarshalIndent(res)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().StringVar(&a.pkg.date, "date", "", "day to package, as YYYY-MM-DD (default today in UTC)")

	a.cmd.AddCommand(cmd)
	return nil
}
