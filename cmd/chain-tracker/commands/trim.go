package commands

import (
	"fmt"

	"github.com/chaintracker/chain-tracker/internal/constants"
	"github.com/spf13/cobra"
)

func (a *App) installTrim() error {
	cmd := &cobra.Command{
		Use:   "trim",
		Short: "Delete the oldest data folders",
		Long:  "Delete the oldest dated data folders, keeping the most recent ones. At least one folder is always kept.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			removed, err := a.store().Trim(a.config.KeepDays)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d old data folder(s).\n", len(removed))
			return nil
		},
	}
	cmd.Flags().IntVar(&a.config.KeepDays, "keep-days", constants.DefaultKeepDays, "how many dated folders to keep")

	a.cmd.AddCommand(cmd)
	return a.bindFlags(cmd, "keep-days")
}
