package commands

import (
	"errors"

	"github.com/chaintracker/chain-tracker/internal/puller"
	"github.com/chaintracker/chain-tracker/internal/validator"
	"github.com/spf13/cobra"
)

var errValidationFailed = errors.New("validation failed")

func (a *App) installValidate() error {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the registries, their consistency with the pullers and the health of the data folders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v := validator.New(a.config.ConfigDir, a.store(), a.pullLog(), puller.Modules())
			report := v.Run()
			report.Print(cmd.OutOrStdout())
			if !report.OK() {
				return errValidationFailed
			}
			return nil
		},
	}
	a.cmd.AddCommand(cmd)
	return nil
}
