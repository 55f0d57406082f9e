package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spachava753/mcdl/internal/instance"
)

func newUninstallCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall <name>...",
		Short: "Remove installed instances",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, id := range args {
				if err := instance.Remove(a.cfg.InstallRoot, id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", id)
			}
			return nil
		},
	}
}
