package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spachava753/mcdl/internal/models"
	"github.com/spachava753/mcdl/internal/rules"
	"github.com/spachava753/mcdl/internal/version"
)

var sideLabels = map[models.Side]string{
	models.SideServer: "Server:",
	models.SideClient: "Client:",
}

func newInfoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info [version]",
		Short: "Show details of a version",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			versionID := ""
			if len(args) == 1 {
				versionID = args[0]
			}

			inst, err := a.installer()
			if err != nil {
				return err
			}
			d, err := inst.Describe(cmd.Context(), versionID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Version:     %s (%s, %s)\n", d.ID, d.Type, version.Classify(d.ID))
			if len(d.Chain) > 1 {
				fmt.Fprintf(out, "Inherits:    %s\n", strings.Join(d.Chain[1:], " -> "))
			}
			if d.MainClass != "" {
				fmt.Fprintf(out, "Main class:  %s\n", d.MainClass)
			}
			if d.JavaVersion != nil {
				fmt.Fprintf(out, "Java:        %d\n", d.JavaVersion.MajorVersion)
			}

			for _, side := range []models.Side{models.SideServer, models.SideClient} {
				refs := rules.Filter(d, rules.Current(side))
				var size int64
				for _, r := range refs {
					size += r.Size
				}
				fmt.Fprintf(out, "%-12s %d artifacts, %.1f MiB\n", sideLabels[side], len(refs), float64(size)/(1<<20))
			}
			return nil
		},
	}
}
