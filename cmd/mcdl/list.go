package main

import (
	"cmp"
	"fmt"
	"slices"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/spachava753/mcdl/internal/installer"
	"github.com/spachava753/mcdl/internal/models"
	"github.com/spachava753/mcdl/internal/version"
)

func newListCmd(a *app) *cobra.Command {
	var installed bool
	var release, preRelease, snapshot, nonStd bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List available versions or installed instances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			defer w.Flush()

			if installed {
				list, err := a.listInstalled()
				if err != nil {
					return err
				}
				fmt.Fprintln(w, "INSTANCE\tVERSION\tARTIFACTS\tINSTALLED")
				for _, inst := range list {
					fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", inst.InstanceID, inst.VersionID,
						len(inst.Artifacts), inst.InstalledAt.Local().Format("2006-01-02 15:04"))
				}
				return nil
			}

			if !release && !preRelease && !snapshot && !nonStd {
				release = true
			}
			show := map[version.Kind]bool{
				version.KindRelease:    release,
				version.KindPreRelease: preRelease,
				version.KindSnapshot:   snapshot,
				version.KindOther:      nonStd,
			}

			inst, err := a.installer()
			if err != nil {
				return err
			}
			cat, err := inst.Catalog(cmd.Context())
			if err != nil {
				return err
			}

			var entries []models.CatalogEntry
			for _, e := range cat.Versions {
				if show[kindOf(e)] {
					entries = append(entries, e)
				}
			}
			newestFirst(entries)

			fmt.Fprintln(w, "VERSION\tKIND\tTYPE\tRELEASED")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.ID, kindOf(e), e.Type, e.ReleaseTime.Format("2006-01-02"))
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&installed, "installed", "i", false, "show installed instances instead of available versions")
	cmd.Flags().BoolVarP(&release, "release", "r", false, "include release versions (default when no filter is set)")
	cmd.Flags().BoolVarP(&preRelease, "pre-release", "p", false, "include pre-release versions")
	cmd.Flags().BoolVarP(&snapshot, "snapshot", "s", false, "include snapshot versions")
	cmd.Flags().BoolVarP(&nonStd, "non-standard", "n", false, "include non-standard versions")
	return cmd
}

// kindOf classifies a catalog entry. Legacy catalog types (old_alpha,
// old_beta) are non-standard whatever their ID looks like.
func kindOf(e models.CatalogEntry) version.Kind {
	if e.Type != "" && e.Type.IsOther() {
		return version.KindOther
	}
	return version.Classify(e.ID)
}

// newestFirst groups entries by kind and orders each group by version
// number, newest first. Non-standard entries keep catalog order.
func newestFirst(entries []models.CatalogEntry) {
	number := func(e models.CatalogEntry) version.Number {
		n, err := version.Parse(e.ID)
		if err != nil || kindOf(e) == version.KindOther {
			return version.Number{Raw: e.ID, Kind: version.KindOther}
		}
		return n
	}
	slices.SortStableFunc(entries, func(a, b models.CatalogEntry) int {
		na, nb := number(a), number(b)
		if na.Kind != nb.Kind {
			return cmp.Compare(na.Kind, nb.Kind)
		}
		if na.Kind == version.KindOther {
			return 0
		}
		return version.Compare(nb, na)
	})
}

func (a *app) listInstalled() ([]models.InstalledInstance, error) {
	return installer.ListInstalled(a.cfg.InstallRoot)
}
