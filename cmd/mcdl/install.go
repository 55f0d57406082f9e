package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spachava753/mcdl/internal/installer"
	"github.com/spachava753/mcdl/internal/models"
	"github.com/spachava753/mcdl/internal/rules"
	"github.com/spachava753/mcdl/internal/version"
)

func newInstallCmd(a *app) *cobra.Command {
	var (
		client     bool
		acceptEULA bool
		osName     string
	)

	cmd := &cobra.Command{
		Use:   "install [version][:[name][:[kind]]]...",
		Short: "Install one or more instances",
		Long: `Install one or more instances.

Each argument has the form [version][:[name][:[kind]]]. Omitted parts
default to the latest release, a generated "unnamed-..." name and a
vanilla server. "latest" and "latest-snapshot" are accepted as versions.

Examples:
  mcdl install                  latest vanilla server, generated name
  mcdl install 1.20.1:survival  1.20.1 server named "survival"
  mcdl install latest-snapshot::vanilla`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{""}
			}

			specs := make([]version.InstallSpec, 0, len(args))
			for _, arg := range args {
				spec, err := version.ParseInstallSpec(arg)
				if err != nil {
					return err
				}
				if !spec.Kind.Supported() {
					return fmt.Errorf("server kind %q is not supported yet", spec.Kind)
				}
				specs = append(specs, spec)
			}

			if acceptEULA {
				a.cfg.AcceptEULA = true
			}
			inst, err := a.installer()
			if err != nil {
				return err
			}

			side := a.cfg.Side
			if client {
				side = models.SideClient
			}
			platform := rules.Current(side)
			if osName != "" {
				platform.OS = osName
			}

			for _, spec := range specs {
				id := spec.Name
				if !spec.Named {
					id = installer.GenerateID(spec.Name)
				}
				result, err := inst.Install(cmd.Context(), spec.Version, id, platform)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Installed %s (%s, %d artifacts)\n",
					result.InstanceID, result.VersionID, len(result.Artifacts))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&client, "client", false, "install the client instead of the server")
	cmd.Flags().BoolVar(&acceptEULA, "accept-eula", false, "write eula.txt accepting the EULA")
	cmd.Flags().StringVar(&osName, "os", "", "target OS (linux, windows, osx); defaults to the running OS")
	return cmd
}
