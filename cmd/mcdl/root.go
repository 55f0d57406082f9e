package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/spachava753/mcdl/internal/config"
	"github.com/spachava753/mcdl/internal/installer"
	"github.com/spachava753/mcdl/internal/models"
)

// app carries state shared by all subcommands.
type app struct {
	cfgFile     string
	verbose     bool
	installRoot string

	cfg models.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           config.AppName,
		Short:         "Install and manage game server instances",
		Version:       installer.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default "+config.DefaultPath()+")")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().StringVar(&a.installRoot, "root", "", "install root (overrides install_root)")

	root.AddCommand(
		newInstallCmd(a),
		newListCmd(a),
		newInfoCmd(a),
		newUninstallCmd(a),
		newCmdlineCmd(a),
	)
	return root
}

func (a *app) init() error {
	cfg, err := config.LoadConfig(a.cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if a.installRoot != "" {
		cfg.InstallRoot = a.installRoot
	}
	a.cfg = cfg

	level := log.InfoLevel
	if cfg.LogLevel != "" {
		if level, err = log.ParseLevel(cfg.LogLevel); err != nil {
			return fmt.Errorf("log_level: %w", err)
		}
	}
	if a.verbose {
		level = log.DebugLevel
	}
	logger := log.NewWithOptions(os.Stderr, log.Options{
		Level:           level,
		ReportTimestamp: a.verbose,
	})
	slog.SetDefault(slog.New(logger))
	return nil
}

func (a *app) installer() (*installer.Installer, error) {
	return installer.New(a.cfg, nil)
}
