package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spachava753/mcdl/internal/config"
	"github.com/spachava753/mcdl/internal/instance"
)

func newCmdlineCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "cmdline <name>",
		Short: "Print the java command that starts an instance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inst, err := instance.Load(a.cfg.InstallRoot, args[0])
			if err != nil {
				return err
			}
			dir := filepath.Join(a.cfg.InstallRoot, inst.InstanceID)
			s, err := config.LoadSettings(filepath.Join(dir, config.SettingsFile))
			if err != nil {
				return err
			}

			argv := append([]string{"java"}, config.JVMArgs(s)...)
			argv = append(argv, s.Server.Args...)
			for i, arg := range argv {
				argv[i] = shellQuote(arg)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cd %s && %s\n", shellQuote(dir), strings.Join(argv, " "))
			return nil
		},
	}
}

// shellQuote single-quotes s for a POSIX shell unless it is made only
// of characters that need no quoting.
func shellQuote(s string) string {
	if s != "" && strings.IndexFunc(s, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || strings.ContainsRune("-_./:=+,@%", r))
	}) < 0 {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
