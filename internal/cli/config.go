package cli

import (
	"fmt"
	"sort"

	"github.com/1broseidon/floatkb/internal/command"
	"github.com/1broseidon/floatkb/internal/config"
	"github.com/1broseidon/floatkb/internal/keygrid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and validate configuration",
	}
	cmd.AddCommand(newConfigValidateCmd(flags))
	cmd.AddCommand(newConfigPrintCmd(flags))
	cmd.AddCommand(newConfigPathCmd(flags))
	return cmd
}

func loadWithSources(path string) (*config.LoadResult, error) {
	if path == "" {
		return config.LoadWithSources()
	}
	return config.LoadFromPath(path)
}

func newConfigValidateCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the config file, its layout and hotkey commands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := loadWithSources(flags.configPath)
			if err != nil {
				return err
			}
			if res.Config.Layout != "" {
				if _, err := keygrid.LoadLayout(res.Config.Layout); err != nil {
					return fmt.Errorf("layout: %w", err)
				}
			}
			if bad := unknownHotkeyCommands(res.Config.Hotkeys); len(bad) > 0 {
				return fmt.Errorf("hotkeys: unknown commands: %v", bad)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "config: ok")
			return nil
		},
	}
}

func newConfigPrintCmd(flags *globalFlags) *cobra.Command {
	var defaults bool
	cmd := &cobra.Command{
		Use:   "print",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.DefaultConfig()
			if !defaults {
				res, err := loadWithSources(flags.configPath)
				if err != nil {
					return err
				}
				cfg = res.Config
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
	cmd.Flags().BoolVar(&defaults, "defaults", false, "print built-in defaults (no files)")
	return cmd
}

func newConfigPathCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config and state file paths",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := flags.configPath
			if path == "" {
				var err error
				if path, err = config.DefaultConfigPath(); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "config: %s\n", path)

			res, err := loadWithSources(flags.configPath)
			if err != nil {
				return err
			}
			if res.Config.Store.Backend == "redis" {
				fmt.Fprintf(cmd.OutOrStdout(), "state:  redis://%s/%d\n", res.Config.Store.Redis.Addr, res.Config.Store.Redis.DB)
				return nil
			}
			state, err := res.Config.StatePath()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "state:  %s\n", state)
			return nil
		},
	}
}

// unknownHotkeyCommands returns the bound commands the receiver does not know,
// sorted.
func unknownHotkeyCommands(hotkeys map[string]string) []string {
	var bad []string
	for _, cmd := range hotkeys {
		name, _ := command.Parse(cmd)
		if !command.Known(name) {
			bad = append(bad, cmd)
		}
	}
	sort.Strings(bad)
	return bad
}
