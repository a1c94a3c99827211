package cli

import (
	"context"
	"fmt"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  string
	date    string
)

// SetVersion sets the version information displayed by --version.
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// Execute runs the floatkb CLI.
func Execute(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}

// globalFlags are shared by every command.
type globalFlags struct {
	verbose    bool
	configPath string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:          "floatkb",
		Short:        "Floating overlay keyboard for X11",
		Long:         `floatkb runs an on-screen keyboard as a movable, resizable overlay. Gaps between keys let touches fall through to the window below, and passthrough mode hides the keyboard from input behind a small toggle.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := charmlog.InfoLevel
			if flags.verbose {
				level = charmlog.DebugLevel
			}
			ctx := withLogger(cmd.Context(), newLogger(os.Stderr, level))
			cmd.SetContext(ctx)
		},
	}

	root.SetVersionTemplate(fmt.Sprintf("floatkb %s\ncommit: %s\nbuilt: %s\n", version, commit, date))
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file path (default: ~/.config/floatkb/config.yaml)")

	root.AddCommand(newDaemonCmd(flags))
	root.AddCommand(newRunCmd())
	root.AddCommand(newStatusCmd())
	root.AddCommand(newReloadCmd())
	root.AddCommand(newCommandsCmd())
	root.AddCommand(newConfigCmd(flags))
	root.AddCommand(newMCPCmd())

	return root
}
