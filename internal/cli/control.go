package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/1broseidon/floatkb/internal/command"
	"github.com/1broseidon/floatkb/internal/ipc"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <command> [arg]",
		Short: "Run an overlay command in the daemon",
		Long: `Run an overlay command in the running daemon and print the resulting state.

The command may be given as "name arg" or "name:arg". See 'floatkb commands' for names.`,
		Example: `  floatkb run toggle_passthrough
  floatkb run snap_left
  floatkb run set_fold unfolded`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, arg := command.Parse(args[0])
			if len(args) == 2 {
				arg = strings.TrimSpace(args[1])
			}
			if !command.Known(name) {
				return fmt.Errorf("unknown command %q (run 'floatkb commands' for the list)", name)
			}

			loggerFromContext(cmd.Context()).Debug("Sending command", "command", name, "arg", arg)
			st, err := ipc.NewClient().Run(name, arg)
			if err != nil {
				return err
			}
			printOverlay(cmd.OutOrStdout(), *st, stdoutIsTerminal())
			return nil
		},
	}
}

func newStatusCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon and overlay status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := ipc.NewClient().GetStatus()
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), status)
			}
			printStatus(cmd.OutOrStdout(), status, stdoutIsTerminal())
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print status as JSON")
	return cmd
}

func newReloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reload",
		Short: "Reload the daemon configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ipc.NewClient().Reload(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "config: reloaded")
			return nil
		},
	}
}

func newCommandsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "commands",
		Short: "List overlay command names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range command.Names() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

func stdoutIsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}
