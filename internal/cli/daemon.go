package cli

import (
	"fmt"
	"os"

	"github.com/1broseidon/floatkb/internal/config"
	"github.com/1broseidon/floatkb/internal/daemon"
	"github.com/spf13/cobra"
)

func newDaemonCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Start the floatkb daemon (foreground)",
		Long:  `Show the overlay keyboard on the X11 display and serve hotkeys and IPC until interrupted. SIGHUP reloads the config file.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			load := configLoader(flags.configPath)
			cfg, err := load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			logger := newLogger(os.Stderr, configLevel(cfg.LogLevel, flags.verbose))
			logger.Debug("Configuration loaded", "store", cfg.Store.Backend, "layout", cfg.Layout, "fold", cfg.FoldState)

			ctx := withLogger(cmd.Context(), logger)
			d, err := daemon.New(ctx, cfg, load, logger)
			if err != nil {
				return err
			}
			return d.Run(ctx)
		},
	}
}

// configLoader returns a loader for path, or for the default location when
// path is empty.
func configLoader(path string) func() (*config.Config, error) {
	if path == "" {
		return config.Load
	}
	return func() (*config.Config, error) {
		res, err := config.LoadFromPath(path)
		if err != nil {
			return nil, err
		}
		return res.Config, nil
	}
}
