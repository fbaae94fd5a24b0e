package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/modgate-dev/modgate/internal/config"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep the host running and load modules as they appear",
	Long: `Watch starts the host, then keeps loading module files dropped into
the configured module directory until interrupted.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		if cfg.Host.ModuleDir == "" {
			return fmt.Errorf("watch needs host.module_dir in the config")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		h, err := openHost(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = h.Close(context.Background()) }()

		err = h.WatchModules(ctx, cfg.Host.ModuleDir)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
