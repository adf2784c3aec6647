package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the output tables without running a build",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		applyFlags(cmd, cfg)
		if err := cfg.Validate("migrate"); err != nil {
			return err
		}

		sink, err := initSink(ctx)
		if err != nil {
			return eris.Wrap(err, "open sink")
		}
		defer sink.Close() //nolint:errcheck

		if err := sink.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate sink")
		}
		zap.L().Info("migrate complete", zap.String("sink", cfg.Store.Driver))
		return nil
	},
}

func init() {
	addSinkFlags(migrateCmd)
	rootCmd.AddCommand(migrateCmd)
}
