package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newSaveCmd() *cobra.Command {
	saveCmd := &cobra.Command{
		Use:   "save",
		Short: "Manage the saved game",
	}
	addSaveFlags(saveCmd.PersistentFlags())

	saveCmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete the saved game",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			defer logger.Sync()

			gateway, closeSave, err := openGateway(cfg, logger)
			if err != nil {
				return err
			}
			defer closeSave()

			if !gateway.Clear() {
				return fmt.Errorf("clear failed, see log")
			}
			logger.Info("save cleared", zap.String("key", cfg.SaveKey))
			return nil
		},
	})

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Write a zstd-compressed backup of the saved game",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			defer logger.Sync()

			out, _ := cmd.Flags().GetString("out")
			gateway, closeSave, err := openGateway(cfg, logger)
			if err != nil {
				return err
			}
			defer closeSave()

			if err := gateway.Export(out); err != nil {
				return err
			}
			logger.Info("save exported", zap.String("out", out), zap.String("schema", gateway.Version()))
			return nil
		},
	}
	exportCmd.Flags().String("out", "./data/mercado-save.json.zst", "backup path")
	saveCmd.AddCommand(exportCmd)

	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Replace the saved game with a backup",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			defer logger.Sync()

			in, _ := cmd.Flags().GetString("in")
			if in == "" {
				return fmt.Errorf("in path is required")
			}
			gateway, closeSave, err := openGateway(cfg, logger)
			if err != nil {
				return err
			}
			defer closeSave()

			state, err := gateway.Import(in)
			if err != nil {
				return err
			}
			logger.Info("save imported",
				zap.String("player", state.Player.ID),
				zap.String("schema", gateway.Version()),
				zap.Int("level", state.Player.Level),
				zap.Int("pools", len(state.Pools)),
			)
			return nil
		},
	}
	importCmd.Flags().String("in", "", "backup path")
	saveCmd.AddCommand(importCmd)

	return saveCmd
}
