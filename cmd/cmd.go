package cmd

import (
	"log/slog"

	"github.com/ordforge/mint-engine/internal/config"
	"github.com/ordforge/mint-engine/pkg/logger"
	"github.com/ordforge/mint-engine/pkg/logger/slogx"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:  "mint-engine",
	Long: "Ordinals mint engine: commit/reveal inscription flows, generation studio and promotion workers",
}

func init() {
	// Initialize configuration and logger on start command
	cobra.OnInitialize(func() {
		conf := config.LoadConfig()
		if err := logger.Init(conf.Logger); err != nil {
			logger.Panic("Failed to initialize logger", slogx.Error(err), slog.Any("config", conf.Logger))
		}
	})
}

func Execute() {
	rootCmd.AddCommand(
		NewRunCommand(),
		NewVersionCommand(),
		NewMigrateCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		logger.Panic("Failed to execute root command")
	}
}
