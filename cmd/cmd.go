package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/magnet-network/presale-engine/internal/config"
	"github.com/magnet-network/presale-engine/pkg/logger"
	"github.com/magnet-network/presale-engine/pkg/logger/slogx"
)

var cmd = &cobra.Command{
	Use:  "presale-engine",
	Long: `Off-chain engine for the token presale ledger`,
}

func init() {
	var configFile string

	// Add global flags
	flags := cmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "config file, E.g.  `./config.yaml`")
	flags.String("network", "mainnet", "network to connect to, E.g. `mainnet` or `testnet`")

	// Bind flags to configuration
	config.BindPFlag("network", flags.Lookup("network"))

	// Initialize configuration and logger on start command
	cobra.OnInitialize(func() {
		config := config.Parse(configFile)

		if err := logger.Init(config.Logger); err != nil {
			logger.Panic("Failed to initialize logger: %v", slogx.Error(err), slog.Any("config", config.Logger))
		}
	})
}

func Execute() {
	cmd.AddCommand(
		NewRunCommand(),
		NewVersionCommand(),
		NewMigrateCommand(),
	)

	if err := cmd.Execute(); err != nil {
		logger.Panic("Failed to execute root command")
	}
}
