package commands

import (
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/nexus-wa-bridge/internal/config"
	"github.com/nexus-wa-bridge/internal/logging"
)

var (
	envFile string
	cfg     *config.Config
	logger  *slog.Logger
)

func Execute() error {
	root := &cobra.Command{
		Use:          "bridge",
		Short:        "WhatsApp session bridge and number verification API",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			envErr := godotenv.Load(envFile)
			cfg = config.Load()
			logger = logging.New(cfg.LogLevel, cfg.IsProduction())
			slog.SetDefault(logger)
			if envErr != nil {
				logger.Debug("no env file found, reading from environment", "path", envFile)
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	root.AddCommand(serveCmd(), wipeCmd(), tokenCmd())
	return root.Execute()
}
