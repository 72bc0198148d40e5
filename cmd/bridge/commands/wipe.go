package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nexus-wa-bridge/internal/infrastructure/whatsapp"
)

func wipeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "wipe-credentials",
		Short: "Delete the stored session so the next start asks for a new pairing",
		Long: "Deletes the stored credential and the local device database. " +
			"Run it only while the bridge is stopped.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			creds, closeCreds, err := openCredentialStore(ctx, cfg)
			if err != nil {
				return fmt.Errorf("credential store: %w", err)
			}
			defer closeCreds()

			if err := creds.Wipe(ctx); err != nil {
				return err
			}
			if err := whatsapp.RemoveDeviceDB(cfg.DeviceDBPath); err != nil {
				return err
			}
			logger.Info("credentials wiped", "backend", cfg.CredentialBackend, "session", cfg.SessionIdentity)
			return nil
		},
	}
}
