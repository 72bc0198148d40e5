package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	jwtinfra "github.com/nexus-wa-bridge/internal/infrastructure/jwt"
)

func tokenCmd() *cobra.Command {
	var subject, scope string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign an API token for a calling service",
		RunE: func(cmd *cobra.Command, args []string) error {
			if subject == "" {
				return fmt.Errorf("subject required (--subject)")
			}
			provider, err := jwtinfra.NewProvider(cfg)
			if err != nil {
				return err
			}
			token, err := provider.Sign(subject, scope)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "name of the calling service")
	cmd.Flags().StringVar(&scope, "scope", "status verify", "space-separated scopes")
	return cmd
}
