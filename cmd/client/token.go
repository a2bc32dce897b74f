package main

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/gurkanbulca/teamportal/internal/config"
	"github.com/gurkanbulca/teamportal/pkg/auth"
)

func newTokenCmd() *cobra.Command {
	var userID, name, email, role string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign an access token with the server's JWT settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()
			cfg, err := config.Load()
			if err != nil {
				return writeErr(cmd, err)
			}
			tm, err := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.TokenDuration)
			if err != nil {
				return writeErr(cmd, err)
			}
			token, _, err := tm.GenerateToken(userID, name, email, role)
			if err != nil {
				return writeErr(cmd, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "User id (required)")
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&email, "email", "", "E-mail address")
	cmd.Flags().StringVar(&role, "role", "user", "Role claim")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
