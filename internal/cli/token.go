package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"quizbuzz-service/internal/auth"
	"quizbuzz-service/internal/config"
)

// NewIssueTokenCmd signs a join token for a login session and a room.
func NewIssueTokenCmd(configPath *string) *cobra.Command {
	var sessionID, roomID string
	cmd := &cobra.Command{
		Use:   "issue-token",
		Short: "Sign a join token for a session and room",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := config.LoadOptional(*configPath)
			if err != nil {
				return err
			}
			tokens, err := tokensFor(cfg)
			if err != nil {
				return err
			}
			token, err := tokens.Issue(sessionID, roomID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "login session id")
	cmd.Flags().StringVar(&roomID, "room", "", "room id")
	_ = cmd.MarkFlagRequired("session")
	_ = cmd.MarkFlagRequired("room")
	return cmd
}

func tokensFor(cfg config.Config) (*auth.Tokens, error) {
	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("auth.jwtSecret (or JWT_SECRET) is required")
	}
	return auth.NewTokens(cfg.Auth.JWTSecret, tokenTTL(cfg)), nil
}

func tokenTTL(cfg config.Config) time.Duration {
	return config.TTLDuration(cfg.Auth.TokenTTL, auth.DefaultTokenTTL)
}
