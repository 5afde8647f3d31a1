package cli

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/information-sharing-networks/docsign/internal/identity"
)

// tokenCmd mints bearer tokens for local testing. Production tokens come from the account service.
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a bearer token (development and test only)",
	Long: `Sign an HS256 bearer token with TOKEN_SECRET for the given user.

Example:
  docsign token --sub user-1 --email alice@example.com --ttl 1h`,
	Args: cobra.NoArgs,
	RunE: runToken,
}

var (
	tokenSubject string
	tokenEmail   string
	tokenTTL     time.Duration
)

func init() {
	tokenCmd.Flags().StringVar(&tokenSubject, "sub", "", "user id (token subject)")
	tokenCmd.Flags().StringVar(&tokenEmail, "email", "", "user email address")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", time.Hour, "token lifetime")
	_ = tokenCmd.MarkFlagRequired("sub")
	_ = tokenCmd.MarkFlagRequired("email")
}

func runToken(cmd *cobra.Command, args []string) error {
	if cfg.Environment == "prod" {
		return fmt.Errorf("tokens cannot be minted when ENVIRONMENT=prod")
	}
	if tokenTTL <= 0 {
		return fmt.Errorf("--ttl must be positive")
	}

	id := identity.Identity{ID: tokenSubject, Email: identity.NormalizeEmail(tokenEmail)}
	token, err := identity.IssueToken([]byte(cfg.TokenSecret), cfg.TokenIssuer, cfg.TokenAudience, id, tokenTTL)
	if err != nil {
		return err
	}

	appLogger.Debug("token issued", slog.String("sub", id.ID), slog.Duration("ttl", tokenTTL))
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
