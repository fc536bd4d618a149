package cli

import (
	"encoding/json"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/faucetdb/touchline/internal/config"
	"github.com/faucetdb/touchline/internal/service"
)

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint and inspect access tokens",
		Long: `Mint tokens for service accounts and scripts, or verify a token against the
configured signing key, issuer and audience. Neither command touches the database.`,
	}

	cmd.AddCommand(newTokenMintCmd())
	cmd.AddCommand(newTokenVerifyCmd())

	return cmd
}

// tokenService builds an AuthService that can sign and verify but has no
// database behind it.
func tokenService() (*service.AuthService, error) {
	cfg, err := loadConfig(false)
	if err != nil {
		return nil, err
	}
	return authFromConfig(cfg), nil
}

func authFromConfig(cfg config.Config) *service.AuthService {
	return service.NewAuthService(nil, nil, service.AuthOptions{
		SigningKey: []byte(cfg.Auth.SigningKey),
		Issuer:     cfg.Auth.Issuer,
		Audience:   cfg.Auth.Audience,
		TTL:        cfg.Auth.TokenTTL,
	}, newLogger(cfg.Log, os.Stderr))
}

// ---------- token mint ----------

func newTokenMintCmd() *cobra.Command {
	var (
		userID int64
		name   string
		role   string
	)

	cmd := &cobra.Command{
		Use:     "mint",
		Short:   "Sign a token for a user id",
		Example: `  touchline token mint --user-id 1000000000 --name coach --role admin`,
		RunE: func(cmd *cobra.Command, args []string) error {
			auth, err := tokenService()
			if err != nil {
				return err
			}
			tok, err := auth.Mint(userID, name, role)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{
				"access_token": tok.Raw,
				"token_type":   "bearer",
				"expires_at":   tok.ExpiresAt.Format(time.RFC3339),
			})
		},
	}

	cmd.Flags().Int64Var(&userID, "user-id", 0, "Subject user id (required)")
	cmd.Flags().StringVar(&name, "name", "", "Name claim")
	cmd.Flags().StringVar(&role, "role", "user", "Role claim")
	cmd.MarkFlagRequired("user-id")

	return cmd
}

// ---------- token verify ----------

func newTokenVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <token>",
		Short: "Verify a token and print its claims",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			auth, err := tokenService()
			if err != nil {
				return err
			}
			claims, err := auth.Verify(args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{
				"sub":  claims.Subject,
				"name": claims.Name,
				"role": claims.Role,
				"iss":  claims.Issuer,
				"exp":  claims.ExpiresAt.Time.Format(time.RFC3339),
				"jti":  claims.ID,
			})
		},
	}
}
