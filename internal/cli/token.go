package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/user/moviecatalog/internal/middleware"
)

var (
	tokenSubject string
	tokenRole    string
	tokenTTL     time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a bearer token for the write routes",
	Long: `Mint an HS256 token signed with APP_SECRET. The server only checks
tokens on POST/PUT/DELETE when APP_SECRET is set.

Examples:
  moviectl token --subject ops
  moviectl token --subject importer --ttl 24h`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cfg.AuthEnabled() {
			return errors.New("APP_SECRET is not set; the server accepts unauthenticated writes")
		}

		ttl := tokenTTL
		if ttl <= 0 {
			ttl = cfg.JWTExpiry
		}
		token, err := middleware.GenerateToken(tokenSubject, tokenRole, cfg.AppSecret, ttl)
		if err != nil {
			return fmt.Errorf("failed to sign token: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "operator", "token subject")
	tokenCmd.Flags().StringVar(&tokenRole, "role", "admin", "role claim")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "token lifetime (default JWT_EXPIRY_HOURS)")
	rootCmd.AddCommand(tokenCmd)
}
