// Package cli 实现 moviectl 运维命令
package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/user/moviecatalog/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "moviectl",
	Short: "Operator tool for the movie catalog service",
	Long: `moviectl loads catalog data and mints API tokens using the same
configuration (.env / environment) as the server.

Example usage:
  moviectl seed                      # Load the built-in sample catalog
  moviectl seed -f movies.yaml       # Load a custom catalog file
  moviectl token --subject ops       # Mint a bearer token for write routes`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()

		cfg = config.Load()
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		return nil
	},
}

// Execute 运行根命令
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
