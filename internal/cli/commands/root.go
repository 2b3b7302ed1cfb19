// Package commands holds the contentctl cobra command tree.
package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/contentanonymity/backend/internal/cli/client"
	"github.com/contentanonymity/backend/internal/cli/config"
	"github.com/contentanonymity/backend/internal/cli/credentials"
	"github.com/contentanonymity/backend/internal/cli/logger"
	"github.com/contentanonymity/backend/internal/cli/output"
	"github.com/spf13/cobra"
)

// Version is stamped at build time with -ldflags
var Version = "dev"

var (
	verbose    bool
	configPath string
	outputFmt  string
	asUser     string
	baseURL    string
)

var errNotLoggedIn = errors.New("not logged in, run `contentctl login` first")

var rootCmd = &cobra.Command{
	Use:   "contentctl",
	Short: "ContentAnonymity admin CLI",
	Long: `contentctl manages a ContentAnonymity backend from the terminal:
sign in, browse the catalog, import content files, rebuild the search
index and manage member roles.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Init(configPath); err != nil {
			return fmt.Errorf("initializing config: %w", err)
		}
		logger.Init(verbose)

		if !output.ValidFormat(outputFmt) {
			return fmt.Errorf("unknown output format %q (text, table or json)", outputFmt)
		}
		config.Set("output.format", outputFmt)
		if baseURL != "" {
			config.Set("api.base_url", baseURL)
		}
		client.Reset()

		creds, err := credentials.Load()
		if err != nil {
			return fmt.Errorf("loading credentials: %w", err)
		}
		if creds != nil && creds.IsValid() {
			client.SetAuthToken(creds.Token)
		}

		if asUser != "" {
			if creds == nil || !creds.IsValid() {
				return errNotLoggedIn
			}
			if !creds.IsAdmin() {
				return errors.New("only admins can use --as-user")
			}
			client.SetActAsUser(asUser)
		}
		return nil
	},
}

// Execute runs the command tree and exits non-zero on failure
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		output.PrintError("%v", err)
		os.Exit(1)
	}
}

// requireLogin fails unless a usable token was loaded
func requireLogin() (*credentials.Credentials, error) {
	creds, err := credentials.Load()
	if err != nil {
		return nil, err
	}
	if creds == nil || !creds.IsValid() {
		return nil, errNotLoggedIn
	}
	return creds, nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the contentctl version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(output.Out, "contentctl "+Version)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to the log file")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default: ~/.config/contentanonymity/config.toml)")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "text", "Output format: text, table, json")
	rootCmd.PersistentFlags().StringVar(&asUser, "as-user", "", "Run the command as another member (admin only)")
	rootCmd.PersistentFlags().StringVar(&baseURL, "api-url", "", "Override api.base_url for this run")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(articlesCmd)
	rootCmd.AddCommand(leaderboardCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(reindexCmd)
	rootCmd.AddCommand(promoteCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(versionCmd)
}
