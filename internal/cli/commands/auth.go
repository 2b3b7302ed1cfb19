package commands

import (
	"strings"

	"github.com/contentanonymity/backend/internal/cli/api"
	"github.com/contentanonymity/backend/internal/cli/client"
	"github.com/contentanonymity/backend/internal/cli/credentials"
	"github.com/contentanonymity/backend/internal/cli/logger"
	"github.com/contentanonymity/backend/internal/cli/output"
	"github.com/contentanonymity/backend/internal/cli/prompter"
	"github.com/spf13/cobra"
)

var (
	loginEmail string
	loginTOTP  string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and save the token",
	Long:  "Sign in with email and password. Accounts with two-factor enabled are asked for a code.",
	RunE: func(cmd *cobra.Command, args []string) error {
		email := strings.TrimSpace(loginEmail)
		var err error
		if email == "" {
			if email, err = prompter.PromptString("Email: "); err != nil {
				return err
			}
		}
		password, err := prompter.PromptPassword("Password: ")
		if err != nil {
			return err
		}

		req := api.LoginRequest{Email: email, Password: password, TOTPCode: loginTOTP}
		resp, err := api.Login(req)
		if api.NeedsTOTP(err) && req.TOTPCode == "" {
			if req.TOTPCode, err = prompter.PromptString("Authenticator code: "); err != nil {
				return err
			}
			resp, err = api.Login(req)
		}
		if err != nil {
			return err
		}

		if err := credentials.Save(&credentials.Credentials{
			Token:     resp.Token,
			ExpiresAt: resp.ExpiresAt,
			UserID:    resp.User.ID,
			Username:  resp.User.Username,
			Email:     resp.User.Email,
			Role:      resp.User.Role,
		}); err != nil {
			return err
		}
		client.SetAuthToken(resp.Token)
		logger.Info("Logged in", "username", resp.User.Username)
		output.PrintSuccess("Logged in as %s (%s)", resp.User.Username, resp.User.Role)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the saved token",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := credentials.Delete(); err != nil {
			return err
		}
		client.ClearAuthToken()
		output.PrintSuccess("Logged out")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in account",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := requireLogin(); err != nil {
			return err
		}
		user, err := api.Me()
		if err != nil {
			return err
		}
		return output.PrintRecord(map[string]interface{}{
			"username": user.Username,
			"email":    user.Email,
			"role":     user.Role,
			"points":   user.Points,
			"level":    user.Level,
		})
	},
}

func init() {
	loginCmd.Flags().StringVarP(&loginEmail, "email", "e", "", "Account email (prompted when empty)")
	loginCmd.Flags().StringVar(&loginTOTP, "totp", "", "Authenticator code for two-factor accounts")
}
