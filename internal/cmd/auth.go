package cmd

import (
	"github.com/spf13/cobra"
	"github.com/zfogg/vaultfeed/pkg/config"
	"github.com/zfogg/vaultfeed/pkg/output"
	"github.com/zfogg/vaultfeed/pkg/prompter"
	"github.com/zfogg/vaultfeed/pkg/service"
)

var (
	loginUser     string
	loginUsername string
	loginToken    string
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authentication commands",
	Long:  "Store, inspect and forget the bearer token feeds load with",
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store an access token",
	RunE: func(cmd *cobra.Command, args []string) error {
		return authService().Login(service.LoginRequest{
			UserID:   loginUser,
			Username: loginUsername,
			Token:    loginToken,
		})
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored access token",
	RunE: func(cmd *cobra.Command, args []string) error {
		return authService().Logout()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the stored login",
	RunE: func(cmd *cobra.Command, args []string) error {
		return authService().Status()
	},
}

// authService needs no network; it only touches the credentials file
func authService() *service.AuthService {
	return service.NewAuthService(service.Env{
		Printer:         output.Stdout(),
		Prompter:        prompter.Terminal(),
		CredentialsPath: config.GetCredentialsPath(),
	})
}

func init() {
	loginCmd.Flags().StringVar(&loginUser, "user", "", "User id the token belongs to")
	loginCmd.Flags().StringVar(&loginUsername, "username", "", "Display handle (defaults to the user id)")
	loginCmd.Flags().StringVar(&loginToken, "token", "", "Access token (prompted for when omitted)")

	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(statusCmd)
}
