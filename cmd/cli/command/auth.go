package command

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"vrrelay/cmd/cli/authentication"
	"vrrelay/cmd/cli/command/client"
	"vrrelay/internal/middleware/auth"
)

// loginCmd exchanges admin credentials for a token and keeps it in the keychain
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to the relay admin API",
	RunE: func(cmd *cobra.Command, args []string) error {
		username, _ := cmd.Flags().GetString("username")
		password, _ := cmd.Flags().GetString("password")

		httpClient := client.NewHTTPClient(apiURL)
		response, err := httpClient.Login(username, password)
		if err != nil {
			return fmt.Errorf("login process failed: %w", err)
		}

		creds := &authentication.Credentials{
			AccessToken: response.AccessToken,
			Subject:     username,
			ExpiresAt:   time.Now().Add(time.Duration(response.ExpiresIn) * time.Second),
		}
		if err := authentication.Save(apiURL, creds); err != nil {
			return fmt.Errorf("failed to save token: %w", err)
		}

		color.Green("✓ Logged in as %s (token valid for %s)", username, time.Duration(response.ExpiresIn)*time.Second)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the saved admin token",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := authentication.Forget(apiURL); err != nil {
			return err
		}
		fmt.Println("✓ Successfully logged out.")
		return nil
	},
}

// tokenCmd signs a token locally; it needs the relay's JWT_SECRET
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint an admin API token from JWT_SECRET",
	Long: `Sign a token with the same HS256 secret the relay uses (JWT_SECRET in the
environment). Useful for scripts and for dashboards connecting to /vrevent.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		subject, _ := cmd.Flags().GetString("subject")
		role, _ := cmd.Flags().GetString("role")
		ttl, _ := cmd.Flags().GetDuration("ttl")
		save, _ := cmd.Flags().GetBool("save")

		if role != auth.RoleAdmin && role != auth.RoleObserver {
			return fmt.Errorf("role must be %q or %q", auth.RoleAdmin, auth.RoleObserver)
		}
		secret := os.Getenv("JWT_SECRET")
		if secret == "" {
			return errors.New("JWT_SECRET is not set")
		}

		tok, err := auth.IssueToken(secret, subject, role, ttl)
		if err != nil {
			return err
		}
		if save {
			creds := &authentication.Credentials{
				AccessToken: tok,
				Subject:     subject,
				ExpiresAt:   time.Now().Add(ttl),
			}
			if err := authentication.Save(apiURL, creds); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}
		}
		fmt.Println(tok)
		return nil
	},
}

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password PASSWORD",
	Short: "Print a bcrypt hash for ADMIN_PASSWORD_HASH",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := auth.HashPassword(args[0])
		if err != nil {
			return err
		}
		fmt.Println(hash)
		return nil
	},
}

// authedClient returns an API client carrying the saved token.
func authedClient() (*client.HTTPClient, error) {
	creds, err := authentication.Load(apiURL)
	if err != nil {
		return nil, err
	}
	httpClient := client.NewHTTPClient(apiURL)
	httpClient.SetToken(creds.AccessToken)
	return httpClient, nil
}

func init() {
	loginCmd.Flags().StringP("username", "u", "admin", "admin username")
	loginCmd.Flags().StringP("password", "p", "", "admin password")
	loginCmd.MarkFlagRequired("password")

	tokenCmd.Flags().String("subject", "vrrelayCLI", "token subject")
	tokenCmd.Flags().String("role", auth.RoleAdmin, "token role: admin or observer")
	tokenCmd.Flags().Duration("ttl", time.Hour, "token lifetime")
	tokenCmd.Flags().Bool("save", false, "also store the token in the keychain")

	rootCmd.AddCommand(loginCmd, logoutCmd, tokenCmd, hashPasswordCmd)
}
