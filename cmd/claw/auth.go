package main

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/simplestclaw/claw/internal/auth"
	clierrors "github.com/simplestclaw/claw/internal/errors"
	"github.com/simplestclaw/claw/internal/output"
	"github.com/simplestclaw/claw/internal/prompt"
)

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the Anthropic API key",
		Long:  `Store, inspect, and clear the Anthropic API key the gateway uses.`,
	}

	cmd.AddCommand(newAuthLoginCmd())
	cmd.AddCommand(newAuthStatusCmd())
	cmd.AddCommand(newAuthLogoutCmd())

	return cmd
}

func newAuthLoginCmd() *cobra.Command {
	var apiKeyFlag string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store your Anthropic API key",
		Long: `Store the Anthropic API key used by the gateway.

Your API key is stored in your system's keyring (macOS Keychain, Windows
Credential Manager, or Linux Secret Service), falling back to a mode-0600
file in the Claw config directory when no keyring is available.

You can also set the ` + auth.EnvVarName + ` environment variable, which
takes precedence over stored credentials.`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())
			prompter := prompt.New(out)

			if key := os.Getenv(auth.EnvVarName); key != "" {
				out.Info("%s environment variable is set", auth.EnvVarName)
				out.Muted("Environment variable takes precedence over stored credentials")
				out.Println()
			}

			var apiKey string
			if apiKeyFlag != "" {
				apiKey = apiKeyFlag
			} else {
				if !prompter.CanPrompt() {
					return clierrors.CannotPrompt(auth.EnvVarName)
				}

				var err error

				apiKey, err = prompt.APIKey(out)
				if err != nil {
					return clierrors.Wrap(clierrors.ExitGeneral, "Failed to read API key", err)
				}
			}

			apiKey = strings.TrimSpace(apiKey)
			if apiKey == "" {
				return clierrors.APIKeyEmpty()
			}

			if err := auth.StoreAPIKey(apiKey); err != nil {
				return clierrors.ConfigFailed("store credentials", err)
			}

			out.Success("API key stored (%s)", auth.Redact(apiKey))

			return nil
		},
	}

	cmd.Flags().StringVar(&apiKeyFlag, "api-key", "", "API key for non-interactive login (prefer "+auth.EnvVarName+" env var to avoid shell history exposure)")

	return cmd
}

// AuthStatus represents authentication status for JSON output.
type AuthStatus struct {
	Authenticated bool   `json:"authenticated"`
	Source        string `json:"source,omitempty"`
	Credential    string `json:"credential,omitempty"`
}

func newAuthStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show authentication status",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())

			source, apiKey := auth.GetCredentials()

			if out.JSON {
				status := AuthStatus{
					Authenticated: apiKey != "",
					Source:        string(source),
				}
				if apiKey != "" {
					status.Credential = auth.Redact(apiKey)
				}

				return out.PrintJSON(status)
			}

			if apiKey == "" {
				return clierrors.NotAuthenticated()
			}

			out.Success("Authenticated")
			out.Print("Source:     %s\n", source)
			out.Print("Credential: %s\n", auth.Redact(apiKey))

			return nil
		},
	}
}

func newAuthLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear stored credentials",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())

			if err := auth.DeleteAPIKey(); err != nil {
				// If key doesn't exist, that's fine
				if strings.Contains(err.Error(), "not found") {
					out.Muted("No stored credentials found")
					return nil
				}

				return clierrors.ConfigFailed("clear credentials", err)
			}

			out.Success("Logged out successfully")

			if os.Getenv(auth.EnvVarName) != "" {
				out.Println()
				out.Warning("%s environment variable is still set", auth.EnvVarName)
			}

			return nil
		},
	}
}
