package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/simplestclaw/claw/internal/auth"
	clierrors "github.com/simplestclaw/claw/internal/errors"
	"github.com/simplestclaw/claw/internal/output"
	"github.com/simplestclaw/claw/internal/prompt"
	"github.com/simplestclaw/claw/internal/runtime"
)

func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Setup Claw for first use",
		Long: `Initialize Claw with a guided first-run setup.

The setup will:
  1. Prompt for your Anthropic API key and store it securely
  2. Download the bundled Node.js runtime if needed
  3. Show next steps

If credentials already exist, use --force to overwrite them.`,
		Example: `  claw init`,
		Args:    noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())
			prompter := prompt.New(out)

			out.Println("Welcome to Claw!")
			out.Println()

			// Step 1: credentials
			if source, key := auth.GetCredentials(); key != "" && !force {
				out.Success("Already authenticated (%s via %s)", auth.Redact(key), source)
				out.Muted("  Use --force to replace the stored key")
			} else {
				if !prompter.CanPrompt() {
					return clierrors.CannotPrompt(auth.EnvVarName)
				}

				apiKey, err := prompt.APIKey(out)
				if err != nil {
					return clierrors.Wrap(clierrors.ExitGeneral, "Failed to read API key", err)
				}

				apiKey = strings.TrimSpace(apiKey)
				if apiKey == "" {
					return clierrors.APIKeyEmpty()
				}

				if err := auth.StoreAPIKey(apiKey); err != nil {
					return clierrors.ConfigFailed("store credentials", err)
				}

				out.Success("API key stored (%s)", auth.Redact(apiKey))
			}

			out.Println()

			// Step 2: runtime
			manager, err := runtime.NewManager()
			if err != nil {
				return clierrors.Wrap(clierrors.ExitRuntime, "Failed to resolve runtime directory", err)
			}

			if manager.IsInstalled() {
				out.Success("Node.js %s already installed", manager.Status().Version)
			} else {
				install := true

				if prompter.CanPrompt() {
					install, err = prompter.Confirm("Download Node.js "+runtime.NodeVersion+" now?", true)
					if err != nil {
						return clierrors.Wrap(clierrors.ExitGeneral, "Failed to read answer", err)
					}
				}

				if install {
					if err := ensureRuntime(cmd.Context(), out, manager); err != nil {
						return err
					}
				} else {
					out.Muted("Skipped. Run 'claw runtime install' later.")
				}
			}

			// Step 3: next steps
			out.Println()
			out.Println("You're all set! Next steps:")
			out.Print("  claw gateway start     Launch and supervise the gateway\n")
			out.Print("  claw dashboard         Open the local chat dashboard\n")
			out.Print("  claw doctor            Verify everything is healthy\n")

			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite existing credentials without prompting")

	return cmd
}
