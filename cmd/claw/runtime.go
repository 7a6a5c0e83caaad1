package main

import (
	"fmt"

	"github.com/spf13/cobra"

	clierrors "github.com/simplestclaw/claw/internal/errors"
	"github.com/simplestclaw/claw/internal/output"
	"github.com/simplestclaw/claw/internal/runtime"
)

func newRuntimeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runtime",
		Short: "Manage the bundled Node.js runtime",
		Long: `Manage the Node.js runtime that Claw downloads to run the gateway.

The runtime lives in Claw's state directory and is independent of any
system-wide Node.js installation.`,
		Example: `  claw runtime install
  claw runtime status`,
		Args: noArgs,
	}

	cmd.AddCommand(newRuntimeInstallCmd())
	cmd.AddCommand(newRuntimeStatusCmd())

	return cmd
}

func newRuntimeInstallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "install",
		Short: "Download and install the Node.js runtime",
		Long: `Download Node.js ` + runtime.NodeVersion + ` for this platform and install it
into Claw's state directory. Does nothing if it is already installed.`,
		Example: `  claw runtime install`,
		Args:    noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())

			spin := out.Spinner("Downloading Node.js " + runtime.NodeVersion)

			manager, err := runtime.NewManager(
				runtime.WithStatusFunc(func(st runtime.Status) {
					if st.Phase == runtime.PhaseDownloading {
						spin.UpdateMessage(fmt.Sprintf("Downloading Node.js %s (%.0f%%)", runtime.NodeVersion, st.Progress))
					}
				}),
			)
			if err != nil {
				return clierrors.Wrap(clierrors.ExitRuntime, "Failed to resolve runtime directory", err)
			}

			if manager.IsInstalled() {
				out.Success("Node.js %s already installed", manager.Status().Version)
				out.Muted("  %s", manager.NodePath())

				return nil
			}

			spin.Start()

			if err := manager.Install(cmd.Context()); err != nil {
				spin.StopWithFailure("Runtime download failed")
				return err
			}

			spin.StopWithSuccess("Node.js " + runtime.NodeVersion + " installed")
			out.Muted("  %s", manager.NodePath())

			return nil
		},
	}
}

// RuntimeStatusInfo represents runtime status for JSON output.
type RuntimeStatusInfo struct {
	Installed bool   `json:"installed"`
	Version   string `json:"version,omitempty"`
	NodePath  string `json:"node_path,omitempty"`
	NpxPath   string `json:"npx_path,omitempty"`
}

func newRuntimeStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show runtime installation status",
		Example: `  claw runtime status
  claw runtime status --json`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())

			manager, err := runtime.NewManager()
			if err != nil {
				return clierrors.Wrap(clierrors.ExitRuntime, "Failed to resolve runtime directory", err)
			}

			st := manager.Status()

			info := RuntimeStatusInfo{
				Installed: st.Phase == runtime.PhaseInstalled,
				Version:   st.Version,
				NodePath:  st.NodePath,
				NpxPath:   st.NpxPath,
			}

			if out.JSON {
				return out.PrintJSON(info)
			}

			if !info.Installed {
				return clierrors.RuntimeNotInstalled()
			}

			out.Success("Node.js %s", info.Version)
			out.Print("node: %s\n", info.NodePath)
			out.Print("npx:  %s\n", info.NpxPath)

			return nil
		},
	}
}
