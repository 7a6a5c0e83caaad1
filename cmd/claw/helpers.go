package main

import (
	"context"
	"time"

	"github.com/simplestclaw/claw/internal/config"
	clierrors "github.com/simplestclaw/claw/internal/errors"
	"github.com/simplestclaw/claw/internal/gateway"
	"github.com/simplestclaw/claw/internal/output"
	"github.com/simplestclaw/claw/internal/runtime"
)

// gatewayArgs is how the gateway is launched on the bundled runtime: npx
// resolves and runs the published OpenClaw package.
var gatewayArgs = []string{"-y", "openclaw@latest", "gateway"}

// ensureRuntime makes sure the bundled Node.js runtime is installed,
// downloading it with progress output when it is missing.
func ensureRuntime(ctx context.Context, out *output.Writer, manager *runtime.Manager) error {
	if manager.IsInstalled() {
		return nil
	}

	spin := out.Spinner("Downloading Node.js " + runtime.NodeVersion)
	spin.Start()

	if err := manager.Install(ctx); err != nil {
		spin.StopWithFailure("Runtime download failed")
		return err
	}

	spin.StopWithSuccess("Node.js " + runtime.NodeVersion + " installed")

	return nil
}

// gatewayOptions consolidates the repeated pattern of resolving the runtime,
// reading config, and assembling spawn options for the gateway child.
func gatewayOptions(ctx context.Context, out *output.Writer, port int) (gateway.Options, *runtime.Manager, error) {
	manager, err := runtime.NewManager()
	if err != nil {
		return gateway.Options{}, nil, clierrors.Wrap(clierrors.ExitRuntime, "Failed to resolve runtime directory", err)
	}

	if err := ensureRuntime(ctx, out, manager); err != nil {
		return gateway.Options{}, nil, err
	}

	cfg := config.Load()

	if port == 0 {
		port = cfg.GatewayPort()
	}

	opts := gateway.Options{
		NodePath:     manager.NpxPath(),
		Args:         gatewayArgs,
		Port:         port,
		RestartDelay: time.Duration(cfg.RestartDelaySeconds()) * time.Second,
	}

	return opts, manager, nil
}
