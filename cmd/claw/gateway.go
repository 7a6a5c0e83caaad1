package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/simplestclaw/claw/internal/config"
	clierrors "github.com/simplestclaw/claw/internal/errors"
	"github.com/simplestclaw/claw/internal/gateway"
	"github.com/simplestclaw/claw/internal/output"
	"github.com/simplestclaw/claw/internal/runtime"
	"github.com/simplestclaw/claw/internal/watch"
)

func newGatewayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gateway",
		Short: "Manage the OpenClaw gateway process",
		Long: `Manage the OpenClaw gateway that Claw supervises on this machine.

The gateway runs as a child process on the bundled Node.js runtime. Claw
watches its output for the readiness banner and restarts it if it dies.`,
		Example: `  claw gateway start
  claw gateway start --port 19000 --no-ui
  claw gateway status`,
		Args: noArgs,
	}

	cmd.AddCommand(newGatewayStartCmd())
	cmd.AddCommand(newGatewayStopCmd())
	cmd.AddCommand(newGatewayStatusCmd())

	return cmd
}

func newGatewayStartCmd() *cobra.Command {
	var (
		port int
		noUI bool
	)

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start and supervise the gateway",
		Long: `Start the OpenClaw gateway and supervise it until interrupted.

The gateway is launched through the bundled Node.js runtime. If the runtime
is not installed yet it is downloaded first. A fresh auth token is generated
and passed to the gateway via its environment.

On a terminal this renders a live status screen; use --no-ui for plain
line-based output (e.g. under a process manager).

Press Ctrl+C to stop the gateway and exit.`,
		Example: `  claw gateway start
  claw gateway start --port 19000
  claw gateway start --no-ui`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if out.Terminal().IsTTY && !noUI && !out.JSON && !out.Quiet {
				return runGatewayWatch(ctx, out, port)
			}

			return runGatewayPlain(ctx, out, port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "Gateway port (default: config gateway.port)")
	cmd.Flags().BoolVar(&noUI, "no-ui", false, "Plain output instead of the interactive status screen")

	return cmd
}

// runGatewayWatch supervises the gateway behind a bubbletea status screen.
func runGatewayWatch(ctx context.Context, out *output.Writer, port int) error {
	opts, manager, err := gatewayOptions(ctx, out, port)
	if err != nil {
		return err
	}

	// The runtime snapshot is seeded into the model: Program.Send blocks
	// until the event loop is running, so it must not be called before Run.
	p := tea.NewProgram(watch.New().WithRuntime(manager.Status()))

	opts.OnOutput = func(line string) {
		p.Send(watch.LogMsg(line))
	}

	sup := gateway.New(opts, func(st gateway.Status) {
		p.Send(watch.GatewayMsg(st))
	})

	// Quit the UI when a shutdown signal arrives.
	go func() {
		<-ctx.Done()
		p.Quit()
	}()

	if err := sup.Start(ctx); err != nil {
		return err
	}

	_, runErr := p.Run()

	stopCtx, cancel := context.WithTimeout(context.Background(), 2*gateway.DefaultStopDeadline)
	defer cancel()

	if stopErr := sup.Stop(stopCtx); stopErr != nil && runErr == nil {
		runErr = stopErr
	}

	return runErr
}

// runGatewayPlain supervises the gateway with line-based output.
func runGatewayPlain(ctx context.Context, out *output.Writer, port int) error {
	opts, _, err := gatewayOptions(ctx, out, port)
	if err != nil {
		return err
	}

	opts.OnOutput = func(line string) {
		out.Muted("%s", line)
	}

	sup := gateway.New(opts, func(st gateway.Status) {
		switch st.State {
		case gateway.StateStarting:
			out.Info("Starting gateway on port %d", opts.Port)
		case gateway.StateRunning:
			out.Success("Gateway ready: %s", st.URL)
		case gateway.StateError:
			out.Failure("%s", st.Error)
		case gateway.StateStopped:
			out.Info("Gateway stopped")
		}
	})

	if err := sup.Start(ctx); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		out.Println()
		out.Info("Received shutdown signal...")
	case <-sup.Done():
		return nil
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), 2*gateway.DefaultStopDeadline)
	defer cancel()

	return sup.Stop(stopCtx)
}

func newGatewayStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop a running gateway",
		Long: `Stop the supervised gateway.

Note: the gateway is owned by the 'claw gateway start' (or 'claw serve')
process and is stopped with Ctrl+C there. This command only reports whether
anything is listening on the configured port.`,
		Example: `  claw gateway stop`,
		Args:    noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())
			port := config.Load().GatewayPort()

			if !gatewayListening(cmd.Context(), port) {
				out.Muted("No gateway is listening on 127.0.0.1:%d", port)
				return nil
			}

			out.Info("Gateway is running on 127.0.0.1:%d", port)
			out.Muted("Press Ctrl+C in the terminal running 'claw gateway start' to stop it.")

			return nil
		},
	}
}

// GatewayStatusInfo represents gateway status for JSON output.
type GatewayStatusInfo struct {
	Listening bool   `json:"listening"`
	Port      int    `json:"port"`
	URL       string `json:"url,omitempty"`
	Runtime   string `json:"runtime"`
}

func newGatewayStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show gateway status",
		Example: `  claw gateway status
  claw gateway status --json`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())
			port := config.Load().GatewayPort()

			info := GatewayStatusInfo{
				Listening: gatewayListening(cmd.Context(), port),
				Port:      port,
				Runtime:   "not installed",
			}

			if info.Listening {
				info.URL = fmt.Sprintf("ws://127.0.0.1:%d", port)
			}

			if manager, err := runtime.NewManager(); err == nil {
				if st := manager.Status(); st.Phase == runtime.PhaseInstalled {
					info.Runtime = "node " + st.Version
				}
			}

			if out.JSON {
				return out.PrintJSON(info)
			}

			if !info.Listening {
				out.Print("Runtime: %s\n", info.Runtime)
				return clierrors.GatewayNotRunning()
			}

			out.Success("Gateway listening on 127.0.0.1:%d", port)
			out.Print("URL:     %s\n", info.URL)
			out.Print("Runtime: %s\n", info.Runtime)

			return nil
		},
	}
}

// gatewayListening probes the loopback gateway port.
func gatewayListening(ctx context.Context, port int) bool {
	dialer := net.Dialer{Timeout: time.Second}

	conn, err := dialer.DialContext(ctx, "tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return false
	}

	_ = conn.Close()

	return true
}
