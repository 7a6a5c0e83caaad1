package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/simplestclaw/claw/internal/config"
	"github.com/simplestclaw/claw/internal/dashboard"
	clierrors "github.com/simplestclaw/claw/internal/errors"
	"github.com/simplestclaw/claw/internal/gateway"
	"github.com/simplestclaw/claw/internal/observability"
	"github.com/simplestclaw/claw/internal/output"
)

func newDashboardCmd() *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Run the gateway with the browser dashboard",
		Long: `Run the gateway under supervision and serve the local chat dashboard.

The dashboard is a small embedded web UI: it shows gateway and runtime
status and bridges a browser WebSocket to the gateway, injecting the auth
token so the browser never sees it.

Press Ctrl+C to stop.`,
		Example: `  claw dashboard
  claw dashboard --listen 127.0.0.1:19791`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())
			logger := observability.FromContext(cmd.Context()).With(
				slog.String("component", "dashboard"),
			)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			opts, manager, err := gatewayOptions(ctx, out, 0)
			if err != nil {
				return err
			}

			sup := gateway.New(opts, func(st gateway.Status) {
				switch st.State {
				case gateway.StateRunning:
					out.Success("Gateway ready: %s", st.URL)
				case gateway.StateError:
					out.Failure("%s", st.Error)
				}
			})

			if err := sup.Start(ctx); err != nil {
				return err
			}

			if listen == "" {
				listen = config.Load().DashboardListen()
			}

			srv := dashboard.New(listen, version, sup, manager, logger)

			out.Info("Dashboard on http://%s", listen)
			out.Muted("Open it in a browser to chat with the assistant.")

			err = srv.Start(ctx)

			stopCtx, cancel := context.WithTimeout(context.Background(), 2*gateway.DefaultStopDeadline)
			defer cancel()

			if stopErr := sup.Stop(stopCtx); stopErr != nil && err == nil {
				err = stopErr
			}

			if err != nil && strings.Contains(err.Error(), "address already in use") {
				return clierrors.PortInUse(listen, err)
			}

			return err
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "Dashboard listen address (default: config dashboard.listen)")

	return cmd
}
