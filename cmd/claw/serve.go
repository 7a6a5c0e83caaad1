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
	clierrors "github.com/simplestclaw/claw/internal/errors"
	"github.com/simplestclaw/claw/internal/gateway"
	"github.com/simplestclaw/claw/internal/observability"
	"github.com/simplestclaw/claw/internal/output"
	"github.com/simplestclaw/claw/internal/sidecar"
)

func newServeCmd() *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the gateway with the health sidecar",
		Long: `Run the gateway under supervision and expose the local HTTP sidecar.

The sidecar serves GET /health with the gateway state and redirects every
other path to the gateway's own port. It is intended for desktop shells and
local tooling that need a stable probe endpoint.

Press Ctrl+C to stop.`,
		Example: `  claw serve
  claw serve --listen 127.0.0.1:19790`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())
			logger := observability.FromContext(cmd.Context()).With(
				slog.String("component", "sidecar"),
			)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			opts, _, err := gatewayOptions(ctx, out, 0)
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
				listen = config.Load().SidecarListen()
			}

			srv := sidecar.New(listen, version, sup, logger)

			out.Info("Sidecar listening on http://%s", listen)
			out.Muted("Health endpoint: http://%s/health", listen)

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

	cmd.Flags().StringVar(&listen, "listen", "", "Sidecar listen address (default: config sidecar.listen)")

	return cmd
}
