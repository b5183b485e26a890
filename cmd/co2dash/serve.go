package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"co2dash/internal/app"
)

func serveCmd(opts *rootOptions) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard API and websocket sessions",
		Long: `Load the dataset once and serve it until interrupted.

Routes:
  /api/dashboard/...  views, charts and exports
  /api/health         health, readiness and liveness
  /ws                 interactive dashboard sessions
  /metrics            Prometheus metrics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if port != 0 {
				cfg.Server.Port = port
			}

			application, err := app.NewApplication(cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize application: %w", err)
			}
			return application.Run()
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port, overrides server.port")
	return cmd
}
