package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/planweave/config"
	"github.com/mohammad-safakhou/planweave/internal/agent"
	"github.com/mohammad-safakhou/planweave/internal/server"
	"github.com/mohammad-safakhou/planweave/internal/telemetry"
)

func main() {
	root := &cobra.Command{Use: "planweave"}

	var cfgPath string
	var serveAddr string
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the plan-generation HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(cfgPath)
			if err != nil {
				return err
			}
			if serveAddr != "" {
				cfg.Server.Address = serveAddr
			}

			var opts []agent.AgentOption
			if cfg.Telemetry.Enabled {
				opts = append(opts, agent.WithMetrics(telemetry.New(prometheus.DefaultRegisterer)))
			}
			ag, err := agent.New(cfg, opts...)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return server.New(cfg, ag).Run(ctx)
		},
	}
	serve.Flags().StringVar(&cfgPath, "config", "", "path to config file")
	serve.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")

	root.AddCommand(serve)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
