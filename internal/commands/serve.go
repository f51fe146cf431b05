package commands

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"coffee-eda/internal/server"
)

const csvLoadTimeout = 30 * time.Second

func newServeCommand(a *app) *cobra.Command {
	var in, host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the interactive dashboard",
		Args:  cobra.NoArgs,
		RunE: a.runE(func(cmd *cobra.Command, args []string) error {
			if host != "" {
				a.cfg.Server.Host = host
			}
			if port != 0 {
				a.cfg.Server.Port = port
			}

			loadCtx, cancel := context.WithTimeout(cmd.Context(), csvLoadTimeout)
			defer cancel()

			start := time.Now()
			analytics, err := a.loadAnalytics(loadCtx, orDefault(in, a.cfg.Paths.CleanedCSV), true)
			if err != nil {
				return err
			}
			a.logger.Info("report loaded", "duration", time.Since(start))

			srv := server.NewServer(a.cfg, analytics, a.logger, a.tracer, a.metrics)
			gracefulServer := server.NewGracefulServer(srv.HTTPServer(a.cfg), a.logger, a.cfg)
			gracefulServer.RegisterShutdownHook("analytics", func(ctx context.Context) error {
				a.logger.Info("shutting down analytics service", "stats", analytics.Stats())
				return nil
			})

			return gracefulServer.ListenAndServe(cmd.Context())
		}),
	}

	cmd.Flags().StringVar(&in, "in", "", "cleaned CSV (default paths.cleaned_csv)")
	cmd.Flags().StringVar(&host, "host", "", "listen host (default server.host)")
	cmd.Flags().IntVar(&port, "port", 0, "listen port (default server.port)")

	return cmd
}
