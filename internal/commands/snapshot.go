package commands

import (
	"context"
	"net"
	"path/filepath"

	"github.com/spf13/cobra"

	apperrors "coffee-eda/internal/errors"
	"coffee-eda/internal/server"
	"coffee-eda/internal/snapshot"
)

func newSnapshotCommand(a *app) *cobra.Command {
	var in, out string
	opts := snapshot.DefaultOptions()

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Render the dashboard in headless Chrome and save a PNG",
		Args:  cobra.NoArgs,
		RunE: a.runE(func(cmd *cobra.Command, args []string) error {
			out = orDefault(out, filepath.Join(a.cfg.Paths.OutputDir, "dashboard.png"))
			if !snapshot.Available(opts.ExecPath) {
				return apperrors.ServiceUnavailable("no Chrome or Chromium binary found; pass --chrome")
			}

			analytics, err := a.loadAnalytics(cmd.Context(), orDefault(in, a.cfg.Paths.CleanedCSV), true)
			if err != nil {
				return err
			}

			ln, err := net.Listen("tcp", "127.0.0.1:0")
			if err != nil {
				return apperrors.IOWrap(err, "listen on loopback")
			}

			cfg := *a.cfg
			cfg.Security.EnableRateLimit = false
			srv := server.NewServer(&cfg, analytics, a.logger, a.tracer, a.metrics)
			gracefulServer := server.NewGracefulServer(srv.HTTPServer(&cfg), a.logger, &cfg)

			serveCtx, stop := context.WithCancel(cmd.Context())
			served := make(chan error, 1)
			go func() { served <- gracefulServer.Serve(serveCtx, ln) }()

			captureErr := snapshot.Capture(cmd.Context(), "http://"+ln.Addr().String()+"/", out, opts, a.logger)
			stop()
			if err := <-served; err != nil && captureErr == nil {
				return err
			}
			return captureErr
		}),
	}

	cmd.Flags().StringVar(&in, "in", "", "cleaned CSV (default paths.cleaned_csv)")
	cmd.Flags().StringVar(&out, "out", "", "PNG destination (default <output_dir>/dashboard.png)")
	cmd.Flags().StringVar(&opts.ExecPath, "chrome", "", "Chrome or Chromium binary")
	cmd.Flags().Int64Var(&opts.Width, "width", opts.Width, "viewport width")
	cmd.Flags().Int64Var(&opts.Height, "height", opts.Height, "viewport height")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", opts.Timeout, "give up after this long")

	return cmd
}
