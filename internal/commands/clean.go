package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"coffee-eda/internal/charts"
	"coffee-eda/internal/cleaner"
	"coffee-eda/internal/export"
)

func newCleanCommand(a *app) *cobra.Command {
	var in, out, chartsPath string
	var quiet bool

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Inspect the raw export and write the cleaned CSV",
		Args:  cobra.NoArgs,
		RunE: a.runE(func(cmd *cobra.Command, args []string) error {
			in = orDefault(in, a.cfg.Paths.RawCSV)
			out = orDefault(out, a.cfg.Paths.CleanedCSV)

			c := cleaner.New(a.logger, a.tracer, cleaner.WithMetrics(a.metrics))
			res, err := c.Run(cmd.Context(), in, out)
			if err != nil {
				return err
			}

			if !quiet {
				if err := res.WriteText(cmd.OutOrStdout()); err != nil {
					return fmt.Errorf("write inspection report: %w", err)
				}
			}

			if chartsPath != "" {
				if err := export.WriteWorkbook(chartsPath, []charts.Figure{res.Inspection.Boxes}); err != nil {
					return err
				}
				a.logger.Info("inspection charts written", "path", chartsPath)
			}
			return nil
		}),
	}

	cmd.Flags().StringVar(&in, "in", "", "raw CSV export (default paths.raw_csv)")
	cmd.Flags().StringVar(&out, "out", "", "cleaned CSV destination (default paths.cleaned_csv)")
	cmd.Flags().StringVar(&chartsPath, "charts", "", "also write the raw numeric box plots to this xlsx file")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "skip the inspection report")

	return cmd
}
