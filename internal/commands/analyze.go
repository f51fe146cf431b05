package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"coffee-eda/internal/export"
)

const (
	workbookName = "charts.xlsx"
	reportName   = "report.json"
)

func newAnalyzeCommand(a *app) *cobra.Command {
	var in, outDir string
	var noCache bool

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Build every figure and print the diagnostics",
		Args:  cobra.NoArgs,
		RunE: a.runE(func(cmd *cobra.Command, args []string) error {
			in = orDefault(in, a.cfg.Paths.CleanedCSV)
			outDir = orDefault(outDir, a.cfg.Paths.OutputDir)

			analytics, err := a.loadAnalytics(cmd.Context(), in, !noCache)
			if err != nil {
				return err
			}
			report := analytics.Report()

			if err := export.WriteWorkbook(filepath.Join(outDir, workbookName), report.Figures); err != nil {
				return err
			}
			if err := export.WriteJSON(filepath.Join(outDir, reportName), report); err != nil {
				return err
			}

			for _, s := range report.Diagnostics.Ordered() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s=%s\n", s.Name, s)
			}

			a.logger.Info("analysis written",
				"output_dir", outDir,
				"figures", len(report.Figures),
				"warnings", len(report.Warnings),
			)
			return nil
		}),
	}

	cmd.Flags().StringVar(&in, "in", "", "cleaned CSV (default paths.cleaned_csv)")
	cmd.Flags().StringVar(&outDir, "out-dir", "", "directory for charts.xlsx and report.json (default paths.output_dir)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "recompute even if a cached report is valid")

	return cmd
}
