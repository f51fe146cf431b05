package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"coffee-eda/internal/charts"
	apperrors "coffee-eda/internal/errors"
)

const (
	defaultSheet = "Sheet1"
	// rows reserved for a native chart before the next panel starts
	chartRows   = 20
	chartWidth  = 640
	chartHeight = 360
)

const sliceLabelHeader = "Slice label"

var boxHeader = []any{"Label", "Count", "Min", "Q1", "Median", "Q3", "Max", "Whisker low", "Whisker high", "Outliers"}

// WriteWorkbook saves one sheet per figure to path. Each panel gets a data
// table followed by a native chart; box panels are written as statistics
// tables only.
func WriteWorkbook(path string, figures []charts.Figure) error {
	f := excelize.NewFile()
	defer f.Close()

	for _, fig := range figures {
		sheet := sheetName(fig.ID)
		if _, err := f.NewSheet(sheet); err != nil {
			return apperrors.IOWrap(err, "add sheet "+sheet)
		}
		if err := writeFigure(f, sheet, fig); err != nil {
			return err
		}
	}

	if len(figures) > 0 {
		if err := f.DeleteSheet(defaultSheet); err != nil {
			return apperrors.IOWrap(err, "remove default sheet")
		}
		f.SetActiveSheet(0)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return apperrors.IOWrap(err, "create output directory for "+path)
	}
	if err := f.SaveAs(path); err != nil {
		return apperrors.IOWrap(err, "save "+path)
	}
	return nil
}

// sheetName fits id into the 31 characters a sheet name may hold.
func sheetName(id string) string {
	if len(id) > 31 {
		return id[:31]
	}
	return id
}

func writeFigure(f *excelize.File, sheet string, fig charts.Figure) error {
	if err := f.SetCellValue(sheet, "A1", fig.Title); err != nil {
		return apperrors.IOWrap(err, "write title of "+fig.ID)
	}

	row := 3
	for i, panel := range fig.Panels {
		used, err := writePanel(f, sheet, row, panel)
		if err != nil {
			return apperrors.IOWrap(err, fmt.Sprintf("write %s panel %d", fig.ID, i+1))
		}
		if panel.Kind != charts.KindBox {
			used = max(used, chartRows)
		}
		row += used + 2
	}
	return nil
}

// writePanel lays out the panel starting at row and returns the number of
// rows its table takes.
func writePanel(f *excelize.File, sheet string, row int, c charts.Chart) (int, error) {
	if err := f.SetCellValue(sheet, cell(1, row), c.Title); err != nil {
		return 0, err
	}

	if c.Kind == charts.KindBox {
		return writeBoxTable(f, sheet, row+1, c.Boxes)
	}

	header := []any{firstNonEmpty(c.XLabel, "Label")}
	for _, s := range c.Series {
		header = append(header, s.Name)
	}
	pieLabels := c.Kind == charts.KindPie && len(c.SliceLabels) == len(c.Labels)
	if pieLabels {
		header = append(header, sliceLabelHeader)
	}
	if err := f.SetSheetRow(sheet, cell(1, row+1), &header); err != nil {
		return 0, err
	}

	for i, label := range c.Labels {
		values := []any{label}
		for _, s := range c.Series {
			values = append(values, s.Values[i])
		}
		if pieLabels {
			values = append(values, label+": "+c.SliceLabels[i])
		}
		if err := f.SetSheetRow(sheet, cell(1, row+2+i), &values); err != nil {
			return 0, err
		}
	}

	used := len(c.Labels) + 2
	if len(c.Labels) == 0 || len(c.Series) == 0 {
		return used, nil
	}

	primary, secondary := nativeCharts(sheet, row+2, row+1+len(c.Labels), c)
	if pieLabels {
		// slice text comes from the label column instead of excel's own percentages
		labels := rangeRef(sheet, len(header), row+2, row+1+len(c.Labels))
		for i := range primary.Series {
			primary.Series[i].Categories = labels
		}
		primary.PlotArea = excelize.ChartPlotArea{ShowCatName: true, ShowLeaderLines: true}
		primary.Legend = excelize.ChartLegend{Position: "none"}
	}
	anchor := cell(len(header)+2, row)
	if secondary != nil {
		return used, f.AddChart(sheet, anchor, primary, secondary)
	}
	return used, f.AddChart(sheet, anchor, primary)
}

func writeBoxTable(f *excelize.File, sheet string, row int, boxes []charts.BoxStats) (int, error) {
	header := boxHeader
	if err := f.SetSheetRow(sheet, cell(1, row), &header); err != nil {
		return 0, err
	}
	for i, b := range boxes {
		outliers := make([]string, len(b.Outliers))
		for j, o := range b.Outliers {
			outliers[j] = fmt.Sprint(o)
		}
		values := []any{b.Label, b.Count, b.Min, b.Q1, b.Median, b.Q3, b.Max, b.WhiskerLow, b.WhiskerHigh, strings.Join(outliers, " ")}
		if err := f.SetSheetRow(sheet, cell(1, row+1+i), &values); err != nil {
			return 0, err
		}
	}
	return len(boxes) + 2, nil
}

// nativeCharts builds the excelize chart for c, whose data sits in rows
// first..last. Series on the secondary axis go into a combo chart of the
// same type drawn against its own right-hand value axis.
func nativeCharts(sheet string, first, last int, c charts.Chart) (*excelize.Chart, *excelize.Chart) {
	categories := rangeRef(sheet, 1, first, last)

	var primary, secondary []excelize.ChartSeries
	for i, s := range c.Series {
		cs := excelize.ChartSeries{
			Name:       fmt.Sprintf("%s!$%s$%d", quote(sheet), column(i+2), first-1),
			Categories: categories,
			Values:     rangeRef(sheet, i+2, first, last),
		}
		if s.Axis == 1 {
			secondary = append(secondary, cs)
			continue
		}
		primary = append(primary, cs)
	}

	chart := &excelize.Chart{
		Type:      chartType(c.Kind),
		Series:    primary,
		Title:     []excelize.RichTextRun{{Text: c.Title}},
		Dimension: excelize.ChartDimension{Width: chartWidth, Height: chartHeight},
		Legend:    excelize.ChartLegend{Position: "bottom"},
		XAxis: excelize.ChartAxis{
			Title:         axisTitle(c.XLabel),
			TickLabelSkip: c.TickEvery,
		},
		YAxis: excelize.ChartAxis{
			Title:          axisTitle(c.YLabel),
			MajorGridLines: true,
		},
	}
	if c.Kind == charts.KindPie {
		chart.PlotArea = excelize.ChartPlotArea{ShowPercent: true}
		chart.XAxis = excelize.ChartAxis{}
		chart.YAxis = excelize.ChartAxis{}
	}

	if len(secondary) == 0 {
		return chart, nil
	}
	return chart, &excelize.Chart{
		Type:   chart.Type,
		Series: secondary,
		YAxis: excelize.ChartAxis{
			Secondary: true,
			Title:     axisTitle(c.Y2Label),
		},
	}
}

func chartType(k charts.Kind) excelize.ChartType {
	switch k {
	case charts.KindHBar:
		return excelize.Bar
	case charts.KindPie:
		return excelize.Pie
	case charts.KindLine:
		return excelize.Line
	default:
		return excelize.Col
	}
}

func axisTitle(text string) []excelize.RichTextRun {
	if text == "" {
		return nil
	}
	return []excelize.RichTextRun{{Text: text}}
}

func rangeRef(sheet string, col, first, last int) string {
	c := column(col)
	return fmt.Sprintf("%s!$%s$%d:$%s$%d", quote(sheet), c, first, c, last)
}

func quote(sheet string) string {
	return "'" + strings.ReplaceAll(sheet, "'", "''") + "'"
}

func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

func column(col int) string {
	name, _ := excelize.ColumnNumberToName(col)
	return name
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
