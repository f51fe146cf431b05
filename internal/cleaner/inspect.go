package cleaner

import (
	"fmt"
	"io"
	"math"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"coffee-eda/internal/charts"
	apperrors "coffee-eda/internal/errors"
	"coffee-eda/internal/models"
)

// Tokens read as missing values, matching the usual CSV null spellings.
var nullTokens = []string{"", "NA", "N/A", "NaN", "nan", "NULL", "null", "<NA>", "None"}

func isNull(v string) bool {
	return slices.Contains(nullTokens, strings.TrimSpace(v))
}

type ColumnInfo struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	NonNull int    `json:"non_null"`
	Nulls   int    `json:"nulls"`
}

type ColumnSummary struct {
	Name   string  `json:"name"`
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Q1     float64 `json:"q1"`
	Median float64 `json:"median"`
	Q3     float64 `json:"q3"`
	Max    float64 `json:"max"`
}

// Inspection describes the raw data before any change is made to it.
// Outliers are reported through Boxes and never filtered.
type Inspection struct {
	Rows        int             `json:"rows"`
	ColumnCount int             `json:"column_count"`
	Columns     []ColumnInfo    `json:"columns"`
	Summary     []ColumnSummary `json:"summary"`
	Boxes       charts.Figure   `json:"boxes"`
}

func Inspect(df dataframe.DataFrame) (*Inspection, error) {
	if missing := models.Missing(df.Names(), models.NumericColumns); len(missing) > 0 {
		return nil, apperrors.Schema(missing)
	}

	insp := &Inspection{
		Rows:        df.Nrow(),
		ColumnCount: df.Ncol(),
		Columns:     columnInfo(df, true),
	}

	panels := make([]charts.Chart, 0, len(models.NumericColumns))
	for _, name := range models.NumericColumns {
		values := numericValues(df.Col(name))
		insp.Summary = append(insp.Summary, summarize(name, values))
		panels = append(panels, charts.Chart{
			Kind:   charts.KindBox,
			Title:  name,
			YLabel: name,
			Boxes:  []charts.BoxStats{charts.NewBoxStats(name, values)},
		})
	}
	insp.Boxes = charts.Grid("raw-numeric-boxes", "Numeric column spread", len(panels), panels)

	return insp, nil
}

// columnInfo counts nulls per column. With detect set, column types are
// inferred the way a typed load would see them.
func columnInfo(df dataframe.DataFrame, detect bool) []ColumnInfo {
	var typed dataframe.DataFrame
	if detect {
		typed = dataframe.LoadRecords(df.Records(), dataframe.NaNValues(nullTokens))
	}

	infos := make([]ColumnInfo, 0, df.Ncol())
	for _, name := range df.Names() {
		info := ColumnInfo{Name: name, Type: string(series.String)}
		for _, v := range df.Col(name).Records() {
			if isNull(v) {
				info.Nulls++
			} else {
				info.NonNull++
			}
		}
		if detect && typed.Err == nil {
			info.Type = string(typed.Col(name).Type())
		}
		infos = append(infos, info)
	}
	return infos
}

func numericValues(s series.Series) []float64 {
	raw := s.Float()
	values := make([]float64, 0, len(raw))
	for _, v := range raw {
		if !math.IsNaN(v) {
			values = append(values, v)
		}
	}
	return values
}

func summarize(name string, values []float64) ColumnSummary {
	sum := ColumnSummary{Name: name, Count: len(values)}
	if len(values) == 0 {
		return sum
	}

	s := series.Floats(values)
	sorted := slices.Clone(values)
	slices.Sort(sorted)

	sum.Mean = s.Mean()
	sum.Std = s.StdDev()
	sum.Min = s.Min()
	sum.Max = s.Max()
	sum.Q1 = charts.Quantile(sorted, 0.25)
	sum.Median = charts.Quantile(sorted, 0.5)
	sum.Q3 = charts.Quantile(sorted, 0.75)
	return sum
}

// WriteText prints the inspection, duplicate and null reports of r.
func (r *Result) WriteText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	insp := r.Inspection
	fmt.Fprintf(tw, "rows: %d\tcolumns: %d\n\n", insp.Rows, insp.ColumnCount)

	fmt.Fprintln(tw, "column\ttype\tnon-null\tnull")
	for _, c := range insp.Columns {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\n", c.Name, c.Type, c.NonNull, c.Nulls)
	}

	fmt.Fprintln(tw, "\nstatistic\tcount\tmean\tstd\tmin\t25%\t50%\t75%\tmax")
	for _, s := range insp.Summary {
		fmt.Fprintf(tw, "%s\t%d\t%.4f\t%.4f\t%.4f\t%.4f\t%.4f\t%.4f\t%.4f\n",
			s.Name, s.Count, s.Mean, s.Std, s.Min, s.Q1, s.Median, s.Q3, s.Max)
	}

	fmt.Fprintln(tw, "\ncolumn\toutliers")
	for _, p := range insp.Boxes.Panels {
		for _, b := range p.Boxes {
			fmt.Fprintf(tw, "%s\t%d\n", b.Label, len(b.Outliers))
		}
	}

	fmt.Fprintf(tw, "\nduplicate rows: %d\n", len(r.Duplicates))

	fmt.Fprintln(tw, "\nafter pruning\tnull")
	for _, c := range r.NullsAfterPrune {
		fmt.Fprintf(tw, "%s\t%d\n", c.Name, c.Nulls)
	}

	return tw.Flush()
}
