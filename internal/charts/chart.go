package charts

import (
	"fmt"
	"math"
	"slices"
)

type Kind string

const (
	KindBar        Kind = "bar"
	KindHBar       Kind = "hbar"
	KindPie        Kind = "pie"
	KindBox        Kind = "box"
	KindLine       Kind = "line"
	KindGroupedBar Kind = "grouped-bar"
)

// Series is one run of values aligned with Chart.Labels. Axis 1 plots
// against the secondary y axis.
type Series struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
	Axis   int       `json:"axis,omitempty"`
}

type Chart struct {
	Kind         Kind       `json:"kind"`
	Title        string     `json:"title"`
	XLabel       string     `json:"x_label,omitempty"`
	YLabel       string     `json:"y_label,omitempty"`
	Y2Label      string     `json:"y2_label,omitempty"`
	Labels       []string   `json:"labels,omitempty"`
	Series       []Series   `json:"series,omitempty"`
	Boxes        []BoxStats `json:"boxes,omitempty"`
	SliceLabels  []string   `json:"slice_labels,omitempty"`
	TickEvery    int        `json:"tick_every,omitempty"`
	TickRotation int        `json:"tick_rotation,omitempty"`
}

// Figure groups panels laid out on a Rows x Cols grid.
type Figure struct {
	ID     string  `json:"id"`
	Title  string  `json:"title"`
	Rows   int     `json:"rows"`
	Cols   int     `json:"cols"`
	Panels []Chart `json:"panels"`
}

func Single(id string, c Chart) Figure {
	return Figure{ID: id, Title: c.Title, Rows: 1, Cols: 1, Panels: []Chart{c}}
}

// Grid lays panels out cols wide, adding rows as needed. cols below one
// means a single column.
func Grid(id, title string, cols int, panels []Chart) Figure {
	cols = max(cols, 1)
	rows := (len(panels) + cols - 1) / cols
	return Figure{ID: id, Title: title, Rows: max(rows, 1), Cols: cols, Panels: panels}
}

// SecondaryAxis reports whether any series plots on the right-hand axis.
func (c Chart) SecondaryAxis() bool {
	return slices.ContainsFunc(c.Series, func(s Series) bool { return s.Axis == 1 })
}

// PieLabel renders a slice label as "<pct>% (<thousands>k)", where the
// thousands figure is the slice count truncated to hundreds.
func PieLabel(pct float64, total int) string {
	count := math.RoundToEven(pct * float64(total) / 100)
	thousands := math.Floor(count/100) / 10
	return fmt.Sprintf("%.1f%% (%.1fk)", pct, thousands)
}
