package charts

import (
	"math"
	"slices"
)

// BoxStats is a Tukey box: quartiles by linear interpolation, whiskers at
// the most extreme values within 1.5 IQR of the box.
type BoxStats struct {
	Label       string    `json:"label"`
	Count       int       `json:"count"`
	Min         float64   `json:"min"`
	Q1          float64   `json:"q1"`
	Median      float64   `json:"median"`
	Q3          float64   `json:"q3"`
	Max         float64   `json:"max"`
	WhiskerLow  float64   `json:"whisker_low"`
	WhiskerHigh float64   `json:"whisker_high"`
	Outliers    []float64 `json:"outliers,omitempty"`
}

// NewBoxStats ignores NaN values. An empty input yields a zero box with Count 0.
func NewBoxStats(label string, values []float64) BoxStats {
	sorted := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			sorted = append(sorted, v)
		}
	}
	slices.Sort(sorted)

	b := BoxStats{Label: label, Count: len(sorted)}
	if len(sorted) == 0 {
		return b
	}

	b.Min = sorted[0]
	b.Max = sorted[len(sorted)-1]
	b.Q1 = Quantile(sorted, 0.25)
	b.Median = Quantile(sorted, 0.5)
	b.Q3 = Quantile(sorted, 0.75)

	iqr := b.Q3 - b.Q1
	lo, hi := b.Q1-1.5*iqr, b.Q3+1.5*iqr
	b.WhiskerLow, b.WhiskerHigh = b.Max, b.Min
	for _, v := range sorted {
		if v < lo || v > hi {
			b.Outliers = append(b.Outliers, v)
			continue
		}
		b.WhiskerLow = min(b.WhiskerLow, v)
		b.WhiskerHigh = max(b.WhiskerHigh, v)
	}
	return b
}

// Quantile interpolates linearly between closest ranks of sorted.
func Quantile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	pos := p * float64(len(sorted)-1)
	lower := int(math.Floor(pos))
	upper := int(math.Ceil(pos))
	if lower == upper {
		return sorted[lower]
	}
	frac := pos - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}
