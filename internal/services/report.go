package services

import (
	"strconv"
	"time"

	"coffee-eda/internal/charts"
)

// Figure identifiers, in presentation order.
const (
	FigStoreTransactions    = "store-transactions"
	FigPurchaseVolume       = "purchase-volume"
	FigCategoryDistribution = "category-distribution"
	FigUnitPriceSpread      = "unit-price-spread"
	FigPopularTypes         = "popular-types"
	FigPopularDetails       = "popular-details"
	FigDrinkSizes           = "drink-sizes"
	FigDrinkSizesCorrected  = "drink-sizes-corrected"
	FigSalesTrend           = "sales-trend"
	FigAverageSale          = "average-sale"
	FigWeekdaySales         = "weekday-sales"
	FigHourlySales          = "hourly-sales"
	FigCategoryPerStore     = "category-per-store"
)

// Diagnostics are the scalar findings of a run. A nil value means the
// lookup it depends on failed; the reason is in Report.Warnings.
type Diagnostics struct {
	OthersShare     *float64 `json:"others_share,omitempty"`
	CoffeeTeaShare  *float64 `json:"coffee_tea_share,omitempty"`
	NotDefinedShare *float64 `json:"not_defined_share,omitempty"`
	WeekdayMean     *float64 `json:"weekday_mean,omitempty"`
}

// Scalar is one named diagnostic value.
type Scalar struct {
	Name  string
	Value *float64
}

// String renders the value as analyze prints it, "n/a" when unset.
func (s Scalar) String() string {
	if s.Value == nil {
		return "n/a"
	}
	return strconv.FormatFloat(*s.Value, 'g', -1, 64)
}

// Ordered lists the diagnostics in the order they are printed.
func (d Diagnostics) Ordered() []Scalar {
	return []Scalar{
		{"others_share", d.OthersShare},
		{"coffee_tea_share", d.CoffeeTeaShare},
		{"not_defined_share", d.NotDefinedShare},
		{"weekday_mean", d.WeekdayMean},
	}
}

type Report struct {
	RunID             string          `json:"run_id"`
	Source            string          `json:"source"`
	RecordCount       int64           `json:"record_count"`
	Figures           []charts.Figure `json:"figures"`
	Diagnostics       Diagnostics     `json:"diagnostics"`
	Warnings          []string        `json:"warnings,omitempty"`
	LastModified      time.Time       `json:"last_modified"`
	ConfigFingerprint string          `json:"-"`
}

func (r *Report) Figure(id string) (charts.Figure, bool) {
	for _, f := range r.Figures {
		if f.ID == id {
			return f, true
		}
	}
	return charts.Figure{}, false
}

func ptr(v float64) *float64 { return &v }
