package services

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/shopspring/decimal"

	"coffee-eda/internal/charts"
	"coffee-eda/internal/config"
	apperrors "coffee-eda/internal/errors"
	"coffee-eda/internal/models"
)

// input is shared read-only by all builders of one run.
type input struct {
	cfg        config.AnalysisConfig
	txns       []models.Transaction
	byCategory *groups[string]
	// categories in descending record count, the order every per-category
	// figure follows.
	categories []string
}

func newInput(cfg config.AnalysisConfig, txns []models.Transaction) *input {
	byCategory := groupBy(txns, func(tx models.Transaction) string { return tx.ProductCategory })
	return &input{
		cfg:        cfg,
		txns:       txns,
		byCategory: byCategory,
		categories: byCategory.byValue(countOf, true),
	}
}

type builtFigure struct {
	figure   charts.Figure
	warnings []string
}

type figureBuilder struct {
	id    string
	build func(in *input) builtFigure
}

var figureBuilders = []figureBuilder{
	{FigStoreTransactions, storeTransactions},
	{FigPurchaseVolume, purchaseVolume},
	{FigCategoryDistribution, categoryDistribution},
	{FigUnitPriceSpread, unitPriceSpread},
	{FigPopularTypes, popularTypes},
	{FigPopularDetails, popularDetails},
	{FigDrinkSizes, drinkSizes},
	{FigDrinkSizesCorrected, drinkSizesCorrected},
	{FigSalesTrend, salesTrend},
	{FigAverageSale, averageSale},
	{FigWeekdaySales, weekdaySales},
	{FigHourlySales, hourlySales},
	{FigCategoryPerStore, categoryPerStore},
}

func storeTransactions(in *input) builtFigure {
	g := groupBy(in.txns, func(tx models.Transaction) string { return tx.StoreLocation })
	keys := g.byValue(countOf, true)

	return builtFigure{figure: charts.Single(FigStoreTransactions, charts.Chart{
		Kind:   charts.KindBar,
		Title:  "Transaction records per store",
		XLabel: "Store Location",
		YLabel: "Records count",
		Labels: keys,
		Series: []charts.Series{{Name: "Records", Values: g.values(keys, countOf)}},
	})}
}

func purchaseVolume(in *input) builtFigure {
	g := groupBy(in.txns, func(tx models.Transaction) int { return tx.Quantity })
	keys := g.ascending()

	return builtFigure{figure: charts.Single(FigPurchaseVolume, charts.Chart{
		Kind:   charts.KindBar,
		Title:  "Distribution of purchase volumes per transaction",
		XLabel: "Purchase volume",
		YLabel: "Frequency",
		Labels: labels(keys, strconv.Itoa),
		Series: []charts.Series{{Name: "Frequency", Values: g.values(keys, countOf)}},
	})}
}

type pieSlices struct {
	labels []string
	values []float64
	others float64
	total  float64
}

// splitOthers merges categories holding less than the configured share of
// records into a trailing Others slice.
func splitOthers(in *input) pieSlices {
	p := pieSlices{total: in.byCategory.total(countOf)}
	threshold := in.cfg.OthersThresholdPct * p.total / 100

	merged := 0
	for _, k := range in.categories {
		v := countOf(in.byCategory.buckets[k])
		if v < threshold {
			p.others += v
			merged++
			continue
		}
		p.labels = append(p.labels, k)
		p.values = append(p.values, v)
	}
	if merged > 0 {
		p.labels = append(p.labels, "Others")
		p.values = append(p.values, p.others)
	}
	return p
}

func categoryDistribution(in *input) builtFigure {
	keys := in.categories
	bar := charts.Chart{
		Kind:         charts.KindBar,
		Title:        "Product category records",
		XLabel:       "Category",
		YLabel:       "Records",
		Labels:       keys,
		Series:       []charts.Series{{Name: "Records", Values: in.byCategory.values(keys, countOf)}},
		TickRotation: 45,
	}

	p := splitOthers(in)
	sliceLabels := make([]string, len(p.values))
	for i, v := range p.values {
		sliceLabels[i] = charts.PieLabel(100*v/p.total, int(p.total))
	}
	pie := charts.Chart{
		Kind:        charts.KindPie,
		Title:       "Records pie chart",
		Labels:      p.labels,
		Series:      []charts.Series{{Name: "Records", Values: p.values}},
		SliceLabels: sliceLabels,
	}

	return builtFigure{figure: charts.Figure{
		ID:     FigCategoryDistribution,
		Title:  "Product category distribution",
		Rows:   1,
		Cols:   2,
		Panels: []charts.Chart{bar, pie},
	}}
}

func unitPriceSpread(in *input) builtFigure {
	type pair struct {
		category string
		price    string
	}

	seen := make(map[pair]struct{})
	var order []string
	prices := make(map[string][]float64)
	for _, tx := range in.txns {
		key := pair{tx.ProductCategory, tx.UnitPrice.String()}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		if _, ok := prices[tx.ProductCategory]; !ok {
			order = append(order, tx.ProductCategory)
		}
		prices[tx.ProductCategory] = append(prices[tx.ProductCategory], tx.UnitPrice.InexactFloat64())
	}

	boxes := make([]charts.BoxStats, len(order))
	for i, cat := range order {
		boxes[i] = charts.NewBoxStats(cat, prices[cat])
	}

	return builtFigure{figure: charts.Single(FigUnitPriceSpread, charts.Chart{
		Kind:         charts.KindBox,
		Title:        "Unit price distribution per product category",
		XLabel:       "Product category",
		YLabel:       "Unit price",
		Labels:       order,
		Boxes:        boxes,
		TickRotation: 45,
	})}
}

func popularTypes(in *input) builtFigure {
	return builtFigure{figure: menuGrid(in, FigPopularTypes, "Most popular product types per category", "Product type",
		func(tx models.Transaction) string { return tx.ProductType })}
}

func popularDetails(in *input) builtFigure {
	return builtFigure{figure: menuGrid(in, FigPopularDetails, "Most popular products per category", "Product",
		func(tx models.Transaction) string { return tx.ProductDetail })}
}

// menuGrid draws one horizontal bar panel per category, items ascending by
// quantity so the best seller sits on top.
func menuGrid(in *input, id, title, itemLabel string, item func(models.Transaction) string) charts.Figure {
	panels := make([]charts.Chart, 0, len(in.categories))
	for _, cat := range in.categories {
		rows := filter(in.txns, func(tx models.Transaction) bool { return tx.ProductCategory == cat })
		g := groupBy(rows, item)
		keys := g.byValue(qtyOf, false)
		panels = append(panels, charts.Chart{
			Kind:   charts.KindHBar,
			Title:  cat,
			XLabel: "Total quantity",
			YLabel: itemLabel,
			Labels: keys,
			Series: []charts.Series{{Name: "Quantity", Values: g.values(keys, qtyOf)}},
		})
	}
	return charts.Grid(id, title, in.cfg.GridColumns, panels)
}

func drinkRows(in *input) []models.Transaction {
	return filter(in.txns, func(tx models.Transaction) bool {
		return slices.Contains(in.cfg.DrinkCategories, tx.ProductCategory)
	})
}

func bySize(tx models.Transaction) string { return tx.Size }

func drinkSizes(in *input) builtFigure {
	g := groupBy(drinkRows(in), bySize)
	keys := g.byValue(qtyOf, true)

	return builtFigure{figure: charts.Single(FigDrinkSizes, charts.Chart{
		Kind:   charts.KindBar,
		Title:  "Distribution of drink sizes purchased",
		XLabel: "Drink Size",
		YLabel: "Total transaction volume",
		Labels: keys,
		Series: []charts.Series{{Name: "Quantity", Values: g.values(keys, qtyOf)}},
	})}
}

// CorrectSizes returns a copy of drinks without sizeless products, with
// each default applied in order to rows of its product whose size is
// undefined. A default naming a product absent from drinks yields a lookup
// error; the remaining defaults still apply.
func CorrectSizes(drinks []models.Transaction, sizeless []string, undefined string, defaults []config.SizeDefault) ([]models.Transaction, []error) {
	rows := filter(drinks, func(tx models.Transaction) bool {
		return !slices.Contains(sizeless, tx.ProductDetail)
	})

	var errs []error
	for _, d := range defaults {
		found := false
		for i := range rows {
			if rows[i].ProductDetail != d.Product {
				continue
			}
			found = true
			if rows[i].Size == undefined {
				rows[i].Size = d.Size
			}
		}
		if !found {
			errs = append(errs, apperrors.Lookup("product", d.Product))
		}
	}
	return rows, errs
}

func drinkSizesCorrected(in *input) builtFigure {
	rows, errs := CorrectSizes(drinkRows(in), in.cfg.SizelessProducts, in.cfg.UndefinedSize, in.cfg.SizeDefaults)
	g := groupBy(rows, bySize)
	keys := g.byValue(countOf, true)

	return builtFigure{
		figure: charts.Single(FigDrinkSizesCorrected, charts.Chart{
			Kind:   charts.KindBar,
			Title:  "Distribution of drink sizes purchased, sizes corrected",
			XLabel: "Drink Size",
			YLabel: "Records",
			Labels: keys,
			Series: []charts.Series{{Name: "Records", Values: g.values(keys, countOf)}},
		}),
		warnings: errStrings(errs),
	}
}

func byDate(tx models.Transaction) string { return tx.DateKey() }

func salesTrend(in *input) builtFigure {
	daily := groupBy(in.txns, byDate)
	days := daily.ascending()
	dailyChart := charts.Chart{
		Kind:    charts.KindLine,
		Title:   "Daily sales and purchases trend",
		XLabel:  "Date",
		YLabel:  "Sales",
		Y2Label: "Purchases",
		Labels:  days,
		Series: []charts.Series{
			{Name: "Sales", Values: daily.values(days, billOf)},
			{Name: "Purchases", Values: daily.values(days, qtyOf), Axis: 1},
		},
		TickEvery:    in.cfg.TickEvery,
		TickRotation: 45,
	}

	monthly := groupBy(in.txns, func(tx models.Transaction) string { return tx.MonthName })
	sales, _, warns := reindex(valuesByKey(monthly, billOf), in.cfg.MonthOrder, "month")
	purchases, _, _ := reindex(valuesByKey(monthly, qtyOf), in.cfg.MonthOrder, "month")
	monthlyChart := charts.Chart{
		Kind:    charts.KindBar,
		Title:   "Monthly sales and purchases totals",
		XLabel:  "Month",
		YLabel:  "Sales",
		Y2Label: "Purchases",
		Labels:  slices.Clone(in.cfg.MonthOrder),
		Series: []charts.Series{
			{Name: "Sales", Values: sales},
			{Name: "Purchases", Values: purchases, Axis: 1},
		},
	}

	return builtFigure{
		figure: charts.Figure{
			ID:     FigSalesTrend,
			Title:  "Sales and purchases over time",
			Rows:   1,
			Cols:   2,
			Panels: []charts.Chart{dailyChart, monthlyChart},
		},
		warnings: warns,
	}
}

func averageSale(in *input) builtFigure {
	daily := groupBy(in.txns, byDate)
	days := daily.ascending()

	byDay := groupBy(in.txns, func(tx models.Transaction) int { return tx.DayOfMonth })
	dom := byDay.ascending()

	return builtFigure{figure: charts.Figure{
		ID:    FigAverageSale,
		Title: "Average sales per transaction",
		Rows:  1,
		Cols:  2,
		Panels: []charts.Chart{
			{
				Kind:         charts.KindLine,
				Title:        "Daily average sales per transaction",
				XLabel:       "Date",
				YLabel:       "Average Sales per Transaction",
				Labels:       days,
				Series:       []charts.Series{{Name: "Average sale", Values: daily.values(days, meanBillOf)}},
				TickEvery:    in.cfg.TickEvery,
				TickRotation: 45,
			},
			{
				Kind:   charts.KindLine,
				Title:  "Average sales per transaction by day of the month",
				XLabel: "Day of the Month",
				YLabel: "Average Sales per Transaction",
				Labels: labels(dom, strconv.Itoa),
				Series: []charts.Series{{Name: "Average sale", Values: byDay.values(dom, meanBillOf)}},
			},
		},
	}}
}

// weekdayAverages is total sales per weekday divided by the number of
// distinct dates falling on that weekday, in configured weekday order.
func weekdayAverages(in *input) (values []float64, present []bool, warnings []string) {
	g := groupBy(in.txns, func(tx models.Transaction) string { return tx.DayName })
	sums := make(map[string]decimal.Decimal, len(g.buckets))
	for k, b := range g.buckets {
		sums[k] = b.bill
	}
	dates := distinctCount(in.txns, func(tx models.Transaction) string { return tx.DayName }, byDate)
	return reindex(NormalizeByDistinct(sums, dates), in.cfg.WeekdayOrder, "weekday")
}

func weekdaySales(in *input) builtFigure {
	values, _, warns := weekdayAverages(in)

	return builtFigure{
		figure: charts.Single(FigWeekdaySales, charts.Chart{
			Kind:   charts.KindBar,
			Title:  "Average daily sales by day of the week",
			XLabel: "Day of the week",
			YLabel: "Average daily sales",
			Labels: slices.Clone(in.cfg.WeekdayOrder),
			Series: []charts.Series{{Name: "Sales", Values: values}},
		}),
		warnings: warns,
	}
}

func hourlySales(in *input) builtFigure {
	type dateHour struct {
		date string
		hour int
	}

	byHour := func(tx models.Transaction) int { return tx.Hour }
	g := groupBy(in.txns, byHour)
	sums := make(map[int]decimal.Decimal, len(g.buckets))
	for k, b := range g.buckets {
		sums[k] = b.bill
	}
	periods := distinctCount(in.txns, byHour, func(tx models.Transaction) dateHour {
		return dateHour{tx.DateKey(), tx.Hour}
	})
	avg := NormalizeByDistinct(sums, periods)

	hours := g.ascending()
	values := make([]float64, len(hours))
	for i, h := range hours {
		values[i] = avg[h]
	}

	return builtFigure{figure: charts.Single(FigHourlySales, charts.Chart{
		Kind:   charts.KindLine,
		Title:  "Average hourly sales in a day",
		XLabel: "Hour",
		YLabel: "Average hourly sales",
		Labels: labels(hours, strconv.Itoa),
		Series: []charts.Series{{Name: "Sales", Values: values}},
	})}
}

func categoryPerStore(in *input) builtFigure {
	p := Pivot(in.txns, in.categories)

	series := make([]charts.Series, len(p.Columns))
	for c, store := range p.Columns {
		values := make([]float64, len(p.Rows))
		for r := range p.Rows {
			values[r] = float64(p.Cells[r][c])
		}
		series[c] = charts.Series{Name: store, Values: values}
	}

	return builtFigure{figure: charts.Single(FigCategoryPerStore, charts.Chart{
		Kind:         charts.KindGroupedBar,
		Title:        "Distribution of each product category purchased per store",
		XLabel:       "Product category",
		YLabel:       "Total transaction quantity",
		Labels:       slices.Clone(p.Rows),
		Series:       series,
		TickRotation: 45,
	})}
}

// PivotTable holds quantity totals with categories as rows and stores as
// columns. Combinations without sales are zero.
type PivotTable struct {
	Rows    []string `json:"rows"`
	Columns []string `json:"columns"`
	Cells   [][]int  `json:"cells"`
}

// Pivot sums quantity per (category, store). Rows follow rowOrder and
// columns are stores in name order; categories outside rowOrder are left
// out.
func Pivot(txns []models.Transaction, rowOrder []string) PivotTable {
	storeSet := make(map[string]struct{})
	for _, tx := range txns {
		storeSet[tx.StoreLocation] = struct{}{}
	}
	stores := make([]string, 0, len(storeSet))
	for s := range storeSet {
		stores = append(stores, s)
	}
	slices.Sort(stores)

	rowIdx := make(map[string]int, len(rowOrder))
	for i, r := range rowOrder {
		rowIdx[r] = i
	}
	colIdx := make(map[string]int, len(stores))
	for i, c := range stores {
		colIdx[c] = i
	}

	cells := make([][]int, len(rowOrder))
	for i := range cells {
		cells[i] = make([]int, len(stores))
	}
	for _, tx := range txns {
		r, ok := rowIdx[tx.ProductCategory]
		if !ok {
			continue
		}
		cells[r][colIdx[tx.StoreLocation]] += tx.Quantity
	}

	return PivotTable{Rows: slices.Clone(rowOrder), Columns: stores, Cells: cells}
}

func (p PivotTable) Value(row, col string) (int, error) {
	r := slices.Index(p.Rows, row)
	if r < 0 {
		return 0, apperrors.Lookup("category", row)
	}
	c := slices.Index(p.Columns, col)
	if c < 0 {
		return 0, apperrors.Lookup("store", col)
	}
	return p.Cells[r][c], nil
}

func valuesByKey(g *groups[string], val func(*bucket) float64) map[string]float64 {
	out := make(map[string]float64, len(g.buckets))
	for k, b := range g.buckets {
		out[k] = val(b)
	}
	return out
}

// reindex orders m by order. Labels of order missing from m read as zero
// and are reported; keys of m outside order are dropped and reported.
func reindex(m map[string]float64, order []string, kind string) (values []float64, present []bool, warnings []string) {
	values = make([]float64, len(order))
	present = make([]bool, len(order))
	for i, label := range order {
		v, ok := m[label]
		if !ok {
			warnings = append(warnings, apperrors.Lookup(kind, label).Error())
			continue
		}
		values[i] = v
		present[i] = true
	}

	var extra []string
	for k := range m {
		if !slices.Contains(order, k) {
			extra = append(extra, k)
		}
	}
	slices.Sort(extra)
	for _, k := range extra {
		warnings = append(warnings, fmt.Sprintf("%s %q outside configured order, left out", kind, k))
	}
	return values, present, warnings
}

func errStrings(errs []error) []string {
	out := make([]string, len(errs))
	for i, err := range errs {
		out[i] = err.Error()
	}
	return out
}
