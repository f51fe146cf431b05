package services

import (
	"cmp"
	"slices"

	"github.com/shopspring/decimal"

	"coffee-eda/internal/models"
)

type bucket struct {
	count int
	qty   int
	bill  decimal.Decimal
}

func (b *bucket) add(tx models.Transaction) {
	b.count++
	b.qty += tx.Quantity
	b.bill = b.bill.Add(tx.TotalBill)
}

// Value extractors for sorting and charting buckets.
func countOf(b *bucket) float64 { return float64(b.count) }
func qtyOf(b *bucket) float64   { return float64(b.qty) }
func billOf(b *bucket) float64  { return b.bill.InexactFloat64() }
func meanBillOf(b *bucket) float64 {
	if b.count == 0 {
		return 0
	}
	return b.bill.Div(decimal.NewFromInt(int64(b.count))).InexactFloat64()
}

// groups keeps buckets keyed by K together with first-appearance order.
type groups[K cmp.Ordered] struct {
	order   []K
	buckets map[K]*bucket
}

func groupBy[K cmp.Ordered](txns []models.Transaction, key func(models.Transaction) K) *groups[K] {
	g := &groups[K]{buckets: make(map[K]*bucket)}
	for _, tx := range txns {
		k := key(tx)
		b, ok := g.buckets[k]
		if !ok {
			b = &bucket{}
			g.buckets[k] = b
			g.order = append(g.order, k)
		}
		b.add(tx)
	}
	return g
}

func (g *groups[K]) get(k K) (*bucket, bool) {
	b, ok := g.buckets[k]
	return b, ok
}

// ascending returns keys in key order.
func (g *groups[K]) ascending() []K {
	keys := slices.Clone(g.order)
	slices.Sort(keys)
	return keys
}

// byValue returns keys ordered by val, ties broken by key order.
func (g *groups[K]) byValue(val func(*bucket) float64, desc bool) []K {
	keys := g.ascending()
	slices.SortStableFunc(keys, func(a, b K) int {
		c := cmp.Compare(val(g.buckets[a]), val(g.buckets[b]))
		if desc {
			return -c
		}
		return c
	})
	return keys
}

func (g *groups[K]) values(keys []K, val func(*bucket) float64) []float64 {
	out := make([]float64, len(keys))
	for i, k := range keys {
		if b, ok := g.buckets[k]; ok {
			out[i] = val(b)
		}
	}
	return out
}

func (g *groups[K]) total(val func(*bucket) float64) float64 {
	var sum float64
	for _, b := range g.buckets {
		sum += val(b)
	}
	return sum
}

func filter(txns []models.Transaction, keep func(models.Transaction) bool) []models.Transaction {
	out := make([]models.Transaction, 0, len(txns))
	for _, tx := range txns {
		if keep(tx) {
			out = append(out, tx)
		}
	}
	return out
}

// distinctCount counts, per group key, the distinct values of unit.
func distinctCount[K, U comparable](txns []models.Transaction, key func(models.Transaction) K, unit func(models.Transaction) U) map[K]int {
	seen := make(map[U]struct{})
	counts := make(map[K]int)
	for _, tx := range txns {
		u := unit(tx)
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		counts[key(tx)]++
	}
	return counts
}

// NormalizeByDistinct divides each group's sum by the number of distinct
// periods the group covers. Groups without periods are skipped.
func NormalizeByDistinct[K comparable](sums map[K]decimal.Decimal, periods map[K]int) map[K]float64 {
	out := make(map[K]float64, len(sums))
	for k, sum := range sums {
		n := periods[k]
		if n == 0 {
			continue
		}
		out[k] = sum.Div(decimal.NewFromInt(int64(n))).InexactFloat64()
	}
	return out
}

func labels[K any](keys []K, format func(K) string) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = format(k)
	}
	return out
}
