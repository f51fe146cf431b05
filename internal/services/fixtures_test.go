package services

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"coffee-eda/internal/config"
	"coffee-eda/internal/models"
)

func tx(date, store, category, productType, detail, size string, qty int, price string, hour int) models.Transaction {
	d, err := time.Parse(models.DateLayout, date)
	if err != nil {
		panic(err)
	}
	unit := decimal.RequireFromString(price)
	return models.Transaction{
		Date:            d,
		Quantity:        qty,
		StoreLocation:   store,
		UnitPrice:       unit,
		ProductCategory: category,
		ProductType:     productType,
		ProductDetail:   detail,
		Size:            size,
		TotalBill:       unit.Mul(decimal.NewFromInt(int64(qty))),
		MonthName:       d.Month().String(),
		DayName:         d.Weekday().String(),
		Hour:            hour,
		DayOfMonth:      d.Day(),
	}
}

// sampleTransactions spans two Sundays and one Monday across three stores.
func sampleTransactions() []models.Transaction {
	return []models.Transaction{
		tx("2023-01-01", "Astoria", "Coffee", "Gourmet brewed coffee", "Latte", "Not Defined", 2, "3", 7),
		tx("2023-01-01", "Astoria", "Tea", "Brewed Chai tea", "Chai Lg", "Large", 1, "2.5", 7),
		tx("2023-01-02", "Lower Manhattan", "Coffee", "Barista Espresso", "Cappuccino", "Not Defined", 1, "4", 8),
		tx("2023-01-02", "Lower Manhattan", "Coffee", "Barista Espresso", "Espresso shot", "Not Defined", 1, "2", 8),
		tx("2023-02-05", "Hell's Kitchen", "Bakery", "Scone", "Oatmeal Scone", "Not Defined", 3, "3", 9),
		tx("2023-02-05", "Hell's Kitchen", "Drinking Chocolate", "Hot chocolate", "Dark chocolate Lg", "Large", 2, "4.5", 9),
		tx("2023-02-05", "Hell's Kitchen", "Coffee", "Gourmet brewed coffee", "Latte", "Regular", 1, "3", 10),
	}
}

func testConfig() config.AnalysisConfig {
	return config.Default().Analysis
}

func writeCleanedCSV(t *testing.T, txns []models.Transaction) string {
	t.Helper()
	var b strings.Builder
	b.WriteString(strings.Join(models.CleanedColumns, ",") + "\n")
	for _, r := range txns {
		fmt.Fprintf(&b, "%s,%d,%s,%s,%s,%s,%s,%s,%s,%s,%s,%d\n",
			r.DateKey(), r.Quantity, r.StoreLocation, r.UnitPrice, r.ProductCategory,
			r.ProductType, r.ProductDetail, r.Size, r.TotalBill, r.MonthName, r.DayName, r.Hour)
	}
	path := filepath.Join(t.TempDir(), "coffee_cleaned.csv")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}
