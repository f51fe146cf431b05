package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Column names as they appear in the CSV headers. Columns are always
// resolved by name, never by position.
const (
	ColTransactionID   = "transaction_id"
	ColTransactionDate = "transaction_date"
	ColTransactionTime = "transaction_time"
	ColQuantity        = "transaction_qty"
	ColStoreID         = "store_id"
	ColStoreLocation   = "store_location"
	ColProductID       = "product_id"
	ColUnitPrice       = "unit_price"
	ColProductCategory = "product_category"
	ColProductType     = "product_type"
	ColProductDetail   = "product_detail"
	ColSize            = "Size"
	ColTotalBill       = "Total_Bill"
	ColMonthName       = "Month Name"
	ColDayName         = "Day Name"
	ColHour            = "Hour"
	ColMonth           = "Month"
	ColDayOfWeek       = "Day of Week"
)

// DateLayout is the ISO form written to the cleaned file.
const DateLayout = "2006-01-02"

var RawColumns = []string{
	ColTransactionID, ColTransactionDate, ColTransactionTime, ColQuantity,
	ColStoreID, ColStoreLocation, ColProductID, ColUnitPrice,
	ColProductCategory, ColProductType, ColProductDetail, ColSize,
	ColTotalBill, ColMonthName, ColDayName, ColHour, ColMonth, ColDayOfWeek,
}

// DroppedColumns are removed by the cleaner; identifiers and values
// derivable from the remaining columns.
var DroppedColumns = []string{
	ColTransactionID, ColTransactionTime, ColStoreID, ColProductID, ColMonth, ColDayOfWeek,
}

var CleanedColumns = []string{
	ColTransactionDate, ColQuantity, ColStoreLocation, ColUnitPrice,
	ColProductCategory, ColProductType, ColProductDetail, ColSize,
	ColTotalBill, ColMonthName, ColDayName, ColHour,
}

var NumericColumns = []string{ColQuantity, ColUnitPrice, ColTotalBill}

// Transaction is one cleaned line item.
type Transaction struct {
	Date            time.Time
	Quantity        int
	StoreLocation   string
	UnitPrice       decimal.Decimal
	ProductCategory string
	ProductType     string
	ProductDetail   string
	Size            string
	TotalBill       decimal.Decimal
	MonthName       string
	DayName         string
	Hour            int
	DayOfMonth      int
}

func (t Transaction) DateKey() string {
	return t.Date.Format(DateLayout)
}

// Missing returns the members of want that are absent from have.
func Missing(have, want []string) []string {
	present := make(map[string]struct{}, len(have))
	for _, h := range have {
		present[h] = struct{}{}
	}
	var missing []string
	for _, w := range want {
		if _, ok := present[w]; !ok {
			missing = append(missing, w)
		}
	}
	return missing
}
