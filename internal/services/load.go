package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	apperrors "coffee-eda/internal/errors"
	"coffee-eda/internal/models"
)

const (
	batchSize  = 10000
	maxWorkers = 10
)

type columnIndex map[string]int

func indexColumns(header []string) (columnIndex, error) {
	idx := make(columnIndex, len(header))
	names := make([]string, len(header))
	for i, name := range header {
		names[i] = strings.TrimSpace(name)
		idx[names[i]] = i
	}
	if missing := models.Missing(names, models.CleanedColumns); len(missing) > 0 {
		return nil, apperrors.Schema(missing)
	}
	return idx, nil
}

// readCleanedCSV streams path in batches; each batch is parsed in parallel
// and rows keep their file order.
func readCleanedCSV(ctx context.Context, path string) ([]models.Transaction, error) {
	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, apperrors.FileNotFound(path, err)
	}
	if err != nil {
		return nil, apperrors.IOWrap(err, "open "+path)
	}
	defer file.Close()

	reader := csv.NewReader(file)

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, apperrors.Parse(path + " is empty")
	}
	if err != nil {
		return nil, apperrors.ParseWrap(err, "read header of "+path)
	}
	cols, err := indexColumns(header)
	if err != nil {
		return nil, err
	}

	var txns []models.Transaction
	batch := make([][]string, 0, batchSize)
	line := 1

	flush := func() error {
		parsed, err := parseBatch(ctx, cols, batch, line-len(batch)+1)
		if err != nil {
			return err
		}
		txns = append(txns, parsed...)
		batch = batch[:0]
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperrors.ParseWrap(err, "read "+path)
		}
		line++
		batch = append(batch, record)

		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return nil, err
			}
		}
	}

	if len(batch) > 0 {
		if err := flush(); err != nil {
			return nil, err
		}
	}

	return txns, nil
}

// parseBatch parses records whose first element sits on file line
// firstLine.
func parseBatch(ctx context.Context, cols columnIndex, batch [][]string, firstLine int) ([]models.Transaction, error) {
	out := make([]models.Transaction, len(batch))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxWorkers)

	chunk := (len(batch) + maxWorkers - 1) / maxWorkers
	for start := 0; start < len(batch); start += chunk {
		end := min(start+chunk, len(batch))
		g.Go(func() error {
			for i := start; i < end; i++ {
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}
				tx, err := parseTransaction(cols, batch[i])
				if err != nil {
					return apperrors.ParseWrap(err, fmt.Sprintf("line %d", firstLine+i))
				}
				out[i] = tx
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func parseTransaction(cols columnIndex, record []string) (models.Transaction, error) {
	field := func(name string) string {
		return strings.TrimSpace(record[cols[name]])
	}

	date, err := time.Parse(models.DateLayout, field(models.ColTransactionDate))
	if err != nil {
		return models.Transaction{}, fmt.Errorf("%s: %w", models.ColTransactionDate, err)
	}

	quantity, err := parseInt(field(models.ColQuantity))
	if err != nil {
		return models.Transaction{}, fmt.Errorf("%s: %w", models.ColQuantity, err)
	}

	unitPrice, err := decimal.NewFromString(field(models.ColUnitPrice))
	if err != nil {
		return models.Transaction{}, fmt.Errorf("%s: %w", models.ColUnitPrice, err)
	}

	totalBill, err := decimal.NewFromString(field(models.ColTotalBill))
	if err != nil {
		return models.Transaction{}, fmt.Errorf("%s: %w", models.ColTotalBill, err)
	}

	hour, err := parseInt(field(models.ColHour))
	if err != nil {
		return models.Transaction{}, fmt.Errorf("%s: %w", models.ColHour, err)
	}

	return models.Transaction{
		Date:            date,
		Quantity:        quantity,
		StoreLocation:   field(models.ColStoreLocation),
		UnitPrice:       unitPrice,
		ProductCategory: field(models.ColProductCategory),
		ProductType:     field(models.ColProductType),
		ProductDetail:   field(models.ColProductDetail),
		Size:            field(models.ColSize),
		TotalBill:       totalBill,
		MonthName:       field(models.ColMonthName),
		DayName:         field(models.ColDayName),
		Hour:            hour,
		DayOfMonth:      date.Day(),
	}, nil
}

// parseInt accepts integral floats such as "2.0", which typed CSV writers
// produce for integer columns.
func parseInt(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int(f)) {
		return 0, fmt.Errorf("not an integer: %q", s)
	}
	return int(f), nil
}
