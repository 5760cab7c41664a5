// Package export flattens scanned rows into parquet snapshots for
// offline analysis.
package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/parquet-go/parquet-go"

	"github.com/xtxerr/salesgrid/internal/logging"
	"github.com/xtxerr/salesgrid/internal/record"
	"github.com/xtxerr/salesgrid/internal/store"
)

// SaleRow is one stored row flattened to the analysis columns.
// Valid marks rows whose numeric figures parsed; offline queries filter
// on it instead of treating bad figures as zero.
type SaleRow struct {
	OrderID     string  `parquet:"order_id,zstd"`
	OrderDate   string  `parquet:"order_date,zstd"`
	Status      string  `parquet:"status,zstd"`
	ProductLine string  `parquet:"product_line,zstd"`
	Country     string  `parquet:"country,zstd"`
	Quantity    int32   `parquet:"quantity"`
	Total       float64 `parquet:"total"`
	DealSize    string  `parquet:"deal_size,zstd"`
	Valid       bool    `parquet:"valid"`
}

// writeChunkSize bounds memory while streaming rows to the writer.
const writeChunkSize = 1024

// FlattenRow converts a stored row to its parquet shape.
func FlattenRow(row *store.StoredRow) SaleRow {
	out := SaleRow{OrderID: row.Key, Valid: true}

	out.OrderDate, _ = row.Value(record.FamilyOrderInfo, "order_date")
	out.Status, _ = row.Value(record.FamilyOrderInfo, "status")
	out.ProductLine, _ = row.Value(record.FamilyProduct, "line")
	out.Country, _ = row.Value(record.FamilyCustomer, "country")
	out.DealSize, _ = row.Value(record.FamilySales, "deal_size")

	if raw, ok := row.Value(record.FamilySales, "quantity"); ok {
		if q, err := strconv.Atoi(raw); err == nil {
			out.Quantity = int32(q)
		} else {
			out.Valid = false
		}
	} else {
		out.Valid = false
	}

	if raw, ok := row.Value(record.FamilySales, "total"); ok {
		if t, err := strconv.ParseFloat(raw, 64); err == nil {
			out.Total = t
		} else {
			out.Valid = false
		}
	} else {
		out.Valid = false
	}

	return out
}

// WriteSnapshot drains the iterator into a parquet file at path and
// returns the number of rows written. The iterator is consumed but not
// closed; the caller owns it.
func WriteSnapshot(ctx context.Context, it store.RowIterator, path string) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create snapshot file: %w", err)
	}

	writer := parquet.NewGenericWriter[SaleRow](f, parquet.Compression(&parquet.Zstd))

	written := 0
	chunk := make([]SaleRow, 0, writeChunkSize)

	flush := func() error {
		if len(chunk) == 0 {
			return nil
		}
		if _, err := writer.Write(chunk); err != nil {
			return fmt.Errorf("write rows: %w", err)
		}
		written += len(chunk)
		chunk = chunk[:0]
		return nil
	}

	fail := func(err error) (int, error) {
		writer.Close()
		f.Close()
		os.Remove(path)
		return 0, err
	}

	for {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}

		row, err := it.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fail(fmt.Errorf("scan advance: %w", err))
		}

		chunk = append(chunk, FlattenRow(row))
		if len(chunk) == writeChunkSize {
			if err := flush(); err != nil {
				return fail(err)
			}
		}
	}

	if err := flush(); err != nil {
		return fail(err)
	}
	if err := writer.Close(); err != nil {
		f.Close()
		return 0, fmt.Errorf("close writer: %w", err)
	}
	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("close snapshot file: %w", err)
	}

	logging.Component("export").Info("snapshot written", "path", path, "rows", written)
	return written, nil
}

// ReadSnapshot reads a snapshot back. Test and debugging helper.
func ReadSnapshot(path string) ([]SaleRow, error) {
	rows, err := parquet.ReadFile[SaleRow](path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return rows, nil
}
