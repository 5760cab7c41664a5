// Package query exposes point get, partial update, and predicate-filtered
// range scans over the stored sales rows.
package query

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/xtxerr/salesgrid/internal/logging"
	"github.com/xtxerr/salesgrid/internal/record"
	"github.com/xtxerr/salesgrid/internal/store"
)

// Service provides read and point-write access to one table through an
// explicitly passed store handle.
type Service struct {
	client store.Client
	table  string
	log    *slog.Logger

	stats Stats
}

// Stats holds query counters.
type Stats struct {
	Gets    int64
	Updates int64
	Scans   int64
	Errors  int64
}

// New creates a query service over the given table.
func New(client store.Client, table string) *Service {
	return &Service{
		client: client,
		table:  table,
		log:    logging.Component("query"),
	}
}

// Get reads the row for the natural key. Absent rows surface
// errors.ErrNotFound; callers treat that as an empty result.
func (s *Service) Get(ctx context.Context, orderNumber int, productCode string) (*store.StoredRow, error) {
	key, err := store.EncodeKey(orderNumber, productCode)
	if err != nil {
		return nil, err
	}

	s.stats.Gets++
	row, err := s.client.GetRow(ctx, s.table, key, nil)
	if err != nil {
		return nil, err
	}
	return row, nil
}

// Update writes only the supplied family -> qualifier -> value fields,
// leaving all other stored fields untouched.
//
// Updating a key with no prior row silently creates a sparse row holding
// only the given fields. That is the store's native put semantics and is
// preserved deliberately; callers needing strict update-only must Get
// first.
func (s *Service) Update(ctx context.Context, orderNumber int, productCode string, fields map[string]map[string]string) error {
	key, err := store.EncodeKey(orderNumber, productCode)
	if err != nil {
		return err
	}
	if len(fields) == 0 {
		return fmt.Errorf("update of %s: no fields supplied", key)
	}

	s.stats.Updates++
	if err := s.client.PutRow(ctx, s.table, key, fields); err != nil {
		s.stats.Errors++
		return err
	}
	s.log.Debug("row updated", "key", key)
	return nil
}

// Scan opens a lazy scan in store-native key order. The predicate, when
// given, is evaluated server-side; the projection, when given, limits the
// populated fields per row. The caller owns the iterator and must Close
// it on every exit path.
func (s *Service) Scan(ctx context.Context, opts store.ScanOptions) (store.RowIterator, error) {
	s.stats.Scans++
	it, err := s.client.Scan(ctx, s.table, opts)
	if err != nil {
		s.stats.Errors++
		return nil, err
	}
	s.log.Debug("scan opened", "predicate", opts.Predicate.String())
	return it, nil
}

// LargeSale is one row exceeding the large-sale threshold.
type LargeSale struct {
	Key         string
	OrderNumber int
	ProductCode string
	Total       decimal.Decimal
}

// LargeSalesByCountry scans for rows of one country whose sale total
// exceeds the threshold. The country match runs server-side with a
// sales-family projection; the threshold is applied client-side on the
// parsed total. Rows whose total fails to parse are skipped.
func (s *Service) LargeSalesByCountry(ctx context.Context, country string, threshold float64) ([]LargeSale, error) {
	// The predicate column must be part of the projection: the
	// server-side filter only sees selected cells.
	it, err := s.Scan(ctx, store.ScanOptions{
		Predicate: store.Equals(record.FamilyCustomer, "country", country),
		Projection: map[string][]string{
			record.FamilySales:    {"total"},
			record.FamilyCustomer: {"country"},
		},
	})
	if err != nil {
		return nil, err
	}
	defer it.Close()

	limit := decimal.NewFromFloat(threshold)

	var results []LargeSale
	for {
		row, err := it.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			s.stats.Errors++
			return nil, fmt.Errorf("scan advance: %w", err)
		}

		raw, ok := row.Value(record.FamilySales, "total")
		if !ok {
			continue
		}
		total, err := decimal.NewFromString(raw)
		if err != nil {
			s.log.Warn("unparsable sale total", "key", row.Key, "value", raw)
			continue
		}
		if !total.GreaterThan(limit) {
			continue
		}

		orderNumber, productCode, err := store.DecodeKey(row.Key)
		if err != nil {
			s.log.Warn("unparsable row key", "key", row.Key)
			continue
		}
		results = append(results, LargeSale{
			Key:         row.Key,
			OrderNumber: orderNumber,
			ProductCode: productCode,
			Total:       total,
		})
	}

	return results, nil
}

// StatsSnapshot returns current counters.
func (s *Service) StatsSnapshot() Stats {
	return s.stats
}
