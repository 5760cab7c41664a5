// Package analysis folds scanned rows into summary business metrics.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/DataDog/sketches-go/ddsketch"
	"github.com/shopspring/decimal"

	"github.com/xtxerr/salesgrid/internal/logging"
	"github.com/xtxerr/salesgrid/internal/record"
	"github.com/xtxerr/salesgrid/internal/store"
)

// CountryCount is one entry of the per-country order frequency table.
type CountryCount struct {
	Country string
	Orders  int64
}

// GroupStats tracks the running sum and count for one category.
type GroupStats struct {
	Count int64
	Sum   decimal.Decimal
}

// Mean returns the group mean, or false when the group is empty.
func (g GroupStats) Mean() (decimal.Decimal, bool) {
	if g.Count == 0 {
		return decimal.Decimal{}, false
	}
	return g.Sum.Div(decimal.NewFromInt(g.Count)), true
}

// SalePercentiles holds the sale-total distribution quantiles.
type SalePercentiles struct {
	P50 float64
	P90 float64
	P95 float64
	P99 float64
}

// Metrics is the snapshot derived from one scan pass. It is ephemeral:
// recomputed on demand, never persisted. Figures reflect whatever row
// states the scan observed; there is no isolation against concurrent
// updates, so a snapshot may mix pre- and post-update states.
type Metrics struct {
	// RowCount is the number of rows scanned.
	RowCount int64

	// SaleCount is the number of rows whose total parsed; the sums and
	// means below cover exactly these rows.
	SaleCount int64

	// ExcludedTotals counts rows whose total was missing or unparsable.
	// Such rows are excluded from the numeric aggregates, never counted
	// as zero.
	ExcludedTotals int64

	// TotalSales is the running sum of parsed sale totals.
	TotalSales decimal.Decimal

	// CountryOrders is the order frequency per country value.
	CountryOrders map[string]int64

	// ProductLineOrders is the order frequency per product line.
	ProductLineOrders map[string]int64

	// ProductLineSales is the sales total per product line.
	ProductLineSales map[string]decimal.Decimal

	// DealSizes tracks sum and count of sale totals per deal-size
	// category, for per-category means.
	DealSizes map[string]GroupStats

	// Percentiles of the sale-total distribution, nil when no totals
	// parsed.
	Percentiles *SalePercentiles
}

// MeanSale returns the mean sale total, or false when no totals parsed.
func (m *Metrics) MeanSale() (decimal.Decimal, bool) {
	if m.SaleCount == 0 {
		return decimal.Decimal{}, false
	}
	return m.TotalSales.Div(decimal.NewFromInt(m.SaleCount)), true
}

// TopCountries returns the n countries with the most orders, descending;
// ties break on country name for determinism.
func (m *Metrics) TopCountries(n int) []CountryCount {
	out := make([]CountryCount, 0, len(m.CountryOrders))
	for c, cnt := range m.CountryOrders {
		out = append(out, CountryCount{Country: c, Orders: cnt})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Orders != out[j].Orders {
			return out[i].Orders > out[j].Orders
		}
		return out[i].Country < out[j].Country
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// DealSizeMean returns the mean sale total of one deal-size category,
// or false when the category is empty.
func (m *Metrics) DealSizeMean(size string) (decimal.Decimal, bool) {
	return m.DealSizes[size].Mean()
}

// Summarize folds the scan into a Metrics snapshot in a single forward
// pass; rows are never materialized. Stateless and reentrant: every call
// starts from zero.
func Summarize(ctx context.Context, it store.RowIterator) (*Metrics, error) {
	log := logging.Component("analysis")

	m := &Metrics{
		CountryOrders:     make(map[string]int64),
		ProductLineOrders: make(map[string]int64),
		ProductLineSales:  make(map[string]decimal.Decimal),
		DealSizes:         make(map[string]GroupStats),
	}

	sketch, err := ddsketch.NewDefaultDDSketch(0.01)
	if err != nil {
		return nil, fmt.Errorf("create sketch: %w", err)
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		row, err := it.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("scan advance: %w", err)
		}

		m.RowCount++

		country, _ := row.Value(record.FamilyCustomer, "country")
		m.CountryOrders[country]++

		line, _ := row.Value(record.FamilyProduct, "line")
		m.ProductLineOrders[line]++

		raw, ok := row.Value(record.FamilySales, "total")
		if !ok {
			m.ExcludedTotals++
			continue
		}
		total, err := decimal.NewFromString(raw)
		if err != nil {
			m.ExcludedTotals++
			log.Debug("excluded unparsable total", "key", row.Key, "value", raw)
			continue
		}

		m.SaleCount++
		m.TotalSales = m.TotalSales.Add(total)
		m.ProductLineSales[line] = m.ProductLineSales[line].Add(total)

		size, _ := row.Value(record.FamilySales, "deal_size")
		g := m.DealSizes[size]
		g.Count++
		g.Sum = g.Sum.Add(total)
		m.DealSizes[size] = g

		if err := sketch.Add(total.InexactFloat64()); err != nil {
			log.Debug("sketch add failed", "key", row.Key, "error", err)
		}
	}

	if m.SaleCount > 0 {
		p50, err50 := sketch.GetValueAtQuantile(0.50)
		p90, err90 := sketch.GetValueAtQuantile(0.90)
		p95, err95 := sketch.GetValueAtQuantile(0.95)
		p99, err99 := sketch.GetValueAtQuantile(0.99)
		if err50 == nil && err90 == nil && err95 == nil && err99 == nil {
			m.Percentiles = &SalePercentiles{P50: p50, P90: p90, P95: p95, P99: p99}
		}
	}

	log.Info("summarize finished",
		"rows", m.RowCount,
		"sales", m.SaleCount,
		"excluded", m.ExcludedTotals)

	return m, nil
}
