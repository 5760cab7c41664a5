package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/xtxerr/salesgrid/internal/analysis"
	"github.com/xtxerr/salesgrid/internal/ingest"
	"github.com/xtxerr/salesgrid/internal/query"
)

func TestMetricsRendering(t *testing.T) {
	m := &analysis.Metrics{
		RowCount:          3,
		SaleCount:         3,
		TotalSales:        decimal.NewFromInt(10000),
		CountryOrders:     map[string]int64{"USA": 2, "France": 1},
		ProductLineOrders: map[string]int64{"Motorcycles": 2, "Classic Cars": 1},
		ProductLineSales: map[string]decimal.Decimal{
			"Motorcycles":  decimal.NewFromInt(4000),
			"Classic Cars": decimal.NewFromInt(6000),
		},
		DealSizes: map[string]analysis.GroupStats{
			"Small": {Count: 2, Sum: decimal.NewFromInt(4000)},
			"Large": {Count: 1, Sum: decimal.NewFromInt(6000)},
		},
	}

	var buf bytes.Buffer
	NewPlain(&buf).Metrics(m, 5)
	out := buf.String()

	for _, want := range []string{
		"3 rows scanned",
		"Total sales: $10000.00",
		"Average sale: $3333.33",
		"Top 5 countries",
		"USA  2",
		"Motorcycles  2  $4000.00",
		"Small  2  $2000.00",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestMetricsRendering_UndefinedMean(t *testing.T) {
	m := &analysis.Metrics{
		RowCount:          1,
		ExcludedTotals:    1,
		CountryOrders:     map[string]int64{},
		ProductLineOrders: map[string]int64{},
		ProductLineSales:  map[string]decimal.Decimal{},
		DealSizes:         map[string]analysis.GroupStats{},
	}

	var buf bytes.Buffer
	NewPlain(&buf).Metrics(m, 5)
	if !strings.Contains(buf.String(), "Average sale: undefined") {
		t.Errorf("output missing undefined mean:\n%s", buf.String())
	}
}

func TestLargeSalesRendering(t *testing.T) {
	var buf bytes.Buffer
	NewPlain(&buf).LargeSales("USA", 5000, []query.LargeSale{
		{Key: "10145_S18_1749", OrderNumber: 10145, ProductCode: "S18_1749", Total: decimal.RequireFromString("7374.10")},
	})
	out := buf.String()

	for _, want := range []string{"Large sales in USA", "10145  S18_1749  $7374.10"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestIngestRendering(t *testing.T) {
	var buf bytes.Buffer
	NewPlain(&buf).Ingest(&ingest.Report{
		TotalAttempted: 10,
		TotalSucceeded: 8,
		RecordFailures: []ingest.RecordFailure{{OrderNumber: 0, ProductCode: "S10_0004", Err: "invalid key"}},
		BatchFailures:  []ingest.BatchFailure{{Batch: 1, Rows: 1, Err: "region server gone"}},
	})
	out := buf.String()

	for _, want := range []string{
		"10 attempted, 8 written",
		"record (0, S10_0004): invalid key",
		"batch 1 (1 rows): region server gone",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestLineTotalsRendering(t *testing.T) {
	var buf bytes.Buffer
	NewPlain(&buf).LineTotals([]analysis.LineTotal{
		{ProductLine: "Trains", TotalSales: 1000, Orders: 5},
		{ProductLine: "Classic Cars", TotalSales: 4000, Orders: 12},
	})
	out := buf.String()

	if !strings.Contains(out, "Trains") || !strings.Contains(out, "Classic Cars") {
		t.Errorf("output missing product lines:\n%s", out)
	}
	// The largest line carries the full-width bar.
	if !strings.Contains(out, strings.Repeat("#", 40)) {
		t.Errorf("output missing bar for the max line:\n%s", out)
	}
}

func TestBlankLabel(t *testing.T) {
	if got := label(""); got != "(blank)" {
		t.Errorf("label(\"\") = %q", got)
	}
	if got := label("USA"); got != "USA" {
		t.Errorf("label passthrough = %q", got)
	}
}
