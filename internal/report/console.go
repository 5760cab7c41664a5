// Package report renders metrics snapshots and query results to the
// console. Rendering is a thin sink over the analysis output; nothing
// here feeds back into the pipeline.
package report

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"golang.org/x/term"

	"github.com/xtxerr/salesgrid/internal/analysis"
	"github.com/xtxerr/salesgrid/internal/ingest"
	"github.com/xtxerr/salesgrid/internal/query"
)

// Renderer writes the labeled breakdown to w. Tables are used when the
// destination is a terminal, plain lines otherwise.
type Renderer struct {
	w         io.Writer
	useTables bool
}

// New creates a renderer for w, detecting terminal output.
func New(w io.Writer) *Renderer {
	r := &Renderer{w: w}
	if f, ok := w.(*os.File); ok {
		r.useTables = term.IsTerminal(int(f.Fd()))
	}
	return r
}

// NewPlain creates a renderer that never draws tables. Test helper and
// non-tty default.
func NewPlain(w io.Writer) *Renderer {
	return &Renderer{w: w}
}

// Metrics renders the analytic summary.
func (r *Renderer) Metrics(m *analysis.Metrics, topCountries int) {
	fmt.Fprintf(r.w, "\nAnalytic summary (%d rows scanned, %d excluded from numeric aggregates)\n",
		m.RowCount, m.ExcludedTotals)

	fmt.Fprintf(r.w, "1. Total sales: $%s\n", m.TotalSales.StringFixed(2))

	if mean, ok := m.MeanSale(); ok {
		fmt.Fprintf(r.w, "2. Average sale: $%s\n", mean.StringFixed(2))
	} else {
		fmt.Fprintf(r.w, "2. Average sale: undefined (no parsable totals)\n")
	}

	fmt.Fprintf(r.w, "\n3. Top %d countries by order count:\n", topCountries)
	r.table([]string{"Country", "Orders"}, func(add func(...string)) {
		for _, cc := range m.TopCountries(topCountries) {
			add(label(cc.Country), strconv.FormatInt(cc.Orders, 10))
		}
	})

	fmt.Fprintf(r.w, "\n4. Product line distribution:\n")
	r.table([]string{"Product Line", "Orders", "Sales"}, func(add func(...string)) {
		for _, lc := range sortedKeys(m.ProductLineOrders) {
			add(label(lc),
				strconv.FormatInt(m.ProductLineOrders[lc], 10),
				"$"+m.ProductLineSales[lc].StringFixed(2))
		}
	})

	fmt.Fprintf(r.w, "\n5. Mean transaction per deal size:\n")
	r.table([]string{"Deal Size", "Orders", "Mean"}, func(add func(...string)) {
		for _, size := range sortedGroupKeys(m.DealSizes) {
			g := m.DealSizes[size]
			mean := "undefined"
			if v, ok := g.Mean(); ok {
				mean = "$" + v.StringFixed(2)
			}
			add(label(size), strconv.FormatInt(g.Count, 10), mean)
		}
	})

	if m.Percentiles != nil {
		fmt.Fprintf(r.w, "\n6. Sale total distribution: p50=$%.2f p90=$%.2f p95=$%.2f p99=$%.2f\n",
			m.Percentiles.P50, m.Percentiles.P90, m.Percentiles.P95, m.Percentiles.P99)
	}
}

// LargeSales renders the large-sales query result.
func (r *Renderer) LargeSales(country string, threshold float64, sales []query.LargeSale) {
	fmt.Fprintf(r.w, "\nLarge sales in %s (total > %.2f): %d\n", country, threshold, len(sales))
	r.table([]string{"Order", "Product", "Total"}, func(add func(...string)) {
		for _, s := range sales {
			add(strconv.Itoa(s.OrderNumber), s.ProductCode, "$"+s.Total.StringFixed(2))
		}
	})
}

// Ingest renders the ingestion outcome.
func (r *Renderer) Ingest(rep *ingest.Report) {
	fmt.Fprintf(r.w, "\nIngestion: %d attempted, %d written, %d record failures, %d batch failures\n",
		rep.TotalAttempted, rep.TotalSucceeded, len(rep.RecordFailures), len(rep.BatchFailures))
	for _, f := range rep.RecordFailures {
		fmt.Fprintf(r.w, "  record (%d, %s): %s\n", f.OrderNumber, f.ProductCode, f.Err)
	}
	for _, f := range rep.BatchFailures {
		fmt.Fprintf(r.w, "  batch %d (%d rows): %s\n", f.Batch, f.Rows, f.Err)
	}
}

// LineTotals renders the offline product-line totals, ascending — the
// console stand-in for the bar chart.
func (r *Renderer) LineTotals(totals []analysis.LineTotal) {
	fmt.Fprintf(r.w, "\nTotal sales per product line:\n")
	max := 0.0
	for _, lt := range totals {
		if lt.TotalSales > max {
			max = lt.TotalSales
		}
	}
	for _, lt := range totals {
		bar := ""
		if max > 0 {
			n := int(lt.TotalSales / max * 40)
			for i := 0; i < n; i++ {
				bar += "#"
			}
		}
		fmt.Fprintf(r.w, "  %-20s $%12.2f %s\n", label(lt.ProductLine), lt.TotalSales, bar)
	}
}

// table renders rows through tablewriter or as aligned plain lines.
func (r *Renderer) table(header []string, fill func(add func(...string))) {
	if r.useTables {
		t := tablewriter.NewWriter(r.w)
		t.SetHeader(header)
		fill(func(cells ...string) { t.Append(cells) })
		t.Render()
		return
	}
	fill(func(cells ...string) {
		for i, c := range cells {
			if i > 0 {
				fmt.Fprint(r.w, "  ")
			}
			fmt.Fprint(r.w, c)
		}
		fmt.Fprintln(r.w)
	})
}

func label(s string) string {
	if s == "" {
		return "(blank)"
	}
	return s
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedGroupKeys(m map[string]analysis.GroupStats) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
