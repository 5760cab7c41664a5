package analysis

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/marcboeker/go-duckdb"
)

// Offline runs SQL over exported parquet snapshots. It covers the
// analysis that does not need the live table, such as the product-line
// breakdown rendered at the end of a run.
type Offline struct {
	db *sql.DB
}

// NewOffline opens an in-memory DuckDB database.
func NewOffline() (*Offline, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	return &Offline{db: db}, nil
}

// Close closes the database.
func (o *Offline) Close() error {
	if o.db != nil {
		return o.db.Close()
	}
	return nil
}

// LineTotal is the sales total of one product line.
type LineTotal struct {
	ProductLine string
	TotalSales  float64
	Orders      int64
}

// ProductLineTotals sums sale totals per product line across the
// snapshots matching the glob pattern, ascending by total. Rows flagged
// invalid during export are excluded.
func (o *Offline) ProductLineTotals(ctx context.Context, pattern string) ([]LineTotal, error) {
	query := `
		SELECT product_line, SUM(total) AS total_sales, COUNT(*) AS orders
		FROM read_parquet($1)
		WHERE valid
		GROUP BY product_line
		ORDER BY total_sales
	`

	rows, err := o.db.QueryContext(ctx, query, pattern)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var results []LineTotal
	for rows.Next() {
		var lt LineTotal
		if err := rows.Scan(&lt.ProductLine, &lt.TotalSales, &lt.Orders); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		results = append(results, lt)
	}
	return results, rows.Err()
}

// ExecuteSQL executes a raw SQL query. Useful for ad-hoc exploration of
// exported snapshots from the shell.
func (o *Offline) ExecuteSQL(ctx context.Context, query string) ([]map[string]interface{}, error) {
	rows, err := o.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var results []map[string]interface{}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, err
		}
		row := make(map[string]interface{})
		for i, col := range columns {
			row[col] = values[i]
		}
		results = append(results, row)
	}
	return results, rows.Err()
}
