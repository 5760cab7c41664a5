package store

import (
	"context"
	"fmt"
	"io"
	"regexp"

	"github.com/tsuna/gohbase"
	"github.com/tsuna/gohbase/filter"
	"github.com/tsuna/gohbase/hrpc"

	sgerrors "github.com/xtxerr/salesgrid/internal/errors"
	"github.com/xtxerr/salesgrid/internal/logging"
)

// HBase is the production Client backed by the native HBase RPC protocol.
// It holds one region client for data operations and one admin client for
// table operations; both are long-lived and shared for the whole run.
type HBase struct {
	quorum string
	client gohbase.Client
	admin  gohbase.AdminClient
	closed bool
}

var _ Client = (*HBase)(nil)

// Connect opens the store handle and verifies the cluster is reachable
// with one admin round trip. Unreachable clusters surface ErrConnection.
func Connect(ctx context.Context, quorum string) (*HBase, error) {
	h := &HBase{
		quorum: quorum,
		client: gohbase.NewClient(quorum),
		admin:  gohbase.NewAdminClient(quorum),
	}

	// gohbase dials lazily; probe so a bad quorum fails here, not on
	// the first batch write.
	if _, err := h.listTables(ctx, ".*"); err != nil {
		h.Close()
		return nil, sgerrors.NewConnection(quorum, err)
	}

	logging.Component("store").Info("connected", "quorum", quorum)
	return h, nil
}

func (h *HBase) listTables(ctx context.Context, regex string) ([]string, error) {
	req, err := hrpc.NewListTableNames(ctx, hrpc.ListRegex(regex))
	if err != nil {
		return nil, fmt.Errorf("build list request: %w", err)
	}
	names, err := h.admin.ListTableNames(req)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	tables := make([]string, 0, len(names))
	for _, n := range names {
		tables = append(tables, string(n.GetQualifier()))
	}
	return tables, nil
}

// TableExists reports whether the named table exists.
func (h *HBase) TableExists(ctx context.Context, table string) (bool, error) {
	tables, err := h.listTables(ctx, "^"+regexp.QuoteMeta(table)+"$")
	if err != nil {
		return false, err
	}
	for _, t := range tables {
		if t == table {
			return true, nil
		}
	}
	return false, nil
}

// CreateTable creates the table with the given column families.
func (h *HBase) CreateTable(ctx context.Context, table string, families []string) error {
	fams := make(map[string]map[string]string, len(families))
	for _, f := range families {
		fams[f] = nil
	}
	req := hrpc.NewCreateTable(ctx, []byte(table), fams)
	if err := h.admin.CreateTable(req); err != nil {
		return fmt.Errorf("create table %s: %w", table, err)
	}
	return nil
}

// BatchPut writes a group of rows in one client round trip.
func (h *HBase) BatchPut(ctx context.Context, table string, rows []StoredRow) error {
	batch := make([]hrpc.Call, 0, len(rows))
	for i := range rows {
		put, err := hrpc.NewPutStr(ctx, table, rows[i].Key, toByteFields(rows[i].Families))
		if err != nil {
			return fmt.Errorf("build put for %s: %w", rows[i].Key, err)
		}
		batch = append(batch, put)
	}

	results, allOK := h.client.SendBatch(ctx, batch)
	if allOK {
		return nil
	}

	var failed int
	var first error
	for _, res := range results {
		if res.Error != nil {
			failed++
			if first == nil {
				first = res.Error
			}
		}
	}
	return fmt.Errorf("batch put: %d of %d mutations failed: %w", failed, len(batch), first)
}

// GetRow reads one row by key.
func (h *HBase) GetRow(ctx context.Context, table, key string, projection map[string][]string) (*StoredRow, error) {
	var opts []func(hrpc.Call) error
	if projection != nil {
		opts = append(opts, hrpc.Families(projection))
	}
	get, err := hrpc.NewGetStr(ctx, table, key, opts...)
	if err != nil {
		return nil, fmt.Errorf("build get for %s: %w", key, err)
	}

	res, err := h.client.Get(get)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	if res == nil || len(res.Cells) == 0 {
		return nil, sgerrors.NewNotFound(key)
	}
	return resultToRow(key, res), nil
}

// PutRow writes the supplied fields of one row.
func (h *HBase) PutRow(ctx context.Context, table, key string, fields map[string]map[string]string) error {
	put, err := hrpc.NewPutStr(ctx, table, key, toByteFields(fields))
	if err != nil {
		return fmt.Errorf("build put for %s: %w", key, err)
	}
	if _, err := h.client.Put(put); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// Scan opens a lazy scan over the table.
func (h *HBase) Scan(ctx context.Context, table string, opts ScanOptions) (RowIterator, error) {
	if err := opts.Predicate.Validate(); err != nil {
		return nil, err
	}

	var reqOpts []func(hrpc.Call) error
	if opts.Predicate != nil {
		reqOpts = append(reqOpts, hrpc.Filters(toFilter(opts.Predicate)))
	}
	if opts.Projection != nil {
		reqOpts = append(reqOpts, hrpc.Families(opts.Projection))
	}

	scan, err := hrpc.NewScanStr(ctx, table, reqOpts...)
	if err != nil {
		return nil, fmt.Errorf("build scan: %w", err)
	}

	return &hbaseIterator{scanner: h.client.Scan(scan)}, nil
}

// Close releases the connection. Safe to call more than once.
func (h *HBase) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true
	if h.client != nil {
		h.client.Close()
	}
	if c, ok := h.admin.(io.Closer); ok {
		c.Close()
	}
	logging.Component("store").Info("connection closed", "quorum", h.quorum)
	return nil
}

// hbaseIterator adapts the gohbase scanner to RowIterator.
type hbaseIterator struct {
	scanner hrpc.Scanner
	closed  bool
}

func (it *hbaseIterator) Next() (*StoredRow, error) {
	if it.closed {
		return nil, sgerrors.ErrScanClosed
	}
	res, err := it.scanner.Next()
	if err != nil {
		// io.EOF marks a clean end of the scan.
		return nil, err
	}
	return resultToRow("", res), nil
}

func (it *hbaseIterator) Close() error {
	if it.closed {
		return nil
	}
	it.closed = true
	return it.scanner.Close()
}

// toFilter translates the structured predicate into the server-side
// single-column-value filter. filterIfMissing drops rows without the
// column, matching ScanPredicate.Matches.
func toFilter(p *ScanPredicate) filter.Filter {
	return filter.NewSingleColumnValueFilter(
		[]byte(p.Family),
		[]byte(p.Qualifier),
		toCompareType(p.Op),
		filter.NewBinaryComparator(filter.NewByteArrayComparable([]byte(p.Value))),
		true, // filterIfMissing
		true, // latestVersionOnly
	)
}

func toCompareType(op CompareOp) filter.CompareType {
	switch op {
	case OpNotEqual:
		return filter.NotEqual
	case OpLess:
		return filter.Less
	case OpLessOrEqual:
		return filter.LessOrEqual
	case OpGreater:
		return filter.Greater
	case OpGreaterOrEqual:
		return filter.GreaterOrEqual
	default:
		return filter.Equal
	}
}

func toByteFields(fields map[string]map[string]string) map[string]map[string][]byte {
	out := make(map[string]map[string][]byte, len(fields))
	for fam, quals := range fields {
		m := make(map[string][]byte, len(quals))
		for q, v := range quals {
			m[q] = []byte(v)
		}
		out[fam] = m
	}
	return out
}

func resultToRow(key string, res *hrpc.Result) *StoredRow {
	row := &StoredRow{Key: key, Families: make(map[string]map[string]string)}
	for _, cell := range res.Cells {
		if row.Key == "" {
			row.Key = string(cell.Row)
		}
		fam := string(cell.Family)
		if row.Families[fam] == nil {
			row.Families[fam] = make(map[string]string)
		}
		row.Families[fam][string(cell.Qualifier)] = string(cell.Value)
	}
	return row
}
