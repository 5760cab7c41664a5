// Package storetest provides an in-memory store.Client fake for tests.
//
// The fake keeps rows in sorted key order, evaluates predicates and
// projections the way the server would, counts remote calls, and lets
// tests inject failures per operation or per batch.
package storetest

import (
	"context"
	"io"
	"sort"
	"sync"

	sgerrors "github.com/xtxerr/salesgrid/internal/errors"
	"github.com/xtxerr/salesgrid/internal/store"
)

// Fake is an in-memory store.Client.
type Fake struct {
	mu sync.Mutex

	tables map[string][]string
	rows   map[string]map[string]map[string]map[string]string // table -> key -> family -> qualifier -> value

	// Call accounting.
	ExistsCalls int
	CreateCalls int
	BatchCalls  int
	BatchSizes  []int
	GetCalls    int
	PutCalls    int
	ScanCalls   int
	CloseCalls  int

	// Failure injection.
	FailTableExists error
	FailCreate      error
	FailGet         error
	FailPut         error
	FailScan        error
	// FailBatchAt fails the Nth BatchPut call (0-based).
	FailBatchAt map[int]error
}

var _ store.Client = (*Fake)(nil)

// New creates an empty fake store.
func New() *Fake {
	return &Fake{
		tables: make(map[string][]string),
		rows:   make(map[string]map[string]map[string]map[string]string),
	}
}

// TableExists reports whether the table was created on this fake.
func (f *Fake) TableExists(ctx context.Context, table string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ExistsCalls++
	if f.FailTableExists != nil {
		return false, f.FailTableExists
	}
	_, ok := f.tables[table]
	return ok, nil
}

// CreateTable registers the table and its families.
func (f *Fake) CreateTable(ctx context.Context, table string, families []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CreateCalls++
	if f.FailCreate != nil {
		return f.FailCreate
	}
	f.tables[table] = append([]string(nil), families...)
	if f.rows[table] == nil {
		f.rows[table] = make(map[string]map[string]map[string]string)
	}
	return nil
}

// BatchPut merges all rows of the batch into the table.
func (f *Fake) BatchPut(ctx context.Context, table string, rows []store.StoredRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	call := f.BatchCalls
	f.BatchCalls++
	f.BatchSizes = append(f.BatchSizes, len(rows))
	if err := f.FailBatchAt[call]; err != nil {
		return err
	}
	for i := range rows {
		f.merge(table, rows[i].Key, rows[i].Families)
	}
	return nil
}

// GetRow returns a copy of the row, optionally projected.
func (f *Fake) GetRow(ctx context.Context, table, key string, projection map[string][]string) (*store.StoredRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.GetCalls++
	if f.FailGet != nil {
		return nil, f.FailGet
	}
	fams, ok := f.rows[table][key]
	if !ok {
		return nil, sgerrors.NewNotFound(key)
	}
	row := project(&store.StoredRow{Key: key, Families: fams}, projection)
	if row.IsEmpty() {
		return nil, sgerrors.NewNotFound(key)
	}
	return row, nil
}

// PutRow merges the supplied fields, creating the row if absent.
func (f *Fake) PutRow(ctx context.Context, table, key string, fields map[string]map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.PutCalls++
	if f.FailPut != nil {
		return f.FailPut
	}
	f.merge(table, key, fields)
	return nil
}

// Scan returns a lazy iterator over a sorted-key snapshot of the table.
func (f *Fake) Scan(ctx context.Context, table string, opts store.ScanOptions) (store.RowIterator, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ScanCalls++
	if f.FailScan != nil {
		return nil, f.FailScan
	}
	if err := opts.Predicate.Validate(); err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(f.rows[table]))
	for k := range f.rows[table] {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var matched []*store.StoredRow
	for _, k := range keys {
		row := copyRow(k, f.rows[table][k])
		if !opts.Predicate.Matches(row) {
			continue
		}
		matched = append(matched, project(row, opts.Projection))
	}

	return &fakeIterator{ctx: ctx, rows: matched}, nil
}

// Close marks the handle closed.
func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CloseCalls++
	return nil
}

// RowCount returns the number of rows stored in the table.
func (f *Fake) RowCount(table string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows[table])
}

// SeedRow inserts a row directly, bypassing call accounting.
func (f *Fake) SeedRow(table, key string, families map[string]map[string]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.merge(table, key, families)
}

func (f *Fake) merge(table, key string, fields map[string]map[string]string) {
	if f.rows[table] == nil {
		f.rows[table] = make(map[string]map[string]map[string]string)
	}
	row := f.rows[table][key]
	if row == nil {
		row = make(map[string]map[string]string)
		f.rows[table][key] = row
	}
	for fam, quals := range fields {
		if row[fam] == nil {
			row[fam] = make(map[string]string)
		}
		for q, v := range quals {
			row[fam][q] = v
		}
	}
}

func copyRow(key string, fams map[string]map[string]string) *store.StoredRow {
	row := &store.StoredRow{Key: key, Families: make(map[string]map[string]string, len(fams))}
	for fam, quals := range fams {
		m := make(map[string]string, len(quals))
		for q, v := range quals {
			m[q] = v
		}
		row.Families[fam] = m
	}
	return row
}

func project(row *store.StoredRow, projection map[string][]string) *store.StoredRow {
	if projection == nil {
		return row
	}
	out := &store.StoredRow{Key: row.Key, Families: make(map[string]map[string]string)}
	for fam, quals := range projection {
		stored, ok := row.Families[fam]
		if !ok {
			continue
		}
		m := make(map[string]string)
		if len(quals) == 0 {
			for q, v := range stored {
				m[q] = v
			}
		} else {
			for _, q := range quals {
				if v, ok := stored[q]; ok {
					m[q] = v
				}
			}
		}
		if len(m) > 0 {
			out.Families[fam] = m
		}
	}
	return out
}

// fakeIterator walks the snapshot lazily so consumers exercise the same
// Next/Close discipline as against the real scanner.
type fakeIterator struct {
	ctx    context.Context
	rows   []*store.StoredRow
	pos    int
	closed bool
}

func (it *fakeIterator) Next() (*store.StoredRow, error) {
	if it.closed {
		return nil, sgerrors.ErrScanClosed
	}
	if err := it.ctx.Err(); err != nil {
		return nil, err
	}
	if it.pos >= len(it.rows) {
		return nil, io.EOF
	}
	row := it.rows[it.pos]
	it.pos++
	return row, nil
}

func (it *fakeIterator) Close() error {
	it.closed = true
	return nil
}
