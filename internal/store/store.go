// Package store defines the column-family store model: the client
// capability set, the stored row shape, the row-key codec, and the
// structured scan predicate.
//
// The store handle is always passed explicitly; nothing in this package
// keeps ambient connection state.
package store

import "context"

// StoredRow is one row of the table: a key plus named fields partitioned
// into column families. Families are write-independent: any subset may
// be updated without touching the others.
type StoredRow struct {
	Key string

	// Families maps family -> qualifier -> value.
	Families map[string]map[string]string
}

// Value returns the value of family:qualifier, and whether it is present.
func (r *StoredRow) Value(family, qualifier string) (string, bool) {
	if r == nil {
		return "", false
	}
	quals, ok := r.Families[family]
	if !ok {
		return "", false
	}
	v, ok := quals[qualifier]
	return v, ok
}

// IsEmpty returns true if the row carries no fields.
func (r *StoredRow) IsEmpty() bool {
	if r == nil {
		return true
	}
	for _, quals := range r.Families {
		if len(quals) > 0 {
			return false
		}
	}
	return true
}

// ScanOptions controls a range scan.
type ScanOptions struct {
	// Predicate is evaluated server-side; nil scans everything.
	Predicate *ScanPredicate

	// Projection limits the returned columns to family -> qualifiers.
	// A family mapped to an empty slice returns the whole family.
	// nil returns all columns.
	Projection map[string][]string
}

// RowIterator is a lazy forward pass over scan results in store-native
// key order. A scan is not restartable; resuming requires a fresh Scan.
//
// Next returns io.EOF after the last row. Close releases server-side
// scanner resources and must be called on every exit path, including
// early termination.
type RowIterator interface {
	Next() (*StoredRow, error)
	Close() error
}

// Client is the store capability set the pipeline needs. The production
// implementation is the HBase client in this package; tests use an
// in-memory fake.
type Client interface {
	// TableExists reports whether the named table exists.
	TableExists(ctx context.Context, table string) (bool, error)

	// CreateTable creates the table with the given column families.
	CreateTable(ctx context.Context, table string, families []string) error

	// BatchPut writes a group of rows in one client round trip.
	// The store does not guarantee cross-row atomicity within the batch.
	BatchPut(ctx context.Context, table string, rows []StoredRow) error

	// GetRow reads one row by key. Absent rows return errors.ErrNotFound.
	GetRow(ctx context.Context, table, key string, projection map[string][]string) (*StoredRow, error)

	// PutRow writes the supplied fields of one row, leaving all other
	// stored fields untouched. Writing to an absent key creates it.
	PutRow(ctx context.Context, table, key string, fields map[string]map[string]string) error

	// Scan opens a lazy scan over the table.
	Scan(ctx context.Context, table string, opts ScanOptions) (RowIterator, error)

	// Close releases the connection. Safe to call more than once.
	Close() error
}
