// Package ingest implements the batched write path from the record
// source into the store.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/xtxerr/salesgrid/internal/logging"
	"github.com/xtxerr/salesgrid/internal/record"
	"github.com/xtxerr/salesgrid/internal/store"
)

// Batcher groups records into bounded batches and commits each batch as
// one client round trip. Per-record and per-batch failures are isolated:
// a bad record is skipped, a failed flush does not block later batches.
type Batcher struct {
	client store.Client
	table  string
	log    *slog.Logger

	// FlushConcurrency is the number of batch flushes allowed in
	// flight. Batches are independent units of work with no ordering
	// requirement between them; 1 keeps the write path sequential.
	FlushConcurrency int

	stats Stats
}

// Stats holds ingestion counters.
type Stats struct {
	RecordsAttempted atomic.Int64
	RecordsWritten   atomic.Int64
	RecordsSkipped   atomic.Int64
	BatchesFlushed   atomic.Int64
	BatchesFailed    atomic.Int64
}

// RecordFailure describes a record that could not be transformed.
type RecordFailure struct {
	OrderNumber int
	ProductCode string
	Err         string
}

// BatchFailure describes a batch whose flush failed.
type BatchFailure struct {
	Batch int // 0-based batch index
	Rows  int
	Err   string
}

// Report is the outcome of one Ingest call.
type Report struct {
	TotalAttempted int
	TotalSucceeded int
	RecordFailures []RecordFailure
	BatchFailures  []BatchFailure
}

// FailureCount returns the number of records that were not written.
func (r *Report) FailureCount() int {
	return r.TotalAttempted - r.TotalSucceeded
}

// New creates a Batcher writing to the given table.
func New(client store.Client, table string) *Batcher {
	return &Batcher{
		client:           client,
		table:            table,
		log:              logging.Component("ingest"),
		FlushConcurrency: 1,
	}
}

// Ingest writes records in consecutive batches of at most batchSize rows.
// Records that fail to transform are recorded and skipped; batches that
// fail to flush are recorded and ingestion continues with the next batch.
func (b *Batcher) Ingest(ctx context.Context, records []record.SalesRecord, batchSize int) (*Report, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", batchSize)
	}

	report := &Report{TotalAttempted: len(records)}
	b.stats.RecordsAttempted.Add(int64(len(records)))

	concurrency := b.FlushConcurrency
	if concurrency < 1 {
		concurrency = 1
	}
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(concurrency)

	var mu sync.Mutex // guards report counters across in-flight flushes

	batchIndex := 0
	batch := make([]store.StoredRow, 0, batchSize)

	flush := func(index int, rows []store.StoredRow) {
		group.Go(func() error {
			if err := b.client.BatchPut(gctx, b.table, rows); err != nil {
				b.stats.BatchesFailed.Add(1)
				b.log.Warn("batch flush failed", "batch", index, "rows", len(rows), "error", err)
				mu.Lock()
				report.BatchFailures = append(report.BatchFailures, BatchFailure{
					Batch: index,
					Rows:  len(rows),
					Err:   err.Error(),
				})
				mu.Unlock()
				return nil // failure isolation: keep flushing later batches
			}
			b.stats.BatchesFlushed.Add(1)
			b.stats.RecordsWritten.Add(int64(len(rows)))
			mu.Lock()
			report.TotalSucceeded += len(rows)
			mu.Unlock()
			b.log.Debug("batch flushed", "batch", index, "rows", len(rows))
			return nil
		})
	}

	for i := range records {
		if err := ctx.Err(); err != nil {
			group.Wait()
			return report, err
		}

		row, err := transform(&records[i])
		if err != nil {
			b.stats.RecordsSkipped.Add(1)
			mu.Lock()
			report.RecordFailures = append(report.RecordFailures, RecordFailure{
				OrderNumber: records[i].OrderNumber,
				ProductCode: records[i].ProductCode,
				Err:         err.Error(),
			})
			mu.Unlock()
			continue
		}

		batch = append(batch, *row)
		if len(batch) == batchSize {
			flush(batchIndex, batch)
			batchIndex++
			batch = make([]store.StoredRow, 0, batchSize)
		}
	}

	if len(batch) > 0 {
		flush(batchIndex, batch)
	}

	group.Wait()

	b.log.Info("ingestion finished",
		"attempted", report.TotalAttempted,
		"succeeded", report.TotalSucceeded,
		"record_failures", len(report.RecordFailures),
		"batch_failures", len(report.BatchFailures))

	return report, nil
}

// transform builds the stored row for one record: row key from the
// natural key, fields partitioned into the four families.
func transform(rec *record.SalesRecord) (*store.StoredRow, error) {
	key, err := store.EncodeKey(rec.OrderNumber, rec.ProductCode)
	if err != nil {
		return nil, err
	}
	fields, err := rec.Fields()
	if err != nil {
		return nil, err
	}
	return &store.StoredRow{Key: key, Families: fields}, nil
}

// StatsSnapshot returns current counters.
func (b *Batcher) StatsSnapshot() map[string]int64 {
	return map[string]int64{
		"records_attempted": b.stats.RecordsAttempted.Load(),
		"records_written":   b.stats.RecordsWritten.Load(),
		"records_skipped":   b.stats.RecordsSkipped.Load(),
		"batches_flushed":   b.stats.BatchesFlushed.Load(),
		"batches_failed":    b.stats.BatchesFailed.Load(),
	}
}
