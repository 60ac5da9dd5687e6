package store

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/optionflow/internal/options"
	"github.com/wonny/optionflow/pkg/logger"
)

// RowUpserter is the slice of the repository the batch writer needs.
type RowUpserter interface {
	UpsertBatch(ctx context.Context, rows []options.Row) error
}

// BatchError reports a failed batch write. Batches before the failed
// one stay committed; the writer never rolls back across batches.
type BatchError struct {
	Batch   int // 1-based index of the failed batch
	Written int // rows committed before the failure
	Err     error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("batch %d failed after %d rows written: %v", e.Batch, e.Written, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}

// WriteResult summarizes a completed write pass.
type WriteResult struct {
	Written int `json:"written"`
	Batches int `json:"batches"`
}

// BatchWriter partitions a run's rows into fixed-size batches and
// merges them sequentially. A batch failure short-circuits every later
// batch; the returned BatchError carries the partial-success count.
type BatchWriter struct {
	repo      RowUpserter
	logger    *logger.Logger
	batchSize int
	delay     time.Duration
}

// NewBatchWriter creates a batch writer.
func NewBatchWriter(repo RowUpserter, log *logger.Logger, batchSize int, delay time.Duration) *BatchWriter {
	if batchSize <= 0 {
		batchSize = 200
	}
	return &BatchWriter{
		repo:      repo,
		logger:    log,
		batchSize: batchSize,
		delay:     delay,
	}
}

// WriteAll writes every row in input order.
func (w *BatchWriter) WriteAll(ctx context.Context, rows []options.Row) (WriteResult, error) {
	result := WriteResult{}

	for start := 0; start < len(rows); start += w.batchSize {
		end := start + w.batchSize
		if end > len(rows) {
			end = len(rows)
		}
		batch := rows[start:end]
		batchNum := result.Batches + 1

		if start > 0 && w.delay > 0 {
			// Smooth write load between batches
			select {
			case <-ctx.Done():
				return result, &BatchError{Batch: batchNum, Written: result.Written, Err: ctx.Err()}
			case <-time.After(w.delay):
			}
		}

		if err := w.repo.UpsertBatch(ctx, batch); err != nil {
			w.logger.WithFields(map[string]interface{}{
				"batch":   batchNum,
				"written": result.Written,
				"error":   err.Error(),
			}).Error("Batch write failed, aborting remaining batches")
			return result, &BatchError{Batch: batchNum, Written: result.Written, Err: err}
		}

		result.Written += len(batch)
		result.Batches++

		w.logger.WithFields(map[string]interface{}{
			"batch": batchNum,
			"rows":  len(batch),
		}).Debug("Batch written")
	}

	return result, nil
}
