package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/optionflow/internal/options"
	"github.com/wonny/optionflow/pkg/config"
	"github.com/wonny/optionflow/pkg/logger"
)

// fakeUpserter records batches and can fail on a chosen batch. Rows are
// kept keyed by (trading_date, contract_id) to mirror the merge
// semantics of the real store.
type fakeUpserter struct {
	batches   [][]options.Row
	rows      map[string]options.Row
	failBatch int // 1-based; 0 disables
}

func newFakeUpserter() *fakeUpserter {
	return &fakeUpserter{rows: make(map[string]options.Row)}
}

func (f *fakeUpserter) UpsertBatch(ctx context.Context, rows []options.Row) error {
	if f.failBatch > 0 && len(f.batches)+1 == f.failBatch {
		return errors.New("merge rejected")
	}
	f.batches = append(f.batches, rows)
	for _, row := range rows {
		key := row.TradingDate.Format("2006-01-02") + "/" + row.ContractID
		f.rows[key] = row
	}
	return nil
}

func testRows(n int) []options.Row {
	tradingDate := time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC)
	rows := make([]options.Row, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, options.Row{
			TradingDate: tradingDate,
			ContractID:  fmt.Sprintf("O:SPY%03d", i),
			Underlying:  "SPY",
			Score:       float64(i),
		})
	}
	return rows
}

func writerLogger() *logger.Logger {
	return logger.New(&config.Config{Env: "development", LogLevel: "error", LogFormat: "json"})
}

func TestWriteAllPartitionsInOrder(t *testing.T) {
	repo := newFakeUpserter()
	writer := NewBatchWriter(repo, writerLogger(), 4, 0)

	result, err := writer.WriteAll(context.Background(), testRows(10))
	require.NoError(t, err)

	assert.Equal(t, 10, result.Written)
	assert.Equal(t, 3, result.Batches)

	require.Len(t, repo.batches, 3)
	assert.Len(t, repo.batches[0], 4)
	assert.Len(t, repo.batches[1], 4)
	assert.Len(t, repo.batches[2], 2)

	// Input order preserved
	assert.Equal(t, "O:SPY000", repo.batches[0][0].ContractID)
	assert.Equal(t, "O:SPY009", repo.batches[2][1].ContractID)
}

func TestWriteAllPartialFailureIsolation(t *testing.T) {
	repo := newFakeUpserter()
	repo.failBatch = 2
	writer := NewBatchWriter(repo, writerLogger(), 4, 0)

	result, err := writer.WriteAll(context.Background(), testRows(12))
	require.Error(t, err)

	var batchErr *BatchError
	require.ErrorAs(t, err, &batchErr)
	assert.Equal(t, 2, batchErr.Batch)
	assert.Equal(t, 4, batchErr.Written, "partial success equals batch 1's size")

	// Batch 1 committed, batches 2 and 3 absent
	assert.Equal(t, 4, result.Written)
	assert.Len(t, repo.rows, 4)
	_, ok := repo.rows["2025-06-16/O:SPY000"]
	assert.True(t, ok)
	_, ok = repo.rows["2025-06-16/O:SPY008"]
	assert.False(t, ok, "batches after the failure must not be written")
}

func TestWriteAllRerunConverges(t *testing.T) {
	repo := newFakeUpserter()
	writer := NewBatchWriter(repo, writerLogger(), 5, 0)

	rows := testRows(7)
	_, err := writer.WriteAll(context.Background(), rows)
	require.NoError(t, err)

	// Second run with the same keys: row count must not drift
	_, err = writer.WriteAll(context.Background(), rows)
	require.NoError(t, err)
	assert.Len(t, repo.rows, 7)
}

func TestWriteAllEmptyInput(t *testing.T) {
	repo := newFakeUpserter()
	writer := NewBatchWriter(repo, writerLogger(), 4, 0)

	result, err := writer.WriteAll(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, result.Written)
	assert.Zero(t, result.Batches)
	assert.Empty(t, repo.batches)
}
