package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/optionflow/internal/external/polygon"
	"github.com/wonny/optionflow/internal/market"
	"github.com/wonny/optionflow/internal/options"
	"github.com/wonny/optionflow/internal/store"
	"github.com/wonny/optionflow/pkg/logger"
	"github.com/wonny/optionflow/pkg/redis"
)

// Gate is the market-window decision the pipeline consults before
// touching upstream.
type Gate interface {
	Check(now time.Time) market.Status
	TradingDate(now time.Time) time.Time
}

// Fetcher is the upstream provider surface the pipeline uses.
type Fetcher interface {
	FetchOptionChain(ctx context.Context, underlying string) ([]polygon.ContractSnapshot, error)
	FetchUnderlyingPrevClose(ctx context.Context, symbol string) (*polygon.UnderlyingPrice, error)
}

// RowWriter writes a run's rows in batches.
type RowWriter interface {
	WriteAll(ctx context.Context, rows []options.Row) (store.WriteResult, error)
}

// PriceStore persists underlying prices.
type PriceStore interface {
	UpsertUnderlyingPrice(ctx context.Context, price store.UnderlyingPrice) error
}

// RunResult reports what one run did, stage by stage.
type RunResult struct {
	Symbol           string        `json:"symbol"`
	TradingDate      string        `json:"trading_date,omitempty"`
	Skipped          bool          `json:"skipped"`
	SkipReason       string        `json:"skip_reason,omitempty"`
	Forced           bool          `json:"forced,omitempty"`
	ContractsFetched int           `json:"contracts_fetched"`
	ContractsSkipped int           `json:"contracts_skipped"`
	RowsWritten      int           `json:"rows_written"`
	Calls            int           `json:"calls"`
	Puts             int           `json:"puts"`
	Elapsed          time.Duration `json:"elapsed_ms"`
}

// Pipeline runs the sequential ingest: gate, paginated fetch, per
// contract transform, batched upsert. There is no cross-run lock;
// concurrent runs converge on the (trading_date, contract_id) merge
// key. The optional lease only avoids duplicate upstream work.
type Pipeline struct {
	gate       Gate
	fetcher    Fetcher
	writer     RowWriter
	priceStore PriceStore
	lease      *redis.Lease
	leaseTTL   time.Duration
	logger     *logger.Logger

	// now is swappable for tests
	now func() time.Time
}

// NewPipeline wires a pipeline.
func NewPipeline(gate Gate, fetcher Fetcher, writer RowWriter, priceStore PriceStore, log *logger.Logger) *Pipeline {
	return &Pipeline{
		gate:       gate,
		fetcher:    fetcher,
		writer:     writer,
		priceStore: priceStore,
		logger:     log,
		now:        time.Now,
	}
}

// WithLease enables the advisory per-underlying run lease.
func (p *Pipeline) WithLease(lease *redis.Lease, ttl time.Duration) *Pipeline {
	p.lease = lease
	p.leaseTTL = ttl
	return p
}

// Run executes fetch-and-store for one underlying. With force set the
// market window gate is bypassed; the deviation is logged.
func (p *Pipeline) Run(ctx context.Context, symbol string, force bool) (*RunResult, error) {
	start := p.now()
	result := &RunResult{Symbol: symbol, Forced: force}
	defer func() { result.Elapsed = p.now().Sub(start) }()

	if skipped := p.checkGate(result, start, force); skipped {
		return result, nil
	}

	if p.lease != nil && p.leaseTTL > 0 {
		release, acquired, err := p.lease.Acquire(ctx, symbol, p.leaseTTL)
		if err != nil {
			return result, fmt.Errorf("run lease: %w", err)
		}
		if !acquired {
			result.Skipped = true
			result.SkipReason = "another run holds the lease"
			p.logger.WithField("symbol", symbol).Warn("Run skipped, lease held elsewhere")
			return result, nil
		}
		defer release()
	}

	rows, err := p.fetchAndTransform(ctx, result, symbol)
	if err != nil {
		return result, err
	}

	writeResult, err := p.writer.WriteAll(ctx, rows)
	result.RowsWritten = writeResult.Written
	if err != nil {
		return result, fmt.Errorf("write rows for %s: %w", symbol, err)
	}

	p.storeUnderlyingPrice(ctx, symbol)

	p.logger.WithFields(map[string]interface{}{
		"symbol":  symbol,
		"fetched": result.ContractsFetched,
		"written": result.RowsWritten,
		"calls":   result.Calls,
		"puts":    result.Puts,
		"elapsed": p.now().Sub(start),
	}).Info("Ingest run completed")

	return result, nil
}

// FetchOnly executes the fetch and transform stages without writing.
// An optional expiry (YYYY-MM-DD) filters the returned rows.
func (p *Pipeline) FetchOnly(ctx context.Context, symbol, expiry string, force bool) (*RunResult, []options.Row, error) {
	start := p.now()
	result := &RunResult{Symbol: symbol, Forced: force}
	defer func() { result.Elapsed = p.now().Sub(start) }()

	if skipped := p.checkGate(result, start, force); skipped {
		return result, nil, nil
	}

	rows, err := p.fetchAndTransform(ctx, result, symbol)
	if err != nil {
		return result, nil, err
	}

	if expiry != "" {
		expiryDate, err := time.Parse("2006-01-02", expiry)
		if err != nil {
			return result, nil, fmt.Errorf("invalid expiry %q: %w", expiry, err)
		}
		filtered := rows[:0]
		for _, row := range rows {
			if row.Expiration.Equal(expiryDate) {
				filtered = append(filtered, row)
			}
		}
		rows = filtered
	}

	return result, rows, nil
}

// checkGate applies the market window gate and fills the result when
// the run is skipped.
func (p *Pipeline) checkGate(result *RunResult, now time.Time, force bool) bool {
	status := p.gate.Check(now)
	if status.Open {
		return false
	}

	if force {
		// Visible, logged deviation; never the default path
		p.logger.WithFields(map[string]interface{}{
			"symbol": result.Symbol,
			"reason": status.Reason,
		}).Warn("Market window gate bypassed by force flag")
		return false
	}

	result.Skipped = true
	result.SkipReason = "market closed: " + status.Reason
	p.logger.WithFields(map[string]interface{}{
		"symbol": result.Symbol,
		"reason": status.Reason,
	}).Info("Run skipped, market closed")
	return true
}

// fetchAndTransform walks the upstream pagination and maps every
// contract into a canonical row stamped with the run's trading date.
func (p *Pipeline) fetchAndTransform(ctx context.Context, result *RunResult, symbol string) ([]options.Row, error) {
	now := p.now()

	tradingDate := p.gate.TradingDate(now)
	if tradingDate.IsZero() {
		return nil, fmt.Errorf("trading date unavailable for %s", symbol)
	}
	result.TradingDate = tradingDate.Format("2006-01-02")

	snapshots, err := p.fetcher.FetchOptionChain(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("fetch chain for %s: %w", symbol, err)
	}
	result.ContractsFetched = len(snapshots)

	rows := make([]options.Row, 0, len(snapshots))
	for _, snap := range snapshots {
		row, ok := options.Transform(snap, symbol, tradingDate, now)
		if !ok {
			result.ContractsSkipped++
			continue
		}
		if row.IsCall() {
			result.Calls++
		} else {
			result.Puts++
		}
		rows = append(rows, row)
	}

	if result.ContractsSkipped > 0 {
		p.logger.WithFields(map[string]interface{}{
			"symbol":  symbol,
			"skipped": result.ContractsSkipped,
		}).Debug("Contracts skipped for missing mandatory fields")
	}

	return rows, nil
}

// storeUnderlyingPrice records the underlying's previous close on its
// own key. Failures here do not fail the run; the option rows are
// already committed and the price path is a separate entity.
func (p *Pipeline) storeUnderlyingPrice(ctx context.Context, symbol string) {
	price, err := p.fetcher.FetchUnderlyingPrevClose(ctx, symbol)
	if err != nil {
		p.logger.WithError(err).WithField("symbol", symbol).Warn("Underlying price fetch failed")
		return
	}

	record := store.UnderlyingPrice{
		Symbol:    price.Symbol,
		TradeDate: time.Date(price.AsOf.Year(), price.AsOf.Month(), price.AsOf.Day(), 0, 0, 0, 0, time.UTC),
		Price:     price.Price,
		AsOf:      price.AsOf,
	}
	if err := p.priceStore.UpsertUnderlyingPrice(ctx, record); err != nil {
		p.logger.WithError(err).WithField("symbol", symbol).Warn("Underlying price store failed")
	}
}
