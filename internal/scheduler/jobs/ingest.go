package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/optionflow/internal/ingest"
	"github.com/wonny/optionflow/pkg/config"
	"github.com/wonny/optionflow/pkg/logger"
)

// ChainIngestJob runs the option-chain fetch-and-store pipeline on a
// schedule. The pipeline's own market gate decides whether a given
// run does any work, so the cron window only needs to bracket the
// trading session.
type ChainIngestJob struct {
	pipeline *ingest.Pipeline
	config   *config.Config
	logger   *logger.Logger
}

// NewChainIngestJob creates a new chain ingest job.
func NewChainIngestJob(p *ingest.Pipeline, cfg *config.Config, log *logger.Logger) *ChainIngestJob {
	return &ChainIngestJob{
		pipeline: p,
		config:   cfg,
		logger:   log,
	}
}

// Name returns the job name
func (j *ChainIngestJob) Name() string {
	return "chain_ingest"
}

// Schedule returns the cron schedule (every 30 minutes, 09:35-16:05 ET
// expressed in the host timezone; runs outside the session are skipped
// by the market gate).
func (j *ChainIngestJob) Schedule() string {
	return "0 5,35 9-16 * * MON-FRI"
}

// Run executes one fetch-and-store cycle.
func (j *ChainIngestJob) Run(ctx context.Context) error {
	symbol := j.config.Ingest.Symbol
	j.logger.WithField("symbol", symbol).Info("Starting scheduled chain ingest")

	result, err := j.pipeline.Run(ctx, symbol, false)
	if err != nil {
		return fmt.Errorf("chain ingest for %s: %w", symbol, err)
	}

	if result.Skipped {
		j.logger.WithFields(map[string]interface{}{
			"symbol": symbol,
			"reason": result.SkipReason,
		}).Info("Scheduled chain ingest skipped")
		return nil
	}

	j.logger.WithFields(map[string]interface{}{
		"symbol":    symbol,
		"contracts": result.ContractsFetched,
		"rows":      result.RowsWritten,
		"calls":     result.Calls,
		"puts":      result.Puts,
		"elapsed":   result.Elapsed.String(),
	}).Info("Scheduled chain ingest completed")

	return nil
}

// EODIngestJob runs a final forced snapshot shortly after the close so
// the day's row set reflects settlement values even when the last
// in-session run raced the closing auction.
type EODIngestJob struct {
	pipeline *ingest.Pipeline
	config   *config.Config
	logger   *logger.Logger
}

// NewEODIngestJob creates a new end-of-day ingest job.
func NewEODIngestJob(p *ingest.Pipeline, cfg *config.Config, log *logger.Logger) *EODIngestJob {
	return &EODIngestJob{
		pipeline: p,
		config:   cfg,
		logger:   log,
	}
}

// Name returns the job name
func (j *EODIngestJob) Name() string {
	return "eod_ingest"
}

// Schedule returns the cron schedule (16:15 on weekdays, with seconds)
func (j *EODIngestJob) Schedule() string {
	return "0 15 16 * * MON-FRI"
}

// Run executes the end-of-day ingest with the gate bypassed.
func (j *EODIngestJob) Run(ctx context.Context) error {
	symbol := j.config.Ingest.Symbol
	j.logger.WithField("symbol", symbol).Info("Starting end-of-day chain ingest")

	result, err := j.pipeline.Run(ctx, symbol, true)
	if err != nil {
		return fmt.Errorf("eod ingest for %s: %w", symbol, err)
	}

	j.logger.WithFields(map[string]interface{}{
		"symbol": symbol,
		"rows":   result.RowsWritten,
	}).Info("End-of-day chain ingest completed")

	return nil
}
