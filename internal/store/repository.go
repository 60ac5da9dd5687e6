package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/optionflow/internal/options"
)

// Repository persists canonical option rows and underlying prices.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new store repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// EnsureSchema creates the storage tables when absent. The primary key
// on (trading_date, contract_id) is what makes re-runs idempotent: the
// merge below converges on it instead of relying on any run-level lock.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	ddl := `
		CREATE TABLE IF NOT EXISTS option_chain_daily (
			trading_date       DATE             NOT NULL,
			contract_id        TEXT             NOT NULL,
			underlying         TEXT             NOT NULL,
			contract_type      TEXT             NOT NULL,
			strike             DOUBLE PRECISION NOT NULL,
			expiration         DATE             NOT NULL,
			exercise_style     TEXT             NOT NULL DEFAULT '',
			bid                DOUBLE PRECISION NOT NULL DEFAULT 0,
			ask                DOUBLE PRECISION NOT NULL DEFAULT 0,
			bid_size           DOUBLE PRECISION NOT NULL DEFAULT 0,
			ask_size           DOUBLE PRECISION NOT NULL DEFAULT 0,
			last_price         DOUBLE PRECISION NOT NULL DEFAULT 0,
			last_size          DOUBLE PRECISION NOT NULL DEFAULT 0,
			open_price         DOUBLE PRECISION NOT NULL DEFAULT 0,
			high_price         DOUBLE PRECISION NOT NULL DEFAULT 0,
			low_price          DOUBLE PRECISION NOT NULL DEFAULT 0,
			close_price        DOUBLE PRECISION NOT NULL DEFAULT 0,
			volume             DOUBLE PRECISION NOT NULL DEFAULT 0,
			open_interest      DOUBLE PRECISION NOT NULL DEFAULT 0,
			implied_volatility DOUBLE PRECISION NOT NULL DEFAULT 0,
			delta              DOUBLE PRECISION NOT NULL DEFAULT 0,
			gamma              DOUBLE PRECISION NOT NULL DEFAULT 0,
			theta              DOUBLE PRECISION NOT NULL DEFAULT 0,
			vega               DOUBLE PRECISION NOT NULL DEFAULT 0,
			rho                DOUBLE PRECISION NOT NULL DEFAULT 0,
			score              DOUBLE PRECISION NOT NULL DEFAULT 0,
			last_updated       TIMESTAMPTZ      NOT NULL,
			PRIMARY KEY (trading_date, contract_id)
		);
		CREATE INDEX IF NOT EXISTS idx_option_chain_underlying_expiry
			ON option_chain_daily (underlying, expiration);
		CREATE TABLE IF NOT EXISTS underlying_prices (
			symbol     TEXT             NOT NULL,
			trade_date DATE             NOT NULL,
			price      DOUBLE PRECISION NOT NULL,
			as_of      TIMESTAMPTZ      NOT NULL,
			PRIMARY KEY (symbol, trade_date)
		);
	`
	if _, err := r.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// optionRowColumns is the insert column order for option_chain_daily.
var optionRowColumns = []string{
	"trading_date", "contract_id", "underlying", "contract_type",
	"strike", "expiration", "exercise_style",
	"bid", "ask", "bid_size", "ask_size",
	"last_price", "last_size",
	"open_price", "high_price", "low_price", "close_price", "volume",
	"open_interest", "implied_volatility",
	"delta", "gamma", "theta", "vega", "rho",
	"score", "last_updated",
}

// Mutable fields replaced on conflict. Identity columns are left alone.
var optionRowUpdateColumns = []string{
	"underlying", "contract_type", "strike", "expiration", "exercise_style",
	"bid", "ask", "bid_size", "ask_size",
	"last_price", "last_size",
	"open_price", "high_price", "low_price", "close_price", "volume",
	"open_interest", "implied_volatility",
	"delta", "gamma", "theta", "vega", "rho",
	"score", "last_updated",
}

// UpsertBatch merges one batch of rows in a single statement keyed on
// (trading_date, contract_id): matched rows have every mutable field
// overwritten, unmatched rows are inserted.
func (r *Repository) UpsertBatch(ctx context.Context, rows []options.Row) error {
	if len(rows) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString("INSERT INTO option_chain_daily (")
	sb.WriteString(strings.Join(optionRowColumns, ", "))
	sb.WriteString(") VALUES ")

	args := make([]interface{}, 0, len(rows)*len(optionRowColumns))
	for i, row := range rows {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(")
		for j := range optionRowColumns {
			if j > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "$%d", i*len(optionRowColumns)+j+1)
		}
		sb.WriteString(")")

		args = append(args,
			row.TradingDate, row.ContractID, row.Underlying, row.ContractType,
			row.Strike, row.Expiration, row.ExerciseStyle,
			row.Bid, row.Ask, row.BidSize, row.AskSize,
			row.LastPrice, row.LastSize,
			row.Open, row.High, row.Low, row.Close, row.Volume,
			row.OpenInterest, row.ImpliedVolatility,
			row.Delta, row.Gamma, row.Theta, row.Vega, row.Rho,
			row.Score, row.LastUpdated,
		)
	}

	sb.WriteString(" ON CONFLICT (trading_date, contract_id) DO UPDATE SET ")
	for i, col := range optionRowUpdateColumns {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s = EXCLUDED.%s", col, col)
	}

	if _, err := r.pool.Exec(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("upsert option rows: %w", err)
	}
	return nil
}

// DistinctExpiries lists the distinct expiration dates stored for an
// underlying, ascending.
func (r *Repository) DistinctExpiries(ctx context.Context, underlying string) ([]time.Time, error) {
	query := `
		SELECT DISTINCT expiration
		FROM option_chain_daily
		WHERE underlying = $1
		ORDER BY expiration ASC
	`

	rows, err := r.pool.Query(ctx, query, underlying)
	if err != nil {
		return nil, fmt.Errorf("distinct expiries: %w", err)
	}
	defer rows.Close()

	var expiries []time.Time
	for rows.Next() {
		var expiry time.Time
		if err := rows.Scan(&expiry); err != nil {
			return nil, err
		}
		expiries = append(expiries, expiry)
	}
	return expiries, rows.Err()
}

// GetByExpiry returns the rows for one expiration date, ordered by
// contract type, then strike, then recency.
func (r *Repository) GetByExpiry(ctx context.Context, underlying string, expiry time.Time) ([]options.Row, error) {
	query := `
		SELECT trading_date, contract_id, underlying, contract_type,
		       strike, expiration, exercise_style,
		       bid, ask, bid_size, ask_size,
		       last_price, last_size,
		       open_price, high_price, low_price, close_price, volume,
		       open_interest, implied_volatility,
		       delta, gamma, theta, vega, rho,
		       score, last_updated
		FROM option_chain_daily
		WHERE underlying = $1 AND expiration = $2
		ORDER BY contract_type ASC, strike ASC, last_updated DESC
	`

	rows, err := r.pool.Query(ctx, query, underlying, expiry)
	if err != nil {
		return nil, fmt.Errorf("get by expiry: %w", err)
	}
	defer rows.Close()

	var result []options.Row
	for rows.Next() {
		var row options.Row
		if err := rows.Scan(
			&row.TradingDate, &row.ContractID, &row.Underlying, &row.ContractType,
			&row.Strike, &row.Expiration, &row.ExerciseStyle,
			&row.Bid, &row.Ask, &row.BidSize, &row.AskSize,
			&row.LastPrice, &row.LastSize,
			&row.Open, &row.High, &row.Low, &row.Close, &row.Volume,
			&row.OpenInterest, &row.ImpliedVolatility,
			&row.Delta, &row.Gamma, &row.Theta, &row.Vega, &row.Rho,
			&row.Score, &row.LastUpdated,
		); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

// UnderlyingPrice is the stored price record for an underlying symbol.
type UnderlyingPrice struct {
	Symbol    string    `json:"symbol"`
	TradeDate time.Time `json:"trade_date"`
	Price     float64   `json:"price"`
	AsOf      time.Time `json:"as_of"`
}

// UpsertUnderlyingPrice merges one underlying price keyed by
// (symbol, trade_date).
func (r *Repository) UpsertUnderlyingPrice(ctx context.Context, price UnderlyingPrice) error {
	query := `
		INSERT INTO underlying_prices (symbol, trade_date, price, as_of)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (symbol, trade_date) DO UPDATE SET
			price = EXCLUDED.price,
			as_of = EXCLUDED.as_of
	`

	if _, err := r.pool.Exec(ctx, query, price.Symbol, price.TradeDate, price.Price, price.AsOf); err != nil {
		return fmt.Errorf("upsert underlying price: %w", err)
	}
	return nil
}

// LatestUnderlyingPrice returns the most recent price recorded for the
// underlying.
func (r *Repository) LatestUnderlyingPrice(ctx context.Context, symbol string) (*UnderlyingPrice, error) {
	query := `
		SELECT symbol, trade_date, price, as_of
		FROM underlying_prices
		WHERE symbol = $1
		ORDER BY trade_date DESC
		LIMIT 1
	`

	var price UnderlyingPrice
	err := r.pool.QueryRow(ctx, query, symbol).Scan(
		&price.Symbol, &price.TradeDate, &price.Price, &price.AsOf,
	)
	if err != nil {
		return nil, err
	}
	return &price, nil
}
