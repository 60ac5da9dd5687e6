package options

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/optionflow/internal/external/polygon"
)

func f(v float64) *float64 { return &v }

// fullSnapshot returns a snapshot with every field populated.
func fullSnapshot() polygon.ContractSnapshot {
	var snap polygon.ContractSnapshot
	snap.Details = polygon.ContractDetails{
		Ticker:         "O:SPY251219C00450000",
		StrikePrice:    f(450),
		ExpirationDate: "2025-12-19",
		ContractType:   "call",
		ExerciseStyle:  "american",
	}
	snap.Greeks = polygon.Greeks{
		Delta: f(0.55), Gamma: f(0.01), Theta: f(-0.08), Vega: f(0.25), Rho: f(0.03),
	}
	snap.LastQuote = polygon.LastQuote{Bid: f(12.4), Ask: f(12.6), BidSize: f(10), AskSize: f(8)}
	snap.LastTrade = polygon.LastTrade{Price: f(12.5), Size: f(2)}
	snap.Day = polygon.DayAggregate{Open: f(12.0), High: f(13.0), Low: f(11.8), Close: f(12.55), Volume: f(1500)}
	snap.OpenInterest = f(5200)
	snap.ImpliedVolatility = f(0.21)
	snap.UnderlyingAsset = polygon.UnderlyingAsset{Ticker: "SPY", Price: f(452.1)}
	return snap
}

func TestTransformFullSnapshot(t *testing.T) {
	tradingDate := time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC)
	now := time.Date(2025, 6, 16, 14, 30, 0, 0, time.UTC)

	row, ok := Transform(fullSnapshot(), "SPY", tradingDate, now)
	require.True(t, ok)

	assert.Equal(t, "O:SPY251219C00450000", row.ContractID)
	assert.Equal(t, "SPY", row.Underlying)
	assert.Equal(t, tradingDate, row.TradingDate)
	assert.Equal(t, "call", row.ContractType)
	assert.True(t, row.IsCall())
	assert.Equal(t, 450.0, row.Strike)
	assert.Equal(t, time.Date(2025, 12, 19, 0, 0, 0, 0, time.UTC), row.Expiration)
	assert.Equal(t, 12.55, row.Close)
	assert.Equal(t, 0.55, row.Delta)
	assert.Equal(t, -0.08, row.Theta)
	assert.Equal(t, 5200.0, row.OpenInterest)
	assert.Equal(t, now, row.LastUpdated)
	assert.NotZero(t, row.Score)
}

func TestTransformMandatoryFieldSkips(t *testing.T) {
	tradingDate := time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC)
	now := tradingDate

	tests := []struct {
		name   string
		mutate func(*polygon.ContractSnapshot)
	}{
		{
			name:   "missing expiration date",
			mutate: func(s *polygon.ContractSnapshot) { s.Details.ExpirationDate = "" },
		},
		{
			name:   "malformed expiration date",
			mutate: func(s *polygon.ContractSnapshot) { s.Details.ExpirationDate = "12/19/2025" },
		},
		{
			name:   "missing strike",
			mutate: func(s *polygon.ContractSnapshot) { s.Details.StrikePrice = nil },
		},
		{
			name:   "zero strike",
			mutate: func(s *polygon.ContractSnapshot) { s.Details.StrikePrice = f(0) },
		},
		{
			name: "missing close and last trade",
			mutate: func(s *polygon.ContractSnapshot) {
				s.Day.Close = nil
				s.LastTrade.Price = nil
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := fullSnapshot()
			tt.mutate(&snap)
			_, ok := Transform(snap, "SPY", tradingDate, now)
			assert.False(t, ok, "contract with a missing mandatory field must be skipped")
		})
	}
}

func TestTransformOptionalFieldsCoerceToZero(t *testing.T) {
	tradingDate := time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC)

	snap := fullSnapshot()
	snap.Greeks.Delta = nil
	snap.LastQuote = polygon.LastQuote{}
	snap.OpenInterest = nil
	snap.ImpliedVolatility = nil

	row, ok := Transform(snap, "SPY", tradingDate, tradingDate)
	require.True(t, ok, "missing optional fields must not skip the contract")

	assert.Zero(t, row.Delta)
	assert.Zero(t, row.Bid)
	assert.Zero(t, row.Ask)
	assert.Zero(t, row.OpenInterest)
	assert.Zero(t, row.ImpliedVolatility)
	// Untouched fields survive
	assert.Equal(t, -0.08, row.Theta)
}

func TestTransformFallsBackToLastTradePrice(t *testing.T) {
	tradingDate := time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC)

	snap := fullSnapshot()
	snap.Day.Close = nil

	row, ok := Transform(snap, "SPY", tradingDate, tradingDate)
	require.True(t, ok)

	// Close coerces to zero in the row, but the score still had a
	// representative price from the last trade.
	assert.Zero(t, row.Close)
	assert.Equal(t, 12.5, row.LastPrice)
	assert.NotZero(t, row.Score)
}

func TestDaysToExpiry(t *testing.T) {
	now := time.Date(2025, 6, 16, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		expiration time.Time
		want       int
	}{
		{"thirty days out", now.Add(30 * 24 * time.Hour), 30},
		{"partial day rounds up", now.Add(36 * time.Hour), 2},
		{"same instant floors at one", now, 1},
		{"already expired floors at one", now.Add(-48 * time.Hour), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DaysToExpiry(tt.expiration, now))
		})
	}
}

func TestScoreFormula(t *testing.T) {
	// theta=-0.05, gamma=0.1, delta=0.5, vega=0.2, price=1.52,
	// strike=100, 30 days out:
	//   thetaIncome  = 5
	//   premiumYield = (1.52/100) * (365/30) * 2 = 0.3699
	//   deltaRisk    = 25
	//   gammaRisk    = 100
	//   vegaRisk     = 2
	got := Score(ScoreInputs{
		Theta:        -0.05,
		Delta:        0.5,
		Gamma:        0.1,
		Vega:         0.2,
		Price:        1.52,
		Strike:       100,
		DaysToExpiry: 30,
	})
	assert.Equal(t, -121.63, got)
}

func TestScoreRoundsToTwoDecimals(t *testing.T) {
	got := Score(ScoreInputs{
		Theta:        -0.031,
		Price:        1,
		Strike:       100,
		DaysToExpiry: 365,
	})
	// 3.1 + 0.02 = 3.12
	assert.Equal(t, 3.12, got)
}

func TestScoreZeroGreeks(t *testing.T) {
	got := Score(ScoreInputs{Price: 2, Strike: 100, DaysToExpiry: 365})
	assert.Equal(t, 0.04, got)
}
