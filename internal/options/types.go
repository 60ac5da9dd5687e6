package options

import "time"

// Row is the canonical, flattened representation of one options
// contract as persisted for a trading date. Identity is the pair
// (TradingDate, ContractID); everything else is replaced wholesale on
// each run's upsert.
type Row struct {
	// Identity (immutable once written)
	TradingDate time.Time `json:"trading_date"`
	ContractID  string    `json:"contract_id"`
	Underlying  string    `json:"underlying"`

	// Contract terms
	ContractType  string    `json:"contract_type"` // call, put
	Strike        float64   `json:"strike"`
	Expiration    time.Time `json:"expiration"`
	ExerciseStyle string    `json:"exercise_style"`

	// Quote
	Bid     float64 `json:"bid"`
	Ask     float64 `json:"ask"`
	BidSize float64 `json:"bid_size"`
	AskSize float64 `json:"ask_size"`

	// Trade
	LastPrice float64 `json:"last_price"`
	LastSize  float64 `json:"last_size"`

	// Day aggregate
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`

	// Derived / market state
	OpenInterest      float64 `json:"open_interest"`
	ImpliedVolatility float64 `json:"implied_volatility"`
	Delta             float64 `json:"delta"`
	Gamma             float64 `json:"gamma"`
	Theta             float64 `json:"theta"`
	Vega              float64 `json:"vega"`
	Rho               float64 `json:"rho"`

	Score       float64   `json:"score"`
	LastUpdated time.Time `json:"last_updated"`
}

// IsCall reports whether the row is a call contract.
func (r *Row) IsCall() bool {
	return r.ContractType == "call"
}
