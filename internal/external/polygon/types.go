package polygon

// ChainResponse is one page of the options chain snapshot endpoint.
// Pagination continues through NextURL until the provider stops
// returning one.
type ChainResponse struct {
	Status    string             `json:"status"`
	RequestID string             `json:"request_id"`
	Results   []ContractSnapshot `json:"results"`
	NextURL   string             `json:"next_url,omitempty"`
}

// ContractSnapshot is the raw upstream representation of one options
// contract. Every numeric leaf the provider may omit is a pointer so
// absent and zero stay distinguishable for the transform step.
type ContractSnapshot struct {
	Details           ContractDetails `json:"details"`
	Greeks            Greeks          `json:"greeks"`
	LastQuote         LastQuote       `json:"last_quote"`
	LastTrade         LastTrade       `json:"last_trade"`
	Day               DayAggregate    `json:"day"`
	OpenInterest      *float64        `json:"open_interest"`
	ImpliedVolatility *float64        `json:"implied_volatility"`
	UnderlyingAsset   UnderlyingAsset `json:"underlying_asset"`
}

// ContractDetails identifies the contract.
type ContractDetails struct {
	Ticker         string   `json:"ticker"`
	StrikePrice    *float64 `json:"strike_price"`
	ExpirationDate string   `json:"expiration_date"` // YYYY-MM-DD
	ContractType   string   `json:"contract_type"`   // call, put
	ExerciseStyle  string   `json:"exercise_style"`  // american, european
}

// Greeks holds the contract sensitivity measures.
type Greeks struct {
	Delta *float64 `json:"delta"`
	Gamma *float64 `json:"gamma"`
	Theta *float64 `json:"theta"`
	Vega  *float64 `json:"vega"`
	Rho   *float64 `json:"rho"`
}

// LastQuote is the most recent NBBO quote.
type LastQuote struct {
	Bid     *float64 `json:"bid"`
	Ask     *float64 `json:"ask"`
	BidSize *float64 `json:"bid_size"`
	AskSize *float64 `json:"ask_size"`
}

// LastTrade is the most recent trade.
type LastTrade struct {
	Price *float64 `json:"price"`
	Size  *float64 `json:"size"`
}

// DayAggregate is the current day OHLCV aggregate.
type DayAggregate struct {
	Open   *float64 `json:"open"`
	High   *float64 `json:"high"`
	Low    *float64 `json:"low"`
	Close  *float64 `json:"close"`
	Volume *float64 `json:"volume"`
	VWAP   *float64 `json:"vwap"`
}

// UnderlyingAsset references the underlying instrument.
type UnderlyingAsset struct {
	Ticker string   `json:"ticker"`
	Price  *float64 `json:"price"`
}

// PrevCloseResponse is the previous-close aggregate for an equity ticker.
type PrevCloseResponse struct {
	Status  string         `json:"status"`
	Ticker  string         `json:"ticker"`
	Results []PrevCloseBar `json:"results"`
}

// PrevCloseBar is one daily bar from the previous-close endpoint.
type PrevCloseBar struct {
	Close     float64 `json:"c"`
	Open      float64 `json:"o"`
	High      float64 `json:"h"`
	Low       float64 `json:"l"`
	Volume    float64 `json:"v"`
	Timestamp int64   `json:"t"` // epoch millis
}
