package options

import (
	"math"
	"time"

	"github.com/wonny/optionflow/internal/external/polygon"
)

// Score formula weights. The formula is fixed and auditable: a row's
// score is always recomputed from the current snapshot, never carried
// over from a prior run.
const (
	thetaIncomeWeight = 100
	deltaRiskWeight   = 50
	gammaRiskWeight   = 1000
	vegaRiskWeight    = 10
)

// Transform maps one raw contract snapshot into a canonical row stamped
// with the run's trading date. It returns ok=false when a mandatory
// field (expiration date, strike, representative price) is missing; the
// contract is then excluded from output entirely. All other numeric
// fields coerce to zero when absent.
func Transform(snap polygon.ContractSnapshot, underlying string, tradingDate, now time.Time) (Row, bool) {
	expiration, err := time.Parse("2006-01-02", snap.Details.ExpirationDate)
	if err != nil {
		return Row{}, false
	}

	if snap.Details.StrikePrice == nil || *snap.Details.StrikePrice <= 0 {
		return Row{}, false
	}
	strike := *snap.Details.StrikePrice

	price, ok := representativePrice(snap)
	if !ok {
		return Row{}, false
	}

	row := Row{
		TradingDate: tradingDate,
		ContractID:  snap.Details.Ticker,
		Underlying:  underlying,

		ContractType:  snap.Details.ContractType,
		Strike:        strike,
		Expiration:    expiration,
		ExerciseStyle: snap.Details.ExerciseStyle,

		Bid:     coerceFloat(snap.LastQuote.Bid),
		Ask:     coerceFloat(snap.LastQuote.Ask),
		BidSize: coerceFloat(snap.LastQuote.BidSize),
		AskSize: coerceFloat(snap.LastQuote.AskSize),

		LastPrice: coerceFloat(snap.LastTrade.Price),
		LastSize:  coerceFloat(snap.LastTrade.Size),

		Open:   coerceFloat(snap.Day.Open),
		High:   coerceFloat(snap.Day.High),
		Low:    coerceFloat(snap.Day.Low),
		Close:  coerceFloat(snap.Day.Close),
		Volume: coerceFloat(snap.Day.Volume),

		OpenInterest:      coerceFloat(snap.OpenInterest),
		ImpliedVolatility: coerceFloat(snap.ImpliedVolatility),
		Delta:             coerceFloat(snap.Greeks.Delta),
		Gamma:             coerceFloat(snap.Greeks.Gamma),
		Theta:             coerceFloat(snap.Greeks.Theta),
		Vega:              coerceFloat(snap.Greeks.Vega),
		Rho:               coerceFloat(snap.Greeks.Rho),

		LastUpdated: now,
	}

	row.Score = Score(ScoreInputs{
		Theta:        row.Theta,
		Delta:        row.Delta,
		Gamma:        row.Gamma,
		Vega:         row.Vega,
		Price:        price,
		Strike:       strike,
		DaysToExpiry: DaysToExpiry(expiration, now),
	})

	return row, true
}

// representativePrice picks the price used for the premium yield term:
// the day close when the provider supplied one, otherwise the last
// trade price. Absence of both is a mandatory-field miss.
func representativePrice(snap polygon.ContractSnapshot) (float64, bool) {
	if snap.Day.Close != nil {
		return *snap.Day.Close, true
	}
	if snap.LastTrade.Price != nil {
		return *snap.LastTrade.Price, true
	}
	return 0, false
}

// DaysToExpiry is the calendar days until expiration, rounded up and
// floored at one so the yield term never divides by zero.
func DaysToExpiry(expiration, now time.Time) int {
	days := int(math.Ceil(expiration.Sub(now).Hours() / 24))
	if days < 1 {
		return 1
	}
	return days
}

// ScoreInputs are the snapshot fields the score is derived from.
type ScoreInputs struct {
	Theta        float64
	Delta        float64
	Gamma        float64
	Vega         float64
	Price        float64 // representative price (close or last trade)
	Strike       float64
	DaysToExpiry int
}

// Score computes the per-contract risk/income score:
//
//	thetaIncome  = |theta| * 100
//	premiumYield = (price / strike) * (365 / daysToExpiry) * 2
//	deltaRisk    = delta * 50
//	gammaRisk    = gamma * 1000
//	vegaRisk     = vega * 10
//	score        = round2(thetaIncome + premiumYield - deltaRisk - gammaRisk - vegaRisk)
func Score(in ScoreInputs) float64 {
	thetaIncome := math.Abs(in.Theta) * thetaIncomeWeight
	premiumYield := (in.Price / in.Strike) * (365.0 / float64(in.DaysToExpiry)) * 2
	deltaRisk := in.Delta * deltaRiskWeight
	gammaRisk := in.Gamma * gammaRiskWeight
	vegaRisk := in.Vega * vegaRiskWeight

	return round2(thetaIncome + premiumYield - deltaRisk - gammaRisk - vegaRisk)
}

// round2 rounds to two decimal places.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
