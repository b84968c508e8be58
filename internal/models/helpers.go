package models

import (
	"math"
	"math/big"
)

// payoutBasis matches the contract's fixed-point accounting: display
// multipliers are truncated to four decimals before being applied to the
// entry fee, so the estimate never drifts above what settlement would pay.
const payoutBasis = 10000

var weiPerToken = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// ScaledPayout computes entryFee * multiplier in wei using integer
// arithmetic: entryFee * floor(multiplier*10000) / 10000.
func ScaledPayout(entryFee *big.Int, multiplier float64) *big.Int {
	if entryFee == nil || entryFee.Sign() <= 0 || multiplier < 1.0 {
		return new(big.Int)
	}

	scaled := big.NewInt(int64(math.Floor(multiplier * payoutBasis)))
	out := new(big.Int).Mul(entryFee, scaled)
	return out.Div(out, big.NewInt(payoutBasis))
}

// FormatToken renders a wei amount as a decimal token string with four
// fractional digits, e.g. "3.0000".
func FormatToken(wei *big.Int) string {
	if wei == nil {
		return "0.0000"
	}
	return new(big.Rat).SetFrac(wei, weiPerToken).FloatString(4)
}

// ToResultRecord converts a settled GameResult into its history form.
func ToResultRecord(res *GameResult, endedAt int64) *ResultRecord {
	rec := &ResultRecord{
		PlayerWon: res.PlayerWon,
		Payout:    "0",
		EndedAt:   endedAt,
	}
	if res.GameID != nil {
		rec.GameID = res.GameID.String()
	}
	if res.Payout != nil {
		rec.Payout = res.Payout.String()
	}
	if res.FinalMultiplier != nil {
		rec.FinalMultiplier = res.FinalMultiplier.Int64()
	}
	return rec
}
