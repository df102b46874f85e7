package sizing

import (
	"fmt"
	"math"

	"RoboInvestor/internal/model"
)

// InvestmentDollars sizes a purchase from the gap between the account and target balance.
//
// The gap is scaled by exp(gap/target) and by aggression, then by the square of the
// percentage move, so the result grows quadratically with the move in either direction.
// A balance below target yields a negative amount, which callers treat as no buy.
func InvestmentDollars(accountBalance, targetBalance, aggression, percentChange float64) (float64, error) {
	if targetBalance == 0 {
		return 0, fmt.Errorf("%w: target account balance is zero", model.ErrInvalidParameter)
	}
	difference := accountBalance - targetBalance
	percentOver := difference / targetBalance
	multiplier := difference * math.Exp(percentOver) * aggression
	return multiplier * percentChange * percentChange, nil
}

// Shares returns how many whole shares dollars buys at price. Never negative.
func Shares(dollars, price float64) int64 {
	if dollars <= 0 || price <= 0 {
		return 0
	}
	return int64(math.Floor(dollars / price))
}
