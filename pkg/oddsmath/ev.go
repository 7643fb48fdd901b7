package oddsmath

// EVResult holds the expected value of a bet at American odds.
type EVResult struct {
	ExpectedValue    float64 `json:"expected_value"`
	ProfitIfWin      float64 `json:"profit_if_win"`
	BreakEvenWinRate float64 `json:"break_even_win_rate"`
}

// ExpectedValue computes the expected profit of staking an amount at the
// given American odds with estimated true win probability p.
//
//	profitIfWin = stake * (decimal - 1)
//	EV          = p*profitIfWin - (1-p)*stake
//
// BreakEvenWinRate is the implied probability of the quoted odds: the win
// rate at which the bet is exactly EV-neutral.
func ExpectedValue(americanOdds int, trueProb, stake float64) (EVResult, error) {
	decimal, err := AmericanToDecimal(americanOdds)
	if err != nil {
		return EVResult{}, err
	}

	breakEven, err := ImpliedProbability(americanOdds)
	if err != nil {
		return EVResult{}, err
	}

	profitIfWin := stake * (decimal - 1.0)
	return EVResult{
		ExpectedValue:    trueProb*profitIfWin - (1.0-trueProb)*stake,
		ProfitIfWin:      profitIfWin,
		BreakEvenWinRate: breakEven,
	}, nil
}
