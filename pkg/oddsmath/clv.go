package oddsmath

// CLVResult describes how a bet's price compares to the closing line.
type CLVResult struct {
	YourImplied    float64 `json:"your_implied"`
	ClosingImplied float64 `json:"closing_implied"`
	BeatClose      bool    `json:"beat_close"`
	CLVPercent     float64 `json:"clv_percent"`
	Stake          float64 `json:"stake"`
}

// ClosingLineValue compares the implied probability of the odds a bet was
// placed at against the closing odds. BeatClose is true when the bet's
// implied probability is lower than the close (a better price than the
// market settled at). CLVPercent is the relative probability gap:
//
//	clv% = (closingImplied - yourImplied) / yourImplied * 100
func ClosingLineValue(yourOdds, closingOdds int, stake float64) (CLVResult, error) {
	yourImplied, err := ImpliedProbability(yourOdds)
	if err != nil {
		return CLVResult{}, err
	}
	closingImplied, err := ImpliedProbability(closingOdds)
	if err != nil {
		return CLVResult{}, err
	}

	return CLVResult{
		YourImplied:    yourImplied,
		ClosingImplied: closingImplied,
		BeatClose:      yourImplied < closingImplied,
		CLVPercent:     (closingImplied - yourImplied) / yourImplied * 100.0,
		Stake:          stake,
	}, nil
}
