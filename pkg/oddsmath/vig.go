package oddsmath

// NoVigResult holds the vig-free probabilities for a two-way market.
type NoVigResult struct {
	ProbA      float64 `json:"prob_a"`
	ProbB      float64 `json:"prob_b"`
	VigPercent float64 `json:"vig_percent"`
}

// RemoveVig strips the bookmaker margin from a two-way market by
// normalizing both raw implied probabilities by their sum. The returned
// probabilities always sum to exactly 1. VigPercent is the margin the
// book built into the pair: (rawSum - 1) * 100. A negative VigPercent
// means the pair prices below 100% and is an arbitrage.
func RemoveVig(oddsA, oddsB int) (NoVigResult, error) {
	rawA, err := ImpliedProbability(oddsA)
	if err != nil {
		return NoVigResult{}, err
	}
	rawB, err := ImpliedProbability(oddsB)
	if err != nil {
		return NoVigResult{}, err
	}

	sum := rawA + rawB
	return NoVigResult{
		ProbA:      rawA / sum,
		ProbB:      rawB / sum,
		VigPercent: (sum - 1.0) * 100.0,
	}, nil
}
