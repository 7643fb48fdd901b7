package oddsmath

import "fmt"

// KellyResult holds a Kelly Criterion staking recommendation.
type KellyResult struct {
	Edge             float64  `json:"edge"`
	FullKelly        float64  `json:"full_kelly"`
	RecommendedStake float64  `json:"recommended_stake"`
	Warnings         []string `json:"warnings,omitempty"`
}

// KellyStake computes a fractional Kelly stake for a bet at decimal odds b
// with estimated true win probability p.
//
//	edge      = p*b - (1-p)
//	fullKelly = edge / (b - 1)
//	stake     = bankroll * fullKelly * fraction, clamped to >= 0
//
// A zero stake with a "no edge" warning is returned when edge <= 0; an
// over-betting warning is attached when the full Kelly fraction exceeds
// half the bankroll.
func KellyStake(decimalOdds, trueProb, bankroll, fraction float64) (KellyResult, error) {
	if decimalOdds <= 1.0 {
		return KellyResult{}, fmt.Errorf("invalid decimal odds: must be > 1.0")
	}
	if trueProb <= 0 || trueProb >= 1 {
		return KellyResult{}, fmt.Errorf("invalid probability: must be between 0 and 1")
	}
	if bankroll < 0 {
		return KellyResult{}, fmt.Errorf("invalid bankroll: must be >= 0")
	}
	if fraction <= 0 || fraction > 1 {
		return KellyResult{}, fmt.Errorf("invalid Kelly fraction: must be in (0, 1]")
	}

	edge := trueProb*decimalOdds - (1.0 - trueProb)
	fullKelly := edge / (decimalOdds - 1.0)

	result := KellyResult{
		Edge:      edge,
		FullKelly: fullKelly,
	}

	if edge <= 0 {
		result.RecommendedStake = 0
		result.Warnings = append(result.Warnings, "no edge - do not bet")
		return result, nil
	}

	result.RecommendedStake = bankroll * fullKelly * fraction
	if result.RecommendedStake < 0 {
		result.RecommendedStake = 0
	}

	if fullKelly > 0.5 {
		result.Warnings = append(result.Warnings, "full Kelly exceeds 50% of bankroll - over-betting risk")
	}

	return result, nil
}
