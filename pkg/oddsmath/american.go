// Package oddsmath implements the betting math used across the pipeline:
// odds conversions, implied probability, vig removal, Kelly staking,
// expected value, closing line value and Poisson score distributions.
// All functions are pure and operate on float64; money is converted to
// decimal amounts by callers.
package oddsmath

import (
	"fmt"
	"math"
)

// AmericanToDecimal converts American odds to decimal odds.
// American +150 → Decimal 2.50
// American -150 → Decimal 1.67
func AmericanToDecimal(american int) (float64, error) {
	if american == 0 {
		return 0, fmt.Errorf("invalid American odds: cannot be 0")
	}

	if american > 0 {
		return float64(american)/100.0 + 1.0, nil
	}

	return 100.0/float64(-american) + 1.0, nil
}

// DecimalToAmerican converts decimal odds to American odds.
// Decimal 2.50 → American +150
// Decimal 1.67 → American -150
func DecimalToAmerican(decimal float64) (int, error) {
	if decimal <= 1.0 {
		return 0, fmt.Errorf("invalid decimal odds: must be > 1.0")
	}

	if decimal >= 2.0 {
		return int(math.Round((decimal - 1.0) * 100.0)), nil
	}

	return int(math.Round(-100.0 / (decimal - 1.0))), nil
}

// ImpliedProbability converts American odds to the bookmaker's implied
// win probability (vig included).
// +150 → 0.40, -150 → 0.60
func ImpliedProbability(american int) (float64, error) {
	if american == 0 {
		return 0, fmt.Errorf("invalid American odds: cannot be 0")
	}

	if american > 0 {
		return 100.0 / (float64(american) + 100.0), nil
	}

	abs := float64(-american)
	return abs / (abs + 100.0), nil
}

// DecimalToImpliedProbability converts decimal odds to implied probability.
func DecimalToImpliedProbability(decimal float64) (float64, error) {
	if decimal <= 0 {
		return 0, fmt.Errorf("invalid decimal odds: must be > 0")
	}

	return 1.0 / decimal, nil
}
