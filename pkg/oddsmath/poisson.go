package oddsmath

import (
	"fmt"
	"math"
	"sort"
)

// maxTeamScore bounds the Poisson score grid per side. 0-60 covers any
// realistic football score; mass beyond it is negligible for the scoring
// averages this model sees.
const maxTeamScore = 60

// ScoreProbability is one cell of the score grid.
type ScoreProbability struct {
	Home        int     `json:"home"`
	Away        int     `json:"away"`
	Probability float64 `json:"probability"`
}

// ScorePrediction summarizes the joint score distribution of a game under
// independent Poisson scoring for each side.
type ScorePrediction struct {
	HomeWinProb    float64            `json:"home_win_prob"`
	AwayWinProb    float64            `json:"away_win_prob"`
	TieProb        float64            `json:"tie_prob"`
	OverProb       float64            `json:"over_prob"`
	UnderProb      float64            `json:"under_prob"`
	PushProb       float64            `json:"push_prob"`
	MostLikelyHome int                `json:"most_likely_home"`
	MostLikelyAway int                `json:"most_likely_away"`
	TopScores      []ScoreProbability `json:"top_scores"`
}

// poissonPMF evaluates the Poisson probability mass at k in log space to
// stay stable for the large lambdas football totals produce.
func poissonPMF(k int, lambda float64) float64 {
	if lambda == 0 {
		if k == 0 {
			return 1
		}
		return 0
	}
	lg, _ := math.Lgamma(float64(k) + 1)
	return math.Exp(float64(k)*math.Log(lambda)-lambda-lg)
}

// PoissonScorePrediction builds the joint score distribution
// P(home=i, away=j) = Poisson(i; homeAvg) * Poisson(j; awayAvg) over a
// 0-60 grid per side and derives win, total and most-likely-score
// probabilities from it. OverProb sums cells with i+j strictly above
// totalLine, UnderProb strictly below; PushProb is the mass landing
// exactly on a whole-number line. TopScores returns the topN most likely
// cells sorted by descending probability (5 when topN <= 0).
func PoissonScorePrediction(homeAvg, awayAvg, totalLine float64, topN int) (ScorePrediction, error) {
	if homeAvg < 0 || awayAvg < 0 {
		return ScorePrediction{}, fmt.Errorf("invalid scoring average: must be >= 0")
	}
	if topN <= 0 {
		topN = 5
	}

	homePMF := make([]float64, maxTeamScore+1)
	awayPMF := make([]float64, maxTeamScore+1)
	for k := 0; k <= maxTeamScore; k++ {
		homePMF[k] = poissonPMF(k, homeAvg)
		awayPMF[k] = poissonPMF(k, awayAvg)
	}

	pred := ScorePrediction{}
	cells := make([]ScoreProbability, 0, (maxTeamScore+1)*(maxTeamScore+1))
	bestProb := -1.0

	for i := 0; i <= maxTeamScore; i++ {
		for j := 0; j <= maxTeamScore; j++ {
			p := homePMF[i] * awayPMF[j]

			switch {
			case i > j:
				pred.HomeWinProb += p
			case i < j:
				pred.AwayWinProb += p
			default:
				pred.TieProb += p
			}

			total := float64(i + j)
			switch {
			case total > totalLine:
				pred.OverProb += p
			case total < totalLine:
				pred.UnderProb += p
			default:
				pred.PushProb += p
			}

			if p > bestProb {
				bestProb = p
				pred.MostLikelyHome = i
				pred.MostLikelyAway = j
			}

			cells = append(cells, ScoreProbability{Home: i, Away: j, Probability: p})
		}
	}

	sort.Slice(cells, func(a, b int) bool {
		return cells[a].Probability > cells[b].Probability
	})
	if topN > len(cells) {
		topN = len(cells)
	}
	pred.TopScores = cells[:topN]

	return pred, nil
}

// PoissonRangeProbability returns the probability mass of the combined
// total landing inside [lo, hi] inclusive, under the same independent
// Poisson model. Used to price the window of a middle opportunity.
func PoissonRangeProbability(homeAvg, awayAvg, lo, hi float64) (float64, error) {
	if homeAvg < 0 || awayAvg < 0 {
		return 0, fmt.Errorf("invalid scoring average: must be >= 0")
	}
	if lo > hi {
		return 0, fmt.Errorf("invalid range: lo %.1f above hi %.1f", lo, hi)
	}

	homePMF := make([]float64, maxTeamScore+1)
	awayPMF := make([]float64, maxTeamScore+1)
	for k := 0; k <= maxTeamScore; k++ {
		homePMF[k] = poissonPMF(k, homeAvg)
		awayPMF[k] = poissonPMF(k, awayAvg)
	}

	var mass float64
	for i := 0; i <= maxTeamScore; i++ {
		for j := 0; j <= maxTeamScore; j++ {
			total := float64(i + j)
			if total >= lo && total <= hi {
				mass += homePMF[i] * awayPMF[j]
			}
		}
	}
	return mass, nil
}

// PoissonMarginProbability returns the probability mass of the winning
// margin (home minus away) landing inside [lo, hi] inclusive, under the
// same independent Poisson model. Used to price the window of a spread
// middle, where the bound sits on the margin rather than the total.
func PoissonMarginProbability(homeAvg, awayAvg, lo, hi float64) (float64, error) {
	if homeAvg < 0 || awayAvg < 0 {
		return 0, fmt.Errorf("invalid scoring average: must be >= 0")
	}
	if lo > hi {
		return 0, fmt.Errorf("invalid range: lo %.1f above hi %.1f", lo, hi)
	}

	homePMF := make([]float64, maxTeamScore+1)
	awayPMF := make([]float64, maxTeamScore+1)
	for k := 0; k <= maxTeamScore; k++ {
		homePMF[k] = poissonPMF(k, homeAvg)
		awayPMF[k] = poissonPMF(k, awayAvg)
	}

	var mass float64
	for i := 0; i <= maxTeamScore; i++ {
		for j := 0; j <= maxTeamScore; j++ {
			margin := float64(i - j)
			if margin >= lo && margin <= hi {
				mass += homePMF[i] * awayPMF[j]
			}
		}
	}
	return mass, nil
}
