package services

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sharpline/sharpline-go/internal/config"
	"github.com/sharpline/sharpline-go/internal/models"
	"github.com/sharpline/sharpline-go/pkg/oddsmath"
)

// Arbitrage profit is locked at bet time, so the label does not vary
// with the numbers; book liquidity and limit risk are not modeled.
const arbitrageConfidence = models.ConfidenceHigh

// Middle confidence tracks how much of the score distribution the
// window captures.
const (
	middleHighProbability   = 0.25
	middleMediumProbability = 0.10
)

// maxPriceableAverage bounds the scoring averages the Poisson grid can
// price. Consensus lines beyond it (non-football sports) leave middles
// undetected rather than mispriced.
const maxPriceableAverage = 60.0

// OpportunityCalculator detects cross-book arbitrage and middle
// opportunities from the latest snapshot of each bookmaker. It is pure
// calculation with no storage or transport concerns.
type OpportunityCalculator struct {
	MinROIPercent  float64
	DefaultStake   decimal.Decimal
	MiddlesEnabled bool
	MinMiddleGap   float64
	MinMiddleProb  float64
}

// NewOpportunityCalculator creates a calculator from the arbitrage and
// middle configuration, falling back to workable defaults for unset
// values.
func NewOpportunityCalculator(arb config.ArbitrageConfig, middles config.MiddleConfig) *OpportunityCalculator {
	c := &OpportunityCalculator{
		MinROIPercent:  arb.MinROIPercent,
		DefaultStake:   decimal.NewFromFloat(arb.DefaultStake),
		MiddlesEnabled: middles.Enabled,
		MinMiddleGap:   middles.MinGapPoints,
		MinMiddleProb:  middles.MinProbability,
	}
	if c.DefaultStake.LessThanOrEqual(decimal.Zero) {
		c.DefaultStake = decimal.NewFromInt(1000)
	}
	if c.MinMiddleGap <= 0 {
		c.MinMiddleGap = 1.0
	}
	return c
}

// FindOpportunities scans every ordered pair of bookmakers in every
// market and returns the qualifying arbitrages and middles, ordered by
// descending ROI. Fewer than two books quoting a market yields no
// opportunities for it. A zero or negative totalStake falls back to the
// configured default stake.
func (c *OpportunityCalculator) FindOpportunities(game *models.Game, books []models.OddsSnapshot, totalStake decimal.Decimal) []models.Opportunity {
	if game == nil || len(books) < 2 {
		return nil
	}
	if totalStake.LessThanOrEqual(decimal.Zero) {
		totalStake = c.DefaultStake
	}

	homeAvg, awayAvg, priceable := consensusAverages(books)

	var opps []models.Opportunity
	for _, market := range []models.MarketType{models.MarketMoneyline, models.MarketSpread, models.MarketTotal} {
		quoted := booksQuoting(books, market)
		if len(quoted) < 2 {
			continue
		}
		opps = append(opps, c.scanMarket(game, market, quoted, totalStake, homeAvg, awayAvg, priceable)...)
	}

	sort.Slice(opps, func(i, j int) bool {
		return opps[i].ROIPercent.GreaterThan(opps[j].ROIPercent)
	})
	return opps
}

// scanMarket walks ordered bookmaker pairs: the first book always
// carries the home or over leg, the second the away or under leg, so
// both orientations of each pair get checked exactly once.
func (c *OpportunityCalculator) scanMarket(game *models.Game, market models.MarketType, quoted []models.OddsSnapshot, totalStake decimal.Decimal, homeAvg, awayAvg float64, priceable bool) []models.Opportunity {
	var opps []models.Opportunity
	for i := range quoted {
		for j := range quoted {
			if i == j {
				continue
			}
			first, second := &quoted[i], &quoted[j]

			if arb := c.checkArbitrage(game, market, first, second, totalStake); arb != nil {
				opps = append(opps, *arb)
			}
			if c.MiddlesEnabled && market != models.MarketMoneyline && priceable {
				if mid := c.checkMiddle(game, market, first, second, totalStake, homeAvg, awayAvg); mid != nil {
					opps = append(opps, *mid)
				}
			}
		}
	}
	return opps
}

// checkArbitrage tests the home/over price at first against the
// away/under price at second. Pointed markets only arbitrage cleanly
// when both books quote the same line; mismatched lines are middle
// territory, not guaranteed profit.
func (c *OpportunityCalculator) checkArbitrage(game *models.Game, market models.MarketType, first, second *models.OddsSnapshot, totalStake decimal.Decimal) *models.Opportunity {
	if market != models.MarketMoneyline && !first.MarketLine(market).Equal(second.MarketLine(market)) {
		return nil
	}

	firstOdds, _ := first.SideOdds(market)
	_, secondOdds := second.SideOdds(market)

	dec1, err := oddsmath.AmericanToDecimal(firstOdds)
	if err != nil {
		return nil
	}
	dec2, err := oddsmath.AmericanToDecimal(secondOdds)
	if err != nil {
		return nil
	}

	invSum := 1/dec1 + 1/dec2
	if invSum >= 1 {
		return nil
	}

	leg1, leg2 := equalizeStakes(totalStake, dec1, dec2)
	leg1.Bookmaker = first.Bookmaker
	leg1.Selection = frontSelection(game, market, first.MarketLine(market))
	leg1.AmericanOdds = firstOdds
	leg2.Bookmaker = second.Bookmaker
	leg2.Selection = backSelection(game, market, second.MarketLine(market))
	leg2.AmericanOdds = secondOdds

	// The cent rounding on stakes can leave the two payouts a hair
	// apart; the smaller one is the guaranteed floor.
	floor := decimal.Min(leg1.PotentialReturn, leg2.PotentialReturn)
	profit := floor.Sub(totalStake)
	roi := profit.Div(totalStake).Mul(decimal.NewFromInt(100)).Round(2)
	if roi.InexactFloat64() < c.MinROIPercent {
		return nil
	}

	opp := c.newOpportunity(game, models.OpportunityArbitrage, market, leg1, leg2, totalStake, profit, roi)
	opp.Confidence = arbitrageConfidence
	return &opp
}

// checkMiddle tests whether the home/over line at first and the
// away/under line at second leave a window where both legs cash. The
// window sits on the combined total for total markets and on the home
// winning margin for spreads.
func (c *OpportunityCalculator) checkMiddle(game *models.Game, market models.MarketType, first, second *models.OddsSnapshot, totalStake decimal.Decimal, homeAvg, awayAvg float64) *models.Opportunity {
	var lower, upper decimal.Decimal
	switch market {
	case models.MarketTotal:
		// Over at the lower line, under at the higher one.
		lower, upper = first.MarketLine(market), second.MarketLine(market)
	case models.MarketSpread:
		// Home -2.5 cashes above a 2.5 margin, away +3.5 below 3.5;
		// negating the home lines puts both bounds on the margin axis.
		lower, upper = first.MarketLine(market).Neg(), second.MarketLine(market).Neg()
	default:
		return nil
	}

	gap := upper.Sub(lower).InexactFloat64()
	if gap < c.MinMiddleGap {
		return nil
	}
	lo, hi := middleWindow(lower, upper)
	if lo > hi {
		return nil
	}

	var prob float64
	var err error
	if market == models.MarketTotal {
		prob, err = oddsmath.PoissonRangeProbability(homeAvg, awayAvg, lo, hi)
	} else {
		prob, err = oddsmath.PoissonMarginProbability(homeAvg, awayAvg, lo, hi)
	}
	if err != nil || prob < c.MinMiddleProb {
		return nil
	}

	firstOdds, _ := first.SideOdds(market)
	_, secondOdds := second.SideOdds(market)

	dec1, err := oddsmath.AmericanToDecimal(firstOdds)
	if err != nil {
		return nil
	}
	dec2, err := oddsmath.AmericanToDecimal(secondOdds)
	if err != nil {
		return nil
	}

	leg1, leg2 := equalizeStakes(totalStake, dec1, dec2)
	leg1.Bookmaker = first.Bookmaker
	leg1.Selection = frontSelection(game, market, first.MarketLine(market))
	leg1.AmericanOdds = firstOdds
	leg2.Bookmaker = second.Bookmaker
	leg2.Selection = backSelection(game, market, second.MarketLine(market))
	leg2.AmericanOdds = secondOdds

	// Both legs cash inside the window; outside it exactly one does,
	// so the single-leg payout is the worst case and its ROI is the
	// cost of holding the middle.
	bothHit := leg1.PotentialReturn.Add(leg2.PotentialReturn).Sub(totalStake)
	worst := decimal.Min(leg1.PotentialReturn, leg2.PotentialReturn).Sub(totalStake)
	roi := worst.Div(totalStake).Mul(decimal.NewFromInt(100)).Round(2)

	opp := c.newOpportunity(game, models.OpportunityMiddle, market, leg1, leg2, totalStake, bothHit, roi)
	opp.Confidence = middleConfidence(prob)
	opp.MiddleRange = &models.MiddleRange{Min: lo, Max: hi}
	opp.MiddleProbability = &prob
	return &opp
}

func (c *OpportunityCalculator) newOpportunity(game *models.Game, kind models.OpportunityKind, market models.MarketType, leg1, leg2 models.OpportunityLeg, totalStake, maxProfit, roi decimal.Decimal) models.Opportunity {
	return models.Opportunity{
		ID:         uuid.New(),
		Kind:       kind,
		Sport:      game.Sport,
		Market:     market,
		GameID:     game.ID,
		HomeTeam:   game.HomeTeam,
		AwayTeam:   game.AwayTeam,
		GameTime:   game.StartTime,
		Leg1:       leg1,
		Leg2:       leg2,
		TotalStake: totalStake,
		MaxProfit:  maxProfit.Round(2),
		ROIPercent: roi,
		DetectedAt: time.Now().UTC(),
	}
}

// equalizeStakes splits the total so both payouts match before
// rounding: stake1*dec1 == stake2*dec2. Stakes land on whole cents.
func equalizeStakes(total decimal.Decimal, dec1, dec2 float64) (models.OpportunityLeg, models.OpportunityLeg) {
	inv1, inv2 := 1/dec1, 1/dec2
	stake1 := total.Mul(decimal.NewFromFloat(inv1 / (inv1 + inv2))).Round(2)
	stake2 := total.Sub(stake1)

	leg1 := models.OpportunityLeg{
		DecimalOdds:     dec1,
		Stake:           stake1,
		PotentialReturn: stake1.Mul(decimal.NewFromFloat(dec1)).Round(2),
	}
	leg2 := models.OpportunityLeg{
		DecimalOdds:     dec2,
		Stake:           stake2,
		PotentialReturn: stake2.Mul(decimal.NewFromFloat(dec2)).Round(2),
	}
	return leg1, leg2
}

// middleWindow converts line bounds into the inclusive whole-number
// window where both legs win. A half-point line clears at the next
// half step; a whole-number line needs a full point because landing on
// it pushes rather than wins.
func middleWindow(lower, upper decimal.Decimal) (float64, float64) {
	lo := lower.InexactFloat64()
	if lower.IsInteger() {
		lo++
	} else {
		lo += 0.5
	}
	hi := upper.InexactFloat64()
	if upper.IsInteger() {
		hi--
	} else {
		hi -= 0.5
	}
	return lo, hi
}

// consensusAverages derives per-side scoring averages from the average
// quoted total and spread across books: the total splits evenly and
// the spread shifts the split toward the favorite. Without a quoted
// total, or beyond the grid the Poisson model prices, middles are not
// priceable.
func consensusAverages(books []models.OddsSnapshot) (float64, float64, bool) {
	var totalSum, spreadSum decimal.Decimal
	var totals, spreads int
	for i := range books {
		if books[i].HasMarket(models.MarketTotal) {
			totalSum = totalSum.Add(books[i].TotalLine)
			totals++
		}
		if books[i].HasMarket(models.MarketSpread) {
			spreadSum = spreadSum.Add(books[i].SpreadHome)
			spreads++
		}
	}
	if totals == 0 {
		return 0, 0, false
	}

	avgTotal := totalSum.InexactFloat64() / float64(totals)
	avgSpread := 0.0
	if spreads > 0 {
		avgSpread = spreadSum.InexactFloat64() / float64(spreads)
	}

	// A negative home spread means home is favored by that many points.
	homeAvg := (avgTotal - avgSpread) / 2
	awayAvg := (avgTotal + avgSpread) / 2
	if homeAvg < 0 || awayAvg < 0 || homeAvg > maxPriceableAverage || awayAvg > maxPriceableAverage {
		return 0, 0, false
	}
	return homeAvg, awayAvg, true
}

func booksQuoting(books []models.OddsSnapshot, market models.MarketType) []models.OddsSnapshot {
	quoted := make([]models.OddsSnapshot, 0, len(books))
	for i := range books {
		if books[i].HasMarket(market) {
			quoted = append(quoted, books[i])
		}
	}
	return quoted
}

func middleConfidence(probability float64) models.ConfidenceLevel {
	switch {
	case probability >= middleHighProbability:
		return models.ConfidenceHigh
	case probability >= middleMediumProbability:
		return models.ConfidenceMedium
	default:
		return models.ConfidenceLow
	}
}

// frontSelection names the home or over leg of a pair.
func frontSelection(game *models.Game, market models.MarketType, line decimal.Decimal) string {
	switch market {
	case models.MarketMoneyline:
		return game.HomeTeam + " ML"
	case models.MarketSpread:
		return game.HomeTeam + " " + signedLine(line)
	default:
		return "Over " + line.String()
	}
}

// backSelection names the away or under leg of a pair.
func backSelection(game *models.Game, market models.MarketType, line decimal.Decimal) string {
	switch market {
	case models.MarketMoneyline:
		return game.AwayTeam + " ML"
	case models.MarketSpread:
		return game.AwayTeam + " " + signedLine(line.Neg())
	default:
		return "Under " + line.String()
	}
}

func signedLine(line decimal.Decimal) string {
	if line.IsNegative() {
		return line.String()
	}
	return "+" + line.String()
}
