package services

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"time"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/trend"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sharpline/sharpline-go/internal/config"
	"github.com/sharpline/sharpline-go/internal/models"
	"github.com/sharpline/sharpline-go/internal/utils"
)

// trendSMAPeriod smooths the spread history before reading a drift
// direction off it. Three points is enough to damp a single bounce.
const trendSMAPeriod = 3

// trendEpsilon is the smoothed drift below which the trend reads flat.
const trendEpsilon = 0.25

// MovementAnalyzer classifies line movement for one bookmaker's
// snapshot history of a game. It is a pure derivation: replaying the
// same ordered snapshots always reproduces the same alerts, and the
// fingerprint carried on each alert lets the store drop replays.
type MovementAnalyzer struct {
	SignificantPoints   float64
	HighSeverityPoints  float64
	SteamPoints         float64
	SteamWindow         time.Duration
	SharpPoints         float64
	PublicMajorityLimit float64
	AlertTTL            time.Duration
}

// NewMovementAnalyzer creates an analyzer from the movement
// configuration, falling back to the standard thresholds for unset
// values.
func NewMovementAnalyzer(cfg config.MovementConfig) *MovementAnalyzer {
	a := &MovementAnalyzer{
		SignificantPoints:   cfg.SignificantPoints,
		HighSeverityPoints:  cfg.HighSeverityPoints,
		SteamPoints:         cfg.SteamPoints,
		SharpPoints:         cfg.SharpPoints,
		PublicMajorityLimit: cfg.PublicMajorityLimit,
		AlertTTL:            time.Duration(cfg.AlertTTLHours) * time.Hour,
	}
	if a.SignificantPoints <= 0 {
		a.SignificantPoints = 2.0
	}
	if a.HighSeverityPoints <= 0 {
		a.HighSeverityPoints = 3.0
	}
	if a.SteamPoints <= 0 {
		a.SteamPoints = 1.0
	}
	if a.SharpPoints <= 0 {
		a.SharpPoints = 1.5
	}
	if a.PublicMajorityLimit <= 0 {
		a.PublicMajorityLimit = 55.0
	}
	if a.AlertTTL <= 0 {
		a.AlertTTL = 24 * time.Hour
	}
	if window, err := time.ParseDuration(cfg.SteamWindow); err == nil && window > 0 {
		a.SteamWindow = window
	} else {
		a.SteamWindow = 15 * time.Minute
	}
	return a
}

// RequireHistory reports whether the history is deep enough to evaluate
// movement at all. Callers doing on-demand analysis surface this;
// the scheduled pipeline just skips the game.
func (a *MovementAnalyzer) RequireHistory(gameID string, history []models.OddsSnapshot) error {
	if len(history) < 2 {
		return utils.NewInsufficientHistoryError(gameID, 2, len(history))
	}
	return nil
}

// Analyze evaluates one bookmaker's snapshot history for a game and
// returns the alerts the latest snapshot triggers, at most one per
// classification type per market. history may arrive unsorted; public
// is the optional bet-split feed and nil simply disables the reverse
// line check.
func (a *MovementAnalyzer) Analyze(game *models.Game, history []models.OddsSnapshot, public *models.PublicBettingSnapshot) []models.LineMovementAlert {
	if game == nil || len(history) < 2 {
		return nil
	}

	ordered := make([]models.OddsSnapshot, len(history))
	copy(ordered, history)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].SnapshotAt.Before(ordered[j].SnapshotAt)
	})

	trendDir := a.spreadTrend(ordered)

	var alerts []models.LineMovementAlert
	for _, market := range []models.MarketType{models.MarketSpread, models.MarketTotal} {
		alerts = append(alerts, a.analyzeMarket(game, market, ordered, public, trendDir)...)
	}
	return alerts
}

// analyzeMarket runs the classification rules over the quoted series of
// one pointed market.
func (a *MovementAnalyzer) analyzeMarket(game *models.Game, market models.MarketType, ordered []models.OddsSnapshot, public *models.PublicBettingSnapshot, trendDir models.TrendDirection) []models.LineMovementAlert {
	series := make([]models.OddsSnapshot, 0, len(ordered))
	for i := range ordered {
		if ordered[i].HasMarket(market) {
			series = append(series, ordered[i])
		}
	}
	if len(series) < 2 {
		return nil
	}

	opening := series[0]
	current := series[len(series)-1]
	previous := series[len(series)-2]

	openLine := opening.MarketLine(market)
	currentLine := current.MarketLine(market)
	movement := currentLine.Sub(openLine)
	move := movement.InexactFloat64()
	absMove := movement.Abs().InexactFloat64()

	sharp := absMove > a.SharpPoints
	rlm := market == models.MarketSpread && a.isReverseLineMovement(move, public)

	base := models.LineMovementAlert{
		GameID:         game.ID,
		Market:         market,
		Bookmaker:      current.Bookmaker,
		OpeningLine:    openLine,
		CurrentLine:    currentLine,
		Movement:       movement,
		SharpMoney:     sharp,
		ReverseLine:    rlm,
		TrendDirection: trendDir,
		ExpiresAt:      a.expiry(game, current),
	}
	if !openLine.IsZero() {
		base.MovementPercent = movement.Div(openLine.Abs()).Mul(decimal.NewFromInt(100)).Round(2)
	}

	var alerts []models.LineMovementAlert

	if absMove > a.SignificantPoints {
		alert := base
		alert.ID = uuid.New()
		alert.AlertType = models.AlertSignificantMove
		alert.Severity = models.SeverityMedium
		if absMove > a.HighSeverityPoints {
			alert.Severity = models.SeverityHigh
		}
		alert.Fingerprint = alertFingerprint(game.ID, current.Bookmaker, market, alert.AlertType, movement, current.SnapshotAt)
		alerts = append(alerts, alert)
	}

	// Steam needs a previous snapshot distinct from the opening, so a
	// two-deep history stays silent rather than erroring.
	if len(series) >= 3 {
		step := currentLine.Sub(previous.MarketLine(market))
		elapsed := current.SnapshotAt.Sub(previous.SnapshotAt)
		if step.Abs().InexactFloat64() >= a.SteamPoints && elapsed < a.SteamWindow {
			alert := base
			alert.ID = uuid.New()
			alert.AlertType = models.AlertSteamMove
			alert.Severity = models.SeverityHigh
			alert.Fingerprint = alertFingerprint(game.ID, current.Bookmaker, market, alert.AlertType, movement, current.SnapshotAt)
			alerts = append(alerts, alert)
		}
	}

	// Reverse line movement rides along on other classifications; only
	// when nothing else fired does it stand alone.
	if rlm && len(alerts) == 0 {
		alert := base
		alert.ID = uuid.New()
		alert.AlertType = models.AlertReverseLine
		alert.Severity = models.SeverityMedium
		alert.Fingerprint = alertFingerprint(game.ID, current.Bookmaker, market, alert.AlertType, movement, current.SnapshotAt)
		alerts = append(alerts, alert)
	}

	return alerts
}

// isReverseLineMovement reports whether the spread moved toward the
// side holding the minority of public bets. The home line falling means
// the books are pricing home stronger, so a fall moves toward home and
// a rise toward away.
func (a *MovementAnalyzer) isReverseLineMovement(move float64, public *models.PublicBettingSnapshot) bool {
	if public == nil || move == 0 {
		return false
	}
	if public.Market != "" && public.Market != models.MarketSpread {
		return false
	}

	switch public.MajoritySide() {
	case models.WinnerHome:
		if public.HomeBetPercent < a.PublicMajorityLimit {
			return false
		}
		// Line rising while the crowd is on home: books moving toward away.
		return move > 0
	case models.WinnerAway:
		if public.AwayBetPercent < a.PublicMajorityLimit {
			return false
		}
		return move < 0
	default:
		return false
	}
}

// spreadTrend reads the drift direction off an SMA of the spread
// history. It is descriptive metadata; no classification depends on it.
func (a *MovementAnalyzer) spreadTrend(ordered []models.OddsSnapshot) models.TrendDirection {
	var lines []float64
	for i := range ordered {
		if ordered[i].HasMarket(models.MarketSpread) {
			lines = append(lines, ordered[i].SpreadHome.InexactFloat64())
		}
	}
	if len(lines) < trendSMAPeriod+1 {
		return models.TrendFlat
	}

	sma := trend.NewSmaWithPeriod[float64](trendSMAPeriod)
	smoothed := helper.ChanToSlice(sma.Compute(helper.SliceToChan(lines)))
	if len(smoothed) < 2 {
		return models.TrendFlat
	}

	drift := smoothed[len(smoothed)-1] - smoothed[0]
	switch {
	case drift < -trendEpsilon:
		return models.TrendTowardHome
	case drift > trendEpsilon:
		return models.TrendTowardAway
	default:
		return models.TrendFlat
	}
}

func (a *MovementAnalyzer) expiry(game *models.Game, current models.OddsSnapshot) time.Time {
	if !game.StartTime.IsZero() {
		return game.StartTime
	}
	return current.SnapshotAt.Add(a.AlertTTL)
}

// alertFingerprint hashes the identifying facts of a movement alert so
// replaying the same snapshots produces the same fingerprint and the
// store can drop duplicates.
func alertFingerprint(gameID, bookmaker string, market models.MarketType, alertType models.AlertType, movement decimal.Decimal, snapshotAt time.Time) string {
	input := strings.Join([]string{
		gameID,
		bookmaker,
		string(market),
		string(alertType),
		movement.Round(1).String(),
		snapshotAt.UTC().Format(time.RFC3339),
	}, "|")
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}
