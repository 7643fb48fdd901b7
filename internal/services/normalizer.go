package services

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sharpline/sharpline-go/internal/cache"
	"github.com/sharpline/sharpline-go/internal/models"
	"github.com/sharpline/sharpline-go/internal/providers"
	"github.com/sharpline/sharpline-go/internal/utils"
)

// Neutral situational defaults for games the feed carries no metadata
// for. They land in no calibration bucket, so unknown context never
// fakes a situational edge.
const (
	defaultRestDays     = 7
	defaultTemperatureF = 70.0
	defaultWindMph      = 5.0
)

// Normalizer maps raw provider payloads onto canonical games, odds
// snapshots and final scores. Team names resolve through the alias
// cache; a name it cannot resolve fails the item rather than guessing.
type Normalizer struct {
	teams  cache.TeamCache
	source string
}

// NewNormalizer creates a normalizer resolving names through the given
// team cache. Source names the upstream feed in team-match errors.
func NewNormalizer(teams cache.TeamCache, source string) *Normalizer {
	return &Normalizer{teams: teams, source: source}
}

// NormalizedGame bundles one game with the book snapshots that survived
// normalization and the per-market drops collected along the way.
type NormalizedGame struct {
	Game      *models.Game
	Snapshots []models.OddsSnapshot
	Dropped   []error
}

// NormalizeGame maps one raw odds payload. Either team failing alias
// resolution fails the whole game with a team-match error; malformed
// book quotes are dropped per market and reported in Dropped.
func (n *Normalizer) NormalizeGame(raw providers.RawGameOdds, fetchedAt time.Time) (*NormalizedGame, error) {
	home, ok := n.teams.Resolve(raw.HomeTeam)
	if !ok {
		return nil, utils.NewTeamMatchError(raw.HomeTeam, n.source)
	}
	away, ok := n.teams.Resolve(raw.AwayTeam)
	if !ok {
		return nil, utils.NewTeamMatchError(raw.AwayTeam, n.source)
	}

	game := &models.Game{
		ID:           raw.ID,
		Sport:        models.Sport(raw.SportKey),
		HomeTeam:     home,
		AwayTeam:     away,
		StartTime:    raw.CommenceTime.UTC(),
		HomeRestDays: defaultRestDays,
		AwayRestDays: defaultRestDays,
		TemperatureF: defaultTemperatureF,
		WindMph:      defaultWindMph,
	}

	normalized := &NormalizedGame{Game: game}
	for _, book := range raw.Bookmakers {
		snapshot, dropped := n.normalizeBook(raw, book, fetchedAt)
		normalized.Dropped = append(normalized.Dropped, dropped...)
		if snapshot != nil {
			normalized.Snapshots = append(normalized.Snapshots, *snapshot)
		}
	}
	return normalized, nil
}

// normalizeBook maps one bookmaker's markets onto a snapshot. A book
// with no surviving market yields no snapshot at all.
func (n *Normalizer) normalizeBook(raw providers.RawGameOdds, book providers.RawBookmaker, fetchedAt time.Time) (*models.OddsSnapshot, []error) {
	snapshotAt := book.LastUpdate
	if snapshotAt.IsZero() {
		snapshotAt = fetchedAt
	}

	snapshot := &models.OddsSnapshot{
		ID:         uuid.New(),
		GameID:     raw.ID,
		Bookmaker:  book.Key,
		SnapshotAt: snapshotAt.UTC(),
		CreatedAt:  fetchedAt.UTC(),
	}

	var dropped []error
	quoted := 0
	for _, market := range book.Markets {
		var err error
		switch market.Key {
		case providers.MarketKeyH2H:
			err = applyMoneyline(snapshot, raw, book.Key, market)
		case providers.MarketKeySpreads:
			err = applySpread(snapshot, raw, book.Key, market)
		case providers.MarketKeyTotals:
			err = applyTotal(snapshot, book.Key, market)
		default:
			continue
		}
		if err != nil {
			dropped = append(dropped, err)
			continue
		}
		quoted++
	}

	if quoted == 0 {
		return nil, dropped
	}
	return snapshot, dropped
}

func applyMoneyline(s *models.OddsSnapshot, raw providers.RawGameOdds, book string, market providers.RawMarket) error {
	homeOutcome := findTeamOutcome(market.Outcomes, raw.HomeTeam)
	awayOutcome := findTeamOutcome(market.Outcomes, raw.AwayTeam)
	if homeOutcome == nil || homeOutcome.Price == 0 {
		return utils.NewMalformedQuoteError(book, string(models.MarketMoneyline), "home price")
	}
	if awayOutcome == nil || awayOutcome.Price == 0 {
		return utils.NewMalformedQuoteError(book, string(models.MarketMoneyline), "away price")
	}
	s.MoneylineHome = americanPrice(homeOutcome.Price)
	s.MoneylineAway = americanPrice(awayOutcome.Price)
	return nil
}

func applySpread(s *models.OddsSnapshot, raw providers.RawGameOdds, book string, market providers.RawMarket) error {
	homeOutcome := findTeamOutcome(market.Outcomes, raw.HomeTeam)
	awayOutcome := findTeamOutcome(market.Outcomes, raw.AwayTeam)
	if homeOutcome == nil || homeOutcome.Price == 0 {
		return utils.NewMalformedQuoteError(book, string(models.MarketSpread), "home price")
	}
	if awayOutcome == nil || awayOutcome.Price == 0 {
		return utils.NewMalformedQuoteError(book, string(models.MarketSpread), "away price")
	}
	if homeOutcome.Point == nil {
		return utils.NewMalformedQuoteError(book, string(models.MarketSpread), "home line")
	}
	s.SpreadHome = decimal.NewFromFloat(*homeOutcome.Point)
	s.SpreadHomeOdds = americanPrice(homeOutcome.Price)
	s.SpreadAwayOdds = americanPrice(awayOutcome.Price)
	return nil
}

func applyTotal(s *models.OddsSnapshot, book string, market providers.RawMarket) error {
	overOutcome := findNamedOutcome(market.Outcomes, "over")
	underOutcome := findNamedOutcome(market.Outcomes, "under")
	if overOutcome == nil || overOutcome.Price == 0 {
		return utils.NewMalformedQuoteError(book, string(models.MarketTotal), "over price")
	}
	if underOutcome == nil || underOutcome.Price == 0 {
		return utils.NewMalformedQuoteError(book, string(models.MarketTotal), "under price")
	}
	if overOutcome.Point == nil {
		return utils.NewMalformedQuoteError(book, string(models.MarketTotal), "total line")
	}
	s.TotalLine = decimal.NewFromFloat(*overOutcome.Point)
	s.OverOdds = americanPrice(overOutcome.Price)
	s.UnderOdds = americanPrice(underOutcome.Price)
	return nil
}

// NormalizeScore maps a completed score payload onto a final result.
// Games still in progress return nil without error.
func (n *Normalizer) NormalizeScore(raw providers.RawGameScore, fetchedAt time.Time) (*models.GameResult, error) {
	if !raw.Completed {
		return nil, nil
	}

	homeScore, err := findTeamScore(raw.Scores, raw.HomeTeam)
	if err != nil {
		return nil, fmt.Errorf("score for game %s: %w", raw.ID, err)
	}
	awayScore, err := findTeamScore(raw.Scores, raw.AwayTeam)
	if err != nil {
		return nil, fmt.Errorf("score for game %s: %w", raw.ID, err)
	}

	completedAt := fetchedAt
	if raw.LastUpdate != nil {
		completedAt = *raw.LastUpdate
	}
	return &models.GameResult{
		GameID:      raw.ID,
		HomeScore:   homeScore,
		AwayScore:   awayScore,
		CompletedAt: completedAt.UTC(),
	}, nil
}

// findTeamOutcome matches an outcome against the payload's own team
// spelling, so books quoting the same raw name need no alias entries.
func findTeamOutcome(outcomes []providers.RawOutcome, team string) *providers.RawOutcome {
	key := cache.NormalizeTeamKey(team)
	for i := range outcomes {
		if cache.NormalizeTeamKey(outcomes[i].Name) == key {
			return &outcomes[i]
		}
	}
	return nil
}

func findNamedOutcome(outcomes []providers.RawOutcome, name string) *providers.RawOutcome {
	for i := range outcomes {
		if strings.EqualFold(strings.TrimSpace(outcomes[i].Name), name) {
			return &outcomes[i]
		}
	}
	return nil
}

func findTeamScore(scores []providers.RawTeamScore, team string) (int, error) {
	key := cache.NormalizeTeamKey(team)
	for _, s := range scores {
		if cache.NormalizeTeamKey(s.Name) != key {
			continue
		}
		points, err := strconv.Atoi(strings.TrimSpace(s.Score))
		if err != nil {
			return 0, fmt.Errorf("unreadable score %q for %s", s.Score, team)
		}
		return points, nil
	}
	return 0, fmt.Errorf("no score entry for %s", team)
}

func americanPrice(price float64) int {
	return int(math.Round(price))
}
