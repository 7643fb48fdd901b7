package providers

import (
	"context"
	"time"
)

// Market keys as the upstream odds feed names them. The normalizer maps
// these onto the canonical market types.
const (
	MarketKeyH2H     = "h2h"
	MarketKeySpreads = "spreads"
	MarketKeyTotals  = "totals"
)

// FetchOptions narrows a single odds fetch to one sport and an optional
// set of regions, markets and bookmakers. Empty slices mean the provider's
// defaults.
type FetchOptions struct {
	SportKey   string
	Regions    []string
	Markets    []string
	Bookmakers []string
}

// RawOutcome is one priced side of a market exactly as the feed quotes it.
// Price is an American price; Point carries the spread or total line and is
// nil for moneyline outcomes.
type RawOutcome struct {
	Name  string   `json:"name"`
	Price float64  `json:"price"`
	Point *float64 `json:"point,omitempty"`
}

// RawMarket groups the outcomes of one market key for one bookmaker.
type RawMarket struct {
	Key        string       `json:"key"`
	LastUpdate time.Time    `json:"last_update"`
	Outcomes   []RawOutcome `json:"outcomes"`
}

// RawBookmaker is one book's full set of quoted markets for a game.
type RawBookmaker struct {
	Key        string      `json:"key"`
	Title      string      `json:"title"`
	LastUpdate time.Time   `json:"last_update"`
	Markets    []RawMarket `json:"markets"`
}

// RawGameOdds is the provider's untranslated payload for a single game.
// Team names are the provider's own spelling; matching them to tracked
// games is the normalizer's job, never the provider's.
type RawGameOdds struct {
	ID           string         `json:"id"`
	SportKey     string         `json:"sport_key"`
	SportTitle   string         `json:"sport_title"`
	CommenceTime time.Time      `json:"commence_time"`
	HomeTeam     string         `json:"home_team"`
	AwayTeam     string         `json:"away_team"`
	Bookmakers   []RawBookmaker `json:"bookmakers"`
}

// OddsProvider is the upstream odds feed contract.
//
// FetchOdds returns the raw quote payloads for every game the feed lists
// under the sport key. Implementations translate transport failures into
// the pipeline's error taxonomy: quota exhaustion becomes
// ProviderRateLimitedError and outages become ProviderUnavailableError, so
// the collector can back off and skip rather than crash.
type OddsProvider interface {
	Name() string
	FetchOdds(ctx context.Context, opts FetchOptions) ([]RawGameOdds, error)
}

// RawTeamScore is one team's running or final score. The feed quotes the
// score as a string.
type RawTeamScore struct {
	Name  string `json:"name"`
	Score string `json:"score"`
}

// RawGameScore is the provider's score payload for a single game. Scores
// is empty for games that have not started.
type RawGameScore struct {
	ID           string         `json:"id"`
	SportKey     string         `json:"sport_key"`
	CommenceTime time.Time      `json:"commence_time"`
	Completed    bool           `json:"completed"`
	HomeTeam     string         `json:"home_team"`
	AwayTeam     string         `json:"away_team"`
	Scores       []RawTeamScore `json:"scores"`
	LastUpdate   *time.Time     `json:"last_update"`
}

// ScoreProvider supplies final scores so predictions and bets can be
// graded against what actually happened.
type ScoreProvider interface {
	Name() string
	FetchScores(ctx context.Context, sportKey string, daysFrom int) ([]RawGameScore, error)
}

// SportInfo describes one sport the feed serves.
type SportInfo struct {
	Key          string `json:"key"`
	Group        string `json:"group"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Active       bool   `json:"active"`
	HasOutrights bool   `json:"has_outrights"`
}

// PublicBettingSnapshot carries the ticket and handle splits for one game.
// Percentages are for the home side; the away side is the complement.
type PublicBettingSnapshot struct {
	GameID            string    `json:"game_id"`
	TicketPercentHome float64   `json:"ticket_percent_home"`
	HandlePercentHome float64   `json:"handle_percent_home"`
	FetchedAt         time.Time `json:"fetched_at"`
}

// PublicBettingFeed supplies public betting percentages for reverse line
// movement detection. No concrete upstream source is modeled yet; callers
// must treat an error as "percentages unknown" and skip RLM classification
// for that game.
type PublicBettingFeed interface {
	FetchPercentages(ctx context.Context, gameID string) (PublicBettingSnapshot, error)
}
