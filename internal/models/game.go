package models

import (
	"time"
)

// Sport identifies a sport by its provider key
type Sport string

const (
	SportNFL Sport = "americanfootball_nfl"
	SportNBA Sport = "basketball_nba"
	SportMLB Sport = "baseball_mlb"
)

// Game represents a tracked game with the situational context the
// calibrator buckets on
type Game struct {
	ID           string    `json:"id" db:"id"`
	Sport        Sport     `json:"sport" db:"sport"`
	HomeTeam     string    `json:"home_team" db:"home_team"`
	AwayTeam     string    `json:"away_team" db:"away_team"`
	StartTime    time.Time `json:"start_time" db:"start_time"`
	Division     bool      `json:"division" db:"division"`
	HomeRestDays int       `json:"home_rest_days" db:"home_rest_days"`
	AwayRestDays int       `json:"away_rest_days" db:"away_rest_days"`
	TemperatureF float64   `json:"temperature_f" db:"temperature_f"`
	WindMph      float64   `json:"wind_mph" db:"wind_mph"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// IsNightGame reports whether the game kicks off at 19:00 or later local time
func (g *Game) IsNightGame() bool {
	return g.StartTime.Hour() >= 19
}

// RestDayDiff returns the absolute rest-day differential between the sides
func (g *Game) RestDayDiff() int {
	diff := g.HomeRestDays - g.AwayRestDays
	if diff < 0 {
		return -diff
	}
	return diff
}

// HasBadWeather reports whether the game sits in the calibrator's weather
// bucket: temperature below 35F or wind above 20 mph
func (g *Game) HasBadWeather() bool {
	return g.TemperatureF < 35.0 || g.WindMph > 20.0
}

// GameResult represents a completed game's final score
type GameResult struct {
	GameID      string    `json:"game_id" db:"game_id"`
	HomeScore   int       `json:"home_score" db:"home_score"`
	AwayScore   int       `json:"away_score" db:"away_score"`
	CompletedAt time.Time `json:"completed_at" db:"completed_at"`
}

// Winner returns which side won the game
func (r *GameResult) Winner() string {
	switch {
	case r.HomeScore > r.AwayScore:
		return WinnerHome
	case r.AwayScore > r.HomeScore:
		return WinnerAway
	default:
		return "tie"
	}
}

// TotalPoints returns the combined final score
func (r *GameResult) TotalPoints() int {
	return r.HomeScore + r.AwayScore
}

// TeamRating represents a team's current Elo rating
type TeamRating struct {
	Team      string    `json:"team" db:"team"`
	Sport     Sport     `json:"sport" db:"sport"`
	Rating    float64   `json:"rating" db:"rating"`
	Games     int       `json:"games" db:"games"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
