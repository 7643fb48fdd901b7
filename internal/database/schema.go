package database

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// schema is the full DDL, safe to run repeatedly. Snapshots are
// append-only and deduplicated per (game, bookmaker, capture time);
// alerts deduplicate on fingerprint so re-detections of the same move
// never produce a second row.
const schema = `
	CREATE TABLE IF NOT EXISTS games (
		id TEXT PRIMARY KEY,
		sport TEXT NOT NULL,
		home_team TEXT NOT NULL,
		away_team TEXT NOT NULL,
		start_time TIMESTAMPTZ NOT NULL,
		division BOOLEAN NOT NULL DEFAULT FALSE,
		home_rest_days INT NOT NULL DEFAULT 0,
		away_rest_days INT NOT NULL DEFAULT 0,
		temperature_f DOUBLE PRECISION NOT NULL DEFAULT 0,
		wind_mph DOUBLE PRECISION NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS game_results (
		game_id TEXT PRIMARY KEY REFERENCES games(id) ON DELETE CASCADE,
		home_score INT NOT NULL,
		away_score INT NOT NULL,
		completed_at TIMESTAMPTZ NOT NULL
	);

	CREATE TABLE IF NOT EXISTS odds_snapshots (
		id UUID PRIMARY KEY,
		game_id TEXT NOT NULL REFERENCES games(id) ON DELETE CASCADE,
		bookmaker TEXT NOT NULL,
		snapshot_at TIMESTAMPTZ NOT NULL,
		spread_home NUMERIC(8,2) NOT NULL DEFAULT 0,
		spread_home_odds INT NOT NULL DEFAULT 0,
		spread_away_odds INT NOT NULL DEFAULT 0,
		total_line NUMERIC(8,2) NOT NULL DEFAULT 0,
		over_odds INT NOT NULL DEFAULT 0,
		under_odds INT NOT NULL DEFAULT 0,
		moneyline_home INT NOT NULL DEFAULT 0,
		moneyline_away INT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (game_id, bookmaker, snapshot_at)
	);

	CREATE TABLE IF NOT EXISTS movement_alerts (
		id UUID PRIMARY KEY,
		game_id TEXT NOT NULL,
		alert_type TEXT NOT NULL,
		severity TEXT NOT NULL,
		market TEXT NOT NULL,
		bookmaker TEXT NOT NULL,
		opening_line NUMERIC(8,2) NOT NULL DEFAULT 0,
		current_line NUMERIC(8,2) NOT NULL DEFAULT 0,
		movement NUMERIC(8,2) NOT NULL DEFAULT 0,
		movement_percent NUMERIC(8,2) NOT NULL DEFAULT 0,
		sharp_money BOOLEAN NOT NULL DEFAULT FALSE,
		reverse_line BOOLEAN NOT NULL DEFAULT FALSE,
		trend_direction TEXT NOT NULL DEFAULT '',
		fingerprint TEXT NOT NULL UNIQUE,
		read BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		expires_at TIMESTAMPTZ NOT NULL
	);

	CREATE TABLE IF NOT EXISTS opportunities (
		id UUID PRIMARY KEY,
		kind TEXT NOT NULL,
		sport TEXT NOT NULL,
		market TEXT NOT NULL,
		game_id TEXT NOT NULL,
		home_team TEXT NOT NULL DEFAULT '',
		away_team TEXT NOT NULL DEFAULT '',
		game_time TIMESTAMPTZ NOT NULL,
		confidence TEXT NOT NULL DEFAULT '',
		leg1 JSONB NOT NULL,
		leg2 JSONB NOT NULL,
		total_stake NUMERIC(12,2) NOT NULL DEFAULT 0,
		max_profit NUMERIC(12,2) NOT NULL DEFAULT 0,
		roi_percent NUMERIC(8,4) NOT NULL DEFAULT 0,
		middle_range JSONB,
		middle_probability DOUBLE PRECISION,
		detected_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS predictions (
		game_id TEXT PRIMARY KEY REFERENCES games(id) ON DELETE CASCADE,
		sport TEXT NOT NULL,
		home_team TEXT NOT NULL DEFAULT '',
		away_team TEXT NOT NULL DEFAULT '',
		final_winner TEXT NOT NULL,
		final_confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
		final_spread DOUBLE PRECISION NOT NULL DEFAULT 0,
		final_total DOUBLE PRECISION NOT NULL DEFAULT 0,
		win_probability DOUBLE PRECISION NOT NULL DEFAULT 0,
		models JSONB,
		model_weights JSONB,
		reasoning JSONB,
		predicted_at TIMESTAMPTZ NOT NULL,
		correct BOOLEAN,
		graded_at TIMESTAMPTZ
	);

	CREATE TABLE IF NOT EXISTS confidence_modifiers (
		situation TEXT PRIMARY KEY,
		modifier DOUBLE PRECISION NOT NULL,
		based_on_games INT NOT NULL DEFAULT 0,
		historical_accuracy DOUBLE PRECISION NOT NULL DEFAULT 0,
		expected_accuracy DOUBLE PRECISION NOT NULL DEFAULT 0,
		confidence_level TEXT NOT NULL DEFAULT '',
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS team_ratings (
		sport TEXT NOT NULL,
		team TEXT NOT NULL,
		rating DOUBLE PRECISION NOT NULL,
		games INT NOT NULL DEFAULT 0,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (sport, team)
	);

	CREATE TABLE IF NOT EXISTS bets (
		id UUID PRIMARY KEY,
		game_id TEXT NOT NULL,
		sport TEXT NOT NULL DEFAULT '',
		market TEXT NOT NULL,
		selection TEXT NOT NULL,
		bookmaker TEXT NOT NULL DEFAULT '',
		american_odds INT NOT NULL,
		line NUMERIC(8,2) NOT NULL DEFAULT 0,
		stake NUMERIC(12,2) NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		closing_odds INT,
		clv_percent DOUBLE PRECISION,
		beat_close BOOLEAN,
		profit NUMERIC(12,2) NOT NULL DEFAULT 0,
		placed_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		settled_at TIMESTAMPTZ
	);

	CREATE INDEX IF NOT EXISTS idx_games_sport_start ON games(sport, start_time);
	CREATE INDEX IF NOT EXISTS idx_snapshots_game_time ON odds_snapshots(game_id, snapshot_at DESC);
	CREATE INDEX IF NOT EXISTS idx_snapshots_created ON odds_snapshots(created_at);
	CREATE INDEX IF NOT EXISTS idx_alerts_created ON movement_alerts(created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_alerts_unread ON movement_alerts(read, severity);
	CREATE INDEX IF NOT EXISTS idx_opportunities_detected ON opportunities(detected_at DESC);
	CREATE INDEX IF NOT EXISTS idx_opportunities_game ON opportunities(game_id);
	CREATE INDEX IF NOT EXISTS idx_bets_status ON bets(status);
	CREATE INDEX IF NOT EXISTS idx_bets_placed ON bets(placed_at DESC);
`

// EnsureSchema creates any missing tables and indexes.
func EnsureSchema(ctx context.Context, pool DatabasePool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}

	logrus.Info("Database schema is up to date")
	return nil
}
