package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/sharpline/sharpline-go/internal/models"
)

const betColumns = `id, game_id, sport, market, selection, bookmaker, american_odds, line,
		stake, status, closing_odds, clv_percent, beat_close, profit, placed_at, settled_at`

// BetRepository handles database operations for the bet log.
type BetRepository struct {
	pool DatabasePool
}

// NewBetRepository creates a new bet repository.
//
// Parameters:
//
//	pool: The database connection pool.
//
// Returns:
//
//	*BetRepository: The initialized repository.
func NewBetRepository(pool DatabasePool) *BetRepository {
	return &BetRepository{
		pool: pool,
	}
}

// Insert records a new pending bet.
//
// Parameters:
//
//	ctx: Context.
//	bet: Bet to persist.
//
// Returns:
//
//	error: Error if the insert fails.
func (r *BetRepository) Insert(ctx context.Context, bet *models.BetRecord) error {
	query := `
		INSERT INTO bets (id, game_id, sport, market, selection, bookmaker,
			american_odds, line, stake, status, profit, placed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.pool.Exec(ctx, query,
		bet.ID, bet.GameID, bet.Sport, bet.Market, bet.Selection, bet.Bookmaker,
		bet.AmericanOdds, bet.Line, bet.Stake, bet.Status, bet.Profit, bet.PlacedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert bet: %w", err)
	}

	return nil
}

// Get fetches one bet by ID.
//
// Parameters:
//
//	ctx: Context.
//	id: Bet identifier.
//
// Returns:
//
//	*models.BetRecord: The bet, or nil when not found.
//	error: Error if retrieval fails.
func (r *BetRepository) Get(ctx context.Context, id uuid.UUID) (*models.BetRecord, error) {
	query := `SELECT ` + betColumns + ` FROM bets WHERE id = $1`

	var bet models.BetRecord
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&bet.ID,
		&bet.GameID,
		&bet.Sport,
		&bet.Market,
		&bet.Selection,
		&bet.Bookmaker,
		&bet.AmericanOdds,
		&bet.Line,
		&bet.Stake,
		&bet.Status,
		&bet.ClosingOdds,
		&bet.CLVPercent,
		&bet.BeatClose,
		&bet.Profit,
		&bet.PlacedAt,
		&bet.SettledAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get bet: %w", err)
	}

	return &bet, nil
}

// List returns bets newest first, optionally filtered by status.
//
// Parameters:
//
//	ctx: Context.
//	status: Status filter, empty for all.
//	limit: Maximum rows to return.
//
// Returns:
//
//	[]models.BetRecord: Matching bets.
//	error: Error if retrieval fails.
func (r *BetRepository) List(ctx context.Context, status models.BetStatus, limit int) ([]models.BetRecord, error) {
	query := `SELECT ` + betColumns + ` FROM bets`
	var args []interface{}

	if status != "" {
		args = append(args, status)
		query += fmt.Sprintf(" WHERE status = $%d", len(args))
	}
	query += " ORDER BY placed_at DESC"
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list bets: %w", err)
	}
	defer rows.Close()

	var bets []models.BetRecord
	for rows.Next() {
		var bet models.BetRecord
		err := rows.Scan(
			&bet.ID,
			&bet.GameID,
			&bet.Sport,
			&bet.Market,
			&bet.Selection,
			&bet.Bookmaker,
			&bet.AmericanOdds,
			&bet.Line,
			&bet.Stake,
			&bet.Status,
			&bet.ClosingOdds,
			&bet.CLVPercent,
			&bet.BeatClose,
			&bet.Profit,
			&bet.PlacedAt,
			&bet.SettledAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bet: %w", err)
		}
		bets = append(bets, bet)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bets: %w", err)
	}

	return bets, nil
}

// Settle writes the settlement fields of a pending bet. A bet can only
// be settled once.
//
// Parameters:
//
//	ctx: Context.
//	bet: Bet carrying the settlement fields to persist.
//
// Returns:
//
//	error: Error if the bet is missing, already settled, or the update fails.
func (r *BetRepository) Settle(ctx context.Context, bet *models.BetRecord) error {
	query := `
		UPDATE bets
		SET status = $2, closing_odds = $3, clv_percent = $4, beat_close = $5,
			profit = $6, settled_at = $7
		WHERE id = $1 AND status = 'pending'
	`

	result, err := r.pool.Exec(ctx, query,
		bet.ID, bet.Status, bet.ClosingOdds, bet.CLVPercent, bet.BeatClose,
		bet.Profit, bet.SettledAt,
	)
	if err != nil {
		return fmt.Errorf("failed to settle bet: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("bet %s not found or already settled", bet.ID)
	}

	return nil
}

// CLVSummary aggregates closing line value across settled bets that
// carry a closing price.
//
// Parameters:
//
//	ctx: Context.
//
// Returns:
//
//	*models.CLVSummary: Aggregate CLV figures.
//	error: Error if aggregation fails.
func (r *BetRepository) CLVSummary(ctx context.Context) (*models.CLVSummary, error) {
	query := `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE beat_close),
			COALESCE(AVG(clv_percent), 0),
			COALESCE(SUM(profit), 0)
		FROM bets
		WHERE status != 'pending' AND closing_odds IS NOT NULL
	`

	var summary models.CLVSummary
	var beat int
	err := r.pool.QueryRow(ctx, query).Scan(
		&summary.Bets,
		&beat,
		&summary.AvgCLVPercent,
		&summary.TotalProfit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize closing line value: %w", err)
	}

	if summary.Bets > 0 {
		summary.BeatCloseRate = float64(beat) / float64(summary.Bets) * 100
	}

	return &summary, nil
}
